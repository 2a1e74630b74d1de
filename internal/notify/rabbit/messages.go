package rabbit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"hisobchi/internal/notify"
)

const (
	TypeApprovalRequest = "approval_request"
	TypeDecisionNotice  = "decision_notice"
)

// Message is the wire form of a notification descriptor. Recipient is the
// chat/user the delivery collaborator should address: the family head for
// approval requests, the submitter for decision notices.
type Message struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Recipient     int64     `json:"recipient"`
	Kind          string    `json:"kind"`
	TransactionID int64     `json:"transaction_id"`
	SubmitterID   int64     `json:"submitter_id"`
	Decision      string    `json:"decision,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func newApprovalRequestMessage(req notify.ApprovalRequest) *Message {
	return &Message{
		ID:            uuid.NewString(),
		Type:          TypeApprovalRequest,
		Recipient:     int64(req.HeadID),
		Kind:          string(req.Kind),
		TransactionID: int64(req.TransactionID),
		SubmitterID:   int64(req.SubmitterID),
		Timestamp:     time.Now(),
	}
}

func newDecisionNoticeMessage(notice notify.DecisionNotice) *Message {
	return &Message{
		ID:            uuid.NewString(),
		Type:          TypeDecisionNotice,
		Recipient:     int64(notice.SubmitterID),
		Kind:          string(notice.Kind),
		TransactionID: int64(notice.TransactionID),
		SubmitterID:   int64(notice.SubmitterID),
		Decision:      string(notice.Decision),
		Timestamp:     time.Now(),
	}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
