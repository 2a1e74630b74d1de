package rabbit

import (
	"testing"

	"hisobchi/internal/notify"
)

func TestApprovalRequestMessageAddressesHead(t *testing.T) {
	msg := newApprovalRequestMessage(notify.ApprovalRequest{
		HeadID:        10,
		Kind:          "expense",
		TransactionID: 77,
		SubmitterID:   20,
	})

	if msg.Type != TypeApprovalRequest {
		t.Fatalf("got type %q", msg.Type)
	}
	if msg.Recipient != 10 {
		t.Fatalf("approval request must be addressed to the head, got recipient %d", msg.Recipient)
	}
	if msg.SubmitterID != 20 || msg.TransactionID != 77 {
		t.Fatalf("payload not preserved: %+v", msg)
	}
	if msg.ID == "" {
		t.Fatalf("message id must be assigned")
	}
}

func TestDecisionNoticeMessageAddressesSubmitter(t *testing.T) {
	msg := newDecisionNoticeMessage(notify.DecisionNotice{
		SubmitterID:   20,
		Kind:          "income",
		TransactionID: 77,
		Decision:      notify.DecisionRejected,
	})

	if msg.Type != TypeDecisionNotice {
		t.Fatalf("got type %q", msg.Type)
	}
	if msg.Recipient != 20 {
		t.Fatalf("decision notice must be addressed to the submitter, got recipient %d", msg.Recipient)
	}
	if msg.Decision != "rejected" {
		t.Fatalf("got decision %q", msg.Decision)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := MessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Recipient != msg.Recipient || back.Decision != msg.Decision {
		t.Fatalf("wire round trip changed the message: %+v", back)
	}
}
