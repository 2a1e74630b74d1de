// Package notify defines the outgoing notification boundary. The approval
// workflow produces abstract descriptors; actual delivery to users belongs to
// an external collaborator that consumes them from the queue.
package notify

import (
	"context"

	"hisobchi/internal/core"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ApprovalRequest asks a family head to decide a member's pending transaction.
type ApprovalRequest struct {
	HeadID        core.UserID
	Kind          core.Kind
	TransactionID core.TransactionID
	SubmitterID   core.UserID
}

// DecisionNotice tells the submitter how the head decided.
type DecisionNotice struct {
	SubmitterID   core.UserID
	Kind          core.Kind
	TransactionID core.TransactionID
	Decision      Decision
}

// Notifier publishes notification descriptors for external delivery. Failures
// are reported to the caller for logging only; the ledger write they follow
// is already committed and must not be rolled back.
type Notifier interface {
	PublishApprovalRequest(ctx context.Context, req ApprovalRequest) error
	PublishDecisionNotice(ctx context.Context, notice DecisionNotice) error
}
