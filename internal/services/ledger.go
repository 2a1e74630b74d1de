// Package services implements the approval workflow, family registry and
// budget operations on top of the storage layer. Notifications go through the
// injected notify.Notifier so this package never depends on a transport.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hisobchi/internal/cache"
	"hisobchi/internal/core"
	"hisobchi/internal/notify"
	"hisobchi/internal/storage"
)

const (
	headCacheSize = 1024
	headCacheTTL  = 15 * time.Minute
)

// Rules is the boundary-validation configuration: the closed sets a
// transaction's currency and category must come from. The interaction layer
// owns the actual lists.
type Rules struct {
	Currencies        []string
	IncomeCategories  []string
	ExpenseCategories []string
}

// Ledger gates transaction creation and carries out head decisions.
type Ledger struct {
	store      *storage.Repository
	notifier   notify.Notifier
	heads      *cache.LRU[core.FamilyID, core.UserID]
	currencies map[string]bool
	categories map[core.Kind]map[string]bool
}

func NewLedger(store *storage.Repository, notifier notify.Notifier, rules Rules) *Ledger {
	l := &Ledger{
		store:      store,
		notifier:   notifier,
		heads:      cache.NewLRU[core.FamilyID, core.UserID](headCacheSize, headCacheTTL),
		currencies: make(map[string]bool),
		categories: map[core.Kind]map[string]bool{
			core.KindIncome:  make(map[string]bool),
			core.KindExpense: make(map[string]bool),
		},
	}
	for _, c := range rules.Currencies {
		l.currencies[c] = true
	}
	for _, c := range rules.IncomeCategories {
		l.categories[core.KindIncome][c] = true
	}
	for _, c := range rules.ExpenseCategories {
		l.categories[core.KindExpense][c] = true
	}
	return l
}

// RecordTransaction validates the entry, sanitizes the comment, persists the
// row with the owner's family and role snapshotted at creation time, and asks
// the family head for approval when the policy requires it. The returned
// transaction carries the decided state and assigned id.
func (l *Ledger) RecordTransaction(ctx context.Context, kind core.Kind, ownerID core.UserID, amount float64, currency, category, rawComment string) (core.Transaction, error) {
	if err := kind.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := core.ValidAmount(amount); err != nil {
		return core.Transaction{}, err
	}
	if !l.currencies[currency] {
		return core.Transaction{}, core.ErrInvalidCurrency
	}
	if !l.categories[kind][category] {
		return core.Transaction{}, core.ErrInvalidCategory
	}

	t, err := l.store.SaveTransaction(ctx, core.Transaction{
		Kind:     kind,
		OwnerID:  ownerID,
		Date:     time.Now().UTC(),
		Amount:   amount,
		Currency: currency,
		Category: category,
		Comment:  core.SanitizeComment(rawComment),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if t.State == core.StatePending {
		l.requestApproval(ctx, t)
	}

	return t, nil
}

// requestApproval notifies the family head about a pending transaction.
// The row is already committed; a failed publish is logged and swallowed.
func (l *Ledger) requestApproval(ctx context.Context, t core.Transaction) {
	head, err := l.headOf(ctx, *t.FamilyID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to resolve family head for approval request",
			"error", err,
			"family_id", *t.FamilyID,
			"transaction_id", t.ID)
		return
	}

	req := notify.ApprovalRequest{
		HeadID:        head,
		Kind:          t.Kind,
		TransactionID: t.ID,
		SubmitterID:   t.OwnerID,
	}
	if err := l.notifier.PublishApprovalRequest(ctx, req); err != nil {
		slog.WarnContext(ctx, "Approval request delivery failed",
			"error", err,
			"head_id", head,
			"transaction_id", t.ID)
	}
}

// Approve flips a pending transaction to approved. Only the head of the
// transaction's family may call it. Unknown ids and already-approved rows are
// silent no-ops.
func (l *Ledger) Approve(ctx context.Context, callerID core.UserID, kind core.Kind, id core.TransactionID) error {
	t, found, err := l.store.GetTransaction(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if !found {
		slog.DebugContext(ctx, "Approve on unknown transaction, ignoring",
			"kind", kind, "transaction_id", id)
		return nil
	}
	if t.State == core.StateApproved {
		return nil
	}
	if err := l.authorizeHead(ctx, callerID, t); err != nil {
		return err
	}

	if err := l.store.ApproveTransaction(ctx, kind, id); err != nil {
		return fmt.Errorf("approve transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction approved",
		"kind", kind,
		"transaction_id", id,
		"head_id", callerID,
		"submitter_id", t.OwnerID)

	l.notifyDecision(ctx, t, notify.DecisionApproved)
	return nil
}

// Reject permanently deletes a pending transaction. Only the head of the
// transaction's family may call it. Unknown ids are silent no-ops, and an
// approved row is terminal and stays put.
func (l *Ledger) Reject(ctx context.Context, callerID core.UserID, kind core.Kind, id core.TransactionID) error {
	t, found, err := l.store.GetTransaction(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if !found {
		slog.DebugContext(ctx, "Reject on unknown transaction, ignoring",
			"kind", kind, "transaction_id", id)
		return nil
	}
	if t.State == core.StateApproved {
		return nil
	}
	if err := l.authorizeHead(ctx, callerID, t); err != nil {
		return err
	}

	if err := l.store.DeleteTransaction(ctx, kind, id); err != nil {
		return fmt.Errorf("reject transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction rejected and deleted",
		"kind", kind,
		"transaction_id", id,
		"head_id", callerID,
		"submitter_id", t.OwnerID)

	l.notifyDecision(ctx, t, notify.DecisionRejected)
	return nil
}

// ListApproved exposes approved transactions to the reporting collaborator.
func (l *Ledger) ListApproved(ctx context.Context, scope storage.Scope) ([]core.Transaction, error) {
	return l.store.ListApproved(ctx, scope)
}

func (l *Ledger) authorizeHead(ctx context.Context, callerID core.UserID, t core.Transaction) error {
	// Pending rows always carry a family reference; guard anyway so a
	// corrupt row cannot bypass the head check.
	if t.FamilyID == nil {
		slog.WarnContext(ctx, "Pending transaction without family reference",
			"transaction_id", t.ID)
		return core.ErrFamilyNotFound
	}
	head, err := l.headOf(ctx, *t.FamilyID)
	if err != nil {
		return err
	}
	if callerID != head {
		return core.AuthorizationError{Caller: callerID, Family: *t.FamilyID}
	}
	return nil
}

func (l *Ledger) notifyDecision(ctx context.Context, t core.Transaction, decision notify.Decision) {
	notice := notify.DecisionNotice{
		SubmitterID:   t.OwnerID,
		Kind:          t.Kind,
		TransactionID: t.ID,
		Decision:      decision,
	}
	if err := l.notifier.PublishDecisionNotice(ctx, notice); err != nil {
		slog.WarnContext(ctx, "Decision notice delivery failed",
			"error", err,
			"submitter_id", t.OwnerID,
			"transaction_id", t.ID)
	}
}

// headOf resolves and caches the head of a family. Heads are immutable after
// family creation, so cached values never go stale.
func (l *Ledger) headOf(ctx context.Context, familyID core.FamilyID) (core.UserID, error) {
	if head, ok := l.heads.Get(familyID); ok {
		return head, nil
	}
	head, err := l.store.HeadID(ctx, familyID)
	if err != nil {
		return 0, err
	}
	l.heads.Set(familyID, head)
	return head, nil
}
