package services

import (
	"context"
	"fmt"

	"hisobchi/internal/core"
	"hisobchi/internal/storage"
)

// Budgets propagates spending budgets from a family head to the members.
type Budgets struct {
	store *storage.Repository
}

func NewBudgets(store *storage.Repository) *Budgets {
	return &Budgets{store: store}
}

// SetFamilyBudget overwrites every member's budget, head excluded. Only the
// family head may call it. The amount is taken as-is; negative budgets stay
// representable. Returns the number of members updated.
func (b *Budgets) SetFamilyBudget(ctx context.Context, callerID core.UserID, familyID core.FamilyID, amount float64) (int64, error) {
	head, err := b.store.HeadID(ctx, familyID)
	if err != nil {
		return 0, err
	}
	if callerID != head {
		return 0, core.AuthorizationError{Caller: callerID, Family: familyID}
	}

	members, err := b.store.SetFamilyBudget(ctx, familyID, amount)
	if err != nil {
		return 0, fmt.Errorf("set family budget: %w", err)
	}
	return members, nil
}

// Reduce subtracts an amount from a user's budget. The decrement happens in
// storage, so concurrent reductions all land.
func (b *Budgets) Reduce(ctx context.Context, userID core.UserID, amount float64) error {
	if err := core.ValidAmount(amount); err != nil {
		return err
	}
	if err := b.store.ReduceBudget(ctx, userID, amount); err != nil {
		return fmt.Errorf("reduce budget: %w", err)
	}
	return nil
}

// Budget returns the user's remaining budget, 0 for unknown users.
func (b *Budgets) Budget(ctx context.Context, userID core.UserID) (float64, error) {
	return b.store.Budget(ctx, userID)
}
