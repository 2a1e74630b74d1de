package services

import (
	"context"
	"errors"
	"testing"

	"hisobchi/internal/core"
)

func TestSetFamilyBudgetPropagation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	famID := f.newFamily(t, 10, 20, 21)

	members, err := f.budgets.SetFamilyBudget(ctx, 10, famID, 500)
	if err != nil {
		t.Fatalf("set family budget: %v", err)
	}
	if members != 2 {
		t.Fatalf("got %d members, want 2", members)
	}

	for _, id := range []core.UserID{20, 21} {
		b, err := f.budgets.Budget(ctx, id)
		if err != nil || b != 500 {
			t.Fatalf("member %d: got %v %v, want 500", id, b, err)
		}
	}
	if b, _ := f.budgets.Budget(ctx, 10); b != 0 {
		t.Fatalf("head budget: got %v, want 0 (head excluded)", b)
	}

	// Re-setting overwrites, including to a negative value.
	if _, err := f.budgets.SetFamilyBudget(ctx, 10, famID, -50); err != nil {
		t.Fatalf("negative budget: %v", err)
	}
	if b, _ := f.budgets.Budget(ctx, 20); b != -50 {
		t.Fatalf("got %v, want -50", b)
	}
}

func TestSetFamilyBudgetAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	famID := f.newFamily(t, 10, 20)

	var authErr core.AuthorizationError
	if _, err := f.budgets.SetFamilyBudget(ctx, 20, famID, 100); !errors.As(err, &authErr) {
		t.Fatalf("member set: got %v, want AuthorizationError", err)
	}
	if _, err := f.budgets.SetFamilyBudget(ctx, 10, 404, 100); !errors.Is(err, core.ErrFamilyNotFound) {
		t.Fatalf("unknown family: got %v, want ErrFamilyNotFound", err)
	}
}

func TestReduceBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	famID := f.newFamily(t, 10, 20)

	if _, err := f.budgets.SetFamilyBudget(ctx, 10, famID, 1000); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.budgets.Reduce(ctx, 20, 300); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if err := f.budgets.Reduce(ctx, 20, 150); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if b, _ := f.budgets.Budget(ctx, 20); b != 550 {
		t.Fatalf("got %v, want 550", b)
	}
}

func TestUsersLanguageLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if first, _ := f.users.IsFirstTime(ctx, 5); !first {
		t.Fatalf("unknown user should be first-time")
	}
	if err := f.users.SetLanguage(ctx, 5, core.LangUzbek); err != nil {
		t.Fatalf("set language: %v", err)
	}
	if err := f.users.SetLanguage(ctx, 5, core.Language("en")); err == nil {
		t.Fatalf("unsupported language should be rejected")
	}
	if lang, _ := f.users.Language(ctx, 5); lang != core.LangUzbek {
		t.Fatalf("got %q, want uz", lang)
	}
	if err := f.users.MarkGreeted(ctx, 5); err != nil {
		t.Fatalf("mark greeted: %v", err)
	}
	if first, _ := f.users.IsFirstTime(ctx, 5); first {
		t.Fatalf("greeted user should not be first-time")
	}
}
