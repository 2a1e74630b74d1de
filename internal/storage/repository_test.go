package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"hisobchi/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "hisobchi.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// insertTransaction seeds a fully-decided ledger row, bypassing the
// snapshot logic of SaveTransaction.
func (r *Repository) insertTransaction(ctx context.Context, t core.Transaction) (core.TransactionID, error) {
	var familyID sql.NullInt64
	if t.FamilyID != nil {
		familyID = sql.NullInt64{Int64: int64(*t.FamilyID), Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (kind, user_id, date, amount, currency, category, comment, family_id, approved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Kind), int64(t.OwnerID), t.Date, t.Amount, t.Currency, t.Category,
		t.Comment, familyID, t.State == core.StateApproved)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}
	return core.TransactionID(id), nil
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hisobchi.db")
	repo, err := NewRepository(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repo.Close()

	// Reopening runs migrations against an already-migrated file.
	repo, err = NewRepository(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	repo.Close()
}

func TestSetLanguageCreatesAndUpdates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.IsFirstTime(ctx, 1)
	if err != nil || !first {
		t.Fatalf("unknown user should be first-time, got %v %v", first, err)
	}

	if err := repo.SetLanguage(ctx, 1, core.LangUzbek); err != nil {
		t.Fatalf("set language: %v", err)
	}
	first, err = repo.IsFirstTime(ctx, 1)
	if err != nil || !first {
		t.Fatalf("fresh user keeps first-time flag, got %v %v", first, err)
	}

	// Changing language marks the user as returning.
	if err := repo.SetLanguage(ctx, 1, core.LangRussian); err != nil {
		t.Fatalf("update language: %v", err)
	}
	lang, err := repo.Language(ctx, 1)
	if err != nil || lang != core.LangRussian {
		t.Fatalf("got language %q %v", lang, err)
	}
	first, err = repo.IsFirstTime(ctx, 1)
	if err != nil || first {
		t.Fatalf("returning user should not be first-time, got %v %v", first, err)
	}
}

func TestLanguageDefaultsForUnknownUser(t *testing.T) {
	repo := newTestRepo(t)
	lang, err := repo.Language(context.Background(), 999)
	if err != nil {
		t.Fatalf("language: %v", err)
	}
	if lang != "" {
		t.Fatalf("got %q, want empty", lang)
	}
}

func TestCreateFamilyAssignsHead(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	famID, err := repo.CreateFamily(ctx, "Smiths", 10)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	role, err := repo.Role(ctx, 10)
	if err != nil || role != core.RoleHead {
		t.Fatalf("got role %q %v, want head", role, err)
	}
	ref, err := repo.FamilyOf(ctx, 10)
	if err != nil || ref == nil || *ref != famID {
		t.Fatalf("got family ref %v %v, want %d", ref, err, famID)
	}
	head, err := repo.HeadID(ctx, famID)
	if err != nil || head != 10 {
		t.Fatalf("got head %d %v, want 10", head, err)
	}
}

func TestJoinFamilyAssignsMember(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	famID, err := repo.CreateFamily(ctx, "Smiths", 10)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if err := repo.JoinFamily(ctx, 20, famID); err != nil {
		t.Fatalf("join family: %v", err)
	}

	role, err := repo.Role(ctx, 20)
	if err != nil || role != core.RoleMember {
		t.Fatalf("got role %q %v, want member", role, err)
	}
}

func TestHeadIDUnknownFamily(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.HeadID(context.Background(), 404); err != core.ErrFamilyNotFound {
		t.Fatalf("got %v, want ErrFamilyNotFound", err)
	}
}

func TestFamilyExists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	famID, err := repo.CreateFamily(ctx, "Smiths", 10)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	ok, err := repo.FamilyExists(ctx, famID)
	if err != nil || !ok {
		t.Fatalf("existing family: got %v %v", ok, err)
	}
	ok, err = repo.FamilyExists(ctx, famID+1)
	if err != nil || ok {
		t.Fatalf("missing family: got %v %v", ok, err)
	}
}

func sampleTransaction(owner core.UserID, familyID *core.FamilyID, state core.ApprovalState) core.Transaction {
	return core.Transaction{
		Kind:     core.KindExpense,
		OwnerID:  owner,
		Date:     time.Now().UTC(),
		Amount:   50,
		Currency: "USD",
		Category: "food",
		Comment:  "groceries",
		FamilyID: familyID,
		State:    state,
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	fam := core.FamilyID(3)
	id, err := repo.insertTransaction(ctx, sampleTransaction(20, &fam, core.StatePending))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, found, err := repo.GetTransaction(ctx, core.KindExpense, id)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.State != core.StatePending {
		t.Fatalf("got state %q, want pending", got.State)
	}
	if got.FamilyID == nil || *got.FamilyID != fam {
		t.Fatalf("family reference not preserved: %v", got.FamilyID)
	}
	if got.Amount != 50 || got.Currency != "USD" || got.Category != "food" {
		t.Fatalf("fields not preserved: %+v", got)
	}

	// Wrong kind does not match the row.
	_, found, err = repo.GetTransaction(ctx, core.KindIncome, id)
	if err != nil || found {
		t.Fatalf("kind mismatch should not match: found=%v err=%v", found, err)
	}
}

func TestApproveAndDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	fam := core.FamilyID(3)
	id, err := repo.insertTransaction(ctx, sampleTransaction(20, &fam, core.StatePending))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := repo.ApproveTransaction(ctx, core.KindExpense, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _, err := repo.GetTransaction(ctx, core.KindExpense, id)
	if err != nil || got.State != core.StateApproved {
		t.Fatalf("got state %q %v, want approved", got.State, err)
	}

	if err := repo.DeleteTransaction(ctx, core.KindExpense, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, found, err := repo.GetTransaction(ctx, core.KindExpense, id)
	if err != nil || found {
		t.Fatalf("deleted row still present: found=%v err=%v", found, err)
	}

	// Unknown ids are silent no-ops.
	if err := repo.ApproveTransaction(ctx, core.KindExpense, id); err != nil {
		t.Fatalf("approve missing: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, core.KindExpense, id); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestListApprovedScopes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	fam := core.FamilyID(3)
	if _, err := repo.insertTransaction(ctx, sampleTransaction(20, &fam, core.StateApproved)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.insertTransaction(ctx, sampleTransaction(21, &fam, core.StatePending)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.insertTransaction(ctx, sampleTransaction(30, nil, core.StateApproved)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	byFamily, err := repo.ListApproved(ctx, FamilyScope(fam))
	if err != nil {
		t.Fatalf("list family: %v", err)
	}
	if len(byFamily) != 1 {
		t.Fatalf("family scope: got %d rows, want 1 (pending rows stay hidden)", len(byFamily))
	}

	byUser, err := repo.ListApproved(ctx, UserScope(30))
	if err != nil {
		t.Fatalf("list user: %v", err)
	}
	if len(byUser) != 1 || byUser[0].OwnerID != 30 {
		t.Fatalf("user scope: got %+v", byUser)
	}

	if _, err := repo.ListApproved(ctx, Scope{}); err == nil {
		t.Fatalf("empty scope should be rejected")
	}
}

func TestBudgetDefaultsAndSet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	budget, err := repo.Budget(ctx, 999)
	if err != nil || budget != 0 {
		t.Fatalf("unknown user budget: got %v %v, want 0", budget, err)
	}

	famID, err := repo.CreateFamily(ctx, "Smiths", 10)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if err := repo.JoinFamily(ctx, 20, famID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := repo.JoinFamily(ctx, 21, famID); err != nil {
		t.Fatalf("join: %v", err)
	}

	members, err := repo.SetFamilyBudget(ctx, famID, 300)
	if err != nil {
		t.Fatalf("set family budget: %v", err)
	}
	if members != 2 {
		t.Fatalf("got %d members, want 2", members)
	}

	for _, id := range []core.UserID{20, 21} {
		b, err := repo.Budget(ctx, id)
		if err != nil || b != 300 {
			t.Fatalf("member %d budget: got %v %v, want 300", id, b, err)
		}
	}
	// The head is excluded from propagation.
	b, err := repo.Budget(ctx, 10)
	if err != nil || b != 0 {
		t.Fatalf("head budget: got %v %v, want 0", b, err)
	}
}

func TestReduceBudgetConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	famID, err := repo.CreateFamily(ctx, "Smiths", 10)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if err := repo.JoinFamily(ctx, 20, famID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := repo.SetFamilyBudget(ctx, famID, 1000); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	// Two concurrent reducers must both land: 1000 - 100 - 250 = 650.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return repo.ReduceBudget(gctx, 20, 100) })
	g.Go(func() error { return repo.ReduceBudget(gctx, 20, 250) })
	if err := g.Wait(); err != nil {
		t.Fatalf("reduce: %v", err)
	}

	budget, err := repo.Budget(ctx, 20)
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	if budget != 650 {
		t.Fatalf("got budget %v, want 650", budget)
	}
}

func TestReduceBudgetManyWriters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	famID, err := repo.CreateFamily(ctx, "Smiths", 10)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	if err := repo.JoinFamily(ctx, 20, famID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := repo.SetFamilyBudget(ctx, famID, 1000); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	// Heavy writer contention: every reducer must queue and land, none may
	// error out with a busy database.
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 50; i++ {
		g.Go(func() error { return repo.ReduceBudget(gctx, 20, 10) })
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent reduce: %v", err)
	}

	budget, err := repo.Budget(ctx, 20)
	if err != nil {
		t.Fatalf("budget: %v", err)
	}
	if budget != 500 {
		t.Fatalf("got budget %v, want 500", budget)
	}
}
