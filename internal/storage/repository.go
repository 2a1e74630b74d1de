package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hisobchi/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the durable backing for users, families and the transaction
// ledger. Every method is a single atomic unit of work: either one SQL
// statement or one explicit transaction, never a read-then-write across
// separate round trips.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite allows one writer at a time; funnel every connection through a
	// single pool slot so concurrent writers queue instead of failing with
	// SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SetLanguage records a user's preferred language. First contact creates the
// row with the first-time flag set; a returning user keeps their row and the
// flag is cleared.
func (r *Repository) SetLanguage(ctx context.Context, userID core.UserID, lang core.Language) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, language, first_time) VALUES (?, ?, 1)
		 ON CONFLICT (user_id) DO UPDATE SET language = excluded.language, first_time = 0`,
		int64(userID), string(lang))
	if err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// Language returns the user's language, or empty for unknown users.
func (r *Repository) Language(ctx context.Context, userID core.UserID) (core.Language, error) {
	var lang string
	err := r.db.QueryRowContext(ctx,
		`SELECT language FROM users WHERE user_id = ?`, int64(userID)).Scan(&lang)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get language: %w", err)
	}
	return core.Language(lang), nil
}

// IsFirstTime defaults to true for users that have never been seen.
func (r *Repository) IsFirstTime(ctx context.Context, userID core.UserID) (bool, error) {
	var firstTime bool
	err := r.db.QueryRowContext(ctx,
		`SELECT first_time FROM users WHERE user_id = ?`, int64(userID)).Scan(&firstTime)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get first_time: %w", err)
	}
	return firstTime, nil
}

// MarkGreeted clears the first-time flag after the welcome message.
func (r *Repository) MarkGreeted(ctx context.Context, userID core.UserID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_time = 0 WHERE user_id = ?`, int64(userID))
	if err != nil {
		return fmt.Errorf("mark greeted: %w", err)
	}
	return nil
}

// GetUser loads the full preference and registry row for one user. Unknown
// users come back as first-time defaults rather than an error.
func (r *Repository) GetUser(ctx context.Context, userID core.UserID) (core.User, error) {
	u := core.User{ID: userID, FirstTime: true}
	var familyID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT language, first_time, family_id, role, budget FROM users WHERE user_id = ?`,
		int64(userID)).Scan(&u.Language, &u.FirstTime, &familyID, &u.Role, &u.Budget)
	if errors.Is(err, sql.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if familyID.Valid {
		fid := core.FamilyID(familyID.Int64)
		u.FamilyID = &fid
	}
	return u, nil
}

// Role returns the user's family role, RoleNone for unknown users.
func (r *Repository) Role(ctx context.Context, userID core.UserID) (core.Role, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE user_id = ?`, int64(userID)).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RoleNone, nil
	}
	if err != nil {
		return core.RoleNone, fmt.Errorf("get role: %w", err)
	}
	return core.Role(role), nil
}

// FamilyOf returns the user's family reference, nil when unaffiliated.
func (r *Repository) FamilyOf(ctx context.Context, userID core.UserID) (*core.FamilyID, error) {
	var familyID sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT family_id FROM users WHERE user_id = ?`, int64(userID)).Scan(&familyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family_id: %w", err)
	}
	if !familyID.Valid {
		return nil, nil
	}
	id := core.FamilyID(familyID.Int64)
	return &id, nil
}

// CreateFamily allocates a family and promotes the creator to head, in one
// transaction so the head invariant never observes a half-applied state.
func (r *Repository) CreateFamily(ctx context.Context, name string, headID core.UserID) (core.FamilyID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create family: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO families (family_name, head_id) VALUES (?, ?)`,
		name, int64(headID))
	if err != nil {
		return 0, fmt.Errorf("insert family: %w", err)
	}
	familyID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("family id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (user_id, family_id, role) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET family_id = excluded.family_id, role = excluded.role`,
		int64(headID), familyID, string(core.RoleHead))
	if err != nil {
		return 0, fmt.Errorf("assign head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create family: %w", err)
	}

	slog.InfoContext(ctx, "Family created",
		"family_id", familyID,
		"family_name", name,
		"head_id", headID)

	return core.FamilyID(familyID), nil
}

// JoinFamily links a user to a family as a member.
func (r *Repository) JoinFamily(ctx context.Context, userID core.UserID, familyID core.FamilyID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, family_id, role) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET family_id = excluded.family_id, role = excluded.role`,
		int64(userID), int64(familyID), string(core.RoleMember))
	if err != nil {
		return fmt.Errorf("join family: %w", err)
	}

	slog.InfoContext(ctx, "User joined family",
		"user_id", userID,
		"family_id", familyID)

	return nil
}

// HeadID resolves the head of a family.
func (r *Repository) HeadID(ctx context.Context, familyID core.FamilyID) (core.UserID, error) {
	var headID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT head_id FROM families WHERE family_id = ?`, int64(familyID)).Scan(&headID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrFamilyNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get head_id: %w", err)
	}
	return core.UserID(headID), nil
}

// FamilyExists reports whether a family id is known.
func (r *Repository) FamilyExists(ctx context.Context, familyID core.FamilyID) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM families WHERE family_id = ?`, int64(familyID)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("family exists: %w", err)
	}
	return true, nil
}

// SaveTransaction snapshots the owner's family and role, decides the approval
// state, and persists the row, all inside one storage transaction so a
// concurrent family change cannot slip between the read and the write. The
// stamped family reference is final; later membership changes never touch it.
func (r *Repository) SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		familyID sql.NullInt64
		role     string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT family_id, role FROM users WHERE user_id = ?`,
		int64(t.OwnerID)).Scan(&familyID, &role)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("snapshot owner: %w", err)
	}

	t.FamilyID = nil
	if familyID.Valid {
		fid := core.FamilyID(familyID.Int64)
		t.FamilyID = &fid
	}
	t.State = core.DecideState(core.Role(role), t.FamilyID)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (kind, user_id, date, amount, currency, category, comment, family_id, approved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.Kind), int64(t.OwnerID), t.Date, t.Amount, t.Currency, t.Category,
		t.Comment, familyID, t.State == core.StateApproved)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit save transaction: %w", err)
	}

	t.ID = core.TransactionID(id)

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"kind", t.Kind,
		"user_id", t.OwnerID,
		"amount", t.Amount,
		"currency", t.Currency,
		"category", t.Category,
		"state", t.State)

	return t, nil
}

// GetTransaction fetches a single ledger row by kind and id. The second
// return value is false for unknown ids.
func (r *Repository) GetTransaction(ctx context.Context, kind core.Kind, id core.TransactionID) (core.Transaction, bool, error) {
	var (
		t        core.Transaction
		familyID sql.NullInt64
		approved bool
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, user_id, date, amount, currency, category, comment, family_id, approved
		 FROM transactions WHERE id = ? AND kind = ?`,
		int64(id), string(kind)).Scan(
		&t.ID, &t.Kind, &t.OwnerID, &t.Date, &t.Amount, &t.Currency,
		&t.Category, &t.Comment, &familyID, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("get transaction: %w", err)
	}

	if familyID.Valid {
		fid := core.FamilyID(familyID.Int64)
		t.FamilyID = &fid
	}
	t.State = core.StatePending
	if approved {
		t.State = core.StateApproved
	}
	return t, true, nil
}

// ApproveTransaction flips a row to approved. Unknown ids are a no-op.
func (r *Repository) ApproveTransaction(ctx context.Context, kind core.Kind, id core.TransactionID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET approved = 1 WHERE id = ? AND kind = ?`,
		int64(id), string(kind))
	if err != nil {
		return fmt.Errorf("approve transaction: %w", err)
	}
	return nil
}

// DeleteTransaction removes a row permanently. Unknown ids are a no-op.
func (r *Repository) DeleteTransaction(ctx context.Context, kind core.Kind, id core.TransactionID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND kind = ?`,
		int64(id), string(kind))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// Scope selects whose approved transactions ListApproved returns: a single
// user's or a whole family's.
type Scope struct {
	UserID   *core.UserID
	FamilyID *core.FamilyID
}

func UserScope(id core.UserID) Scope     { return Scope{UserID: &id} }
func FamilyScope(id core.FamilyID) Scope { return Scope{FamilyID: &id} }

// ListApproved returns approved transactions for the scope in storage order.
// Pending rows stay invisible until the head decides.
func (r *Repository) ListApproved(ctx context.Context, scope Scope) ([]core.Transaction, error) {
	var (
		rows *sql.Rows
		err  error
	)
	const cols = `SELECT id, kind, user_id, date, amount, currency, category, comment, family_id, approved
		 FROM transactions WHERE approved = 1`

	switch {
	case scope.FamilyID != nil:
		rows, err = r.db.QueryContext(ctx, cols+` AND family_id = ?`, int64(*scope.FamilyID))
	case scope.UserID != nil:
		rows, err = r.db.QueryContext(ctx, cols+` AND user_id = ?`, int64(*scope.UserID))
	default:
		return nil, core.ValidationError("empty scope")
	}
	if err != nil {
		return nil, fmt.Errorf("list approved: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t        core.Transaction
			familyID sql.NullInt64
			approved bool
		)
		if err := rows.Scan(&t.ID, &t.Kind, &t.OwnerID, &t.Date, &t.Amount,
			&t.Currency, &t.Category, &t.Comment, &familyID, &approved); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if familyID.Valid {
			fid := core.FamilyID(familyID.Int64)
			t.FamilyID = &fid
		}
		t.State = core.StateApproved
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Budget returns the user's remaining budget, 0 for unknown users.
func (r *Repository) Budget(ctx context.Context, userID core.UserID) (float64, error) {
	var budget float64
	err := r.db.QueryRowContext(ctx,
		`SELECT budget FROM users WHERE user_id = ?`, int64(userID)).Scan(&budget)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get budget: %w", err)
	}
	return budget, nil
}

// SetFamilyBudget overwrites the budget of every member of the family, head
// excluded, in a single statement so the write is all-or-nothing.
func (r *Repository) SetFamilyBudget(ctx context.Context, familyID core.FamilyID, amount float64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET budget = ? WHERE family_id = ? AND role = ?`,
		amount, int64(familyID), string(core.RoleMember))
	if err != nil {
		return 0, fmt.Errorf("set family budget: %w", err)
	}
	members, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set family budget rows: %w", err)
	}

	slog.InfoContext(ctx, "Family budget set",
		"family_id", familyID,
		"amount", amount,
		"members", members)

	return members, nil
}

// ReduceBudget decrements a user's budget in-place. The arithmetic happens in
// the database, so concurrent reducers cannot lose each other's writes.
func (r *Repository) ReduceBudget(ctx context.Context, userID core.UserID, amount float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET budget = budget - ? WHERE user_id = ?`,
		amount, int64(userID))
	if err != nil {
		return fmt.Errorf("reduce budget: %w", err)
	}
	return nil
}
