package core

import "fmt"

// ValidationError marks malformed input. The calling layer re-prompts; it is
// never fatal to the process.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrEmptyFamilyName ValidationError = "empty family name"
	ErrInvalidAmount   ValidationError = "invalid amount"
	ErrInvalidCurrency ValidationError = "unknown currency"
	ErrInvalidCategory ValidationError = "unknown category"
	ErrInvalidKind     ValidationError = "invalid transaction kind"
	ErrInvalidLanguage ValidationError = "unsupported language"
)

// NotFoundError marks a reference to an unknown entity. Read paths return
// zero values instead of raising it; mutation paths raise it only where the
// operation cannot proceed at all (e.g. joining a family that doesn't exist).
type NotFoundError string

func (e NotFoundError) Error() string { return string(e) + " not found" }

const ErrFamilyNotFound NotFoundError = "family"

// AuthorizationError is raised when someone other than the family head tries
// to decide a pending transaction or set member budgets.
type AuthorizationError struct {
	Caller UserID
	Family FamilyID
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("user %d is not the head of family %d", e.Caller, e.Family)
}
