package core

import (
	"math"
	"time"
)

const (
	RoleNone   Role = ""
	RoleHead   Role = "head"
	RoleMember Role = "member"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	StateApproved ApprovalState = "approved"
	StatePending  ApprovalState = "pending"
)

const (
	LangUzbek   Language = "uz"
	LangRussian Language = "ru"
)

type (
	UserID        int64
	FamilyID      int64
	TransactionID int64

	Role          string
	Kind          string
	ApprovalState string
	Language      string

	User struct {
		ID        UserID
		Language  Language
		FirstTime bool
		FamilyID  *FamilyID
		Role      Role
		Budget    float64
	}

	Family struct {
		ID     FamilyID
		Name   string
		HeadID UserID
	}

	Transaction struct {
		ID       TransactionID
		Kind     Kind
		OwnerID  UserID
		Date     time.Time
		Amount   float64
		Currency string
		Category string
		Comment  string
		FamilyID *FamilyID
		State    ApprovalState
	}
)

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	}
	return ErrInvalidKind
}

func (l Language) Validate() error {
	switch l {
	case LangUzbek, LangRussian:
		return nil
	}
	return ErrInvalidLanguage
}

// ParseKind converts a wire value into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// ParseLanguage converts a wire value into a Language.
func ParseLanguage(s string) (Language, error) {
	l := Language(s)
	if err := l.Validate(); err != nil {
		return "", err
	}
	return l, nil
}

// ValidAmount reports whether a user-entered amount is usable. Amounts are
// stored as entered, so only values that cannot round-trip through storage
// are rejected.
func ValidAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}

// DecideState is the creation-time approval policy: a member with a family
// needs the head's sign-off, everyone else is approved outright.
func DecideState(role Role, familyID *FamilyID) ApprovalState {
	if role == RoleMember && familyID != nil {
		return StatePending
	}
	return StateApproved
}
