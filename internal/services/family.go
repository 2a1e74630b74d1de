package services

import (
	"context"
	"fmt"
	"strings"

	"hisobchi/internal/core"
	"hisobchi/internal/storage"
)

// Families is the registry surface: creating a family, joining one, and the
// lookups the other components build on.
type Families struct {
	store *storage.Repository
}

func NewFamilies(store *storage.Repository) *Families {
	return &Families{store: store}
}

// Create allocates a family and makes the creator its head. A creator already
// in another family is simply moved; the old family keeps existing.
func (f *Families) Create(ctx context.Context, name string, headID core.UserID) (core.Family, error) {
	if strings.TrimSpace(name) == "" {
		return core.Family{}, core.ErrEmptyFamilyName
	}
	id, err := f.store.CreateFamily(ctx, name, headID)
	if err != nil {
		return core.Family{}, fmt.Errorf("create family: %w", err)
	}
	return core.Family{ID: id, Name: name, HeadID: headID}, nil
}

// Join links a user to an existing family as a member. The family must exist.
func (f *Families) Join(ctx context.Context, userID core.UserID, familyID core.FamilyID) error {
	exists, err := f.store.FamilyExists(ctx, familyID)
	if err != nil {
		return fmt.Errorf("check family: %w", err)
	}
	if !exists {
		return core.ErrFamilyNotFound
	}
	if err := f.store.JoinFamily(ctx, userID, familyID); err != nil {
		return fmt.Errorf("join family: %w", err)
	}
	return nil
}

// HeadID resolves the head of a family.
func (f *Families) HeadID(ctx context.Context, familyID core.FamilyID) (core.UserID, error) {
	return f.store.HeadID(ctx, familyID)
}

// FamilyOf returns the user's family reference, nil when unaffiliated.
func (f *Families) FamilyOf(ctx context.Context, userID core.UserID) (*core.FamilyID, error) {
	return f.store.FamilyOf(ctx, userID)
}

// Role returns the user's role, RoleNone for unknown users.
func (f *Families) Role(ctx context.Context, userID core.UserID) (core.Role, error) {
	return f.store.Role(ctx, userID)
}
