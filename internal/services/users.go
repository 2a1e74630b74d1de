package services

import (
	"context"
	"fmt"

	"hisobchi/internal/core"
	"hisobchi/internal/storage"
)

// Users handles the preference surface: language selection creates the user
// row implicitly, the first-time flag drives the welcome message.
type Users struct {
	store *storage.Repository
}

func NewUsers(store *storage.Repository) *Users {
	return &Users{store: store}
}

func (u *Users) SetLanguage(ctx context.Context, userID core.UserID, lang core.Language) error {
	if err := lang.Validate(); err != nil {
		return err
	}
	if err := u.store.SetLanguage(ctx, userID, lang); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

func (u *Users) Language(ctx context.Context, userID core.UserID) (core.Language, error) {
	return u.store.Language(ctx, userID)
}

func (u *Users) IsFirstTime(ctx context.Context, userID core.UserID) (bool, error) {
	return u.store.IsFirstTime(ctx, userID)
}

func (u *Users) MarkGreeted(ctx context.Context, userID core.UserID) error {
	return u.store.MarkGreeted(ctx, userID)
}

// Get returns the combined preference and registry view of a user.
func (u *Users) Get(ctx context.Context, userID core.UserID) (core.User, error) {
	return u.store.GetUser(ctx, userID)
}
