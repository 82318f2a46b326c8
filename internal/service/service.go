// Package service orchestrates the REST client, the calculator and local
// storage into the operations the CLI exposes.
package service

import (
	"context"
	"errors"

	"github.com/mmynk/splitwiser-client/internal/models"
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotMember    = errors.New("user is not a member of the group")
)

// GroupAPI is the part of the REST client used for group data.
type GroupAPI interface {
	ListGroups(ctx context.Context) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	ListExpenses(ctx context.Context, groupID string) ([]models.Expense, error)
	CreateExpense(ctx context.Context, groupID string, expense *models.NewExpense) (*models.Expense, error)
	OptimizeSettlements(ctx context.Context, groupID string) ([]models.Settlement, error)
}

// SessionAPI is the part of the REST client used for authentication.
type SessionAPI interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Signup(ctx context.Context, name, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
}
