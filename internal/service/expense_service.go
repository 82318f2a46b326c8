package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser-client/internal/calculator"
	"github.com/mmynk/splitwiser-client/internal/models"
)

// AddExpenseRequest describes an expense before its splits are computed.
type AddExpenseRequest struct {
	GroupID     string
	Description string
	Amount      models.Money
	PaidBy      string
	Method      models.SplitType

	// Participants in remainder order. Empty means every group member.
	Participants []string

	// Weights per participant: amounts for exact, percentages for
	// percentage, share counts for shares. Ignored for equal.
	Weights map[string]decimal.Decimal
}

// ExpenseService records expenses.
type ExpenseService struct {
	api    GroupAPI
	logger *slog.Logger
}

// NewExpenseService creates an expense service.
func NewExpenseService(api GroupAPI, logger *slog.Logger) *ExpenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{api: api, logger: logger}
}

// AddExpense checks that the payer and participants belong to the group,
// computes the splits and posts the expense.
func (s *ExpenseService) AddExpense(ctx context.Context, req AddExpenseRequest) (*models.Expense, error) {
	s.logger.Info("AddExpense request received",
		"group_id", req.GroupID,
		"amount", req.Amount,
		"method", req.Method,
		"participants_count", len(req.Participants),
	)

	req.Description = strings.TrimSpace(req.Description)
	if req.GroupID == "" {
		return nil, fmt.Errorf("%w: group is required", ErrInvalidInput)
	}
	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}

	members, err := s.api.ListMembers(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}
	group := models.Group{ID: req.GroupID, Members: members}

	if !group.HasMember(req.PaidBy) {
		return nil, fmt.Errorf("%w: payer %q", ErrNotMember, req.PaidBy)
	}
	participants := req.Participants
	if len(participants) == 0 {
		for _, m := range members {
			participants = append(participants, m.UserID)
		}
	}
	for _, p := range participants {
		if !group.HasMember(p) {
			return nil, fmt.Errorf("%w: participant %q", ErrNotMember, p)
		}
	}

	splits, err := calculator.ComputeSplits(req.Amount, req.Method, participants, req.Weights)
	if err != nil {
		return nil, err
	}

	expense, err := s.api.CreateExpense(ctx, req.GroupID, &models.NewExpense{
		Description: req.Description,
		Amount:      req.Amount,
		PaidBy:      req.PaidBy,
		Splits:      splits,
		SplitType:   req.Method,
	})
	if err != nil {
		s.logger.Error("AddExpense failed", "group_id", req.GroupID, "error", err)
		return nil, err
	}

	s.logger.Info("Expense created", "group_id", req.GroupID, "expense_id", expense.ID)
	return expense, nil
}
