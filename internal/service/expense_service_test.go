package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser-client/internal/calculator"
	"github.com/mmynk/splitwiser-client/internal/models"
)

func TestExpenseService_AddExpense(t *testing.T) {
	tests := []struct {
		name       string
		req        AddExpenseRequest
		wantErr    error
		wantSplits []models.Split
	}{
		{
			name: "equal split over all members by default",
			req: AddExpenseRequest{
				GroupID: "g1", Description: "Groceries", Amount: 1000, PaidBy: "A", Method: models.SplitEqual,
			},
			wantSplits: []models.Split{{UserID: "A", Amount: 334}, {UserID: "B", Amount: 333}, {UserID: "C", Amount: 333}},
		},
		{
			name: "shares among chosen participants",
			req: AddExpenseRequest{
				GroupID: "g1", Description: "Taxi", Amount: 900, PaidBy: "B", Method: models.SplitShares,
				Participants: []string{"A", "B"},
				Weights:      map[string]decimal.Decimal{"A": decimal.NewFromInt(2), "B": decimal.NewFromInt(1)},
			},
			wantSplits: []models.Split{{UserID: "A", Amount: 600}, {UserID: "B", Amount: 300}},
		},
		{
			name:    "payer outside the group",
			req:     AddExpenseRequest{GroupID: "g1", Description: "x", Amount: 100, PaidBy: "Z", Method: models.SplitEqual},
			wantErr: ErrNotMember,
		},
		{
			name: "participant outside the group",
			req: AddExpenseRequest{
				GroupID: "g1", Description: "x", Amount: 100, PaidBy: "A", Method: models.SplitEqual,
				Participants: []string{"A", "Z"},
			},
			wantErr: ErrNotMember,
		},
		{
			name:    "missing description",
			req:     AddExpenseRequest{GroupID: "g1", Description: "  ", Amount: 100, PaidBy: "A", Method: models.SplitEqual},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "non-positive amount",
			req:     AddExpenseRequest{GroupID: "g1", Description: "x", Amount: 0, PaidBy: "A", Method: models.SplitEqual},
			wantErr: calculator.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			api.addGroup("g1", "A", "B", "C")
			svc := NewExpenseService(api, discardLogger())

			created, err := svc.AddExpense(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if len(api.created) != 0 {
					t.Error("nothing should be posted on validation failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("AddExpense failed: %v", err)
			}
			if len(api.created) != 1 {
				t.Fatalf("expected one posted expense, got %d", len(api.created))
			}
			posted := api.created[0]
			if posted.SplitType != tt.req.Method || posted.PaidBy != tt.req.PaidBy {
				t.Errorf("posted = %+v", posted)
			}
			if len(posted.Splits) != len(tt.wantSplits) {
				t.Fatalf("splits = %+v, want %+v", posted.Splits, tt.wantSplits)
			}
			for i, s := range tt.wantSplits {
				if posted.Splits[i].UserID != s.UserID || posted.Splits[i].Amount != s.Amount {
					t.Errorf("split %d = %+v, want %+v", i, posted.Splits[i], s)
				}
			}
			if created.SplitTotal() != tt.req.Amount {
				t.Errorf("created splits sum to %s, want %s", created.SplitTotal(), tt.req.Amount)
			}
		})
	}
}

func TestExpenseService_AddExpense_APIError(t *testing.T) {
	api := newFakeAPI()
	api.addGroup("g1", "A", "B")
	api.errs["create"] = errors.New("bad gateway")

	_, err := NewExpenseService(api, discardLogger()).AddExpense(context.Background(), AddExpenseRequest{
		GroupID: "g1", Description: "Dinner", Amount: 500, PaidBy: "A", Method: models.SplitEqual,
	})
	if err == nil {
		t.Fatal("expected error from API")
	}
}
