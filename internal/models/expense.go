package models

import (
	"fmt"
	"time"
)

// SplitType is the method used to divide an expense among participants.
type SplitType string

const (
	SplitEqual      SplitType = "equal"
	SplitExact      SplitType = "exact"
	SplitPercentage SplitType = "percentage"
	SplitShares     SplitType = "shares"
)

// Valid reports whether t is one of the known split methods.
func (t SplitType) Valid() bool {
	switch t {
	case SplitEqual, SplitExact, SplitPercentage, SplitShares:
		return true
	}
	return false
}

// Split is one participant's owed portion of an expense.
// Participants excluded from an expense have no Split at all.
type Split struct {
	UserID string    `json:"userId"`
	Amount Money     `json:"amount"`
	Type   SplitType `json:"type,omitempty"`
}

// Expense is a shared expense within a group.
type Expense struct {
	// ID is the server-assigned identifier.
	ID string `json:"id"`

	GroupID     string `json:"groupId"`
	Description string `json:"description"`
	Amount      Money  `json:"amount"`

	// PaidBy is the member who paid. Older records only carry CreatedBy,
	// which is used as the payer when PaidBy is empty.
	PaidBy    string `json:"paidBy,omitempty"`
	CreatedBy string `json:"createdBy,omitempty"`

	// Splits is nil when the server sent no usable split list.
	Splits    []Split   `json:"splits"`
	SplitType SplitType `json:"splitType"`
	CreatedAt time.Time `json:"createdAt"`
}

// Payer returns PaidBy, falling back to CreatedBy.
func (e *Expense) Payer() string {
	if e.PaidBy != "" {
		return e.PaidBy
	}
	return e.CreatedBy
}

// SplitTotal sums the split amounts.
func (e *Expense) SplitTotal() Money {
	var total Money
	for _, s := range e.Splits {
		total += s.Amount
	}
	return total
}

// NewExpense is the request body for POST /groups/{id}/expenses.
type NewExpense struct {
	Description string    `json:"description"`
	Amount      Money     `json:"amount"`
	PaidBy      string    `json:"paidBy,omitempty"`
	Splits      []Split   `json:"splits"`
	SplitType   SplitType `json:"splitType"`
}

// Validate checks the invariants the server relies on.
func (n *NewExpense) Validate() error {
	if n.Description == "" {
		return fmt.Errorf("description is required")
	}
	if n.Amount <= 0 {
		return fmt.Errorf("amount must be positive, got %s", n.Amount)
	}
	if !n.SplitType.Valid() {
		return fmt.Errorf("unknown split type %q", n.SplitType)
	}
	var total Money
	for _, s := range n.Splits {
		if s.UserID == "" {
			return fmt.Errorf("split without a user")
		}
		if s.Amount < 0 {
			return fmt.Errorf("split for %s is negative: %s", s.UserID, s.Amount)
		}
		total += s.Amount
	}
	if total != n.Amount {
		return fmt.Errorf("splits sum to %s, expense amount is %s", total, n.Amount)
	}
	return nil
}
