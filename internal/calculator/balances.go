package calculator

import (
	"log/slog"

	"github.com/mmynk/splitwiser-client/internal/models"
)

// balanceSheet accumulates per-counterparty balances in first-seen order.
type balanceSheet struct {
	order    []string
	friends  map[string]*models.FriendBalance
	groupIdx map[string]map[string]int // counterparty -> group ID -> index in Groups
}

func newBalanceSheet() *balanceSheet {
	return &balanceSheet{
		friends:  make(map[string]*models.FriendBalance),
		groupIdx: make(map[string]map[string]int),
	}
}

func (b *balanceSheet) add(counterparty, name string, group *models.Group, amount models.Money) {
	f, ok := b.friends[counterparty]
	if !ok {
		f = &models.FriendBalance{CounterpartyUserID: counterparty, Name: name}
		b.friends[counterparty] = f
		b.groupIdx[counterparty] = make(map[string]int)
		b.order = append(b.order, counterparty)
	}
	if f.Name == "" || f.Name == "Unknown" {
		f.Name = name
	}

	idx, ok := b.groupIdx[counterparty][group.ID]
	if !ok {
		f.Groups = append(f.Groups, models.GroupBalance{GroupID: group.ID, GroupName: group.Name})
		idx = len(f.Groups) - 1
		b.groupIdx[counterparty][group.ID] = idx
	}
	f.Groups[idx].Balance += amount
	f.NetBalance += amount
}

func (b *balanceSheet) result() []models.FriendBalance {
	out := make([]models.FriendBalance, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.friends[id])
	}
	return out
}

// AggregateBalances folds the expense history of every group into net
// balances between currentUserID and each counterparty.
//
// Only splits that link the current user to another member count: when the
// current user paid, each other participant owes their split; when someone
// else paid, the current user owes the payer their own split. Expenses
// without a payer or without a split list are skipped, as are split entries
// with no user or a non-positive amount. A malformed group never affects the
// balances computed from other groups.
func AggregateBalances(groups []models.GroupDetails, currentUserID string) []models.FriendBalance {
	if currentUserID == "" {
		slog.Warn("AggregateBalances called without a current user")
		return []models.FriendBalance{}
	}

	sheet := newBalanceSheet()
	for i := range groups {
		foldGroup(sheet, &groups[i], currentUserID)
	}
	return sheet.result()
}

func foldGroup(sheet *balanceSheet, group *models.GroupDetails, currentUserID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Skipping group after unexpected failure", "group_id", group.ID, "panic", r)
		}
	}()

	if group.ID == "" || group.Members == nil || group.Expenses == nil {
		slog.Warn("Invalid group data, skipping", "group_id", group.ID, "name", group.Name)
		return
	}

	for i := range group.Expenses {
		foldExpense(sheet, &group.Group, &group.Expenses[i], currentUserID)
	}
}

func foldExpense(sheet *balanceSheet, group *models.Group, expense *models.Expense, currentUserID string) {
	payerID := expense.Payer()
	if payerID == "" || expense.Splits == nil {
		slog.Warn("Skipping malformed expense", "group_id", group.ID, "expense_id", expense.ID)
		return
	}
	payerIsMe := payerID == currentUserID

	for _, split := range expense.Splits {
		if split.UserID == "" || split.Amount <= 0 || split.UserID == payerID {
			continue
		}
		memberIsMe := split.UserID == currentUserID

		switch {
		case payerIsMe && !memberIsMe:
			sheet.add(split.UserID, group.MemberName(split.UserID), group, split.Amount)
		case !payerIsMe && memberIsMe:
			sheet.add(payerID, group.MemberName(payerID), group, -split.Amount)
		}
	}
}
