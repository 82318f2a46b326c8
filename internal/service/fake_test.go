package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mmynk/splitwiser-client/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI serves canned group data and records created expenses.
type fakeAPI struct {
	mu sync.Mutex

	groups      []models.Group
	groupsErr   error
	members     map[string][]models.Member
	expenses    map[string][]models.Expense
	settlements map[string][]models.Settlement
	errs        map[string]error // keyed by "members:<id>", "expenses:<id>", "settlements:<id>", "create"

	created   []*models.NewExpense
	listCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		members:     make(map[string][]models.Member),
		expenses:    make(map[string][]models.Expense),
		settlements: make(map[string][]models.Settlement),
		errs:        make(map[string]error),
	}
}

func (f *fakeAPI) addGroup(id string, memberIDs ...string) {
	f.groups = append(f.groups, models.Group{ID: id, Name: "Group " + id})
	members := make([]models.Member, 0, len(memberIDs))
	for _, m := range memberIDs {
		members = append(members, models.Member{UserID: m, Name: "Name " + m, Role: models.RoleMember})
	}
	f.members[id] = members
	f.expenses[id] = []models.Expense{}
}

func (f *fakeAPI) err(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[key]
}

func (f *fakeAPI) ListGroups(context.Context) ([]models.Group, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return append([]models.Group(nil), f.groups...), nil
}

func (f *fakeAPI) ListMembers(_ context.Context, groupID string) ([]models.Member, error) {
	if err := f.err("members:" + groupID); err != nil {
		return nil, err
	}
	members, ok := f.members[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s not found", groupID)
	}
	return members, nil
}

func (f *fakeAPI) ListExpenses(_ context.Context, groupID string) ([]models.Expense, error) {
	if err := f.err("expenses:" + groupID); err != nil {
		return nil, err
	}
	return f.expenses[groupID], nil
}

func (f *fakeAPI) CreateExpense(_ context.Context, groupID string, expense *models.NewExpense) (*models.Expense, error) {
	if err := f.err("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, expense)
	return &models.Expense{
		ID:          fmt.Sprintf("e%d", len(f.created)),
		GroupID:     groupID,
		Description: expense.Description,
		Amount:      expense.Amount,
		PaidBy:      expense.PaidBy,
		Splits:      expense.Splits,
		SplitType:   expense.SplitType,
	}, nil
}

func (f *fakeAPI) OptimizeSettlements(_ context.Context, groupID string) ([]models.Settlement, error) {
	if err := f.err("settlements:" + groupID); err != nil {
		return nil, err
	}
	return f.settlements[groupID], nil
}
