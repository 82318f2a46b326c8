package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/mmynk/splitwiser-client/internal/models"
)

// ListGroups returns the current user's groups. Members are included only
// when the server embeds them; use ListMembers for the authoritative list.
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	data, err := c.do(ctx, &request{method: http.MethodGet, path: "/groups", route: "/groups"})
	if err != nil {
		return nil, err
	}
	return c.normalizeGroups(data)
}

// ListMembers returns the members of a group.
func (c *Client) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	data, err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   groupPath(groupID, "members"),
		route:  "/groups/{id}/members",
	})
	if err != nil {
		return nil, err
	}
	return c.normalizeMembers(data, groupID)
}

// ListExpenses returns a group's expense history. Malformed expenses are
// dropped; expenses without a usable split list keep nil Splits.
func (c *Client) ListExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	data, err := c.do(ctx, &request{
		method: http.MethodGet,
		path:   groupPath(groupID, "expenses"),
		route:  "/groups/{id}/expenses",
	})
	if err != nil {
		return nil, err
	}
	return c.normalizeExpenses(data, groupID)
}

// CreateExpense records an expense. The expense is validated before it is
// sent. When idempotency keys are enabled the request carries one and may
// be retried after a transient failure; otherwise it is sent once.
func (c *Client) CreateExpense(ctx context.Context, groupID string, expense *models.NewExpense) (*models.Expense, error) {
	if err := expense.Validate(); err != nil {
		return nil, fmt.Errorf("invalid expense: %w", err)
	}

	r := &request{
		method: http.MethodPost,
		path:   groupPath(groupID, "expenses"),
		route:  "/groups/{id}/expenses",
		body:   expense,
	}
	if c.cfg.IdempotencyKeys {
		r.idempotencyKey = uuid.NewString()
	}

	data, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}

	// Some deployments wrap the created expense as {"expense": {...}}.
	var wrapped struct {
		Expense json.RawMessage `json:"expense"`
	}
	if json.Unmarshal(data, &wrapped) == nil && len(wrapped.Expense) > 0 {
		data = wrapped.Expense
	}
	created, err := c.normalizeExpense(data, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to decode created expense: %w", err)
	}
	return created, nil
}

// OptimizeSettlements asks the server for the minimal set of transfers that
// settles a group. The call has no side effects, so it is retried like a GET.
func (c *Client) OptimizeSettlements(ctx context.Context, groupID string) ([]models.Settlement, error) {
	data, err := c.do(ctx, &request{
		method: http.MethodPost,
		path:   groupPath(groupID, "settlements", "optimize"),
		route:  "/groups/{id}/settlements/optimize",
		body:   struct{}{},
		safe:   true,
	})
	if err != nil {
		return nil, err
	}
	return c.normalizeSettlements(data, groupID)
}

func groupPath(groupID string, parts ...string) string {
	p := "/groups/" + url.PathEscape(groupID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}
