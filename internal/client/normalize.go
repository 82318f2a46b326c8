package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmynk/splitwiser-client/internal/models"
)

// The API is loosely typed: lists arrive bare or wrapped in an object,
// identifiers as id or _id, amounts as numbers or strings. The wire types
// below absorb those variations so nothing past this file has to.

type wireID struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
}

func (w wireID) value() string {
	if w.ID != "" {
		return w.ID
	}
	return w.LegacyID
}

type wireUser struct {
	wireID
	Name  string `json:"name"`
	Email string `json:"email"`
}

type wireMember struct {
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	User   *wireUser   `json:"user"`
}

type wireGroup struct {
	wireID
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	ImageURL string          `json:"imageUrl"`
	Icon     string          `json:"icon"`
	Members  json.RawMessage `json:"members"`
}

type wireSplit struct {
	UserID string           `json:"userId"`
	Amount models.Money     `json:"amount"`
	Type   models.SplitType `json:"type"`
}

type wireExpense struct {
	wireID
	GroupID     string           `json:"groupId"`
	Description string           `json:"description"`
	Amount      models.Money     `json:"amount"`
	PaidBy      string           `json:"paidBy"`
	CreatedBy   string           `json:"createdBy"`
	Splits      json.RawMessage  `json:"splits"`
	SplitType   models.SplitType `json:"splitType"`
	CreatedAt   string           `json:"createdAt"`
}

type wireSettlement struct {
	FromUserID string       `json:"fromUserId"`
	ToUserID   string       `json:"toUserId"`
	Amount     models.Money `json:"amount"`
}

var jsonNull = []byte("null")

// decodeList returns the elements of body, which is either a JSON array or an
// object holding the array under key. A missing or null list is empty.
func decodeList(body []byte, key string) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, jsonNull) {
		return nil, nil
	}

	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("invalid %s list: %w", key, err)
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("invalid %s response: %w", key, err)
		}
		raw := bytes.TrimSpace(obj[key])
		if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
			return nil, nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("invalid %s list: %w", key, err)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected %s response", key)
	}
}

// skip logs and counts a record dropped during normalization.
func (c *Client) skip(kind string, err error, attrs ...any) {
	c.logger.Warn("Dropping malformed "+kind, append(attrs, "error", err)...)
	c.metrics.RecordSkipped(kind)
}

func (c *Client) normalizeUser(raw json.RawMessage) (*models.User, error) {
	var w wireUser
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, fmt.Errorf("missing user")
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}
	if w.value() == "" {
		return nil, fmt.Errorf("user has no id")
	}
	return &models.User{ID: w.value(), Name: w.Name, Email: w.Email}, nil
}

func (c *Client) normalizeGroups(body []byte) ([]models.Group, error) {
	items, err := decodeList(body, "groups")
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(items))
	for i, raw := range items {
		var w wireGroup
		if err := json.Unmarshal(raw, &w); err != nil {
			c.skip("group", err, "index", i)
			continue
		}
		if w.value() == "" {
			c.skip("group", fmt.Errorf("missing id"), "index", i, "name", w.Name)
			continue
		}

		image := w.ImageURL
		if image == "" {
			image = w.Icon
		}
		g := models.Group{
			ID:       w.value(),
			Name:     w.Name,
			Currency: w.Currency,
			Icon:     models.IconFromImageURL(image),
		}
		if len(w.Members) > 0 {
			if g.Members, err = c.normalizeMembers(w.Members, g.ID); err != nil {
				c.skip("member list", err, "group_id", g.ID)
			}
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// normalizeMembers never returns nil members without an error, so callers
// can tell an empty group from an unavailable member list.
func (c *Client) normalizeMembers(body []byte, groupID string) ([]models.Member, error) {
	items, err := decodeList(body, "members")
	if err != nil {
		return nil, err
	}

	members := make([]models.Member, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, raw := range items {
		var w wireMember
		if err := json.Unmarshal(raw, &w); err != nil {
			c.skip("member", err, "group_id", groupID, "index", i)
			continue
		}

		m := models.Member{UserID: w.UserID, Role: w.Role, Name: w.Name, Email: w.Email}
		if w.User != nil {
			if m.UserID == "" {
				m.UserID = w.User.value()
			}
			if w.User.Name != "" {
				m.Name = w.User.Name
			}
			if w.User.Email != "" {
				m.Email = w.User.Email
			}
		}
		if m.UserID == "" {
			c.skip("member", fmt.Errorf("missing userId"), "group_id", groupID, "index", i)
			continue
		}
		if seen[m.UserID] {
			c.skip("member", fmt.Errorf("duplicate userId %s", m.UserID), "group_id", groupID)
			continue
		}
		seen[m.UserID] = true
		if m.Role == "" {
			m.Role = models.RoleMember
		}
		members = append(members, m)
	}
	return members, nil
}

// normalizeExpenses never returns nil expenses without an error.
func (c *Client) normalizeExpenses(body []byte, groupID string) ([]models.Expense, error) {
	items, err := decodeList(body, "expenses")
	if err != nil {
		return nil, err
	}

	expenses := make([]models.Expense, 0, len(items))
	for i, raw := range items {
		e, err := c.normalizeExpense(raw, groupID)
		if err != nil {
			c.skip("expense", err, "group_id", groupID, "index", i)
			continue
		}
		expenses = append(expenses, *e)
	}
	return expenses, nil
}

func (c *Client) normalizeExpense(raw json.RawMessage, groupID string) (*models.Expense, error) {
	var w wireExpense
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	e := &models.Expense{
		ID:          w.value(),
		GroupID:     w.GroupID,
		Description: w.Description,
		Amount:      w.Amount,
		PaidBy:      w.PaidBy,
		CreatedBy:   w.CreatedBy,
		SplitType:   w.SplitType,
	}
	if e.GroupID == "" {
		e.GroupID = groupID
	}
	if w.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, w.CreatedAt); err == nil {
			e.CreatedAt = t
		}
	}

	// Splits stay nil unless the server sent an array, so the balance
	// aggregator can tell a missing list from an empty one.
	splits := bytes.TrimSpace(w.Splits)
	if len(splits) > 0 && splits[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(splits, &items); err != nil {
			return nil, fmt.Errorf("invalid splits: %w", err)
		}
		e.Splits = make([]models.Split, 0, len(items))
		for i, item := range items {
			var s wireSplit
			if err := json.Unmarshal(item, &s); err != nil {
				c.skip("split", err, "expense_id", e.ID, "index", i)
				continue
			}
			e.Splits = append(e.Splits, models.Split{UserID: s.UserID, Amount: s.Amount, Type: s.Type})
		}
	}
	return e, nil
}

func (c *Client) normalizeSettlements(body []byte, groupID string) ([]models.Settlement, error) {
	items, err := decodeList(body, "optimizedSettlements")
	if err != nil {
		return nil, err
	}

	settlements := make([]models.Settlement, 0, len(items))
	for i, raw := range items {
		var w wireSettlement
		if err := json.Unmarshal(raw, &w); err != nil {
			c.skip("settlement", err, "group_id", groupID, "index", i)
			continue
		}
		if w.FromUserID == "" || w.ToUserID == "" {
			c.skip("settlement", fmt.Errorf("missing user"), "group_id", groupID, "index", i)
			continue
		}
		settlements = append(settlements, models.Settlement{FromUserID: w.FromUserID, ToUserID: w.ToUserID, Amount: w.Amount})
	}
	return settlements, nil
}
