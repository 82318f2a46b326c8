package client

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/splitwiser-client/internal/metrics"
	"github.com/mmynk/splitwiser-client/internal/models"
)

func newNormalizer() *Client {
	return &Client{logger: discardLogger()}
}

func TestNormalizeGroups(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantIDs []string
		wantErr bool
	}{
		{name: "wrapped", body: `{"groups":[{"_id":"g1","name":"Flat"},{"id":"g2","name":"Trip"}]}`, wantIDs: []string{"g1", "g2"}},
		{name: "bare array", body: `[{"_id":"g1"}]`, wantIDs: []string{"g1"}},
		{name: "null list", body: `{"groups":null}`, wantIDs: []string{}},
		{name: "missing key", body: `{}`, wantIDs: []string{}},
		{name: "element without id dropped", body: `[{"name":"orphan"},{"_id":"g2"}]`, wantIDs: []string{"g2"}},
		{name: "undecodable element dropped", body: `[{"_id":5},{"_id":"g2"}]`, wantIDs: []string{"g2"}},
		{name: "not a list", body: `"groups"`, wantErr: true},
		{name: "wrapped non-array", body: `{"groups":{"_id":"g1"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := newNormalizer().normalizeGroups([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(groups) != len(tt.wantIDs) {
				t.Fatalf("got %d groups, want %d", len(groups), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if groups[i].ID != id {
					t.Errorf("groups[%d].ID = %q, want %q", i, groups[i].ID, id)
				}
			}
		})
	}
}

func TestNormalizeGroups_Icon(t *testing.T) {
	body := `[
		{"_id":"g1","imageUrl":"🏠"},
		{"_id":"g2","imageUrl":"https://cdn.example.com/trip.png"},
		{"_id":"g3","icon":"✈️"},
		{"_id":"g4"}
	]`
	groups, err := newNormalizer().normalizeGroups([]byte(body))
	if err != nil {
		t.Fatalf("normalizeGroups failed: %v", err)
	}
	want := []models.GroupIcon{
		{Kind: models.IconEmoji, Value: "🏠"},
		{Kind: models.IconURL, Value: "https://cdn.example.com/trip.png"},
		{Kind: models.IconEmoji, Value: "✈️"},
		{},
	}
	for i, g := range groups {
		if g.Icon != want[i] {
			t.Errorf("group %s icon = %+v, want %+v", g.ID, g.Icon, want[i])
		}
	}
}

func TestNormalizeMembers(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantNames map[string]string
	}{
		{
			name:      "bare array with nested user",
			body:      `[{"userId":"A","role":"admin","user":{"name":"Alice","email":"a@x"}},{"userId":"B","user":{"name":"Bob"}}]`,
			wantNames: map[string]string{"A": "Alice", "B": "Bob"},
		},
		{
			name:      "wrapped with flat names",
			body:      `{"members":[{"userId":"A","name":"Alice"}]}`,
			wantNames: map[string]string{"A": "Alice"},
		},
		{
			name:      "user id from nested user",
			body:      `[{"user":{"_id":"C","name":"Carol"}}]`,
			wantNames: map[string]string{"C": "Carol"},
		},
		{
			name:      "missing and duplicate ids dropped",
			body:      `[{"name":"ghost"},{"userId":"A","name":"Alice"},{"userId":"A","name":"Again"}]`,
			wantNames: map[string]string{"A": "Alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members, err := newNormalizer().normalizeMembers([]byte(tt.body), "g1")
			if err != nil {
				t.Fatalf("normalizeMembers failed: %v", err)
			}
			if members == nil {
				t.Fatal("members must be non-nil on success")
			}
			if len(members) != len(tt.wantNames) {
				t.Fatalf("got %+v, want %v", members, tt.wantNames)
			}
			for _, m := range members {
				if tt.wantNames[m.UserID] != m.Name {
					t.Errorf("member %s name = %q, want %q", m.UserID, m.Name, tt.wantNames[m.UserID])
				}
				if m.Role == "" {
					t.Errorf("member %s has no role", m.UserID)
				}
			}
		})
	}
}

func TestNormalizeExpenses(t *testing.T) {
	body := `{"expenses":[
		{"_id":"e1","amount":"20.00","paidBy":"A","splits":[{"userId":"A","amount":10},{"userId":"B","amount":"10.00"}],"splitType":"equal","createdAt":"2024-05-01T10:00:00Z"},
		{"_id":"e2","amount":50,"paidBy":"A","splits":null},
		{"_id":"e3","amount":50,"createdBy":"B","splits":"broken"},
		{"_id":"e4","amount":"lots","paidBy":"A","splits":[]},
		{"_id":"e5","amount":12.345,"paidBy":"A","splits":[{"userId":"B","amount":{}},{"userId":"C","amount":1}]}
	]}`

	m := metrics.New()
	c := &Client{logger: discardLogger(), metrics: m}
	expenses, err := c.normalizeExpenses([]byte(body), "g1")
	if err != nil {
		t.Fatalf("normalizeExpenses failed: %v", err)
	}

	byID := make(map[string]models.Expense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}
	if _, ok := byID["e4"]; ok || len(expenses) != 4 {
		t.Fatalf("expected e4 dropped and 4 expenses kept, got %+v", expenses)
	}

	e1 := byID["e1"]
	if e1.Amount != 2000 || e1.GroupID != "g1" || len(e1.Splits) != 2 || e1.Splits[1].Amount != 1000 {
		t.Errorf("e1 = %+v", e1)
	}
	if e1.CreatedAt.IsZero() {
		t.Error("e1 createdAt not parsed")
	}
	if byID["e2"].Splits != nil {
		t.Errorf("null splits should stay nil, got %+v", byID["e2"].Splits)
	}
	if e3 := byID["e3"]; e3.Splits != nil || e3.Payer() != "B" {
		t.Errorf("e3 = %+v, want nil splits and createdBy payer", e3)
	}
	if e5 := byID["e5"]; e5.Amount != 1235 || len(e5.Splits) != 1 || e5.Splits[0].UserID != "C" {
		t.Errorf("e5 = %+v, want amount rounded to 12.35 and the bad split dropped", e5)
	}

	// One series per dropped kind: the expense and the split.
	if n, err := testutil.GatherAndCount(m.Registry, "splitwiser_skipped_records_total"); err != nil || n != 2 {
		t.Errorf("skipped series = %d (err %v), want 2", n, err)
	}
}

func TestNormalizeExpenses_OutOfRangeAmounts(t *testing.T) {
	body := `[
		{"_id":"huge","amount":1e18,"paidBy":"A","splits":[]},
		{"_id":"ok","amount":10,"paidBy":"A","splits":[{"userId":"B","amount":"-1e18"},{"userId":"C","amount":10}]}
	]`

	c := &Client{logger: discardLogger(), metrics: metrics.New()}
	expenses, err := c.normalizeExpenses([]byte(body), "g1")
	if err != nil {
		t.Fatalf("normalizeExpenses failed: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != "ok" {
		t.Fatalf("expected only the in-range expense, got %+v", expenses)
	}
	if splits := expenses[0].Splits; len(splits) != 1 || splits[0].UserID != "C" {
		t.Errorf("splits = %+v, want only C", splits)
	}
}

func TestNormalizeSettlements(t *testing.T) {
	body := `{"optimizedSettlements":[
		{"fromUserId":"B","toUserId":"A","amount":15.5},
		{"fromUserId":"","toUserId":"A","amount":1},
		{"fromUserId":"C","toUserId":"A","amount":"2.25"}
	]}`
	settlements, err := newNormalizer().normalizeSettlements([]byte(body), "g1")
	if err != nil {
		t.Fatalf("normalizeSettlements failed: %v", err)
	}
	want := []models.Settlement{
		{FromUserID: "B", ToUserID: "A", Amount: 1550},
		{FromUserID: "C", ToUserID: "A", Amount: 225},
	}
	if len(settlements) != len(want) {
		t.Fatalf("settlements = %+v, want %+v", settlements, want)
	}
	for i := range want {
		if settlements[i] != want[i] {
			t.Errorf("settlements[%d] = %+v, want %+v", i, settlements[i], want[i])
		}
	}
}
