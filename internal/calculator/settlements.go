package calculator

import (
	"sort"

	"github.com/mmynk/splitwiser-client/internal/models"
)

// SettlementStatus reports whether userID has any pending transfer in a
// group's optimized settlements, and the net amount owed to them.
func SettlementStatus(groupID string, settlements []models.Settlement, userID string) models.GroupSettlementStatus {
	status := models.GroupSettlementStatus{GroupID: groupID, IsSettled: true}
	for _, s := range settlements {
		switch userID {
		case s.ToUserID:
			status.NetBalance += s.Amount
			status.IsSettled = false
		case s.FromUserID:
			status.NetBalance -= s.Amount
			status.IsSettled = false
		}
	}
	return status
}

// HasUnsettledBalance reports whether userID takes part in any transfer.
// Members with unsettled balances must not be removed from a group.
func HasUnsettledBalance(settlements []models.Settlement, userID string) bool {
	for _, s := range settlements {
		if s.FromUserID == userID || s.ToUserID == userID {
			return true
		}
	}
	return false
}

// AggregateSettlements builds the friend balance view from server-computed
// settlements, keyed by group ID. Transfers that do not involve
// currentUserID are ignored. groups supplies names and members; groups
// missing from it still contribute, with an empty name.
func AggregateSettlements(settlements map[string][]models.Settlement, groups []models.Group, currentUserID string) []models.FriendBalance {
	sheet := newBalanceSheet()
	if currentUserID == "" {
		return sheet.result()
	}

	// Walk groups in the caller's order so the output is deterministic.
	seen := make(map[string]bool, len(groups))
	ordered := make([]models.Group, 0, len(settlements))
	for _, g := range groups {
		if _, ok := settlements[g.ID]; ok && !seen[g.ID] {
			ordered = append(ordered, g)
			seen[g.ID] = true
		}
	}
	var unknown []string
	for id := range settlements {
		if !seen[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		ordered = append(ordered, models.Group{ID: id})
	}

	for i := range ordered {
		g := &ordered[i]
		for _, s := range settlements[g.ID] {
			if s.Amount <= 0 || s.FromUserID == s.ToUserID {
				continue
			}
			switch currentUserID {
			case s.ToUserID:
				sheet.add(s.FromUserID, g.MemberName(s.FromUserID), g, s.Amount)
			case s.FromUserID:
				sheet.add(s.ToUserID, g.MemberName(s.ToUserID), g, -s.Amount)
			}
		}
	}
	return sheet.result()
}

// Discrepancy is a group where the locally summed balance for the current
// user disagrees with the server's settlements.
type Discrepancy struct {
	GroupID string
	Local   models.Money
	Server  models.Money
}

// CrossCheck compares the current user's per-group position derived from
// local expense history against the one derived from server settlements.
// Differences within tolerance are ignored. Local balances do not include
// recorded settlement payments, so a discrepancy is a hint for the UI rather
// than an error.
func CrossCheck(local, server []models.FriendBalance, tol models.Money) []Discrepancy {
	localByGroup, order := groupTotals(local, nil)
	serverByGroup, order := groupTotals(server, order)

	var out []Discrepancy
	for _, id := range order {
		l, s := localByGroup[id], serverByGroup[id]
		if (l - s).Abs() > tol {
			out = append(out, Discrepancy{GroupID: id, Local: l, Server: s})
		}
	}
	return out
}

func groupTotals(balances []models.FriendBalance, order []string) (map[string]models.Money, []string) {
	totals := make(map[string]models.Money)
	known := make(map[string]bool, len(order))
	for _, id := range order {
		known[id] = true
	}
	for _, f := range balances {
		for _, g := range f.Groups {
			totals[g.GroupID] += g.Balance
			if !known[g.GroupID] {
				known[g.GroupID] = true
				order = append(order, g.GroupID)
			}
		}
	}
	return totals, order
}
