package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser-client/internal/models"
)

// parseList splits a comma-separated flag value, dropping blanks.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseWeights parses "alice=2,bob=1.5" into per-participant weights.
func parseWeights(s string) (map[string]decimal.Decimal, error) {
	weights := make(map[string]decimal.Decimal)
	for _, pair := range parseList(s) {
		id, value, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid weight %q, want participant=value", pair)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", id, err)
		}
		if _, dup := weights[id]; dup {
			return nil, fmt.Errorf("weight for %s given twice", id)
		}
		weights[id] = d
	}
	return weights, nil
}

// participantsFromWeights returns the participants named in s, in order.
func participantsFromWeights(s string) []string {
	var ids []string
	for _, pair := range parseList(s) {
		if id, _, ok := strings.Cut(pair, "="); ok {
			ids = append(ids, strings.TrimSpace(id))
		}
	}
	return ids
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// describeBalance phrases a signed balance from the current user's side.
func describeBalance(m models.Money) string {
	switch {
	case m > 0:
		return "owes you " + m.String()
	case m < 0:
		return "you owe " + m.Abs().String()
	default:
		return "settled up"
	}
}

func iconLabel(icon models.GroupIcon) string {
	switch icon.Kind {
	case models.IconEmoji:
		return icon.Value
	case models.IconURL:
		return "[img]"
	default:
		return " "
	}
}

func printSplits(w io.Writer, splits []models.Split) {
	tw := newTable(w)
	fmt.Fprintln(tw, "PARTICIPANT\tAMOUNT")
	var total models.Money
	for _, s := range splits {
		fmt.Fprintf(tw, "%s\t%s\n", s.UserID, s.Amount)
		total += s.Amount
	}
	fmt.Fprintf(tw, "TOTAL\t%s\n", total)
	tw.Flush()
}

func printFriendBalances(w io.Writer, balances []models.FriendBalance) {
	if len(balances) == 0 {
		fmt.Fprintln(w, "No balances yet.")
		return
	}
	tw := newTable(w)
	for _, b := range balances {
		fmt.Fprintf(tw, "%s\t%s\n", b.Name, describeBalance(b.NetBalance))
		for _, g := range b.Groups {
			name := g.GroupName
			if name == "" {
				name = g.GroupID
			}
			fmt.Fprintf(tw, "  %s\t%s\n", name, describeBalance(g.Balance))
		}
	}
	tw.Flush()
}
