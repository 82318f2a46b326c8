package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser-client/internal/models"
)

var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidParticipants = errors.New("must have at least one participant")
)

// ValidationError reports split input that is internally inconsistent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// tolerance is how far exact amounts or percentages may drift from their
// target before the split is rejected.
var tolerance = decimal.New(1, -2)

var hundredPercent = decimal.NewFromInt(100)

// ParseSplitType converts a user-supplied method name.
func ParseSplitType(s string) (models.SplitType, error) {
	t := models.SplitType(s)
	if !t.Valid() {
		return "", &ValidationError{Field: "method", Message: fmt.Sprintf("unknown split method %q", s)}
	}
	return t, nil
}

// ComputeSplits divides amount among participants using method.
//
// weights is ignored for equal splits. For exact splits it holds each
// participant's amount in currency units, for percentage splits each
// participant's percentage, and for shares splits each participant's integer
// share count. Participants with a zero or missing weight are left out of the
// result.
//
// Equal, percentage and shares splits floor every ideal share to the cent and
// hand the leftover cents, one each, to participants in input order. The
// returned amounts always sum to amount exactly.
func ComputeSplits(amount models.Money, method models.SplitType, participants []string, weights map[string]decimal.Decimal) ([]models.Split, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := checkParticipants(participants); err != nil {
		return nil, err
	}

	switch method {
	case models.SplitEqual:
		w := make([]decimal.Decimal, len(participants))
		for i := range w {
			w[i] = decimal.NewFromInt(1)
		}
		return weightedSplit(amount, method, participants, w), nil

	case models.SplitShares:
		ids, w, err := includedWeights(participants, weights, "shares")
		if err != nil {
			return nil, err
		}
		for i, share := range w {
			if !share.IsInteger() {
				return nil, &ValidationError{Field: "shares", Message: fmt.Sprintf("share for %s must be a whole number", ids[i])}
			}
		}
		return weightedSplit(amount, method, ids, w), nil

	case models.SplitPercentage:
		ids, w, err := includedWeights(participants, weights, "percentage")
		if err != nil {
			return nil, err
		}
		if sum(w).Sub(hundredPercent).Abs().GreaterThan(tolerance) {
			return nil, &ValidationError{Field: "percentage", Message: "splits do not sum to total"}
		}
		return weightedSplit(amount, method, ids, w), nil

	case models.SplitExact:
		ids, w, err := includedWeights(participants, weights, "exact")
		if err != nil {
			return nil, err
		}
		if sum(w).Sub(amount.Decimal()).Abs().GreaterThan(tolerance) {
			return nil, &ValidationError{Field: "exact", Message: "splits do not sum to total"}
		}
		return exactSplit(amount, ids, w)
	}

	return nil, &ValidationError{Field: "method", Message: fmt.Sprintf("unknown split method %q", method)}
}

func checkParticipants(participants []string) error {
	if len(participants) == 0 {
		return ErrInvalidParticipants
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == "" {
			return fmt.Errorf("%w: empty participant id", ErrInvalidParticipants)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate participant %s", ErrInvalidParticipants, p)
		}
		seen[p] = true
	}
	return nil
}

// includedWeights returns the participants with a positive weight, in input order.
func includedWeights(participants []string, weights map[string]decimal.Decimal, field string) ([]string, []decimal.Decimal, error) {
	ids := make([]string, 0, len(participants))
	w := make([]decimal.Decimal, 0, len(participants))
	for _, p := range participants {
		v, ok := weights[p]
		if !ok || v.IsZero() {
			continue
		}
		if v.IsNegative() {
			return nil, nil, &ValidationError{Field: field, Message: fmt.Sprintf("value for %s must not be negative", p)}
		}
		ids = append(ids, p)
		w = append(w, v)
	}
	if len(ids) == 0 {
		return nil, nil, ErrInvalidParticipants
	}
	return ids, w, nil
}

// weightedSplit floors amount*w/sum(w) to the cent for each participant and
// distributes the remaining cents in participant order.
func weightedSplit(amount models.Money, method models.SplitType, ids []string, w []decimal.Decimal) []models.Split {
	total := sum(w)
	cents := decimal.NewFromInt(amount.Cents())

	splits := make([]models.Split, len(ids))
	var allocated models.Money
	for i, id := range ids {
		q, _ := cents.Mul(w[i]).QuoRem(total, 0)
		share := models.Money(q.IntPart())
		splits[i] = models.Split{UserID: id, Amount: share, Type: method}
		allocated += share
	}

	// Flooring leaves strictly fewer than len(ids) cents unassigned.
	remainder := amount - allocated
	for i := 0; remainder > 0; i = (i + 1) % len(splits) {
		splits[i].Amount += models.Cent
		remainder -= models.Cent
	}
	return splits
}

// exactSplit keeps caller amounts, rounded to the cent. Participants whose
// amount rounds to zero are left out. Rounding each amount separately can
// leave the total a few cents off: missing cents are added one per
// participant in input order, and surplus cents are taken the same way from
// participants who keep at least one cent.
func exactSplit(amount models.Money, ids []string, w []decimal.Decimal) ([]models.Split, error) {
	splits := make([]models.Split, 0, len(ids))
	var allocated models.Money
	for i, id := range ids {
		m, err := models.MoneyFromDecimal(w[i])
		if err != nil {
			return nil, &ValidationError{Field: "exact", Message: fmt.Sprintf("amount for %s: %v", id, err)}
		}
		if m <= 0 {
			continue
		}
		splits = append(splits, models.Split{UserID: id, Amount: m, Type: models.SplitExact})
		allocated += m
	}
	if len(splits) == 0 {
		return nil, fmt.Errorf("%w: every exact amount rounds to zero", ErrInvalidParticipants)
	}

	leftover := amount - allocated
	for i := 0; leftover > 0; i = (i + 1) % len(splits) {
		splits[i].Amount += models.Cent
		leftover -= models.Cent
	}
	for leftover < 0 {
		taken := false
		for i := range splits {
			if leftover == 0 {
				break
			}
			if splits[i].Amount > models.Cent {
				splits[i].Amount -= models.Cent
				leftover += models.Cent
				taken = true
			}
		}
		if !taken {
			return nil, &ValidationError{Field: "exact", Message: "splits do not sum to total"}
		}
	}
	return splits, nil
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
