package calculator

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser-client/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amounts(splits []models.Split) []models.Money {
	out := make([]models.Money, len(splits))
	for i, s := range splits {
		out[i] = s.Amount
	}
	return out
}

func total(splits []models.Split) models.Money {
	var t models.Money
	for _, s := range splits {
		t += s.Amount
	}
	return t
}

func TestComputeSplits(t *testing.T) {
	tests := []struct {
		name         string
		amount       models.Money
		method       models.SplitType
		participants []string
		weights      map[string]decimal.Decimal
		wantErr      bool
		validateFunc func(t *testing.T, splits []models.Split)
	}{
		{
			name:         "equal split of 10.00 among three gives the extra cent to the first",
			amount:       1000,
			method:       models.SplitEqual,
			participants: []string{"alice", "bob", "charlie"},
			validateFunc: func(t *testing.T, splits []models.Split) {
				want := []models.Money{334, 333, 333}
				if got := amounts(splits); !reflect.DeepEqual(got, want) {
					t.Errorf("amounts = %v, want %v", got, want)
				}
				if splits[0].UserID != "alice" {
					t.Errorf("first split user = %s, want alice", splits[0].UserID)
				}
			},
		},
		{
			name:         "equal split remainder follows participant order",
			amount:       1000,
			method:       models.SplitEqual,
			participants: []string{"charlie", "alice", "bob"},
			validateFunc: func(t *testing.T, splits []models.Split) {
				if splits[0].UserID != "charlie" || splits[0].Amount != 334 {
					t.Errorf("first split = %+v, want charlie with 3.34", splits[0])
				}
			},
		},
		{
			name:         "single participant takes everything",
			amount:       1999,
			method:       models.SplitEqual,
			participants: []string{"alice"},
			validateFunc: func(t *testing.T, splits []models.Split) {
				if len(splits) != 1 || splits[0].Amount != 1999 {
					t.Errorf("splits = %+v, want one split of 19.99", splits)
				}
			},
		},
		{
			name:         "shares split weighted 2:1",
			amount:       900,
			method:       models.SplitShares,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("2"), "bob": dec("1")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				want := []models.Money{600, 300}
				if got := amounts(splits); !reflect.DeepEqual(got, want) {
					t.Errorf("amounts = %v, want %v", got, want)
				}
			},
		},
		{
			name:         "zero shares are excluded",
			amount:       1000,
			method:       models.SplitShares,
			participants: []string{"alice", "bob", "charlie"},
			weights:      map[string]decimal.Decimal{"alice": dec("1"), "bob": dec("0"), "charlie": dec("1")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				for _, s := range splits {
					if s.UserID == "bob" {
						t.Errorf("bob has zero shares but appears in %+v", splits)
					}
				}
				if len(splits) != 2 {
					t.Errorf("len(splits) = %d, want 2", len(splits))
				}
			},
		},
		{
			name:         "fractional shares are rejected",
			amount:       1000,
			method:       models.SplitShares,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("1.5"), "bob": dec("1")},
			wantErr:      true,
		},
		{
			name:         "all shares zero",
			amount:       1000,
			method:       models.SplitShares,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("0"), "bob": dec("0")},
			wantErr:      true,
		},
		{
			name:         "percentage split with thirds",
			amount:       10000,
			method:       models.SplitPercentage,
			participants: []string{"alice", "bob", "charlie"},
			weights:      map[string]decimal.Decimal{"alice": dec("33.333"), "bob": dec("33.333"), "charlie": dec("33.334")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				if got := total(splits); got != 10000 {
					t.Errorf("total = %s, want 100.00", got)
				}
			},
		},
		{
			name:         "percentage at 99.995 is within tolerance",
			amount:       10000,
			method:       models.SplitPercentage,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("50"), "bob": dec("49.995")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				if got := total(splits); got != 10000 {
					t.Errorf("total = %s, want 100.00", got)
				}
			},
		},
		{
			name:         "percentage at 99.5 fails",
			amount:       10000,
			method:       models.SplitPercentage,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("50"), "bob": dec("49.5")},
			wantErr:      true,
		},
		{
			name:         "percentage at 100.5 fails",
			amount:       10000,
			method:       models.SplitPercentage,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("50"), "bob": dec("50.5")},
			wantErr:      true,
		},
		{
			name:         "exact amounts are kept",
			amount:       2500,
			method:       models.SplitExact,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("10.25"), "bob": dec("14.75")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				want := []models.Money{1025, 1475}
				if got := amounts(splits); !reflect.DeepEqual(got, want) {
					t.Errorf("amounts = %v, want %v", got, want)
				}
			},
		},
		{
			name:         "exact amounts one cent short are reconciled",
			amount:       1000,
			method:       models.SplitExact,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("5"), "bob": dec("4.99")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				if got := total(splits); got != 1000 {
					t.Errorf("total = %s, want 10.00", got)
				}
			},
		},
		{
			name:         "exact amounts off by more than tolerance",
			amount:       1000,
			method:       models.SplitExact,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("5"), "bob": dec("4")},
			wantErr:      true,
		},
		{
			name:         "exact amount rounding to zero is dropped and surplus cent taken in order",
			amount:       1001,
			method:       models.SplitExact,
			participants: []string{"a", "b", "c"},
			weights:      map[string]decimal.Decimal{"a": dec("0.004"), "b": dec("5.005"), "c": dec("5.005")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				want := []models.Split{
					{UserID: "b", Amount: 500, Type: models.SplitExact},
					{UserID: "c", Amount: 501, Type: models.SplitExact},
				}
				if !reflect.DeepEqual(splits, want) {
					t.Errorf("splits = %+v, want %+v", splits, want)
				}
			},
		},
		{
			name:         "exact half cents never move a participant more than one cent",
			amount:       1000,
			method:       models.SplitExact,
			participants: []string{"a", "b", "c", "d"},
			weights:      map[string]decimal.Decimal{"a": dec("2.505"), "b": dec("2.505"), "c": dec("2.495"), "d": dec("2.495")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				want := []models.Money{250, 250, 250, 250}
				if got := amounts(splits); !reflect.DeepEqual(got, want) {
					t.Errorf("amounts = %v, want %v", got, want)
				}
			},
		},
		{
			name:         "exact missing cents are added in participant order",
			amount:       1000,
			method:       models.SplitExact,
			participants: []string{"a", "b", "c", "d"},
			weights:      map[string]decimal.Decimal{"a": dec("2.494"), "b": dec("2.494"), "c": dec("2.504"), "d": dec("2.504")},
			validateFunc: func(t *testing.T, splits []models.Split) {
				want := []models.Money{250, 250, 250, 250}
				if got := amounts(splits); !reflect.DeepEqual(got, want) {
					t.Errorf("amounts = %v, want %v", got, want)
				}
			},
		},
		{
			name:         "exact amounts that all round to zero",
			amount:       1,
			method:       models.SplitExact,
			participants: []string{"a", "b"},
			weights:      map[string]decimal.Decimal{"a": dec("0.004"), "b": dec("0.004")},
			wantErr:      true,
		},
		{
			name:         "negative weight is rejected",
			amount:       1000,
			method:       models.SplitExact,
			participants: []string{"alice", "bob"},
			weights:      map[string]decimal.Decimal{"alice": dec("15"), "bob": dec("-5")},
			wantErr:      true,
		},
		{
			name:         "zero amount",
			amount:       0,
			method:       models.SplitEqual,
			participants: []string{"alice"},
			wantErr:      true,
		},
		{
			name:         "no participants",
			amount:       1000,
			method:       models.SplitEqual,
			participants: []string{},
			wantErr:      true,
		},
		{
			name:         "duplicate participants",
			amount:       1000,
			method:       models.SplitEqual,
			participants: []string{"alice", "alice"},
			wantErr:      true,
		},
		{
			name:         "unknown method",
			amount:       1000,
			method:       models.SplitType("itemized"),
			participants: []string{"alice"},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := ComputeSplits(tt.amount, tt.method, tt.participants, tt.weights)
			if (err != nil) != tt.wantErr {
				t.Errorf("ComputeSplits() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got := total(splits); got != tt.amount {
				t.Errorf("total = %s, want %s", got, tt.amount)
			}
			for _, s := range splits {
				if s.Amount < 0 {
					t.Errorf("negative split %+v", s)
				}
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, splits)
			}
		})
	}
}

func TestComputeSplits_ErrorKinds(t *testing.T) {
	if _, err := ComputeSplits(-100, models.SplitEqual, []string{"a"}, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := ComputeSplits(100, models.SplitEqual, nil, nil); !errors.Is(err, ErrInvalidParticipants) {
		t.Errorf("no participants: got %v, want ErrInvalidParticipants", err)
	}

	_, err := ComputeSplits(10000, models.SplitPercentage, []string{"a", "b"},
		map[string]decimal.Decimal{"a": dec("60"), "b": dec("60")})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("percentage mismatch: got %v, want *ValidationError", err)
	}
	if vErr.Message != "splits do not sum to total" {
		t.Errorf("message = %q", vErr.Message)
	}
}

// Every method must allocate the whole amount, to the cent, for any group size.
func TestComputeSplits_Completeness(t *testing.T) {
	amountsUnderTest := []models.Money{1, 7, 100, 1000, 3333, 9999, 123457}

	for n := 1; n <= 50; n++ {
		participants := make([]string, n)
		shares := make(map[string]decimal.Decimal, n)
		percents := make(map[string]decimal.Decimal, n)
		for i := range participants {
			id := fmt.Sprintf("user-%d", i)
			participants[i] = id
			shares[id] = decimal.NewFromInt(int64(i%3 + 1))
		}
		// n-1 participants get floor(100/n) percent, the last takes the rest.
		base := decimal.NewFromInt(100).DivRound(decimal.NewFromInt(int64(n)), 3)
		rest := decimal.NewFromInt(100)
		for i, id := range participants {
			if i == n-1 {
				percents[id] = rest
				break
			}
			percents[id] = base
			rest = rest.Sub(base)
		}

		for _, amount := range amountsUnderTest {
			methods := map[models.SplitType]map[string]decimal.Decimal{
				models.SplitEqual:      nil,
				models.SplitShares:     shares,
				models.SplitPercentage: percents,
			}
			for method, weights := range methods {
				splits, err := ComputeSplits(amount, method, participants, weights)
				if err != nil {
					t.Fatalf("n=%d amount=%s method=%s: %v", n, amount, method, err)
				}
				if got := total(splits); got != amount {
					t.Errorf("n=%d amount=%s method=%s: total = %s", n, amount, method, got)
				}
			}

			exact := make(map[string]decimal.Decimal, n)
			per := amount / models.Money(n)
			for i, id := range participants {
				m := per
				if i == 0 {
					m += amount - per*models.Money(n)
				}
				exact[id] = m.Decimal()
			}
			splits, err := ComputeSplits(amount, models.SplitExact, participants, exact)
			if err != nil {
				t.Fatalf("n=%d amount=%s exact: %v", n, amount, err)
			}
			if got := total(splits); got != amount {
				t.Errorf("n=%d amount=%s exact: total = %s", n, amount, got)
			}
		}
	}
}

func TestComputeSplits_Idempotent(t *testing.T) {
	weights := map[string]decimal.Decimal{"a": dec("3"), "b": dec("2"), "c": dec("2")}
	first, err := ComputeSplits(1001, models.SplitShares, []string{"a", "b", "c"}, weights)
	if err != nil {
		t.Fatalf("ComputeSplits failed: %v", err)
	}
	second, err := ComputeSplits(1001, models.SplitShares, []string{"a", "b", "c"}, weights)
	if err != nil {
		t.Fatalf("ComputeSplits failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestParseSplitType(t *testing.T) {
	for _, s := range []string{"equal", "exact", "percentage", "shares"} {
		if _, err := ParseSplitType(s); err != nil {
			t.Errorf("ParseSplitType(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseSplitType("items"); err == nil {
		t.Error("expected error for unknown method")
	}
}
