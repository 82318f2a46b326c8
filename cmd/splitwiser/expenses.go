package main

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/splitwiser-client/internal/calculator"
	"github.com/mmynk/splitwiser-client/internal/models"
	"github.com/mmynk/splitwiser-client/internal/service"
)

// splitFlags are shared by split and add-expense.
type splitFlags struct {
	amount       string
	method       string
	participants string
	weights      string
}

func (f *splitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.amount, "amount", "", "total amount, e.g. 42.50 (required)")
	cmd.Flags().StringVar(&f.method, "method", "equal", "equal, exact, percentage or shares")
	cmd.Flags().StringVar(&f.participants, "participants", "", "comma-separated participant IDs; the first absorbs rounding")
	cmd.Flags().StringVar(&f.weights, "weights", "", "per-participant values, e.g. alice=2,bob=1")
	cmd.MarkFlagRequired("amount")
}

// parse returns the amount, method, participants and weights. Participants
// default to the order the weights were given in.
func (f *splitFlags) parse() (models.Money, models.SplitType, []string, map[string]decimal.Decimal, error) {
	amount, err := models.ParseMoney(f.amount)
	if err != nil {
		return 0, "", nil, nil, err
	}
	method, err := calculator.ParseSplitType(f.method)
	if err != nil {
		return 0, "", nil, nil, err
	}
	weights, err := parseWeights(f.weights)
	if err != nil {
		return 0, "", nil, nil, err
	}
	if method != models.SplitEqual && len(weights) == 0 {
		return 0, "", nil, nil, fmt.Errorf("--weights is required for the %s method", method)
	}

	participants := parseList(f.participants)
	if len(participants) == 0 && method != models.SplitEqual {
		participants = participantsFromWeights(f.weights)
	}
	return amount, method, participants, weights, nil
}

func splitCmd() *cobra.Command {
	var f splitFlags

	cmd := &cobra.Command{
		Use:   "split",
		Short: "compute how an amount splits between participants, without recording it",
		Example: `splitwiser split --amount 10 --participants alice,bob,charlie
splitwiser split --amount 90 --method shares --weights alice=2,bob=1
splitwiser split --amount 100 --method percentage --weights alice=60,bob=40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, method, participants, weights, err := f.parse()
			if err != nil {
				return err
			}
			if len(participants) == 0 {
				return errors.New("--participants is required for the equal method")
			}
			splits, err := calculator.ComputeSplits(amount, method, participants, weights)
			if err != nil {
				return err
			}
			printSplits(cmd.OutOrStdout(), splits)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func addExpenseCmd(flags *globalFlags) *cobra.Command {
	var f splitFlags
	var groupID, description, paidBy string

	cmd := &cobra.Command{
		Use:   "add-expense",
		Short: "record an expense in a group",
		Example: `splitwiser add-expense --group 64f1c0 --description Dinner --amount 60
splitwiser add-expense --group 64f1c0 --description Rent --amount 1500 --method shares --weights alice=2,bob=1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, method, participants, weights, err := f.parse()
			if err != nil {
				return err
			}
			return withApp(flags, func(a *app) error {
				ctx := cmd.Context()
				userID, err := a.resume(ctx)
				if err != nil {
					return err
				}
				if paidBy == "" {
					paidBy = userID
				}

				expense, err := a.expenses.AddExpense(ctx, service.AddExpenseRequest{
					GroupID:      groupID,
					Description:  description,
					Amount:       amount,
					PaidBy:       paidBy,
					Method:       method,
					Participants: participants,
					Weights:      weights,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %q (%s) for %s\n", expense.Description, expense.ID, expense.Amount)
				printSplits(out, expense.Splits)
				return nil
			})
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&groupID, "group", "", "group ID (required)")
	cmd.Flags().StringVar(&description, "description", "", "what the expense was for (required)")
	cmd.Flags().StringVar(&paidBy, "paid-by", "", "payer user ID (default: you)")
	cmd.MarkFlagRequired("group")
	cmd.MarkFlagRequired("description")
	return cmd
}
