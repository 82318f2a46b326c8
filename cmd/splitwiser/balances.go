package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwiser-client/internal/calculator"
	"github.com/mmynk/splitwiser-client/internal/models"
	"github.com/mmynk/splitwiser-client/internal/storage"
)

func groupsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "list your groups and whether you are settled up in each",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				ctx := cmd.Context()
				userID, err := a.resume(ctx)
				if err != nil {
					return err
				}
				groups, statuses, err := a.balances.GroupStatuses(ctx, userID)
				if err != nil {
					return err
				}

				if len(groups) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "You are not in any group yet.")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "\tGROUP\tID\tSTATUS")
				for i, g := range groups {
					status := "settled"
					if s := statuses[i]; !s.IsSettled {
						status = describeNet(s.NetBalance)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", iconLabel(g.Icon), g.Name, g.ID, status)
				}
				return tw.Flush()
			})
		},
	}
}

func balancesCmd(flags *globalFlags) *cobra.Command {
	var offline bool
	var watch time.Duration

	cmd := &cobra.Command{
		Use:     "balances",
		Short:   "show net balances with each friend across all groups",
		Example: "splitwiser balances\nsplitwiser balances --offline\nsplitwiser balances --watch 1m --metrics-addr :9090",
		RunE: func(cmd *cobra.Command, args []string) error {
			if offline && watch > 0 {
				return errors.New("--offline and --watch cannot be combined")
			}
			return withApp(flags, func(a *app) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()

				if offline {
					return showOfflineBalances(ctx, cmd, a)
				}

				userID, err := a.resume(ctx)
				if err != nil {
					return err
				}
				for {
					balances, err := a.balances.FriendBalances(ctx, userID)
					if err != nil {
						return err
					}
					printFriendBalances(cmd.OutOrStdout(), balances)
					if watch <= 0 {
						return nil
					}

					select {
					case <-ctx.Done():
						return nil
					case <-time.After(watch):
						fmt.Fprintf(cmd.OutOrStdout(), "\n-- %s --\n", time.Now().Format(time.Kitchen))
					}
				}
			})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "use the last fetched data instead of the API")
	cmd.Flags().DurationVar(&watch, "watch", 0, "refresh at this interval until interrupted")
	return cmd
}

// showOfflineBalances needs the user ID without a network round trip, so it
// reads the ID from the most recent access token when one is cached, and
// otherwise resumes the session.
func showOfflineBalances(ctx context.Context, cmd *cobra.Command, a *app) error {
	userID, err := a.sessions.CurrentUserID()
	if err != nil {
		if userID, err = a.resume(ctx); err != nil {
			return fmt.Errorf("offline balances need a session to identify you: %w", err)
		}
	}
	balances, fetchedAt, err := a.balances.OfflineFriendBalances(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved balances. Run `splitwiser balances` while online first.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "As of %s\n", fetchedAt.Format(time.RFC1123))
	printFriendBalances(cmd.OutOrStdout(), balances)
	return nil
}

func settlementsCmd(flags *globalFlags) *cobra.Command {
	var groupID, canRemove string

	cmd := &cobra.Command{
		Use:     "settlements",
		Short:   "show the transfers that would settle a group",
		Example: "splitwiser settlements --group 64f1c0\nsplitwiser settlements --group 64f1c0 --can-remove bob-id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(a *app) error {
				ctx := cmd.Context()
				userID, err := a.resume(ctx)
				if err != nil {
					return err
				}

				if canRemove != "" {
					ok, err := a.balances.CanRemoveMember(ctx, groupID, canRemove)
					if err != nil {
						return err
					}
					if ok {
						fmt.Fprintf(cmd.OutOrStdout(), "%s has no unsettled balance and can be removed.\n", canRemove)
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "%s has unsettled balances and cannot be removed yet.\n", canRemove)
					}
					return nil
				}

				members, err := a.api.ListMembers(ctx, groupID)
				if err != nil {
					return err
				}
				group := models.Group{ID: groupID, Members: members}
				settlements, err := a.api.OptimizeSettlements(ctx, groupID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(settlements) == 0 {
					fmt.Fprintln(out, "Everyone is settled up.")
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "FROM\tTO\tAMOUNT")
				for _, s := range settlements {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", group.MemberName(s.FromUserID), group.MemberName(s.ToUserID), s.Amount)
				}
				tw.Flush()

				status := calculator.SettlementStatus(groupID, settlements, userID)
				if status.IsSettled {
					fmt.Fprintln(out, "You are settled up in this group.")
				} else {
					fmt.Fprintf(out, "Your position: %s\n", describeNet(status.NetBalance))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "group ID (required)")
	cmd.Flags().StringVar(&canRemove, "can-remove", "", "check whether this member can be removed")
	cmd.MarkFlagRequired("group")
	return cmd
}

func crosscheckCmd(flags *globalFlags) *cobra.Command {
	var tolerance string

	cmd := &cobra.Command{
		Use:   "crosscheck",
		Short: "compare balances from expense history with the server's settlements",
		RunE: func(cmd *cobra.Command, args []string) error {
			tol, err := models.ParseMoney(tolerance)
			if err != nil {
				return err
			}
			return withApp(flags, func(a *app) error {
				ctx := cmd.Context()
				userID, err := a.resume(ctx)
				if err != nil {
					return err
				}
				discrepancies, err := a.balances.CrossCheck(ctx, userID, tol)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(discrepancies) == 0 {
					fmt.Fprintln(out, "Expense history and settlements agree.")
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "GROUP\tFROM EXPENSES\tFROM SETTLEMENTS")
				for _, d := range discrepancies {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", d.GroupID, d.Local, d.Server)
				}
				tw.Flush()
				fmt.Fprintln(out, "Differences usually mean payments were recorded outside the expense history.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tolerance, "tolerance", "0.01", "ignore differences up to this amount")
	return cmd
}

func describeNet(m models.Money) string {
	switch {
	case m > 0:
		return "you are owed " + m.String()
	case m < 0:
		return "you owe " + m.Abs().String()
	default:
		return "settled up"
	}
}
