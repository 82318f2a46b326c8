package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitwiser-client/internal/calculator"
	"github.com/mmynk/splitwiser-client/internal/client"
	"github.com/mmynk/splitwiser-client/internal/models"
	"github.com/mmynk/splitwiser-client/internal/storage"
)

// BalanceService computes balances from the API or from the last snapshot.
type BalanceService struct {
	api         GroupAPI
	snapshots   storage.SnapshotStore
	concurrency int
	logger      *slog.Logger
}

// NewBalanceService creates a balance service. concurrency bounds the
// per-group fetches in flight. A nil snapshots store disables offline
// balances.
func NewBalanceService(api GroupAPI, snapshots storage.SnapshotStore, concurrency int, logger *slog.Logger) *BalanceService {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceService{api: api, snapshots: snapshots, concurrency: concurrency, logger: logger}
}

// fatal reports whether err must abort a multi-group operation instead of
// only degrading one group.
func fatal(err error) bool {
	return errors.Is(err, client.ErrSessionExpired) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// GroupDetails fetches every group with its members and expense history.
// A group whose members or expenses cannot be fetched keeps nil lists, which
// the balance aggregator skips; only an expired session fails the call.
func (s *BalanceService) GroupDetails(ctx context.Context) ([]models.GroupDetails, error) {
	groups, err := s.api.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	details := make([]models.GroupDetails, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range groups {
		details[i].Group = groups[i]
		details[i].Members = nil

		g.Go(func() error {
			id := groups[i].ID
			members, err := s.api.ListMembers(gctx, id)
			if err != nil {
				if fatal(err) {
					return err
				}
				s.logger.Warn("Failed to fetch members, skipping group", "group_id", id, "error", err)
				return nil
			}
			expenses, err := s.api.ListExpenses(gctx, id)
			if err != nil {
				if fatal(err) {
					return err
				}
				s.logger.Warn("Failed to fetch expenses, skipping group", "group_id", id, "error", err)
				return nil
			}
			details[i].Members = members
			details[i].Expenses = expenses
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

// FriendBalances fetches all groups and folds them into per-counterparty
// balances for userID. The fetched groups are saved as the user's snapshot.
func (s *BalanceService) FriendBalances(ctx context.Context, userID string) ([]models.FriendBalance, error) {
	details, err := s.GroupDetails(ctx)
	if err != nil {
		return nil, err
	}

	if s.snapshots != nil {
		snapshot := &storage.Snapshot{UserID: userID, Groups: details}
		if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			s.logger.Warn("Failed to save snapshot", "user_id", userID, "error", err)
		}
	}

	balances := calculator.AggregateBalances(details, userID)
	s.logger.Info("Balances computed", "user_id", userID, "groups", len(details), "counterparties", len(balances))
	return balances, nil
}

// OfflineFriendBalances computes balances from the last snapshot and
// returns when it was fetched.
func (s *BalanceService) OfflineFriendBalances(ctx context.Context, userID string) ([]models.FriendBalance, time.Time, error) {
	if s.snapshots == nil {
		return nil, time.Time{}, storage.ErrNotFound
	}
	snapshot, err := s.snapshots.LoadSnapshot(ctx, userID)
	if err != nil {
		return nil, time.Time{}, err
	}
	return calculator.AggregateBalances(snapshot.Groups, userID), snapshot.FetchedAt, nil
}

// fetchSettlements runs the server's settlement optimization for every
// group concurrently. Groups whose optimization failed are absent from the
// result.
func (s *BalanceService) fetchSettlements(ctx context.Context, groups []models.Group) (map[string][]models.Settlement, error) {
	var mu sync.Mutex
	result := make(map[string][]models.Settlement, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, group := range groups {
		g.Go(func() error {
			settlements, err := s.api.OptimizeSettlements(gctx, group.ID)
			if err != nil {
				if fatal(err) {
					return err
				}
				s.logger.Warn("Failed to fetch settlements", "group_id", group.ID, "error", err)
				return nil
			}
			mu.Lock()
			result[group.ID] = settlements
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// GroupStatuses lists the groups and reports for each whether userID has
// pending transfers. statuses[i] belongs to groups[i]. A group whose
// settlements cannot be fetched is reported as settled.
func (s *BalanceService) GroupStatuses(ctx context.Context, userID string) ([]models.Group, []models.GroupSettlementStatus, error) {
	groups, err := s.api.ListGroups(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list groups: %w", err)
	}
	settlements, err := s.fetchSettlements(ctx, groups)
	if err != nil {
		return nil, nil, err
	}

	statuses := make([]models.GroupSettlementStatus, 0, len(groups))
	for _, g := range groups {
		statuses = append(statuses, calculator.SettlementStatus(g.ID, settlements[g.ID], userID))
	}
	return groups, statuses, nil
}

// SettlementBalances builds the friend view from the server's optimized
// settlements instead of the expense history.
func (s *BalanceService) SettlementBalances(ctx context.Context, userID string) ([]models.FriendBalance, error) {
	groups, err := s.api.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	settlements, err := s.fetchSettlements(ctx, groups)
	if err != nil {
		return nil, err
	}
	return calculator.AggregateSettlements(settlements, groups, userID), nil
}

// CrossCheck compares balances summed from expense history against the
// server's settlements, per group. Groups missing either side are left out.
func (s *BalanceService) CrossCheck(ctx context.Context, userID string, tolerance models.Money) ([]calculator.Discrepancy, error) {
	details, err := s.GroupDetails(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(details))
	for _, d := range details {
		if d.Members != nil && d.Expenses != nil {
			groups = append(groups, d.Group)
		}
	}
	settlements, err := s.fetchSettlements(ctx, groups)
	if err != nil {
		return nil, err
	}

	checked := make([]models.GroupDetails, 0, len(details))
	for _, d := range details {
		if _, ok := settlements[d.ID]; ok {
			checked = append(checked, d)
		}
	}

	local := calculator.AggregateBalances(checked, userID)
	server := calculator.AggregateSettlements(settlements, groups, userID)
	discrepancies := calculator.CrossCheck(local, server, tolerance)
	if len(discrepancies) > 0 {
		s.logger.Warn("Local balances disagree with server settlements", "user_id", userID, "groups", len(discrepancies))
	}
	return discrepancies, nil
}

// CanRemoveMember reports whether memberID has no pending transfers in the
// group. Members with unsettled balances must not be removed.
func (s *BalanceService) CanRemoveMember(ctx context.Context, groupID, memberID string) (bool, error) {
	settlements, err := s.api.OptimizeSettlements(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("failed to check balances for group %s: %w", groupID, err)
	}
	return !calculator.HasUnsettledBalance(settlements, memberID), nil
}
