package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"goaltrack/internal/core"

	"github.com/google/uuid"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "goaltrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestGoal(targetCents int64) core.Goal {
	return core.Goal{
		ID:           uuid.NewString(),
		OwnerID:      "owner-1",
		Name:         "Vacation fund",
		TargetAmount: core.Money{Cents: targetCents},
		CreatedAt:    time.Now().UTC(),
	}
}

func newDeposit(goalID string, amountCents int64, at time.Time) core.Transaction {
	return core.Transaction{
		ID:        uuid.NewString(),
		GoalID:    goalID,
		Amount:    core.Money{Cents: amountCents},
		CreatedAt: at,
	}
}

func TestCreateAndGetGoal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal := newTestGoal(100000)
	if err := repo.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	got, err := repo.GetGoal(ctx, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if got.ID != goal.ID || got.OwnerID != goal.OwnerID || got.Name != goal.Name {
		t.Errorf("GetGoal returned %+v, want %+v", got, goal)
	}
	if got.TargetAmount.Cents != 100000 || got.CurrentAmount.Cents != 0 {
		t.Errorf("amounts = target %d current %d, want 100000 and 0",
			got.TargetAmount.Cents, got.CurrentAmount.Cents)
	}
	if got.Completed || got.CompletionDate != nil {
		t.Errorf("new goal must not be completed: %+v", got)
	}
}

func TestGetGoalNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetGoal(context.Background(), uuid.NewString())
	if !errors.Is(err, core.ErrGoalNotFound) {
		t.Errorf("GetGoal on missing id = %v, want ErrGoalNotFound", err)
	}
}

func TestListGoals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mine := newTestGoal(10000)
	theirs := newTestGoal(20000)
	theirs.OwnerID = "owner-2"

	for _, g := range []core.Goal{mine, theirs} {
		if err := repo.CreateGoal(ctx, g); err != nil {
			t.Fatalf("CreateGoal: %v", err)
		}
	}

	all, err := repo.ListGoals(ctx, "")
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListGoals(all) = %d goals, want 2", len(all))
	}

	filtered, err := repo.ListGoals(ctx, "owner-2")
	if err != nil {
		t.Fatalf("ListGoals filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != theirs.ID {
		t.Errorf("ListGoals(owner-2) = %+v, want only %s", filtered, theirs.ID)
	}
}

func TestApplyDepositAccumulates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal := newTestGoal(100000)
	if err := repo.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	updated, completedNow, err := repo.ApplyDeposit(ctx, newDeposit(goal.ID, 30000, time.Now().UTC()))
	if err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}
	if completedNow {
		t.Error("partial deposit reported a completion transition")
	}
	if updated.CurrentAmount.Cents != 30000 {
		t.Errorf("current = %d, want 30000", updated.CurrentAmount.Cents)
	}

	updated, _, err = repo.ApplyDeposit(ctx, newDeposit(goal.ID, 20000, time.Now().UTC()))
	if err != nil {
		t.Fatalf("second ApplyDeposit: %v", err)
	}
	if updated.CurrentAmount.Cents != 50000 {
		t.Errorf("current after second deposit = %d, want 50000", updated.CurrentAmount.Cents)
	}
}

func TestApplyDepositCompletesGoalOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal := newTestGoal(50000)
	if err := repo.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	completedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	updated, completedNow, err := repo.ApplyDeposit(ctx, newDeposit(goal.ID, 60000, completedAt))
	if err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}
	if !completedNow || !updated.Completed {
		t.Fatal("crossing the target must complete the goal")
	}
	if updated.CompletionDate == nil || !updated.CompletionDate.Equal(completedAt) {
		t.Errorf("completion date = %v, want %v", updated.CompletionDate, completedAt)
	}

	// Over-funding after completion must not move the completion date.
	later, completedAgain, err := repo.ApplyDeposit(ctx, newDeposit(goal.ID, 1000, completedAt.Add(time.Hour)))
	if err != nil {
		t.Fatalf("over-fund ApplyDeposit: %v", err)
	}
	if completedAgain {
		t.Error("deposit on a completed goal reported another transition")
	}
	if later.CurrentAmount.Cents != 61000 {
		t.Errorf("over-funded current = %d, want 61000", later.CurrentAmount.Cents)
	}
	if later.CompletionDate == nil || !later.CompletionDate.Equal(completedAt) {
		t.Errorf("completion date moved to %v, want %v", later.CompletionDate, completedAt)
	}
}

func TestApplyDepositUnknownGoal(t *testing.T) {
	repo := newTestRepo(t)

	_, _, err := repo.ApplyDeposit(context.Background(), newDeposit(uuid.NewString(), 100, time.Now()))
	if !errors.Is(err, core.ErrGoalNotFound) {
		t.Errorf("ApplyDeposit on missing goal = %v, want ErrGoalNotFound", err)
	}
}

func TestListTransactionsOrderedOldestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal := newTestGoal(100000)
	if err := repo.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	// Insert newest first to prove ordering comes from created_at.
	for _, offset := range []int{2, 0, 1} {
		_, _, err := repo.ApplyDeposit(ctx, newDeposit(goal.ID, 1000, base.AddDate(0, 0, offset)))
		if err != nil {
			t.Fatalf("ApplyDeposit: %v", err)
		}
	}

	txs, err := repo.ListTransactions(ctx, goal.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("ListTransactions = %d rows, want 3", len(txs))
	}
	for i := 1; i < len(txs); i++ {
		if txs[i].CreatedAt.Before(txs[i-1].CreatedAt) {
			t.Errorf("transactions out of order at %d: %v before %v", i, txs[i].CreatedAt, txs[i-1].CreatedAt)
		}
	}
}

func TestDeleteGoalCascadesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal := newTestGoal(100000)
	if err := repo.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, _, err := repo.ApplyDeposit(ctx, newDeposit(goal.ID, 1000, time.Now().UTC())); err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}

	if err := repo.DeleteGoal(ctx, goal.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}

	if _, err := repo.GetGoal(ctx, goal.ID); !errors.Is(err, core.ErrGoalNotFound) {
		t.Errorf("GetGoal after delete = %v, want ErrGoalNotFound", err)
	}

	txs, err := repo.ListTransactions(ctx, goal.ID)
	if err != nil {
		t.Fatalf("ListTransactions after delete: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("expected cascade to remove transactions, found %d", len(txs))
	}

	if err := repo.DeleteGoal(ctx, goal.ID); !errors.Is(err, core.ErrGoalNotFound) {
		t.Errorf("second DeleteGoal = %v, want ErrGoalNotFound", err)
	}
}

func TestPendingReportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal := newTestGoal(1000)
	if err := repo.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	if reports, err := repo.GetPendingReports(ctx, 10); err != nil || len(reports) != 0 {
		t.Fatalf("GetPendingReports before completion = %v, %v; want empty", reports, err)
	}

	if _, _, err := repo.ApplyDeposit(ctx, newDeposit(goal.ID, 1000, time.Now().UTC())); err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}

	reports, err := repo.GetPendingReports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingReports: %v", err)
	}
	if len(reports) != 1 || reports[0].GoalID != goal.ID {
		t.Fatalf("GetPendingReports = %+v, want the completed goal", reports)
	}
	if reports[0].CurrentAmount.Cents != 1000 {
		t.Errorf("report current = %d, want 1000", reports[0].CurrentAmount.Cents)
	}

	if err := repo.MarkReportSynced(ctx, goal.ID); err != nil {
		t.Fatalf("MarkReportSynced: %v", err)
	}
	if reports, err := repo.GetPendingReports(ctx, 10); err != nil || len(reports) != 0 {
		t.Errorf("GetPendingReports after sync = %v, %v; want empty", reports, err)
	}
}

func TestMarkReportErrorGivesUpAfterMaxAttempts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal := newTestGoal(1000)
	if err := repo.CreateGoal(ctx, goal); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, _, err := repo.ApplyDeposit(ctx, newDeposit(goal.ID, 1000, time.Now().UTC())); err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}

	// First failure keeps the report pending, the second reaches the limit.
	if err := repo.MarkReportError(ctx, goal.ID, 2); err != nil {
		t.Fatalf("MarkReportError: %v", err)
	}
	reports, err := repo.GetPendingReports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingReports: %v", err)
	}
	if len(reports) != 1 || reports[0].Attempts != 1 {
		t.Fatalf("after one failure: %+v, want pending with 1 attempt", reports)
	}

	if err := repo.MarkReportError(ctx, goal.ID, 2); err != nil {
		t.Fatalf("second MarkReportError: %v", err)
	}
	if reports, err := repo.GetPendingReports(ctx, 10); err != nil || len(reports) != 0 {
		t.Errorf("after reaching the attempt limit = %v, %v; want no pending reports", reports, err)
	}
}
