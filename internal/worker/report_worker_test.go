package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"goaltrack/internal/amqp"
	"goaltrack/internal/core"
	"goaltrack/internal/export/memory"
	"goaltrack/internal/services"
	"goaltrack/internal/storage"
)

func setupCompletedGoal(t *testing.T) (*storage.SQLiteRepository, core.Goal) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "goaltrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := services.NewGoalService(repo, nil)
	goal, err := svc.CreateGoal(context.Background(), "owner-1", "Trip", core.Money{Cents: 2000})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, _, err := svc.Deposit(context.Background(), goal.ID, core.Money{Cents: 2500}, ""); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	return repo, goal
}

func TestHandleCompletedMessage(t *testing.T) {
	repo, goal := setupCompletedGoal(t)
	ctx := context.Background()

	sink := memory.New()
	w := NewReportWorker(repo, sink, 10)

	msg := amqp.NewGoalCompletedMessage(goal.ID, time.Now().UTC())
	if err := w.HandleCompletedMessage(ctx, msg); err != nil {
		t.Fatalf("HandleCompletedMessage: %v", err)
	}

	reports := sink.Reports()
	if len(reports) != 1 || reports[0].GoalID != goal.ID {
		t.Fatalf("exported = %+v, want one report for %s", reports, goal.ID)
	}
	if reports[0].CurrentAmount.Cents != 2500 || reports[0].TargetAmount.Cents != 2000 {
		t.Errorf("report amounts = %+v", reports[0])
	}

	// Redelivery after export is a no-op, not an error.
	if err := w.HandleCompletedMessage(ctx, msg); err != nil {
		t.Fatalf("redelivered HandleCompletedMessage: %v", err)
	}
	if got := sink.Reports(); len(got) != 1 {
		t.Errorf("redelivery exported again: %d reports", len(got))
	}
}

func TestHandleCompletedMessageUnknownGoal(t *testing.T) {
	repo, _ := setupCompletedGoal(t)

	sink := memory.New()
	w := NewReportWorker(repo, sink, 10)

	msg := amqp.NewGoalCompletedMessage("no-such-goal", time.Now().UTC())
	if err := w.HandleCompletedMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleCompletedMessage for unknown goal: %v", err)
	}
}

func TestProcessPendingReports(t *testing.T) {
	repo, goal := setupCompletedGoal(t)
	ctx := context.Background()

	sink := memory.New()
	w := NewReportWorker(repo, sink, 10)

	if err := w.ProcessPendingReports(ctx); err != nil {
		t.Fatalf("ProcessPendingReports: %v", err)
	}
	reports := sink.Reports()
	if len(reports) != 1 || reports[0].GoalID != goal.ID {
		t.Fatalf("exported = %+v", reports)
	}

	// Nothing left to do on the next pass.
	if err := w.ProcessPendingReports(ctx); err != nil {
		t.Fatalf("second ProcessPendingReports: %v", err)
	}
	if got := sink.Reports(); len(got) != 1 {
		t.Errorf("second pass exported again: %d reports", len(got))
	}
}

func TestStartupCheckRecordsFailures(t *testing.T) {
	repo, goal := setupCompletedGoal(t)
	ctx := context.Background()

	sink := memory.New()
	sink.FailWith(errors.New("sheets unavailable"))
	w := NewReportWorker(repo, sink, 10)

	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}

	pending, err := repo.GetPendingReports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingReports: %v", err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("after failed startup export: %+v, want pending with 1 attempt", pending)
	}

	sink.FailWith(nil)
	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("second StartupCheck: %v", err)
	}
	if got := sink.Reports(); len(got) != 1 || got[0].GoalID != goal.ID {
		t.Errorf("exported = %+v, want one report for %s", got, goal.ID)
	}
}
