package worker

import (
	"context"
	"fmt"
	"log/slog"

	"goaltrack/internal/amqp"
	"goaltrack/internal/export"
	"goaltrack/internal/storage"
)

// ReportWorker exports completion reports for finished goals to the
// configured report sink
type ReportWorker struct {
	storage   *storage.SQLiteRepository
	appender  export.ReportAppender
	batchSize int
}

func NewReportWorker(storage *storage.SQLiteRepository, appender export.ReportAppender, batchSize int) *ReportWorker {
	return &ReportWorker{
		storage:   storage,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleCompletedMessage processes a single completion event from AMQP.
// The report data always comes from the database, never from the message,
// so replayed or delayed deliveries cannot export stale numbers.
func (w *ReportWorker) HandleCompletedMessage(ctx context.Context, msg *amqp.GoalCompletedMessage) error {
	slog.InfoContext(ctx, "Processing completion message",
		"goal_id", msg.GoalID,
		"completed_at", msg.CompletedAt)

	reports, err := w.storage.GetPendingReports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending reports: %w", err)
	}

	for _, report := range reports {
		if report.GoalID != msg.GoalID {
			continue
		}
		if err := w.exportReport(ctx, report); err != nil {
			return err
		}
		return nil
	}

	// Already exported by the polling pass, or the goal was deleted.
	slog.InfoContext(ctx, "No pending report for completion message", "goal_id", msg.GoalID)
	return nil
}

// ProcessPendingReports exports any reports that have not been shipped yet.
// This is the backup path for lost AMQP messages and worker downtime.
func (w *ReportWorker) ProcessPendingReports(ctx context.Context) error {
	reports, err := w.storage.GetPendingReports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending reports: %w", err)
	}

	if len(reports) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending reports", "count", len(reports))

	for _, report := range reports {
		if err := w.exportReport(ctx, report); err != nil {
			slog.ErrorContext(ctx, "Failed to export report",
				"goal_id", report.GoalID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck drains the pending report backlog at worker startup with a
// larger batch, recovering from missed messages while the worker was down
func (w *ReportWorker) StartupCheck(ctx context.Context) error {
	reports, err := w.storage.GetPendingReports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending reports for startup check: %w", err)
	}

	if len(reports) == 0 {
		slog.InfoContext(ctx, "No pending reports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending reports on startup, processing...",
		"count", len(reports))

	successCount := 0
	errorCount := 0

	for _, report := range reports {
		if err := w.exportReport(ctx, report); err != nil {
			slog.ErrorContext(ctx, "Failed to export report during startup",
				"goal_id", report.GoalID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup report check completed",
		"total", len(reports),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ReportWorker) exportReport(ctx context.Context, report storage.CompletionReport) error {
	ref, err := w.appender.Append(ctx, report)
	if err != nil {
		if markErr := w.storage.MarkReportError(ctx, report.GoalID, 3); markErr != nil {
			slog.ErrorContext(ctx, "Failed to record export failure",
				"goal_id", report.GoalID, "error", markErr)
		}
		return fmt.Errorf("append report: %w", err)
	}

	if err := w.storage.MarkReportSynced(ctx, report.GoalID); err != nil {
		// The export itself worked, so don't fail the message.
		slog.ErrorContext(ctx, "Failed to mark report as synced",
			"goal_id", report.GoalID, "error", err)
	}

	slog.InfoContext(ctx, "Exported completion report",
		"goal_id", report.GoalID,
		"owner_id", report.OwnerID,
		"sheets_ref", ref)

	return nil
}
