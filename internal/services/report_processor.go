package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"goaltrack/internal/export"
	"goaltrack/internal/storage"
)

// ReportProcessorConfig holds configuration for the report processor
type ReportProcessorConfig struct {
	// PollInterval is how often to check for pending reports (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of reports to export per cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum export attempts before giving up (default: 3)
	MaxRetries int
}

// DefaultReportProcessorConfig returns sensible defaults
func DefaultReportProcessorConfig() ReportProcessorConfig {
	return ReportProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// ReportProcessor drains pending completion reports from SQLite into the
// configured report sink
type ReportProcessor struct {
	storage  *storage.SQLiteRepository
	appender export.ReportAppender
	config   ReportProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReportProcessor creates a new report processor
func NewReportProcessor(
	storage *storage.SQLiteRepository,
	appender export.ReportAppender,
	config ReportProcessorConfig,
) *ReportProcessor {
	return &ReportProcessor{
		storage:  storage,
		appender: appender,
		config:   config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ReportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("report processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Report processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ReportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Report processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Report processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ReportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.ProcessPending(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessPending(ctx)
		}
	}
}

// ProcessPending exports one batch of pending reports. It is safe to call
// from outside the poll loop, the AMQP consumer uses it to react to
// completion events without waiting for the next tick.
func (p *ReportProcessor) ProcessPending(ctx context.Context) {
	reports, err := p.storage.GetPendingReports(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending reports", "error", err)
		return
	}

	if len(reports) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing report batch", "count", len(reports))

	for _, report := range reports {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		ref, err := p.appender.Append(ctx, report)
		if err != nil {
			p.handleFailure(ctx, report, err)
			continue
		}

		if err := p.storage.MarkReportSynced(ctx, report.GoalID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark report as synced",
				"goal_id", report.GoalID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "Exported completion report",
			"goal_id", report.GoalID,
			"sheets_ref", ref)
	}
}

func (p *ReportProcessor) handleFailure(ctx context.Context, report storage.CompletionReport, exportErr error) {
	slog.WarnContext(ctx, "Report export failed",
		"goal_id", report.GoalID,
		"attempt", report.Attempts+1,
		"error", exportErr)

	if err := p.storage.MarkReportError(ctx, report.GoalID, int64(p.config.MaxRetries)); err != nil {
		slog.ErrorContext(ctx, "Failed to record export failure",
			"goal_id", report.GoalID, "error", err)
	}

	if report.Attempts+1 >= int64(p.config.MaxRetries) {
		slog.ErrorContext(ctx, "Report export failed permanently after max retries",
			"goal_id", report.GoalID,
			"attempts", report.Attempts+1)
	}
}
