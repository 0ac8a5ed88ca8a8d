package export

import (
	"context"

	"goaltrack/internal/storage"
)

// ReportAppender is the outbound port for completion report sinks.
type ReportAppender interface {
	// Append writes a completion report and returns a sink-specific row
	// reference.
	Append(ctx context.Context, report storage.CompletionReport) (rowRef string, err error)
}
