// Package memory is an in-process report sink used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"goaltrack/internal/export"
	"goaltrack/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	reports []storage.CompletionReport
	failErr error
}

var _ export.ReportAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the report and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, report storage.CompletionReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return "", s.failErr
	}
	s.reports = append(s.reports, report)
	return fmt.Sprintf("mem:%d", len(s.reports)), nil
}

// Reports returns a copy of everything appended so far.
func (s *Store) Reports() []storage.CompletionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.CompletionReport(nil), s.reports...)
}

// FailWith makes subsequent Append calls return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}
