package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"goaltrack/internal/core"

	_ "modernc.org/sqlite"
)

// Report sync states for completed goals.
const (
	ReportStatusNone    = "none"
	ReportStatusPending = "pending"
	ReportStatusSynced  = "synced"
	ReportStatusError   = "error"
)

// CompletionReport is the row shipped to the report exporter once a goal
// reaches its target.
type CompletionReport struct {
	GoalID         string
	OwnerID        string
	Name           string
	TargetAmount   core.Money
	CurrentAmount  core.Money
	CompletionDate time.Time
	Attempts       int64
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys are off by default in SQLite and the transactions table
	// relies on cascading deletes.
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateGoal persists a new goal
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, owner_id, name, target_cents, current_cents, completed, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		g.ID, g.OwnerID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved to SQLite",
		"goal_id", g.ID,
		"owner_id", g.OwnerID,
		"name", g.Name,
		"target_cents", g.TargetAmount.Cents)

	return nil
}

// GetGoal retrieves a single goal by ID
func (r *SQLiteRepository) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, target_cents, current_cents, completed, completion_date, created_at
		FROM goals WHERE id = ?`, id)

	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Goal{}, core.ErrGoalNotFound
		}
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// ListGoals returns all goals, optionally filtered by owner, newest first
func (r *SQLiteRepository) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	query := `
		SELECT id, owner_id, name, target_cents, current_cents, completed, completion_date, created_at
		FROM goals`
	args := []any{}
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]core.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes a goal and, via the foreign key cascade, its transactions
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrGoalNotFound
	}

	slog.InfoContext(ctx, "Goal deleted", "goal_id", id)
	return nil
}

// ApplyDeposit records a transaction and updates the parent goal's running
// total inside a single database transaction. Crossing the target flips the
// goal to completed exactly once and queues its completion report; the
// returned bool reports whether this deposit caused the transition.
func (r *SQLiteRepository) ApplyDeposit(ctx context.Context, deposit core.Transaction) (core.Goal, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("begin deposit: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, owner_id, name, target_cents, current_cents, completed, completion_date, created_at
		FROM goals WHERE id = ?`, deposit.GoalID)
	goal, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Goal{}, false, core.ErrGoalNotFound
		}
		return core.Goal{}, false, fmt.Errorf("load goal for deposit: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, goal_id, amount_cents, description, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		deposit.ID, deposit.GoalID, deposit.Amount.Cents, deposit.Description, deposit.CreatedAt)
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("insert transaction: %w", err)
	}

	goal.CurrentAmount.Cents += deposit.Amount.Cents

	// Completion is a one-way transition: once set, further deposits must
	// not touch the completion date.
	completedNow := !goal.Completed && goal.CurrentAmount.Cents >= goal.TargetAmount.Cents
	if completedNow {
		goal.Completed = true
		when := deposit.CreatedAt
		goal.CompletionDate = &when

		_, err = tx.ExecContext(ctx, `
			UPDATE goals
			SET current_cents = ?, completed = 1, completion_date = ?, report_status = ?
			WHERE id = ?`,
			goal.CurrentAmount.Cents, when, ReportStatusPending, goal.ID)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE goals SET current_cents = ? WHERE id = ?`,
			goal.CurrentAmount.Cents, goal.ID)
	}
	if err != nil {
		return core.Goal{}, false, fmt.Errorf("update goal total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Goal{}, false, fmt.Errorf("commit deposit: %w", err)
	}

	slog.InfoContext(ctx, "Deposit applied",
		"goal_id", goal.ID,
		"transaction_id", deposit.ID,
		"amount_cents", deposit.Amount.Cents,
		"current_cents", goal.CurrentAmount.Cents,
		"completed", goal.Completed)

	return goal, completedNow, nil
}

// ListTransactions returns a goal's transactions ordered oldest first
func (r *SQLiteRepository) ListTransactions(ctx context.Context, goalID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, goal_id, amount_cents, description, created_at
		FROM transactions WHERE goal_id = ?
		ORDER BY created_at, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]core.Transaction, 0)
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.GoalID, &t.Amount.Cents, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// GetPendingReports returns completed goals whose report has not been
// exported yet, oldest completion first
func (r *SQLiteRepository) GetPendingReports(ctx context.Context, limit int) ([]CompletionReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, target_cents, current_cents, completion_date, report_attempts
		FROM goals
		WHERE report_status = ?
		ORDER BY completion_date, id
		LIMIT ?`, ReportStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending reports: %w", err)
	}
	defer rows.Close()

	reports := make([]CompletionReport, 0)
	for rows.Next() {
		var rep CompletionReport
		var completionDate sql.NullTime
		if err := rows.Scan(&rep.GoalID, &rep.OwnerID, &rep.Name,
			&rep.TargetAmount.Cents, &rep.CurrentAmount.Cents, &completionDate, &rep.Attempts); err != nil {
			return nil, fmt.Errorf("scan pending report: %w", err)
		}
		if completionDate.Valid {
			rep.CompletionDate = completionDate.Time
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending reports: %w", err)
	}
	return reports, nil
}

// MarkReportSynced marks a goal's completion report as exported
func (r *SQLiteRepository) MarkReportSynced(ctx context.Context, goalID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE goals SET report_status = ? WHERE id = ?`, ReportStatusSynced, goalID)
	if err != nil {
		return fmt.Errorf("mark report synced: %w", err)
	}

	slog.InfoContext(ctx, "Completion report marked as synced", "goal_id", goalID)
	return nil
}

// MarkReportError records a failed export attempt; the report stays pending
// until the attempt limit is reached
func (r *SQLiteRepository) MarkReportError(ctx context.Context, goalID string, maxAttempts int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE goals
		SET report_attempts = report_attempts + 1,
		    report_status = CASE WHEN report_attempts + 1 >= ? THEN ? ELSE report_status END
		WHERE id = ?`, maxAttempts, ReportStatusError, goalID)
	if err != nil {
		return fmt.Errorf("mark report error: %w", err)
	}

	slog.WarnContext(ctx, "Completion report export failed", "goal_id", goalID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var g core.Goal
	var completed int64
	var completionDate sql.NullTime
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name,
		&g.TargetAmount.Cents, &g.CurrentAmount.Cents,
		&completed, &completionDate, &g.CreatedAt)
	if err != nil {
		return core.Goal{}, err
	}
	g.Completed = completed != 0
	if completionDate.Valid {
		when := completionDate.Time
		g.CompletionDate = &when
	}
	return g, nil
}
