package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"goaltrack/internal/core"
	"goaltrack/internal/storage"

	"github.com/google/uuid"
)

// CompletionPublisher publishes goal completion events.
type CompletionPublisher interface {
	PublishGoalCompleted(ctx context.Context, goalID string, completedAt time.Time) error
}

// GoalService orchestrates goal operations across SQLite and AMQP
type GoalService struct {
	storage   *storage.SQLiteRepository
	publisher CompletionPublisher
}

func NewGoalService(storage *storage.SQLiteRepository, publisher CompletionPublisher) *GoalService {
	return &GoalService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreateGoal validates and persists a new goal
func (s *GoalService) CreateGoal(ctx context.Context, ownerID, name string, target core.Money) (core.Goal, error) {
	goal := core.Goal{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         name,
		TargetAmount: target,
		CreatedAt:    time.Now().UTC(),
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}

	if err := s.storage.CreateGoal(ctx, goal); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

// GetGoal returns a single goal by ID
func (s *GoalService) GetGoal(ctx context.Context, goalID string) (core.Goal, error) {
	return s.storage.GetGoal(ctx, goalID)
}

// ListGoals returns goals, optionally filtered by owner
func (s *GoalService) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	return s.storage.ListGoals(ctx, ownerID)
}

// DeleteGoal removes a goal and its transaction history
func (s *GoalService) DeleteGoal(ctx context.Context, goalID string) error {
	return s.storage.DeleteGoal(ctx, goalID)
}

// Deposit records a deposit against a goal. If the deposit pushes the goal
// over its target, a completion event is published; publish failures are
// logged but never fail the deposit, the worker picks pending reports up by
// polling anyway.
func (s *GoalService) Deposit(ctx context.Context, goalID string, amount core.Money, description string) (core.Goal, core.Transaction, error) {
	deposit := core.Transaction{
		ID:          uuid.NewString(),
		GoalID:      goalID,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := deposit.Validate(); err != nil {
		return core.Goal{}, core.Transaction{}, err
	}

	goal, completedNow, err := s.storage.ApplyDeposit(ctx, deposit)
	if err != nil {
		return core.Goal{}, core.Transaction{}, err
	}

	if completedNow {
		s.publishCompletion(ctx, goal)
	}

	return goal, deposit, nil
}

// ListTransactions returns a goal's deposits oldest first
func (s *GoalService) ListTransactions(ctx context.Context, goalID string) ([]core.Transaction, error) {
	// Surface a missing goal as such instead of an empty list.
	if _, err := s.storage.GetGoal(ctx, goalID); err != nil {
		return nil, err
	}
	return s.storage.ListTransactions(ctx, goalID)
}

// Progress computes the progress snapshot for a goal from its full history
func (s *GoalService) Progress(ctx context.Context, goalID string) (core.Goal, core.GoalProgress, error) {
	goal, err := s.storage.GetGoal(ctx, goalID)
	if err != nil {
		return core.Goal{}, core.GoalProgress{}, err
	}

	txs, err := s.storage.ListTransactions(ctx, goalID)
	if err != nil {
		return core.Goal{}, core.GoalProgress{}, fmt.Errorf("load transactions: %w", err)
	}

	progress, err := core.ComputeProgress(goal, txs, time.Now().UTC())
	if err != nil {
		return core.Goal{}, core.GoalProgress{}, fmt.Errorf("compute progress: %w", err)
	}
	return goal, progress, nil
}

func (s *GoalService) publishCompletion(ctx context.Context, goal core.Goal) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "No completion publisher configured, relying on report polling",
			"goal_id", goal.ID)
		return
	}

	completedAt := time.Now().UTC()
	if goal.CompletionDate != nil {
		completedAt = *goal.CompletionDate
	}

	if err := s.publisher.PublishGoalCompleted(ctx, goal.ID, completedAt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish completion event",
			"goal_id", goal.ID, "error", err)
	}
}

// Ping reports whether the backing store is reachable
func (s *GoalService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Close closes the underlying storage connection
func (s *GoalService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close goal service: %w", err)
		}
	}
	return nil
}
