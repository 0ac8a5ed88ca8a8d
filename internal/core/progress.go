// Package core implements the goal progress engine.
//
// ComputeProgress is a pure function over a goal and its deposit history:
// it never mutates its inputs and is deterministic for a fixed evaluation
// time, which makes it safe to call concurrently on independently fetched
// snapshots.
package core

import (
	"fmt"
	"math"
	"time"
)

// GoalProgress is the derived, non-persisted snapshot of how close a goal
// is to completion and at what rate it is being funded.
//
// The projection fields are nil when no usable projection exists (completed
// goal, empty ledger, or non-positive rate). Callers must treat absence as
// "no projection", not zero.
type GoalProgress struct {
	ProgressPercentage        float64    `json:"progress_percentage"`
	RemainingAmount           float64    `json:"remaining_amount"`
	AverageDailySavings       *float64   `json:"average_daily_savings,omitempty"`
	EstimatedDaysToCompletion *float64   `json:"estimated_days_to_completion,omitempty"`
	EstimatedCompletionDate   *time.Time `json:"estimated_completion_date,omitempty"`
}

// ComputeProgress derives a progress snapshot from a goal and its full
// transaction history. Transactions may arrive in any order.
//
// The savings rate is a lifetime mean: total saved divided by the whole days
// elapsed between the earliest transaction and now, floored at one day so a
// goal funded on its first day still gets a finite projection.
func ComputeProgress(goal Goal, transactions []Transaction, now time.Time) (GoalProgress, error) {
	if goal.TargetAmount.Cents <= 0 {
		return GoalProgress{}, fmt.Errorf("target amount must be positive: %w", ErrInvalidInput)
	}
	for _, tx := range transactions {
		if tx.GoalID != goal.ID {
			return GoalProgress{}, fmt.Errorf("transaction %s belongs to goal %s, not %s: %w",
				tx.ID, tx.GoalID, goal.ID, ErrInvalidInput)
		}
	}

	progress := GoalProgress{
		ProgressPercentage: progressPercentage(goal),
		RemainingAmount:    goal.Remaining().Dollars(),
	}

	// A completed goal needs no further projection.
	if goal.Completed || goal.CurrentAmount.Cents >= goal.TargetAmount.Cents {
		return progress, nil
	}

	first, ok := earliestTransaction(transactions)
	if !ok {
		// No deposits yet: nothing to project from.
		return progress, nil
	}

	span := spanDays(first.CreatedAt, now)
	rate := goal.CurrentAmount.Dollars() / float64(span)
	progress.AverageDailySavings = &rate

	if rate > 0 {
		days := progress.RemainingAmount / rate
		progress.EstimatedDaysToCompletion = &days

		eta := now.Add(time.Duration(days * float64(24*time.Hour)))
		progress.EstimatedCompletionDate = &eta
	}

	return progress, nil
}

// progressPercentage is min(100, current/target*100), with a defensive zero
// for a non-positive target (normally rejected before reaching this point).
func progressPercentage(goal Goal) float64 {
	if goal.TargetAmount.Cents <= 0 {
		return 0
	}
	pct := float64(goal.CurrentAmount.Cents) / float64(goal.TargetAmount.Cents) * 100
	return math.Min(100, pct)
}

// spanDays returns the whole days elapsed between first and now, floored at 1.
func spanDays(first, now time.Time) int64 {
	days := int64(now.Sub(first) / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

// earliestTransaction scans for the transaction with the smallest CreatedAt
// without reordering the caller's slice.
func earliestTransaction(transactions []Transaction) (Transaction, bool) {
	if len(transactions) == 0 {
		return Transaction{}, false
	}
	first := transactions[0]
	for _, tx := range transactions[1:] {
		if tx.CreatedAt.Before(first.CreatedAt) {
			first = tx
		}
	}
	return first, true
}
