package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"goaltrack/internal/core"
)

type goalResponse struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Name           string     `json:"name"`
	TargetAmount   float64    `json:"target_amount"`
	CurrentAmount  float64    `json:"current_amount"`
	Completed      bool       `json:"completed"`
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	GoalID      string    `json:"goal_id"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type progressResponse struct {
	Goal                      goalResponse `json:"goal"`
	ProgressPercentage        float64      `json:"progress_percentage"`
	RemainingAmount           float64      `json:"remaining_amount"`
	AverageDailySavings       *float64     `json:"average_daily_savings,omitempty"`
	EstimatedDaysToCompletion *float64     `json:"estimated_days_to_completion,omitempty"`
	EstimatedCompletionDate   *time.Time   `json:"estimated_completion_date,omitempty"`
	EstimatedCompletionLabel  string       `json:"estimated_completion_label,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toGoalResponse(g core.Goal) goalResponse {
	return goalResponse{
		ID:             g.ID,
		OwnerID:        g.OwnerID,
		Name:           g.Name,
		TargetAmount:   g.TargetAmount.Dollars(),
		CurrentAmount:  g.CurrentAmount.Dollars(),
		Completed:      g.Completed,
		CompletionDate: g.CompletionDate,
		CreatedAt:      g.CreatedAt,
	}
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		GoalID:      t.GoalID,
		Amount:      t.Amount.Dollars(),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func toProgressResponse(goal core.Goal, p core.GoalProgress) progressResponse {
	resp := progressResponse{
		Goal:                      toGoalResponse(goal),
		ProgressPercentage:        p.ProgressPercentage,
		RemainingAmount:           p.RemainingAmount,
		AverageDailySavings:       p.AverageDailySavings,
		EstimatedDaysToCompletion: p.EstimatedDaysToCompletion,
		EstimatedCompletionDate:   p.EstimatedCompletionDate,
	}
	if p.EstimatedDaysToCompletion != nil {
		resp.EstimatedCompletionLabel = humanizeDays(*p.EstimatedDaysToCompletion)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrGoalNotFound):
		writeError(w, http.StatusNotFound, "goal not found")
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyOwner),
		errors.Is(err, core.ErrEmptyGoalID),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, core.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
