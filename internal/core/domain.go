package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Goal is a named savings target owned by a single user.
	// CurrentAmount always equals the sum of the goal's transaction amounts.
	Goal struct {
		ID             string
		OwnerID        string
		Name           string
		TargetAmount   Money
		CurrentAmount  Money
		Completed      bool
		CompletionDate *time.Time
		CreatedAt      time.Time
	}

	// Transaction is an immutable deposit toward a goal.
	Transaction struct {
		ID          string
		GoalID      string
		Amount      Money
		Description string
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyName          = errors.New("empty goal name")
	ErrEmptyOwner         = errors.New("empty owner id")
	ErrEmptyGoalID        = errors.New("empty goal id")
	ErrNameTooLong        = errors.New("goal name too long (max 200 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidInput       = errors.New("invalid input")
	ErrGoalNotFound       = errors.New("goal not found")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the fields required to create a goal.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.OwnerID) == "" {
		return ErrEmptyOwner
	}
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 200 {
		return ErrNameTooLong
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Remaining returns what is still missing to reach the target, floored at zero.
func (g Goal) Remaining() Money {
	rem := g.TargetAmount.Cents - g.CurrentAmount.Cents
	if rem < 0 {
		rem = 0
	}
	return Money{Cents: rem}
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.GoalID) == "" {
		return ErrEmptyGoalID
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}
