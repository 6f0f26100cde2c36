package engine

import (
	"errors"
	"fmt"
)

// DefaultRoundBudget bounds the rounds of one session. A legal game ends
// far sooner; hitting the budget means the state machine is looping.
const DefaultRoundBudget = 100

// RoundBudget tracks rounds played against a maximum.
type RoundBudget struct {
	max     int
	current int
}

// NewRoundBudget creates a budget of max rounds.
func NewRoundBudget(max int) *RoundBudget {
	return &RoundBudget{max: max}
}

// Check records the start of round and fails once the budget is spent.
func (b *RoundBudget) Check(round int) error {
	b.current = round
	if round > b.max {
		return &RoundsExceededError{Rounds: round, Limit: b.max}
	}
	return nil
}

// Current returns the last round checked.
func (b *RoundBudget) Current() int {
	return b.current
}

// Max returns the round limit.
func (b *RoundBudget) Max() int {
	return b.max
}

// RoundsExceededError is returned when a session outlives its budget.
type RoundsExceededError struct {
	Rounds int
	Limit  int
}

// Error implements the error interface.
func (e *RoundsExceededError) Error() string {
	return fmt.Sprintf("session exceeded round budget: round %d > %d limit", e.Rounds, e.Limit)
}

// IsRoundsExceededError reports whether err is a RoundsExceededError.
// Uses errors.As to handle wrapped errors.
func IsRoundsExceededError(err error) bool {
	var re *RoundsExceededError
	return errors.As(err, &re)
}
