package game

import "errors"

var (
	ErrPlayerCount    = errors.New("player count must be between 5 and 10")
	ErrWrongPhase     = errors.New("wrong phase for this action")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrWrongKind      = errors.New("wrong decision kind")
	ErrIllegalAction  = errors.New("illegal action")
	ErrUnknownPlayer  = errors.New("player not found")
	ErrGameOver       = errors.New("game is over")
	ErrDeckExhausted  = errors.New("not enough cards in circulation")
	ErrInvariant      = errors.New("state invariant violated")
	ErrInvalidRules   = errors.New("invalid rules")
	ErrDuplicateSeats = errors.New("duplicate seat id")
)
