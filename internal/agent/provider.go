// Package agent defines the decision-provider boundary and the built-in
// providers used for tests, simulation and replay.
package agent

import (
	"context"

	"github.com/roach88/shadowgov/internal/game"
)

// Request is one decision the engine needs from a player.
type Request struct {
	SessionID string
	PlayerID  string
	// Role is private to the requesting player.
	Role   game.Role
	View   game.View
	Schema game.Schema
	// Attempt counts from 0; retries after a rejection increment it.
	Attempt int
	// Rejection explains why the previous attempt was refused.
	Rejection string
}

// Response is a provider's answer. Speech and Thought are opaque text that
// never influence legality.
type Response struct {
	Kind    game.Kind
	Choice  string
	Speech  string
	Thought string
	Raw     string
}

// Provider answers decision requests. Implementations must honor ctx; the
// engine abandons calls that outlive their deadline.
type Provider interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (Response, error)

// Decide implements Provider.
func (f ProviderFunc) Decide(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// FirstLegal always picks the first legal option.
type FirstLegal struct{}

// Decide implements Provider.
func (FirstLegal) Decide(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	return Response{Kind: req.Schema.Kind, Choice: game.DefaultChoice(req.Schema)}, nil
}
