// Package config loads session files: YAML read through viper, checked
// against an embedded CUE schema, then validated in Go.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/shadowgov/internal/agent"
	"github.com/roach88/shadowgov/internal/engine"
	"github.com/roach88/shadowgov/internal/game"
)

// Defaults for fields a session file leaves out.
const (
	DefaultPlayers     = 5
	DefaultAgent       = agent.NameRandom
	DefaultTimeout     = "30s"
	DefaultRoundBudget = engine.DefaultRoundBudget
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid session config")

// Seat binds a player slot to a provider.
type Seat struct {
	ID    string `mapstructure:"id"`
	Name  string `mapstructure:"name"`
	Agent string `mapstructure:"agent"`
}

// Session is a loaded session file.
type Session struct {
	SessionID      string        `mapstructure:"session_id"`
	Seed           int64         `mapstructure:"seed"`
	Players        int           `mapstructure:"players"`
	Agent          string        `mapstructure:"agent"`
	Seats          []Seat        `mapstructure:"seats"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retries        int           `mapstructure:"retries"`
	Discussion     bool          `mapstructure:"discussion"`
	StartTime      string        `mapstructure:"start_time"`
	HaltAfterRound int           `mapstructure:"halt_after_round"`
	RoundBudget    int           `mapstructure:"round_budget"`
	Rules          game.Rules    `mapstructure:"rules"`
	DB             string        `mapstructure:"db"`
	JSONL          string        `mapstructure:"jsonl"`

	// SeedSet is false when no seed was configured; the caller draws one.
	SeedSet bool `mapstructure:"-"`
}

// Default returns a session with every default applied and no seed.
func Default() *Session {
	timeout, _ := time.ParseDuration(DefaultTimeout)
	return &Session{
		Players:     DefaultPlayers,
		Agent:       DefaultAgent,
		Timeout:     timeout,
		Retries:     engine.DefaultRetries,
		RoundBudget: DefaultRoundBudget,
		Rules:       game.DefaultRules(),
	}
}

// ResolvedSeats returns the configured seats, or p1..pN when none are
// listed. Seats without an agent inherit Session.Agent.
func (s *Session) ResolvedSeats() []Seat {
	if len(s.Seats) == 0 {
		seats := make([]Seat, s.Players)
		for i := range seats {
			seats[i] = Seat{ID: fmt.Sprintf("p%d", i+1)}
		}
		return s.fill(seats)
	}
	return s.fill(append([]Seat(nil), s.Seats...))
}

func (s *Session) fill(seats []Seat) []Seat {
	for i := range seats {
		if seats[i].Agent == "" {
			seats[i].Agent = s.Agent
		}
		if seats[i].Name == "" {
			seats[i].Name = seats[i].ID
		}
	}
	return seats
}

// Validate checks what the CUE schema cannot: table size, unique seats,
// rule consistency and known agents.
func (s *Session) Validate() error {
	var errs []error
	seats := s.ResolvedSeats()
	if n := len(seats); n < game.MinPlayers || n > game.MaxPlayers {
		errs = append(errs, fmt.Errorf("%d players, want %d-%d", n, game.MinPlayers, game.MaxPlayers))
	}
	seen := map[string]bool{}
	for _, seat := range seats {
		if seen[seat.ID] {
			errs = append(errs, fmt.Errorf("duplicate seat %q", seat.ID))
		}
		seen[seat.ID] = true
		if _, err := agent.New(seat.Agent, 0, 0); err != nil {
			errs = append(errs, fmt.Errorf("seat %s: %w", seat.ID, err))
		}
	}
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", s.Timeout))
	}
	if s.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", s.Retries))
	}
	if s.StartTime != "" {
		if _, err := time.Parse(time.RFC3339, s.StartTime); err != nil {
			errs = append(errs, fmt.Errorf("start_time: %w", err))
		}
	}
	if err := s.Rules.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Settings bridges the session file to engine settings. now anchors the
// logical clock when start_time is unset.
func (s *Session) Settings(now time.Time) (engine.Settings, error) {
	start := now.UTC().Truncate(time.Millisecond)
	if s.StartTime != "" {
		t, err := time.Parse(time.RFC3339, s.StartTime)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("%w: start_time: %w", ErrInvalidConfig, err)
		}
		start = t
	}
	seats := s.ResolvedSeats()
	out := make([]game.Seat, len(seats))
	for i, seat := range seats {
		out[i] = game.Seat{ID: seat.ID, Name: seat.Name}
	}
	return engine.Settings{
		SessionID:  s.SessionID,
		Seats:      out,
		Seed:       s.Seed,
		Rules:      s.Rules,
		Timeout:    s.Timeout,
		Retries:    s.Retries,
		Discussion: s.Discussion,
		StartTime:  start,
	}, nil
}

// EngineOptions returns the engine options the session file controls.
func (s *Session) EngineOptions() []engine.Option {
	opts := []engine.Option{engine.WithRoundBudget(s.RoundBudget)}
	if s.HaltAfterRound > 0 {
		opts = append(opts, engine.WithHaltAfterRound(s.HaltAfterRound))
	}
	return opts
}

// Providers builds one built-in provider per seat. Random providers share
// the session seed and differ by seat number.
func (s *Session) Providers() (map[string]agent.Provider, error) {
	providers := map[string]agent.Provider{}
	for i, seat := range s.ResolvedSeats() {
		p, err := agent.New(seat.Agent, s.Seed, i)
		if err != nil {
			return nil, fmt.Errorf("seat %s: %w", seat.ID, err)
		}
		providers[seat.ID] = p
	}
	return providers, nil
}
