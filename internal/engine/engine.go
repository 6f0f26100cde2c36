package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/roach88/shadowgov/internal/agent"
	"github.com/roach88/shadowgov/internal/game"
	"github.com/roach88/shadowgov/internal/ir"
)

// Default decision limits.
const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 2
)

// Sink receives every event in order. Append errors are collected and
// logged; they never stop the session.
type Sink interface {
	Append(ctx context.Context, ev ir.Event) error
}

// DecisionRecorder receives every provider attempt in order.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, d ir.Decision) error
}

// Settings describe one session.
type Settings struct {
	// SessionID is generated when empty.
	SessionID  string
	Seats      []game.Seat
	Seed       int64
	Rules      game.Rules
	Timeout    time.Duration
	Retries    int
	Discussion bool
	// StartTime anchors the logical timestamps.
	StartTime time.Time
}

// Machine is the single-writer session loop. It owns the only game.State;
// every change goes through a game transition and is recorded as an event.
//
// Run must be called from exactly one goroutine, once.
type Machine struct {
	settings  Settings
	providers map[string]agent.Provider
	state     game.State
	rng       *rand.Rand
	clock     *Clock
	time      LogicalTime
	logger    *slog.Logger

	sinks     []Sink
	recorder  DecisionRecorder
	sessions  SessionIDGenerator
	budget    *RoundBudget
	haltAfter int

	decisionSeq int64
	announced   int
	events      int
	sinkErrors  []error
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithSink adds event sinks, called in the order given.
func WithSink(sinks ...Sink) Option {
	return func(m *Machine) {
		m.sinks = append(m.sinks, sinks...)
	}
}

// WithDecisionRecorder sets where provider attempts are recorded.
func WithDecisionRecorder(r DecisionRecorder) Option {
	return func(m *Machine) {
		m.recorder = r
	}
}

// WithSessionIDs sets the generator used when Settings.SessionID is empty.
// Default: UUIDv7Generator.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(m *Machine) {
		m.sessions = g
	}
}

// WithRoundBudget bounds the number of rounds. Exceeding it is a
// StateCorruption. Default: DefaultRoundBudget.
func WithRoundBudget(n int) Option {
	return func(m *Machine) {
		m.budget = NewRoundBudget(n)
	}
}

// WithHaltAfterRound stops the session cleanly once round n has ended.
func WithHaltAfterRound(n int) Option {
	return func(m *Machine) {
		m.haltAfter = n
	}
}

// Result summarizes a finished (or halted) session.
type Result struct {
	SessionID string
	Seed      int64
	Outcome   *game.Outcome
	Rounds    int
	Halted    bool
	Events    int
	// LastSeq is the seq of the last event emitted.
	LastSeq int64
	Final   game.State
	// SinkErrors are the sink and recorder failures seen during the run.
	SinkErrors []error
}

// New deals the session and returns a Machine ready to Run. Every seat
// needs a provider.
func New(settings Settings, providers map[string]agent.Provider, opts ...Option) (*Machine, error) {
	m := &Machine{
		settings:  settings,
		providers: providers,
		clock:     NewClock(),
		logger:    slog.Default(),
		sessions:  UUIDv7Generator{},
		budget:    NewRoundBudget(DefaultRoundBudget),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.settings.Timeout <= 0 {
		m.settings.Timeout = DefaultTimeout
	}
	if m.settings.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative: %d", m.settings.Retries)
	}
	if m.settings.SessionID == "" {
		m.settings.SessionID = m.sessions.Generate()
	}
	for _, seat := range m.settings.Seats {
		if m.providers[seat.ID] == nil {
			return nil, fmt.Errorf("no provider for seat %q", seat.ID)
		}
	}

	m.rng = newRNG(m.settings.Seed)
	m.time = LogicalTime{Start: m.settings.StartTime}
	state, err := game.New(m.settings.SessionID, m.settings.Seats, m.settings.Rules, m.rng)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	m.state = state
	m.logger = m.logger.With("session", m.settings.SessionID)
	return m, nil
}

// SessionID returns the session identifier.
func (m *Machine) SessionID() string {
	return m.settings.SessionID
}

// Settings returns the effective settings, defaults and session id applied.
func (m *Machine) Settings() Settings {
	return m.settings
}

// State returns a copy of the current state.
func (m *Machine) State() game.State {
	return m.state.Clone()
}

// Run plays the session to GameOver, a halt, or an abort. Recoverable
// provider errors are absorbed. A StateCorruption or a cancelled ctx ends
// the run with an error; the Result still describes how far it got.
func (m *Machine) Run(ctx context.Context) (Result, error) {
	m.logger.Info("session starting",
		"players", len(m.state.Players),
		"seed", m.settings.Seed,
		"discussion", m.settings.Discussion)

	m.start(ctx)
	halted, err := m.loop(ctx)
	if err != nil && IsStateCorruption(err) {
		m.logger.Error("session aborted", "code", CodeOf(err), "error", err)
		details := ir.Object{"reason": ir.String(err.Error())}
		if IsRoundsExceededError(err) {
			details["round_budget"] = ir.Int(int64(m.budget.Max()))
		}
		m.system(ctx, "", "state_corruption", details)
	}

	res := Result{
		SessionID:  m.settings.SessionID,
		Seed:       m.settings.Seed,
		Outcome:    m.state.Outcome,
		Rounds:     m.state.Round,
		Halted:     halted,
		Events:     m.events,
		LastSeq:    m.clock.Current(),
		Final:      m.state.Clone(),
		SinkErrors: m.sinkErrors,
	}
	if err == nil {
		m.logger.Info("session finished", "rounds", res.Rounds, "halted", halted, "events", m.events)
	}
	return res, err
}

func (m *Machine) loop(ctx context.Context) (bool, error) {
	for !m.state.Over() {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if m.state.Phase == game.PhaseNomination && m.announced != m.state.Round {
			m.announceRound(ctx)
		}

		if pending := game.Pending(m.state); len(pending) > 0 {
			if err := m.act(ctx, pending[0]); err != nil {
				return false, err
			}
			continue
		}

		var err error
		switch m.state.Phase {
		case game.PhaseVoting:
			err = m.tally(ctx)
		case game.PhaseGovernmentFormed:
			err = m.beginLegislative(ctx)
		case game.PhaseGovernmentRejected, game.PhaseRoundEnd:
			if m.haltAfter > 0 && m.state.Round >= m.haltAfter {
				m.system(ctx, "", "session_halted", ir.Object{"after_round": ir.Int(int64(m.state.Round))})
				return true, nil
			}
			err = m.endRound(ctx)
		default:
			err = newCorruption(m.state.Phase, fmt.Errorf("%w: no pending decision", game.ErrWrongPhase))
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

// commit installs next as the current state after checking invariants.
func (m *Machine) commit(next game.State) error {
	if err := game.CheckInvariants(next); err != nil {
		return newCorruption(next.Phase, err)
	}
	m.state = next
	return nil
}

// transition wraps a game transition error as corruption: the engine only
// calls transitions it has validated, so any failure is a broken state.
func (m *Machine) transition(next game.State, rep game.Report, err error) (game.Report, error) {
	if err != nil {
		return rep, newCorruption(m.state.Phase, err)
	}
	return rep, m.commit(next)
}
