package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/shadowgov/internal/agent"
	"github.com/roach88/shadowgov/internal/engine"
	"github.com/roach88/shadowgov/internal/game"
	"github.com/roach88/shadowgov/internal/ir"
	"github.com/roach88/shadowgov/internal/store"
	"github.com/roach88/shadowgov/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the session ran cleanly and every assertion held.
	Pass bool `json:"pass"`

	SessionID string `json:"session_id"`
	Winner    string `json:"winner,omitempty"`
	Condition string `json:"condition,omitempty"`
	Rounds    int    `json:"rounds"`
	Halted    bool   `json:"halted"`
	TraceHash string `json:"trace_hash"`

	// Events and Decisions are read back from the store, in seq order.
	Events    []ir.Event    `json:"-"`
	Decisions []ir.Decision `json:"-"`

	// State is the final state snapshot used by final_state assertions.
	State map[string]any `json:"state,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// engine writes straight into it; the trace and decisions the assertions
// see are what the store reads back.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	settings := engine.Settings{
		Seed:       scenario.Seed,
		Rules:      scenario.Rules.Apply(game.DefaultRules()),
		Retries:    engine.DefaultRetries,
		Discussion: scenario.Discussion,
		StartTime:  testutil.NewDeterministicClock().Now(),
	}
	if scenario.Retries != nil {
		settings.Retries = *scenario.Retries
	}
	providers := map[string]agent.Provider{}
	for _, id := range scenario.seatIDs() {
		settings.Seats = append(settings.Seats, game.Seat{ID: id})
		providers[id] = agent.NewScripted(scenario.Script[id])
	}

	opts := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithSink(st),
		engine.WithDecisionRecorder(st),
		engine.WithSessionIDs(testutil.NewFixedSessionGenerator(scenario.SessionID)),
	}
	if scenario.HaltAfterRound > 0 {
		opts = append(opts, engine.WithHaltAfterRound(scenario.HaltAfterRound))
	}

	m, err := engine.New(settings, providers, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	raw, err := engine.MarshalSettings(m.Settings())
	if err != nil {
		return nil, err
	}
	if err := st.CreateSession(ctx, store.Session{
		ID:        m.SessionID(),
		Seed:      settings.Seed,
		Settings:  string(raw),
		StartedAt: settings.StartTime.Format(engine.TimestampLayout),
	}); err != nil {
		return nil, err
	}

	res, runErr := m.Run(ctx)
	if runErr != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, runErr)
	}
	if err := st.FinishSession(ctx, res.SessionID, summarize(res)); err != nil {
		return nil, err
	}

	result, err := collect(ctx, st, res)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func summarize(res engine.Result) store.Summary {
	sum := store.Summary{Status: store.StatusFinished, Rounds: res.Rounds}
	if res.Halted {
		sum.Status = store.StatusHalted
	}
	if res.Outcome != nil {
		sum.Winner = string(res.Outcome.Winner)
		sum.Condition = string(res.Outcome.Condition)
	}
	return sum
}

// collect reads the stored session back into a Result.
func collect(ctx context.Context, st *store.Store, res engine.Result) (*Result, error) {
	sess, err := st.ReadSession(ctx, res.SessionID)
	if err != nil {
		return nil, err
	}
	events, err := st.ReadEvents(ctx, res.SessionID)
	if err != nil {
		return nil, err
	}
	decisions, err := st.ReadDecisions(ctx, res.SessionID)
	if err != nil {
		return nil, err
	}
	lastSeq, err := st.GetLastSeq(ctx, res.SessionID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Pass:      true,
		SessionID: res.SessionID,
		Winner:    sess.Winner,
		Condition: sess.Condition,
		Rounds:    res.Rounds,
		Halted:    res.Halted,
		TraceHash: sess.TraceHash,
		Events:    events,
		Decisions: decisions,
		State:     snapshot(res.Final),
	}
	if lastSeq != res.LastSeq {
		result.AddError(fmt.Sprintf("store holds events up to seq %d, engine emitted up to %d", lastSeq, res.LastSeq))
	}
	for _, err := range res.SinkErrors {
		result.AddError(fmt.Sprintf("sink: %v", err))
	}
	return result, nil
}

// snapshot flattens the fields of s that final_state assertions may name.
func snapshot(s game.State) map[string]any {
	out := map[string]any{
		"phase":               string(s.Phase),
		"round":               s.Round,
		"blue":                s.Track.Blue,
		"red":                 s.Track.Red,
		"enacted":             s.Track.Blue + s.Track.Red,
		"failures":            s.Tracker.Failures,
		"draw_pile":           s.Deck.Len(),
		"discard_pile":        len(s.Deck.Discarded),
		"alive":               s.AliveCount(),
		"president":           s.President().ID,
		"nominee":             s.Nominee,
		"previous_president":  s.Previous.President,
		"previous_chancellor": s.Previous.Chancellor,
		"winner":              "",
		"condition":           "",
	}
	if s.Outcome != nil {
		out["winner"] = string(s.Outcome.Winner)
		out["condition"] = string(s.Outcome.Condition)
	}
	return out
}
