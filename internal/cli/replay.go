package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/shadowgov/internal/agent"
	"github.com/roach88/shadowgov/internal/engine"
	"github.com/roach88/shadowgov/internal/eventlog"
	"github.com/roach88/shadowgov/internal/ir"
	"github.com/roach88/shadowgov/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	SessionID      string `json:"session_id"`
	Status         string `json:"status"`
	Events         int    `json:"events"`
	ReplayedEvents int    `json:"replayed_events"`
	Decisions      int    `json:"decisions"`
	StoredHash     string `json:"stored_hash"`
	ReplayedHash   string `json:"replayed_hash,omitempty"`
	Deterministic  bool   `json:"deterministic"`
	// Skipped is set for sessions that never stopped; there is nothing
	// complete to compare against.
	Skipped bool `json:"skipped,omitempty"`
	// FirstDivergence is the seq of the first event that differs.
	FirstDivergence int64  `json:"first_divergence,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay stored sessions and verify determinism",
		Long: `Replay stored sessions from their settings and decision log, and verify
that the engine reproduces the stored event log exactly.

Each session is re-run with its stored seed and rules; every player answer
comes from the recorded decisions. The replayed trace hash must match the
hash of the stored events.

Exit codes:
  0 - All sessions replay identically
  1 - A session diverged
  2 - Command error (database not found, etc.)

Examples:
  shadowgov replay --db ./games.db
  shadowgov replay --db ./games.db --session 0190a1b2-...
  shadowgov replay --db ./games.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.ReadSession(ctx, opts.Session)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	if len(sessions) == 0 && !f.JSON() {
		fmt.Fprintln(f.Writer, "No sessions found in database.")
		return nil
	}

	for _, sess := range sessions {
		r, err := replaySession(ctx, st, sess, opts.Verbose)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		f.VerboseLog("Session %s: %d events, %d decisions", r.SessionID, r.Events, r.Decisions)
		if !r.Deterministic {
			result.AllDeterministic = false
		}
		result.Sessions = append(result.Sessions, r)
	}

	if f.JSON() {
		if err := f.Result(result, !result.AllDeterministic, "E_REPLAY_DIVERGED", "replay diverged from stored events"); err != nil {
			return err
		}
	} else {
		outputReplayText(f, result)
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from stored events")
	}
	return nil
}

// replaySession re-runs one stored session against its decision log. A
// returned error means the session could not be replayed at all; a
// divergence is reported in the result.
func replaySession(ctx context.Context, st *store.Store, sess store.Session, verbose bool) (ReplaySessionResult, error) {
	r := ReplaySessionResult{SessionID: sess.ID, Status: string(sess.Status)}

	stored, err := st.ReadEvents(ctx, sess.ID)
	if err != nil {
		return r, err
	}
	decisions, err := st.ReadDecisions(ctx, sess.ID)
	if err != nil {
		return r, err
	}
	r.Events = len(stored)
	r.Decisions = len(decisions)
	if r.StoredHash, err = ir.TraceHash(stored); err != nil {
		return r, err
	}
	if sess.Status == store.StatusRunning {
		r.Skipped = true
		r.Deterministic = true
		r.Reason = "session never finished"
		return r, nil
	}

	settings, err := engine.UnmarshalSettings([]byte(sess.Settings))
	if err != nil {
		return r, err
	}
	recorded := agent.NewRecorded(decisions)
	providers := make(map[string]agent.Provider, len(settings.Seats))
	for _, seat := range settings.Seats {
		providers[seat.ID] = recorded
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.Default()
	}
	memory := eventlog.NewMemory()
	engineOpts := []engine.Option{engine.WithLogger(logger), engine.WithSink(memory)}
	if sess.Status == store.StatusHalted {
		engineOpts = append(engineOpts, engine.WithHaltAfterRound(sess.Rounds))
	}
	m, err := engine.New(settings, providers, engineOpts...)
	if err != nil {
		return r, err
	}
	_, runErr := m.Run(ctx)
	if runErr != nil && !engine.IsStateCorruption(runErr) {
		return r, runErr
	}

	replayed := memory.Events()
	r.ReplayedEvents = len(replayed)
	if r.ReplayedHash, err = ir.TraceHash(replayed); err != nil {
		return r, err
	}
	if sess.Status == store.StatusAborted {
		// An aborted session stopped early (interrupt or corruption) so
		// the replay runs past it; only the stored prefix must match.
		prefix := stored
		if n := len(prefix); n > 0 && prefix[n-1].GameEvent == "state_corruption" {
			prefix = prefix[:n-1]
		}
		if seq := firstDivergence(prefix, replayed[:min(len(prefix), len(replayed))]); seq != 0 {
			r.FirstDivergence = seq
			r.Reason = "stored prefix not reproduced"
			return r, nil
		}
		r.Deterministic = true
		return r, nil
	}

	r.Deterministic = r.ReplayedHash == r.StoredHash
	switch {
	case recorded.Err() != nil:
		r.Deterministic = false
		r.Reason = recorded.Err().Error()
	case recorded.Remaining() > 0:
		r.Deterministic = false
		r.Reason = fmt.Sprintf("%d recorded decisions not replayed", recorded.Remaining())
	case !r.Deterministic:
		r.Reason = "trace hash mismatch"
	}
	if !r.Deterministic {
		r.FirstDivergence = firstDivergence(stored, replayed)
	}
	return r, nil
}

// firstDivergence returns the seq of the first position where the two
// traces differ, or 0 when one is a prefix of the other and equal length.
func firstDivergence(a, b []ir.Event) int64 {
	n := min(len(a), len(b))
	for i := range n {
		if a[i].ID != b[i].ID {
			return a[i].Seq
		}
	}
	switch {
	case len(a) > n:
		return a[n].Seq
	case len(b) > n:
		return b[n].Seq
	}
	return 0
}

func outputReplayText(f *OutputFormatter, result ReplayResult) {
	w := f.Writer
	fmt.Fprintf(w, "Replaying %d session(s)...\n\n", result.TotalSessions)

	for _, r := range result.Sessions {
		switch {
		case r.Skipped:
			fmt.Fprintf(w, "- %s (skipped: %s)\n", r.SessionID, r.Reason)
		case r.Deterministic:
			fmt.Fprintf(w, "%s %s (%s)\n", markPass, r.SessionID, r.Status)
		default:
			fmt.Fprintf(w, "%s %s (%s)\n", markFail, r.SessionID, r.Status)
		}
		fmt.Fprintf(w, "  Events: %d stored, %d replayed\n", r.Events, r.ReplayedEvents)
		fmt.Fprintf(w, "  Decisions: %d\n", r.Decisions)
		if !r.Deterministic {
			fmt.Fprintf(w, "  Diverged at seq %d: %s\n", r.FirstDivergence, r.Reason)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintf(w, "%s All sessions replay deterministically\n", markPass)
	} else {
		fmt.Fprintf(w, "%s Replay diverged\n", markFail)
	}
}

