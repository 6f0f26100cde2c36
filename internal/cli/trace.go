package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shadowgov/internal/harness"
	"github.com/roach88/shadowgov/internal/ir"
	"github.com/roach88/shadowgov/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Player   string // optional - filter to one player
	Type     string // optional - system, action or speech
	Event    string // optional - filter to one game event
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	SessionID string     `json:"session_id"`
	Status    string     `json:"status"`
	Winner    string     `json:"winner,omitempty"`
	Condition string     `json:"condition,omitempty"`
	Rounds    int        `json:"rounds"`
	Timeline  []ir.Event `json:"timeline"`
	Stats     TraceStats `json:"stats"`
}

// TraceStats summarizes the whole stored log, independent of filters.
type TraceStats struct {
	TotalEvents int   `json:"total_events"`
	Shown       int   `json:"shown"`
	Decisions   int   `json:"decisions"`
	Forced      int   `json:"forced"`
	LastSeq     int64 `json:"last_seq"`
	GameOver    bool  `json:"game_over"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the event timeline of a stored session",
		Long: `Show the event timeline of a stored session.

The output includes:
- Header: status, winner and number of rounds
- Timeline: events in seq order, optionally filtered
- Stats: event and decision counts for the whole session

Examples:
  shadowgov trace --db ./games.db --session 0190a1b2-...
  shadowgov trace --db ./games.db --session 0190a1b2-... --player p3
  shadowgov trace --db ./games.db --session 0190a1b2-... --event vote_result --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Player, "player", "", "filter to events about one player")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter by event type (system|action|speech)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "filter by game event name")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	filter := store.EventFilter{Player: opts.Player, Type: ir.EventType(opts.Type), GameEvent: opts.Event}
	if filter.Type != "" && !filter.Type.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid event type %q: must be system, action or speech", opts.Type))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	state, err := st.GetSessionState(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	events, err := st.ReadEventsFiltered(ctx, opts.Session, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	sess := state.Session
	result := TraceResult{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		Winner:    sess.Winner,
		Condition: sess.Condition,
		Rounds:    sess.Rounds,
		Timeline:  events,
		Stats: TraceStats{
			TotalEvents: state.Events,
			Shown:       len(events),
			Decisions:   state.Decisions,
			Forced:      state.Forced,
			LastSeq:     state.LastSeq,
			GameOver:    state.GameOver,
		},
	}

	if f.JSON() {
		return f.Success(result)
	}
	return outputTraceText(f, result)
}

func outputTraceText(f *OutputFormatter, r TraceResult) error {
	w := f.Writer
	fmt.Fprintf(w, "Session: %s (%s)\n", r.SessionID, r.Status)
	if r.Winner != "" {
		fmt.Fprintf(w, "Winner: %s by %s in round %d\n", r.Winner, r.Condition, r.Rounds)
	} else {
		fmt.Fprintf(w, "Rounds: %d\n", r.Rounds)
	}
	fmt.Fprintln(w)

	if len(r.Timeline) == 0 {
		fmt.Fprintln(w, "No matching events.")
	}
	for _, ev := range r.Timeline {
		line, err := timelineLine(ev)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d/%d events shown, %d decisions (%d forced)\n",
		r.Stats.Shown, r.Stats.TotalEvents, r.Stats.Decisions, r.Stats.Forced)
	return nil
}

// timelineLine renders one event as "[seq] rN name player {details} "speech"".
func timelineLine(ev ir.Event) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] r%d %s", ev.Seq, ev.Round, harness.EventName(ev))
	if ev.Player != "" {
		fmt.Fprintf(&b, " %s", ev.Player)
	}
	if ev.ActionDetails != nil {
		details, err := ir.Marshal(ev.ActionDetails)
		if err != nil {
			return "", fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		fmt.Fprintf(&b, " %s", details)
	}
	if ev.Speech != "" {
		fmt.Fprintf(&b, " %q", ev.Speech)
	}
	return b.String(), nil
}
