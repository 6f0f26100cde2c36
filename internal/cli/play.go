package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/shadowgov/internal/config"
	"github.com/roach88/shadowgov/internal/engine"
	"github.com/roach88/shadowgov/internal/eventlog"
	"github.com/roach88/shadowgov/internal/ir"
	"github.com/roach88/shadowgov/internal/store"
)

// PlayOptions holds flags for the play command. Flags that are set win over
// the session file.
type PlayOptions struct {
	*RootOptions
	Config     string
	Seed       int64
	Players    int
	Agent      string
	Database   string
	JSONL      string
	Discussion bool
	Halt       int
}

// PlayResult summarizes a played session.
type PlayResult struct {
	SessionID string `json:"session_id"`
	Seed      int64  `json:"seed"`
	Players   int    `json:"players"`
	Winner    string `json:"winner,omitempty"`
	Condition string `json:"condition,omitempty"`
	Rounds    int    `json:"rounds"`
	Halted    bool   `json:"halted"`
	Events    int    `json:"events"`
	TraceHash string `json:"trace_hash"`
	// SinkErrors lists storage failures; the session itself still ran.
	SinkErrors []string `json:"sink_errors,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one session with built-in agents",
		Long: `Play one session to the end with built-in agents.

Settings come from the session file (--config), then SHADOWGOV_*
environment variables, then the flags below. Without a seed a random one is
drawn and printed, so the session can be reproduced.

Exit codes:
  0 - Session finished or halted
  1 - Session aborted (state corruption or interrupt)
  2 - Command error (bad config, database not writable, etc.)

Examples:
  shadowgov play --seed 42
  shadowgov play --players 7 --agent first --db ./games.db
  shadowgov play --config session.yaml --jsonl session.jsonl --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "session file (YAML)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "session seed")
	cmd.Flags().IntVar(&opts.Players, "players", config.DefaultPlayers, "number of players (5-10)")
	cmd.Flags().StringVar(&opts.Agent, "agent", config.DefaultAgent, "built-in agent for every seat (random|first)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the session in this SQLite database")
	cmd.Flags().StringVar(&opts.JSONL, "jsonl", "", "write events to this JSONL file")
	cmd.Flags().BoolVar(&opts.Discussion, "discussion", false, "give players speech turns")
	cmd.Flags().IntVar(&opts.Halt, "halt-after-round", 0, "stop cleanly after this round")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadPlayConfig(opts, cmd)
	if err != nil {
		if f.JSON() {
			_ = f.Error("E_CONFIG", err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "invalid session config", err)
	}
	settings, err := cfg.Settings(now())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid session config", err)
	}
	providers, err := cfg.Providers()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid session config", err)
	}

	memory := eventlog.NewMemory()
	engineOpts := []engine.Option{
		engine.WithLogger(slog.Default()),
		engine.WithSink(memory),
	}
	engineOpts = append(engineOpts, cfg.EngineOptions()...)

	if cfg.JSONL != "" {
		file, err := os.Create(cfg.JSONL)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create JSONL file", err)
		}
		defer file.Close()
		engineOpts = append(engineOpts, engine.WithSink(eventlog.NewJSONL(file)))
	}

	var st *store.Store
	if cfg.DB != "" {
		st, err = store.Open(cfg.DB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		engineOpts = append(engineOpts, engine.WithSink(st), engine.WithDecisionRecorder(st))
	}

	m, err := engine.New(settings, providers, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if st != nil {
		if err := createStoredSession(ctx, st, m, cfg.Seed); err != nil {
			return WrapExitError(ExitCommandError, "failed to record session", err)
		}
	}

	res, runErr := m.Run(ctx)
	if st != nil {
		if err := st.FinishSession(context.WithoutCancel(ctx), res.SessionID, summarize(res, runErr)); err != nil {
			slog.Error("failed to finish stored session", "session", res.SessionID, "error", err)
		}
	}

	hash, err := ir.TraceHash(memory.Events())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to hash trace", err)
	}
	result := PlayResult{
		SessionID: res.SessionID,
		Seed:      res.Seed,
		Players:   len(settings.Seats),
		Rounds:    res.Rounds,
		Halted:    res.Halted,
		Events:    res.Events,
		TraceHash: hash,
	}
	if res.Outcome != nil {
		result.Winner = string(res.Outcome.Winner)
		result.Condition = string(res.Outcome.Condition)
	}
	for _, e := range res.SinkErrors {
		result.SinkErrors = append(result.SinkErrors, e.Error())
	}

	if f.JSON() {
		msg, code := "", "E_SESSION_ABORTED"
		if runErr != nil {
			msg = runErr.Error()
			if c := engine.CodeOf(runErr); c != "" {
				code = "E_" + string(c)
			}
		}
		if err := f.Result(result, runErr != nil, code, msg); err != nil {
			return err
		}
	} else {
		outputPlayText(f, result, runErr)
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "session aborted", runErr)
	}
	return nil
}

// loadPlayConfig reads the session file and applies the flags that were
// set explicitly.
func loadPlayConfig(opts *PlayOptions, cmd *cobra.Command) (*config.Session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = opts.Seed
		cfg.SeedSet = true
	}
	if flags.Changed("players") {
		cfg.Players = opts.Players
		cfg.Seats = nil
	}
	if flags.Changed("agent") {
		cfg.Agent = opts.Agent
		for i := range cfg.Seats {
			cfg.Seats[i].Agent = ""
		}
	}
	if flags.Changed("db") {
		cfg.DB = opts.Database
	}
	if flags.Changed("jsonl") {
		cfg.JSONL = opts.JSONL
	}
	if flags.Changed("discussion") {
		cfg.Discussion = opts.Discussion
	}
	if flags.Changed("halt-after-round") {
		cfg.HaltAfterRound = opts.Halt
	}

	if !cfg.SeedSet {
		seed, err := engine.NewSeed()
		if err != nil {
			return nil, err
		}
		cfg.Seed = seed
		cfg.SeedSet = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createStoredSession(ctx context.Context, st *store.Store, m *engine.Machine, seed int64) error {
	settings := m.Settings()
	raw, err := engine.MarshalSettings(settings)
	if err != nil {
		return err
	}
	return st.CreateSession(ctx, store.Session{
		ID:        m.SessionID(),
		Seed:      seed,
		Settings:  string(raw),
		StartedAt: settings.StartTime.UTC().Format(engine.TimestampLayout),
	})
}

func summarize(res engine.Result, runErr error) store.Summary {
	sum := store.Summary{Status: store.StatusFinished, Rounds: res.Rounds}
	switch {
	case runErr != nil:
		sum.Status = store.StatusAborted
	case res.Halted:
		sum.Status = store.StatusHalted
	}
	if res.Outcome != nil {
		sum.Winner = string(res.Outcome.Winner)
		sum.Condition = string(res.Outcome.Condition)
	}
	return sum
}

func outputPlayText(f *OutputFormatter, r PlayResult, runErr error) {
	w := f.Writer
	fmt.Fprintf(w, "Session %s (seed %d, %d players)\n", r.SessionID, r.Seed, r.Players)
	switch {
	case runErr != nil:
		fmt.Fprintf(w, "%s Aborted in round %d: %v\n", markFail, r.Rounds, runErr)
	case r.Halted:
		fmt.Fprintf(w, "%s Halted after round %d\n", markPass, r.Rounds)
	default:
		fmt.Fprintf(w, "%s %s win (%s) in round %d\n", markPass, r.Winner, r.Condition, r.Rounds)
	}
	fmt.Fprintf(w, "  Events: %d\n", r.Events)
	fmt.Fprintf(w, "  Trace:  %s\n", r.TraceHash)
	for _, e := range r.SinkErrors {
		fmt.Fprintf(w, "  Warning: %s\n", e)
	}
}

// cmdContext returns the command's context, or Background when run outside
// Execute (as some tests do).
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
