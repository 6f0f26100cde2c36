package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/shadowgov/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	File    string   `json:"file"`
	Valid   bool     `json:"valid"`
	Players int      `json:"players,omitempty"`
	Seeded  bool     `json:"seeded,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <session.yaml>",
		Short: "Validate a session file without playing it",
		Long: `Validate a session file against the schema and rule checks without
playing a session. SHADOWGOV_* environment overrides are applied, so this
checks exactly what play would load.

Exit codes:
  0 - Session file is valid
  1 - Session file is invalid
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	cfg, err := config.Load(path)
	if err != nil {
		code := "E_CONFIG"
		if !errors.Is(err, config.ErrInvalidConfig) {
			code = "E_CONFIG_READ"
		}
		result := ValidationResult{File: path, Errors: splitErrors(err)}
		if f.JSON() {
			if encErr := f.Result(result, true, code, "session file is invalid"); encErr != nil {
				return encErr
			}
		} else {
			fmt.Fprintf(f.Writer, "%s %s\n", markFail, path)
			for _, msg := range result.Errors {
				fmt.Fprintf(f.Writer, "  %s\n", msg)
			}
		}
		return WrapExitError(ExitFailure, "session file is invalid", err)
	}

	result := ValidationResult{
		File:    path,
		Valid:   true,
		Players: len(cfg.ResolvedSeats()),
		Seeded:  cfg.SeedSet,
	}
	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "%s %s valid (%d players)\n", markPass, path, result.Players)
	if !cfg.SeedSet {
		f.VerboseLog("no seed set; play will draw one")
	}
	return nil
}

// splitErrors flattens a joined config error into one message per line,
// without the shared prefix.
func splitErrors(err error) []string {
	msg := strings.TrimPrefix(err.Error(), config.ErrInvalidConfig.Error()+": ")
	var out []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
