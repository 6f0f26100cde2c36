package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes environment overrides: SHADOWGOV_SEED,
// SHADOWGOV_RULES_RED_CARDS and so on.
const EnvPrefix = "SHADOWGOV"

// Load reads a session file. Priority: environment > file > defaults. An
// empty path loads defaults and environment only.
func Load(path string) (*Session, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Keys with no default still need env binding to be seen by Unmarshal.
	for _, key := range []string{"seed", "session_id", "start_time", "db", "jsonl"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := checkSchema(v.AllSettings(), path); err != nil {
		return nil, err
	}

	cfg := &Session{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SeedSet = v.IsSet("seed")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("players", d.Players)
	v.SetDefault("agent", d.Agent)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("retries", d.Retries)
	v.SetDefault("discussion", false)
	v.SetDefault("halt_after_round", 0)
	v.SetDefault("round_budget", d.RoundBudget)

	r := d.Rules
	v.SetDefault("rules.blue_cards", r.BlueCards)
	v.SetDefault("rules.red_cards", r.RedCards)
	v.SetDefault("rules.blue_to_win", r.BlueToWin)
	v.SetDefault("rules.red_to_win", r.RedToWin)
	v.SetDefault("rules.tracker_limit", r.TrackerLimit)
	v.SetDefault("rules.veto_unlock", r.VetoUnlock)
	v.SetDefault("rules.master_spy_elected_red", r.MasterSpyElectedRed)
	v.SetDefault("rules.master_spy_knows_allies_max", r.MasterSpyKnowsAlliesMax)
}

// checkSchema unifies the merged settings with #Session. Unknown keys and
// out-of-range values fail here, with the file position when CUE has one.
func checkSchema(settings map[string]any, filename string) error {
	data, err := json.Marshal(normalize(settings))
	if err != nil {
		return fmt.Errorf("encode config for schema check: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename(source(filename)))
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Session")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

func source(filename string) string {
	if filename == "" {
		return "environment"
	}
	return filename + " (merged with defaults and environment)"
}

// normalize coerces env-sourced strings to the types the schema expects.
// Environment values always arrive as strings.
func normalize(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, val := range settings {
		switch tv := val.(type) {
		case map[string]any:
			out[k] = normalize(tv)
		case string:
			out[k] = coerce(k, tv)
		default:
			out[k] = val
		}
	}
	return out
}

var stringKeys = map[string]bool{
	"session_id": true, "agent": true, "timeout": true, "start_time": true,
	"db": true, "jsonl": true, "name": true, "id": true,
}

func coerce(key, s string) any {
	if stringKeys[key] {
		return s
	}
	if i, err := json.Number(s).Int64(); err == nil {
		return i
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// formatCUEError reports every schema violation, each with its position
// when CUE has one.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var msgs []error
	for _, e := range errs {
		msg := e.Error()
		if pos := cueerrors.Positions(e); len(pos) > 0 && pos[0].IsValid() {
			msg = fmt.Sprintf("%s: %s", pos[0], msg)
		}
		msgs = append(msgs, errors.New(msg))
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(msgs...))
}
