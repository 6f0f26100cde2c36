package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shadowgov/internal/game"
)

// Scenario is one scripted session with assertions on its trace.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// SessionID defaults to testutil.DefaultSessionID.
	SessionID string `yaml:"session_id,omitempty"`
	Seed      int64  `yaml:"seed"`
	// Players defaults to 5.
	Players    int            `yaml:"players,omitempty"`
	Rules      *RuleOverrides `yaml:"rules,omitempty"`
	Discussion bool           `yaml:"discussion,omitempty"`
	// Retries defaults to engine.DefaultRetries.
	Retries        *int `yaml:"retries,omitempty"`
	HaltAfterRound int  `yaml:"halt_after_round,omitempty"`

	// Script maps player -> decision kind -> ordered choices. For speak the
	// entries are speeches.
	Script map[string]map[game.Kind][]string `yaml:"script,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// RuleOverrides replaces individual default rules.
type RuleOverrides struct {
	BlueCards               *int `yaml:"blue_cards,omitempty"`
	RedCards                *int `yaml:"red_cards,omitempty"`
	BlueToWin               *int `yaml:"blue_to_win,omitempty"`
	RedToWin                *int `yaml:"red_to_win,omitempty"`
	TrackerLimit            *int `yaml:"tracker_limit,omitempty"`
	VetoUnlock              *int `yaml:"veto_unlock,omitempty"`
	MasterSpyElectedRed     *int `yaml:"master_spy_elected_red,omitempty"`
	MasterSpyKnowsAlliesMax *int `yaml:"master_spy_knows_allies_max,omitempty"`
}

// Apply returns base with the overrides set.
func (o *RuleOverrides) Apply(base game.Rules) game.Rules {
	if o == nil {
		return base
	}
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.BlueCards, o.BlueCards)
	set(&base.RedCards, o.RedCards)
	set(&base.BlueToWin, o.BlueToWin)
	set(&base.RedToWin, o.RedToWin)
	set(&base.TrackerLimit, o.TrackerLimit)
	set(&base.VetoUnlock, o.VetoUnlock)
	set(&base.MasterSpyElectedRed, o.MasterSpyElectedRed)
	set(&base.MasterSpyKnowsAlliesMax, o.MasterSpyKnowsAlliesMax)
	return base
}

// Assertion checks the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is the event name (event_contains, event_count).
	Event string `yaml:"event,omitempty"`

	// Player restricts event_contains to one player.
	Player string `yaml:"player,omitempty"`

	// Details are matched as a subset of action_details (event_contains).
	Details map[string]any `yaml:"details,omitempty"`

	// Count is the exact number of occurrences (event_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected order of first occurrences (event_order).
	Events []string `yaml:"events,omitempty"`

	// Expect is matched as a subset of the final state (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Winner and Condition describe the outcome (winner).
	Winner    string `yaml:"winner,omitempty"`
	Condition string `yaml:"condition,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertFinalState    = "final_state"
	AssertWinner        = "winner"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ScenarioFiles lists the *.yaml and *.yml files in dir, sorted.
func ScenarioFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("list scenarios: %w", err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}

func (s *Scenario) players() int {
	if s.Players == 0 {
		return game.MinPlayers
	}
	return s.Players
}

// seatIDs returns p1..pN.
func (s *Scenario) seatIDs() []string {
	ids := make([]string, s.players())
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i+1)
	}
	return ids
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if n := s.players(); n < game.MinPlayers || n > game.MaxPlayers {
		return fmt.Errorf("players must be in [%d,%d], got %d", game.MinPlayers, game.MaxPlayers, n)
	}
	if s.Retries != nil && *s.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if s.HaltAfterRound < 0 {
		return fmt.Errorf("halt_after_round must not be negative")
	}
	if err := s.Rules.Apply(game.DefaultRules()).Validate(); err != nil {
		return err
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seats := s.seatIDs()
	for player, kinds := range s.Script {
		if !slices.Contains(seats, player) {
			return fmt.Errorf("script: unknown player %q (seats are %v)", player, seats)
		}
		for kind := range kinds {
			if !kind.Valid() {
				return fmt.Errorf("script[%s]: unknown decision kind %q", player, kind)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertWinner:
		if a.Winner == "" {
			return fmt.Errorf("assertions[%d]: winner is required for winner", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
