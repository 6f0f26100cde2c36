package harness

import (
	"fmt"
	"path/filepath"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Results  []ScenarioOutcome `json:"results"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioOutcome is one scenario's line in a suite report.
type ScenarioOutcome struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Pass      bool   `json:"pass"`
	Winner    string `json:"winner,omitempty"`
	Rounds    int    `json:"rounds"`
	TraceHash string `json:"trace_hash,omitempty"`
}

// ScenarioFailure explains why a scenario failed.
type ScenarioFailure struct {
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}

// RunDir loads and runs every scenario in dir. A scenario that fails to
// load or run counts as failed; RunDir itself only fails when dir can't be
// listed or holds no scenarios.
func RunDir(dir string) (*SuiteResult, error) {
	files, err := ScenarioFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenarios in %s", dir)
	}

	suite := &SuiteResult{}
	for _, path := range files {
		suite.Total++
		outcome := ScenarioOutcome{Name: filepath.Base(path), Path: path}

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail(outcome, err.Error())
			continue
		}
		outcome.Name = scenario.Name

		result, err := Run(scenario)
		if err != nil {
			suite.fail(outcome, err.Error())
			continue
		}
		outcome.Winner = result.Winner
		outcome.Rounds = result.Rounds
		outcome.TraceHash = result.TraceHash
		if !result.Pass {
			suite.fail(outcome, result.Errors...)
			continue
		}
		outcome.Pass = true
		suite.Passed++
		suite.Results = append(suite.Results, outcome)
	}
	return suite, nil
}

func (s *SuiteResult) fail(outcome ScenarioOutcome, errs ...string) {
	s.Failed++
	s.Results = append(s.Results, outcome)
	s.Failures = append(s.Failures, ScenarioFailure{Path: outcome.Path, Errors: errs})
}
