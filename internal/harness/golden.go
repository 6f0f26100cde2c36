package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/shadowgov/internal/eventlog"
	"github.com/roach88/shadowgov/internal/ir"
)

// GoldenDir is where RunWithGolden keeps fixtures by default.
const GoldenDir = "testdata/golden"

// TraceSnapshot renders events as canonical JSONL, one event per line. This
// is the golden file format and the format of eventlog.JSONL.
func TraceSnapshot(events []ir.Event) ([]byte, error) {
	var buf bytes.Buffer
	sink := eventlog.NewJSONL(&buf)
	for _, ev := range events {
		if err := sink.Append(context.Background(), ev); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file named after the scenario. The golden file lives in GoldenDir unless
// opts override it.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result, opts...); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	trace, err := TraceSnapshot(result.Events)
	if err != nil {
		return err
	}
	g := newGoldie(t, opts...)
	g.Assert(t, name, trace)
	return nil
}

func newGoldie(t *testing.T, opts ...goldie.Option) *goldie.Goldie {
	base := []goldie.Option{
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	}
	return goldie.New(t, append(base, opts...)...)
}
