package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/shadowgov/internal/game"
	"github.com/roach88/shadowgov/internal/ir"
)

// ErrReplayDiverged is returned when a replayed session asks for a decision
// the recording does not hold.
var ErrReplayDiverged = errors.New("replay diverged from recording")

// Recorded replays a session's decision log in order. One instance serves
// every seat. Forced entries are skipped: the engine re-derives them.
type Recorded struct {
	mu        sync.Mutex
	decisions []ir.Decision
	next      int
	err       error
}

// NewRecorded creates a replay provider from the ordered decision log.
func NewRecorded(decisions []ir.Decision) *Recorded {
	var kept []ir.Decision
	for _, d := range decisions {
		if d.Outcome != ir.OutcomeForced {
			kept = append(kept, d)
		}
	}
	return &Recorded{decisions: kept}
}

// Decide implements Provider. It reproduces the original answer, including
// timeouts and provider errors, so the engine takes the same path.
func (r *Recorded) Decide(ctx context.Context, req Request) (Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.decisions) {
		return Response{}, r.diverge(fmt.Errorf("%w: no decision left for %s", ErrReplayDiverged, req.PlayerID))
	}
	d := r.decisions[r.next]
	r.next++

	if d.Player != req.PlayerID {
		return Response{}, r.diverge(fmt.Errorf("%w: decision %d belongs to %s, asked %s", ErrReplayDiverged, d.Seq, d.Player, req.PlayerID))
	}

	switch {
	case d.Outcome == ir.OutcomeTimeout:
		return Response{}, context.DeadlineExceeded
	case d.Error != "":
		return Response{}, errors.New(d.Error)
	}
	return Response{
		Kind:    game.Kind(d.Kind),
		Choice:  d.Choice,
		Speech:  d.Speech,
		Thought: d.Thought,
		Raw:     d.Raw,
	}, nil
}

func (r *Recorded) diverge(err error) error {
	if r.err == nil {
		r.err = err
	}
	return err
}

// Err returns the first divergence seen, if any.
func (r *Recorded) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Remaining reports how many recorded decisions were not replayed.
func (r *Recorded) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.decisions) - r.next
}
