package agent

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/roach88/shadowgov/internal/game"
)

var chatter = []string{
	"I have nothing to hide.",
	"Let's see how this vote goes.",
	"That draw was not my fault.",
	"Watch the last government closely.",
	"I trust this table less every round.",
}

// Random picks uniformly among legal options from its own seeded generator,
// so a simulated table is reproducible from its seeds.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a Random provider. Seats sharing a session seed should
// pass distinct seat numbers.
func NewRandom(seed int64, seat int) *Random {
	return &Random{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seat)+1))}
}

// Decide implements Provider.
func (r *Random) Decide(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	kind := req.Schema.Kind
	if kind == game.KindSpeak {
		return Response{Kind: kind, Speech: chatter[r.rng.IntN(len(chatter))]}, nil
	}
	if len(req.Schema.Options) == 0 {
		return Response{}, fmt.Errorf("no options for %s", kind)
	}
	choice := req.Schema.Options[r.rng.IntN(len(req.Schema.Options))]
	return Response{Kind: kind, Choice: choice, Thought: "random pick"}, nil
}
