package agent

import (
	"context"
	"sync"

	"github.com/roach88/shadowgov/internal/game"
)

// Scripted answers from fixed per-kind queues. When a queue runs dry it
// falls back to the first legal option, and speech falls back to silence.
type Scripted struct {
	mu     sync.Mutex
	script map[game.Kind][]string
	used   map[game.Kind]int
}

// NewScripted builds a provider from kind -> ordered choices. For the speak
// kind the entries are the speeches.
func NewScripted(script map[game.Kind][]string) *Scripted {
	copied := make(map[game.Kind][]string, len(script))
	for k, v := range script {
		copied[k] = append([]string(nil), v...)
	}
	return &Scripted{script: copied, used: map[game.Kind]int{}}
}

// Decide implements Provider.
func (s *Scripted) Decide(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	kind := req.Schema.Kind

	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.script[kind]
	idx := s.used[kind]
	if idx >= len(queue) {
		if kind == game.KindSpeak {
			return Response{Kind: kind}, nil
		}
		return Response{Kind: kind, Choice: game.DefaultChoice(req.Schema)}, nil
	}
	s.used[kind] = idx + 1

	if kind == game.KindSpeak {
		return Response{Kind: kind, Speech: queue[idx]}, nil
	}
	return Response{Kind: kind, Choice: queue[idx]}, nil
}

// Remaining reports how many scripted entries were never consumed.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, queue := range s.script {
		n += max(0, len(queue)-s.used[k])
	}
	return n
}
