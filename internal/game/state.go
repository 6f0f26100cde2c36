package game

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
)

// State is the complete game state. Transitions never mutate their input;
// they return a modified clone.
type State struct {
	SessionID string
	Rules     Rules
	Round     int
	Phase     Phase
	Players   []Player

	// PresidentIdx is the seat of the current president.
	PresidentIdx int
	// SpecialIdx is the seat chosen by a special election, or -1.
	SpecialIdx int
	// ResumeIdx is the seat of the president who called a special election,
	// or -1. Rotation continues from the seat after it.
	ResumeIdx int

	Nominee string
	Votes   map[string]bool

	// Previous is the last elected government; its members are term-limited.
	Previous Government

	Deck    Deck
	Track   Track
	Tracker Tracker

	// Hand holds the cards of an open legislative session.
	Hand         []Card
	VetoProposed bool
	VetoRefused  bool

	// Power is the executive power awaiting the president's decision.
	Power Power

	Investigated map[string]bool
	Intel        map[string][]Intel

	Outcome *Outcome
}

// New deals roles and builds the shuffled deck. Roles are dealt before the
// deck is shuffled, so the same rng seed always yields the same setup.
// The first president is seat 0.
func New(sessionID string, seats []Seat, rules Rules, rng *rand.Rand) (State, error) {
	if err := rules.Validate(); err != nil {
		return State{}, err
	}
	seen := make(map[string]bool, len(seats))
	for _, s := range seats {
		if s.ID == "" || seen[s.ID] {
			return State{}, fmt.Errorf("%w: %q", ErrDuplicateSeats, s.ID)
		}
		seen[s.ID] = true
	}
	roles, err := AssignRoles(len(seats), rng)
	if err != nil {
		return State{}, err
	}

	players := make([]Player, len(seats))
	for i, s := range seats {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		players[i] = Player{ID: s.ID, Name: name, Role: roles[i], Alive: true}
	}

	return State{
		SessionID:    sessionID,
		Rules:        rules,
		Round:        1,
		Phase:        PhaseNomination,
		Players:      players,
		PresidentIdx: 0,
		SpecialIdx:   -1,
		ResumeIdx:    -1,
		Deck:         NewDeck(rules.BlueCards, rules.RedCards, rng),
		Tracker:      Tracker{Limit: rules.TrackerLimit},
		Investigated: map[string]bool{},
		Intel:        map[string][]Intel{},
	}, nil
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Votes = maps.Clone(s.Votes)
	c.Deck = s.Deck.clone()
	c.Hand = slices.Clone(s.Hand)
	c.Investigated = make(map[string]bool, len(s.Investigated))
	maps.Copy(c.Investigated, s.Investigated)
	c.Intel = make(map[string][]Intel, len(s.Intel))
	for id, items := range s.Intel {
		cloned := make([]Intel, len(items))
		for i, it := range items {
			it.Cards = slices.Clone(it.Cards)
			cloned[i] = it
		}
		c.Intel[id] = cloned
	}
	if s.Outcome != nil {
		o := *s.Outcome
		c.Outcome = &o
	}
	return c
}

// Over reports whether the game has ended.
func (s State) Over() bool {
	return s.Outcome != nil
}

// President returns the current president.
func (s State) President() Player {
	return s.Players[s.PresidentIdx]
}

// Chancellor returns the nominee or sitting chancellor, if any.
func (s State) Chancellor() (Player, bool) {
	return s.Player(s.Nominee)
}

// Player looks up a player by id.
func (s State) Player(id string) (Player, bool) {
	idx := s.index(id)
	if idx < 0 {
		return Player{}, false
	}
	return s.Players[idx], true
}

// Alive returns the living players in seat order.
func (s State) Alive() []Player {
	var out []Player
	for _, p := range s.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// AliveCount returns the number of living players.
func (s State) AliveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Alive {
			n++
		}
	}
	return n
}

// VetoUnlocked reports whether the Red track has reached the veto threshold.
func (s State) VetoUnlocked() bool {
	return s.Track.Red >= s.Rules.VetoUnlock
}

// SeatOrderFrom returns living players in seat order starting at seat start.
func (s State) SeatOrderFrom(start int) []Player {
	n := len(s.Players)
	out := make([]Player, 0, n)
	for i := range n {
		p := s.Players[(start+i)%n]
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

func (s State) index(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool { return p.ID == id })
}

// nextAlive returns the first living seat after seat from.
func (s State) nextAlive(from int) int {
	n := len(s.Players)
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if s.Players[idx].Alive {
			return idx
		}
	}
	return from
}

// EligibleChancellors lists nominees the current president may pick, in seat
// order. Members of the last elected government are excluded while at least
// three players are alive; the exclusion is waived if it would leave no
// candidate at all.
func (s State) EligibleChancellors() []string {
	president := s.President().ID
	limited := s.AliveCount() >= 3
	var strict, relaxed []string
	for _, p := range s.Alive() {
		if p.ID == president {
			continue
		}
		relaxed = append(relaxed, p.ID)
		if limited && s.Previous.Includes(p.ID) {
			continue
		}
		strict = append(strict, p.ID)
	}
	if len(strict) == 0 {
		return relaxed
	}
	return strict
}
