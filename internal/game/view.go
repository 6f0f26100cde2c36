package game

import "slices"

// PublicPlayer is what everyone knows about a seat.
type PublicPlayer struct {
	ID    string
	Name  string
	Alive bool
}

// View is one player's projection of the state: the public board plus that
// player's private knowledge. It never carries another player's role unless
// the viewer is entitled to it.
type View struct {
	Round     int
	Phase     Phase
	Players   []PublicPlayer
	President string
	Nominee   string
	Previous  Government

	BlueEnacted  int
	RedEnacted   int
	Failures     int
	DrawPile     int
	DiscardPile  int
	VetoUnlocked bool

	// Votes is only populated once every living player has voted.
	Votes map[string]bool

	Self       string
	Role       Role
	KnownRoles map[string]Role
	Intel      []Intel
}

// ViewFor projects s for viewer.
func ViewFor(s State, viewer string) View {
	v := View{
		Round:        s.Round,
		Phase:        s.Phase,
		President:    s.President().ID,
		Nominee:      s.Nominee,
		Previous:     s.Previous,
		BlueEnacted:  s.Track.Blue,
		RedEnacted:   s.Track.Red,
		Failures:     s.Tracker.Failures,
		DrawPile:     s.Deck.Len(),
		DiscardPile:  len(s.Deck.Discarded),
		VetoUnlocked: s.VetoUnlocked(),
		Self:         viewer,
		KnownRoles:   KnownRoles(s.Players, viewer, s.Rules),
	}
	for _, p := range s.Players {
		v.Players = append(v.Players, PublicPlayer{ID: p.ID, Name: p.Name, Alive: p.Alive})
	}
	if p, ok := s.Player(viewer); ok {
		v.Role = p.Role
	}
	if s.Phase == PhaseVoting && len(s.Votes) == s.AliveCount() {
		v.Votes = make(map[string]bool, len(s.Votes))
		for id, ja := range s.Votes {
			v.Votes[id] = ja
		}
	}
	for _, it := range s.Intel[viewer] {
		it.Cards = slices.Clone(it.Cards)
		v.Intel = append(v.Intel, it)
	}
	if s.Over() {
		// Roles are public once the game ends.
		for _, p := range s.Players {
			v.KnownRoles[p.ID] = p.Role
		}
	}
	return v
}
