package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func newState(t *testing.T, n int) State {
	t.Helper()
	seats := make([]Seat, n)
	for i := range n {
		seats[i] = Seat{ID: fmt.Sprintf("p%d", i+1)}
	}
	s, err := New("test-session", seats, DefaultRules(), testRNG(1))
	require.NoError(t, err)
	return s
}

// withRoles overrides the dealt roles in seat order.
func withRoles(s State, roles ...Role) State {
	s = s.Clone()
	for i, r := range roles {
		s.Players[i].Role = r
	}
	return s
}

// withTrack sets the enacted counts and rebuilds the draw pile with top
// first, followed by the remaining blue then red cards. The discard pile is
// emptied.
func withTrack(s State, blue, red int, top ...Card) State {
	s = s.Clone()
	s.Track = Track{Blue: blue, Red: red}
	pile := append([]Card{}, top...)
	for range s.Rules.BlueCards - blue - countCards(top, Blue) {
		pile = append(pile, Blue)
	}
	for range s.Rules.RedCards - red - countCards(top, Red) {
		pile = append(pile, Red)
	}
	s.Deck = Deck{Pile: pile}
	return s
}

// elect nominates chancellor and has every living player vote Ja.
func elect(t *testing.T, s State, chancellor string) (State, Report) {
	t.Helper()
	s, _, err := Nominate(s, s.President().ID, chancellor)
	require.NoError(t, err)
	for _, p := range s.Alive() {
		s, _, err = CastVote(s, p.ID, true)
		require.NoError(t, err)
	}
	s, rep, err := TallyVotes(s, testRNG(2))
	require.NoError(t, err)
	return s, rep
}

// reject nominates the first eligible chancellor and votes it down.
func reject(t *testing.T, s State) (State, Report) {
	t.Helper()
	s, _, err := Nominate(s, s.President().ID, s.EligibleChancellors()[0])
	require.NoError(t, err)
	for _, p := range s.Alive() {
		s, _, err = CastVote(s, p.ID, false)
		require.NoError(t, err)
	}
	s, rep, err := TallyVotes(s, testRNG(3))
	require.NoError(t, err)
	require.False(t, rep.Elected)
	return s, rep
}

// legislate runs a formed government through discard and enact.
func legislate(t *testing.T, s State, discard, enact Card) (State, Report) {
	t.Helper()
	s, _, err := BeginLegislative(s, testRNG(4))
	require.NoError(t, err)
	s, _, err = PresidentDiscard(s, s.President().ID, discard)
	require.NoError(t, err)
	s, rep, err := ChancellorEnact(s, s.Nominee, enact)
	require.NoError(t, err)
	return s, rep
}
