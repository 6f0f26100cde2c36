package game

import (
	"errors"
	"fmt"
	"slices"
)

// Schema is the legal-action schema for one pending decision.
type Schema struct {
	Player  string
	Kind    Kind
	Phase   Phase
	Round   int
	Options []string
	// Cards are the cards the actor may see for this decision: the
	// legislative hand, or the top of the pile for a peek.
	Cards []Card
}

// Pending lists the players who owe a decision right now, in the order they
// should be asked. Phases that advance on their own return nil.
func Pending(s State) []string {
	if s.Over() {
		return nil
	}
	president := s.President().ID
	switch s.Phase {
	case PhaseNomination, PhaseLegislativePresident, PhaseExecutiveAction:
		return []string{president}
	case PhaseVoting:
		var out []string
		for _, p := range s.SeatOrderFrom(s.PresidentIdx) {
			if _, voted := s.Votes[p.ID]; !voted {
				out = append(out, p.ID)
			}
		}
		return out
	case PhaseLegislativeChancellor:
		if s.VetoProposed {
			return []string{president}
		}
		return []string{s.Nominee}
	}
	return nil
}

// Legal computes the schema for actor's pending decision.
func Legal(s State, actor string) (Schema, error) {
	if s.Over() {
		return Schema{}, ErrGameOver
	}
	if !slices.Contains(Pending(s), actor) {
		return Schema{}, fmt.Errorf("%w: %s in %s", ErrNotYourTurn, actor, s.Phase)
	}
	sc := Schema{Player: actor, Phase: s.Phase, Round: s.Round}
	switch s.Phase {
	case PhaseNomination:
		sc.Kind = KindNominate
		sc.Options = s.EligibleChancellors()
	case PhaseVoting:
		sc.Kind = KindVote
		sc.Options = []string{ChoiceJa, ChoiceNein}
	case PhaseLegislativePresident:
		sc.Kind = KindDiscard
		sc.Options = cardOptions(s.Hand)
		sc.Cards = slices.Clone(s.Hand)
	case PhaseLegislativeChancellor:
		sc.Cards = slices.Clone(s.Hand)
		if s.VetoProposed {
			sc.Kind = KindVetoConsent
			sc.Options = []string{ChoiceReject, ChoiceAccept}
			break
		}
		sc.Kind = KindEnact
		sc.Options = cardOptions(s.Hand)
		if s.VetoUnlocked() && !s.VetoRefused {
			sc.Options = append(sc.Options, ChoiceVeto)
		}
	case PhaseExecutiveAction:
		sc.Kind = powerKind(s.Power)
		sc.Options = s.targets(s.Power)
		if s.Power == PowerPolicyPeek {
			sc.Cards = s.Deck.Peek(3)
		}
	default:
		return Schema{}, fmt.Errorf("%w: no decision in %s", ErrWrongPhase, s.Phase)
	}
	return sc, nil
}

// SpeakSchema is the schema for a discussion turn. Speech is free text.
func SpeakSchema(s State, actor string) Schema {
	return Schema{Player: actor, Kind: KindSpeak, Phase: s.Phase, Round: s.Round}
}

// Check validates a response against its schema without touching state.
func Check(sc Schema, kind Kind, choice string) error {
	if kind != sc.Kind {
		return fmt.Errorf("%w: got %q, want %q", ErrWrongKind, kind, sc.Kind)
	}
	if sc.Kind == KindSpeak {
		return nil
	}
	if !slices.Contains(sc.Options, choice) {
		return fmt.Errorf("%w: %q not in %v", ErrIllegalAction, choice, sc.Options)
	}
	return nil
}

// DefaultChoice is the substitute used when a provider exhausts its
// retries: the first option.
func DefaultChoice(sc Schema) string {
	if len(sc.Options) == 0 {
		return ""
	}
	return sc.Options[0]
}

func powerKind(p Power) Kind {
	switch p {
	case PowerInvestigate:
		return KindInvestigate
	case PowerSpecialElection:
		return KindSpecialElection
	case PowerExecution:
		return KindExecute
	case PowerPolicyPeek:
		return KindPeekAck
	}
	return ""
}

// cardOptions lists the distinct colors in hand, in hand order.
func cardOptions(hand []Card) []string {
	var out []string
	for _, c := range hand {
		if !slices.Contains(out, string(c)) {
			out = append(out, string(c))
		}
	}
	return out
}

// CheckInvariants verifies the structural invariants of s. Any failure
// means the state is corrupt and the session cannot continue.
func CheckInvariants(s State) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...))
	}

	for _, c := range []struct {
		card  Card
		total int
		track int
	}{
		{Blue, s.Rules.BlueCards, s.Track.Blue},
		{Red, s.Rules.RedCards, s.Track.Red},
	} {
		got := s.Deck.Count(c.card) + countCards(s.Hand, c.card) + c.track
		if got != c.total {
			fail("%s cards in circulation %d, want %d", c.card, got, c.total)
		}
	}

	if s.Tracker.Failures < 0 || s.Tracker.Failures >= s.Tracker.Limit {
		fail("tracker %d outside [0,%d)", s.Tracker.Failures, s.Tracker.Limit)
	}

	for id := range s.Votes {
		p, ok := s.Player(id)
		if !ok || !p.Alive {
			fail("vote from ineligible player %s", id)
		}
	}
	if len(s.Votes) > 0 && s.Phase != PhaseVoting {
		fail("%d votes held in %s", len(s.Votes), s.Phase)
	}
	if len(s.Votes) > s.AliveCount() {
		fail("%d votes for %d living players", len(s.Votes), s.AliveCount())
	}

	if s.PresidentIdx < 0 || s.PresidentIdx >= len(s.Players) {
		fail("president seat %d out of range", s.PresidentIdx)
	} else if !s.Over() && !s.Players[s.PresidentIdx].Alive {
		fail("president %s is dead", s.Players[s.PresidentIdx].ID)
	}

	if s.Over() != (s.Phase == PhaseGameOver) {
		fail("phase %s with outcome set=%t", s.Phase, s.Over())
	}

	want := 0
	switch s.Phase {
	case PhaseLegislativePresident:
		want = 3
	case PhaseLegislativeChancellor:
		want = 2
	}
	if len(s.Hand) != want {
		fail("hand of %d cards in %s", len(s.Hand), s.Phase)
	}

	return errors.Join(errs...)
}
