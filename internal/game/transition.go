package game

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
)

// Report describes what a transition did, for the caller to log.
type Report struct {
	Votes      map[string]bool
	Ja         int
	Nein       int
	Elected    bool
	Chaos      bool
	Enacted    Card
	Discarded  []Card
	Reshuffled bool

	VetoProposed bool
	VetoAccepted bool
	VetoRefused  bool

	// Power is the executive power unlocked by this enactment.
	Power  Power
	Target string
	Team   Team
	Peeked []Card

	Outcome *Outcome
}

// begin guards a transition: the game must be running and in phase. The
// returned state is a clone the caller may modify.
func begin(s State, phase Phase) (State, error) {
	if s.Over() {
		return s, ErrGameOver
	}
	if s.Phase != phase {
		return s, fmt.Errorf("%w: in %s, want %s", ErrWrongPhase, s.Phase, phase)
	}
	return s.Clone(), nil
}

func requireActor(actor, want string) error {
	if actor != want {
		return fmt.Errorf("%w: %s is not %s", ErrNotYourTurn, actor, want)
	}
	return nil
}

// Nominate records the president's chancellor pick and opens the vote.
func Nominate(s State, president, chancellor string) (State, Report, error) {
	next, err := begin(s, PhaseNomination)
	if err != nil {
		return s, Report{}, err
	}
	if err := requireActor(president, next.President().ID); err != nil {
		return s, Report{}, err
	}
	if !slices.Contains(next.EligibleChancellors(), chancellor) {
		return s, Report{}, fmt.Errorf("%w: %s is not an eligible chancellor", ErrIllegalAction, chancellor)
	}
	next.Nominee = chancellor
	next.Votes = map[string]bool{}
	next.Phase = PhaseVoting
	return next, Report{}, nil
}

// CastVote records one living player's Ja (true) or Nein (false).
func CastVote(s State, player string, ja bool) (State, Report, error) {
	next, err := begin(s, PhaseVoting)
	if err != nil {
		return s, Report{}, err
	}
	p, ok := next.Player(player)
	if !ok {
		return s, Report{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, player)
	}
	if !p.Alive {
		return s, Report{}, fmt.Errorf("%w: %s is dead", ErrNotYourTurn, player)
	}
	if _, voted := next.Votes[player]; voted {
		return s, Report{}, fmt.Errorf("%w: %s already voted", ErrIllegalAction, player)
	}
	next.Votes[player] = ja
	return next, Report{}, nil
}

// TallyVotes closes the vote once every living player has voted. A strict
// majority of the living elects the government; a tie rejects it. A
// rejection advances the tracker and may force a chaos enactment.
func TallyVotes(s State, rng *rand.Rand) (State, Report, error) {
	next, err := begin(s, PhaseVoting)
	if err != nil {
		return s, Report{}, err
	}
	alive := next.AliveCount()
	if len(next.Votes) != alive {
		return s, Report{}, fmt.Errorf("%w: %d of %d votes cast", ErrWrongPhase, len(next.Votes), alive)
	}

	rep := Report{Votes: maps.Clone(next.Votes)}
	for _, ja := range next.Votes {
		if ja {
			rep.Ja++
		} else {
			rep.Nein++
		}
	}
	rep.Elected = 2*rep.Ja > alive
	// The ballot lives on in rep.Votes; an execution later this round must
	// not leave a dead voter behind.
	next.Votes = nil

	if rep.Elected {
		next.Tracker = next.Tracker.RecordSuccess()
		next.Previous = Government{President: next.President().ID, Chancellor: next.Nominee}
		next.Phase = PhaseGovernmentFormed
		next.settle(&rep, true)
		return next, rep, nil
	}

	next.Phase = PhaseGovernmentRejected
	if err := next.recordFailure(&rep, rng); err != nil {
		return s, Report{}, err
	}
	return next, rep, nil
}

// BeginLegislative draws three cards into the president's hand.
func BeginLegislative(s State, rng *rand.Rand) (State, Report, error) {
	next, err := begin(s, PhaseGovernmentFormed)
	if err != nil {
		return s, Report{}, err
	}
	deck, drawn, reshuffled, err := next.Deck.Draw(3, rng)
	if err != nil {
		return s, Report{}, err
	}
	next.Deck = deck
	next.Hand = drawn
	next.Phase = PhaseLegislativePresident
	return next, Report{Reshuffled: reshuffled}, nil
}

// PresidentDiscard removes one card from the hand and passes the rest on.
func PresidentDiscard(s State, president string, card Card) (State, Report, error) {
	next, err := begin(s, PhaseLegislativePresident)
	if err != nil {
		return s, Report{}, err
	}
	if err := requireActor(president, next.President().ID); err != nil {
		return s, Report{}, err
	}
	hand, ok := removeCard(next.Hand, card)
	if !ok {
		return s, Report{}, fmt.Errorf("%w: %q is not in hand", ErrIllegalAction, card)
	}
	next.Hand = hand
	next.Deck = next.Deck.Discard(card)
	next.Phase = PhaseLegislativeChancellor
	return next, Report{Discarded: []Card{card}}, nil
}

// ChancellorEnact enacts card and discards the remaining one. A Red
// enactment that lands on a power slot opens the executive action.
func ChancellorEnact(s State, chancellor string, card Card) (State, Report, error) {
	next, err := begin(s, PhaseLegislativeChancellor)
	if err != nil {
		return s, Report{}, err
	}
	if next.VetoProposed {
		return s, Report{}, fmt.Errorf("%w: veto awaits the president", ErrNotYourTurn)
	}
	if err := requireActor(chancellor, next.Nominee); err != nil {
		return s, Report{}, err
	}
	rest, ok := removeCard(next.Hand, card)
	if !ok {
		return s, Report{}, fmt.Errorf("%w: %q is not in hand", ErrIllegalAction, card)
	}
	next.Deck = next.Deck.Discard(rest...)
	next.Hand = nil
	next.Track = next.Track.Enact(card)

	rep := Report{Enacted: card, Discarded: rest}
	next.Phase = PhaseRoundEnd
	if next.settle(&rep, false) {
		return next, rep, nil
	}
	if card == Red {
		power := PowerFor(len(next.Players), next.Track.Red)
		if power != PowerNone && len(next.targets(power)) > 0 {
			next.Power = power
			next.Phase = PhaseExecutiveAction
			rep.Power = power
		}
	}
	return next, rep, nil
}

// ProposeVeto asks the president to discard the whole hand.
func ProposeVeto(s State, chancellor string) (State, Report, error) {
	next, err := begin(s, PhaseLegislativeChancellor)
	if err != nil {
		return s, Report{}, err
	}
	if err := requireActor(chancellor, next.Nominee); err != nil {
		return s, Report{}, err
	}
	switch {
	case !next.VetoUnlocked():
		return s, Report{}, fmt.Errorf("%w: veto is locked until %d red", ErrIllegalAction, next.Rules.VetoUnlock)
	case next.VetoRefused:
		return s, Report{}, fmt.Errorf("%w: veto already refused", ErrIllegalAction)
	case next.VetoProposed:
		return s, Report{}, fmt.Errorf("%w: veto already proposed", ErrIllegalAction)
	}
	next.VetoProposed = true
	return next, Report{VetoProposed: true}, nil
}

// ResolveVeto applies the president's answer. On consent both cards are
// discarded and the government counts as failed. On refusal the chancellor
// must enact.
func ResolveVeto(s State, president string, accept bool, rng *rand.Rand) (State, Report, error) {
	next, err := begin(s, PhaseLegislativeChancellor)
	if err != nil {
		return s, Report{}, err
	}
	if !next.VetoProposed {
		return s, Report{}, fmt.Errorf("%w: no veto proposed", ErrWrongPhase)
	}
	if err := requireActor(president, next.President().ID); err != nil {
		return s, Report{}, err
	}
	next.VetoProposed = false
	if !accept {
		next.VetoRefused = true
		return next, Report{VetoRefused: true}, nil
	}

	rep := Report{VetoAccepted: true, Discarded: slices.Clone(next.Hand)}
	next.Deck = next.Deck.Discard(next.Hand...)
	next.Hand = nil
	next.Phase = PhaseRoundEnd
	if err := next.recordFailure(&rep, rng); err != nil {
		return s, Report{}, err
	}
	return next, rep, nil
}

// EndRound closes the round and seats the next president: the special
// election pick if one is pending, else the seat after the last regular
// president.
func EndRound(s State) (State, Report, error) {
	if s.Over() {
		return s, Report{}, ErrGameOver
	}
	if s.Phase != PhaseRoundEnd && s.Phase != PhaseGovernmentRejected {
		return s, Report{}, fmt.Errorf("%w: in %s, want %s", ErrWrongPhase, s.Phase, PhaseRoundEnd)
	}
	next := s.Clone()
	switch {
	case next.SpecialIdx >= 0:
		next.ResumeIdx = next.PresidentIdx
		next.PresidentIdx = next.SpecialIdx
		next.SpecialIdx = -1
	case next.ResumeIdx >= 0:
		next.PresidentIdx = next.nextAlive(next.ResumeIdx)
		next.ResumeIdx = -1
	default:
		next.PresidentIdx = next.nextAlive(next.PresidentIdx)
	}
	next.Round++
	next.Phase = PhaseNomination
	next.Nominee = ""
	next.Votes = nil
	next.Hand = nil
	next.VetoProposed = false
	next.VetoRefused = false
	next.Power = PowerNone
	return next, Report{}, nil
}

// Apply routes a validated decision to its transition.
func Apply(s State, actor string, kind Kind, choice string, rng *rand.Rand) (State, Report, error) {
	switch kind {
	case KindNominate:
		return Nominate(s, actor, choice)
	case KindVote:
		switch choice {
		case ChoiceJa:
			return CastVote(s, actor, true)
		case ChoiceNein:
			return CastVote(s, actor, false)
		}
	case KindDiscard:
		return PresidentDiscard(s, actor, Card(choice))
	case KindEnact:
		if choice == ChoiceVeto {
			return ProposeVeto(s, actor)
		}
		return ChancellorEnact(s, actor, Card(choice))
	case KindVetoConsent:
		switch choice {
		case ChoiceAccept:
			return ResolveVeto(s, actor, true, rng)
		case ChoiceReject:
			return ResolveVeto(s, actor, false, rng)
		}
	case KindInvestigate:
		return Investigate(s, actor, choice)
	case KindSpecialElection:
		return SpecialElection(s, actor, choice)
	case KindExecute:
		return Execute(s, actor, choice)
	case KindPeekAck:
		return Peek(s, actor)
	case KindSpeak:
		if s.Over() {
			return s, Report{}, ErrGameOver
		}
		return s, Report{}, nil
	default:
		return s, Report{}, fmt.Errorf("%w: %q", ErrWrongKind, kind)
	}
	return s, Report{}, fmt.Errorf("%w: %q is not a valid %s", ErrIllegalAction, choice, kind)
}

// recordFailure advances the tracker and, on chaos, enacts the top card,
// clears term limits and checks for a win. Chaos grants no power.
func (s *State) recordFailure(rep *Report, rng *rand.Rand) error {
	tracker, chaos := s.Tracker.RecordFailure()
	s.Tracker = tracker
	if !chaos {
		return nil
	}
	deck, drawn, reshuffled, err := s.Deck.Draw(1, rng)
	if err != nil {
		return err
	}
	s.Deck = deck
	s.Track = s.Track.Enact(drawn[0])
	s.Previous = Government{}
	rep.Chaos = true
	rep.Enacted = drawn[0]
	rep.Reshuffled = rep.Reshuffled || reshuffled
	s.settle(rep, false)
	return nil
}

// settle checks win conditions in precedence order and ends the game on the
// first match. elected marks the check right after a successful election.
func (s *State) settle(rep *Report, elected bool) bool {
	outcome, ok := s.Track.Winner(s.Rules)
	if !ok {
		for _, p := range s.Players {
			if p.Role == MasterSpy && !p.Alive {
				outcome, ok = Outcome{Winner: TeamLoyalist, Condition: ConditionMasterSpyExecuted}, true
			}
		}
	}
	if !ok && elected && s.Track.Red >= s.Rules.MasterSpyElectedRed {
		if c, found := s.Chancellor(); found && c.Role == MasterSpy {
			outcome, ok = Outcome{Winner: TeamSpy, Condition: ConditionMasterSpyElected}, true
		}
	}
	if !ok {
		return false
	}
	s.Outcome = &outcome
	s.Phase = PhaseGameOver
	rep.Outcome = &outcome
	return true
}

func removeCard(hand []Card, card Card) ([]Card, bool) {
	idx := slices.Index(hand, card)
	if idx < 0 {
		return hand, false
	}
	return slices.Delete(slices.Clone(hand), idx, idx+1), true
}
