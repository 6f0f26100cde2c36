package game

import (
	"fmt"
	"slices"
)

// targets lists the players a power may be used on, in seat order.
func (s State) targets(power Power) []string {
	president := s.President().ID
	var out []string
	for _, p := range s.Alive() {
		if p.ID == president {
			continue
		}
		if power == PowerInvestigate && s.Investigated[p.ID] {
			continue
		}
		out = append(out, p.ID)
	}
	if power == PowerPolicyPeek {
		return []string{ChoiceAck}
	}
	return out
}

// beginPower guards an executive transition.
func beginPower(s State, president string, power Power) (State, error) {
	next, err := begin(s, PhaseExecutiveAction)
	if err != nil {
		return s, err
	}
	if next.Power != power {
		return s, fmt.Errorf("%w: pending power is %s", ErrWrongKind, next.Power)
	}
	if err := requireActor(president, next.President().ID); err != nil {
		return s, err
	}
	return next, nil
}

func (s *State) closePower() {
	s.Power = PowerNone
	s.Phase = PhaseRoundEnd
}

// Investigate reveals target's team to the president alone. The MasterSpy
// reports as Spy.
func Investigate(s State, president, target string) (State, Report, error) {
	next, err := beginPower(s, president, PowerInvestigate)
	if err != nil {
		return s, Report{}, err
	}
	if !slices.Contains(next.targets(PowerInvestigate), target) {
		return s, Report{}, fmt.Errorf("%w: cannot investigate %s", ErrIllegalAction, target)
	}
	p, _ := next.Player(target)
	team := p.Role.Team()
	next.Investigated[target] = true
	next.Intel[president] = append(next.Intel[president], Intel{
		Kind:   IntelInvestigation,
		Round:  next.Round,
		Target: target,
		Team:   team,
	})
	next.closePower()
	return next, Report{Target: target, Team: team}, nil
}

// SpecialElection makes target the next president. Regular rotation resumes
// after the calling president's seat.
func SpecialElection(s State, president, target string) (State, Report, error) {
	next, err := beginPower(s, president, PowerSpecialElection)
	if err != nil {
		return s, Report{}, err
	}
	if !slices.Contains(next.targets(PowerSpecialElection), target) {
		return s, Report{}, fmt.Errorf("%w: cannot elect %s", ErrIllegalAction, target)
	}
	next.SpecialIdx = next.index(target)
	next.closePower()
	return next, Report{Target: target}, nil
}

// Execute kills target. Executing the MasterSpy ends the game.
func Execute(s State, president, target string) (State, Report, error) {
	next, err := beginPower(s, president, PowerExecution)
	if err != nil {
		return s, Report{}, err
	}
	if !slices.Contains(next.targets(PowerExecution), target) {
		return s, Report{}, fmt.Errorf("%w: cannot execute %s", ErrIllegalAction, target)
	}
	next.Players[next.index(target)].Alive = false
	next.closePower()
	rep := Report{Target: target}
	next.settle(&rep, false)
	return next, rep, nil
}

// Peek shows the president the top of the draw pile. The pile is not
// reshuffled, so a short pile shows fewer than three cards.
func Peek(s State, president string) (State, Report, error) {
	next, err := beginPower(s, president, PowerPolicyPeek)
	if err != nil {
		return s, Report{}, err
	}
	cards := next.Deck.Peek(3)
	next.Intel[president] = append(next.Intel[president], Intel{
		Kind:  IntelPeek,
		Round: next.Round,
		Cards: cards,
	})
	next.closePower()
	return next, Report{Peeked: cards}, nil
}
