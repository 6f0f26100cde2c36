package engine

import (
	"context"
	"fmt"

	"github.com/roach88/shadowgov/internal/game"
	"github.com/roach88/shadowgov/internal/ir"
)

// Discussion contexts.
const (
	discussNomination = "nomination"
	discussEnactment  = "enactment"
)

func (m *Machine) start(ctx context.Context) {
	ids := make([]string, len(m.state.Players))
	for i, p := range m.state.Players {
		ids[i] = p.ID
	}
	r := m.state.Rules
	m.system(ctx, "", "game_start", ir.Object{
		"players":    ir.Strings(ids...),
		"seed":       ir.Int(m.settings.Seed),
		"discussion": ir.Bool(m.settings.Discussion),
		"rules": ir.Object{
			"blue_cards":    ir.Int(int64(r.BlueCards)),
			"red_cards":     ir.Int(int64(r.RedCards)),
			"blue_to_win":   ir.Int(int64(r.BlueToWin)),
			"red_to_win":    ir.Int(int64(r.RedToWin)),
			"tracker_limit": ir.Int(int64(r.TrackerLimit)),
			"veto_unlock":   ir.Int(int64(r.VetoUnlock)),
		},
	})
	for _, p := range m.state.Players {
		m.system(ctx, p.ID, "role_assigned", ir.Object{"name": ir.String(p.Name)})
	}
}

func (m *Machine) announceRound(ctx context.Context) {
	m.announced = m.state.Round
	m.logger.Debug("round starting", "round", m.state.Round, "president", m.state.President().ID)
	m.system(ctx, m.state.President().ID, "round_start", ir.Object{
		"president": ir.String(m.state.President().ID),
		"failures":  ir.Int(int64(m.state.Tracker.Failures)),
	})
}

// act obtains one decision from actor, applies it and records the result.
func (m *Machine) act(ctx context.Context, actor string) error {
	sc, err := game.Legal(m.state, actor)
	if err != nil {
		return newCorruption(m.state.Phase, err)
	}
	resp, forced, err := m.decide(ctx, sc)
	if err != nil {
		return err
	}
	rep, err := m.transition(game.Apply(m.state, actor, sc.Kind, resp.Choice, m.rng))
	if err != nil {
		return err
	}

	m.emit(ctx, ir.Event{
		Type:          ir.EventAction,
		Player:        actor,
		Action:        string(sc.Kind),
		ActionDetails: actionDetails(sc.Kind, resp.Choice, forced, rep),
		Speech:        resp.Speech,
		Thought:       resp.Thought,
		RawMessage:    resp.Raw,
	})
	m.report(ctx, sc.Kind, rep)

	if !m.settings.Discussion || m.state.Over() {
		return nil
	}
	switch {
	case sc.Kind == game.KindNominate:
		var speakers []string
		for _, p := range m.state.SeatOrderFrom(m.state.PresidentIdx) {
			speakers = append(speakers, p.ID)
		}
		return m.discuss(ctx, discussNomination, speakers)
	case sc.Kind == game.KindEnact && rep.Enacted != "":
		return m.discuss(ctx, discussEnactment, []string{m.state.President().ID, m.state.Nominee})
	}
	return nil
}

// discuss gives each speaker one opaque speech turn.
func (m *Machine) discuss(ctx context.Context, topic string, speakers []string) error {
	for _, id := range speakers {
		resp, _, err := m.decide(ctx, game.SpeakSchema(m.state, id))
		if err != nil {
			return err
		}
		if resp.Speech == "" {
			continue
		}
		m.emit(ctx, ir.Event{
			Type:          ir.EventSpeech,
			Player:        id,
			ActionDetails: ir.Object{"context": ir.String(topic)},
			Speech:        resp.Speech,
			Thought:       resp.Thought,
			RawMessage:    resp.Raw,
		})
	}
	return nil
}

func (m *Machine) tally(ctx context.Context) error {
	rep, err := m.transition(game.TallyVotes(m.state, m.rng))
	if err != nil {
		return err
	}
	m.report(ctx, "", rep)
	return nil
}

func (m *Machine) beginLegislative(ctx context.Context) error {
	rep, err := m.transition(game.BeginLegislative(m.state, m.rng))
	if err != nil {
		return err
	}
	m.report(ctx, "", rep)
	m.system(ctx, "", "legislative_session", ir.Object{
		"president":  ir.String(m.state.President().ID),
		"chancellor": ir.String(m.state.Nominee),
		"draw_pile":  ir.Int(int64(m.state.Deck.Len())),
	})
	return nil
}

func (m *Machine) endRound(ctx context.Context) error {
	if err := m.budget.Check(m.state.Round + 1); err != nil {
		m.logger.Error("round budget spent", "round", m.budget.Current(), "limit", m.budget.Max())
		return newCorruption(m.state.Phase, err)
	}
	_, err := m.transition(game.EndRound(m.state))
	return err
}

// report emits the system events describing a transition's side effects.
func (m *Machine) report(ctx context.Context, kind game.Kind, rep game.Report) {
	president := m.state.President().ID

	if rep.Votes != nil {
		votes := ir.Object{}
		for id, ja := range rep.Votes {
			votes[id] = ir.String(voteString(ja))
		}
		m.system(ctx, "", "vote_result", ir.Object{
			"ja":      ir.Int(int64(rep.Ja)),
			"nein":    ir.Int(int64(rep.Nein)),
			"elected": ir.Bool(rep.Elected),
			"votes":   votes,
		})
		if rep.Elected {
			m.system(ctx, "", "government_formed", ir.Object{
				"president":  ir.String(president),
				"chancellor": ir.String(m.state.Nominee),
			})
		} else {
			m.system(ctx, "", "government_rejected", ir.Object{
				"failures": ir.Int(int64(m.state.Tracker.Failures)),
			})
		}
	}
	if rep.VetoAccepted {
		m.system(ctx, president, "veto_accepted", ir.Object{"failures": ir.Int(int64(m.state.Tracker.Failures))})
	}
	if rep.VetoRefused {
		m.system(ctx, president, "veto_refused", nil)
	}
	if rep.Reshuffled {
		m.system(ctx, "", "deck_reshuffled", ir.Object{"draw_pile": ir.Int(int64(m.state.Deck.Len()))})
	}
	if rep.Chaos {
		m.logger.Info("chaos enactment", "card", rep.Enacted)
		m.system(ctx, "", "chaos_enactment", ir.Object{"card": ir.String(string(rep.Enacted))})
	}
	if rep.Enacted != "" {
		m.system(ctx, "", "policy_enacted", ir.Object{
			"card":  ir.String(string(rep.Enacted)),
			"blue":  ir.Int(int64(m.state.Track.Blue)),
			"red":   ir.Int(int64(m.state.Track.Red)),
			"chaos": ir.Bool(rep.Chaos),
		})
	}
	if rep.Power != game.PowerNone {
		m.system(ctx, president, "power_unlocked", ir.Object{"power": ir.String(string(rep.Power))})
	}
	switch kind {
	case game.KindInvestigate:
		m.system(ctx, president, "investigation_result", ir.Object{
			"target": ir.String(rep.Target),
			"team":   ir.String(string(rep.Team)),
		})
	case game.KindExecute:
		m.system(ctx, rep.Target, "player_executed", nil)
	case game.KindSpecialElection:
		m.system(ctx, rep.Target, "special_election_called", ir.Object{"caller": ir.String(president)})
	}
	if rep.Outcome != nil {
		roles := ir.Object{}
		for _, p := range m.state.Players {
			roles[p.ID] = ir.String(string(p.Role))
		}
		m.logger.Info("game over", "winner", rep.Outcome.Winner, "condition", rep.Outcome.Condition)
		m.system(ctx, "", "game_over", ir.Object{
			"winner":    ir.String(string(rep.Outcome.Winner)),
			"condition": ir.String(string(rep.Outcome.Condition)),
			"roles":     roles,
		})
	}
}

func actionDetails(kind game.Kind, choice string, forced bool, rep game.Report) ir.Object {
	d := ir.Object{}
	switch kind {
	case game.KindNominate:
		d["chancellor"] = ir.String(choice)
	case game.KindVote:
		d["vote"] = ir.String(choice)
	case game.KindDiscard:
		d["card"] = ir.String(choice)
	case game.KindEnact:
		if rep.VetoProposed {
			d["veto"] = ir.Bool(true)
		} else {
			d["card"] = ir.String(choice)
		}
	case game.KindVetoConsent:
		d["consent"] = ir.String(choice)
	case game.KindInvestigate, game.KindSpecialElection, game.KindExecute:
		d["target"] = ir.String(choice)
	case game.KindPeekAck:
		cards := make([]string, len(rep.Peeked))
		for i, c := range rep.Peeked {
			cards[i] = string(c)
		}
		d["cards"] = ir.Strings(cards...)
	}
	if forced {
		d["forced"] = ir.Bool(true)
	}
	return d
}

func voteString(ja bool) string {
	if ja {
		return game.ChoiceJa
	}
	return game.ChoiceNein
}

// system emits a system event. player may be empty.
func (m *Machine) system(ctx context.Context, player, name string, details ir.Object) {
	m.emit(ctx, ir.Event{
		Type:          ir.EventSystem,
		Player:        player,
		GameEvent:     name,
		ActionDetails: details,
	})
}

// emit stamps ev and hands it to every sink.
func (m *Machine) emit(ctx context.Context, ev ir.Event) {
	ev.SessionID = m.settings.SessionID
	ev.Seq = m.clock.Next()
	ev.Round = m.state.Round
	ev.Timestamp = m.time.Stamp(ev.Seq)
	if p, ok := m.state.Player(ev.Player); ok {
		ev.Role = string(p.Role)
	}

	id, err := ir.EventID(ev)
	if err != nil {
		m.sinkFailure("hash event", err)
		return
	}
	ev.ID = id
	m.events++

	for _, s := range m.sinks {
		if err := s.Append(ctx, ev); err != nil {
			m.sinkFailure(fmt.Sprintf("append event %d", ev.Seq), err)
		}
	}
}

func (m *Machine) sinkFailure(op string, err error) {
	m.sinkErrors = append(m.sinkErrors, fmt.Errorf("%s: %w", op, err))
	m.logger.Warn("sink failed", "op", op, "error", err)
}
