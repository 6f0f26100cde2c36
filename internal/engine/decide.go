package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/shadowgov/internal/agent"
	"github.com/roach88/shadowgov/internal/game"
	"github.com/roach88/shadowgov/internal/ir"
)

// reasonExhausted is recorded on forced decisions.
const reasonExhausted = "retries exhausted"

// decide asks sc.Player for a decision, re-prompting after recoverable
// errors. Once retries are spent the default choice is substituted and
// forced is true. Only a cancelled ctx returns an error.
func (m *Machine) decide(ctx context.Context, sc game.Schema) (agent.Response, bool, error) {
	provider := m.providers[sc.Player]
	var role game.Role
	if p, ok := m.state.Player(sc.Player); ok {
		role = p.Role
	}

	rejection := ""
	for attempt := 0; attempt <= m.settings.Retries; attempt++ {
		req := agent.Request{
			SessionID: m.settings.SessionID,
			PlayerID:  sc.Player,
			Role:      role,
			View:      game.ViewFor(m.state, sc.Player),
			Schema:    sc,
			Attempt:   attempt,
			Rejection: rejection,
		}
		resp, callErr := m.call(ctx, provider, req)
		if err := ctx.Err(); err != nil {
			return agent.Response{}, false, err
		}
		// Judge the answer in the form it is recorded, so a replay of the
		// stored decision meets the same verdict.
		resp.Kind = game.Kind(ir.Normalize(string(resp.Kind)))
		resp.Choice = ir.Normalize(resp.Choice)

		rec := ir.Decision{
			Player:  sc.Player,
			Kind:    string(sc.Kind),
			Attempt: attempt,
		}
		if callErr != nil {
			rec.Error = callErr.Error()
		} else {
			rec.Kind = string(resp.Kind)
			rec.Choice = resp.Choice
			rec.Speech = resp.Speech
			rec.Thought = resp.Thought
			rec.Raw = resp.Raw
		}

		rejected := m.classify(sc, resp, callErr)
		if rejected == nil {
			rec.Outcome = ir.OutcomeAccepted
			m.record(ctx, rec)
			return resp, false, nil
		}

		rec.Outcome = outcomeFor(rejected.Code)
		rec.Reason = rejected.Message
		m.record(ctx, rec)
		m.logger.Warn("decision rejected",
			"player", sc.Player,
			"kind", sc.Kind,
			"code", rejected.Code,
			"attempt", attempt,
			"reason", rejected.Message)
		m.system(ctx, sc.Player, strings.ToLower(string(rejected.Code)), ir.Object{
			"kind":    ir.String(string(sc.Kind)),
			"attempt": ir.Int(int64(attempt)),
			"reason":  ir.String(rejected.Message),
		})
		rejection = rejected.Message
	}

	choice := game.DefaultChoice(sc)
	m.record(ctx, ir.Decision{
		Player:  sc.Player,
		Kind:    string(sc.Kind),
		Attempt: m.settings.Retries + 1,
		Choice:  choice,
		Outcome: ir.OutcomeForced,
		Reason:  reasonExhausted,
	})
	details := ir.Object{"kind": ir.String(string(sc.Kind))}
	if choice != "" {
		details["choice"] = ir.String(choice)
	}
	m.logger.Warn("forcing default choice", "player", sc.Player, "kind", sc.Kind, "choice", choice)
	m.system(ctx, sc.Player, "forced_default", details)
	return agent.Response{Kind: sc.Kind, Choice: choice}, true, nil
}

// call runs one provider request under the decision timeout. A provider
// that panics or ignores its deadline is abandoned; its goroutine may
// linger but its answer is dropped.
func (m *Machine) call(ctx context.Context, p agent.Provider, req agent.Request) (agent.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, m.settings.Timeout)
	defer cancel()

	ch := make(chan answer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- answer{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		resp, err := p.Decide(ctx, req)
		ch <- answer{resp: resp, err: err}
	}()
	return await(ctx, ch)
}

type answer struct {
	resp agent.Response
	err  error
}

// await returns the provider's answer, or ctx.Err once ctx is done. An
// answer already waiting on ch is preferred over the deadline.
func await(ctx context.Context, ch <-chan answer) (agent.Response, error) {
	select {
	case a := <-ch:
		return a.resp, a.err
	case <-ctx.Done():
		select {
		case a := <-ch:
			return a.resp, a.err
		default:
		}
		return agent.Response{}, ctx.Err()
	}
}

// classify maps a provider answer to a recoverable error, or nil if it is
// acceptable.
func (m *Machine) classify(sc game.Schema, resp agent.Response, callErr error) *Error {
	e := &Error{Player: sc.Player, Phase: sc.Phase, Err: callErr}
	switch {
	case callErr == nil:
	case errors.Is(callErr, context.DeadlineExceeded):
		e.Code = CodeAgentTimeout
		e.Message = fmt.Sprintf("no answer within %s", m.settings.Timeout)
		return e
	default:
		e.Code = CodeProtocolViolation
		e.Message = callErr.Error()
		return e
	}

	err := game.Check(sc, resp.Kind, resp.Choice)
	if err == nil {
		return nil
	}
	e.Code = CodeIllegalAction
	if errors.Is(err, game.ErrWrongKind) {
		e.Code = CodeProtocolViolation
	}
	e.Message = err.Error()
	e.Err = err
	return e
}

func outcomeFor(code ErrorCode) ir.DecisionOutcome {
	switch code {
	case CodeAgentTimeout:
		return ir.OutcomeTimeout
	case CodeProtocolViolation:
		return ir.OutcomeProtocol
	}
	return ir.OutcomeIllegal
}

// record numbers d and hands it to the recorder.
func (m *Machine) record(ctx context.Context, d ir.Decision) {
	m.decisionSeq++
	d.SessionID = m.settings.SessionID
	d.Seq = m.decisionSeq
	d.Round = m.state.Round
	id, err := ir.DecisionID(d)
	if err != nil {
		m.sinkFailure("hash decision", err)
		return
	}
	d.ID = id
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordDecision(ctx, d); err != nil {
		m.sinkFailure(fmt.Sprintf("record decision %d", d.Seq), err)
	}
}
