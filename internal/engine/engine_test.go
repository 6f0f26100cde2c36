package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shadowgov/internal/agent"
	"github.com/roach88/shadowgov/internal/game"
	"github.com/roach88/shadowgov/internal/ir"
)

// capture is an in-memory Sink and DecisionRecorder.
type capture struct {
	events    []ir.Event
	decisions []ir.Decision
}

func (c *capture) Append(_ context.Context, ev ir.Event) error {
	c.events = append(c.events, ev)
	return nil
}

func (c *capture) RecordDecision(_ context.Context, d ir.Decision) error {
	c.decisions = append(c.decisions, d)
	return nil
}

func (c *capture) named(name string) []ir.Event {
	var out []ir.Event
	for _, ev := range c.events {
		if ev.GameEvent == name {
			out = append(out, ev)
		}
	}
	return out
}

func (c *capture) last() ir.Event {
	return c.events[len(c.events)-1]
}

type failingSink struct{}

func (failingSink) Append(context.Context, ir.Event) error {
	return errors.New("disk full")
}

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testSeats(n int) []game.Seat {
	seats := make([]game.Seat, n)
	for i := range n {
		seats[i] = game.Seat{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1)}
	}
	return seats
}

func testSettings(n int, seed int64) Settings {
	return Settings{
		SessionID: "s-test",
		Seats:     testSeats(n),
		Seed:      seed,
		Rules:     game.DefaultRules(),
		Timeout:   time.Second,
		Retries:   2,
		StartTime: testStart,
	}
}

func uniform(seats []game.Seat, p agent.Provider) map[string]agent.Provider {
	out := make(map[string]agent.Provider, len(seats))
	for _, s := range seats {
		out[s.ID] = p
	}
	return out
}

func randomTable(seats []game.Seat, seed int64) map[string]agent.Provider {
	out := make(map[string]agent.Provider, len(seats))
	for i, s := range seats {
		out[s.ID] = agent.NewRandom(seed, i)
	}
	return out
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func run(t *testing.T, set Settings, providers map[string]agent.Provider, opts ...Option) (Result, *capture, error) {
	t.Helper()
	c := &capture{}
	opts = append([]Option{quiet(), WithSink(c), WithDecisionRecorder(c)}, opts...)
	m, err := New(set, providers, opts...)
	require.NoError(t, err)
	res, err := m.Run(context.Background())
	return res, c, err
}

func TestMachine_FirstLegalGameEnds(t *testing.T) {
	set := testSettings(5, 7)
	res, c, err := run(t, set, uniform(set.Seats, agent.FirstLegal{}))
	require.NoError(t, err)

	require.NotNil(t, res.Outcome)
	assert.False(t, res.Halted)
	assert.Equal(t, game.PhaseGameOver, res.Final.Phase)
	assert.Equal(t, len(c.events), res.Events)
	assert.Equal(t, c.last().Seq, res.LastSeq)
	assert.Equal(t, "game_over", c.last().GameEvent)

	for i, ev := range c.events {
		assert.Equal(t, int64(i+1), ev.Seq, "events are numbered without gaps")
		assert.Equal(t, "s-test", ev.SessionID)
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, testStart.Add(time.Duration(ev.Seq)*time.Millisecond).Format(TimestampLayout), ev.Timestamp)
	}
	assert.Equal(t, "game_start", c.events[0].GameEvent)
	assert.Len(t, c.named("role_assigned"), 5)
	assert.Len(t, c.named("round_start"), res.Rounds)
}

func TestMachine_RoleAssignmentEventsCarryRoles(t *testing.T) {
	set := testSettings(7, 3)
	_, c, err := run(t, set, uniform(set.Seats, agent.FirstLegal{}), WithHaltAfterRound(1))
	require.NoError(t, err)

	counts := map[string]int{}
	for _, ev := range c.named("role_assigned") {
		counts[ev.Role]++
	}
	assert.Equal(t, map[string]int{
		string(game.Loyalist):  4,
		string(game.Spy):       2,
		string(game.MasterSpy): 1,
	}, counts)
}

func TestMachine_GameOverRevealsRoles(t *testing.T) {
	set := testSettings(5, 11)
	res, c, err := run(t, set, uniform(set.Seats, agent.FirstLegal{}))
	require.NoError(t, err)

	over := c.named("game_over")
	require.Len(t, over, 1)
	details := over[0].ActionDetails
	assert.Equal(t, ir.String(string(res.Outcome.Winner)), details["winner"])
	assert.Equal(t, ir.String(string(res.Outcome.Condition)), details["condition"])

	roles, ok := details["roles"].(ir.Object)
	require.True(t, ok)
	for _, p := range res.Final.Players {
		assert.Equal(t, ir.String(string(p.Role)), roles[p.ID])
	}
}

func TestMachine_SameSeedSameTrace(t *testing.T) {
	set := testSettings(7, 42)
	set.Discussion = true

	_, c1, err := run(t, set, randomTable(set.Seats, 42))
	require.NoError(t, err)
	_, c2, err := run(t, set, randomTable(set.Seats, 42))
	require.NoError(t, err)

	h1, err := ir.TraceHash(c1.events)
	require.NoError(t, err)
	h2, err := ir.TraceHash(c2.events)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Equal(t, c1.decisions, c2.decisions)
}

func TestMachine_IllegalActionRetriedThenForced(t *testing.T) {
	set := testSettings(5, 1)
	providers := uniform(set.Seats, agent.FirstLegal{})
	providers["p1"] = agent.ProviderFunc(func(ctx context.Context, req agent.Request) (agent.Response, error) {
		if req.Schema.Kind == game.KindNominate {
			return agent.Response{Kind: game.KindNominate, Choice: "p1"}, nil
		}
		return agent.FirstLegal{}.Decide(ctx, req)
	})

	_, c, err := run(t, set, providers, WithHaltAfterRound(1))
	require.NoError(t, err)

	illegal := c.named("illegal_action")
	require.Len(t, illegal, 3)
	for i, ev := range illegal {
		assert.Equal(t, "p1", ev.Player)
		assert.Equal(t, ir.Int(int64(i)), ev.ActionDetails["attempt"])
	}

	forced := c.named("forced_default")
	require.Len(t, forced, 1)
	assert.Equal(t, ir.String("p2"), forced[0].ActionDetails["choice"])

	var nominate ir.Event
	for _, ev := range c.events {
		if ev.Action == string(game.KindNominate) {
			nominate = ev
		}
	}
	assert.Equal(t, ir.String("p2"), nominate.ActionDetails["chancellor"])
	assert.Equal(t, ir.Bool(true), nominate.ActionDetails["forced"])

	var outcomes []ir.DecisionOutcome
	for _, d := range c.decisions {
		if d.Player == "p1" && d.Kind == string(game.KindNominate) {
			outcomes = append(outcomes, d.Outcome)
		}
	}
	assert.Equal(t, []ir.DecisionOutcome{
		ir.OutcomeIllegal, ir.OutcomeIllegal, ir.OutcomeIllegal, ir.OutcomeForced,
	}, outcomes)
}

func TestMachine_ChoiceJudgedInRecordedForm(t *testing.T) {
	set := testSettings(5, 1)
	set.Seats[1].ID = "K2"
	providers := uniform(set.Seats, agent.FirstLegal{})
	providers["p1"] = agent.ProviderFunc(func(ctx context.Context, req agent.Request) (agent.Response, error) {
		if req.Schema.Kind == game.KindNominate {
			// KELVIN SIGN; NFC folds it to "K".
			return agent.Response{Kind: game.KindNominate, Choice: "\u212A2"}, nil
		}
		return agent.FirstLegal{}.Decide(ctx, req)
	})

	_, original, err := run(t, set, providers, WithHaltAfterRound(1))
	require.NoError(t, err)
	assert.Empty(t, original.named("illegal_action"))
	require.NotEmpty(t, original.decisions)
	assert.Equal(t, "K2", original.decisions[0].Choice)
	assert.Equal(t, ir.OutcomeAccepted, original.decisions[0].Outcome)

	rec := agent.NewRecorded(original.decisions)
	_, replayed, err := run(t, set, uniform(set.Seats, rec), WithHaltAfterRound(1))
	require.NoError(t, err)
	require.NoError(t, rec.Err())

	h1, err := ir.TraceHash(original.events)
	require.NoError(t, err)
	h2, err := ir.TraceHash(replayed.events)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestAwait_ReadyAnswerBeatsDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 100 {
		ch := make(chan answer, 1)
		ch <- answer{resp: agent.Response{Kind: game.KindNominate, Choice: "p2"}}
		resp, err := await(ctx, ch)
		require.NoError(t, err)
		assert.Equal(t, "p2", resp.Choice)
	}

	resp, err := await(ctx, make(chan answer))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, resp)
}

func TestMachine_WrongKindIsProtocolViolation(t *testing.T) {
	set := testSettings(5, 1)
	providers := uniform(set.Seats, agent.FirstLegal{})
	providers["p1"] = agent.ProviderFunc(func(ctx context.Context, req agent.Request) (agent.Response, error) {
		if req.Schema.Kind == game.KindNominate && req.Attempt == 0 {
			return agent.Response{Kind: game.KindVote, Choice: game.ChoiceJa}, nil
		}
		return agent.FirstLegal{}.Decide(ctx, req)
	})

	_, c, err := run(t, set, providers, WithHaltAfterRound(1))
	require.NoError(t, err)

	require.Len(t, c.named("protocol_violation"), 1)
	assert.Empty(t, c.named("forced_default"))

	first := c.decisions[0]
	assert.Equal(t, ir.OutcomeProtocol, first.Outcome)
	assert.Equal(t, string(game.KindVote), first.Kind)
	assert.Equal(t, ir.OutcomeAccepted, c.decisions[1].Outcome)
	assert.Equal(t, 1, c.decisions[1].Attempt)
}

func TestMachine_TimeoutForcesDefault(t *testing.T) {
	set := testSettings(5, 1)
	set.Timeout = 20 * time.Millisecond
	set.Retries = 0
	providers := uniform(set.Seats, agent.FirstLegal{})
	providers["p1"] = agent.ProviderFunc(func(ctx context.Context, req agent.Request) (agent.Response, error) {
		if req.Schema.Kind == game.KindNominate {
			<-ctx.Done()
			return agent.Response{}, ctx.Err()
		}
		return agent.FirstLegal{}.Decide(ctx, req)
	})

	_, c, err := run(t, set, providers, WithHaltAfterRound(1))
	require.NoError(t, err)

	timeouts := c.named("agent_timeout")
	require.Len(t, timeouts, 1)
	assert.Equal(t, ir.String("no answer within 20ms"), timeouts[0].ActionDetails["reason"])
	require.Len(t, c.named("forced_default"), 1)

	assert.Equal(t, ir.OutcomeTimeout, c.decisions[0].Outcome)
	assert.Equal(t, context.DeadlineExceeded.Error(), c.decisions[0].Error)
	assert.Equal(t, ir.OutcomeForced, c.decisions[1].Outcome)
}

func TestMachine_ProviderPanicRecovered(t *testing.T) {
	set := testSettings(5, 1)
	providers := uniform(set.Seats, agent.FirstLegal{})
	providers["p1"] = agent.ProviderFunc(func(ctx context.Context, req agent.Request) (agent.Response, error) {
		if req.Attempt == 0 && req.Schema.Kind == game.KindNominate {
			panic("boom")
		}
		return agent.FirstLegal{}.Decide(ctx, req)
	})

	_, c, err := run(t, set, providers, WithHaltAfterRound(1))
	require.NoError(t, err)

	violations := c.named("protocol_violation")
	require.Len(t, violations, 1)
	assert.Equal(t, ir.String("provider panic: boom"), violations[0].ActionDetails["reason"])
}

func TestMachine_RejectionPassedToNextAttempt(t *testing.T) {
	set := testSettings(5, 1)
	providers := uniform(set.Seats, agent.FirstLegal{})
	var rejections []string
	providers["p1"] = agent.ProviderFunc(func(ctx context.Context, req agent.Request) (agent.Response, error) {
		if req.Schema.Kind != game.KindNominate {
			return agent.FirstLegal{}.Decide(ctx, req)
		}
		rejections = append(rejections, req.Rejection)
		if req.Attempt == 0 {
			return agent.Response{Kind: game.KindNominate, Choice: "nobody"}, nil
		}
		return agent.FirstLegal{}.Decide(ctx, req)
	})

	_, _, err := run(t, set, providers, WithHaltAfterRound(1))
	require.NoError(t, err)

	require.Len(t, rejections, 2)
	assert.Empty(t, rejections[0])
	assert.Contains(t, rejections[1], "nobody")
}

func TestMachine_HaltAfterRound(t *testing.T) {
	set := testSettings(5, 1)
	res, c, err := run(t, set, uniform(set.Seats, agent.FirstLegal{}), WithHaltAfterRound(2))
	require.NoError(t, err)

	assert.True(t, res.Halted)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, "session_halted", c.last().GameEvent)
	assert.Len(t, c.named("round_start"), 2)
}

func TestMachine_RoundBudgetIsCorruption(t *testing.T) {
	set := testSettings(5, 1)
	res, c, err := run(t, set, uniform(set.Seats, agent.FirstLegal{}), WithRoundBudget(1))
	require.Error(t, err)

	assert.True(t, IsStateCorruption(err))
	assert.True(t, IsRoundsExceededError(err))
	assert.Equal(t, "state_corruption", c.last().GameEvent)
	assert.Equal(t, ir.Int(1), c.last().ActionDetails["round_budget"])
	assert.Nil(t, res.Outcome)
	assert.Equal(t, c.last().Seq, res.LastSeq)
}

func TestMachine_SinkErrorsCollected(t *testing.T) {
	set := testSettings(5, 7)
	res, c, err := run(t, set, uniform(set.Seats, agent.FirstLegal{}), WithSink(failingSink{}))
	require.NoError(t, err)

	require.NotNil(t, res.Outcome)
	assert.Len(t, res.SinkErrors, len(c.events))
	assert.ErrorContains(t, res.SinkErrors[0], "disk full")
}

func TestMachine_CancelledContext(t *testing.T) {
	set := testSettings(5, 1)
	m, err := New(set, uniform(set.Seats, agent.FirstLegal{}), quiet())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsStateCorruption(err))
}

func TestMachine_DiscussionEmitsSpeech(t *testing.T) {
	set := testSettings(5, 1)
	set.Discussion = true
	providers := uniform(set.Seats, agent.FirstLegal{})
	providers["p3"] = agent.NewScripted(map[game.Kind][]string{
		game.KindSpeak: {"I trust p2."},
	})

	_, c, err := run(t, set, providers, WithHaltAfterRound(1))
	require.NoError(t, err)

	var speeches []ir.Event
	for _, ev := range c.events {
		if ev.Type == ir.EventSpeech {
			speeches = append(speeches, ev)
		}
	}
	require.Len(t, speeches, 1)
	assert.Equal(t, "p3", speeches[0].Player)
	assert.Equal(t, "I trust p2.", speeches[0].Speech)
	assert.Equal(t, ir.String("nomination"), speeches[0].ActionDetails["context"])
}

func TestMachine_ReplayReproducesTrace(t *testing.T) {
	set := testSettings(7, 99)
	set.Discussion = true
	providers := randomTable(set.Seats, 99)
	flaky := providers["p3"]
	providers["p3"] = agent.ProviderFunc(func(ctx context.Context, req agent.Request) (agent.Response, error) {
		if req.Schema.Kind == game.KindVote && req.Attempt == 0 {
			return agent.Response{}, errors.New("malformed answer")
		}
		return flaky.Decide(ctx, req)
	})

	_, original, err := run(t, set, providers)
	require.NoError(t, err)
	require.NotEmpty(t, original.named("protocol_violation"))

	rec := agent.NewRecorded(original.decisions)
	_, replayed, err := run(t, set, uniform(set.Seats, rec))
	require.NoError(t, err)
	require.NoError(t, rec.Err())
	assert.Zero(t, rec.Remaining())

	h1, err := ir.TraceHash(original.events)
	require.NoError(t, err)
	h2, err := ir.TraceHash(replayed.events)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestMachine_InvariantsHoldThroughoutRandomGames(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		for _, n := range []int{5, 6, 7, 8, 9, 10} {
			set := testSettings(n, seed)
			res, _, err := run(t, set, randomTable(set.Seats, seed))
			require.NoError(t, err, "seed %d, %d players", seed, n)
			require.NotNil(t, res.Outcome, "seed %d, %d players", seed, n)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	set := testSettings(5, 1)

	_, err := New(set, map[string]agent.Provider{"p1": agent.FirstLegal{}}, quiet())
	assert.ErrorContains(t, err, "no provider for seat")

	neg := set
	neg.Retries = -1
	_, err = New(neg, uniform(set.Seats, agent.FirstLegal{}), quiet())
	assert.Error(t, err)

	small := testSettings(4, 1)
	_, err = New(small, uniform(small.Seats, agent.FirstLegal{}), quiet())
	assert.ErrorIs(t, err, game.ErrPlayerCount)
}

func TestNew_GeneratesSessionID(t *testing.T) {
	set := testSettings(5, 1)
	set.SessionID = ""
	m, err := New(set, uniform(set.Seats, agent.FirstLegal{}), quiet(), WithSessionIDs(NewFixedGenerator("generated-1")))
	require.NoError(t, err)
	assert.Equal(t, "generated-1", m.SessionID())
	assert.Equal(t, "generated-1", m.State().SessionID)
}

func TestNew_DefaultTimeout(t *testing.T) {
	set := testSettings(5, 1)
	set.Timeout = 0
	m, err := New(set, uniform(set.Seats, agent.FirstLegal{}), quiet())
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, m.settings.Timeout)
}

func TestSettings_RoundTrip(t *testing.T) {
	set := testSettings(6, -12345)
	set.Discussion = true
	set.Timeout = 1500 * time.Millisecond

	data, err := MarshalSettings(set)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"seed":-12345`)

	got, err := UnmarshalSettings(data)
	require.NoError(t, err)
	assert.Equal(t, set.Seats, got.Seats)
	assert.Equal(t, set.Rules, got.Rules)
	assert.Equal(t, set.Timeout, got.Timeout)
	assert.True(t, set.StartTime.Equal(got.StartTime))
	assert.Equal(t, set.Seed, got.Seed)
	assert.True(t, got.Discussion)

	again, err := MarshalSettings(got)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
