package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		SessionID:     "s-1",
		Seq:           3,
		Round:         1,
		Timestamp:     "2026-01-01T00:00:00.003Z",
		Type:          EventAction,
		Player:        "p1",
		Role:          "Loyalist",
		Action:        "nominate",
		ActionDetails: Object{"chancellor": String("p2")},
	}
}

func TestEventIDDeterminism(t *testing.T) {
	e := sampleEvent()

	id1, err := EventID(e)
	require.NoError(t, err)
	id2, err := EventID(e)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestEventIDIgnoresID(t *testing.T) {
	e := sampleEvent()
	withID := e
	withID.ID = "anything"

	assert.Equal(t, mustEventID(e), mustEventID(withID))
}

func TestEventIDChangesWithContent(t *testing.T) {
	base := sampleEvent()

	otherSeq := base
	otherSeq.Seq = 4

	otherDetails := base
	otherDetails.ActionDetails = Object{"chancellor": String("p3")}

	otherSpeech := base
	otherSpeech.Speech = "trust me"

	id := mustEventID(base)
	assert.NotEqual(t, id, mustEventID(otherSeq))
	assert.NotEqual(t, id, mustEventID(otherDetails))
	assert.NotEqual(t, id, mustEventID(otherSpeech))
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainEvent, data), hashWithDomain(DomainDecision, data))
}

func TestDecisionID(t *testing.T) {
	d := Decision{SessionID: "s-1", Seq: 1, Player: "p1", Kind: "vote", Choice: "ja", Outcome: OutcomeAccepted}

	id1, err := DecisionID(d)
	require.NoError(t, err)

	d.Choice = "nein"
	id2, err := DecisionID(d)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestTraceHash(t *testing.T) {
	a := sampleEvent()
	b := sampleEvent()
	b.Seq = 4

	h1, err := TraceHash([]Event{a, b})
	require.NoError(t, err)
	h2, err := TraceHash([]Event{a, b})
	require.NoError(t, err)
	h3, err := TraceHash([]Event{b, a})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3, "order matters")
}

// mustEventID is EventID for fixtures known to hash.
func mustEventID(e Event) string {
	id, err := EventID(e)
	if err != nil {
		panic(err)
	}
	return id
}
