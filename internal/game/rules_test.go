package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerFor(t *testing.T) {
	tests := []struct {
		players int
		powers  [6]Power // index = red count after enactment
	}{
		{5, [6]Power{PowerNone, PowerNone, PowerNone, PowerPolicyPeek, PowerExecution, PowerExecution}},
		{6, [6]Power{PowerNone, PowerNone, PowerNone, PowerPolicyPeek, PowerExecution, PowerExecution}},
		{7, [6]Power{PowerNone, PowerNone, PowerInvestigate, PowerSpecialElection, PowerExecution, PowerExecution}},
		{8, [6]Power{PowerNone, PowerNone, PowerInvestigate, PowerSpecialElection, PowerExecution, PowerExecution}},
		{9, [6]Power{PowerNone, PowerInvestigate, PowerInvestigate, PowerSpecialElection, PowerExecution, PowerExecution}},
		{10, [6]Power{PowerNone, PowerInvestigate, PowerInvestigate, PowerSpecialElection, PowerExecution, PowerExecution}},
	}

	for _, tt := range tests {
		for red, want := range tt.powers {
			assert.Equal(t, want, PowerFor(tt.players, red), "players=%d red=%d", tt.players, red)
		}
		assert.Equal(t, PowerNone, PowerFor(tt.players, 6))
	}
}

func TestRoleCounts(t *testing.T) {
	want := map[int][2]int{5: {3, 1}, 6: {4, 1}, 7: {4, 2}, 8: {5, 2}, 9: {5, 3}, 10: {6, 3}}
	for n, counts := range want {
		loyal, spies, err := RoleCounts(n)
		require.NoError(t, err)
		assert.Equal(t, counts[0], loyal, "n=%d", n)
		assert.Equal(t, counts[1], spies, "n=%d", n)
		assert.Equal(t, n, loyal+spies+1)
	}

	for _, n := range []int{0, 4, 11} {
		_, _, err := RoleCounts(n)
		assert.ErrorIs(t, err, ErrPlayerCount)
	}
}

func TestRulesValidate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	bad := DefaultRules()
	bad.RedToWin = 12
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRules)

	bad = DefaultRules()
	bad.TrackerLimit = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRules)

	bad = DefaultRules()
	bad.BlueCards = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRules)
}

func TestRulesValidate_DeckNeverRunsDry(t *testing.T) {
	tests := []struct {
		name                       string
		blue, red, blueWin, redWin int
		ok                         bool
	}{
		{"defaults", 6, 11, 5, 6, true},
		{"three of each to three", 3, 3, 3, 3, false},
		{"exactly three left", 5, 6, 5, 5, true},
		{"two left", 5, 5, 5, 5, false},
		{"one-card wins", 1, 2, 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			r.BlueCards, r.RedCards, r.BlueToWin, r.RedToWin = tt.blue, tt.red, tt.blueWin, tt.redWin
			err := r.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRules)
			}
		})
	}
}
