package game

import "fmt"

const (
	MinPlayers = 5
	MaxPlayers = 10
)

// Rules holds the tunable constants of a session.
type Rules struct {
	BlueCards int `json:"blue_cards" mapstructure:"blue_cards"`
	RedCards  int `json:"red_cards" mapstructure:"red_cards"`

	BlueToWin int `json:"blue_to_win" mapstructure:"blue_to_win"`
	RedToWin  int `json:"red_to_win" mapstructure:"red_to_win"`

	// TrackerLimit is the number of consecutive failed governments that
	// forces a chaos enactment.
	TrackerLimit int `json:"tracker_limit" mapstructure:"tracker_limit"`

	// VetoUnlock is the Red count at which the chancellor may propose a veto.
	VetoUnlock int `json:"veto_unlock" mapstructure:"veto_unlock"`

	// MasterSpyElectedRed is the Red count from which electing the MasterSpy
	// as chancellor wins for the Spies.
	MasterSpyElectedRed int `json:"master_spy_elected_red" mapstructure:"master_spy_elected_red"`

	// MasterSpyKnowsAlliesMax is the largest table at which the MasterSpy
	// learns who the other Spies are.
	MasterSpyKnowsAlliesMax int `json:"master_spy_knows_allies_max" mapstructure:"master_spy_knows_allies_max"`
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		BlueCards:               6,
		RedCards:                11,
		BlueToWin:               5,
		RedToWin:                6,
		TrackerLimit:            3,
		VetoUnlock:              5,
		MasterSpyElectedRed:     3,
		MasterSpyKnowsAlliesMax: 6,
	}
}

// Validate checks that the rules describe a winnable game.
func (r Rules) Validate() error {
	switch {
	case r.BlueCards < 1 || r.RedCards < 1:
		return fmt.Errorf("%w: deck needs at least one card of each color", ErrInvalidRules)
	case r.BlueCards+r.RedCards < 3:
		return fmt.Errorf("%w: deck must hold at least 3 cards", ErrInvalidRules)
	case r.BlueToWin < 1 || r.BlueToWin > r.BlueCards:
		return fmt.Errorf("%w: blue_to_win must be in [1,%d]", ErrInvalidRules, r.BlueCards)
	case r.RedToWin < 1 || r.RedToWin > r.RedCards:
		return fmt.Errorf("%w: red_to_win must be in [1,%d]", ErrInvalidRules, r.RedCards)
	case r.BlueCards+r.RedCards-(r.BlueToWin-1)-(r.RedToWin-1) < 3:
		// Short of a win at most (BlueToWin-1)+(RedToWin-1) cards leave
		// circulation; a legislative draw still needs 3.
		return fmt.Errorf("%w: deck can run below 3 cards before either track wins", ErrInvalidRules)
	case r.TrackerLimit < 1:
		return fmt.Errorf("%w: tracker_limit must be positive", ErrInvalidRules)
	case r.VetoUnlock < 0 || r.MasterSpyElectedRed < 0:
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidRules)
	}
	return nil
}

// roleTable maps player count to (Loyalist, Spy) counts; there is always
// exactly one MasterSpy.
var roleTable = map[int][2]int{
	5:  {3, 1},
	6:  {4, 1},
	7:  {4, 2},
	8:  {5, 2},
	9:  {5, 3},
	10: {6, 3},
}

// RoleCounts returns how many Loyalists and Spies sit at a table of n.
func RoleCounts(n int) (loyalists, spies int, err error) {
	counts, ok := roleTable[n]
	if !ok {
		return 0, 0, fmt.Errorf("%w: got %d", ErrPlayerCount, n)
	}
	return counts[0], counts[1], nil
}

// PowerFor returns the executive power granted when the Red track reaches
// red at a table of n players.
func PowerFor(n, red int) Power {
	switch {
	case red == 4 || red == 5:
		return PowerExecution
	case n <= 6:
		if red == 3 {
			return PowerPolicyPeek
		}
	case n <= 8:
		switch red {
		case 2:
			return PowerInvestigate
		case 3:
			return PowerSpecialElection
		}
	default:
		switch red {
		case 1, 2:
			return PowerInvestigate
		case 3:
			return PowerSpecialElection
		}
	}
	return PowerNone
}
