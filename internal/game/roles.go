package game

import (
	"math/rand/v2"
	"slices"
)

// AssignRoles deals roles for n seats using the standard table, shuffled
// with rng. The result is indexed by seat.
func AssignRoles(n int, rng *rand.Rand) ([]Role, error) {
	loyalists, spies, err := RoleCounts(n)
	if err != nil {
		return nil, err
	}
	roles := make([]Role, 0, n)
	for range loyalists {
		roles = append(roles, Loyalist)
	}
	for range spies {
		roles = append(roles, Spy)
	}
	roles = append(roles, MasterSpy)
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	return roles, nil
}

// KnownRoles returns the roles viewer is entitled to see at setup: its own,
// plus the Spy roster for a Spy, plus the Spies for a MasterSpy at small
// tables. Loyalists only know themselves.
func KnownRoles(players []Player, viewer string, rules Rules) map[string]Role {
	known := make(map[string]Role)
	idx := slices.IndexFunc(players, func(p Player) bool { return p.ID == viewer })
	if idx < 0 {
		return known
	}
	self := players[idx]
	known[self.ID] = self.Role

	switch self.Role {
	case Spy:
		for _, p := range players {
			if p.Role != Loyalist {
				known[p.ID] = p.Role
			}
		}
	case MasterSpy:
		if len(players) <= rules.MasterSpyKnowsAlliesMax {
			for _, p := range players {
				if p.Role == Spy {
					known[p.ID] = p.Role
				}
			}
		}
	}
	return known
}
