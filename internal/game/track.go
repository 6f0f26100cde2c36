package game

// Track holds the enacted policy counts.
type Track struct {
	Blue int
	Red  int
}

// Enact adds c to the track. This is the only way a card leaves circulation.
func (t Track) Enact(c Card) Track {
	switch c {
	case Blue:
		t.Blue++
	case Red:
		t.Red++
	}
	return t
}

// Winner reports a track win, if any. Blue is checked first.
func (t Track) Winner(rules Rules) (Outcome, bool) {
	switch {
	case t.Blue >= rules.BlueToWin:
		return Outcome{Winner: TeamLoyalist, Condition: ConditionBlueTrack}, true
	case t.Red >= rules.RedToWin:
		return Outcome{Winner: TeamSpy, Condition: ConditionRedTrack}, true
	}
	return Outcome{}, false
}
