package game

// Role is a secret identity dealt at setup.
type Role string

const (
	Loyalist  Role = "Loyalist"
	Spy       Role = "Spy"
	MasterSpy Role = "MasterSpy"
)

// Team returns the side the role wins with. MasterSpy plays for the Spies.
func (r Role) Team() Team {
	if r == Loyalist {
		return TeamLoyalist
	}
	return TeamSpy
}

// Team is a winning side. Investigations report the team, never the role.
type Team string

const (
	TeamLoyalist Team = "Loyalist"
	TeamSpy      Team = "Spy"
)

// Card is a policy card.
type Card string

const (
	Blue Card = "blue"
	Red  Card = "red"
)

// Phase is a node in the round state machine.
type Phase string

const (
	PhaseNomination            Phase = "Nomination"
	PhaseVoting                Phase = "Voting"
	PhaseGovernmentFormed      Phase = "GovernmentFormed"
	PhaseGovernmentRejected    Phase = "GovernmentRejected"
	PhaseLegislativePresident  Phase = "LegislativePresident"
	PhaseLegislativeChancellor Phase = "LegislativeChancellor"
	PhaseExecutiveAction       Phase = "ExecutiveAction"
	PhaseRoundEnd              Phase = "RoundEnd"
	PhaseGameOver              Phase = "GameOver"
)

// Power is an executive power unlocked by a Red enactment.
type Power string

const (
	PowerNone            Power = ""
	PowerInvestigate     Power = "Investigate"
	PowerSpecialElection Power = "SpecialElection"
	PowerPolicyPeek      Power = "PolicyPeek"
	PowerExecution       Power = "Execution"
)

// Kind names a decision a provider can be asked for.
type Kind string

const (
	KindNominate        Kind = "nominate"
	KindVote            Kind = "vote"
	KindDiscard         Kind = "discard"
	KindEnact           Kind = "enact"
	KindVetoConsent     Kind = "veto_consent"
	KindInvestigate     Kind = "investigate"
	KindSpecialElection Kind = "special_election"
	KindExecute         Kind = "execute"
	KindPeekAck         Kind = "peek_ack"
	KindSpeak           Kind = "speak"
)

// Valid reports whether k is a known decision kind.
func (k Kind) Valid() bool {
	switch k {
	case KindNominate, KindVote, KindDiscard, KindEnact, KindVetoConsent,
		KindInvestigate, KindSpecialElection, KindExecute, KindPeekAck, KindSpeak:
		return true
	}
	return false
}

// Fixed choice strings.
const (
	ChoiceJa     = "ja"
	ChoiceNein   = "nein"
	ChoiceVeto   = "veto"
	ChoiceAccept = "accept"
	ChoiceReject = "reject"
	ChoiceAck    = "ack"
)

// Condition names how a game was won.
type Condition string

const (
	ConditionBlueTrack         Condition = "BlueTrack"
	ConditionRedTrack          Condition = "RedTrack"
	ConditionMasterSpyExecuted Condition = "MasterSpyExecuted"
	ConditionMasterSpyElected  Condition = "MasterSpyElected"
)

// Outcome is set once, when the game ends.
type Outcome struct {
	Winner    Team
	Condition Condition
}

// Seat is a player slot before roles are dealt.
type Seat struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Player is a seated participant.
type Player struct {
	ID    string
	Name  string
	Role  Role
	Alive bool
}

// Government is a president/chancellor pair.
type Government struct {
	President  string
	Chancellor string
}

// IsZero reports whether no government is recorded.
func (g Government) IsZero() bool {
	return g.President == "" && g.Chancellor == ""
}

// Includes reports whether id held either office.
func (g Government) Includes(id string) bool {
	return id != "" && (g.President == id || g.Chancellor == id)
}

// IntelKind tags a piece of private knowledge.
type IntelKind string

const (
	IntelInvestigation IntelKind = "investigation"
	IntelPeek          IntelKind = "peek"
)

// Intel is private knowledge one player gained from an executive power.
type Intel struct {
	Kind   IntelKind
	Round  int
	Target string
	Team   Team
	Cards  []Card
}
