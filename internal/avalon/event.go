package avalon

// EventKind tags a domain event for the push-delivery layer.
type EventKind string

const (
	EventRoleRevealed           EventKind = "role_revealed"
	EventGamePhaseChanged       EventKind = "game_phase_changed"
	EventMissionTeamSelected    EventKind = "mission_team_selected"
	EventVoteCast               EventKind = "vote_cast"
	EventVotesRevealed          EventKind = "votes_revealed"
	EventMissionChoiceSubmitted EventKind = "mission_choice_submitted"
	EventMissionResolved        EventKind = "mission_resolved"
	EventAssassinGuessed        EventKind = "assassin_guessed"
	EventGameEnded              EventKind = "game_ended"
)

// Event is one of the closed set of engine events below. Events that carry a
// Recipient must only be delivered to that player.
type Event interface {
	Kind() EventKind
	// Recipient returns the only player allowed to see the event, or "" for
	// public events.
	Recipient() string

	sealed()
}

type public struct{}

func (public) Recipient() string { return "" }
func (public) sealed()           {}

// RoleRevealed hands one player their own role and knowledge.
type RoleRevealed struct {
	PlayerID  string    `json:"player_id"`
	Knowledge Knowledge `json:"knowledge"`
}

func (RoleRevealed) Kind() EventKind     { return EventRoleRevealed }
func (e RoleRevealed) Recipient() string { return e.PlayerID }
func (RoleRevealed) sealed()             {}

type GamePhaseChanged struct {
	public
	Phase          Phase  `json:"phase"`
	Round          int    `json:"round"`
	ProposalNumber int    `json:"proposal_number"`
	LeaderID       string `json:"leader_id"`
}

func (GamePhaseChanged) Kind() EventKind { return EventGamePhaseChanged }

type MissionTeamSelected struct {
	public
	Round          int      `json:"round"`
	ProposalNumber int      `json:"proposal_number"`
	LeaderID       string   `json:"leader_id"`
	Team           []string `json:"team"`
}

func (MissionTeamSelected) Kind() EventKind { return EventMissionTeamSelected }

// VoteCast announces that a player voted, never how.
type VoteCast struct {
	public
	PlayerID  string `json:"player_id"`
	VotesCast int    `json:"votes_cast"`
	Voters    int    `json:"voters"`
}

func (VoteCast) Kind() EventKind { return EventVoteCast }

type VotesRevealed struct {
	public
	Tally                 VoteTally `json:"tally"`
	ConsecutiveRejections int       `json:"consecutive_rejections"`
}

func (VotesRevealed) Kind() EventKind { return EventVotesRevealed }

// MissionChoiceSubmitted only counts submissions; it names nobody.
type MissionChoiceSubmitted struct {
	public
	Round     int `json:"round"`
	Submitted int `json:"submitted"`
	TeamSize  int `json:"team_size"`
}

func (MissionChoiceSubmitted) Kind() EventKind { return EventMissionChoiceSubmitted }

type MissionResolved struct {
	public
	Result   MissionResult `json:"result"`
	GoodWins int           `json:"good_wins"`
	EvilWins int           `json:"evil_wins"`
}

func (MissionResolved) Kind() EventKind { return EventMissionResolved }

type AssassinGuessed struct {
	public
	Guess Guess `json:"guess"`
}

func (AssassinGuessed) Kind() EventKind { return EventAssassinGuessed }

// GameEnded closes the game and reveals every role.
type GameEnded struct {
	public
	Winner Team              `json:"winner"`
	Reason WinReason         `json:"reason"`
	Roles  map[string]RoleID `json:"roles"`
}

func (GameEnded) Kind() EventKind { return EventGameEnded }

func (g *Game) phaseChanged() GamePhaseChanged {
	return GamePhaseChanged{
		Phase:          g.phase,
		Round:          g.round,
		ProposalNumber: g.proposalNumber,
		LeaderID:       g.Leader(),
	}
}
