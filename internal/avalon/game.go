package avalon

// Phase is the state-machine tag of a Game.
type Phase string

const (
	PhaseTeamSelection Phase = "team-selection"
	PhaseVoting        Phase = "voting"
	PhaseMission       Phase = "mission"
	PhaseAssassination Phase = "assassin-attempt"
	PhaseGameOver      Phase = "game-over"
)

func (p Phase) String() string {
	return string(p)
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseTeamSelection, PhaseVoting, PhaseMission, PhaseAssassination, PhaseGameOver:
		return true
	}
	return false
}

// WinReason explains how a game ended.
type WinReason string

const (
	ReasonThreeMissionsGood WinReason = "three-missions-good"
	ReasonThreeMissionsEvil WinReason = "three-missions-evil"
	ReasonFiveRejections    WinReason = "five-rejections"
	ReasonAssassinSuccess   WinReason = "assassin-success"
	ReasonAssassinFailure   WinReason = "assassin-failure"
)

type VoteChoice string

const (
	VoteApprove VoteChoice = "approve"
	VoteReject  VoteChoice = "reject"
)

func (v VoteChoice) Valid() bool {
	return v == VoteApprove || v == VoteReject
}

type MissionChoice string

const (
	MissionSuccess MissionChoice = "success"
	MissionFail    MissionChoice = "fail"
)

func (m MissionChoice) Valid() bool {
	return m == MissionSuccess || m == MissionFail
}

type MissionOutcome string

const (
	OutcomeSuccess MissionOutcome = "success"
	OutcomeFailure MissionOutcome = "failure"
)

// Seat binds a player to a fixed seat and the role dealt to it.
type Seat struct {
	PlayerID string `json:"player_id" msgpack:"player_id"`
	Index    int    `json:"index" msgpack:"index"`
	Role     RoleID `json:"role" msgpack:"role"`
}

// MissionResult is the public record of one completed mission. Individual
// choices are never kept.
type MissionResult struct {
	Round         int            `json:"round" msgpack:"round"`
	Outcome       MissionOutcome `json:"outcome" msgpack:"outcome"`
	FailCount     int            `json:"fail_count" msgpack:"fail_count"`
	FailsRequired int            `json:"fails_required" msgpack:"fails_required"`
	Team          []string       `json:"team" msgpack:"team"`
}

// VoteTally is the revealed result of a closed team vote.
type VoteTally struct {
	Round          int      `json:"round" msgpack:"round"`
	ProposalNumber int      `json:"proposal_number" msgpack:"proposal_number"`
	LeaderID       string   `json:"leader_id" msgpack:"leader_id"`
	Team           []string `json:"team" msgpack:"team"`
	Approvals      []string `json:"approvals" msgpack:"approvals"`
	Rejections     []string `json:"rejections" msgpack:"rejections"`
	Approved       bool     `json:"approved" msgpack:"approved"`
}

// Guess is the assassin's single shot at Merlin.
type Guess struct {
	AssassinID string `json:"assassin_id" msgpack:"assassin_id"`
	TargetID   string `json:"target_id" msgpack:"target_id"`
	Correct    bool   `json:"correct" msgpack:"correct"`
}

// Game is the aggregate root of one Avalon match. It is not safe for
// concurrent use; callers serialize commands per room.
type Game struct {
	config    Configuration
	seats     []Seat
	seatOf    map[string]int
	knowledge map[string]Knowledge

	phase                 Phase
	round                 int
	leaderIndex           int
	proposalNumber        int
	consecutiveRejections int

	proposal       []string
	votes          map[string]VoteChoice
	missionChoices map[string]MissionChoice
	lastVote       *VoteTally
	results        []MissionResult

	goodWins int
	evilWins int
	winner   Team
	reason   WinReason
	guess    *Guess
}

func (g *Game) Phase() Phase                 { return g.phase }
func (g *Game) Round() int                   { return g.round }
func (g *Game) ProposalNumber() int          { return g.proposalNumber }
func (g *Game) ConsecutiveRejections() int   { return g.consecutiveRejections }
func (g *Game) GoodWins() int                { return g.goodWins }
func (g *Game) EvilWins() int                { return g.evilWins }
func (g *Game) Winner() Team                 { return g.winner }
func (g *Game) Reason() WinReason            { return g.reason }
func (g *Game) Configuration() Configuration { return g.config }

// IsOver reports whether a winner has been decided.
func (g *Game) IsOver() bool {
	return g.phase == PhaseGameOver
}

// Leader returns the player id of the current leader.
func (g *Game) Leader() string {
	return g.seats[g.leaderIndex].PlayerID
}

// PlayerIDs returns player ids in seat order.
func (g *Game) PlayerIDs() []string {
	ids := make([]string, len(g.seats))
	for i, s := range g.seats {
		ids[i] = s.PlayerID
	}
	return ids
}

// IsSeated reports whether playerID holds a seat in this game.
func (g *Game) IsSeated(playerID string) bool {
	_, ok := g.seatOf[playerID]
	return ok
}

// Proposal returns the team currently under consideration.
func (g *Game) Proposal() []string {
	return cloneStrings(g.proposal)
}

// MissionResults returns the completed missions in order.
func (g *Game) MissionResults() []MissionResult {
	out := make([]MissionResult, len(g.results))
	for i, r := range g.results {
		r.Team = cloneStrings(r.Team)
		out[i] = r
	}
	return out
}

// CurrentMission returns the spec for the round being played.
func (g *Game) CurrentMission() MissionSpec {
	return g.config.Mission(g.round)
}

// PendingVoters returns seated players who have not voted on the current
// proposal, in seat order. It is empty outside the voting phase.
func (g *Game) PendingVoters() []string {
	if g.phase != PhaseVoting {
		return nil
	}
	var out []string
	for _, s := range g.seats {
		if _, ok := g.votes[s.PlayerID]; !ok {
			out = append(out, s.PlayerID)
		}
	}
	return out
}

// PendingMissionMembers returns team members who have not submitted a
// mission choice. It is empty outside the mission phase.
func (g *Game) PendingMissionMembers() []string {
	if g.phase != PhaseMission {
		return nil
	}
	var out []string
	for _, id := range g.proposal {
		if _, ok := g.missionChoices[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// RoleOf returns the role dealt to playerID. It is meant for trusted
// callers (tests, timeout policies); clients read views instead.
func (g *Game) RoleOf(playerID string) (RoleID, bool) {
	i, ok := g.seatOf[playerID]
	if !ok {
		return "", false
	}
	return g.seats[i].Role, true
}

func (g *Game) holderOf(role RoleID) (string, bool) {
	for _, s := range g.seats {
		if s.Role == role {
			return s.PlayerID, true
		}
	}
	return "", false
}

func (g *Game) onProposal(playerID string) bool {
	for _, id := range g.proposal {
		if id == playerID {
			return true
		}
	}
	return false
}

func (g *Game) advanceLeader() {
	g.leaderIndex = (g.leaderIndex + 1) % len(g.seats)
}

func (g *Game) rolesBySeat() map[string]RoleID {
	out := make(map[string]RoleID, len(g.seats))
	for _, s := range g.seats {
		out[s.PlayerID] = s.Role
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
