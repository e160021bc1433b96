package avalon

// SeatView is the public face of one seat.
type SeatView struct {
	PlayerID string `json:"player_id"`
	Index    int    `json:"index"`
	IsLeader bool   `json:"is_leader"`
	OnTeam   bool   `json:"on_team"`
	// HasVoted says whether the player voted on the open proposal, never how.
	HasVoted bool `json:"has_voted"`
	// Role is only filled once the game is over.
	Role RoleID `json:"role,omitempty"`
}

// PlayerView is the redacted projection of a Game for one reader. Secret
// votes and mission choices never appear in it, and roles appear only as far
// as the reader's own knowledge allows.
type PlayerView struct {
	Phase                 Phase         `json:"phase"`
	Round                 int           `json:"round"`
	ProposalNumber        int           `json:"proposal_number"`
	ConsecutiveRejections int           `json:"consecutive_rejections"`
	LeaderID              string        `json:"leader_id"`
	Missions              []MissionSpec `json:"missions"`
	Seats                 []SeatView    `json:"seats"`
	Proposal              []string      `json:"proposal,omitempty"`

	VotesCast          int             `json:"votes_cast"`
	MissionSubmissions int             `json:"mission_submissions"`
	LastVote           *VoteTally      `json:"last_vote,omitempty"`
	MissionResults     []MissionResult `json:"mission_results"`
	GoodWins           int             `json:"good_wins"`
	EvilWins           int             `json:"evil_wins"`

	// AssassinID is public once the duel starts.
	AssassinID string    `json:"assassin_id,omitempty"`
	Guess      *Guess    `json:"guess,omitempty"`
	Winner     Team      `json:"winner,omitempty"`
	Reason     WinReason `json:"reason,omitempty"`

	// Self is nil for readers without a seat.
	Self *SelfView `json:"self,omitempty"`
}

// SelfView holds what only the reader may know about themself.
type SelfView struct {
	PlayerID  string    `json:"player_id"`
	Knowledge Knowledge `json:"knowledge"`
	// MyVote echoes the reader's own pending vote back to them.
	MyVote VoteChoice `json:"my_vote,omitempty"`
	// Submitted tells a team member their own card is in.
	Submitted bool `json:"submitted"`
}

// PublicView is the projection for spectators.
func (g *Game) PublicView() PlayerView {
	return g.ViewFor("")
}

// ViewFor projects the game for playerID. Unknown ids get the public view.
func (g *Game) ViewFor(playerID string) PlayerView {
	over := g.phase == PhaseGameOver

	v := PlayerView{
		Phase:                 g.phase,
		Round:                 g.round,
		ProposalNumber:        g.proposalNumber,
		ConsecutiveRejections: g.consecutiveRejections,
		LeaderID:              g.Leader(),
		Missions:              append([]MissionSpec(nil), g.config.PerMission...),
		Seats:                 make([]SeatView, len(g.seats)),
		Proposal:              cloneStrings(g.proposal),
		VotesCast:             len(g.votes),
		MissionSubmissions:    len(g.missionChoices),
		MissionResults:        g.MissionResults(),
		GoodWins:              g.goodWins,
		EvilWins:              g.evilWins,
		Winner:                g.winner,
		Reason:                g.reason,
	}

	for i, s := range g.seats {
		_, voted := g.votes[s.PlayerID]
		sv := SeatView{
			PlayerID: s.PlayerID,
			Index:    s.Index,
			IsLeader: i == g.leaderIndex,
			OnTeam:   g.onProposal(s.PlayerID),
			HasVoted: voted,
		}
		if over {
			sv.Role = s.Role
		}
		v.Seats[i] = sv
	}

	if g.lastVote != nil {
		tally := *g.lastVote
		tally.Team = cloneStrings(tally.Team)
		tally.Approvals = cloneStrings(tally.Approvals)
		tally.Rejections = cloneStrings(tally.Rejections)
		v.LastVote = &tally
	}

	if g.phase == PhaseAssassination || over {
		if id, ok := g.holderOf(RoleAssassin); ok {
			v.AssassinID = id
		}
	}
	if g.guess != nil {
		guess := *g.guess
		v.Guess = &guess
	}

	if k, ok := g.knowledge[playerID]; ok {
		_, submitted := g.missionChoices[playerID]
		v.Self = &SelfView{
			PlayerID:  playerID,
			Knowledge: k.clone(),
			MyVote:    g.votes[playerID],
			Submitted: submitted,
		}
	}

	return v
}
