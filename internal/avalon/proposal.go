package avalon

import "fmt"

// ProposeTeam records the leader's candidate team for the current mission
// and opens the vote.
func (g *Game) ProposeTeam(leaderID string, memberIDs []string) ([]Event, error) {
	if g.phase != PhaseTeamSelection {
		return nil, illegalPhase("propose team", g.phase)
	}
	if !g.IsSeated(leaderID) {
		return nil, fmt.Errorf("%w: %s is not seated", ErrInvalidProposal, leaderID)
	}
	if leaderID != g.Leader() {
		return nil, fmt.Errorf("%w: %s is not the leader", ErrInvalidProposal, leaderID)
	}

	required := g.CurrentMission().RequiredTeamSize
	if len(memberIDs) != required {
		return nil, fmt.Errorf("%w: mission %d needs %d members, got %d", ErrInvalidProposal, g.round, required, len(memberIDs))
	}

	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if !g.IsSeated(id) {
			return nil, fmt.Errorf("%w: %s is not seated", ErrInvalidProposal, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidProposal, id)
		}
		seen[id] = struct{}{}
	}

	g.proposal = cloneStrings(memberIDs)
	g.votes = make(map[string]VoteChoice, len(g.seats))
	g.phase = PhaseVoting

	return []Event{
		MissionTeamSelected{
			Round:          g.round,
			ProposalNumber: g.proposalNumber,
			LeaderID:       leaderID,
			Team:           cloneStrings(g.proposal),
		},
		g.phaseChanged(),
	}, nil
}

// CastVote records one secret vote on the current proposal. The tally is
// revealed only once every seated player has voted.
func (g *Game) CastVote(playerID string, choice VoteChoice) ([]Event, error) {
	if g.phase != PhaseVoting {
		return nil, illegalPhase("cast vote", g.phase)
	}
	if !g.IsSeated(playerID) {
		return nil, fmt.Errorf("%w: %s is not seated", ErrInvalidVote, playerID)
	}
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: unknown choice %q", ErrInvalidVote, choice)
	}
	if _, voted := g.votes[playerID]; voted {
		return nil, fmt.Errorf("%w: %s already voted", ErrInvalidVote, playerID)
	}

	g.votes[playerID] = choice

	events := []Event{VoteCast{
		PlayerID:  playerID,
		VotesCast: len(g.votes),
		Voters:    len(g.seats),
	}}

	if len(g.votes) < len(g.seats) {
		return events, nil
	}

	return append(events, g.closeVote()...), nil
}

func (g *Game) closeVote() []Event {
	tally := VoteTally{
		Round:          g.round,
		ProposalNumber: g.proposalNumber,
		LeaderID:       g.Leader(),
		Team:           cloneStrings(g.proposal),
		Approvals:      []string{},
		Rejections:     []string{},
	}
	for _, s := range g.seats {
		switch g.votes[s.PlayerID] {
		case VoteApprove:
			tally.Approvals = append(tally.Approvals, s.PlayerID)
		case VoteReject:
			tally.Rejections = append(tally.Rejections, s.PlayerID)
		}
	}
	// strict majority of cast votes; a tie rejects
	tally.Approved = len(tally.Approvals)*2 > len(g.votes)

	g.votes = nil
	g.lastVote = &tally

	if tally.Approved {
		g.consecutiveRejections = 0
		g.missionChoices = make(map[string]MissionChoice, len(g.proposal))
		g.phase = PhaseMission

		return []Event{
			VotesRevealed{Tally: tally, ConsecutiveRejections: 0},
			g.phaseChanged(),
		}
	}

	g.consecutiveRejections++
	events := []Event{VotesRevealed{Tally: tally, ConsecutiveRejections: g.consecutiveRejections}}

	if ended := g.evaluate(); ended != nil {
		return append(events, ended...)
	}

	g.advanceLeader()
	g.proposalNumber++
	g.proposal = nil
	g.phase = PhaseTeamSelection

	return append(events, g.phaseChanged())
}
