package avalon

import "fmt"

// SubmitMissionChoice records a team member's secret success/fail card. Good
// players can only play success. The mission resolves once every member has
// submitted; only the fail count is ever revealed.
func (g *Game) SubmitMissionChoice(playerID string, choice MissionChoice) ([]Event, error) {
	if g.phase != PhaseMission {
		return nil, illegalPhase("submit mission choice", g.phase)
	}
	if !g.onProposal(playerID) {
		return nil, fmt.Errorf("%w: %s is not on the mission team", ErrInvalidMissionSubmission, playerID)
	}
	if !choice.Valid() {
		return nil, fmt.Errorf("%w: unknown choice %q", ErrInvalidMissionSubmission, choice)
	}
	if _, done := g.missionChoices[playerID]; done {
		return nil, fmt.Errorf("%w: %s already submitted", ErrInvalidMissionSubmission, playerID)
	}
	if choice == MissionFail && g.knowledge[playerID].Team == TeamGood {
		return nil, fmt.Errorf("%w: good players can only succeed", ErrInvalidMissionSubmission)
	}

	g.missionChoices[playerID] = choice

	events := []Event{MissionChoiceSubmitted{
		Round:     g.round,
		Submitted: len(g.missionChoices),
		TeamSize:  len(g.proposal),
	}}

	if len(g.missionChoices) < len(g.proposal) {
		return events, nil
	}

	return append(events, g.resolveMission()...), nil
}

func (g *Game) resolveMission() []Event {
	spec := g.CurrentMission()

	fails := 0
	for _, c := range g.missionChoices {
		if c == MissionFail {
			fails++
		}
	}

	result := MissionResult{
		Round:         g.round,
		Outcome:       OutcomeSuccess,
		FailCount:     fails,
		FailsRequired: spec.FailsRequired,
		Team:          cloneStrings(g.proposal),
	}
	if fails >= spec.FailsRequired {
		result.Outcome = OutcomeFailure
		g.evilWins++
	} else {
		g.goodWins++
	}

	g.results = append(g.results, result)
	g.missionChoices = nil

	events := []Event{MissionResolved{
		Result:   result,
		GoodWins: g.goodWins,
		EvilWins: g.evilWins,
	}}

	if next := g.evaluate(); next != nil {
		return append(events, next...)
	}

	g.round++
	g.advanceLeader()
	g.proposalNumber = 1
	g.proposal = nil
	g.phase = PhaseTeamSelection

	return append(events, g.phaseChanged())
}
