package avalon

import "fmt"

// evaluate checks the terminal conditions in precedence order. It returns
// nil when play continues; otherwise it has moved the game to the duel or to
// game over and returns the matching events.
func (g *Game) evaluate() []Event {
	switch {
	case g.consecutiveRejections >= MaxRejections:
		return g.finish(TeamEvil, ReasonFiveRejections)
	case g.evilWins >= WinningMissions:
		return g.finish(TeamEvil, ReasonThreeMissionsEvil)
	case g.goodWins >= WinningMissions:
		if !g.hasDuel() {
			return g.finish(TeamGood, ReasonThreeMissionsGood)
		}
		g.proposal = nil
		g.phase = PhaseAssassination
		return []Event{g.phaseChanged()}
	}
	return nil
}

// hasDuel reports whether both Merlin and the Assassin are in play.
func (g *Game) hasDuel() bool {
	_, merlin := g.holderOf(RoleMerlin)
	_, assassin := g.holderOf(RoleAssassin)
	return merlin && assassin
}

func (g *Game) finish(winner Team, reason WinReason) []Event {
	g.winner = winner
	g.reason = reason
	g.phase = PhaseGameOver
	g.proposal = nil
	g.votes = nil
	g.missionChoices = nil

	return []Event{
		g.phaseChanged(),
		GameEnded{
			Winner: winner,
			Reason: reason,
			Roles:  g.rolesBySeat(),
		},
	}
}

// SubmitAssassinGuess resolves the duel. Exactly one guess is accepted.
func (g *Game) SubmitAssassinGuess(assassinID, targetID string) ([]Event, error) {
	if g.phase != PhaseAssassination {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGuess, illegalPhase("assassin guess", g.phase))
	}
	role, ok := g.RoleOf(assassinID)
	if !ok || role != RoleAssassin {
		return nil, fmt.Errorf("%w: %s is not the assassin", ErrInvalidGuess, assassinID)
	}
	if !g.IsSeated(targetID) {
		return nil, fmt.Errorf("%w: %s is not seated", ErrInvalidGuess, targetID)
	}
	if targetID == assassinID {
		return nil, fmt.Errorf("%w: the assassin cannot name themself", ErrInvalidGuess)
	}

	merlinID, _ := g.holderOf(RoleMerlin)
	guess := Guess{
		AssassinID: assassinID,
		TargetID:   targetID,
		Correct:    targetID == merlinID,
	}
	g.guess = &guess

	events := []Event{AssassinGuessed{Guess: guess}}
	if guess.Correct {
		return append(events, g.finish(TeamEvil, ReasonAssassinSuccess)...), nil
	}
	return append(events, g.finish(TeamGood, ReasonAssassinFailure)...), nil
}
