package avalon

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type step func(g *Game) ([]Event, error)

func roundTrip(t *testing.T, g *Game) *Game {
	t.Helper()

	data, err := EncodeSnapshot(g.Snapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	return restored
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind()
	}
	return out
}

func TestSnapshot_RoundTripReplaysIdentically(t *testing.T) {
	original := mustGame(t, 5, scenarioRoles, 31)
	runMission(t, original, 0)

	// leave the game mid-vote so pending secret state is persisted too
	proposeFirst(t, original)
	ids := original.PlayerIDs()
	if _, err := original.CastVote(ids[0], VoteReject); err != nil {
		t.Fatalf("vote: %v", err)
	}

	restored := roundTrip(t, original)

	for id, want := range original.knowledge {
		got := restored.knowledge[id]
		if got.Role != want.Role || strings.Join(got.Visible, ",") != strings.Join(want.Visible, ",") {
			t.Fatalf("knowledge of %s changed across restore: %+v vs %+v", id, want, got)
		}
	}

	var steps []step
	for _, id := range ids[1:] {
		id := id
		steps = append(steps, func(g *Game) ([]Event, error) { return g.CastVote(id, VoteApprove) })
	}
	steps = append(steps, func(g *Game) ([]Event, error) {
		var all []Event
		for _, id := range g.Proposal() {
			evs, err := g.SubmitMissionChoice(id, MissionSuccess)
			if err != nil {
				return nil, err
			}
			all = append(all, evs...)
		}
		return all, nil
	})

	for i, s := range steps {
		a, errA := s(original)
		b, errB := s(restored)
		if (errA == nil) != (errB == nil) {
			t.Fatalf("step %d: errors diverged: %v vs %v", i, errA, errB)
		}
		if !reflect.DeepEqual(kinds(a), kinds(b)) {
			t.Fatalf("step %d: events diverged: %v vs %v", i, kinds(a), kinds(b))
		}
	}

	if original.Phase() != restored.Phase() ||
		original.Round() != restored.Round() ||
		original.Leader() != restored.Leader() ||
		original.GoodWins() != restored.GoodWins() ||
		original.EvilWins() != restored.EvilWins() {
		t.Fatalf("states diverged: %+v vs %+v", original.PublicView(), restored.PublicView())
	}
}

func TestSnapshot_RoundTripFinishedGame(t *testing.T) {
	g := mustGame(t, 5, scenarioRoles, 2024)
	playToDuel(t, g)
	if _, err := g.SubmitAssassinGuess(holder(t, g, RoleAssassin), holder(t, g, RoleMerlin)); err != nil {
		t.Fatalf("guess: %v", err)
	}

	restored := roundTrip(t, g)
	if restored.Winner() != TeamEvil || restored.Reason() != ReasonAssassinSuccess {
		t.Fatalf("restored winner %s/%s", restored.Winner(), restored.Reason())
	}
	if v := restored.PublicView(); v.Guess == nil || !v.Guess.Correct {
		t.Fatalf("guess lost across restore: %+v", v.Guess)
	}
}

func TestRestore_RejectsIncoherentSnapshots(t *testing.T) {
	g := mustGame(t, 5, scenarioRoles, 1)

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{name: "unknown phase", mutate: func(s *Snapshot) { s.Phase = "intermission" }},
		{name: "round out of range", mutate: func(s *Snapshot) { s.Round = 6 }},
		{name: "leader out of range", mutate: func(s *Snapshot) { s.LeaderIndex = 5 }},
		{name: "missing seat", mutate: func(s *Snapshot) { s.Seats = s.Seats[:4] }},
		{name: "score without results", mutate: func(s *Snapshot) { s.GoodWins = 2 }},
		{name: "knowledge mismatch", mutate: func(s *Snapshot) {
			k := s.Knowledge[s.Seats[0].PlayerID]
			k.Role = RoleOberon
			s.Knowledge[s.Seats[0].PlayerID] = k
		}},
		{name: "voting without proposal", mutate: func(s *Snapshot) { s.Phase = PhaseVoting }},
		{name: "bad characters", mutate: func(s *Snapshot) { s.Config.CharacterIDs[0] = RoleMordred }},
		{name: "proposal number zero", mutate: func(s *Snapshot) { s.ProposalNumber = 0 }},
		{name: "five rejections before game over", mutate: func(s *Snapshot) { s.ConsecutiveRejections = MaxRejections }},
		{name: "seat roles differ from characters", mutate: func(s *Snapshot) {
			for i := range s.Seats {
				if s.Seats[i].Role == RoleLoyalServant {
					s.Seats[i].Role = RoleMinionOfMordred
					k := s.Knowledge[s.Seats[i].PlayerID]
					k.Role = RoleMinionOfMordred
					s.Knowledge[s.Seats[i].PlayerID] = k
					return
				}
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := g.Snapshot()
			tt.mutate(&s)
			if _, err := Restore(s); !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("want ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}
