package avalon

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// Knowledge is what one player learns at role reveal. It is computed once
// and never recomputed.
type Knowledge struct {
	Role  RoleID `json:"role" msgpack:"role"`
	Team  Team   `json:"team" msgpack:"team"`
	Sight Sight  `json:"sight" msgpack:"sight"`
	// Visible carries player ids only. For Percival the pair is sorted by id
	// so its order says nothing about who is Merlin.
	Visible []string `json:"visible" msgpack:"visible"`
}

func (k Knowledge) clone() Knowledge {
	k.Visible = cloneStrings(k.Visible)
	return k
}

// seedStream decorrelates the two PCG words derived from a single seed.
const seedStream = 0x9e3779b97f4a7c15

// NewGame deals cfg's characters onto playerIDs (in seat order) with a
// uniform shuffle driven by seed, resolves every player's knowledge and
// opens the first team selection. The same seed always produces the same deal
// and the same first leader.
func NewGame(cfg Configuration, playerIDs []string, seed uint64) (*Game, []Event, error) {
	if err := validateSeating(cfg, playerIDs); err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed^seedStream))

	roles := make([]RoleID, len(cfg.CharacterIDs))
	copy(roles, cfg.CharacterIDs)
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	seats := make([]Seat, len(playerIDs))
	seatOf := make(map[string]int, len(playerIDs))
	for i, id := range playerIDs {
		seats[i] = Seat{PlayerID: id, Index: i, Role: roles[i]}
		seatOf[id] = i
	}

	g := &Game{
		config:         cfg,
		seats:          seats,
		seatOf:         seatOf,
		knowledge:      resolveKnowledge(seats),
		phase:          PhaseTeamSelection,
		round:          1,
		leaderIndex:    rng.IntN(len(seats)),
		proposalNumber: 1,
	}

	events := make([]Event, 0, len(seats)+1)
	for _, s := range seats {
		events = append(events, RoleRevealed{
			PlayerID:  s.PlayerID,
			Knowledge: g.knowledge[s.PlayerID].clone(),
		})
	}
	events = append(events, g.phaseChanged())

	return g, events, nil
}

func validateSeating(cfg Configuration, playerIDs []string) error {
	if len(playerIDs) != cfg.PlayerCount {
		return fmt.Errorf("%w: %d players seated for a %d-player configuration", ErrAssignment, len(playerIDs), cfg.PlayerCount)
	}
	if len(cfg.CharacterIDs) != len(playerIDs) {
		return fmt.Errorf("%w: %d roles for %d players", ErrAssignment, len(cfg.CharacterIDs), len(playerIDs))
	}
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" {
			return fmt.Errorf("%w: empty player id", ErrAssignment)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %s seated twice", ErrAssignment, id)
		}
		seen[id] = struct{}{}
	}
	for _, r := range cfg.CharacterIDs {
		if _, ok := LookupRole(r); !ok {
			return fmt.Errorf("%w: unknown role %q", ErrAssignment, r)
		}
	}
	return nil
}

func resolveKnowledge(seats []Seat) map[string]Knowledge {
	out := make(map[string]Knowledge, len(seats))
	for _, s := range seats {
		role, _ := LookupRole(s.Role)
		out[s.PlayerID] = Knowledge{
			Role:    role.ID,
			Team:    role.Team,
			Sight:   role.Sight,
			Visible: VisiblePlayers(s, seats),
		}
	}
	return out
}

// VisiblePlayers applies self's visibility rule to a full assignment and
// returns the ids it may identify, sorted by player id.
func VisiblePlayers(self Seat, seats []Seat) []string {
	role, ok := LookupRole(self.Role)
	if !ok {
		return []string{}
	}

	visible := make([]string, 0, len(seats))
	for _, other := range seats {
		if other.PlayerID == self.PlayerID {
			continue
		}
		otherRole, ok := LookupRole(other.Role)
		if !ok {
			continue
		}

		var sees bool
		switch role.Sight {
		case SightEvil:
			sees = otherRole.Team == TeamEvil && !otherRole.HiddenFromMerlin
		case SightMerlinCandidates:
			sees = otherRole.ID == RoleMerlin || otherRole.AppearsAsMerlin
		case SightFellowEvil:
			sees = otherRole.Team == TeamEvil && !otherRole.HiddenFromEvil
		}
		if sees {
			visible = append(visible, other.PlayerID)
		}
	}

	sort.Strings(visible)
	return visible
}
