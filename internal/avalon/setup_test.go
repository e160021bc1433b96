package avalon

import (
	"errors"
	"testing"
)

func TestConfigure_TeamSplitTable(t *testing.T) {
	tests := []struct {
		players int
		good    int
		evil    int
		sizes   [MissionCount]int
	}{
		{players: 5, good: 3, evil: 2, sizes: [MissionCount]int{2, 3, 2, 3, 3}},
		{players: 6, good: 4, evil: 2, sizes: [MissionCount]int{2, 3, 4, 3, 4}},
		{players: 7, good: 4, evil: 3, sizes: [MissionCount]int{2, 3, 3, 4, 4}},
		{players: 8, good: 5, evil: 3, sizes: [MissionCount]int{3, 4, 4, 5, 5}},
		{players: 9, good: 6, evil: 3, sizes: [MissionCount]int{3, 4, 4, 5, 5}},
		{players: 10, good: 6, evil: 4, sizes: [MissionCount]int{3, 4, 4, 5, 5}},
	}

	for _, tt := range tests {
		cfg, err := Configure(tt.players, DefaultCharacters(tt.players))
		if err != nil {
			t.Fatalf("%d players: unexpected error: %v", tt.players, err)
		}
		if cfg.GoodCount != tt.good || cfg.EvilCount != tt.evil {
			t.Errorf("%d players: split %d/%d, want %d/%d", tt.players, cfg.GoodCount, cfg.EvilCount, tt.good, tt.evil)
		}
		for i, size := range tt.sizes {
			got := cfg.Mission(i + 1)
			if got.RequiredTeamSize != size {
				t.Errorf("%d players mission %d: size %d, want %d", tt.players, i+1, got.RequiredTeamSize, size)
			}
			wantFails := 1
			if i == 3 && tt.players >= 7 {
				wantFails = 2
			}
			if got.FailsRequired != wantFails {
				t.Errorf("%d players mission %d: fails %d, want %d", tt.players, i+1, got.FailsRequired, wantFails)
			}
		}
	}
}

func TestConfigure_RejectsUnbalancedTeams(t *testing.T) {
	for players := MinPlayers; players <= MaxPlayers; players++ {
		ids := DefaultCharacters(players)
		// swap one minion-or-assassin slot for a loyal servant
		for i := len(ids) - 1; i >= 0; i-- {
			if TeamOf(ids[i]) == TeamEvil {
				ids[i] = RoleLoyalServant
				break
			}
		}

		_, err := Configure(players, ids)
		var cerr *ConfigurationError
		if !errors.As(err, &cerr) {
			t.Fatalf("%d players: want ConfigurationError, got %v", players, err)
		}
		if !cerr.Has(ViolationTeamBalance) {
			t.Errorf("%d players: want team-balance violation, got %v", players, cerr.Violations)
		}
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("%d players: error should match ErrConfiguration", players)
		}
	}
}

func TestConfigure_PlayerCountOutOfRange(t *testing.T) {
	for _, n := range []int{0, 4, 11} {
		ids := make([]RoleID, n)
		for i := range ids {
			ids[i] = RoleLoyalServant
		}
		_, err := Configure(n, ids)
		var cerr *ConfigurationError
		if !errors.As(err, &cerr) || !cerr.Has(ViolationPlayerCount) {
			t.Errorf("%d players: want player-count violation, got %v", n, err)
		}
	}
}

func TestConfigure_SelectionSizeMustMatch(t *testing.T) {
	_, err := Configure(5, []RoleID{RoleMerlin, RoleAssassin, RoleLoyalServant, RoleLoyalServant})
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) || !cerr.Has(ViolationPlayerCount) {
		t.Fatalf("want player-count violation, got %v", err)
	}
}

func TestConfigure_ReportsEveryViolation(t *testing.T) {
	// percival without merlin/morgana, two assassins, an unknown id, and a
	// 4/2 split for five players
	ids := []RoleID{RolePercival, RoleLoyalServant, RoleLoyalServant, RoleLoyalServant, RoleAssassin, RoleAssassin, "jester"}
	_, err := Configure(5, ids)

	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("want ConfigurationError, got %v", err)
	}
	for _, kind := range []ViolationKind{
		ViolationPlayerCount,
		ViolationTeamBalance,
		ViolationDependency,
		ViolationConflict,
		ViolationUnknownRole,
	} {
		if !cerr.Has(kind) {
			t.Errorf("missing %s violation in %v", kind, cerr.Violations)
		}
	}
}

func TestConfigure_Dependencies(t *testing.T) {
	tests := []struct {
		name    string
		players int
		ids     []RoleID
		wantErr bool
	}{
		{
			name:    "merlin without assassin",
			players: 5,
			ids:     []RoleID{RoleMerlin, RoleLoyalServant, RoleLoyalServant, RoleMinionOfMordred, RoleMinionOfMordred},
			wantErr: true,
		},
		{
			name:    "vanilla servants and minions",
			players: 5,
			ids:     []RoleID{RoleLoyalServant, RoleLoyalServant, RoleLoyalServant, RoleMinionOfMordred, RoleMinionOfMordred},
		},
		{
			name:    "mordred without merlin",
			players: 5,
			ids:     []RoleID{RoleLoyalServant, RoleLoyalServant, RoleLoyalServant, RoleMordred, RoleMinionOfMordred},
			wantErr: true,
		},
		{
			name:    "mordred without percival",
			players: 5,
			ids:     []RoleID{RoleMerlin, RoleLoyalServant, RoleLoyalServant, RoleAssassin, RoleMordred},
			wantErr: true,
		},
		{
			name:    "oberon without percival",
			players: 7,
			ids:     []RoleID{RoleMerlin, RoleLoyalServant, RoleLoyalServant, RoleLoyalServant, RoleAssassin, RoleOberon, RoleMinionOfMordred},
			wantErr: true,
		},
		{
			name:    "morgana without percival",
			players: 6,
			ids:     []RoleID{RoleMerlin, RoleLoyalServant, RoleLoyalServant, RoleLoyalServant, RoleAssassin, RoleMorgana},
			wantErr: true,
		},
		{
			name:    "percival with morgana and merlin",
			players: 7,
			ids:     []RoleID{RoleMerlin, RolePercival, RoleLoyalServant, RoleLoyalServant, RoleAssassin, RoleMorgana, RoleOberon},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Configure(tt.players, tt.ids)
			if tt.wantErr {
				var cerr *ConfigurationError
				if !errors.As(err, &cerr) || !cerr.Has(ViolationDependency) {
					t.Fatalf("want dependency violation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigure_CopiesSelection(t *testing.T) {
	ids := DefaultCharacters(5)
	cfg, err := Configure(5, ids)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	ids[0] = RoleOberon
	if cfg.CharacterIDs[0] == RoleOberon {
		t.Fatal("configuration aliases the caller's slice")
	}
}
