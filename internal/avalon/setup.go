package avalon

const (
	MinPlayers = 5
	MaxPlayers = 10

	// MissionCount is the number of missions in a game.
	MissionCount = 5
	// WinningMissions is the score that decides the game.
	WinningMissions = 3
	// MaxRejections consecutive rejected proposals hand the game to evil.
	MaxRejections = 5
)

// MissionSpec describes one round's mission.
type MissionSpec struct {
	RequiredTeamSize int `json:"required_team_size" msgpack:"required_team_size"`
	FailsRequired    int `json:"fails_required" msgpack:"fails_required"`
}

// Configuration is a validated table setup for a given player count.
type Configuration struct {
	PlayerCount  int           `json:"player_count" msgpack:"player_count"`
	GoodCount    int           `json:"good_count" msgpack:"good_count"`
	EvilCount    int           `json:"evil_count" msgpack:"evil_count"`
	PerMission   []MissionSpec `json:"per_mission" msgpack:"per_mission"`
	CharacterIDs []RoleID      `json:"character_ids" msgpack:"character_ids"`
}

// Mission returns the spec for a 1-based round.
func (c Configuration) Mission(round int) MissionSpec {
	if round < 1 || round > len(c.PerMission) {
		return MissionSpec{}
	}
	return c.PerMission[round-1]
}

// HasRole reports whether id is part of the character set.
func (c Configuration) HasRole(id RoleID) bool {
	for _, r := range c.CharacterIDs {
		if r == id {
			return true
		}
	}
	return false
}

type teamSplit struct {
	good int
	evil int
}

var teamSplits = map[int]teamSplit{
	5:  {good: 3, evil: 2},
	6:  {good: 4, evil: 2},
	7:  {good: 4, evil: 3},
	8:  {good: 5, evil: 3},
	9:  {good: 6, evil: 3},
	10: {good: 6, evil: 4},
}

var missionSizes = map[int][MissionCount]int{
	5:  {2, 3, 2, 3, 3},
	6:  {2, 3, 4, 3, 4},
	7:  {2, 3, 3, 4, 4},
	8:  {3, 4, 4, 5, 5},
	9:  {3, 4, 4, 5, 5},
	10: {3, 4, 4, 5, 5},
}

// TeamSplit returns the good/evil split for playerCount.
func TeamSplit(playerCount int) (good, evil int, ok bool) {
	s, ok := teamSplits[playerCount]
	return s.good, s.evil, ok
}

// Missions returns the per-round mission table for playerCount. Mission 4
// needs two fails once seven or more players are at the table.
func Missions(playerCount int) ([]MissionSpec, bool) {
	sizes, ok := missionSizes[playerCount]
	if !ok {
		return nil, false
	}
	out := make([]MissionSpec, MissionCount)
	for i, size := range sizes {
		fails := 1
		if i == 3 && playerCount >= 7 {
			fails = 2
		}
		out[i] = MissionSpec{RequiredTeamSize: size, FailsRequired: fails}
	}
	return out, true
}

type roleDependency struct {
	role RoleID
	// every group must be satisfied by at least one of its roles
	needs [][]RoleID
	why   string
}

var roleDependencies = []roleDependency{
	{
		role:  RolePercival,
		needs: [][]RoleID{{RoleMerlin, RoleMorgana}},
		why:   "percival needs merlin or morgana to look for",
	},
	{
		role:  RoleMorgana,
		needs: [][]RoleID{{RoleMerlin}, {RolePercival}},
		why:   "morgana only matters with merlin and percival in play",
	},
	{
		role:  RoleMordred,
		needs: [][]RoleID{{RoleMerlin}, {RolePercival}},
		why:   "mordred needs merlin and percival in play",
	},
	{
		role:  RoleOberon,
		needs: [][]RoleID{{RoleMerlin}, {RolePercival}},
		why:   "oberon needs merlin and percival in play",
	},
	{
		role:  RoleMerlin,
		needs: [][]RoleID{{RoleAssassin}},
		why:   "merlin requires an assassin to hunt him",
	},
	{
		role:  RoleAssassin,
		needs: [][]RoleID{{RoleMerlin}},
		why:   "the assassin requires merlin as a target",
	},
}

// Configure validates a character selection for playerCount and returns the
// resulting Configuration. Every violation found is reported.
func Configure(playerCount int, characterIDs []RoleID) (Configuration, error) {
	cerr := &ConfigurationError{}

	split, countOK := teamSplits[playerCount]
	if !countOK {
		cerr.add(ViolationPlayerCount, "player count %d is outside %d-%d", playerCount, MinPlayers, MaxPlayers)
	}
	if len(characterIDs) != playerCount {
		cerr.add(ViolationPlayerCount, "%d characters selected for %d players", len(characterIDs), playerCount)
	}

	present := make(map[RoleID]int, len(characterIDs))
	good, evil := 0, 0
	for _, id := range characterIDs {
		role, ok := LookupRole(id)
		if !ok {
			cerr.add(ViolationUnknownRole, "unknown character %q", id)
			continue
		}
		present[id]++
		switch role.Team {
		case TeamGood:
			good++
		case TeamEvil:
			evil++
		}
	}

	if countOK && (good != split.good || evil != split.evil) {
		cerr.add(
			ViolationTeamBalance,
			"%d players need %d good and %d evil, got %d good and %d evil",
			playerCount, split.good, split.evil, good, evil,
		)
	}

	for _, role := range catalog {
		if role.Unique && present[role.ID] > 1 {
			cerr.add(ViolationConflict, "%s selected %d times", role.ID, present[role.ID])
		}
	}

	for _, dep := range roleDependencies {
		if present[dep.role] == 0 {
			continue
		}
		for _, group := range dep.needs {
			satisfied := false
			for _, id := range group {
				if present[id] > 0 {
					satisfied = true
					break
				}
			}
			if !satisfied {
				cerr.add(ViolationDependency, "%s", dep.why)
				break
			}
		}
	}

	if len(cerr.Violations) > 0 {
		return Configuration{}, cerr
	}

	missions, _ := Missions(playerCount)
	ids := make([]RoleID, len(characterIDs))
	copy(ids, characterIDs)

	return Configuration{
		PlayerCount:  playerCount,
		GoodCount:    split.good,
		EvilCount:    split.evil,
		PerMission:   missions,
		CharacterIDs: ids,
	}, nil
}

// DefaultCharacters returns a standard character set for playerCount: Merlin
// and the Assassin, padded with loyal servants and minions. Percival, Morgana
// and Mordred join from seven players on.
func DefaultCharacters(playerCount int) []RoleID {
	split, ok := teamSplits[playerCount]
	if !ok {
		return nil
	}

	good := []RoleID{RoleMerlin}
	evil := []RoleID{RoleAssassin}
	if playerCount >= 7 {
		good = append(good, RolePercival)
		evil = append(evil, RoleMorgana, RoleMordred)
	}
	for len(good) < split.good {
		good = append(good, RoleLoyalServant)
	}
	for len(evil) < split.evil {
		evil = append(evil, RoleMinionOfMordred)
	}

	return append(good, evil...)
}
