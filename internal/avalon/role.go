package avalon

// Team is a role's alignment.
type Team string

const (
	TeamGood Team = "good"
	TeamEvil Team = "evil"
)

func (t Team) String() string {
	return string(t)
}

// RoleID names one of the standard Avalon characters.
type RoleID string

const (
	RoleMerlin          RoleID = "merlin"
	RolePercival        RoleID = "percival"
	RoleLoyalServant    RoleID = "loyal-servant"
	RoleAssassin        RoleID = "assassin"
	RoleMorgana         RoleID = "morgana"
	RoleMordred         RoleID = "mordred"
	RoleOberon          RoleID = "oberon"
	RoleMinionOfMordred RoleID = "minion-of-mordred"
)

func (r RoleID) String() string {
	return string(r)
}

// Sight describes what a role learns at role reveal. The engine resolves it
// against the full assignment exactly once.
type Sight string

const (
	// SightNone sees nobody.
	SightNone Sight = "none"
	// SightEvil sees evil players, minus roles hidden from Merlin.
	SightEvil Sight = "evil"
	// SightMerlinCandidates sees Merlin and Morgana without telling them apart.
	SightMerlinCandidates Sight = "merlin-candidates"
	// SightFellowEvil sees the other evil players, minus those hidden from evil.
	SightFellowEvil Sight = "fellow-evil"
)

// Role is an immutable catalog entry.
type Role struct {
	ID          RoleID `json:"id"`
	Name        string `json:"name"`
	Team        Team   `json:"team"`
	Sight       Sight  `json:"sight"`
	Description string `json:"description"`

	// Unique roles may appear at most once in a character set.
	Unique bool `json:"unique"`
	// HiddenFromMerlin keeps the role out of Merlin's sight.
	HiddenFromMerlin bool `json:"hidden_from_merlin"`
	// HiddenFromEvil keeps the role out of fellow evil players' sight.
	HiddenFromEvil bool `json:"hidden_from_evil"`
	// AppearsAsMerlin puts the role in Percival's candidate pair.
	AppearsAsMerlin bool `json:"appears_as_merlin"`
}

var catalog = []Role{
	{
		ID:          RoleMerlin,
		Name:        "Merlin",
		Team:        TeamGood,
		Sight:       SightEvil,
		Description: "Knows the agents of evil, except Mordred.",
		Unique:      true,
	},
	{
		ID:          RolePercival,
		Name:        "Percival",
		Team:        TeamGood,
		Sight:       SightMerlinCandidates,
		Description: "Sees Merlin and Morgana, but not which is which.",
		Unique:      true,
	},
	{
		ID:          RoleLoyalServant,
		Name:        "Loyal Servant of Arthur",
		Team:        TeamGood,
		Sight:       SightNone,
		Description: "Knows nothing beyond their own allegiance.",
	},
	{
		ID:          RoleAssassin,
		Name:        "Assassin",
		Team:        TeamEvil,
		Sight:       SightFellowEvil,
		Description: "Gets one guess at Merlin if good completes three missions.",
		Unique:      true,
	},
	{
		ID:              RoleMorgana,
		Name:            "Morgana",
		Team:            TeamEvil,
		Sight:           SightFellowEvil,
		Description:     "Appears as Merlin to Percival.",
		Unique:          true,
		AppearsAsMerlin: true,
	},
	{
		ID:               RoleMordred,
		Name:             "Mordred",
		Team:             TeamEvil,
		Sight:            SightFellowEvil,
		Description:      "Unknown to Merlin.",
		Unique:           true,
		HiddenFromMerlin: true,
	},
	{
		ID:             RoleOberon,
		Name:           "Oberon",
		Team:           TeamEvil,
		Sight:          SightNone,
		Description:    "Unknown to the other evil players, and does not know them.",
		Unique:         true,
		HiddenFromEvil: true,
	},
	{
		ID:          RoleMinionOfMordred,
		Name:        "Minion of Mordred",
		Team:        TeamEvil,
		Sight:       SightFellowEvil,
		Description: "Knows the other agents of evil.",
	},
}

var catalogByID = func() map[RoleID]Role {
	m := make(map[RoleID]Role, len(catalog))
	for _, r := range catalog {
		m[r.ID] = r
	}
	return m
}()

// Catalog returns a copy of every known role, good roles first.
func Catalog() []Role {
	out := make([]Role, len(catalog))
	copy(out, catalog)
	return out
}

// LookupRole returns the catalog entry for id.
func LookupRole(id RoleID) (Role, bool) {
	r, ok := catalogByID[id]
	return r, ok
}

// TeamOf returns the alignment of id, or "" when the role is unknown.
func TeamOf(id RoleID) Team {
	return catalogByID[id].Team
}
