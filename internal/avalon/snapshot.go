package avalon

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the persisted form of a Game. Knowledge is stored as dealt and
// restored verbatim, never recomputed.
type Snapshot struct {
	Config    Configuration        `json:"config" msgpack:"config"`
	Seats     []Seat               `json:"seats" msgpack:"seats"`
	Knowledge map[string]Knowledge `json:"knowledge" msgpack:"knowledge"`

	Phase                 Phase `json:"phase" msgpack:"phase"`
	Round                 int   `json:"round" msgpack:"round"`
	LeaderIndex           int   `json:"leader_index" msgpack:"leader_index"`
	ProposalNumber        int   `json:"proposal_number" msgpack:"proposal_number"`
	ConsecutiveRejections int   `json:"consecutive_rejections" msgpack:"consecutive_rejections"`

	Proposal       []string                 `json:"proposal" msgpack:"proposal"`
	Votes          map[string]VoteChoice    `json:"votes" msgpack:"votes"`
	MissionChoices map[string]MissionChoice `json:"mission_choices" msgpack:"mission_choices"`
	LastVote       *VoteTally               `json:"last_vote" msgpack:"last_vote"`
	Results        []MissionResult          `json:"results" msgpack:"results"`

	GoodWins int       `json:"good_wins" msgpack:"good_wins"`
	EvilWins int       `json:"evil_wins" msgpack:"evil_wins"`
	Winner   Team      `json:"winner" msgpack:"winner"`
	Reason   WinReason `json:"reason" msgpack:"reason"`
	Guess    *Guess    `json:"guess" msgpack:"guess"`
}

// Snapshot captures the full, unredacted state. It must only be handed to
// the persistence layer.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Config:                g.config,
		Seats:                 append([]Seat(nil), g.seats...),
		Knowledge:             make(map[string]Knowledge, len(g.knowledge)),
		Phase:                 g.phase,
		Round:                 g.round,
		LeaderIndex:           g.leaderIndex,
		ProposalNumber:        g.proposalNumber,
		ConsecutiveRejections: g.consecutiveRejections,
		Proposal:              cloneStrings(g.proposal),
		Results:               g.MissionResults(),
		GoodWins:              g.goodWins,
		EvilWins:              g.evilWins,
		Winner:                g.winner,
		Reason:                g.reason,
	}
	s.Config.PerMission = append([]MissionSpec(nil), g.config.PerMission...)
	s.Config.CharacterIDs = append([]RoleID(nil), g.config.CharacterIDs...)

	for id, k := range g.knowledge {
		s.Knowledge[id] = k.clone()
	}
	if g.votes != nil {
		s.Votes = make(map[string]VoteChoice, len(g.votes))
		for id, v := range g.votes {
			s.Votes[id] = v
		}
	}
	if g.missionChoices != nil {
		s.MissionChoices = make(map[string]MissionChoice, len(g.missionChoices))
		for id, c := range g.missionChoices {
			s.MissionChoices[id] = c
		}
	}
	if g.lastVote != nil {
		tally := *g.lastVote
		tally.Team = cloneStrings(tally.Team)
		tally.Approvals = cloneStrings(tally.Approvals)
		tally.Rejections = cloneStrings(tally.Rejections)
		s.LastVote = &tally
	}
	if g.guess != nil {
		guess := *g.guess
		s.Guess = &guess
	}
	return s
}

// Restore rebuilds a Game from a snapshot after checking it is coherent.
func Restore(s Snapshot) (*Game, error) {
	cfg, err := Configure(s.Config.PlayerCount, s.Config.CharacterIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if len(s.Seats) != cfg.PlayerCount {
		return nil, fmt.Errorf("%w: %d seats for %d players", ErrInvalidSnapshot, len(s.Seats), cfg.PlayerCount)
	}
	if !s.Phase.Valid() {
		return nil, fmt.Errorf("%w: unknown phase %q", ErrInvalidSnapshot, s.Phase)
	}
	if s.Round < 1 || s.Round > MissionCount {
		return nil, fmt.Errorf("%w: round %d out of range", ErrInvalidSnapshot, s.Round)
	}
	if s.LeaderIndex < 0 || s.LeaderIndex >= len(s.Seats) {
		return nil, fmt.Errorf("%w: leader index %d out of range", ErrInvalidSnapshot, s.LeaderIndex)
	}
	if s.GoodWins+s.EvilWins > MissionCount || len(s.Results) != s.GoodWins+s.EvilWins {
		return nil, fmt.Errorf("%w: score %d-%d does not match %d results", ErrInvalidSnapshot, s.GoodWins, s.EvilWins, len(s.Results))
	}
	if s.ProposalNumber < 1 {
		return nil, fmt.Errorf("%w: proposal number %d", ErrInvalidSnapshot, s.ProposalNumber)
	}
	if s.ConsecutiveRejections < 0 || s.ConsecutiveRejections > MaxRejections ||
		(s.ConsecutiveRejections == MaxRejections && s.Phase != PhaseGameOver) {
		return nil, fmt.Errorf("%w: %d consecutive rejections during %s", ErrInvalidSnapshot, s.ConsecutiveRejections, s.Phase)
	}

	// seat roles must deal out exactly the configured characters
	dealt := make(map[RoleID]int, len(cfg.CharacterIDs))
	for _, id := range cfg.CharacterIDs {
		dealt[id]++
	}
	for _, seat := range s.Seats {
		dealt[seat.Role]--
	}
	for id, n := range dealt {
		if n != 0 {
			return nil, fmt.Errorf("%w: seat roles do not match configured %s", ErrInvalidSnapshot, id)
		}
	}

	g := &Game{
		config:                cfg,
		seats:                 make([]Seat, len(s.Seats)),
		seatOf:                make(map[string]int, len(s.Seats)),
		knowledge:             make(map[string]Knowledge, len(s.Seats)),
		phase:                 s.Phase,
		round:                 s.Round,
		leaderIndex:           s.LeaderIndex,
		proposalNumber:        s.ProposalNumber,
		consecutiveRejections: s.ConsecutiveRejections,
		proposal:              cloneStrings(s.Proposal),
		goodWins:              s.GoodWins,
		evilWins:              s.EvilWins,
		winner:                s.Winner,
		reason:                s.Reason,
	}

	for i, seat := range s.Seats {
		if seat.Index != i {
			return nil, fmt.Errorf("%w: seat %d holds index %d", ErrInvalidSnapshot, i, seat.Index)
		}
		if _, dup := g.seatOf[seat.PlayerID]; dup {
			return nil, fmt.Errorf("%w: player %s seated twice", ErrInvalidSnapshot, seat.PlayerID)
		}
		k, ok := s.Knowledge[seat.PlayerID]
		if !ok || k.Role != seat.Role {
			return nil, fmt.Errorf("%w: knowledge missing for %s", ErrInvalidSnapshot, seat.PlayerID)
		}
		g.seats[i] = seat
		g.seatOf[seat.PlayerID] = i
		g.knowledge[seat.PlayerID] = k.clone()
	}

	for _, id := range g.proposal {
		if !g.IsSeated(id) {
			return nil, fmt.Errorf("%w: proposal names unseated %s", ErrInvalidSnapshot, id)
		}
	}
	if (g.phase == PhaseVoting || g.phase == PhaseMission) && len(g.proposal) != cfg.Mission(g.round).RequiredTeamSize {
		return nil, fmt.Errorf("%w: proposal size %d for mission %d", ErrInvalidSnapshot, len(g.proposal), g.round)
	}

	switch g.phase {
	case PhaseVoting:
		g.votes = make(map[string]VoteChoice, len(s.Votes))
		for id, v := range s.Votes {
			if !g.IsSeated(id) || !v.Valid() {
				return nil, fmt.Errorf("%w: bad vote from %s", ErrInvalidSnapshot, id)
			}
			g.votes[id] = v
		}
	case PhaseMission:
		g.missionChoices = make(map[string]MissionChoice, len(s.MissionChoices))
		for id, c := range s.MissionChoices {
			if !g.onProposal(id) || !c.Valid() {
				return nil, fmt.Errorf("%w: bad mission choice from %s", ErrInvalidSnapshot, id)
			}
			g.missionChoices[id] = c
		}
	}

	g.results = make([]MissionResult, len(s.Results))
	for i, r := range s.Results {
		r.Team = cloneStrings(r.Team)
		g.results[i] = r
	}
	if s.LastVote != nil {
		tally := *s.LastVote
		g.lastVote = &tally
	}
	if s.Guess != nil {
		guess := *s.Guess
		g.guess = &guess
	}

	return g, nil
}

// EncodeSnapshot serializes a snapshot with msgpack.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
