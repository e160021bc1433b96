package game

import "avalon-be/internal/avalon"

type JoinGameRequest struct {
	RoomID     string `json:"room_id"`
	JoinerName string `json:"joiner_name"`
	// PlayerID and Token resume an existing seat, e.g. the host created
	// over HTTP or a player whose socket dropped.
	PlayerID string `json:"player_id,omitempty"`
	Token    string `json:"token,omitempty"`

	RespCh chan ResponseWrapper `json:"-"`
}

type JoinGameResponse struct {
	RoomID  string   `json:"room_id"`
	Stage   string   `json:"stage"`
	Joiner  Player   `json:"joiner"`
	Players []Player `json:"players"`
	HostID  string   `json:"host_id"`
	// Token is only set on the copy sent to the joiner.
	Token string `json:"token,omitempty"`
}

type ExitGameRequest struct {
	PlayerID string               `json:"player_id"`
	RespCh   chan ResponseWrapper `json:"-"`
}

type ExitGameResponse struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type ConfigureGameRequest struct {
	CharacterIDs []avalon.RoleID `json:"character_ids"`
}

type ConfigureGameResponse struct {
	Configuration avalon.Configuration `json:"configuration"`
}

type StartGameRequest struct {
	// Seed makes the deal reproducible; a random one is drawn when absent.
	Seed *uint64 `json:"seed,omitempty"`
}

type ProposeTeamRequest struct {
	MemberIDs []string `json:"member_ids"`
}

type CastVoteRequest struct {
	Choice avalon.VoteChoice `json:"choice"`
}

type SubmitMissionRequest struct {
	Choice avalon.MissionChoice `json:"choice"`
}

type AssassinGuessRequest struct {
	TargetID string `json:"target_id"`
}

// TimeoutRequest is injected by the stage timer. Round and ProposalNumber
// identify the vote or mission it was armed for so late deliveries are dropped.
type TimeoutRequest struct {
	Stage          string
	Round          int
	ProposalNumber int
}

// ViewRequest asks for one player's view, which needs their token, or the
// spectator view when PlayerID is empty.
type ViewRequest struct {
	PlayerID string
	Token    string
	ReplyCh  chan ViewReply
}

type ViewReply struct {
	View GameView
	Err  error
}

type GameEventResponse struct {
	Kind  avalon.EventKind `json:"kind"`
	Event avalon.Event     `json:"event"`
}

// GameView is what one reader is allowed to know about the room.
type GameView struct {
	RoomID       string             `json:"room_id"`
	RoomName     string             `json:"room_name"`
	Stage        string             `json:"stage"`
	HostID       string             `json:"host_id"`
	Players      []Player           `json:"players"`
	CharacterIDs []avalon.RoleID    `json:"character_ids,omitempty"`
	Game         *avalon.PlayerView `json:"game,omitempty"`
}
