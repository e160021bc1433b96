package dto

import "avalon-be/internal/avalon"

// Player is the creator identity handed back by CreateRoom.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateRoomRequest struct {
	RoomName    string `json:"room_name"`
	CreatorName string `json:"creator_name"`
}

// CreateRoomResponse is the only place the creator's token is handed out;
// the host joins the socket with it.
type CreateRoomResponse struct {
	RoomID  string `json:"room_id"`
	Creator Player `json:"creator"`
	Token   string `json:"token"`
}

// Setup describes the table for one player count.
type Setup struct {
	Players  int                  `json:"players"`
	Good     int                  `json:"good"`
	Evil     int                  `json:"evil"`
	Missions []avalon.MissionSpec `json:"missions"`
	Defaults []avalon.RoleID      `json:"default_characters"`
}

type CharactersResponse struct {
	Characters []avalon.Role `json:"characters"`
	Setups     []Setup       `json:"setups"`
}
