package game

import "crypto/subtle"

// NO_SEAT marks an observer.
const NO_SEAT = -1

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Seat   int    `json:"seat"`
	Host   bool   `json:"host"`
	Online bool   `json:"online"`

	// Token is the player's session secret. It is handed only to the
	// player's own connection and never appears in a roster.
	Token  string               `json:"-"`
	RespCh chan ResponseWrapper `json:"-"`
}

func (p *Player) IsObserver() bool {
	return p.Seat == NO_SEAT
}

// Authenticates reports whether token is this player's session secret.
func (p *Player) Authenticates(token string) bool {
	return p.Token != "" && subtle.ConstantTimeCompare([]byte(p.Token), []byte(token)) == 1
}

// public drops the session secret and the connection.
func (p Player) public() Player {
	p.Token = ""
	p.RespCh = nil
	return p
}
