// Package storage defines how room records are persisted between restarts.
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("room not found")

// PlayerRecord is one lobby member. Seat is -1 for observers.
type PlayerRecord struct {
	ID    string `msgpack:"id"`
	Name  string `msgpack:"name"`
	Seat  int    `msgpack:"seat"`
	Host  bool   `msgpack:"host"`
	Token string `msgpack:"token"`
}

// RoomRecord is everything needed to restart a room's machine: lobby state
// plus the engine snapshot, which stays empty until the game starts.
type RoomRecord struct {
	ID           string         `msgpack:"id"`
	Name         string         `msgpack:"name"`
	HostID       string         `msgpack:"host_id"`
	Players      []PlayerRecord `msgpack:"players"`
	CharacterIDs []string       `msgpack:"character_ids"`
	Snapshot     []byte         `msgpack:"-"`
	CreatedAt    time.Time      `msgpack:"-"`
	UpdatedAt    time.Time      `msgpack:"-"`
}

type RoomStore interface {
	SaveRoom(ctx context.Context, room RoomRecord) error
	LoadRoom(ctx context.Context, roomID string) (RoomRecord, error)
	ListRooms(ctx context.Context) ([]RoomRecord, error)
	DeleteRoom(ctx context.Context, roomID string) error
	Close() error
}
