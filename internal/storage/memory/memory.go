package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"avalon-be/internal/storage"
)

type Store struct {
	mu    sync.RWMutex
	rooms map[string]storage.RoomRecord
}

func New() *Store {
	return &Store{rooms: make(map[string]storage.RoomRecord)}
}

func (s *Store) SaveRoom(ctx context.Context, room storage.RoomRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := s.rooms[room.ID]; ok {
		room.CreatedAt = prev.CreatedAt
	} else if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	s.rooms[room.ID] = clone(room)
	return nil
}

func (s *Store) LoadRoom(ctx context.Context, roomID string) (storage.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RoomRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return storage.RoomRecord{}, storage.ErrNotFound
	}
	return clone(room), nil
}

func (s *Store) ListRooms(ctx context.Context) ([]storage.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.RoomRecord, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, clone(room))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[roomID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.rooms, roomID)
	return nil
}

func (s *Store) Close() error { return nil }

func clone(room storage.RoomRecord) storage.RoomRecord {
	room.Players = slices.Clone(room.Players)
	room.CharacterIDs = slices.Clone(room.CharacterIDs)
	room.Snapshot = slices.Clone(room.Snapshot)
	return room
}
