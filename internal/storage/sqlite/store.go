// Package sqlite keeps room records in a SQLite file so rooms survive a restart.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"avalon-be/internal/storage"
	"avalon-be/internal/storage/sqlite/migrations"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps WAL contention out of the room goroutines
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) SaveRoom(ctx context.Context, room storage.RoomRecord) error {
	if strings.TrimSpace(room.ID) == "" {
		return errors.New("room id is required")
	}

	lobby, err := msgpack.Marshal(&room)
	if err != nil {
		return fmt.Errorf("encode lobby %s: %w", room.ID, err)
	}

	now := time.Now().UTC()
	createdAt := room.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (id, name, lobby, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   lobby = excluded.lobby,
		   snapshot = excluded.snapshot,
		   updated_at = excluded.updated_at`,
		room.ID,
		room.Name,
		lobby,
		nullableBlob(room.Snapshot),
		toMillis(createdAt),
		toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return nil
}

func (s *Store) LoadRoom(ctx context.Context, roomID string) (storage.RoomRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT lobby, snapshot, created_at, updated_at FROM rooms WHERE id = ?`,
		roomID,
	)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.RoomRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.RoomRecord{}, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return room, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]storage.RoomRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT lobby, snapshot, created_at, updated_at FROM rooms ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []storage.RoomRecord
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (storage.RoomRecord, error) {
	var (
		lobby     []byte
		snapshot  []byte
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&lobby, &snapshot, &createdAt, &updatedAt); err != nil {
		return storage.RoomRecord{}, err
	}

	var room storage.RoomRecord
	if err := msgpack.Unmarshal(lobby, &room); err != nil {
		return storage.RoomRecord{}, fmt.Errorf("decode lobby: %w", err)
	}
	room.Snapshot = snapshot
	room.CreatedAt = fromMillis(createdAt)
	room.UpdatedAt = fromMillis(updatedAt)
	return room, nil
}

func nullableBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
