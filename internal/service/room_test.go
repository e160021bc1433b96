package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"avalon-be/internal/avalon"
	"avalon-be/internal/service/dto"
	"avalon-be/internal/service/game"
	"avalon-be/internal/storage"
	"avalon-be/internal/storage/memory"
)

func newTestService(t *testing.T, store storage.RoomStore) *RoomService {
	t.Helper()

	rs := NewRoomService(store, RoomServiceOptions{IdleAfter: time.Minute, SweepEvery: time.Hour})
	t.Cleanup(rs.Close)
	return rs
}

func TestCreateRoom_Validation(t *testing.T) {
	rs := newTestService(t, memory.New())

	if _, err := rs.CreateRoom(dto.CreateRoomRequest{CreatorName: "arthur"}); err == nil {
		t.Fatal("room without a name accepted")
	}
	if _, err := rs.CreateRoom(dto.CreateRoomRequest{RoomName: "camelot"}); err == nil {
		t.Fatal("room without a creator accepted")
	}
}

func TestCreateRoom_PersistsAndServesViews(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rs := newTestService(t, store)

	resp, err := rs.CreateRoom(dto.CreateRoomRequest{RoomName: "camelot", CreatorName: "arthur"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, err := store.LoadRoom(ctx, resp.RoomID)
	if err != nil {
		t.Fatalf("room not saved: %v", err)
	}
	if rec.HostID != resp.Creator.ID {
		t.Fatalf("stored host %s, want %s", rec.HostID, resp.Creator.ID)
	}

	if resp.Token == "" {
		t.Fatal("creator got no token")
	}

	view, err := rs.GetView(ctx, resp.RoomID, resp.Creator.ID, resp.Token)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Stage != game.STAGE_LOBBY || view.HostID != resp.Creator.ID || len(view.Players) != 1 {
		t.Fatalf("unexpected lobby view: %+v", view)
	}

	if _, err := rs.GetView(ctx, resp.RoomID, resp.Creator.ID, ""); !errors.Is(err, game.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken without a token, got %v", err)
	}
	if _, err := rs.GetView(ctx, "missing", "", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
	if _, err := rs.GetView(ctx, resp.RoomID, "stranger", ""); !errors.Is(err, game.ErrUnknownPlayer) {
		t.Fatalf("want ErrUnknownPlayer, got %v", err)
	}
}

func TestJoinRoom_DeliversJoinResponse(t *testing.T) {
	rs := newTestService(t, memory.New())

	resp, err := rs.CreateRoom(dto.CreateRoomRequest{RoomName: "camelot", CreatorName: "arthur"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := rs.JoinRoom(&game.JoinGameRequest{RoomID: "missing", JoinerName: "kay"}, nil); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}

	respCh := make(chan game.ResponseWrapper, 16)
	if _, err := rs.JoinRoom(&game.JoinGameRequest{RoomID: resp.RoomID, PlayerID: resp.Creator.ID, Token: resp.Token}, respCh); err != nil {
		t.Fatalf("join: %v", err)
	}

	select {
	case got := <-respCh:
		joined, ok := got.Data.(game.JoinGameResponse)
		if got.RespType != game.RESP_JOIN_GAME || !ok || joined.Joiner.ID != resp.Creator.ID || joined.Token != resp.Token {
			t.Fatalf("unexpected first response %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no join response")
	}
}

func TestSweep_RemovesIdleRooms(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rs := newTestService(t, store)

	resp, err := rs.CreateRoom(dto.CreateRoomRequest{RoomName: "camelot", CreatorName: "arthur"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if expired := rs.sweep(time.Now()); len(expired) != 0 {
		t.Fatalf("fresh room expired: %v", expired)
	}

	expired := rs.sweep(time.Now().Add(2 * time.Minute))
	if len(expired) != 1 || expired[0] != resp.RoomID {
		t.Fatalf("idle room not expired: %v", expired)
	}
	if rs.RoomCount() != 0 {
		t.Fatalf("room still registered")
	}
	if _, err := store.LoadRoom(ctx, resp.RoomID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired room still stored: %v", err)
	}
}

func TestRestore_RestartsStoredRooms(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	first := NewRoomService(store, RoomServiceOptions{SweepEvery: time.Hour})
	resp, err := first.CreateRoom(dto.CreateRoomRequest{RoomName: "camelot", CreatorName: "arthur"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first.Close()

	if err := store.SaveRoom(ctx, storage.RoomRecord{ID: "broken", HostID: "ghost"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := newTestService(t, store)
	n, err := second.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 1 {
		t.Fatalf("restored %d rooms, want 1", n)
	}

	view, err := second.GetView(ctx, resp.RoomID, "", "")
	if err != nil {
		t.Fatalf("view after restore: %v", err)
	}
	if _, err := second.GetView(ctx, resp.RoomID, resp.Creator.ID, resp.Token); err != nil {
		t.Fatalf("creator token lost across restore: %v", err)
	}
	if view.RoomName != "camelot" || view.HostID != resp.Creator.ID {
		t.Fatalf("restored view = %+v", view)
	}
}

func TestCharacters_ListsCatalogAndSetups(t *testing.T) {
	rs := newTestService(t, memory.New())

	got := rs.Characters()
	if len(got.Characters) != len(avalon.Catalog()) {
		t.Fatalf("characters = %d, want %d", len(got.Characters), len(avalon.Catalog()))
	}
	if len(got.Setups) != avalon.MaxPlayers-avalon.MinPlayers+1 {
		t.Fatalf("setups = %d", len(got.Setups))
	}
	for _, s := range got.Setups {
		if len(s.Defaults) != s.Players || s.Good+s.Evil != s.Players {
			t.Fatalf("inconsistent setup %+v", s)
		}
	}
}
