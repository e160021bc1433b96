package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"avalon-be/internal/avalon"
	"avalon-be/internal/service/dto"
	"avalon-be/internal/service/game"
	"avalon-be/internal/storage"

	"go.uber.org/zap"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomBusy     = errors.New("room is busy, try again")
)

type RoomServiceOptions struct {
	Policy     game.TimeoutPolicy
	IdleAfter  time.Duration
	SweepEvery time.Duration
}

type RoomService struct {
	state *roomServiceState
	store storage.RoomStore
	opts  RoomServiceOptions
}

type roomServiceState struct {
	mu sync.RWMutex

	rooms map[string]*roomEntry

	cleanUpDone chan struct{}
	closeOnce   sync.Once
}

func NewRoomService(store storage.RoomStore, opts RoomServiceOptions) *RoomService {
	if opts.IdleAfter <= 0 {
		opts.IdleAfter = 30 * time.Minute
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = time.Minute
	}

	rs := &RoomService{
		state: &roomServiceState{
			rooms:       make(map[string]*roomEntry),
			cleanUpDone: make(chan struct{}),
		},
		store: store,
		opts:  opts,
	}

	go rs.startCleanupLoop()

	return rs
}

func (rs *RoomService) startCleanupLoop() {
	ticker := time.NewTicker(rs.opts.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-rs.state.cleanUpDone:
			return

		case now := <-ticker.C:
			rs.sweep(now)
		}
	}
}

// sweep stops and forgets every room that is no longer valid at now.
func (rs *RoomService) sweep(now time.Time) []string {
	rs.state.mu.Lock()

	var expired []string
	for roomID, entry := range rs.state.rooms {
		if isRoomValid(entry, now, rs.opts.IdleAfter) {
			continue
		}

		zap.S().Infof("Room %s expired, cleaning up", roomID)

		close(entry.doneCh)
		delete(rs.state.rooms, roomID)
		expired = append(expired, roomID)
	}

	rs.state.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, roomID := range expired {
		if err := rs.store.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			zap.S().Warnf("Failed to delete room %s: %v", roomID, err)
		}
	}

	return expired
}

// Close stops the cleanup loop and every room machine. Stored rooms are kept
// so they come back on the next start.
func (rs *RoomService) Close() {
	rs.state.closeOnce.Do(func() {
		close(rs.state.cleanUpDone)

		rs.state.mu.Lock()
		defer rs.state.mu.Unlock()

		for roomID, entry := range rs.state.rooms {
			close(entry.doneCh)
			delete(rs.state.rooms, roomID)
		}
	})
}

func (rs *RoomService) machineOptions(roomID, roomName string) game.MachineOptions {
	return game.MachineOptions{
		RoomID:   roomID,
		RoomName: roomName,
		Policy:   rs.opts.Policy,
		Store:    rs.store,
	}
}

// Restore restarts a machine for every stored room. Rooms that cannot be
// decoded are logged and skipped.
func (rs *RoomService) Restore(ctx context.Context) (int, error) {
	records, err := rs.store.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored rooms: %w", err)
	}

	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	restored := 0
	for _, rec := range records {
		if _, exists := rs.state.rooms[rec.ID]; exists {
			continue
		}

		doneCh := make(chan struct{})
		machine, err := game.RestoreGameMachine(rec, rs.machineOptions(rec.ID, rec.Name), doneCh)
		if err != nil {
			zap.L().Warn("Skipping unrestorable room", zap.String("room_id", rec.ID), zap.Error(err))
			continue
		}

		rs.state.rooms[rec.ID] = &roomEntry{machine: machine, doneCh: doneCh}
		go machine.Start()
		restored++
	}

	zap.S().Infof("Restored %d of %d stored rooms", restored, len(records))

	return restored, nil
}

func (rs *RoomService) CreateRoom(req dto.CreateRoomRequest) (dto.CreateRoomResponse, error) {
	if req.RoomName == "" {
		return dto.CreateRoomResponse{}, errors.New("room name is required")
	}
	if req.CreatorName == "" {
		return dto.CreateRoomResponse{}, errors.New("creator name is required")
	}

	roomID := game.ShortID()
	creator := game.Player{
		ID:    game.ShortID(),
		Name:  req.CreatorName,
		Token: game.NewToken(),
	}

	doneCh := make(chan struct{})
	machine := game.NewGameMachine(rs.machineOptions(roomID, req.RoomName), creator, doneCh)

	rs.state.mu.Lock()
	rs.state.rooms[roomID] = &roomEntry{machine: machine, doneCh: doneCh}
	rs.state.mu.Unlock()

	go machine.Start()

	zap.S().Infof("Room %s created by %s", roomID, req.CreatorName)

	return dto.CreateRoomResponse{
		RoomID: roomID,
		Creator: dto.Player{
			ID:   creator.ID,
			Name: creator.Name,
		},
		Token: creator.Token,
	}, nil
}

func (rs *RoomService) lookup(roomID string) (*roomEntry, error) {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	entry := rs.state.rooms[roomID]
	if entry == nil {
		return nil, ErrRoomNotFound
	}
	return entry, nil
}

// JoinRoom hands the join to the room's machine and returns the channel the
// connection should send its later requests to. The join outcome arrives on
// respCh.
func (rs *RoomService) JoinRoom(req *game.JoinGameRequest, respCh chan game.ResponseWrapper) (chan game.RequestWrapper, error) {
	if req.RoomID == "" {
		return nil, errors.New("room id is required")
	}
	if req.JoinerName == "" && req.PlayerID == "" {
		return nil, errors.New("joiner name is required")
	}

	entry, err := rs.lookup(req.RoomID)
	if err != nil {
		return nil, err
	}

	req.RespCh = respCh
	reqCh := entry.machine.GetReqCh()

	select {
	case reqCh <- game.RequestWrapper{ReqType: game.REQ_JOIN_GAME, NativeData: req}:
	case <-time.After(5 * time.Second):
		zap.S().Warnf("Room %s did not accept join from %s in time", req.RoomID, req.JoinerName)
		return nil, ErrRoomBusy
	}

	return reqCh, nil
}

// GetView asks the room for the view of one player, which needs their
// token, or the spectator view when playerID is empty.
func (rs *RoomService) GetView(ctx context.Context, roomID, playerID, token string) (game.GameView, error) {
	entry, err := rs.lookup(roomID)
	if err != nil {
		return game.GameView{}, err
	}

	replyCh := make(chan game.ViewReply, 1)
	req := game.RequestWrapper{
		ReqType:    game.REQ_VIEW,
		NativeData: &game.ViewRequest{PlayerID: playerID, Token: token, ReplyCh: replyCh},
	}

	select {
	case entry.machine.GetReqCh() <- req:
	case <-entry.doneCh:
		return game.GameView{}, ErrRoomNotFound
	case <-ctx.Done():
		return game.GameView{}, ctx.Err()
	}

	select {
	case reply := <-replyCh:
		return reply.View, reply.Err
	case <-entry.doneCh:
		return game.GameView{}, ErrRoomNotFound
	case <-ctx.Done():
		return game.GameView{}, ctx.Err()
	}
}

func (rs *RoomService) Characters() dto.CharactersResponse {
	resp := dto.CharactersResponse{Characters: avalon.Catalog()}

	for n := avalon.MinPlayers; n <= avalon.MaxPlayers; n++ {
		good, evil, _ := avalon.TeamSplit(n)
		missions, _ := avalon.Missions(n)

		resp.Setups = append(resp.Setups, dto.Setup{
			Players:  n,
			Good:     good,
			Evil:     evil,
			Missions: missions,
			Defaults: avalon.DefaultCharacters(n),
		})
	}

	return resp
}

func (rs *RoomService) RoomCount() int {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	return len(rs.state.rooms)
}
