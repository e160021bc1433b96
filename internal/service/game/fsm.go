package game

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"avalon-be/internal/avalon"
	"avalon-be/internal/storage"

	"go.uber.org/zap"
)

// MachineStatus is what the room service may read without going through the
// request channel.
type MachineStatus struct {
	Stage      string
	Online     int
	LastActive time.Time
}

// GameMachine owns one room. Every request for the room is handled by the
// goroutine running Start, so the engine is never touched concurrently.
type GameMachine struct {
	ctx     *GameContext
	handler StageHandler
	// all client requests for the room are funneled through here
	reqCh chan RequestWrapper
	// closing doneCh stops the event loop
	doneCh chan struct{}

	createdAt time.Time
	status    atomic.Pointer[MachineStatus]
}

type MachineOptions struct {
	RoomID   string
	RoomName string
	Policy   TimeoutPolicy
	Store    storage.RoomStore
}

func newGameContext(opts MachineOptions) *GameContext {
	return &GameContext{
		RoomID:    opts.RoomID,
		RoomName:  opts.RoomName,
		GameStage: STAGE_LOBBY,
		Players:   make(map[string]*Player),
		Policy:    opts.Policy,
		Store:     opts.Store,
		TmoCh:     make(chan RequestWrapper, 64),
	}
}

// NewGameMachine creates a lobby whose first seat belongs to host. The host
// is offline until their socket joins with the host id.
func NewGameMachine(opts MachineOptions, host Player, doneCh chan struct{}) *GameMachine {
	ctx := newGameContext(opts)

	host.Seat = 0
	host.Host = true
	if host.Token == "" {
		host.Token = NewToken()
	}
	host.Online = false
	host.RespCh = nil
	ctx.Players[host.ID] = &host
	ctx.HostID = host.ID
	ctx.Persist()

	return newMachine(ctx, doneCh)
}

// RestoreGameMachine rebuilds a room from its stored record. Everyone starts
// offline and resumes by joining again.
func RestoreGameMachine(rec storage.RoomRecord, opts MachineOptions, doneCh chan struct{}) (*GameMachine, error) {
	opts.RoomID = rec.ID
	opts.RoomName = rec.Name
	ctx := newGameContext(opts)
	ctx.HostID = rec.HostID

	for _, p := range rec.Players {
		ctx.Players[p.ID] = &Player{ID: p.ID, Name: p.Name, Seat: p.Seat, Host: p.Host, Token: p.Token}
	}
	if _, ok := ctx.Players[rec.HostID]; !ok {
		return nil, fmt.Errorf("room %s: host %s not among players", rec.ID, rec.HostID)
	}
	for _, id := range rec.CharacterIDs {
		ctx.CharacterIDs = append(ctx.CharacterIDs, avalon.RoleID(id))
	}

	if len(rec.Snapshot) > 0 {
		snap, err := avalon.DecodeSnapshot(rec.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", rec.ID, err)
		}
		g, err := avalon.Restore(snap)
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", rec.ID, err)
		}
		for _, id := range g.PlayerIDs() {
			if p, ok := ctx.Players[id]; !ok || p.IsObserver() {
				return nil, fmt.Errorf("room %s: seated player %s missing from lobby", rec.ID, id)
			}
		}

		ctx.Game = g
		ctx.GameStage = StageForPhase(g.Phase())
	}

	gm := newMachine(ctx, doneCh)
	gm.createdAt = rec.CreatedAt
	return gm, nil
}

func newMachine(ctx *GameContext, doneCh chan struct{}) *GameMachine {
	gm := &GameMachine{
		ctx:       ctx,
		handler:   newStageHandler(ctx.GameStage),
		reqCh:     make(chan RequestWrapper, 64),
		doneCh:    doneCh,
		createdAt: time.Now(),
	}

	gm.handler.SetOnSwitch(gm.onSwitch)
	gm.refreshStatus()

	return gm
}

func (gm *GameMachine) onSwitch(nextStage string) {
	gm.ctx.GameStage = nextStage
}

func (gm *GameMachine) GetReqCh() chan RequestWrapper {
	return gm.reqCh
}

func (gm *GameMachine) Start() {
	gm.handler.OnEnter(gm.ctx)

	defer gm.ctx.ClearTimeout()

	for {
		var req RequestWrapper

		select {
		case req = <-gm.reqCh:
			zap.L().Debug(
				"Request received",
				zap.String("room_id", gm.ctx.RoomID),
				zap.String("request_type", req.ReqType),
				zap.String("player_id", req.PlayerID),
			)
		case req = <-gm.ctx.TmoCh:
			zap.L().Debug(
				"Timeout fired",
				zap.String("room_id", gm.ctx.RoomID),
				zap.String("stage", gm.ctx.GameStage),
			)
		case <-gm.doneCh:
			zap.L().Info(
				"Game machine stopped",
				zap.String("room_id", gm.ctx.RoomID),
			)
			return
		}

		gm.handle(req)
	}
}

func (gm *GameMachine) handle(req RequestWrapper) {
	if err := gm.handler.OnHandle(gm.ctx, req); err != nil {
		zap.L().Debug(
			"Request rejected",
			zap.Error(err),
			zap.String("room_id", gm.ctx.RoomID),
			zap.String("stage", gm.handler.Stage()),
			zap.String("request_type", req.ReqType),
		)
		gm.reportErr(req, err)
	}

	if gm.ctx.GameStage != gm.handler.Stage() {
		gm.switchStage()
		gm.handler.OnEnter(gm.ctx)
	}

	if req.ReqType != REQ_VIEW {
		gm.refreshStatus()
	}
}

func (gm *GameMachine) switchStage() {
	gm.handler.OnExit(gm.ctx)

	next := newStageHandler(gm.ctx.GameStage)
	if next == nil {
		zap.L().Error(
			"Unknown stage",
			zap.String("room_id", gm.ctx.RoomID),
			zap.String("stage", gm.ctx.GameStage),
		)
		gm.ctx.GameStage = gm.handler.Stage()
		return
	}

	zap.L().Debug(
		"Stage switched",
		zap.String("room_id", gm.ctx.RoomID),
		zap.String("from", gm.handler.Stage()),
		zap.String("to", next.Stage()),
	)

	next.SetOnSwitch(gm.onSwitch)
	gm.handler = next
}

// reportErr tells the requester why their request failed. A failed join has
// no player entry yet, so it is answered on the joiner's own channel.
func (gm *GameMachine) reportErr(req RequestWrapper, err error) {
	resp := wrapEngineErr(err)

	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		if jreq.RespCh != nil {
			select {
			case jreq.RespCh <- resp:
			default:
			}
		}
		return
	}

	if req.PlayerID != "" && !errors.Is(err, ErrUnknownPlayer) {
		gm.ctx.UnicastResp(req.PlayerID, resp)
	}
}

func (gm *GameMachine) refreshStatus() {
	gm.status.Store(&MachineStatus{
		Stage:      gm.ctx.GameStage,
		Online:     gm.ctx.OnlineCount(),
		LastActive: time.Now(),
	})
}

func (gm *GameMachine) Status() MachineStatus {
	return *gm.status.Load()
}

func (gm *GameMachine) IsFinished() bool {
	return gm.Status().Stage == STAGE_FINISHED
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}

func (gm *GameMachine) RoomID() string {
	return gm.ctx.RoomID
}
