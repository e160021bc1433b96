package game

import (
	"context"
	"sort"
	"time"

	"avalon-be/internal/avalon"
	"avalon-be/internal/storage"

	"go.uber.org/zap"
)

// TimeoutPolicy decides what silent players are assumed to submit. A zero
// duration or the "none" choice disables the timer for that stage.
type TimeoutPolicy struct {
	VoteAfter     time.Duration
	VoteChoice    string
	MissionAfter  time.Duration
	MissionChoice string
}

func (tp TimeoutPolicy) voteEnabled() bool {
	return tp.VoteAfter > 0 && avalon.VoteChoice(tp.VoteChoice).Valid()
}

func (tp TimeoutPolicy) missionEnabled() bool {
	return tp.MissionAfter > 0 && avalon.MissionChoice(tp.MissionChoice).Valid()
}

type GameContext struct {
	RoomID    string
	RoomName  string
	GameStage string
	HostID    string
	Players   map[string]*Player

	// CharacterIDs is the host's selection; it is re-validated against the
	// seated count when the game starts.
	CharacterIDs []avalon.RoleID
	Game         *avalon.Game

	Policy TimeoutPolicy
	Store  storage.RoomStore

	TmoCh chan RequestWrapper
	Timer *time.Timer
}

func (gc *GameContext) GetHost() *Player {
	return gc.Players[gc.HostID]
}

// SeatedIDs returns seated players in seat order.
func (gc *GameContext) SeatedIDs() []string {
	seated := make([]*Player, 0, len(gc.Players))
	for _, p := range gc.Players {
		if !p.IsObserver() {
			seated = append(seated, p)
		}
	}
	sort.Slice(seated, func(i, j int) bool { return seated[i].Seat < seated[j].Seat })

	ids := make([]string, len(seated))
	for i, p := range seated {
		ids[i] = p.ID
	}
	return ids
}

// PlayerList is the public roster: seats first, then observers by name.
func (gc *GameContext) PlayerList() []Player {
	out := make([]Player, 0, len(gc.Players))
	for _, p := range gc.Players {
		out = append(out, p.public())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsObserver() != b.IsObserver() {
			return !a.IsObserver()
		}
		if !a.IsObserver() {
			return a.Seat < b.Seat
		}
		return a.Name < b.Name
	})
	return out
}

func (gc *GameContext) OnlineCount() int {
	n := 0
	for _, p := range gc.Players {
		if p.Online {
			n++
		}
	}
	return n
}

func (gc *GameContext) ViewFor(playerID string) GameView {
	view := GameView{
		RoomID:       gc.RoomID,
		RoomName:     gc.RoomName,
		Stage:        gc.GameStage,
		HostID:       gc.HostID,
		Players:      gc.PlayerList(),
		CharacterIDs: append([]avalon.RoleID(nil), gc.CharacterIDs...),
	}

	if gc.Game != nil {
		pv := gc.Game.ViewFor(playerID)
		view.Game = &pv
	}

	return view
}

func (gc *GameContext) BroadcastResp(resp ResponseWrapper) {
	for _, p := range gc.Players {
		gc.send(p, resp)
	}
}

func (gc *GameContext) UnicastResp(playerID string, resp ResponseWrapper) {
	player, ok := gc.Players[playerID]
	if !ok {
		zap.L().Warn(
			"Unicast target not in room",
			zap.String("room_id", gc.RoomID),
			zap.String("player_id", playerID),
		)
		return
	}

	gc.send(player, resp)
}

func (gc *GameContext) send(p *Player, resp ResponseWrapper) {
	if p.RespCh == nil {
		return
	}

	select {
	case p.RespCh <- resp:
	default:
		zap.L().Warn(
			"Dropped response: player channel full",
			zap.String("room_id", gc.RoomID),
			zap.String("player_id", p.ID),
			zap.String("response_type", resp.RespType),
		)
	}
}

// Publish delivers engine events, then gives every connected reader a fresh
// view and saves the room.
func (gc *GameContext) Publish(events []avalon.Event) {
	for _, e := range events {
		resp := WrapResponse(RESP_GAME_EVENT, GameEventResponse{Kind: e.Kind(), Event: e})

		if to := e.Recipient(); to != "" {
			gc.UnicastResp(to, resp)
			continue
		}
		gc.BroadcastResp(resp)
	}

	gc.PushViews()
	gc.Persist()
}

func (gc *GameContext) PushViews() {
	for _, p := range gc.Players {
		gc.send(p, WrapResponse(RESP_GAME_VIEW, gc.ViewFor(p.ID)))
	}
}

func (gc *GameContext) Record() (storage.RoomRecord, error) {
	rec := storage.RoomRecord{
		ID:     gc.RoomID,
		Name:   gc.RoomName,
		HostID: gc.HostID,
	}

	for _, p := range gc.PlayerList() {
		rec.Players = append(rec.Players, storage.PlayerRecord{
			ID:    p.ID,
			Name:  p.Name,
			Seat:  p.Seat,
			Host:  p.Host,
			Token: gc.Players[p.ID].Token,
		})
	}
	for _, id := range gc.CharacterIDs {
		rec.CharacterIDs = append(rec.CharacterIDs, string(id))
	}

	if gc.Game != nil {
		data, err := avalon.EncodeSnapshot(gc.Game.Snapshot())
		if err != nil {
			return storage.RoomRecord{}, err
		}
		rec.Snapshot = data
	}

	return rec, nil
}

func (gc *GameContext) Persist() {
	if gc.Store == nil {
		return
	}

	rec, err := gc.Record()
	if err != nil {
		zap.L().Error("Failed to encode room", zap.String("room_id", gc.RoomID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := gc.Store.SaveRoom(ctx, rec); err != nil {
		zap.L().Error("Failed to save room", zap.String("room_id", gc.RoomID), zap.Error(err))
	}
}

// SetTimeout arms a timer for the current vote or mission. Firing only queues
// a request; the machine goroutine decides whether it is still relevant.
func (gc *GameContext) SetTimeout(d time.Duration) {
	gc.ClearTimeout()

	req := &TimeoutRequest{Stage: gc.GameStage}
	if gc.Game != nil {
		req.Round = gc.Game.Round()
		req.ProposalNumber = gc.Game.ProposalNumber()
	}

	tmoCh := gc.TmoCh
	roomID := gc.RoomID

	gc.Timer = time.AfterFunc(d, func() {
		select {
		case tmoCh <- RequestWrapper{ReqType: REQ_TIMEOUT, NativeData: req}:
		default:
			zap.L().Warn("Dropped timeout: channel full", zap.String("room_id", roomID))
		}
	})
}

func (gc *GameContext) ClearTimeout() {
	if gc.Timer != nil {
		gc.Timer.Stop()
		gc.Timer = nil
	}
}
