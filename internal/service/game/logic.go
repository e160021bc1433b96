package game

import (
	"errors"
	"fmt"

	"avalon-be/internal/avalon"

	"go.uber.org/zap"
)

// A room goes through six stages:
//  1. Lobby: players join and take seats, the host picks characters and starts
//  2. TeamSelection: the leader proposes a mission team
//  3. Voting: everyone approves or rejects the proposal
//  4. Mission: the team secretly plays success or fail
//  5. Assassination: the assassin names Merlin
//  6. Finished: roles are public, nothing more can happen
//
// Stages 2 to 6 mirror the engine phase; the machine follows whatever phase
// the engine reports after each command.
const (
	STAGE_LOBBY          = "Lobby"
	STAGE_TEAM_SELECTION = "TeamSelection"
	STAGE_VOTING         = "Voting"
	STAGE_MISSION        = "Mission"
	STAGE_ASSASSINATION  = "Assassination"
	STAGE_FINISHED       = "Finished"
)

var (
	ErrNotHost        = errors.New("only the host can do that")
	ErrUnknownPlayer  = errors.New("player is not in this room")
	ErrStageMismatch  = errors.New("request not accepted in this stage")
	ErrNotEnoughSeats = errors.New("not enough seated players")
	ErrInvalidToken   = errors.New("player token does not match")
	ErrNameTaken      = errors.New("name already taken in this room")
)

type StageHandler interface {
	Stage() string

	OnEnter(ctx *GameContext)
	OnHandle(ctx *GameContext, req RequestWrapper) error
	OnExit(ctx *GameContext)

	SetOnSwitch(func(nextStage string))
}

func StageForPhase(phase avalon.Phase) string {
	switch phase {
	case avalon.PhaseTeamSelection:
		return STAGE_TEAM_SELECTION
	case avalon.PhaseVoting:
		return STAGE_VOTING
	case avalon.PhaseMission:
		return STAGE_MISSION
	case avalon.PhaseAssassination:
		return STAGE_ASSASSINATION
	case avalon.PhaseGameOver:
		return STAGE_FINISHED
	default:
		return STAGE_LOBBY
	}
}

func newStageHandler(stage string) StageHandler {
	switch stage {
	case STAGE_LOBBY:
		return &lobbyStageHandler{}
	case STAGE_TEAM_SELECTION:
		return &teamStageHandler{}
	case STAGE_VOTING:
		return &voteStageHandler{}
	case STAGE_MISSION:
		return &missionStageHandler{}
	case STAGE_ASSASSINATION:
		return &assassinStageHandler{}
	case STAGE_FINISHED:
		return &finishStageHandler{}
	default:
		return nil
	}
}

type stageSwitch struct {
	onSwitch func(string)
}

func (s *stageSwitch) SetOnSwitch(onSwitch func(string)) {
	s.onSwitch = onSwitch
}

// follow moves the machine to the stage matching the engine phase.
func (s *stageSwitch) follow(ctx *GameContext) {
	if next := StageForPhase(ctx.Game.Phase()); next != ctx.GameStage && s.onSwitch != nil {
		s.onSwitch(next)
	}
}

// Lobby

type lobbyStageHandler struct {
	stageSwitch
}

func (lsh *lobbyStageHandler) Stage() string {
	return STAGE_LOBBY
}

func (lsh *lobbyStageHandler) OnEnter(ctx *GameContext) {}

func (lsh *lobbyStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleCommon(ctx, req); handled {
		return err
	}

	if creq := TryUnwrapConfigureGameRequest(req); creq != nil {
		if err := requireHost(ctx, req.PlayerID); err != nil {
			return err
		}

		cfg, err := avalon.Configure(len(ctx.SeatedIDs()), creq.CharacterIDs)
		if err != nil {
			return err
		}

		ctx.CharacterIDs = append([]avalon.RoleID(nil), cfg.CharacterIDs...)
		ctx.BroadcastResp(WrapResponse(RESP_CONFIGURE_GAME, ConfigureGameResponse{Configuration: cfg}))
		ctx.PushViews()
		ctx.Persist()

		return nil
	}

	if sreq := TryUnwrapStartGameRequest(req); sreq != nil {
		if err := requireHost(ctx, req.PlayerID); err != nil {
			return err
		}

		seated := ctx.SeatedIDs()
		if len(seated) < avalon.MinPlayers {
			return fmt.Errorf("%w: %d of %d", ErrNotEnoughSeats, len(seated), avalon.MinPlayers)
		}

		ids := ctx.CharacterIDs
		if len(ids) == 0 {
			ids = avalon.DefaultCharacters(len(seated))
		}

		cfg, err := avalon.Configure(len(seated), ids)
		if err != nil {
			return err
		}

		seed := randomSeed()
		if sreq.Seed != nil {
			seed = *sreq.Seed
		}

		g, events, err := avalon.NewGame(cfg, seated, seed)
		if err != nil {
			return err
		}

		ctx.CharacterIDs = append([]avalon.RoleID(nil), cfg.CharacterIDs...)
		ctx.Game = g

		zap.L().Info(
			"Game started",
			zap.String("room_id", ctx.RoomID),
			zap.Int("players", len(seated)),
		)

		// the stage switch goes first so the pushed views carry the new stage
		lsh.follow(ctx)
		ctx.Publish(events)

		return nil
	}

	return stageMismatch(ctx, req)
}

func (lsh *lobbyStageHandler) OnExit(ctx *GameContext) {}

// TeamSelection

type teamStageHandler struct {
	stageSwitch
}

func (tsh *teamStageHandler) Stage() string {
	return STAGE_TEAM_SELECTION
}

func (tsh *teamStageHandler) OnEnter(ctx *GameContext) {}

func (tsh *teamStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleCommon(ctx, req); handled {
		return err
	}

	if preq := TryUnwrapProposeTeamRequest(req); preq != nil {
		return applyCommand(ctx, &tsh.stageSwitch, func(g *avalon.Game) ([]avalon.Event, error) {
			return g.ProposeTeam(req.PlayerID, preq.MemberIDs)
		})
	}

	return stageMismatch(ctx, req)
}

func (tsh *teamStageHandler) OnExit(ctx *GameContext) {}

// Voting

type voteStageHandler struct {
	stageSwitch
}

func (vsh *voteStageHandler) Stage() string {
	return STAGE_VOTING
}

func (vsh *voteStageHandler) OnEnter(ctx *GameContext) {
	if ctx.Policy.voteEnabled() {
		ctx.SetTimeout(ctx.Policy.VoteAfter)
	}
}

func (vsh *voteStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleCommon(ctx, req); handled {
		return err
	}

	if vreq := TryUnwrapCastVoteRequest(req); vreq != nil {
		return applyCommand(ctx, &vsh.stageSwitch, func(g *avalon.Game) ([]avalon.Event, error) {
			return g.CastVote(req.PlayerID, vreq.Choice)
		})
	}

	if treq := TryUnwrapTimeoutRequest(req); treq != nil {
		if isStale(ctx, treq) {
			return nil
		}

		choice := avalon.VoteChoice(ctx.Policy.VoteChoice)
		pending := ctx.Game.PendingVoters()

		zap.L().Info(
			"Vote timed out",
			zap.String("room_id", ctx.RoomID),
			zap.Strings("silent", pending),
			zap.String("assumed", string(choice)),
		)

		return applyCommand(ctx, &vsh.stageSwitch, func(g *avalon.Game) ([]avalon.Event, error) {
			var all []avalon.Event
			for _, id := range pending {
				events, err := g.CastVote(id, choice)
				if err != nil {
					return all, err
				}
				all = append(all, events...)
			}
			return all, nil
		})
	}

	return stageMismatch(ctx, req)
}

func (vsh *voteStageHandler) OnExit(ctx *GameContext) {
	ctx.ClearTimeout()
}

// Mission

type missionStageHandler struct {
	stageSwitch
}

func (msh *missionStageHandler) Stage() string {
	return STAGE_MISSION
}

func (msh *missionStageHandler) OnEnter(ctx *GameContext) {
	if ctx.Policy.missionEnabled() {
		ctx.SetTimeout(ctx.Policy.MissionAfter)
	}
}

func (msh *missionStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleCommon(ctx, req); handled {
		return err
	}

	if mreq := TryUnwrapSubmitMissionRequest(req); mreq != nil {
		return applyCommand(ctx, &msh.stageSwitch, func(g *avalon.Game) ([]avalon.Event, error) {
			return g.SubmitMissionChoice(req.PlayerID, mreq.Choice)
		})
	}

	if treq := TryUnwrapTimeoutRequest(req); treq != nil {
		if isStale(ctx, treq) {
			return nil
		}

		pending := ctx.Game.PendingMissionMembers()

		zap.L().Info(
			"Mission timed out",
			zap.String("room_id", ctx.RoomID),
			zap.Strings("silent", pending),
			zap.String("assumed", ctx.Policy.MissionChoice),
		)

		return applyCommand(ctx, &msh.stageSwitch, func(g *avalon.Game) ([]avalon.Event, error) {
			var all []avalon.Event
			for _, id := range pending {
				events, err := g.SubmitMissionChoice(id, assumedMissionChoice(g, id, ctx.Policy.MissionChoice))
				if err != nil {
					return all, err
				}
				all = append(all, events...)
			}
			return all, nil
		})
	}

	return stageMismatch(ctx, req)
}

func (msh *missionStageHandler) OnExit(ctx *GameContext) {
	ctx.ClearTimeout()
}

// assumedMissionChoice applies the policy to evil players only; good players
// can never fail a mission.
func assumedMissionChoice(g *avalon.Game, playerID, policy string) avalon.MissionChoice {
	role, _ := g.RoleOf(playerID)
	if avalon.TeamOf(role) == avalon.TeamGood {
		return avalon.MissionSuccess
	}
	return avalon.MissionChoice(policy)
}

// Assassination

type assassinStageHandler struct {
	stageSwitch
}

func (ash *assassinStageHandler) Stage() string {
	return STAGE_ASSASSINATION
}

func (ash *assassinStageHandler) OnEnter(ctx *GameContext) {}

func (ash *assassinStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleCommon(ctx, req); handled {
		return err
	}

	if greq := TryUnwrapAssassinGuessRequest(req); greq != nil {
		return applyCommand(ctx, &ash.stageSwitch, func(g *avalon.Game) ([]avalon.Event, error) {
			return g.SubmitAssassinGuess(req.PlayerID, greq.TargetID)
		})
	}

	return stageMismatch(ctx, req)
}

func (ash *assassinStageHandler) OnExit(ctx *GameContext) {}

// Finished

type finishStageHandler struct {
	stageSwitch
}

func (fsh *finishStageHandler) Stage() string {
	return STAGE_FINISHED
}

func (fsh *finishStageHandler) OnEnter(ctx *GameContext) {
	ctx.ClearTimeout()

	if ctx.Game != nil {
		zap.L().Info(
			"Game finished",
			zap.String("room_id", ctx.RoomID),
			zap.String("winner", string(ctx.Game.Winner())),
			zap.String("reason", string(ctx.Game.Reason())),
		)
	}
}

func (fsh *finishStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleCommon(ctx, req); handled {
		return err
	}

	return errors.New("game is over")
}

func (fsh *finishStageHandler) OnExit(ctx *GameContext) {
	// a finished room never leaves this stage
	ctx.GameStage = STAGE_FINISHED
}

// applyCommand runs one engine command and, on success, publishes its events
// and follows the engine to its next phase. Engine commands are all-or-nothing,
// except the timeout loops which may stop halfway; whatever they applied is
// still published.
func applyCommand(
	ctx *GameContext,
	sw *stageSwitch,
	cmd func(g *avalon.Game) ([]avalon.Event, error),
) error {
	if ctx.Game == nil {
		return ErrStageMismatch
	}

	events, err := cmd(ctx.Game)
	if len(events) > 0 {
		sw.follow(ctx)
		ctx.Publish(events)
	}

	return err
}

func isStale(ctx *GameContext, req *TimeoutRequest) bool {
	return req.Stage != ctx.GameStage ||
		ctx.Game == nil ||
		req.Round != ctx.Game.Round() ||
		req.ProposalNumber != ctx.Game.ProposalNumber()
}

func requireHost(ctx *GameContext, playerID string) error {
	if playerID == "" || playerID != ctx.HostID {
		return ErrNotHost
	}
	return nil
}

func stageMismatch(ctx *GameContext, req RequestWrapper) error {
	return fmt.Errorf("%w: %s during %s", ErrStageMismatch, req.ReqType, ctx.GameStage)
}

// handleCommon answers the requests every stage accepts.
func handleCommon(ctx *GameContext, req RequestWrapper) (bool, error) {
	if jreq := TryUnwrapJoinGameRequest(req); jreq != nil {
		return true, onPlayerJoin(ctx, jreq)
	}

	if ereq := TryUnwrapExitGameRequest(req); ereq != nil {
		onPlayerExit(ctx, ereq.PlayerID, ereq.RespCh)
		return true, nil
	}

	if vreq := TryUnwrapViewRequest(req); vreq != nil {
		reply := ViewReply{}
		if vreq.PlayerID != "" {
			p, ok := ctx.Players[vreq.PlayerID]
			switch {
			case !ok:
				reply.Err = ErrUnknownPlayer
			case !p.Authenticates(vreq.Token):
				reply.Err = ErrInvalidToken
			}
		}
		if reply.Err == nil {
			reply.View = ctx.ViewFor(vreq.PlayerID)
		}

		select {
		case vreq.ReplyCh <- reply:
		default:
		}
		return true, nil
	}

	return false, nil
}

func onPlayerJoin(ctx *GameContext, req *JoinGameRequest) error {
	player, err := findReturningPlayer(ctx, req)
	if err != nil {
		return err
	}

	if player != nil {
		// a newer connection replaces the old one; its writer sees the close
		if player.RespCh != nil && player.RespCh != req.RespCh {
			close(player.RespCh)
		}
		player.RespCh = req.RespCh
		player.Online = true

		zap.L().Info(
			"Player reconnected",
			zap.String("room_id", ctx.RoomID),
			zap.String("player_id", player.ID),
		)
	} else {
		if req.JoinerName == "" {
			return errors.New("joiner name is required")
		}
		if nameTaken(ctx, req.JoinerName) {
			return ErrNameTaken
		}

		player = &Player{
			ID:     ShortID(),
			Name:   req.JoinerName,
			Seat:   NO_SEAT,
			Online: true,
			Token:  NewToken(),
			RespCh: req.RespCh,
		}

		// seats are handed out in join order until the table is full; after
		// that, or once the game is running, newcomers watch
		if seated := len(ctx.SeatedIDs()); ctx.GameStage == STAGE_LOBBY && seated < avalon.MaxPlayers {
			player.Seat = seated
		}

		ctx.Players[player.ID] = player

		zap.L().Info(
			"Player joined",
			zap.String("room_id", ctx.RoomID),
			zap.String("player_id", player.ID),
			zap.Bool("observer", player.IsObserver()),
		)
	}

	joined := JoinGameResponse{
		RoomID:  ctx.RoomID,
		Stage:   ctx.GameStage,
		Joiner:  player.public(),
		Players: ctx.PlayerList(),
		HostID:  ctx.HostID,
	}

	for _, p := range ctx.Players {
		if p != player {
			ctx.send(p, WrapResponse(RESP_JOIN_GAME, joined))
		}
	}

	// only the joiner's own connection learns the token
	joined.Token = player.Token
	ctx.send(player, WrapResponse(RESP_JOIN_GAME, joined))

	ctx.PushViews()
	ctx.Persist()

	return nil
}

// findReturningPlayer resumes a seat by id, which takes the token issued
// when the seat was taken. A join without an id is always a newcomer.
func findReturningPlayer(ctx *GameContext, req *JoinGameRequest) (*Player, error) {
	if req.PlayerID == "" {
		return nil, nil
	}

	player, ok := ctx.Players[req.PlayerID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if !player.Authenticates(req.Token) {
		return nil, ErrInvalidToken
	}

	return player, nil
}

func nameTaken(ctx *GameContext, name string) bool {
	for _, p := range ctx.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

func onPlayerExit(ctx *GameContext, playerID string, reqRespCh chan ResponseWrapper) {
	player, ok := ctx.Players[playerID]
	if !ok {
		zap.L().Warn(
			"Exit from unknown player",
			zap.String("room_id", ctx.RoomID),
			zap.String("player_id", playerID),
		)
		return
	}

	// a replaced connection already had its channel closed on reconnect
	if reqRespCh == nil || player.RespCh != reqRespCh {
		return
	}

	exitResp := WrapResponse(
		RESP_EXIT_GAME,
		ExitGameResponse{
			PlayerID:   playerID,
			PlayerName: player.Name,
		},
	)

	ctx.send(player, exitResp)
	close(player.RespCh)

	// seats are never removed; the player comes back with id and token
	player.RespCh = nil
	player.Online = false

	zap.L().Info(
		"Player left",
		zap.String("room_id", ctx.RoomID),
		zap.String("player_id", playerID),
	)

	ctx.BroadcastResp(exitResp)
}
