package websocket

import (
	"encoding/json"
	"time"

	"avalon-be/internal/service/game"
	"avalon-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// JoinGame upgrades the connection and expects a JoinGame request as the
// first frame. Every later frame is a game command, attributed to the player
// the room assigned during the join.
func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("Websocket upgrade failed", zap.Error(err))
			return
		}

		defer conn.Close()

		clientIP := ctx.RemoteAddr()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		respCh := make(chan game.ResponseWrapper, 64)

		joinReq, err := readJoinRequest(conn)
		if err != nil {
			zap.L().Warn("Invalid join handshake", zap.String("client_ip", clientIP), zap.Error(err))
			_ = conn.WriteJSON(game.WrapErrResponse("first message must be a JoinGame request"))
			return
		}

		reqCh, err := appState.RoomSvc.JoinRoom(joinReq, respCh)
		if err != nil {
			zap.L().Warn("Join failed", zap.String("client_ip", clientIP), zap.Error(err))
			_ = conn.WriteJSON(game.WrapErrResponse(err.Error()))
			return
		}

		playerID, ok := awaitJoin(conn, respCh, joinReq)
		if !ok {
			return
		}

		zap.L().Info(
			"Player connected",
			zap.String("client_ip", clientIP),
			zap.String("room_id", joinReq.RoomID),
			zap.String("player_id", playerID),
		)

		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		go writeLoop(conn, respCh, writeDoneCh, clientIP)

		readLoop(conn, reqCh, respCh, playerID, clientIP)

		// the read side is gone; release the seat for a later reconnect
		exitReq := game.RequestWrapper{
			ReqType:    game.REQ_EXIT_GAME,
			PlayerID:   playerID,
			NativeData: &game.ExitGameRequest{PlayerID: playerID, RespCh: respCh},
		}

		select {
		case reqCh <- exitReq:
		case <-time.After(3 * time.Second):
			zap.L().Warn("Exit request not delivered", zap.String("player_id", playerID))
		}

		zap.L().Info(
			"Player disconnected",
			zap.String("client_ip", clientIP),
			zap.String("player_id", playerID),
		)
	}
}

func readJoinRequest(conn *websocket.Conn) (*game.JoinGameRequest, error) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var wrapper game.RequestWrapper

	if err := json.Unmarshal(msg, &wrapper); err != nil {
		return nil, err
	}

	req := game.TryUnwrapJoinGameRequest(wrapper)
	if req == nil {
		return nil, errUnexpectedFirstFrame
	}

	return req, nil
}

// awaitJoin waits for the room's answer to our join and forwards it to the
// client. Only the copy addressed to this connection carries a token.
func awaitJoin(conn *websocket.Conn, respCh chan game.ResponseWrapper, req *game.JoinGameRequest) (string, bool) {
	timeout := time.After(3 * time.Second)

	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				return "", false
			}

			if err := conn.WriteJSON(resp); err != nil {
				return "", false
			}

			switch resp.RespType {
			case game.RESP_ERROR:
				return "", false
			case game.RESP_JOIN_GAME:
				joined, ok := resp.Data.(game.JoinGameResponse)
				if !ok {
					continue
				}
				if joined.Token != "" {
					return joined.Joiner.ID, true
				}
			}

		case <-timeout:
			zap.L().Error("Join response timed out", zap.String("room_id", req.RoomID))
			_ = conn.WriteJSON(game.WrapErrResponse("room did not answer"))
			return "", false
		}
	}
}

func writeLoop(conn *websocket.Conn, respCh chan game.ResponseWrapper, doneCh chan struct{}, clientIP string) {
	ticker := time.NewTicker(HEARTBEAT_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-doneCh:
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Debug("Ping failed", zap.String("client_ip", clientIP), zap.Error(err))
				return
			}

		case resp, ok := <-respCh:
			// closed by the room on exit or when a newer connection took over
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
			if err := conn.WriteJSON(resp); err != nil {
				zap.L().Debug("Write failed", zap.String("client_ip", clientIP), zap.Error(err))
				return
			}
		}
	}
}

func readLoop(
	conn *websocket.Conn,
	reqCh chan game.RequestWrapper,
	respCh chan game.ResponseWrapper,
	playerID string,
	clientIP string,
) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				zap.L().Warn("Read failed", zap.String("client_ip", clientIP), zap.Error(err))
			}
			return
		}

		var wrapper game.RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil || !game.IsClientRequest(wrapper.ReqType) {
			sendLocal(respCh, game.WrapErrResponse("invalid request"))
			continue
		}

		wrapper.PlayerID = playerID

		select {
		case reqCh <- wrapper:
		default:
			zap.L().Warn("Room request channel full", zap.String("player_id", playerID))
			sendLocal(respCh, game.WrapErrResponse("room is busy, try again"))
		}
	}
}

// sendLocal answers the client without going through the room. The room may
// have closed respCh already, so a panicking send is swallowed.
func sendLocal(respCh chan game.ResponseWrapper, resp game.ResponseWrapper) {
	defer func() { _ = recover() }()

	select {
	case respCh <- resp:
	default:
	}
}
