package http

import (
	"errors"

	"avalon-be/internal/service"
	"avalon-be/internal/service/dto"
	"avalon-be/internal/service/game"
	"avalon-be/internal/state"

	"github.com/kataras/iris/v12"
)

func CreateRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req dto.CreateRoomRequest

		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
				"error": "invalid request body",
			})
			return
		}

		resp, err := appState.RoomSvc.CreateRoom(req)
		if err != nil {
			ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

// PLAYER_TOKEN_HEADER carries the token a player got when joining.
const PLAYER_TOKEN_HEADER = "X-Player-Token"

// GetRoomView returns the redacted view for ?player_id=, authenticated by
// the player's token header, or the spectator view when it is omitted.
func GetRoomView(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		roomID := ctx.Params().Get("room_id")
		playerID := ctx.URLParam("player_id")
		token := ctx.GetHeader(PLAYER_TOKEN_HEADER)

		view, err := appState.RoomSvc.GetView(ctx.Request().Context(), roomID, playerID, token)
		switch {
		case err == nil:
			ctx.JSON(view)
		case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, game.ErrUnknownPlayer):
			ctx.StopWithJSON(iris.StatusNotFound, iris.Map{"error": err.Error()})
		case errors.Is(err, game.ErrInvalidToken):
			ctx.StopWithJSON(iris.StatusForbidden, iris.Map{"error": err.Error()})
		default:
			ctx.StopWithJSON(iris.StatusServiceUnavailable, iris.Map{"error": err.Error()})
		}
	}
}

func ListCharacters(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.JSON(appState.RoomSvc.Characters())
	}
}
