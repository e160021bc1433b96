package http

import (
	"fmt"

	"avalon-be/internal/api/http/websocket"
	"avalon-be/internal/state"

	"github.com/kataras/iris/v12"
)

func NewApp(appState *state.AppState) *iris.Application {
	app := iris.Default()

	api := app.Party("/api/v1")

	api.Post("/rooms/create", CreateRoom(appState))
	api.Get("/rooms/{room_id:string}/view", GetRoomView(appState))
	api.Get("/characters", ListCharacters(appState))

	api.Get("/ws/join", websocket.JoinGame(appState))

	return app
}

func RunServer(appState *state.AppState) error {
	app := NewApp(appState)

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	return app.Listen(addr)
}
