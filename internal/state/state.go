package state

import (
	"avalon-be/internal/config"
	"avalon-be/internal/service"
	"avalon-be/internal/storage"
)

type AppState struct {
	Cfg     *config.AppConfig
	Store   storage.RoomStore
	RoomSvc *service.RoomService
}

func NewAppState(
	cfg *config.AppConfig,
	store storage.RoomStore,
	roomSvc *service.RoomService,
) *AppState {
	return &AppState{
		Cfg:     cfg,
		Store:   store,
		RoomSvc: roomSvc,
	}
}
