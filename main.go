package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"avalon-be/internal/api/http"
	"avalon-be/internal/config"
	"avalon-be/internal/logger"
	"avalon-be/internal/service"
	"avalon-be/internal/service/game"
	"avalon-be/internal/state"
	"avalon-be/internal/storage"
	"avalon-be/internal/storage/memory"
	"avalon-be/internal/storage/sqlite"

	"go.uber.org/zap"
)

func main() {
	cfg := config.InitConfig()

	logger.InitLogger(cfg.LogLevel)
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	roomSvc := service.NewRoomService(store, service.RoomServiceOptions{
		Policy: game.TimeoutPolicy{
			VoteAfter:     cfg.VoteTimeout(),
			VoteChoice:    cfg.VoteTimeoutPolicy,
			MissionAfter:  cfg.MissionTimeout(),
			MissionChoice: cfg.MissionTimeoutPolicy,
		},
		IdleAfter: cfg.RoomIdle(),
	})
	defer roomSvc.Close()

	if _, err := roomSvc.Restore(ctx); err != nil {
		zap.L().Error("Failed to restore rooms", zap.Error(err))
	}

	appState := state.NewAppState(cfg, store, roomSvc)

	go func() {
		<-ctx.Done()
		zap.L().Info("Shutting down")
		roomSvc.Close()
		_ = store.Close()
		os.Exit(0)
	}()

	if err := http.RunServer(appState); err != nil {
		zap.L().Error("Server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.AppConfig) (storage.RoomStore, error) {
	if cfg.StorageDriver == config.STORAGE_SQLITE {
		return sqlite.Open(ctx, cfg.StoragePath)
	}

	return memory.New(), nil
}
