package service

import (
	"time"

	"avalon-be/internal/service/game"
)

type roomEntry struct {
	machine *game.GameMachine
	doneCh  chan struct{}
}

// isRoomValid reports whether a room should be kept. Rooms nobody is
// connected to, and finished rooms, are dropped once idle for idleAfter.
func isRoomValid(entry *roomEntry, now time.Time, idleAfter time.Duration) bool {
	if entry == nil || entry.machine == nil {
		return false
	}

	status := entry.machine.Status()
	idle := now.Sub(status.LastActive) > idleAfter

	if status.Stage == game.STAGE_FINISHED && idle {
		return false
	}

	if status.Online == 0 && idle {
		return false
	}

	return true
}
