package events

import (
	"time"

	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/wire"
)

// GameServerStateChanged reports a fleet server transitioning between
// lifecycle states.
type GameServerStateChanged struct {
	PublishedAt    time.Time
	GameServerName string
	PreviousState  uint32
	NewState       uint32
}

// FleetsRouter dispatches game-server-fleets service events to typed
// subscribers.
type FleetsRouter struct {
	log *logging.Logger

	StateChanged registry[GameServerStateChanged]
}

func (r *FleetsRouter) route(event *wire.SnapEvent) {
	switch wire.FleetsEventType(event.EventID) {
	case wire.FleetsGameServerStateUpdated:
		var payload wire.EventGameServerStateUpdated
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.log.Warn("dropping malformed fleets event",
				logging.Uint32("event_id", event.EventID),
				logging.Error(err))
			return
		}
		r.StateChanged.emit(GameServerStateChanged{
			PublishedAt:    secondsToTime(payload.PublishedAt),
			GameServerName: payload.GameServerName,
			PreviousState:  payload.PreviousState,
			NewState:       payload.NewState,
		})
	default:
		r.log.Warn("unknown fleets event",
			logging.Uint32("event_id", event.EventID))
	}
}
