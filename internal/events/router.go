package events

import (
	"time"

	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/wire"
)

// Router fans inbound snap events out to the per-service routers. Exactly one
// service router sees any given event; the match is on the exact service name.
type Router struct {
	log *logging.Logger

	Matchmaking *MatchmakingRouter
	Parties     *PartiesRouter
	Lobbies     *LobbiesRouter
	Fleets      *FleetsRouter
}

// NewRouter constructs a router with every service registry ready for
// subscriptions.
func NewRouter(log *logging.Logger) *Router {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Router{
		log:         log,
		Matchmaking: &MatchmakingRouter{log: log},
		Parties:     &PartiesRouter{log: log},
		Lobbies:     &LobbiesRouter{log: log},
		Fleets:      &FleetsRouter{log: log},
	}
}

// Route dispatches one decoded envelope. Envelopes that are not snap events,
// name an unknown service, or carry an unknown event id are logged and
// dropped; a payload that fails to decode is likewise dropped so one bad
// frame never reaches subscribers.
func (r *Router) Route(env *wire.Envelope) {
	if r == nil || env == nil {
		return
	}
	if env.Type != wire.MessageTypeSnapEvent || env.Event == nil {
		r.log.Warn("envelope is not a snap event",
			logging.String("mid", env.Mid),
			logging.String("message_type", env.Type.String()))
		return
	}
	event := env.Event
	switch event.ServiceName {
	case wire.ServiceMatchmaking:
		r.Matchmaking.route(event)
	case wire.ServiceParties:
		r.Parties.route(event)
	case wire.ServiceLobbies:
		r.Lobbies.route(event)
	case wire.ServiceFleets:
		r.Fleets.route(event)
	default:
		r.log.Warn("snap event for unknown service",
			logging.String("service", event.ServiceName),
			logging.Uint32("event_id", event.EventID))
	}
}

// secondsToTime converts a unix-seconds stamp; zero stays the zero time.
func secondsToTime(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}
