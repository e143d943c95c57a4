package events

import (
	"time"

	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/wire"
)

// TicketQueued reports a matchmaking ticket entering the queue.
type TicketQueued struct {
	PublishedAt time.Time
	QueuedAt    time.Time
	TicketID    string
}

// TicketDequeued reports a ticket leaving the queue before a match formed.
type TicketDequeued struct {
	PublishedAt time.Time
	Name        string
	Reason      string
	TicketID    string
}

// MatchFound reports the matchmaker pairing the ticket into a match.
type MatchFound struct {
	PublishedAt time.Time
	MatchedAt   time.Time
	MatchID     string
	TicketID    string
}

// MatchCreated reports the relay allocation for a found match. IsHost tells
// this client which relay role to take; ConnectionString and JoinCode are the
// relay endpoint credentials.
type MatchCreated struct {
	PublishedAt      time.Time
	CreatedAt        time.Time
	MatchID          string
	ConnectionString string
	JoinCode         string
	IsHost           bool
	TicketID         string
}

// MatchCancelled reports the match being abandoned before it started.
type MatchCancelled struct {
	PublishedAt time.Time
	Reason      string
}

// NoRulesApply reports that no matchmaking rule set accepted the ticket.
type NoRulesApply struct {
	PublishedAt              time.Time
	Reason                   string
	TicketCreatedAt          time.Time
	MaxRuleAppliesForSeconds int64
	TicketID                 string
}

// MatchCreateError reports a relay allocation failure for a found match.
type MatchCreateError struct {
	PublishedAt time.Time
	Error       string
	TicketID    string
}

// MatchmakingRouter dispatches matchmaking service events to typed
// subscribers.
type MatchmakingRouter struct {
	log *logging.Logger

	Queued           registry[TicketQueued]
	Dequeued         registry[TicketDequeued]
	MatchFound       registry[MatchFound]
	MatchCreated     registry[MatchCreated]
	MatchCancelled   registry[MatchCancelled]
	NoRulesApply     registry[NoRulesApply]
	MatchCreateError registry[MatchCreateError]
}

func (r *MatchmakingRouter) route(event *wire.SnapEvent) {
	switch wire.MatchmakingEventType(event.EventID) {
	case wire.MatchmakingQueued:
		var payload wire.EventMatchmakingQueued
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.Queued.emit(TicketQueued{
			PublishedAt: secondsToTime(payload.PublishedAt),
			QueuedAt:    secondsToTime(payload.QueuedAt),
			TicketID:    payload.TicketID,
		})
	case wire.MatchmakingDequeued:
		var payload wire.EventMatchmakingDequeued
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.Dequeued.emit(TicketDequeued{
			PublishedAt: secondsToTime(payload.PublishedAt),
			Name:        payload.Name,
			Reason:      payload.Reason,
			TicketID:    payload.TicketID,
		})
	case wire.MatchmakingMatchFound:
		var payload wire.EventMatchmakingMatchFound
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MatchFound.emit(MatchFound{
			PublishedAt: secondsToTime(payload.PublishedAt),
			MatchedAt:   secondsToTime(payload.MatchedAt),
			MatchID:     payload.MatchID,
			TicketID:    payload.TicketID,
		})
	case wire.MatchmakingMatchCreated:
		var payload wire.EventMatchmakingMatchCreated
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MatchCreated.emit(MatchCreated{
			PublishedAt:      secondsToTime(payload.PublishedAt),
			CreatedAt:        secondsToTime(payload.CreatedAt),
			MatchID:          payload.MatchID,
			ConnectionString: payload.ConnectionString,
			JoinCode:         payload.JoinCode,
			IsHost:           payload.IsHost,
			TicketID:         payload.TicketID,
		})
	case wire.MatchmakingMatchCancelled:
		var payload wire.EventMatchmakingMatchCancelled
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MatchCancelled.emit(MatchCancelled{
			PublishedAt: secondsToTime(payload.PublishedAt),
			Reason:      payload.Reason,
		})
	case wire.MatchmakingNoRulesApply:
		var payload wire.EventMatchmakingNoRulesApply
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.NoRulesApply.emit(NoRulesApply{
			PublishedAt:              secondsToTime(payload.PublishedAt),
			Reason:                   payload.Reason,
			TicketCreatedAt:          secondsToTime(payload.TicketCreatedAt),
			MaxRuleAppliesForSeconds: payload.MaxRuleAppliesForSeconds,
			TicketID:                 payload.TicketID,
		})
	case wire.MatchmakingMatchCreateError:
		var payload wire.EventMatchmakingMatchCreateError
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MatchCreateError.emit(MatchCreateError{
			PublishedAt: secondsToTime(payload.PublishedAt),
			Error:       payload.Error,
			TicketID:    payload.TicketID,
		})
	default:
		r.log.Warn("unknown matchmaking event",
			logging.Uint32("event_id", event.EventID))
	}
}

func (r *MatchmakingRouter) dropMalformed(event *wire.SnapEvent, err error) {
	r.log.Warn("dropping malformed matchmaking event",
		logging.Uint32("event_id", event.EventID),
		logging.Error(err))
}
