package events

import (
	"time"

	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/wire"
)

// PartyMemberJoined reports a player joining the party.
type PartyMemberJoined struct {
	PublishedAt time.Time
	UserID      string
	Metadata    wire.Metadata
}

// PartyMemberLeft reports a player leaving the party.
type PartyMemberLeft struct {
	PublishedAt time.Time
	UserID      string
	Metadata    wire.Metadata
}

// PartyDeleted reports the party being dissolved.
type PartyDeleted struct {
	PublishedAt time.Time
	PartyID     string
	Reason      string
}

// PartyMemberMetadataUpdated reports a member changing their metadata.
type PartyMemberMetadataUpdated struct {
	PublishedAt time.Time
	UserID      string
	Metadata    wire.Metadata
}

// PartiesRouter dispatches parties service events to typed subscribers.
type PartiesRouter struct {
	log *logging.Logger

	MemberJoined    registry[PartyMemberJoined]
	MemberLeft      registry[PartyMemberLeft]
	Deleted         registry[PartyDeleted]
	MetadataUpdated registry[PartyMemberMetadataUpdated]
}

func (r *PartiesRouter) route(event *wire.SnapEvent) {
	switch wire.PartiesEventType(event.EventID) {
	case wire.PartyJoined:
		var payload wire.EventPartyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MemberJoined.emit(PartyMemberJoined{
			PublishedAt: secondsToTime(payload.PublishedAt),
			UserID:      payload.UserID,
			Metadata:    payload.Metadata,
		})
	case wire.PartyLeft:
		var payload wire.EventPartyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MemberLeft.emit(PartyMemberLeft{
			PublishedAt: secondsToTime(payload.PublishedAt),
			UserID:      payload.UserID,
			Metadata:    payload.Metadata,
		})
	case wire.PartyDeleted:
		var payload wire.EventPartyDeleted
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.Deleted.emit(PartyDeleted{
			PublishedAt: secondsToTime(payload.PublishedAt),
			PartyID:     payload.PartyID,
			Reason:      payload.Reason,
		})
	case wire.PartyPlayerMetadataUpdated:
		var payload wire.EventPartyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MetadataUpdated.emit(PartyMemberMetadataUpdated{
			PublishedAt: secondsToTime(payload.PublishedAt),
			UserID:      payload.UserID,
			Metadata:    payload.Metadata,
		})
	default:
		r.log.Warn("unknown parties event",
			logging.Uint32("event_id", event.EventID))
	}
}

func (r *PartiesRouter) dropMalformed(event *wire.SnapEvent, err error) {
	r.log.Warn("dropping malformed parties event",
		logging.Uint32("event_id", event.EventID),
		logging.Error(err))
}
