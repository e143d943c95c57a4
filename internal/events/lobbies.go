package events

import (
	"time"

	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/wire"
)

// LobbyMemberJoined reports a player entering the lobby.
type LobbyMemberJoined struct {
	PublishedAt time.Time
	LobbyID     string
	UserID      string
	Metadata    wire.Metadata
}

// LobbyMemberLeft reports a player leaving the lobby.
type LobbyMemberLeft struct {
	PublishedAt time.Time
	LobbyID     string
	UserID      string
	Reason      string
}

// LobbyDisbanded reports the lobby being closed by its owner or the service.
type LobbyDisbanded struct {
	PublishedAt time.Time
	LobbyID     string
	OwnerUserID string
}

// LobbyOwnerChanged reports ownership transferring to another member.
type LobbyOwnerChanged struct {
	PublishedAt    time.Time
	LobbyID        string
	OldOwnerUserID string
	NewOwnerUserID string
}

// LobbyMemberReady reports a member toggling their ready state.
type LobbyMemberReady struct {
	PublishedAt time.Time
	LobbyID     string
	UserID      string
	Placement   int32
}

// LobbyMatchStarted reports the lobby owner launching the match. The relay
// endpoint credentials mirror the matchmaking MatchCreated event.
type LobbyMatchStarted struct {
	PublishedAt      time.Time
	LobbyID          string
	ConnectionString string
	JoinCode         string
}

// LobbyMemberInvited reports a player being invited into the lobby.
type LobbyMemberInvited struct {
	PublishedAt time.Time
	LobbyID     string
	UserID      string
}

// LobbyMemberMetadataUpdated reports a member changing their metadata.
type LobbyMemberMetadataUpdated struct {
	PublishedAt time.Time
	LobbyID     string
	UserID      string
	Metadata    wire.Metadata
}

// LobbiesRouter dispatches lobbies service events to typed subscribers.
type LobbiesRouter struct {
	log *logging.Logger

	MemberJoined          registry[LobbyMemberJoined]
	MemberLeft            registry[LobbyMemberLeft]
	Disbanded             registry[LobbyDisbanded]
	OwnerChanged          registry[LobbyOwnerChanged]
	MemberReady           registry[LobbyMemberReady]
	MatchStarted          registry[LobbyMatchStarted]
	MemberInvited         registry[LobbyMemberInvited]
	MemberMetadataUpdated registry[LobbyMemberMetadataUpdated]
}

func (r *LobbiesRouter) route(event *wire.SnapEvent) {
	switch wire.LobbiesEventType(event.EventID) {
	case wire.LobbiesMemberJoined:
		var payload wire.EventLobbyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MemberJoined.emit(LobbyMemberJoined{
			PublishedAt: secondsToTime(payload.PublishedAt),
			LobbyID:     payload.LobbyID,
			UserID:      payload.UserID,
			Metadata:    payload.Metadata,
		})
	case wire.LobbiesMemberLeft:
		var payload wire.EventLobbyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MemberLeft.emit(LobbyMemberLeft{
			PublishedAt: secondsToTime(payload.PublishedAt),
			LobbyID:     payload.LobbyID,
			UserID:      payload.UserID,
			Reason:      payload.Reason,
		})
	case wire.LobbiesLobbyDisbanded:
		var payload wire.EventLobbyDisbanded
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.Disbanded.emit(LobbyDisbanded{
			PublishedAt: secondsToTime(payload.PublishedAt),
			LobbyID:     payload.LobbyID,
			OwnerUserID: payload.OwnerUserID,
		})
	case wire.LobbiesOwnerChanged:
		var payload wire.EventLobbyOwnerChanged
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.OwnerChanged.emit(LobbyOwnerChanged{
			PublishedAt:    secondsToTime(payload.PublishedAt),
			LobbyID:        payload.LobbyID,
			OldOwnerUserID: payload.OldOwnerUserID,
			NewOwnerUserID: payload.NewOwnerUserID,
		})
	case wire.LobbiesMemberReady:
		var payload wire.EventLobbyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MemberReady.emit(LobbyMemberReady{
			PublishedAt: secondsToTime(payload.PublishedAt),
			LobbyID:     payload.LobbyID,
			UserID:      payload.UserID,
			Placement:   payload.Placement,
		})
	case wire.LobbiesMatchStarted:
		var payload wire.EventLobbyMatchStarted
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MatchStarted.emit(LobbyMatchStarted{
			PublishedAt:      secondsToTime(payload.PublishedAt),
			LobbyID:          payload.LobbyID,
			ConnectionString: payload.ConnectionString,
			JoinCode:         payload.JoinCode,
		})
	case wire.LobbiesMemberInvited:
		var payload wire.EventLobbyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MemberInvited.emit(LobbyMemberInvited{
			PublishedAt: secondsToTime(payload.PublishedAt),
			LobbyID:     payload.LobbyID,
			UserID:      payload.UserID,
		})
	case wire.LobbiesMemberMetadataUpdated:
		var payload wire.EventLobbyMember
		if err := payload.Unmarshal(event.Payload); err != nil {
			r.dropMalformed(event, err)
			return
		}
		r.MemberMetadataUpdated.emit(LobbyMemberMetadataUpdated{
			PublishedAt: secondsToTime(payload.PublishedAt),
			LobbyID:     payload.LobbyID,
			UserID:      payload.UserID,
			Metadata:    payload.Metadata,
		})
	default:
		r.log.Warn("unknown lobbies event",
			logging.Uint32("event_id", event.EventID))
	}
}

func (r *LobbiesRouter) dropMalformed(event *wire.SnapEvent, err error) {
	r.log.Warn("dropping malformed lobbies event",
		logging.Uint32("event_id", event.EventID),
		logging.Error(err))
}
