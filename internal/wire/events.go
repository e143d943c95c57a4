package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Service name constants for SnapEvent routing. An event is dispatched only
// to the router registered under its exact service name.
const (
	ServiceMatchmaking = "matchmaking"
	ServiceParties     = "parties"
	ServiceLobbies     = "lobbies"
	ServiceFleets      = "game-server-fleets"
)

// MatchmakingEventType enumerates matchmaking service events.
type MatchmakingEventType uint32

const (
	MatchmakingQueued           MatchmakingEventType = 1
	MatchmakingDequeued         MatchmakingEventType = 2
	MatchmakingMatchFound       MatchmakingEventType = 3
	MatchmakingMatchCreated     MatchmakingEventType = 4
	MatchmakingMatchCancelled   MatchmakingEventType = 5
	MatchmakingNoRulesApply     MatchmakingEventType = 6
	MatchmakingMatchCreateError MatchmakingEventType = 7
)

// PartiesEventType enumerates parties service events.
type PartiesEventType uint32

const (
	PartyJoined                PartiesEventType = 1
	PartyLeft                  PartiesEventType = 2
	PartyDeleted               PartiesEventType = 3
	PartyPlayerMetadataUpdated PartiesEventType = 4
)

// LobbiesEventType enumerates lobbies service events.
type LobbiesEventType uint32

const (
	LobbiesMemberJoined          LobbiesEventType = 1
	LobbiesMemberLeft            LobbiesEventType = 2
	LobbiesLobbyDisbanded        LobbiesEventType = 3
	LobbiesOwnerChanged          LobbiesEventType = 4
	LobbiesMemberReady           LobbiesEventType = 5
	LobbiesMatchStarted          LobbiesEventType = 6
	LobbiesMemberInvited         LobbiesEventType = 7
	LobbiesMemberMetadataUpdated LobbiesEventType = 8
)

// FleetsEventType enumerates game-server-fleets service events.
type FleetsEventType uint32

const (
	FleetsGameServerStateUpdated FleetsEventType = 1
)

// EventMatchmakingQueued reports a ticket entering the matchmaking queue.
type EventMatchmakingQueued struct {
	EventType   uint32
	PublishedAt int64
	QueuedAt    int64
	TicketID    string
}

func (e *EventMatchmakingQueued) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendInt64(buf, 3, e.QueuedAt)
	buf = appendString(buf, 4, e.TicketID)
	return buf
}

func (e *EventMatchmakingQueued) Unmarshal(data []byte) error {
	return eachField(data, "matchmaking queued event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.QueuedAt = int64(value)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.TicketID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventMatchmakingDequeued reports a ticket leaving the queue.
type EventMatchmakingDequeued struct {
	EventType   uint32
	PublishedAt int64
	Name        string
	Reason      string
	TicketID    string
}

func (e *EventMatchmakingDequeued) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.Name)
	buf = appendString(buf, 4, e.Reason)
	buf = appendString(buf, 5, e.TicketID)
	return buf
}

func (e *EventMatchmakingDequeued) Unmarshal(data []byte) error {
	return eachField(data, "matchmaking dequeued event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.Name, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.Reason, n, err = fieldString(field)
			return n, err
		case num == 5 && typ == protowire.BytesType:
			var n int
			var err error
			e.TicketID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventMatchmakingMatchFound reports a candidate match for the ticket.
type EventMatchmakingMatchFound struct {
	EventType   uint32
	PublishedAt int64
	MatchID     string
	MatchedAt   int64
	TicketID    string
}

func (e *EventMatchmakingMatchFound) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.MatchID)
	buf = appendInt64(buf, 4, e.MatchedAt)
	buf = appendString(buf, 5, e.TicketID)
	return buf
}

func (e *EventMatchmakingMatchFound) Unmarshal(data []byte) error {
	return eachField(data, "matchmaking match found event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.MatchID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.MatchedAt = int64(value)
			return n, err
		case num == 5 && typ == protowire.BytesType:
			var n int
			var err error
			e.TicketID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventMatchmakingMatchCreated reports that the relay allocated the match
// and carries everything needed to start the transport.
type EventMatchmakingMatchCreated struct {
	EventType        uint32
	PublishedAt      int64
	MatchID          string
	CreatedAt        int64
	ConnectionString string
	JoinCode         string
	IsHost           bool
	TicketID         string
}

func (e *EventMatchmakingMatchCreated) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.MatchID)
	buf = appendInt64(buf, 4, e.CreatedAt)
	buf = appendString(buf, 5, e.ConnectionString)
	buf = appendString(buf, 6, e.JoinCode)
	buf = appendBool(buf, 7, e.IsHost)
	buf = appendString(buf, 8, e.TicketID)
	return buf
}

func (e *EventMatchmakingMatchCreated) Unmarshal(data []byte) error {
	return eachField(data, "matchmaking match created event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.MatchID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.CreatedAt = int64(value)
			return n, err
		case num == 5 && typ == protowire.BytesType:
			var n int
			var err error
			e.ConnectionString, n, err = fieldString(field)
			return n, err
		case num == 6 && typ == protowire.BytesType:
			var n int
			var err error
			e.JoinCode, n, err = fieldString(field)
			return n, err
		case num == 7 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.IsHost = value != 0
			return n, err
		case num == 8 && typ == protowire.BytesType:
			var n int
			var err error
			e.TicketID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventMatchmakingMatchCancelled reports the match being abandoned.
type EventMatchmakingMatchCancelled struct {
	EventType   uint32
	PublishedAt int64
	Reason      string
}

func (e *EventMatchmakingMatchCancelled) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.Reason)
	return buf
}

func (e *EventMatchmakingMatchCancelled) Unmarshal(data []byte) error {
	return eachField(data, "matchmaking match cancelled event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.Reason, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventMatchmakingNoRulesApply reports that no matchmaking rule matched the
// ticket within the configured window.
type EventMatchmakingNoRulesApply struct {
	EventType                uint32
	PublishedAt              int64
	Reason                   string
	TicketCreatedAt          int64
	MaxRuleAppliesForSeconds int64
	TicketID                 string
}

func (e *EventMatchmakingNoRulesApply) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.Reason)
	buf = appendInt64(buf, 4, e.TicketCreatedAt)
	buf = appendInt64(buf, 5, e.MaxRuleAppliesForSeconds)
	buf = appendString(buf, 6, e.TicketID)
	return buf
}

func (e *EventMatchmakingNoRulesApply) Unmarshal(data []byte) error {
	return eachField(data, "matchmaking no rules apply event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.Reason, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.TicketCreatedAt = int64(value)
			return n, err
		case num == 5 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.MaxRuleAppliesForSeconds = int64(value)
			return n, err
		case num == 6 && typ == protowire.BytesType:
			var n int
			var err error
			e.TicketID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventMatchmakingMatchCreateError reports a failed match allocation.
type EventMatchmakingMatchCreateError struct {
	EventType   uint32
	PublishedAt int64
	Error       string
	TicketID    string
}

func (e *EventMatchmakingMatchCreateError) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.Error)
	buf = appendString(buf, 4, e.TicketID)
	return buf
}

func (e *EventMatchmakingMatchCreateError) Unmarshal(data []byte) error {
	return eachField(data, "matchmaking match create error event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.Error, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.TicketID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventPartyMember reports a party membership change. The same shape serves
// join and leave payloads; which one applies is decided by the event id.
type EventPartyMember struct {
	EventType   uint32
	PublishedAt int64
	UserID      string
	Metadata    Metadata
}

func (e *EventPartyMember) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.UserID)
	buf = appendMetadata(buf, 4, e.Metadata)
	return buf
}

func (e *EventPartyMember) Unmarshal(data []byte) error {
	return eachField(data, "party member event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.UserID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated party metadata")
			}
			var err error
			e.Metadata, err = consumeMetadataEntry(e.Metadata, body)
			return n, err
		}
		return 0, nil
	})
}

// EventPartyDeleted reports the party being disbanded.
type EventPartyDeleted struct {
	EventType   uint32
	PublishedAt int64
	PartyID     string
	Reason      string
}

func (e *EventPartyDeleted) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.PartyID)
	buf = appendString(buf, 4, e.Reason)
	return buf
}

func (e *EventPartyDeleted) Unmarshal(data []byte) error {
	return eachField(data, "party deleted event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.PartyID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.Reason, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventLobbyMember reports a lobby membership or metadata change.
type EventLobbyMember struct {
	EventType   uint32
	PublishedAt int64
	LobbyID     string
	UserID      string
	Metadata    Metadata
	Placement   int32
	Reason      string
}

func (e *EventLobbyMember) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.LobbyID)
	buf = appendString(buf, 4, e.UserID)
	buf = appendMetadata(buf, 5, e.Metadata)
	buf = appendInt32(buf, 6, e.Placement)
	buf = appendString(buf, 7, e.Reason)
	return buf
}

func (e *EventLobbyMember) Unmarshal(data []byte) error {
	return eachField(data, "lobby member event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.LobbyID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.UserID, n, err = fieldString(field)
			return n, err
		case num == 5 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated lobby metadata")
			}
			var err error
			e.Metadata, err = consumeMetadataEntry(e.Metadata, body)
			return n, err
		case num == 6 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.Placement = int32(value)
			return n, err
		case num == 7 && typ == protowire.BytesType:
			var n int
			var err error
			e.Reason, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventLobbyDisbanded reports the lobby being removed by its owner.
type EventLobbyDisbanded struct {
	EventType   uint32
	PublishedAt int64
	LobbyID     string
	OwnerUserID string
}

func (e *EventLobbyDisbanded) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.LobbyID)
	buf = appendString(buf, 4, e.OwnerUserID)
	return buf
}

func (e *EventLobbyDisbanded) Unmarshal(data []byte) error {
	return eachField(data, "lobby disbanded event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.LobbyID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.OwnerUserID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventLobbyOwnerChanged reports ownership moving to another member.
type EventLobbyOwnerChanged struct {
	EventType      uint32
	PublishedAt    int64
	LobbyID        string
	OldOwnerUserID string
	NewOwnerUserID string
}

func (e *EventLobbyOwnerChanged) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.LobbyID)
	buf = appendString(buf, 4, e.OldOwnerUserID)
	buf = appendString(buf, 5, e.NewOwnerUserID)
	return buf
}

func (e *EventLobbyOwnerChanged) Unmarshal(data []byte) error {
	return eachField(data, "lobby owner changed event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.LobbyID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.OldOwnerUserID, n, err = fieldString(field)
			return n, err
		case num == 5 && typ == protowire.BytesType:
			var n int
			var err error
			e.NewOwnerUserID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventLobbyMatchStarted reports the owner launching the match; it carries
// the relay coordinates every member needs to connect.
type EventLobbyMatchStarted struct {
	EventType        uint32
	PublishedAt      int64
	LobbyID          string
	ConnectionString string
	JoinCode         string
}

func (e *EventLobbyMatchStarted) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendInt64(buf, 2, e.PublishedAt)
	buf = appendString(buf, 3, e.LobbyID)
	buf = appendString(buf, 4, e.ConnectionString)
	buf = appendString(buf, 5, e.JoinCode)
	return buf
}

func (e *EventLobbyMatchStarted) Unmarshal(data []byte) error {
	return eachField(data, "lobby match started event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			e.LobbyID, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			e.ConnectionString, n, err = fieldString(field)
			return n, err
		case num == 5 && typ == protowire.BytesType:
			var n int
			var err error
			e.JoinCode, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// EventGameServerStateUpdated reports a fleet server changing state.
type EventGameServerStateUpdated struct {
	EventType      uint32
	GameServerName string
	PreviousState  uint32
	NewState       uint32
	PublishedAt    int64
}

func (e *EventGameServerStateUpdated) Marshal() []byte {
	var buf []byte
	buf = appendVarint(buf, 1, uint64(e.EventType))
	buf = appendString(buf, 2, e.GameServerName)
	buf = appendVarint(buf, 3, uint64(e.PreviousState))
	buf = appendVarint(buf, 4, uint64(e.NewState))
	buf = appendInt64(buf, 5, e.PublishedAt)
	return buf
}

func (e *EventGameServerStateUpdated) Unmarshal(data []byte) error {
	return eachField(data, "game server state event", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.EventType = uint32(value)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			e.GameServerName, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PreviousState = uint32(value)
			return n, err
		case num == 4 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.NewState = uint32(value)
			return n, err
		case num == 5 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			e.PublishedAt = int64(value)
			return n, err
		}
		return 0, nil
	})
}
