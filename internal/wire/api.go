package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Request and response bodies for the proxied service APIs. These travel as
// the opaque payload of a SnapAPIRequest/SnapAPIResponse pair; the method
// string selects which shape applies.

// CreateTicketRequest queues the user for matchmaking.
type CreateTicketRequest struct {
	UserID     string
	Metadata   Metadata
	SearchTags []string
}

func (r *CreateTicketRequest) Marshal() []byte {
	var buf []byte
	buf = appendString(buf, 1, r.UserID)
	buf = appendMetadata(buf, 2, r.Metadata)
	for _, tag := range r.SearchTags {
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendString(buf, tag)
	}
	return buf
}

func (r *CreateTicketRequest) Unmarshal(data []byte) error {
	return eachField(data, "create ticket request", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			r.UserID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated ticket metadata")
			}
			var err error
			r.Metadata, err = consumeMetadataEntry(r.Metadata, body)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			tag, n, err := fieldString(field)
			if err == nil {
				r.SearchTags = append(r.SearchTags, tag)
			}
			return n, err
		}
		return 0, nil
	})
}

// CreateTicketResponse acknowledges the queued ticket.
type CreateTicketResponse struct {
	TicketID string
}

func (r *CreateTicketResponse) Marshal() []byte {
	return appendString(nil, 1, r.TicketID)
}

func (r *CreateTicketResponse) Unmarshal(data []byte) error {
	return eachField(data, "create ticket response", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			var n int
			var err error
			r.TicketID, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// AcceptMatchRequest confirms or declines a found match.
type AcceptMatchRequest struct {
	UserID  string
	MatchID string
	Accept  bool
}

func (r *AcceptMatchRequest) Marshal() []byte {
	var buf []byte
	buf = appendString(buf, 1, r.UserID)
	buf = appendString(buf, 2, r.MatchID)
	buf = appendBool(buf, 3, r.Accept)
	return buf
}

func (r *AcceptMatchRequest) Unmarshal(data []byte) error {
	return eachField(data, "accept match request", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			r.UserID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			r.MatchID, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			r.Accept = value != 0
			return n, err
		}
		return 0, nil
	})
}

// LobbyMember describes one occupant of a lobby.
type LobbyMember struct {
	UserID    string
	Metadata  Metadata
	Ready     bool
	Placement int32
}

func (m LobbyMember) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.UserID)
	buf = appendMetadata(buf, 2, m.Metadata)
	buf = appendBool(buf, 3, m.Ready)
	buf = appendInt32(buf, 4, m.Placement)
	return buf
}

func (m *LobbyMember) unmarshal(data []byte) error {
	return eachField(data, "lobby member", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			m.UserID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated member metadata")
			}
			var err error
			m.Metadata, err = consumeMetadataEntry(m.Metadata, body)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			m.Ready = value != 0
			return n, err
		case num == 4 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			m.Placement = int32(value)
			return n, err
		}
		return 0, nil
	})
}

// Lobby is the server-side lobby record returned by the lobbies service.
type Lobby struct {
	ID             string
	Name           string
	Description    string
	OwnerUserID    string
	MaxMembers     int32
	Private        bool
	SearchMetadata Metadata
	Members        []LobbyMember
}

func (l *Lobby) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, l.ID)
	buf = appendString(buf, 2, l.Name)
	buf = appendString(buf, 3, l.Description)
	buf = appendString(buf, 4, l.OwnerUserID)
	buf = appendInt32(buf, 5, l.MaxMembers)
	buf = appendBool(buf, 6, l.Private)
	buf = appendMetadata(buf, 7, l.SearchMetadata)
	for _, member := range l.Members {
		buf = protowire.AppendTag(buf, 8, protowire.BytesType)
		buf = protowire.AppendBytes(buf, member.marshal(nil))
	}
	return buf
}

func (l *Lobby) unmarshal(data []byte) error {
	return eachField(data, "lobby", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			l.ID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			l.Name, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			l.Description, n, err = fieldString(field)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			var n int
			var err error
			l.OwnerUserID, n, err = fieldString(field)
			return n, err
		case num == 5 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			l.MaxMembers = int32(value)
			return n, err
		case num == 6 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			l.Private = value != 0
			return n, err
		case num == 7 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated lobby metadata")
			}
			var err error
			l.SearchMetadata, err = consumeMetadataEntry(l.SearchMetadata, body)
			return n, err
		case num == 8 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated lobby member")
			}
			var member LobbyMember
			if err := member.unmarshal(body); err != nil {
				return 0, err
			}
			l.Members = append(l.Members, member)
			return n, nil
		}
		return 0, nil
	})
}

// CreateLobbyRequest opens a new lobby owned by the caller.
type CreateLobbyRequest struct {
	Name           string
	Description    string
	MaxMembers     int32
	Private        bool
	SearchMetadata Metadata
	OwnerMetadata  Metadata
}

func (r *CreateLobbyRequest) Marshal() []byte {
	var buf []byte
	buf = appendString(buf, 1, r.Name)
	buf = appendString(buf, 2, r.Description)
	buf = appendInt32(buf, 3, r.MaxMembers)
	buf = appendBool(buf, 4, r.Private)
	buf = appendMetadata(buf, 5, r.SearchMetadata)
	buf = appendMetadata(buf, 6, r.OwnerMetadata)
	return buf
}

func (r *CreateLobbyRequest) Unmarshal(data []byte) error {
	return eachField(data, "create lobby request", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			r.Name, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			r.Description, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			r.MaxMembers = int32(value)
			return n, err
		case num == 4 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			r.Private = value != 0
			return n, err
		case num == 5 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated search metadata")
			}
			var err error
			r.SearchMetadata, err = consumeMetadataEntry(r.SearchMetadata, body)
			return n, err
		case num == 6 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated owner metadata")
			}
			var err error
			r.OwnerMetadata, err = consumeMetadataEntry(r.OwnerMetadata, body)
			return n, err
		}
		return 0, nil
	})
}

// LobbyResponse wraps the lobby record returned by create/join calls.
type LobbyResponse struct {
	Lobby Lobby
}

func (r *LobbyResponse) Marshal() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, r.Lobby.marshal(nil))
	return buf
}

func (r *LobbyResponse) Unmarshal(data []byte) error {
	return eachField(data, "lobby response", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated lobby response body")
			}
			return n, r.Lobby.unmarshal(body)
		}
		return 0, nil
	})
}

// MetadataFilter narrows a lobby listing by one metadata attribute.
type MetadataFilter struct {
	Key   string
	Op    string
	Value string
}

func (f MetadataFilter) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, f.Key)
	buf = appendString(buf, 2, f.Op)
	buf = appendString(buf, 3, f.Value)
	return buf
}

func (f *MetadataFilter) unmarshal(data []byte) error {
	return eachField(data, "metadata filter", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			f.Key, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			f.Op, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			var n int
			var err error
			f.Value, n, err = fieldString(field)
			return n, err
		}
		return 0, nil
	})
}

// ListLobbiesRequest searches public lobbies.
type ListLobbiesRequest struct {
	Filters []MetadataFilter
}

func (r *ListLobbiesRequest) Marshal() []byte {
	var buf []byte
	for _, filter := range r.Filters {
		buf = protowire.AppendTag(buf, 1, protowire.BytesType)
		buf = protowire.AppendBytes(buf, filter.marshal(nil))
	}
	return buf
}

func (r *ListLobbiesRequest) Unmarshal(data []byte) error {
	return eachField(data, "list lobbies request", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated lobby filter")
			}
			var filter MetadataFilter
			if err := filter.unmarshal(body); err != nil {
				return 0, err
			}
			r.Filters = append(r.Filters, filter)
			return n, nil
		}
		return 0, nil
	})
}

// ListLobbiesResponse returns the matching lobbies.
type ListLobbiesResponse struct {
	Lobbies []Lobby
}

func (r *ListLobbiesResponse) Marshal() []byte {
	var buf []byte
	for i := range r.Lobbies {
		buf = protowire.AppendTag(buf, 1, protowire.BytesType)
		buf = protowire.AppendBytes(buf, r.Lobbies[i].marshal(nil))
	}
	return buf
}

func (r *ListLobbiesResponse) Unmarshal(data []byte) error {
	return eachField(data, "list lobbies response", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated lobby entry")
			}
			var lobby Lobby
			if err := lobby.unmarshal(body); err != nil {
				return 0, err
			}
			r.Lobbies = append(r.Lobbies, lobby)
			return n, nil
		}
		return 0, nil
	})
}

// LobbyMemberRequest addresses a single member of a lobby; it serves join,
// leave, ready, and metadata-update calls.
type LobbyMemberRequest struct {
	LobbyID  string
	UserID   string
	Metadata Metadata
	Ready    bool
}

func (r *LobbyMemberRequest) Marshal() []byte {
	var buf []byte
	buf = appendString(buf, 1, r.LobbyID)
	buf = appendString(buf, 2, r.UserID)
	buf = appendMetadata(buf, 3, r.Metadata)
	buf = appendBool(buf, 4, r.Ready)
	return buf
}

func (r *LobbyMemberRequest) Unmarshal(data []byte) error {
	return eachField(data, "lobby member request", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			r.LobbyID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			r.UserID, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated request metadata")
			}
			var err error
			r.Metadata, err = consumeMetadataEntry(r.Metadata, body)
			return n, err
		case num == 4 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			r.Ready = value != 0
			return n, err
		}
		return 0, nil
	})
}

// PartyMember describes one occupant of a party.
type PartyMember struct {
	UserID   string
	Metadata Metadata
}

func (m PartyMember) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.UserID)
	buf = appendMetadata(buf, 2, m.Metadata)
	return buf
}

func (m *PartyMember) unmarshal(data []byte) error {
	return eachField(data, "party member", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			m.UserID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated member metadata")
			}
			var err error
			m.Metadata, err = consumeMetadataEntry(m.Metadata, body)
			return n, err
		}
		return 0, nil
	})
}

// Party is the server-side party record returned by the parties service.
type Party struct {
	ID          string
	OwnerUserID string
	MaxMembers  int32
	Members     []PartyMember
}

func (p *Party) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, p.ID)
	buf = appendString(buf, 2, p.OwnerUserID)
	buf = appendInt32(buf, 3, p.MaxMembers)
	for _, member := range p.Members {
		buf = protowire.AppendTag(buf, 4, protowire.BytesType)
		buf = protowire.AppendBytes(buf, member.marshal(nil))
	}
	return buf
}

func (p *Party) unmarshal(data []byte) error {
	return eachField(data, "party", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			p.ID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			p.OwnerUserID, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			p.MaxMembers = int32(value)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated party member")
			}
			var member PartyMember
			if err := member.unmarshal(body); err != nil {
				return 0, err
			}
			p.Members = append(p.Members, member)
			return n, nil
		}
		return 0, nil
	})
}

// PartyRequest addresses a party on behalf of one member; it serves create,
// join, leave, and metadata-update calls.
type PartyRequest struct {
	PartyID    string
	UserID     string
	MaxMembers int32
	Metadata   Metadata
}

func (r *PartyRequest) Marshal() []byte {
	var buf []byte
	buf = appendString(buf, 1, r.PartyID)
	buf = appendString(buf, 2, r.UserID)
	buf = appendInt32(buf, 3, r.MaxMembers)
	buf = appendMetadata(buf, 4, r.Metadata)
	return buf
}

func (r *PartyRequest) Unmarshal(data []byte) error {
	return eachField(data, "party request", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			var n int
			var err error
			r.PartyID, n, err = fieldString(field)
			return n, err
		case num == 2 && typ == protowire.BytesType:
			var n int
			var err error
			r.UserID, n, err = fieldString(field)
			return n, err
		case num == 3 && typ == protowire.VarintType:
			value, n, err := fieldVarint(field)
			r.MaxMembers = int32(value)
			return n, err
		case num == 4 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated request metadata")
			}
			var err error
			r.Metadata, err = consumeMetadataEntry(r.Metadata, body)
			return n, err
		}
		return 0, nil
	})
}

// PartyResponse wraps the party record returned by create/join calls.
type PartyResponse struct {
	Party Party
}

func (r *PartyResponse) Marshal() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendBytes(buf, r.Party.marshal(nil))
	return buf
}

func (r *PartyResponse) Unmarshal(data []byte) error {
	return eachField(data, "party response", func(num protowire.Number, typ protowire.Type, field []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(field)
			if n < 0 {
				return 0, malformed("truncated party response body")
			}
			return n, r.Party.unmarshal(body)
		}
		return 0, nil
	})
}
