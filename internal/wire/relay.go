package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// RelayMessageType discriminates the payload carried by a relay-link message.
type RelayMessageType int32

const (
	RelayMessageTypeUnknown RelayMessageType = 0
	// RelayMessageTypeMatchReady announces the full participant roster.
	RelayMessageTypeMatchReady RelayMessageType = 1
	// RelayMessageTypeMatchJoined reports a player joining mid-match.
	RelayMessageTypeMatchJoined RelayMessageType = 2
	// RelayMessageTypeMatchLeft reports a player leaving mid-match.
	RelayMessageTypeMatchLeft RelayMessageType = 3
	// RelayMessageTypeMatchOver reports the match ending.
	RelayMessageTypeMatchOver RelayMessageType = 4
	// RelayMessageTypeMatchHostReady is the host's readiness announcement.
	RelayMessageTypeMatchHostReady RelayMessageType = 5
	// RelayMessageTypeRelayData carries forwarded gameplay bytes.
	RelayMessageTypeRelayData RelayMessageType = 6
)

func (t RelayMessageType) String() string {
	switch t {
	case RelayMessageTypeMatchReady:
		return "match_ready"
	case RelayMessageTypeMatchJoined:
		return "match_joined"
	case RelayMessageTypeMatchLeft:
		return "match_left"
	case RelayMessageTypeMatchOver:
		return "match_over"
	case RelayMessageTypeMatchHostReady:
		return "match_host_ready"
	case RelayMessageTypeRelayData:
		return "relay_data"
	default:
		return "unknown"
	}
}

// RelayMessage is the top-level message exchanged over the relay link.
type RelayMessage struct {
	Mid      string
	Type     RelayMessageType
	SendTime int64
	// Sender is populated by the relay on forwarded inbound data.
	Sender string
	// Recipients addresses outbound relay data; empty means every peer.
	Recipients []string

	MatchReady     *MatchReady
	MatchJoined    *MatchJoined
	MatchLeft      *MatchLeft
	MatchOver      *MatchOver
	MatchHostReady *MatchHostReady
	RelayData      *RelayData
}

// MatchPlayer identifies one participant of a relay-backed match.
type MatchPlayer struct {
	UserID   string
	Username string
}

// MatchReady lists every participant once the relay considers the match
// ready for traffic.
type MatchReady struct {
	MatchID      string
	MatchPlayers []MatchPlayer
}

// MatchJoined reports a participant joining an in-progress match.
type MatchJoined struct {
	MatchID        string
	PlayerJoinedID string
	MatchPlayers   []MatchPlayer
}

// MatchLeft reports a participant leaving an in-progress match.
type MatchLeft struct {
	MatchID      string
	PlayerLeftID string
	MatchPlayers []MatchPlayer
}

// MatchOver reports the relay closing the match.
type MatchOver struct {
	MatchID       string
	ReasonForOver string
}

// MatchHostReady is sent by the host once its relay connection opens.
type MatchHostReady struct {
	MatchID          string
	ReasonForUnready string
}

// RelayData carries opaque gameplay bytes on a numbered channel. Delivery is
// fire-and-forget and ordered per channel; reliability, if any, belongs to
// the underlying connection.
type RelayData struct {
	MatchID string
	Channel int32
	Data    []byte
}

// EncodeRelayMessage serialises the message into protobuf wire format.
func EncodeRelayMessage(msg *RelayMessage) []byte {
	var buf []byte
	buf = appendString(buf, 1, msg.Mid)
	buf = appendInt32(buf, 2, int32(msg.Type))
	buf = appendInt64(buf, 3, msg.SendTime)
	buf = appendString(buf, 4, msg.Sender)
	for _, recipient := range msg.Recipients {
		buf = protowire.AppendTag(buf, 5, protowire.BytesType)
		buf = protowire.AppendString(buf, recipient)
	}
	if msg.MatchReady != nil {
		buf = appendMessage(buf, 6, msg.MatchReady)
	}
	if msg.MatchJoined != nil {
		buf = appendMessage(buf, 7, msg.MatchJoined)
	}
	if msg.MatchLeft != nil {
		buf = appendMessage(buf, 8, msg.MatchLeft)
	}
	if msg.MatchOver != nil {
		buf = appendMessage(buf, 9, msg.MatchOver)
	}
	if msg.MatchHostReady != nil {
		buf = appendMessage(buf, 10, msg.MatchHostReady)
	}
	if msg.RelayData != nil {
		buf = appendMessage(buf, 11, msg.RelayData)
	}
	return buf
}

// DecodeRelayMessage parses a relay-link frame. Malformed input yields
// ErrMalformedEnvelope; unknown message types decode so callers can drop
// them with a warning.
func DecodeRelayMessage(data []byte) (*RelayMessage, error) {
	msg := &RelayMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("truncated relay message tag")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			msg.Mid, n, err = fieldString(data)
		case num == 2 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			msg.Type = RelayMessageType(int32(value))
		case num == 3 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			msg.SendTime = int64(value)
		case num == 4 && typ == protowire.BytesType:
			msg.Sender, n, err = fieldString(data)
		case num == 5 && typ == protowire.BytesType:
			var recipient string
			recipient, n, err = fieldString(data)
			if err == nil {
				msg.Recipients = append(msg.Recipients, recipient)
			}
		case num == 6 && typ == protowire.BytesType:
			msg.MatchReady = &MatchReady{}
			n, err = unmarshalSub(data, msg.MatchReady.unmarshal)
		case num == 7 && typ == protowire.BytesType:
			msg.MatchJoined = &MatchJoined{}
			n, err = unmarshalSub(data, msg.MatchJoined.unmarshal)
		case num == 8 && typ == protowire.BytesType:
			msg.MatchLeft = &MatchLeft{}
			n, err = unmarshalSub(data, msg.MatchLeft.unmarshal)
		case num == 9 && typ == protowire.BytesType:
			msg.MatchOver = &MatchOver{}
			n, err = unmarshalSub(data, msg.MatchOver.unmarshal)
		case num == 10 && typ == protowire.BytesType:
			msg.MatchHostReady = &MatchHostReady{}
			n, err = unmarshalSub(data, msg.MatchHostReady.unmarshal)
		case num == 11 && typ == protowire.BytesType:
			msg.RelayData = &RelayData{}
			n, err = unmarshalSub(data, msg.RelayData.unmarshal)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return msg, nil
}

// unmarshalSub consumes a length-delimited submessage and decodes it.
func unmarshalSub(data []byte, fn func([]byte) error) (int, error) {
	body, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return 0, malformed("truncated submessage")
	}
	if err := fn(body); err != nil {
		return 0, err
	}
	return n, nil
}

func (p MatchPlayer) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, p.UserID)
	buf = appendString(buf, 2, p.Username)
	return buf
}

func (p *MatchPlayer) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated match player")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			p.UserID, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			p.Username, n, err = fieldString(data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func appendPlayers(buf []byte, num protowire.Number, players []MatchPlayer) []byte {
	for _, player := range players {
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, player.marshal(nil))
	}
	return buf
}

func consumePlayer(players []MatchPlayer, data []byte) ([]MatchPlayer, int, error) {
	body, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return players, 0, malformed("truncated match player")
	}
	var player MatchPlayer
	if err := player.unmarshal(body); err != nil {
		return players, 0, err
	}
	return append(players, player), n, nil
}

func (m *MatchReady) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.MatchID)
	return appendPlayers(buf, 2, m.MatchPlayers)
}

func (m *MatchReady) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated match ready")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.MatchID, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			m.MatchPlayers, n, err = consumePlayer(m.MatchPlayers, data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (m *MatchJoined) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.MatchID)
	buf = appendString(buf, 2, m.PlayerJoinedID)
	return appendPlayers(buf, 3, m.MatchPlayers)
}

func (m *MatchJoined) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated match joined")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.MatchID, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			m.PlayerJoinedID, n, err = fieldString(data)
		case num == 3 && typ == protowire.BytesType:
			m.MatchPlayers, n, err = consumePlayer(m.MatchPlayers, data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (m *MatchLeft) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.MatchID)
	buf = appendString(buf, 2, m.PlayerLeftID)
	return appendPlayers(buf, 3, m.MatchPlayers)
}

func (m *MatchLeft) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated match left")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.MatchID, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			m.PlayerLeftID, n, err = fieldString(data)
		case num == 3 && typ == protowire.BytesType:
			m.MatchPlayers, n, err = consumePlayer(m.MatchPlayers, data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (m *MatchOver) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.MatchID)
	buf = appendString(buf, 2, m.ReasonForOver)
	return buf
}

func (m *MatchOver) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated match over")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.MatchID, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			m.ReasonForOver, n, err = fieldString(data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (m *MatchHostReady) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.MatchID)
	buf = appendString(buf, 2, m.ReasonForUnready)
	return buf
}

func (m *MatchHostReady) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated match host ready")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.MatchID, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			m.ReasonForUnready, n, err = fieldString(data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (m *RelayData) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, m.MatchID)
	buf = appendInt32(buf, 2, m.Channel)
	buf = appendBytes(buf, 3, m.Data)
	return buf
}

func (m *RelayData) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated relay data")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.MatchID, n, err = fieldString(data)
		case num == 2 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			m.Channel = int32(value)
		case num == 3 && typ == protowire.BytesType:
			m.Data, n, err = fieldBytes(data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}
