package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// MessageType discriminates the payload carried by a session-link envelope.
type MessageType int32

const (
	MessageTypeUnknown MessageType = 0
	// MessageTypeError marks a server-originated failure notice.
	MessageTypeError MessageType = 1
	// MessageTypeSnapAPIProxy marks proxied API request/response traffic.
	MessageTypeSnapAPIProxy MessageType = 2
	// MessageTypeSnapEvent marks a server-pushed, service-scoped event.
	MessageTypeSnapEvent MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeError:
		return "error"
	case MessageTypeSnapAPIProxy:
		return "snap_api_proxy"
	case MessageTypeSnapEvent:
		return "snap_event"
	default:
		return "unknown"
	}
}

// Envelope is the top-level message exchanged over the session link. Exactly
// one payload variant is populated; which one is announced by Type.
type Envelope struct {
	// Mid is an opaque message identifier: caller-assigned for requests,
	// server-assigned for pushes. The codec attaches no meaning to it.
	Mid       string
	Type      MessageType
	Timestamp int64

	Error       *ServerError
	APIRequest  *SnapAPIRequest
	APIResponse *SnapAPIResponse
	Event       *SnapEvent
}

// ServerError is the payload of a server-originated failure envelope.
type ServerError struct {
	Code    uint32
	Message string
}

// SnapAPIRequest carries an outbound proxied RPC call.
type SnapAPIRequest struct {
	// Method is the dotted RPC path, e.g. "/lobbies.LobbiesService/CreateLobby".
	Method  string
	Payload []byte
}

// SnapAPIResponse carries the reply to a proxied RPC call.
type SnapAPIResponse struct {
	Payload []byte
	Errored bool
	Error   *SnapAPIError
}

// SnapAPIError is the structured application error returned by a backend
// service. It is surfaced to the pending caller, never thrown generically.
type SnapAPIError struct {
	Code    uint32
	Message string
	Details []string
}

// SnapEvent is a server-pushed notification keyed by (service name, event id).
type SnapEvent struct {
	EventID     uint32
	ServiceName string
	Payload     []byte
}

// EncodeEnvelope serialises the envelope into protobuf wire format. The
// operation is pure and deterministic: equal envelopes produce equal bytes.
func EncodeEnvelope(env *Envelope) []byte {
	var buf []byte
	buf = appendString(buf, 1, env.Mid)
	buf = appendInt32(buf, 2, int32(env.Type))
	buf = appendInt64(buf, 3, env.Timestamp)
	//1.- Emit whichever oneof variant is populated; the invariant that only
	// one is set is enforced by the constructors in this package.
	if env.Error != nil {
		buf = appendMessage(buf, 4, env.Error)
	}
	if env.APIRequest != nil {
		buf = appendMessage(buf, 5, env.APIRequest)
	}
	if env.APIResponse != nil {
		buf = appendMessage(buf, 6, env.APIResponse)
	}
	if env.Event != nil {
		buf = appendMessage(buf, 7, env.Event)
	}
	return buf
}

// DecodeEnvelope parses a session-link frame. Malformed input yields
// ErrMalformedEnvelope; an unrecognised message type decodes successfully so
// the dispatch layer can log and drop it.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed("truncated envelope tag")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			env.Mid, n, err = fieldString(data)
		case num == 2 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			env.Type = MessageType(int32(value))
		case num == 3 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			env.Timestamp = int64(value)
		case num == 4 && typ == protowire.BytesType:
			var body []byte
			body, n, err = fieldBytes(data)
			if err == nil {
				env.Error = &ServerError{}
				err = env.Error.unmarshal(body)
			}
		case num == 5 && typ == protowire.BytesType:
			var body []byte
			body, n, err = fieldBytes(data)
			if err == nil {
				env.APIRequest = &SnapAPIRequest{}
				err = env.APIRequest.unmarshal(body)
			}
		case num == 6 && typ == protowire.BytesType:
			var body []byte
			body, n, err = fieldBytes(data)
			if err == nil {
				env.APIResponse = &SnapAPIResponse{}
				err = env.APIResponse.unmarshal(body)
			}
		case num == 7 && typ == protowire.BytesType:
			var body []byte
			body, n, err = fieldBytes(data)
			if err == nil {
				env.Event = &SnapEvent{}
				err = env.Event.unmarshal(body)
			}
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return env, nil
}

func (e *ServerError) marshal(buf []byte) []byte {
	buf = appendVarint(buf, 1, uint64(e.Code))
	buf = appendString(buf, 2, e.Message)
	return buf
}

func (e *ServerError) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated server error")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			e.Code = uint32(value)
		case num == 2 && typ == protowire.BytesType:
			e.Message, n, err = fieldString(data)
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

func (r *SnapAPIRequest) marshal(buf []byte) []byte {
	buf = appendString(buf, 1, r.Method)
	buf = appendBytes(buf, 2, r.Payload)
	return buf
}

func (r *SnapAPIRequest) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated api request")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			r.Method, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			r.Payload, n, err = fieldBytes(data)
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

func (r *SnapAPIResponse) marshal(buf []byte) []byte {
	buf = appendBytes(buf, 1, r.Payload)
	buf = appendBool(buf, 2, r.Errored)
	if r.Error != nil {
		buf = appendMessage(buf, 3, r.Error)
	}
	return buf
}

func (r *SnapAPIResponse) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated api response")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			r.Payload, n, err = fieldBytes(data)
		case num == 2 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			r.Errored = value != 0
		case num == 3 && typ == protowire.BytesType:
			var body []byte
			body, n, err = fieldBytes(data)
			if err == nil {
				r.Error = &SnapAPIError{}
				err = r.Error.unmarshal(body)
			}
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

func (e *SnapAPIError) marshal(buf []byte) []byte {
	buf = appendVarint(buf, 1, uint64(e.Code))
	buf = appendString(buf, 2, e.Message)
	for _, detail := range e.Details {
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendString(buf, detail)
	}
	return buf
}

func (e *SnapAPIError) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated api error")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			e.Code = uint32(value)
		case num == 2 && typ == protowire.BytesType:
			e.Message, n, err = fieldString(data)
		case num == 3 && typ == protowire.BytesType:
			var detail string
			detail, n, err = fieldString(data)
			if err == nil {
				e.Details = append(e.Details, detail)
			}
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

func (e *SnapEvent) marshal(buf []byte) []byte {
	buf = appendVarint(buf, 1, uint64(e.EventID))
	buf = appendString(buf, 2, e.ServiceName)
	buf = appendBytes(buf, 3, e.Payload)
	return buf
}

func (e *SnapEvent) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated snap event")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.VarintType:
			var value uint64
			value, n, err = fieldVarint(data)
			e.EventID = uint32(value)
		case num == 2 && typ == protowire.BytesType:
			e.ServiceName, n, err = fieldString(data)
		case num == 3 && typ == protowire.BytesType:
			e.Payload, n, err = fieldBytes(data)
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
