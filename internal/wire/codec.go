// Package wire defines the binary envelopes exchanged with the snapend
// session service and the relay service, together with their protobuf
// wire-format codec. Messages are assembled by hand with protowire so the
// schema stays explicit: every field number and type appears in this
// package and nowhere else.
package wire

import (
	"errors"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedEnvelope reports an inbound frame that does not decode as a
// well-formed protobuf message. Callers log and drop the frame; a single
// bad frame never tears down the connection.
var ErrMalformedEnvelope = errors.New("malformed envelope")

func malformed(context string) error {
	return fmt.Errorf("%w: %s", ErrMalformedEnvelope, context)
}

// fieldString consumes a length-delimited string value.
func fieldString(data []byte) (string, int, error) {
	value, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", 0, malformed("truncated string field")
	}
	return value, n, nil
}

// fieldBytes consumes a length-delimited bytes value and copies it so the
// result does not alias the inbound frame buffer.
func fieldBytes(data []byte) ([]byte, int, error) {
	value, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, malformed("truncated bytes field")
	}
	return append([]byte(nil), value...), n, nil
}

// fieldVarint consumes a varint value.
func fieldVarint(data []byte) (uint64, int, error) {
	value, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, malformed("truncated varint field")
	}
	return value, n, nil
}

// skipField consumes an unrecognised field so decoding can continue past
// schema drift instead of failing the whole frame.
func skipField(typ protowire.Type, data []byte) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, data)
	if n < 0 {
		return 0, malformed("truncated unknown field")
	}
	return n, nil
}

func appendString(buf []byte, num protowire.Number, value string) []byte {
	if value == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, value)
}

func appendBytes(buf []byte, num protowire.Number, value []byte) []byte {
	if len(value) == 0 {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, value)
}

func appendVarint(buf []byte, num protowire.Number, value uint64) []byte {
	if value == 0 {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, value)
}

func appendInt64(buf []byte, num protowire.Number, value int64) []byte {
	return appendVarint(buf, num, uint64(value))
}

func appendInt32(buf []byte, num protowire.Number, value int32) []byte {
	return appendVarint(buf, num, uint64(uint32(value)))
}

func appendBool(buf []byte, num protowire.Number, value bool) []byte {
	if !value {
		return buf
	}
	return appendVarint(buf, num, 1)
}

// marshaler is implemented by every embedded message in this package.
type marshaler interface {
	marshal(buf []byte) []byte
}

func appendMessage(buf []byte, num protowire.Number, msg marshaler) []byte {
	body := msg.marshal(nil)
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, body)
}

// Metadata carries free-form string attributes attached to players, lobby
// members, and search filters. It is encoded as a protobuf map<string,string>.
type Metadata map[string]string

// Clone returns an independent copy so consumers can hold metadata beyond
// the lifetime of the decoded frame.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	clone := make(Metadata, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

func appendMetadata(buf []byte, num protowire.Number, meta Metadata) []byte {
	if len(meta) == 0 {
		return buf
	}
	//1.- Emit map entries in sorted key order so encoding stays deterministic.
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var entry []byte
		entry = appendString(entry, 1, key)
		entry = appendString(entry, 2, meta[key])
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, entry)
	}
	return buf
}

// eachField walks a message body, delegating known fields to fn. A zero
// consumed length signals an unhandled field, which is skipped in place.
func eachField(data []byte, label string, fn func(num protowire.Number, typ protowire.Type, field []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return malformed("truncated " + label)
		}
		data = data[n:]
		consumed, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		if consumed == 0 {
			consumed, err = skipField(typ, data)
			if err != nil {
				return err
			}
		}
		data = data[consumed:]
	}
	return nil
}

func consumeMetadataEntry(meta Metadata, data []byte) (Metadata, error) {
	var key, value string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return meta, malformed("truncated metadata entry")
		}
		data = data[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			key, n, err = fieldString(data)
		case num == 2 && typ == protowire.BytesType:
			value, n, err = fieldString(data)
		default:
			n, err = skipField(typ, data)
		}
		if err != nil {
			return meta, err
		}
		data = data[n:]
	}
	if meta == nil {
		meta = make(Metadata, 1)
	}
	meta[key] = value
	return meta, nil
}
