package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		env  *Envelope
	}{
		{
			name: "api request",
			env: &Envelope{
				Mid:       "mid-1",
				Type:      MessageTypeSnapAPIProxy,
				Timestamp: 1700000000123,
				APIRequest: &SnapAPIRequest{
					Method:  "/matchmaking.MatchmakingService/CreateTicket",
					Payload: []byte{0x0a, 0x03, 0x61, 0x62, 0x63},
				},
			},
		},
		{
			name: "api response with error",
			env: &Envelope{
				Mid:       "mid-2",
				Type:      MessageTypeSnapAPIProxy,
				Timestamp: 1700000000456,
				APIResponse: &SnapAPIResponse{
					Errored: true,
					Error: &SnapAPIError{
						Code:    7,
						Message: "permission denied",
						Details: []string{"lobby is private", "not invited"},
					},
				},
			},
		},
		{
			name: "snap event",
			env: &Envelope{
				Mid:       "mid-3",
				Type:      MessageTypeSnapEvent,
				Timestamp: 1700000000789,
				Event: &SnapEvent{
					EventID:     uint32(MatchmakingMatchCreated),
					ServiceName: ServiceMatchmaking,
					Payload:     []byte{0x08, 0x04},
				},
			},
		},
		{
			name: "server error",
			env: &Envelope{
				Mid:       "mid-4",
				Type:      MessageTypeError,
				Timestamp: 1700000001000,
				Error:     &ServerError{Code: 401, Message: "token expired"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			//1.- Encode and decode back, expecting an identical envelope.
			data := EncodeEnvelope(tc.env)
			got, err := DecodeEnvelope(data)
			if err != nil {
				t.Fatalf("DecodeEnvelope returned %v", err)
			}
			if !reflect.DeepEqual(got, tc.env) {
				t.Fatalf("round trip mismatch: got %+v want %+v", got, tc.env)
			}
		})
	}
}

func TestEncodeEnvelopeDeterministic(t *testing.T) {
	req := &CreateTicketRequest{
		UserID:     "user-42",
		Metadata:   Metadata{"region": "eu", "mode": "ranked", "arena": "delta"},
		SearchTags: []string{"fast", "casual"},
	}
	first := req.Marshal()
	second := req.Marshal()
	if !bytes.Equal(first, second) {
		t.Fatalf("marshal is not deterministic: %x vs %x", first, second)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{name: "truncated length prefix", data: []byte{0x0a, 0xff}},
		{name: "length exceeds input", data: []byte{0x0a, 0x10, 0x61}},
		{name: "truncated nested error", data: []byte{0x22, 0x02, 0x12, 0x05}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeEnvelope(tc.data); !errors.Is(err, ErrMalformedEnvelope) {
				t.Fatalf("expected ErrMalformedEnvelope, got %v", err)
			}
		})
	}
}

func TestDecodeEnvelopeSkipsUnknownFields(t *testing.T) {
	env := &Envelope{
		Mid:       "mid-5",
		Type:      MessageTypeSnapEvent,
		Timestamp: 42,
		Event:     &SnapEvent{EventID: 1, ServiceName: ServiceLobbies, Payload: []byte{0x01}},
	}
	data := EncodeEnvelope(env)
	//1.- Append fields from a future schema revision; decoding must ignore them.
	data = protowire.AppendTag(data, 99, protowire.VarintType)
	data = protowire.AppendVarint(data, 12345)
	data = protowire.AppendTag(data, 100, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte("future"))

	got, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope returned %v", err)
	}
	if !reflect.DeepEqual(got, env) {
		t.Fatalf("unknown fields leaked into the envelope: got %+v want %+v", got, env)
	}
}

func TestRelayMessageRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		msg  *RelayMessage
	}{
		{
			name: "match ready",
			msg: &RelayMessage{
				Mid:      "relay-1",
				Type:     RelayMessageTypeMatchReady,
				SendTime: 1700000002000,
				MatchReady: &MatchReady{
					MatchID: "match-9",
					MatchPlayers: []MatchPlayer{
						{UserID: "host-1", Username: "ada"},
						{UserID: "peer-a", Username: "bea"},
					},
				},
			},
		},
		{
			name: "targeted relay data",
			msg: &RelayMessage{
				Mid:        "relay-2",
				Type:       RelayMessageTypeRelayData,
				SendTime:   1700000003000,
				Sender:     "peer-a",
				Recipients: []string{"host-1", "peer-b"},
				RelayData: &RelayData{
					MatchID: "match-9",
					Channel: 2,
					Data:    []byte{0xde, 0xad, 0xbe, 0xef},
				},
			},
		},
		{
			name: "match over",
			msg: &RelayMessage{
				Mid:       "relay-3",
				Type:      RelayMessageTypeMatchOver,
				SendTime:  1700000004000,
				MatchOver: &MatchOver{MatchID: "match-9", ReasonForOver: "host left"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := EncodeRelayMessage(tc.msg)
			got, err := DecodeRelayMessage(data)
			if err != nil {
				t.Fatalf("DecodeRelayMessage returned %v", err)
			}
			if !reflect.DeepEqual(got, tc.msg) {
				t.Fatalf("round trip mismatch: got %+v want %+v", got, tc.msg)
			}
		})
	}
}

func TestDecodeRelayMessageMalformed(t *testing.T) {
	if _, err := DecodeRelayMessage([]byte{0x0a, 0xff}); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected ErrMalformedEnvelope, got %v", err)
	}
}

func TestEventMatchCreatedRoundTrip(t *testing.T) {
	event := &EventMatchmakingMatchCreated{
		EventType:        uint32(MatchmakingMatchCreated),
		PublishedAt:      1700000005000,
		MatchID:          "match-9",
		CreatedAt:        1700000004900,
		ConnectionString: "wss://relay.example.com",
		JoinCode:         "JX94KQ",
		IsHost:           true,
		TicketID:         "ticket-7",
	}
	var got EventMatchmakingMatchCreated
	if err := got.Unmarshal(event.Marshal()); err != nil {
		t.Fatalf("Unmarshal returned %v", err)
	}
	if !reflect.DeepEqual(&got, event) {
		t.Fatalf("round trip mismatch: got %+v want %+v", &got, event)
	}
}

func TestLobbyResponseRoundTrip(t *testing.T) {
	resp := &LobbyResponse{
		Lobby: Lobby{
			ID:             "lobby-1",
			Name:           "late night crew",
			Description:    "anyone welcome",
			OwnerUserID:    "host-1",
			MaxMembers:     8,
			Private:        true,
			SearchMetadata: Metadata{"map": "delta"},
			Members: []LobbyMember{
				{UserID: "host-1", Metadata: Metadata{"color": "red"}, Ready: true, Placement: 1},
				{UserID: "peer-a", Metadata: Metadata{"color": "blue"}, Placement: 2},
			},
		},
	}
	var got LobbyResponse
	if err := got.Unmarshal(resp.Marshal()); err != nil {
		t.Fatalf("Unmarshal returned %v", err)
	}
	if !reflect.DeepEqual(&got, resp) {
		t.Fatalf("round trip mismatch: got %+v want %+v", &got, resp)
	}
}

func TestPartyResponseRoundTrip(t *testing.T) {
	resp := &PartyResponse{
		Party: Party{
			ID:          "party-3",
			OwnerUserID: "host-1",
			MaxMembers:  4,
			Members: []PartyMember{
				{UserID: "host-1", Metadata: Metadata{"emblem": "wolf"}},
				{UserID: "peer-b", Metadata: Metadata{"emblem": "hawk"}},
			},
		},
	}
	var got PartyResponse
	if err := got.Unmarshal(resp.Marshal()); err != nil {
		t.Fatalf("Unmarshal returned %v", err)
	}
	if !reflect.DeepEqual(&got, resp) {
		t.Fatalf("round trip mismatch: got %+v want %+v", &got, resp)
	}
}

func TestMetadataClone(t *testing.T) {
	original := Metadata{"region": "eu"}
	clone := original.Clone()
	clone["region"] = "na"
	if original["region"] != "eu" {
		t.Fatalf("Clone shares storage with the original map")
	}
	if Metadata(nil).Clone() != nil {
		t.Fatalf("cloning a nil metadata map must stay nil")
	}
}
