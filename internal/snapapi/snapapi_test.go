package snapapi

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"

	"interstellar/netclient/internal/proxy"
	"interstellar/netclient/internal/wire"
)

// harness captures outbound envelopes so tests can inspect the request and
// feed a crafted response back through the correlator.
type harness struct {
	client *proxy.Client
	api    *Client
	sent   []*wire.Envelope
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}
	h.client = proxy.New(func(data []byte) error {
		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			t.Fatalf("outbound envelope failed to decode: %v", err)
		}
		h.sent = append(h.sent, env)
		return nil
	})
	h.api = New(h.client, "ada")
	return h
}

func (h *harness) lastRequest(t *testing.T) *wire.Envelope {
	t.Helper()
	if len(h.sent) == 0 {
		t.Fatalf("no envelope was sent")
	}
	env := h.sent[len(h.sent)-1]
	if env.APIRequest == nil {
		t.Fatalf("sent envelope carries no API request")
	}
	return env
}

func (h *harness) respond(t *testing.T, mid string, payload []byte) {
	t.Helper()
	h.client.HandleResponse(&wire.Envelope{
		Mid:         mid,
		Type:        wire.MessageTypeSnapAPIProxy,
		APIResponse: &wire.SnapAPIResponse{Payload: payload},
	})
}

func TestCreateTicketRoundTrip(t *testing.T) {
	h := newHarness(t)

	var got *wire.CreateTicketResponse
	mid, err := h.api.Matchmaking.CreateTicket(wire.Metadata{"mode": "duel"}, []string{"ranked"}, func(resp *wire.CreateTicketResponse, err error) {
		if err != nil {
			t.Fatalf("callback returned %v", err)
		}
		got = resp
	})
	if err != nil {
		t.Fatalf("CreateTicket returned %v", err)
	}

	env := h.lastRequest(t)
	if env.APIRequest.Method != "/matchmaking.MatchmakingService/CreateTicket" {
		t.Fatalf("unexpected method %q", env.APIRequest.Method)
	}
	var req wire.CreateTicketRequest
	if err := req.Unmarshal(env.APIRequest.Payload); err != nil {
		t.Fatalf("request body failed to decode: %v", err)
	}
	if req.UserID != "ada" || req.Metadata["mode"] != "duel" || len(req.SearchTags) != 1 {
		t.Fatalf("unexpected request body: %+v", req)
	}

	h.respond(t, mid, (&wire.CreateTicketResponse{TicketID: "ticket-7"}).Marshal())
	if got == nil || got.TicketID != "ticket-7" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestCreateLobbyDeliversAPIError(t *testing.T) {
	h := newHarness(t)

	var failure error
	mid, err := h.api.Lobbies.CreateLobby(wire.CreateLobbyRequest{Name: "arena", MaxMembers: 4}, func(resp *wire.LobbyResponse, err error) {
		if resp != nil {
			t.Fatalf("got response alongside error: %+v", resp)
		}
		failure = err
	})
	if err != nil {
		t.Fatalf("CreateLobby returned %v", err)
	}

	h.client.HandleResponse(&wire.Envelope{
		Mid:  mid,
		Type: wire.MessageTypeSnapAPIProxy,
		APIResponse: &wire.SnapAPIResponse{
			Errored: true,
			Error: &wire.SnapAPIError{
				Code:    uint32(codes.PermissionDenied),
				Message: "lobby limit reached",
			},
		},
	})

	var apiErr *proxy.APIError
	if !errors.As(failure, &apiErr) {
		t.Fatalf("expected *proxy.APIError, got %v", failure)
	}
	if apiErr.Code != codes.PermissionDenied || apiErr.Message != "lobby limit reached" {
		t.Fatalf("unexpected error detail: %+v", apiErr)
	}
}

func TestReadyUpSendsMemberRequest(t *testing.T) {
	h := newHarness(t)

	done := false
	mid, err := h.api.Lobbies.ReadyUp("lobby-3", true, func(err error) {
		if err != nil {
			t.Fatalf("callback returned %v", err)
		}
		done = true
	})
	if err != nil {
		t.Fatalf("ReadyUp returned %v", err)
	}

	env := h.lastRequest(t)
	if env.APIRequest.Method != "/lobbies.LobbiesService/ReadyMember" {
		t.Fatalf("unexpected method %q", env.APIRequest.Method)
	}
	var req wire.LobbyMemberRequest
	if err := req.Unmarshal(env.APIRequest.Payload); err != nil {
		t.Fatalf("request body failed to decode: %v", err)
	}
	if req.LobbyID != "lobby-3" || req.UserID != "ada" || !req.Ready {
		t.Fatalf("unexpected request body: %+v", req)
	}

	h.respond(t, mid, nil)
	if !done {
		t.Fatalf("acknowledgement never fired")
	}
}

func TestJoinPartyDecodesPartyRecord(t *testing.T) {
	h := newHarness(t)

	var got *wire.PartyResponse
	mid, err := h.api.Parties.JoinParty("party-5", func(resp *wire.PartyResponse, err error) {
		if err != nil {
			t.Fatalf("callback returned %v", err)
		}
		got = resp
	})
	if err != nil {
		t.Fatalf("JoinParty returned %v", err)
	}

	h.respond(t, mid, (&wire.PartyResponse{Party: wire.Party{
		ID:          "party-5",
		OwnerUserID: "bea",
		MaxMembers:  4,
		Members: []wire.PartyMember{
			{UserID: "bea"},
			{UserID: "ada"},
		},
	}}).Marshal())

	if got == nil || got.Party.ID != "party-5" || len(got.Party.Members) != 2 {
		t.Fatalf("unexpected party response: %+v", got)
	}
}

func TestCallWithoutProxyFails(t *testing.T) {
	api := New(nil, "ada")
	if _, err := api.Matchmaking.AcceptMatch("match-1", true, nil); !errors.Is(err, ErrNoProxy) {
		t.Fatalf("expected ErrNoProxy, got %v", err)
	}
}
