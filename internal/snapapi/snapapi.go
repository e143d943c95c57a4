// Package snapapi wraps the proxied backend services in typed calls. Each
// wrapper builds the request body, routes it through the correlator, and
// decodes the response before invoking the caller's callback.
package snapapi

import (
	"errors"

	"interstellar/netclient/internal/proxy"
	"interstellar/netclient/internal/wire"
)

// Method strings for the proxied services. The gateway routes on these, so
// they must match the backend service definitions exactly.
const (
	methodCreateTicket = "/matchmaking.MatchmakingService/CreateTicket"
	methodAcceptMatch  = "/matchmaking.MatchmakingService/AcceptMatch"

	methodCreateLobby         = "/lobbies.LobbiesService/CreateLobby"
	methodListLobbies         = "/lobbies.LobbiesService/ListLobbies"
	methodJoinLobby           = "/lobbies.LobbiesService/JoinLobby"
	methodLeaveLobby          = "/lobbies.LobbiesService/LeaveLobby"
	methodDeleteLobby         = "/lobbies.LobbiesService/DeleteLobby"
	methodReadyMember         = "/lobbies.LobbiesService/ReadyMember"
	methodUpdateLobbyMetadata = "/lobbies.LobbiesService/UpdateLobbyMemberMetadata"
	methodStartMatch          = "/lobbies.LobbiesService/StartMatch"

	methodCreateParty         = "/parties.PartiesService/CreateParty"
	methodJoinParty           = "/parties.PartiesService/JoinParty"
	methodLeaveParty          = "/parties.PartiesService/LeaveParty"
	methodUpdatePartyMetadata = "/parties.PartiesService/UpdatePartyPlayerMetadata"
)

// ErrNoProxy reports a service used before the correlator was attached.
var ErrNoProxy = errors.New("snapapi: no proxy client")

// request is the shape every outbound body satisfies.
type request interface {
	Marshal() []byte
}

// Client groups the per-service wrappers sharing one correlator and user
// identity.
type Client struct {
	Matchmaking *Matchmaking
	Lobbies     *Lobbies
	Parties     *Parties
}

// New builds the service wrappers on top of an existing correlator. userID
// stamps every request that carries the caller's identity.
func New(client *proxy.Client, userID string) *Client {
	return &Client{
		Matchmaking: &Matchmaking{proxy: client, userID: userID},
		Lobbies:     &Lobbies{proxy: client, userID: userID},
		Parties:     &Parties{proxy: client, userID: userID},
	}
}

// call transmits body and decodes the response into a fresh T before the
// callback fires. Transport and backend failures reach the callback as-is.
func call[T any, P interface {
	*T
	Unmarshal([]byte) error
}](client *proxy.Client, method string, body request, fn func(*T, error)) (string, error) {
	if client == nil {
		return "", ErrNoProxy
	}
	var payload []byte
	if body != nil {
		payload = body.Marshal()
	}
	var wrapped func(proxy.Response)
	if fn != nil {
		wrapped = func(r proxy.Response) {
			if r.Err != nil {
				fn(nil, r.Err)
				return
			}
			resp := new(T)
			if err := P(resp).Unmarshal(r.Payload); err != nil {
				fn(nil, err)
				return
			}
			fn(resp, nil)
		}
	}
	return client.Call(method, payload, wrapped)
}

// ack transmits body for calls whose response carries no payload worth
// decoding. The callback reports only success or failure.
func ack(client *proxy.Client, method string, body request, fn func(error)) (string, error) {
	if client == nil {
		return "", ErrNoProxy
	}
	var payload []byte
	if body != nil {
		payload = body.Marshal()
	}
	var wrapped func(proxy.Response)
	if fn != nil {
		wrapped = func(r proxy.Response) { fn(r.Err) }
	}
	return client.Call(method, payload, wrapped)
}

// Matchmaking wraps the matchmaking service calls.
type Matchmaking struct {
	proxy  *proxy.Client
	userID string
}

// CreateTicket queues the user for matchmaking with optional search tags and
// metadata the rules engine can match on.
func (m *Matchmaking) CreateTicket(metadata wire.Metadata, searchTags []string, fn func(*wire.CreateTicketResponse, error)) (string, error) {
	return call[wire.CreateTicketResponse](m.proxy, methodCreateTicket, &wire.CreateTicketRequest{
		UserID:     m.userID,
		Metadata:   metadata,
		SearchTags: searchTags,
	}, fn)
}

// AcceptMatch confirms or declines a found match.
func (m *Matchmaking) AcceptMatch(matchID string, accept bool, fn func(error)) (string, error) {
	return ack(m.proxy, methodAcceptMatch, &wire.AcceptMatchRequest{
		UserID:  m.userID,
		MatchID: matchID,
		Accept:  accept,
	}, fn)
}

// Lobbies wraps the lobby service calls.
type Lobbies struct {
	proxy  *proxy.Client
	userID string
}

// CreateLobby opens a lobby owned by the caller.
func (l *Lobbies) CreateLobby(req wire.CreateLobbyRequest, fn func(*wire.LobbyResponse, error)) (string, error) {
	return call[wire.LobbyResponse](l.proxy, methodCreateLobby, &req, fn)
}

// ListLobbies searches public lobbies by metadata filters; nil filters list
// everything.
func (l *Lobbies) ListLobbies(filters []wire.MetadataFilter, fn func(*wire.ListLobbiesResponse, error)) (string, error) {
	return call[wire.ListLobbiesResponse](l.proxy, methodListLobbies, &wire.ListLobbiesRequest{
		Filters: filters,
	}, fn)
}

// JoinLobby adds the user to the lobby with the given member metadata.
func (l *Lobbies) JoinLobby(lobbyID string, metadata wire.Metadata, fn func(*wire.LobbyResponse, error)) (string, error) {
	return call[wire.LobbyResponse](l.proxy, methodJoinLobby, &wire.LobbyMemberRequest{
		LobbyID:  lobbyID,
		UserID:   l.userID,
		Metadata: metadata,
	}, fn)
}

// LeaveLobby removes the user from the lobby.
func (l *Lobbies) LeaveLobby(lobbyID string, fn func(error)) (string, error) {
	return ack(l.proxy, methodLeaveLobby, &wire.LobbyMemberRequest{
		LobbyID: lobbyID,
		UserID:  l.userID,
	}, fn)
}

// DeleteLobby disbands the lobby; only the owner may call it.
func (l *Lobbies) DeleteLobby(lobbyID string, fn func(error)) (string, error) {
	return ack(l.proxy, methodDeleteLobby, &wire.LobbyMemberRequest{
		LobbyID: lobbyID,
		UserID:  l.userID,
	}, fn)
}

// ReadyUp flips the user's ready flag in the lobby.
func (l *Lobbies) ReadyUp(lobbyID string, ready bool, fn func(error)) (string, error) {
	return ack(l.proxy, methodReadyMember, &wire.LobbyMemberRequest{
		LobbyID: lobbyID,
		UserID:  l.userID,
		Ready:   ready,
	}, fn)
}

// UpdateMemberMetadata replaces the user's member metadata in the lobby.
func (l *Lobbies) UpdateMemberMetadata(lobbyID string, metadata wire.Metadata, fn func(error)) (string, error) {
	return ack(l.proxy, methodUpdateLobbyMetadata, &wire.LobbyMemberRequest{
		LobbyID:  lobbyID,
		UserID:   l.userID,
		Metadata: metadata,
	}, fn)
}

// StartMatch asks the backend to start the lobby's match; only the owner may
// call it. The outcome arrives as a lobby event, not in the response.
func (l *Lobbies) StartMatch(lobbyID string, fn func(error)) (string, error) {
	return ack(l.proxy, methodStartMatch, &wire.LobbyMemberRequest{
		LobbyID: lobbyID,
		UserID:  l.userID,
	}, fn)
}

// Parties wraps the party service calls.
type Parties struct {
	proxy  *proxy.Client
	userID string
}

// CreateParty opens a party owned by the caller.
func (p *Parties) CreateParty(maxMembers int32, metadata wire.Metadata, fn func(*wire.PartyResponse, error)) (string, error) {
	return call[wire.PartyResponse](p.proxy, methodCreateParty, &wire.PartyRequest{
		UserID:     p.userID,
		MaxMembers: maxMembers,
		Metadata:   metadata,
	}, fn)
}

// JoinParty adds the user to an existing party.
func (p *Parties) JoinParty(partyID string, fn func(*wire.PartyResponse, error)) (string, error) {
	return call[wire.PartyResponse](p.proxy, methodJoinParty, &wire.PartyRequest{
		PartyID: partyID,
		UserID:  p.userID,
	}, fn)
}

// LeaveParty removes the user from the party.
func (p *Parties) LeaveParty(partyID string, fn func(error)) (string, error) {
	return ack(p.proxy, methodLeaveParty, &wire.PartyRequest{
		PartyID: partyID,
		UserID:  p.userID,
	}, fn)
}

// UpdatePlayerMetadata replaces the user's metadata within the party.
func (p *Parties) UpdatePlayerMetadata(partyID string, metadata wire.Metadata, fn func(error)) (string, error) {
	return ack(p.proxy, methodUpdatePartyMetadata, &wire.PartyRequest{
		PartyID:  partyID,
		UserID:   p.userID,
		Metadata: metadata,
	}, fn)
}
