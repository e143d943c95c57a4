package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// sessionPath is appended to the snapend base URL for the session socket.
const sessionPath = "/v1/relay/ws"

// BuildSessionURL derives the session WebSocket address from the snapend base
// URL. HTTP schemes are swapped for their WebSocket equivalents and the
// session path is appended to whatever path the base already carries.
func BuildSessionURL(base, token, username string) (string, error) {
	parsed, err := parseEndpoint(base)
	if err != nil {
		return "", err
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + sessionPath
	query := parsed.Query()
	query.Set("token", token)
	query.Set("username", username)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// BuildRelayURL derives the relay WebSocket address from the connection
// string announced in a MatchCreated or LobbyMatchStarted event. The path is
// used as announced; only the credentials are attached.
func BuildRelayURL(address, joinCode, username string) (string, error) {
	parsed, err := parseEndpoint(address)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("joincode", joinCode)
	query.Set("username", username)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// parseEndpoint validates the address and rewrites http(s) to ws(s).
func parseEndpoint(address string) (*url.URL, error) {
	//1.- Reject empty or unparseable addresses before touching the scheme.
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, errors.New("endpoint address must be provided")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", trimmed, err)
	}
	//2.- Map the scheme so callers may hand over either flavour.
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", trimmed)
	}
	return parsed, nil
}
