package session

import (
	"strings"
	"testing"
)

func TestBuildSessionURL(t *testing.T) {
	cases := []struct {
		name string
		base string
		want string
	}{
		{
			name: "https becomes wss",
			base: "https://gateway.example",
			want: "wss://gateway.example/v1/relay/ws?token=tok-1&username=ada",
		},
		{
			name: "http becomes ws",
			base: "http://localhost:8080",
			want: "ws://localhost:8080/v1/relay/ws?token=tok-1&username=ada",
		},
		{
			name: "trailing slash collapses",
			base: "https://gateway.example/",
			want: "wss://gateway.example/v1/relay/ws?token=tok-1&username=ada",
		},
		{
			name: "existing path is preserved",
			base: "https://gateway.example/snapend-abc",
			want: "wss://gateway.example/snapend-abc/v1/relay/ws?token=tok-1&username=ada",
		},
		{
			name: "websocket scheme passes through",
			base: "wss://gateway.example",
			want: "wss://gateway.example/v1/relay/ws?token=tok-1&username=ada",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildSessionURL(tc.base, "tok-1", "ada")
			if err != nil {
				t.Fatalf("BuildSessionURL returned %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildSessionURLRejectsBadInput(t *testing.T) {
	if _, err := BuildSessionURL("", "tok", "ada"); err == nil {
		t.Fatal("expected error for empty base")
	}
	if _, err := BuildSessionURL("ftp://gateway.example", "tok", "ada"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if _, err := BuildSessionURL("https://", "tok", "ada"); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestBuildRelayURL(t *testing.T) {
	got, err := BuildRelayURL("wss://relay.example.com:8443/match", "JX94KQ", "ada")
	if err != nil {
		t.Fatalf("BuildRelayURL returned %v", err)
	}
	want := "wss://relay.example.com:8443/match?joincode=JX94KQ&username=ada"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	//1.- Announced addresses sometimes carry an https scheme; it maps the
	// same way the snapend base does.
	got, err = BuildRelayURL("https://relay.example.com", "JX94KQ", "ada")
	if err != nil {
		t.Fatalf("BuildRelayURL returned %v", err)
	}
	if !strings.HasPrefix(got, "wss://relay.example.com") {
		t.Fatalf("scheme not mapped: %q", got)
	}
}
