package identity

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestNewLinkRequest(t *testing.T) {
	link, err := NewLinkRequest("Google", SocialConfig{ClientID: "cid", RedirectURL: "https://app.example.com/cb"})
	if err != nil {
		t.Fatalf("NewLinkRequest: %v", err)
	}
	if link.Provider != "google" || link.State == "" || link.Verifier == "" {
		t.Fatalf("unexpected link request: %+v", link)
	}

	u, err := url.Parse(link.AuthURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if u.Host != "accounts.google.com" {
		t.Fatalf("unexpected host %q", u.Host)
	}
	q := u.Query()
	if q.Get("state") != link.State || q.Get("client_id") != "cid" {
		t.Fatalf("unexpected query: %v", q)
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Fatalf("expected PKCE challenge, got %v", q)
	}
	if !strings.Contains(q.Get("scope"), "email") {
		t.Fatalf("expected default scopes, got %q", q.Get("scope"))
	}
}

func TestNewLinkRequestUnsupported(t *testing.T) {
	if _, err := NewLinkRequest("myspace", SocialConfig{}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
	if SupportedProvider("myspace") || !SupportedProvider(" GitHub ") {
		t.Fatal("unexpected SupportedProvider result")
	}
	names := ProviderNames()
	if len(names) != 3 || names[0] != "facebook" {
		t.Fatalf("unexpected provider names: %v", names)
	}
}
