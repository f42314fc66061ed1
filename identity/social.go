package identity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// ErrUnsupportedProvider is returned for provider names outside [Providers].
var ErrUnsupportedProvider = errors.New("unsupported social provider")

// Providers maps each linkable provider to its OAuth2 endpoint.
var Providers = map[string]oauth2.Endpoint{
	"google":   endpoints.Google,
	"github":   endpoints.GitHub,
	"facebook": endpoints.Facebook,
}

var defaultScopes = map[string][]string{
	"google":   {"openid", "profile", "email"},
	"github":   {"read:user", "user:email"},
	"facebook": {"public_profile", "email"},
}

// ProviderNames returns the supported provider names in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(Providers))
	for name := range Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportedProvider reports whether name can be linked.
func SupportedProvider(name string) bool {
	_, ok := Providers[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// SocialConfig is the OAuth2 client registration for one provider.
type SocialConfig struct {
	ClientID    string   `yaml:"client_id"`
	RedirectURL string   `yaml:"redirect_url"`
	Scopes      []string `yaml:"scopes"`
}

// LinkRequest is the authorization flow started for a social link. The
// verifier must be kept by the caller to complete the PKCE exchange.
type LinkRequest struct {
	Provider string `json:"provider"`
	AuthURL  string `json:"authUrl"`
	State    string `json:"state"`
	Verifier string `json:"-"`
}

// NewLinkRequest builds the provider authorization URL with a fresh state
// and S256 PKCE challenge.
func NewLinkRequest(provider string, cfg SocialConfig) (*LinkRequest, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	endpoint, ok := Providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes[provider]
	}
	oauthCfg := &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURL,
		Endpoint:    endpoint,
		Scopes:      scopes,
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	return &LinkRequest{
		Provider: provider,
		AuthURL:  oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier)),
		State:    state,
		Verifier: verifier,
	}, nil
}
