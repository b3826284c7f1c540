// Package auth provides cross-cutting authentication plugins: a static
// bearer token and an OAuth2 client-credentials flow. Both inject the
// Authorization header on requests and stream connects. Enable the static
// variant from config with a blank import:
//
//	_ "github.com/conduit-labs/conduit/plugins/auth"
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/conduit-labs/conduit/plugin"
)

// Plugin tokens for the two variants.
const (
	TokenStatic plugin.Token = "auth-static"
	TokenOAuth2 plugin.Token = "auth-oauth2"
)

func init() {
	plugin.RegisterFactory("auth-static", func(config map[string]interface{}) (plugin.Plugin, error) {
		token, _ := config["token"].(string)
		if token == "" {
			return nil, fmt.Errorf("auth-static: token is required")
		}
		return NewStatic(token), nil
	})
}

// Static injects a fixed bearer token. Config-only, safe for concurrent
// calls by construction.
type Static struct {
	value string
}

// NewStatic creates a static bearer-token plugin.
func NewStatic(token string) *Static {
	return &Static{value: "Bearer " + token}
}

// Token returns the plugin identifier.
func (s *Static) Token() plugin.Token { return TokenStatic }

// OnRequest sets the Authorization header on a copy of the context.
func (s *Static) OnRequest(_ context.Context, req *plugin.RequestContext) (*plugin.RequestContext, *plugin.ShortCircuit, error) {
	next := req.Clone()
	next.Headers["Authorization"] = s.value
	return next, nil, nil
}

// OnConnect sets the Authorization header on a copy of the context.
func (s *Static) OnConnect(_ context.Context, cc *plugin.ConnectContext) (*plugin.ConnectContext, plugin.StreamHandle, error) {
	next := cc.Clone()
	next.Headers["Authorization"] = s.value
	return next, nil, nil
}

// ClientCredentials fetches tokens through the OAuth2 client-credentials
// flow, reusing them until expiry.
type ClientCredentials struct {
	source oauth2.TokenSource
}

// NewClientCredentials creates an OAuth2 plugin for the given client.
func NewClientCredentials(clientID, clientSecret, tokenURL string, scopes []string) *ClientCredentials {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	return &ClientCredentials{source: cfg.TokenSource(context.Background())}
}

// Token returns the plugin identifier.
func (c *ClientCredentials) Token() plugin.Token { return TokenOAuth2 }

// OnRequest fetches (or reuses) an access token and sets the Authorization
// header on a copy of the context. A token-endpoint failure fails the call.
func (c *ClientCredentials) OnRequest(_ context.Context, req *plugin.RequestContext) (*plugin.RequestContext, *plugin.ShortCircuit, error) {
	tok, err := c.source.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("fetch access token: %w", err)
	}
	next := req.Clone()
	next.Headers["Authorization"] = tok.Type() + " " + tok.AccessToken
	return next, nil, nil
}

// OnConnect mirrors OnRequest for streaming connects.
func (c *ClientCredentials) OnConnect(_ context.Context, cc *plugin.ConnectContext) (*plugin.ConnectContext, plugin.StreamHandle, error) {
	tok, err := c.source.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("fetch access token: %w", err)
	}
	next := cc.Clone()
	next.Headers["Authorization"] = tok.Type() + " " + tok.AccessToken
	return next, nil, nil
}
