// Package grpc provides gRPC per-RPC credentials sourced from an authclient
// session, so authenticated gRPC connections can be built directly on a
// signed-in client.
package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc/credentials"
)

// DefaultMetadataKeyAuthorization is the default metadata key the bearer
// token is sent under.
const DefaultMetadataKeyAuthorization = "authorization"

// TokenProvider supplies the current access token. *authclient.Client
// satisfies it; the empty string means "not signed in".
type TokenProvider interface {
	AccessToken() string
}

// Config holds the credential behavior configuration.
type Config struct {
	// MetadataKey is the metadata key the token is sent under.
	// Defaults to "authorization".
	MetadataKey string

	// AllowInsecureTransport disables the transport security requirement.
	// Only for local development against plaintext servers.
	AllowInsecureTransport bool

	// RequireToken when true fails the RPC client-side when there is no
	// signed-in session, instead of sending the call unauthenticated.
	RequireToken bool
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKey == "" {
		c.MetadataKey = DefaultMetadataKeyAuthorization
	}
}

// Credentials implements credentials.PerRPCCredentials by injecting the
// provider's current bearer token into outgoing metadata.
type Credentials struct {
	provider TokenProvider
	config   *Config
}

var _ credentials.PerRPCCredentials = (*Credentials)(nil)

// NewCredentials creates per-RPC credentials from a token provider. A nil
// config uses the defaults.
func NewCredentials(provider TokenProvider, config *Config) *Credentials {
	if config == nil {
		config = &Config{}
	}
	config.EnsureDefaults()
	return &Credentials{provider: provider, config: config}
}

// GetRequestMetadata returns the authorization metadata for an outgoing RPC.
func (c *Credentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	token := c.provider.AccessToken()
	if token == "" {
		if c.config.RequireToken {
			return nil, fmt.Errorf("no access token available")
		}
		return nil, nil
	}
	return map[string]string{c.config.MetadataKey: "Bearer " + token}, nil
}

// RequireTransportSecurity reports whether the credentials demand TLS.
func (c *Credentials) RequireTransportSecurity() bool {
	return !c.config.AllowInsecureTransport
}
