package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	token string
}

func (p *staticProvider) AccessToken() string { return p.token }

func TestCredentials_InjectsBearerToken(t *testing.T) {
	creds := NewCredentials(&staticProvider{token: "my-token"}, nil)

	md, err := creds.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"authorization": "Bearer my-token"}, md)
}

func TestCredentials_CustomMetadataKey(t *testing.T) {
	creds := NewCredentials(&staticProvider{token: "my-token"}, &Config{MetadataKey: "x-auth-token"})

	md, err := creds.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer my-token", md["x-auth-token"])
}

func TestCredentials_NoToken(t *testing.T) {
	t.Run("optional sends nothing", func(t *testing.T) {
		creds := NewCredentials(&staticProvider{}, nil)

		md, err := creds.GetRequestMetadata(context.Background())
		require.NoError(t, err)
		assert.Empty(t, md)
	})

	t.Run("required fails client-side", func(t *testing.T) {
		creds := NewCredentials(&staticProvider{}, &Config{RequireToken: true})

		_, err := creds.GetRequestMetadata(context.Background())
		assert.Error(t, err)
	})
}

func TestCredentials_TransportSecurity(t *testing.T) {
	assert.True(t, NewCredentials(&staticProvider{}, nil).RequireTransportSecurity())
	assert.False(t, NewCredentials(&staticProvider{}, &Config{AllowInsecureTransport: true}).RequireTransportSecurity())
}
