package authclient

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Client)(nil)

// Token returns the current session as an oauth2 token, exchanging the
// refresh token for a fresh one when it has expired. This makes *Client an
// oauth2.TokenSource, so the session plugs directly into oauth2-aware HTTP
// and RPC stacks.
func (c *Client) Token() (*oauth2.Token, error) {
	session := c.CurrentSession()
	if session == nil {
		return nil, ErrNotAuthenticated
	}

	if session.IsExpired(c.clock.Now()) {
		refreshed, err := c.callRefreshToken(context.Background(), "")
		if err != nil {
			return nil, err
		}
		session = refreshed
	}

	token := &oauth2.Token{
		AccessToken:  session.AccessToken,
		TokenType:    session.TokenType,
		RefreshToken: session.RefreshToken,
	}
	if session.HasExpiry() {
		token.Expiry = time.Unix(session.ExpiresAt, 0)
	}
	return token, nil
}

// TokenSource returns the client as an oauth2.TokenSource.
func (c *Client) TokenSource() oauth2.TokenSource {
	return c
}
