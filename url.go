package authclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// The required callback parameters, in the order missing ones are reported.
var callbackFields = []string{"access_token", "refresh_token", "token_type", "expires_in"}

// SessionFromURL extracts a session from an auth callback URL, e.g. the
// redirect landing a magic link or provider sign-in ends on. The user record
// is fetched with the extracted access token. When storeSession is true the
// session is committed and SIGNED_IN is emitted, plus PASSWORD_RECOVERY when
// the URL's type parameter is "recovery".
func (c *Client) SessionFromURL(ctx context.Context, rawURL string, storeSession bool) (*Session, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed callback URL: %v", ErrInvalidArguments, err)
	}
	q := u.Query()

	if desc := q.Get("error_description"); desc != "" {
		return nil, &CallbackError{Description: desc}
	}
	for _, field := range callbackFields {
		if q.Get(field) == "" {
			return nil, &MissingFieldError{Field: field}
		}
	}

	expiresIn, err := strconv.ParseInt(q.Get("expires_in"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed expires_in: %v", ErrInvalidArguments, err)
	}

	session := &Session{
		AccessToken:   q.Get("access_token"),
		TokenType:     q.Get("token_type"),
		ExpiresIn:     expiresIn,
		ExpiresAt:     c.clock.Now().Unix() + expiresIn,
		RefreshToken:  q.Get("refresh_token"),
		ProviderToken: q.Get("provider_token"),
	}

	user, err := c.api.GetUser(ctx, session.AccessToken)
	if err != nil {
		return nil, err
	}
	session.User = user

	if storeSession {
		if err := c.saveSession(ctx, session); err != nil {
			return nil, err
		}
		c.bus.notify(SignedIn, session)
		if q.Get("type") == "recovery" {
			c.bus.notify(PasswordRecovery, session)
		}
	}
	return session, nil
}
