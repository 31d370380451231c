package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider identifies a third-party identity provider for delegated sign-in.
type Provider string

const (
	ProviderApple     Provider = "apple"
	ProviderAzure     Provider = "azure"
	ProviderBitbucket Provider = "bitbucket"
	ProviderDiscord   Provider = "discord"
	ProviderFacebook  Provider = "facebook"
	ProviderGithub    Provider = "github"
	ProviderGitlab    Provider = "gitlab"
	ProviderGoogle    Provider = "google"
	ProviderTwitch    Provider = "twitch"
	ProviderTwitter   Provider = "twitter"
)

// Identity is a provider identity attached to a user account.
type Identity struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	IdentityData map[string]any `json:"identity_data,omitempty"`
	Provider     string         `json:"provider"`
	CreatedAt    time.Time      `json:"created_at"`
	LastSignInAt time.Time      `json:"last_sign_in_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// User is the account record returned by the auth service.
type User struct {
	ID                 string         `json:"id"`
	Aud                string         `json:"aud"`
	Role               string         `json:"role"`
	Email              string         `json:"email"`
	Phone              string         `json:"phone"`
	ConfirmedAt        string         `json:"confirmed_at,omitempty"`
	EmailConfirmedAt   string         `json:"email_confirmed_at,omitempty"`
	PhoneConfirmedAt   string         `json:"phone_confirmed_at,omitempty"`
	ConfirmationSentAt string         `json:"confirmation_sent_at,omitempty"`
	RecoverySentAt     string         `json:"recovery_sent_at,omitempty"`
	LastSignInAt       string         `json:"last_sign_in_at,omitempty"`
	AppMetadata        map[string]any `json:"app_metadata,omitempty"`
	UserMetadata       map[string]any `json:"user_metadata,omitempty"`
	Identities         []Identity     `json:"identities,omitempty"`
	CreatedAt          string         `json:"created_at,omitempty"`
	UpdatedAt          string         `json:"updated_at,omitempty"`
}

// UserAttributes is the patch record accepted by UpdateUser. Zero-valued
// fields are omitted from the request.
type UserAttributes struct {
	Email            string         `json:"email,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	Password         string         `json:"password,omitempty"`
	EmailChangeToken string         `json:"email_change_token,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
}

// Session is the authenticated credential bundle for a signed-in user.
//
// Tokens are opaque bearer strings to this package; ExpiresAt (epoch seconds)
// is the only field the auto-refresh and recovery logic consult. A session
// with no ExpiresAt is never scheduled for refresh and never persisted.
type Session struct {
	AccessToken   string `json:"access_token"`
	TokenType     string `json:"token_type,omitempty"`
	ExpiresIn     int64  `json:"expires_in,omitempty"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	ProviderToken string `json:"provider_token,omitempty"`
	User          *User  `json:"user,omitempty"`
}

// HasExpiry reports whether the session carries an absolute expiry instant.
func (s *Session) HasExpiry() bool {
	return s != nil && s.ExpiresAt > 0
}

// IsExpired reports whether the session has expired as of now.
func (s *Session) IsExpired(now time.Time) bool {
	return s.HasExpiry() && now.Unix() >= s.ExpiresAt
}

// HasRefreshToken reports whether a refresh token is available.
func (s *Session) HasRefreshToken() bool {
	return s != nil && s.RefreshToken != ""
}

// computeExpiresAt fills ExpiresAt from ExpiresIn relative to issuance time.
// When neither is available it falls back to the exp claim of the access
// token, if the token happens to be a JWT. The claims are read without
// signature verification; the token remains an opaque credential and the
// server re-validates on every use.
func (s *Session) computeExpiresAt(issuedAt time.Time) {
	if s.ExpiresAt > 0 {
		return
	}
	if s.ExpiresIn > 0 {
		s.ExpiresAt = issuedAt.Unix() + s.ExpiresIn
		return
	}
	if exp, ok := jwtExpiry(s.AccessToken); ok {
		s.ExpiresAt = exp
	}
}

// jwtExpiry extracts the exp claim from an unverified JWT access token.
func jwtExpiry(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return 0, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}
	return exp.Unix(), true
}

// UserOrSession is the result of endpoints whose response shape depends on
// server configuration: with email auto-confirm enabled the server returns a
// full session, otherwise only the provisional user record. Exactly one of
// the two fields is set.
type UserOrSession struct {
	User    *User
	Session *Session
}

// IsSession reports whether the session variant is populated.
func (u *UserOrSession) IsSession() bool {
	return u != nil && u.Session != nil
}

// GetUser returns the user record from whichever variant is present.
func (u *UserOrSession) GetUser() *User {
	if u == nil {
		return nil
	}
	if u.Session != nil {
		return u.Session.User
	}
	return u.User
}

// storageEntry is the durable persisted form of a session. It is the only
// value this package writes to or reads from a Storage backend.
type storageEntry struct {
	Session   *Session `json:"session"`
	ExpiresAt int64    `json:"expires_at"`
}
