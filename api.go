package authclient

import "context"

// SignUpOptions carries the optional parameters accepted by sign-up.
type SignUpOptions struct {
	// RedirectTo is the URL the confirmation email or SMS will link back to.
	RedirectTo string
	// Data is arbitrary user metadata stored with the new account.
	Data map[string]any
}

// VerifyOTPOptions carries the optional parameters accepted by OTP
// verification.
type VerifyOTPOptions struct {
	RedirectTo string
}

// ProviderSignInOptions carries the optional parameters for a delegated
// provider sign-in URL.
type ProviderSignInOptions struct {
	RedirectTo string
	Scopes     []string
}

// API is the stateless collaborator that performs the network calls behind
// each auth flow. Every operation either returns the typed payload or fails
// with a classified error (an *APIError for non-success responses).
//
// HTTPAPI is the production implementation; tests substitute fakes.
type API interface {
	SignUpWithEmail(ctx context.Context, email, password string, opts SignUpOptions) (*UserOrSession, error)
	SignUpWithPhone(ctx context.Context, phone, password string, opts SignUpOptions) (*UserOrSession, error)
	SignInWithEmail(ctx context.Context, email, password string) (*Session, error)
	SignInWithPhone(ctx context.Context, phone, password string) (*Session, error)
	SendMagicLinkEmail(ctx context.Context, email, redirectTo string) error
	SendMobileOTP(ctx context.Context, phone string) error
	VerifyMobileOTP(ctx context.Context, phone, token string, opts VerifyOTPOptions) (*UserOrSession, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error)
	GetURLForProvider(provider Provider, opts ProviderSignInOptions) (string, error)
}
