package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPAPI implements API against a remote auth service speaking JSON over
// HTTP. It is stateless; all credentials are passed per call.
type HTTPAPI struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	now        func() time.Time
}

// HTTPAPIOption configures an HTTPAPI.
type HTTPAPIOption func(*HTTPAPI)

// WithAPIHeaders sets default headers sent with every request (e.g. an API
// key for a hosted deployment).
func WithAPIHeaders(headers map[string]string) HTTPAPIOption {
	return func(a *HTTPAPI) {
		for k, v := range headers {
			a.headers[k] = v
		}
	}
}

// WithAPIHTTPClient sets a custom HTTP client (for timeouts, TLS config,
// proxies, etc.).
func WithAPIHTTPClient(client *http.Client) HTTPAPIOption {
	return func(a *HTTPAPI) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// NewHTTPAPI creates an API implementation for the auth service at baseURL.
func NewHTTPAPI(baseURL string, opts ...HTTPAPIOption) *HTTPAPI {
	a := &HTTPAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    make(map[string]string),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *HTTPAPI) SignUpWithEmail(ctx context.Context, email, password string, opts SignUpOptions) (*UserOrSession, error) {
	body := map[string]any{"email": email, "password": password}
	if opts.Data != nil {
		body["data"] = opts.Data
	}
	return a.userOrSession(ctx, http.MethodPost, a.url("/signup", redirectQuery(opts.RedirectTo)), body, "")
}

func (a *HTTPAPI) SignUpWithPhone(ctx context.Context, phone, password string, opts SignUpOptions) (*UserOrSession, error) {
	body := map[string]any{"phone": phone, "password": password}
	if opts.Data != nil {
		body["data"] = opts.Data
	}
	return a.userOrSession(ctx, http.MethodPost, a.url("/signup", nil), body, "")
}

func (a *HTTPAPI) SignInWithEmail(ctx context.Context, email, password string) (*Session, error) {
	return a.token(ctx, "password", map[string]any{"email": email, "password": password})
}

func (a *HTTPAPI) SignInWithPhone(ctx context.Context, phone, password string) (*Session, error) {
	return a.token(ctx, "password", map[string]any{"phone": phone, "password": password})
}

func (a *HTTPAPI) SendMagicLinkEmail(ctx context.Context, email, redirectTo string) error {
	body := map[string]any{"email": email}
	return a.do(ctx, http.MethodPost, a.url("/magiclink", redirectQuery(redirectTo)), body, "", nil)
}

func (a *HTTPAPI) SendMobileOTP(ctx context.Context, phone string) error {
	body := map[string]any{"phone": phone}
	return a.do(ctx, http.MethodPost, a.url("/otp", nil), body, "", nil)
}

func (a *HTTPAPI) VerifyMobileOTP(ctx context.Context, phone, token string, opts VerifyOTPOptions) (*UserOrSession, error) {
	body := map[string]any{"phone": phone, "token": token, "type": "sms"}
	if opts.RedirectTo != "" {
		body["redirect_to"] = opts.RedirectTo
	}
	return a.userOrSession(ctx, http.MethodPost, a.url("/verify", nil), body, "")
}

func (a *HTTPAPI) RefreshAccessToken(ctx context.Context, refreshToken string) (*Session, error) {
	return a.token(ctx, "refresh_token", map[string]any{"refresh_token": refreshToken})
}

func (a *HTTPAPI) SignOut(ctx context.Context, accessToken string) error {
	return a.do(ctx, http.MethodPost, a.url("/logout", nil), nil, accessToken, nil)
}

func (a *HTTPAPI) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := a.do(ctx, http.MethodGet, a.url("/user", nil), nil, accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *HTTPAPI) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	var user User
	if err := a.do(ctx, http.MethodPut, a.url("/user", nil), attrs, accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetURLForProvider builds the redirect URL that begins a delegated sign-in
// with a third-party provider. No network call is made.
func (a *HTTPAPI) GetURLForProvider(provider Provider, opts ProviderSignInOptions) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("%w: provider required", ErrInvalidArguments)
	}
	q := url.Values{}
	q.Set("provider", string(provider))
	if opts.RedirectTo != "" {
		q.Set("redirect_to", opts.RedirectTo)
	}
	if len(opts.Scopes) > 0 {
		q.Set("scopes", strings.Join(opts.Scopes, " "))
	}
	return a.url("/authorize", q), nil
}

// token performs a grant exchange against the /token endpoint and stamps the
// returned session with its absolute expiry.
func (a *HTTPAPI) token(ctx context.Context, grantType string, body map[string]any) (*Session, error) {
	q := url.Values{}
	q.Set("grant_type", grantType)

	var session Session
	if err := a.do(ctx, http.MethodPost, a.url("/token", q), body, "", &session); err != nil {
		return nil, err
	}
	session.computeExpiresAt(a.now())
	return &session, nil
}

// userOrSession performs a request against a dual-shape endpoint and decodes
// the variant by presence of an access_token field in the payload.
func (a *HTTPAPI) userOrSession(ctx context.Context, method, endpoint string, body any, accessToken string) (*UserOrSession, error) {
	var raw json.RawMessage
	if err := a.do(ctx, method, endpoint, body, accessToken, &raw); err != nil {
		return nil, err
	}

	if gjson.GetBytes(raw, "access_token").Exists() {
		var session Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}
		session.computeExpiresAt(a.now())
		return &UserOrSession{Session: &session}, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &UserOrSession{User: &user}, nil
}

func (a *HTTPAPI) url(path string, query url.Values) string {
	endpoint := a.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func redirectQuery(redirectTo string) url.Values {
	if redirectTo == "" {
		return nil
	}
	q := url.Values{}
	q.Set("redirect_to", redirectTo)
	return q
}

// do performs one HTTP round-trip. Non-2xx responses are classified into an
// *APIError carrying the extracted server message.
func (a *HTTPAPI) do(ctx context.Context, method, endpoint string, body any, accessToken string, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to auth service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: extractMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid response from auth service: %w", err)
		}
	}
	return nil
}

// extractMessage pulls the human-readable message out of an error response
// body, checking msg, then message, then error, falling back to the raw body.
func extractMessage(body []byte) string {
	for _, field := range []string{"msg", "message", "error"} {
		if v := gjson.GetBytes(body, field); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return strings.TrimSpace(string(body))
}
