package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStorageKey is the storage key the persisted session entry lives
// under when none is configured.
const DefaultStorageKey = "authclient.session"

// Auto-refresh fires this long before the access token expires. Tokens
// already within the guard window are refreshed almost immediately instead.
const (
	refreshGuard    = 60 * time.Second
	minRefreshGuard = 500 * time.Millisecond
)

// Client is the session lifecycle manager for a remote auth service. It owns
// the current session, keeps it synchronized with durable storage, schedules
// proactive token refresh before expiry, and notifies subscribers of state
// transitions.
//
// A Client is safe for concurrent readers, but state-mutating operations are
// not serialized against each other: callers must not assume atomicity of
// read-session / act / write-session across two public calls.
type Client struct {
	api        API
	storage    Storage
	storageKey string
	clock      Clock
	scheduler  Scheduler
	logger     *slog.Logger

	autoRefresh    bool
	persistSession bool

	bus   *eventBus
	group singleflight.Group

	// mu guards the session cell and the pending refresh task, the only
	// state shared with the scheduler goroutine.
	mu          sync.Mutex
	session     *Session
	refreshTask Task
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	api            API
	storage        Storage
	storageKey     string
	clock          Clock
	scheduler      Scheduler
	logger         *slog.Logger
	headers        map[string]string
	httpClient     *http.Client
	autoRefresh    bool
	persistSession bool
}

// WithAPI substitutes the API collaborator. Mainly useful in tests.
func WithAPI(api API) Option {
	return func(c *clientConfig) { c.api = api }
}

// WithStorage sets the durable storage backend. Defaults to an in-memory
// store; see the stores subpackages for filesystem, redis and gorm backends.
func WithStorage(storage Storage) Option {
	return func(c *clientConfig) { c.storage = storage }
}

// WithStorageKey overrides the key the persisted session is stored under.
func WithStorageKey(key string) Option {
	return func(c *clientConfig) { c.storageKey = key }
}

// WithAutoRefresh enables or disables background token refresh. Enabled by
// default.
func WithAutoRefresh(enabled bool) Option {
	return func(c *clientConfig) { c.autoRefresh = enabled }
}

// WithPersistSession enables or disables writing the session to storage.
// Enabled by default.
func WithPersistSession(enabled bool) Option {
	return func(c *clientConfig) { c.persistSession = enabled }
}

// WithClock substitutes the time source.
func WithClock(clock Clock) Option {
	return func(c *clientConfig) { c.clock = clock }
}

// WithScheduler substitutes the deferred-callback scheduler. The default
// uses a timer per client; callers that want a shared or deterministic
// scheduler pass their own.
func WithScheduler(scheduler Scheduler) Option {
	return func(c *clientConfig) { c.scheduler = scheduler }
}

// WithLogger sets the structured logger for background failures and other
// off-call-path events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// WithHeaders sets default headers for the built-in HTTP API (e.g. an API
// key). Ignored when WithAPI is used.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) { c.headers = headers }
}

// WithHTTPClient sets the HTTP client used by the built-in HTTP API (for
// timeouts, TLS config, proxies). Ignored when WithAPI is used.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// New creates a Client for the auth service at serverURL.
func New(serverURL string, opts ...Option) *Client {
	cfg := &clientConfig{
		storageKey:     DefaultStorageKey,
		autoRefresh:    true,
		persistSession: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.clock == nil {
		cfg.clock = SystemClock()
	}
	if cfg.scheduler == nil {
		cfg.scheduler = TimerScheduler()
	}
	if cfg.storage == nil {
		cfg.storage = NewMemoryStorage()
	}
	if cfg.api == nil {
		var apiOpts []HTTPAPIOption
		if cfg.headers != nil {
			apiOpts = append(apiOpts, WithAPIHeaders(cfg.headers))
		}
		if cfg.httpClient != nil {
			apiOpts = append(apiOpts, WithAPIHTTPClient(cfg.httpClient))
		}
		cfg.api = NewHTTPAPI(serverURL, apiOpts...)
	}

	return &Client{
		api:            cfg.api,
		storage:        cfg.storage,
		storageKey:     cfg.storageKey,
		clock:          cfg.clock,
		scheduler:      cfg.scheduler,
		logger:         cfg.logger,
		autoRefresh:    cfg.autoRefresh,
		persistSession: cfg.persistSession,
		bus:            newEventBus(cfg.logger),
	}
}

// CurrentSession returns the current session, or nil when signed out.
func (c *Client) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// CurrentUser returns the user on the current session, or nil.
func (c *Client) CurrentUser() *User {
	if s := c.CurrentSession(); s != nil {
		return s.User
	}
	return nil
}

// AccessToken returns the current access token, or "" when signed out.
func (c *Client) AccessToken() string {
	if s := c.CurrentSession(); s != nil {
		return s.AccessToken
	}
	return ""
}

// On registers a listener for one event kind and returns its subscription
// handle.
func (c *Client) On(event AuthChangeEvent, fn Listener) *Subscription {
	return c.bus.subscribe(event, fn)
}

// SignUpParams are the inputs to SignUp. Exactly one of Email or Phone is
// required; Email wins when both are set.
type SignUpParams struct {
	Email      string
	Phone      string
	Password   string
	Data       map[string]any
	RedirectTo string
}

// SignUp registers a new account. Any existing session is invalidated first.
// When the server has auto-confirm enabled it returns a session, which is
// committed and announced with SIGNED_IN; otherwise only the provisional
// user record is returned.
func (c *Client) SignUp(ctx context.Context, params SignUpParams) (*UserOrSession, error) {
	c.removeSession(ctx)

	opts := SignUpOptions{RedirectTo: params.RedirectTo, Data: params.Data}

	var result *UserOrSession
	var err error
	switch {
	case params.Email != "":
		result, err = c.api.SignUpWithEmail(ctx, params.Email, params.Password, opts)
	case params.Phone != "":
		result, err = c.api.SignUpWithPhone(ctx, params.Phone, params.Password, opts)
	default:
		return nil, fmt.Errorf("%w: email or phone required", ErrInvalidArguments)
	}
	if err != nil {
		return nil, err
	}

	if result.IsSession() {
		if err := c.saveSession(ctx, result.Session); err != nil {
			return nil, err
		}
		c.bus.notify(SignedIn, result.Session)
	}
	return result, nil
}

// SignInParams select one of the five sign-in modes by which field is
// non-empty, in this precedence: Email+Password, Email (magic link),
// Phone+Password, Phone (SMS OTP), RefreshToken, Provider.
type SignInParams struct {
	Email        string
	Phone        string
	Password     string
	RefreshToken string
	Provider     Provider
	RedirectTo   string
	Scopes       []string
}

// SignInResult is the outcome of SignIn. Provider sign-in yields only the
// redirect URL; every other mode yields a session.
type SignInResult struct {
	Session     *Session
	ProviderURL string
}

// SignIn authenticates using whichever mode the params select. Exactly one
// mode must be resolvable. Modes that mint a new session commit it and emit
// SIGNED_IN; the passwordless modes send the challenge out-of-band and
// return the pre-existing session.
func (c *Client) SignIn(ctx context.Context, params SignInParams) (*SignInResult, error) {
	switch {
	case params.Email != "" && params.Password != "":
		c.removeSession(ctx)
		session, err := c.api.SignInWithEmail(ctx, params.Email, params.Password)
		if err != nil {
			return nil, err
		}
		if err := c.saveSession(ctx, session); err != nil {
			return nil, err
		}
		c.bus.notify(SignedIn, session)
		return &SignInResult{Session: session}, nil

	case params.Email != "":
		if err := c.api.SendMagicLinkEmail(ctx, params.Email, params.RedirectTo); err != nil {
			return nil, err
		}
		session := c.CurrentSession()
		if session == nil {
			return nil, ErrNoCurrentSession
		}
		return &SignInResult{Session: session}, nil

	case params.Phone != "" && params.Password != "":
		c.removeSession(ctx)
		session, err := c.api.SignInWithPhone(ctx, params.Phone, params.Password)
		if err != nil {
			return nil, err
		}
		if err := c.saveSession(ctx, session); err != nil {
			return nil, err
		}
		c.bus.notify(SignedIn, session)
		return &SignInResult{Session: session}, nil

	case params.Phone != "":
		if err := c.api.SendMobileOTP(ctx, params.Phone); err != nil {
			return nil, err
		}
		session := c.CurrentSession()
		if session == nil {
			return nil, ErrNoCurrentSession
		}
		return &SignInResult{Session: session}, nil

	case params.RefreshToken != "":
		session, err := c.callRefreshToken(ctx, params.RefreshToken)
		if err != nil {
			return nil, err
		}
		return &SignInResult{Session: session}, nil

	case params.Provider != "":
		providerURL, err := c.api.GetURLForProvider(params.Provider, ProviderSignInOptions{
			RedirectTo: params.RedirectTo,
			Scopes:     params.Scopes,
		})
		if err != nil {
			return nil, err
		}
		return &SignInResult{ProviderURL: providerURL}, nil

	default:
		return nil, fmt.Errorf("%w: one of email, phone, refresh token or provider required", ErrInvalidArguments)
	}
}

// VerifyOTP submits a one-time code received over SMS. Any existing session
// is invalidated first; a returned session is committed and announced with
// SIGNED_IN.
func (c *Client) VerifyOTP(ctx context.Context, phone, token string, opts VerifyOTPOptions) (*UserOrSession, error) {
	c.removeSession(ctx)

	result, err := c.api.VerifyMobileOTP(ctx, phone, token, opts)
	if err != nil {
		return nil, err
	}

	if result.IsSession() {
		if err := c.saveSession(ctx, result.Session); err != nil {
			return nil, err
		}
		c.bus.notify(SignedIn, result.Session)
	}
	return result, nil
}

// UpdateUser patches the signed-in user's attributes, replaces the user on
// the current session, re-persists it, and emits USER_UPDATED.
func (c *Client) UpdateUser(ctx context.Context, attrs UserAttributes) (*User, error) {
	session := c.CurrentSession()
	if session == nil {
		return nil, ErrNotAuthenticated
	}

	user, err := c.api.UpdateUser(ctx, session.AccessToken, attrs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.User = user
		session = c.session
	}
	c.mu.Unlock()

	if err := c.persist(ctx, session); err != nil {
		return nil, err
	}
	c.bus.notify(UserUpdated, session)
	return user, nil
}

// SetSession exchanges a refresh token for a fresh session, commits it, and
// emits TOKEN_REFRESHED and SIGNED_IN.
func (c *Client) SetSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.callRefreshToken(ctx, refreshToken)
}

// SetAuth overrides the access token on an otherwise carried-over session
// shell: expiry, refresh token and provider token are reused from the
// current session when one exists. The shell is committed without
// necessarily having a full user record.
func (c *Client) SetAuth(ctx context.Context, accessToken string) (*Session, error) {
	c.mu.Lock()
	var shell *Session
	if c.session != nil {
		copied := *c.session
		copied.AccessToken = accessToken
		shell = &copied
	} else {
		shell = &Session{AccessToken: accessToken, TokenType: "bearer"}
	}
	c.mu.Unlock()

	if err := c.saveSession(ctx, shell); err != nil {
		return nil, err
	}
	return shell, nil
}

// SignOut clears the session locally, emits SIGNED_OUT, and then revokes the
// captured access token server-side. The local effect is unconditional and
// precedes the remote one; a revoke failure is returned but arrives after
// sign-out has already completed locally. Signing out while signed out emits
// SIGNED_OUT and does nothing else.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	var accessToken string
	hadSession := c.session != nil
	if hadSession {
		accessToken = c.session.AccessToken
	}
	c.mu.Unlock()

	if hadSession {
		c.removeSession(ctx)
	}
	c.bus.notify(SignedOut, nil)

	if accessToken != "" {
		return c.api.SignOut(ctx, accessToken)
	}
	return nil
}

// RefreshSession forces a refresh-token exchange for the current session.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	if c.CurrentSession() == nil {
		return nil, ErrNotAuthenticated
	}
	return c.callRefreshToken(ctx, "")
}

// RecoverSession restores a persisted session at startup. A valid entry is
// committed and announced with SIGNED_IN; an expired entry is refreshed when
// possible and cleared otherwise. Failures self-heal into a signed-out state
// and are logged, never returned: recovery must not break application
// startup. Returns the current session after recovery, or nil.
func (c *Client) RecoverSession(ctx context.Context) *Session {
	raw, ok, err := c.storage.Get(ctx, c.storageKey)
	if err != nil {
		c.logger.Warn("session recovery: storage read failed", "err", err)
		return nil
	}
	if !ok {
		return nil
	}

	var entry storageEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn("session recovery: discarding malformed entry", "err", err)
		c.removeSession(ctx)
		return nil
	}

	// One storage snapshot feeds both phases: the optimistic restore and the
	// refresh-or-expire correctness pass.
	now := c.clock.Now()
	expired := entry.ExpiresAt <= now.Unix()
	valid := entry.Session != nil && entry.Session.User != nil

	if valid && !expired {
		if err := c.saveSession(ctx, entry.Session); err != nil {
			c.logger.Warn("session recovery: commit failed", "err", err)
			return nil
		}
		c.bus.notify(SignedIn, entry.Session)
		return entry.Session
	}

	switch {
	case !valid:
		c.removeSession(ctx)
	case c.autoRefresh && entry.Session.HasRefreshToken():
		if _, err := c.callRefreshToken(ctx, entry.Session.RefreshToken); err != nil {
			c.logger.Warn("session recovery: refresh failed, signing out", "err", err)
			c.removeSession(ctx)
		}
	default:
		c.removeSession(ctx)
	}
	return c.CurrentSession()
}

// callRefreshToken exchanges a refresh token for a new session, preferring
// the explicitly supplied token over the current session's. Concurrent calls
// collapse into a single exchange. On success the new session is committed
// and TOKEN_REFRESHED then SIGNED_IN are emitted.
func (c *Client) callRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	token := refreshToken
	if token == "" {
		c.mu.Lock()
		if c.session != nil {
			token = c.session.RefreshToken
		}
		c.mu.Unlock()
	}
	if token == "" {
		return nil, ErrNoCurrentSession
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		session, err := c.api.RefreshAccessToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if err := c.saveSession(ctx, session); err != nil {
			return nil, err
		}
		c.bus.notify(TokenRefreshed, session)
		c.bus.notify(SignedIn, session)
		return session, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// saveSession is the commit protocol: replace the session cell, reschedule
// auto-refresh, and persist the storage entry. Any previously pending
// refresh task is canceled regardless of whether a new one is scheduled.
func (c *Client) saveSession(ctx context.Context, session *Session) error {
	session.computeExpiresAt(c.clock.Now())

	c.mu.Lock()
	c.session = session
	if c.refreshTask != nil {
		c.refreshTask.Cancel()
		c.refreshTask = nil
	}
	if c.autoRefresh && session.HasExpiry() {
		remaining := time.Duration(session.ExpiresAt-c.clock.Now().Unix()) * time.Second
		guard := refreshGuard
		if remaining <= refreshGuard {
			guard = minRefreshGuard
		}
		if delay := remaining - guard; delay > 0 {
			c.refreshTask = c.scheduler.Schedule(delay, c.refreshTimerFired)
		}
	}
	c.mu.Unlock()

	if c.persistSession && session.HasExpiry() {
		return c.persist(ctx, session)
	}
	return nil
}

// refreshTimerFired runs on the scheduler's goroutine. A refresh failure
// here has no caller to surface to, so it is converted into a forced
// sign-out rather than leaving the client stranded with a stale session.
func (c *Client) refreshTimerFired() {
	ctx := context.Background()

	// A sign-out may have landed between the timer firing and this running.
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return
	}

	if _, err := c.callRefreshToken(ctx, session.RefreshToken); err != nil {
		c.logger.Error("background token refresh failed, signing out", "err", err)
		c.removeSession(ctx)
		c.bus.notify(SignedOut, nil)
	}
}

// persist writes the storage entry for session. A session with no absolute
// expiry is never persisted.
func (c *Client) persist(ctx context.Context, session *Session) error {
	if !c.persistSession || !session.HasExpiry() {
		return nil
	}
	data, err := json.Marshal(storageEntry{Session: session, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := c.storage.Set(ctx, c.storageKey, string(data)); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return c.storage.Flush(ctx)
}

// removeSession clears the session cell, cancels any pending refresh, and
// removes the persisted entry. It emits no events; callers decide what to
// announce.
func (c *Client) removeSession(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	if c.refreshTask != nil {
		c.refreshTask.Cancel()
		c.refreshTask = nil
	}
	c.mu.Unlock()

	if err := c.storage.Remove(ctx, c.storageKey); err != nil {
		c.logger.Warn("failed to remove persisted session", "err", err)
		return
	}
	if err := c.storage.Flush(ctx); err != nil {
		c.logger.Warn("failed to flush storage", "err", err)
	}
}
