// Package authclient is a client SDK for a GoTrue-style remote auth service.
// It owns the in-memory answer to "am I logged in, as whom, with what
// credentials, and for how long", keeps that answer synchronized with durable
// storage, and keeps access tokens fresh in the background without the caller
// polling or scheduling anything.
//
// # Architecture
//
// Client: the session lifecycle manager. It holds the single current session,
// drives every auth flow, persists the session under one storage key,
// schedules a proactive token refresh before expiry, and announces state
// transitions to subscribers.
//
// API: the stateless collaborator performing the network calls, one operation
// per flow. HTTPAPI is the production implementation; tests substitute fakes.
//
// Storage: a durable string key-value backend. MemoryStorage is the default;
// filesystem, redis and gorm backends live under stores/.
//
// # Basic Usage
//
// Create a client, recover any persisted session, and sign in:
//
//	store, _ := fs.NewStorage("", "myapp")
//	client := authclient.New("https://auth.example.com",
//	    authclient.WithStorage(store),
//	    authclient.WithHeaders(map[string]string{"apikey": apiKey}),
//	)
//	client.RecoverSession(ctx)
//
//	sub := client.On(authclient.SignedIn, func(session *authclient.Session) {
//	    log.Println("signed in as", session.User.Email)
//	})
//	defer sub.Unsubscribe()
//
//	result, err := client.SignIn(ctx, authclient.SignInParams{
//	    Email:    "me@example.com",
//	    Password: "secret",
//	})
//
// From then on the client refreshes the access token on its own, shortly
// before it expires, and re-persists the refreshed session. Sign out clears
// local state first and revokes the token server-side best-effort:
//
//	if err := client.SignOut(ctx); err != nil {
//	    log.Println("server-side revoke failed:", err)
//	}
//
// # Events
//
// On registers a listener per event kind (SIGNED_IN, SIGNED_OUT,
// TOKEN_REFRESHED, USER_UPDATED, PASSWORD_RECOVERY). Delivery is synchronous
// and in registration order, on whichever goroutine performed the commit; for
// auto-refresh that is the scheduler's goroutine. The returned Subscription
// is idempotent to unsubscribe.
//
// # Integration
//
// *Client implements oauth2.TokenSource, and the grpc subpackage provides
// PerRPCCredentials, so authenticated HTTP and gRPC clients can be built
// directly on a signed-in Client.
//
// # Testing
//
// Clock, Scheduler, Storage and API are all injectable, so the full
// lifecycle, including expiry math and refresh scheduling, runs
// deterministically under test with no timers and no network.
package authclient
