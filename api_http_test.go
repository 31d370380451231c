package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestHTTPAPI_SignInWithEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		json.Unmarshal(body, &req)
		if req["email"] != "me@example.com" || req["password"] != "secret" {
			t.Errorf("request body = %v", req)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token-123",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-token-456",
			"user":          map[string]any{"id": "user-1", "email": "me@example.com"},
		})
	}))
	defer server.Close()

	api := NewHTTPAPI(server.URL)
	session, err := api.SignInWithEmail(context.Background(), "me@example.com", "secret")
	if err != nil {
		t.Fatalf("SignInWithEmail() error = %v", err)
	}

	if session.AccessToken != "access-token-123" {
		t.Errorf("AccessToken = %q", session.AccessToken)
	}
	if session.RefreshToken != "refresh-token-456" {
		t.Errorf("RefreshToken = %q", session.RefreshToken)
	}
	if session.ExpiresAt == 0 {
		t.Error("ExpiresAt not derived from expires_in")
	}
	if session.User == nil || session.User.ID != "user-1" {
		t.Errorf("User = %+v", session.User)
	}
}

func TestHTTPAPI_RefreshAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		json.Unmarshal(body, &req)
		if req["refresh_token"] != "old-refresh" {
			t.Errorf("refresh_token = %v", req["refresh_token"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "new-refresh",
		})
	}))
	defer server.Close()

	api := NewHTTPAPI(server.URL)
	session, err := api.RefreshAccessToken(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("RefreshAccessToken() error = %v", err)
	}
	if session.AccessToken != "new-access" || session.RefreshToken != "new-refresh" {
		t.Errorf("session = %+v", session)
	}
}

func TestHTTPAPI_SignUpDualShape(t *testing.T) {
	t.Run("session when auto-confirm enabled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "at",
				"token_type":   "bearer",
				"expires_in":   3600,
				"user":         map[string]any{"id": "user-1"},
			})
		}))
		defer server.Close()

		api := NewHTTPAPI(server.URL)
		result, err := api.SignUpWithEmail(context.Background(), "me@example.com", "secret", SignUpOptions{})
		if err != nil {
			t.Fatalf("SignUpWithEmail() error = %v", err)
		}
		if !result.IsSession() {
			t.Fatalf("result = %+v, want session variant", result)
		}
	})

	t.Run("user when confirmation pending", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"id":    "user-1",
				"email": "me@example.com",
			})
		}))
		defer server.Close()

		api := NewHTTPAPI(server.URL)
		result, err := api.SignUpWithEmail(context.Background(), "me@example.com", "secret", SignUpOptions{})
		if err != nil {
			t.Fatalf("SignUpWithEmail() error = %v", err)
		}
		if result.IsSession() {
			t.Fatalf("result = %+v, want user variant", result)
		}
		if result.User.Email != "me@example.com" {
			t.Errorf("User = %+v", result.User)
		}
	})
}

func TestHTTPAPI_ErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "msg has top priority", body: `{"msg":"from msg","message":"from message","error":"from error"}`, want: "from msg"},
		{name: "message next", body: `{"message":"from message","error":"from error"}`, want: "from message"},
		{name: "error next", body: `{"error":"from error"}`, want: "from error"},
		{name: "raw body fallback", body: `service unavailable`, want: "service unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			api := NewHTTPAPI(server.URL)
			_, err := api.SignInWithEmail(context.Background(), "me@example.com", "wrong")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want APIError", err)
			}
			if apiErr.Status != http.StatusBadRequest {
				t.Errorf("Status = %d", apiErr.Status)
			}
			if apiErr.Message != tt.want {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.want)
			}
		})
	}
}

func TestHTTPAPI_BearerTokenOnUserEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer my-token" {
			t.Errorf("Authorization = %q", got)
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/user":
			json.NewEncoder(w).Encode(map[string]any{"id": "user-1"})
		case r.Method == http.MethodPut && r.URL.Path == "/user":
			json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "new@example.com"})
		case r.Method == http.MethodPost && r.URL.Path == "/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	api := NewHTTPAPI(server.URL)

	if _, err := api.GetUser(context.Background(), "my-token"); err != nil {
		t.Errorf("GetUser() error = %v", err)
	}
	if _, err := api.UpdateUser(context.Background(), "my-token", UserAttributes{Email: "new@example.com"}); err != nil {
		t.Errorf("UpdateUser() error = %v", err)
	}
	if err := api.SignOut(context.Background(), "my-token"); err != nil {
		t.Errorf("SignOut() error = %v", err)
	}
}

func TestHTTPAPI_DefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Apikey"); got != "anon-key" {
			t.Errorf("apikey header = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	api := NewHTTPAPI(server.URL, WithAPIHeaders(map[string]string{"apikey": "anon-key"}))
	if err := api.SendMobileOTP(context.Background(), "+15550100"); err != nil {
		t.Errorf("SendMobileOTP() error = %v", err)
	}
}

func TestHTTPAPI_GetURLForProvider(t *testing.T) {
	api := NewHTTPAPI("http://auth.test")

	raw, err := api.GetURLForProvider(ProviderGithub, ProviderSignInOptions{
		RedirectTo: "http://app.test/done",
		Scopes:     []string{"repo", "user"},
	})
	if err != nil {
		t.Fatalf("GetURLForProvider() error = %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/authorize" {
		t.Errorf("path = %q", u.Path)
	}
	q := u.Query()
	if q.Get("provider") != "github" {
		t.Errorf("provider = %q", q.Get("provider"))
	}
	if q.Get("redirect_to") != "http://app.test/done" {
		t.Errorf("redirect_to = %q", q.Get("redirect_to"))
	}
	if q.Get("scopes") != "repo user" {
		t.Errorf("scopes = %q", q.Get("scopes"))
	}

	if _, err := api.GetURLForProvider("", ProviderSignInOptions{}); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("empty provider error = %v, want ErrInvalidArguments", err)
	}
}

func TestHTTPAPI_MagicLinkRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/magiclink" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("redirect_to"); got != "http://app.test/landing" {
			t.Errorf("redirect_to = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "me@example.com") {
			t.Errorf("body = %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	api := NewHTTPAPI(server.URL)
	if err := api.SendMagicLinkEmail(context.Background(), "me@example.com", "http://app.test/landing"); err != nil {
		t.Errorf("SendMagicLinkEmail() error = %v", err)
	}
}
