package glean

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestSession(t *testing.T, origin string, opts SessionOptions) *Session {
	t.Helper()
	opts.Origin = StaticOrigin(origin)
	session, err := NewSession(opts)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	return session
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestSession_SingleRefreshServesConcurrentUnauthorized(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	var retriedWithRotated atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/feeds":
			if r.Header.Get("Authorization") == "Bearer A2" {
				retriedWithRotated.Add(1)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`[]`))
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		case "/api/auth/refresh":
			refreshCalls.Add(1)
			var body struct {
				RefreshToken string `json:"refresh_token"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.RefreshToken != "R1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			// Hold the response open briefly so the other callers pile onto
			// the same in-flight refresh.
			time.Sleep(50 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"A2","refresh_token":"R2"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	if err := tokens.Save(TokenPair{AccessToken: "A1", RefreshToken: "R1"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	client := NewClient(newTestSession(t, server.URL, SessionOptions{Tokens: tokens}))

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.ListSubscriptions(context.Background(), nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d returned error: %v", i, err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := retriedWithRotated.Load(); got != callers {
		t.Fatalf("retries with rotated token = %d, want %d", got, callers)
	}

	pair, err := tokens.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if pair.AccessToken != "A2" || pair.RefreshToken != "R2" {
		t.Fatalf("stored tokens = %+v, want rotated pair A2/R2", pair)
	}
}

func TestSession_RefreshFailureRejectsAllAndClearsOnce(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	var expired atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/feeds":
			w.WriteHeader(http.StatusUnauthorized)
		case "/api/auth/refresh":
			refreshCalls.Add(1)
			time.Sleep(50 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"refresh token revoked"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	session := newTestSession(t, server.URL, SessionOptions{
		Tokens:           tokens,
		OnSessionExpired: func() { expired.Add(1) },
	})
	client := NewClient(session)

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.ListSubscriptions(context.Background(), nil)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("caller %d error = %v, want ErrSessionExpired", i, err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := expired.Load(); got != 1 {
		t.Fatalf("session expired callbacks = %d, want 1", got)
	}
	pair, _ := tokens.Load()
	if !pair.Empty() {
		t.Fatalf("stored tokens = %+v, want cleared", pair)
	}
}

func TestSession_SecondUnauthorizedSurfacesWithoutSecondRefresh(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	var expired atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/feeds":
			// Rejects even the rotated token.
			w.WriteHeader(http.StatusUnauthorized)
		case "/api/auth/refresh":
			refreshCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"A2","refresh_token":"R2"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	session := newTestSession(t, server.URL, SessionOptions{
		Tokens:           tokens,
		OnSessionExpired: func() { expired.Add(1) },
	})

	err := session.Get(context.Background(), "/feeds", nil, nil)
	if !IsUnauthorized(err) {
		t.Fatalf("error = %v, want a 401 APIError", err)
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want the raw 401 rather than a terminal session error", err)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", got)
	}
	if got := expired.Load(); got != 0 {
		t.Fatalf("session expired callbacks = %d, want 0", got)
	}

	// The rotated pair survives; only the one request failed.
	pair, _ := tokens.Load()
	if pair.AccessToken != "A2" || pair.RefreshToken != "R2" {
		t.Fatalf("stored tokens = %+v, want rotated pair", pair)
	}
}

func TestSession_NoStoredTokenSendsUnauthenticated(t *testing.T) {
	t.Parallel()

	var sawAuthHeader atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			sawAuthHeader.Store(true)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	session := newTestSession(t, server.URL, SessionOptions{})
	var dest []Subscription
	if err := session.Get(context.Background(), "/feeds", nil, &dest); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if sawAuthHeader.Load() {
		t.Fatal("request carried an Authorization header with no stored token")
	}
}

func TestSession_MissingRefreshTokenIsTerminal(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	var expired atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(TokenPair{AccessToken: "A1"})
	session := newTestSession(t, server.URL, SessionOptions{
		Tokens:           tokens,
		OnSessionExpired: func() { expired.Add(1) },
	})

	err := session.Get(context.Background(), "/feeds", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("error = %v, want ErrSessionExpired", err)
	}
	if got := refreshCalls.Load(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0 (no refresh token stored)", got)
	}
	if got := expired.Load(); got != 1 {
		t.Fatalf("session expired callbacks = %d, want 1", got)
	}
	pair, _ := tokens.Load()
	if !pair.Empty() {
		t.Fatalf("stored tokens = %+v, want cleared", pair)
	}
}

func TestSession_RejectsInvalidOriginBeforeDialing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		origin string
	}{
		{"file scheme", "file:///etc/glean"},
		{"ftp scheme", "ftp://feeds.example.com"},
		{"empty", "   "},
		{"missing host", "http://"},
		{"garbage", "::not-a-url"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var dialed atomic.Bool
			session, err := NewSession(SessionOptions{
				Origin: StaticOrigin(tc.origin),
				HTTPClient: &http.Client{
					Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
						dialed.Store(true)
						return nil, errors.New("unexpected network call")
					}),
				},
			})
			if err != nil {
				t.Fatalf("NewSession returned error: %v", err)
			}

			err = session.Get(context.Background(), "/feeds", nil, nil)
			if !errors.Is(err, ErrInvalidOrigin) {
				t.Fatalf("error = %v, want ErrInvalidOrigin", err)
			}
			if dialed.Load() {
				t.Fatal("network call attempted despite invalid origin")
			}
		})
	}
}

func TestSession_OriginResolvedOnceAndRetriedAfterFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	var calls atomic.Int32
	resolver := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("shell not ready")
		}
		return server.URL, nil
	}
	session, err := NewSession(SessionOptions{Origin: resolver})
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	// First request fails while the resolver is unavailable; nothing cached.
	if err := session.Get(context.Background(), "/feeds", nil, nil); err == nil {
		t.Fatal("Get returned nil error, want resolver failure")
	}

	// Next request resolves, and the result is cached for later requests.
	for i := 0; i < 2; i++ {
		if err := session.Get(context.Background(), "/feeds", nil, nil); err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("resolver calls = %d, want 2 (one failure, one cached success)", got)
	}
}

func TestSession_RejectedLoginClearsStaleCredentials(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	var expired atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad credentials"}`))
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(TokenPair{AccessToken: "stale", RefreshToken: "stale"})
	session := newTestSession(t, server.URL, SessionOptions{
		Tokens:           tokens,
		OnSessionExpired: func() { expired.Add(1) },
	})
	client := NewClient(session)

	_, err := client.Login(context.Background(), "user@example.com", "wrong")
	if !IsUnauthorized(err) {
		t.Fatalf("error = %v, want 401 APIError", err)
	}
	if got := refreshCalls.Load(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0 (login failures never refresh)", got)
	}
	if got := expired.Load(); got != 1 {
		t.Fatalf("session expired callbacks = %d, want 1", got)
	}
	pair, _ := tokens.Load()
	if !pair.Empty() {
		t.Fatalf("stored tokens = %+v, want cleared", pair)
	}
}

func TestSession_NonAuthErrorsPassThrough(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"database down"}`))
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(TokenPair{AccessToken: "A1", RefreshToken: "R1"})
	session := newTestSession(t, server.URL, SessionOptions{Tokens: tokens})

	err := session.Get(context.Background(), "/feeds", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("error = %v, want 500 APIError", err)
	}
	if apiErr.Detail != "database down" {
		t.Fatalf("detail = %q, want %q", apiErr.Detail, "database down")
	}
	if got := refreshCalls.Load(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0 (only 401 triggers recovery)", got)
	}
	pair, _ := tokens.Load()
	if pair.AccessToken != "A1" {
		t.Fatalf("stored tokens = %+v, want untouched", pair)
	}
}

func signAccessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"type": "access",
		"exp":  exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSession_RefreshIfExpiringRotatesNearExpiry(t *testing.T) {
	t.Parallel()

	var refreshCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/refresh" {
			http.NotFound(w, r)
			return
		}
		refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"A2","refresh_token":"R2"}`))
	}))
	t.Cleanup(server.Close)

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(TokenPair{
		AccessToken:  signAccessToken(t, time.Now().Add(30*time.Second)),
		RefreshToken: "R1",
	})
	session := newTestSession(t, server.URL, SessionOptions{Tokens: tokens})

	if err := session.RefreshIfExpiring(context.Background(), 2*time.Minute); err != nil {
		t.Fatalf("RefreshIfExpiring returned error: %v", err)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	pair, _ := tokens.Load()
	if pair.AccessToken != "A2" || pair.RefreshToken != "R2" {
		t.Fatalf("pair = %+v, want rotated", pair)
	}

	// The rotated token is opaque in this exchange, so a second call has
	// nothing to decide on and stays off the network.
	if err := session.RefreshIfExpiring(context.Background(), 2*time.Minute); err != nil {
		t.Fatalf("second RefreshIfExpiring returned error: %v", err)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want still 1", got)
	}
}

func TestSession_RefreshIfExpiringLeavesFreshTokensAlone(t *testing.T) {
	t.Parallel()

	tripwire := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Errorf("unexpected request to %s", r.URL)
		return nil, errors.New("no network expected")
	})}

	fresh := &MemoryTokenStore{}
	_ = fresh.Save(TokenPair{
		AccessToken:  signAccessToken(t, time.Now().Add(time.Hour)),
		RefreshToken: "R1",
	})
	session := newTestSession(t, "http://localhost:1", SessionOptions{Tokens: fresh, HTTPClient: tripwire})
	if err := session.RefreshIfExpiring(context.Background(), 2*time.Minute); err != nil {
		t.Fatalf("fresh token: %v", err)
	}

	// An access-only pair (admin sessions) has nothing to rotate with; the
	// eventual 401 path decides what happens, not the proactive check.
	accessOnly := &MemoryTokenStore{}
	_ = accessOnly.Save(TokenPair{AccessToken: signAccessToken(t, time.Now().Add(-time.Minute))})
	session = newTestSession(t, "http://localhost:1", SessionOptions{Tokens: accessOnly, HTTPClient: tripwire})
	if err := session.RefreshIfExpiring(context.Background(), 2*time.Minute); err != nil {
		t.Fatalf("access-only pair: %v", err)
	}
	if pair, _ := accessOnly.Load(); pair.Empty() {
		t.Fatal("access-only pair cleared, want left for the request path to handle")
	}
}
