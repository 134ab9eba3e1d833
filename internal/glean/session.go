package glean

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBasePath  = "/api"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "skim/0.1"
)

// OriginResolver reports the backend origin (scheme://host[:port]) the
// session should target. It may be invoked repeatedly; the session caches the
// first result that validates.
type OriginResolver func(ctx context.Context) (string, error)

// StaticOrigin returns a resolver that always reports origin.
func StaticOrigin(origin string) OriginResolver {
	return func(context.Context) (string, error) { return origin, nil }
}

// SessionOptions configure a Session.
type SessionOptions struct {
	// Origin resolves the backend origin. Required.
	Origin OriginResolver

	// BasePath is the API path prefix requests are joined under.
	// Defaults to "/api".
	BasePath string

	// Timeout bounds each individual HTTP request. Defaults to 30s.
	Timeout time.Duration

	// Tokens persists the session credentials. Defaults to an in-memory
	// store.
	Tokens TokenStore

	// OnSessionExpired is invoked after the session becomes terminally
	// unauthenticated. Stored tokens are already cleared when it runs.
	// Optional; typically switches the UI back to the login view.
	OnSessionExpired func()

	// Logger receives request and refresh events. Optional.
	Logger *zerolog.Logger

	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client

	// UserAgent overrides the User-Agent header.
	UserAgent string
}

// Session issues HTTP requests against the glean backend, attaching the
// stored bearer token and recovering from token expiry without surfacing it
// to callers unless recovery is impossible.
//
// At most one refresh is in flight per session at any time. Requests that hit
// a 401 while a refresh is running wait for that same refresh and retry with
// the token it produced; a request is retried at most once.
type Session struct {
	basePath  string
	resolver  OriginResolver
	tokens    TokenStore
	http      *http.Client
	userAgent string
	log       zerolog.Logger
	onExpired func()

	refresh  singleflight.Group
	expireMu sync.Mutex

	mu     sync.Mutex
	origin *url.URL
}

// NewSession builds a Session from opts.
func NewSession(opts SessionOptions) (*Session, error) {
	if opts.Origin == nil {
		return nil, fmt.Errorf("session requires an origin resolver")
	}

	basePath := strings.TrimSpace(opts.BasePath)
	if basePath == "" {
		basePath = defaultBasePath
	}
	basePath = "/" + strings.Trim(basePath, "/")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Session{
		basePath:  basePath,
		resolver:  opts.Origin,
		tokens:    tokens,
		http:      httpClient,
		userAgent: userAgent,
		log:       logger,
		onExpired: opts.OnSessionExpired,
	}, nil
}

// Tokens returns the currently stored token pair.
func (s *Session) Tokens() (TokenPair, error) {
	return s.tokens.Load()
}

// StoreTokens persists a freshly issued token pair (after login).
func (s *Session) StoreTokens(pair TokenPair) error {
	return s.tokens.Save(pair)
}

// Logout discards the stored credentials.
func (s *Session) Logout() error {
	return s.tokens.Clear()
}

// RefreshIfExpiring rotates the token pair when the access token's exp claim
// falls inside the window. The background poller calls it ahead of each fetch
// pass so a token expiring mid-pass does not cost every request a 401 round
// trip. Opaque tokens and sessions without a refresh token are left alone.
// Shares the session's single in-flight refresh with the 401 path.
func (s *Session) RefreshIfExpiring(ctx context.Context, window time.Duration) error {
	pair, err := s.tokens.Load()
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if pair.RefreshToken == "" {
		return nil
	}
	exp := pair.AccessExpiresAt()
	if exp.IsZero() || time.Until(exp) > window {
		return nil
	}
	_, err = s.refreshTokens(ctx, pair.AccessToken)
	return err
}

// Get issues a GET request and decodes the JSON response into dest.
// Pass a *[]byte dest to receive the raw body undecoded.
func (s *Session) Get(ctx context.Context, path string, query url.Values, dest any) error {
	return s.invoke(ctx, request{method: http.MethodGet, path: path, query: query}, dest)
}

// Post issues a POST request with an optional JSON body.
func (s *Session) Post(ctx context.Context, path string, body, dest any) error {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return s.invoke(ctx, req, dest)
}

// Patch issues a PATCH request with a JSON body.
func (s *Session) Patch(ctx context.Context, path string, body, dest any) error {
	req, err := jsonRequest(http.MethodPatch, path, body)
	if err != nil {
		return err
	}
	return s.invoke(ctx, req, dest)
}

// Delete issues a DELETE request.
func (s *Session) Delete(ctx context.Context, path string, dest any) error {
	return s.invoke(ctx, request{method: http.MethodDelete, path: path}, dest)
}

// request is a replayable description of one API call. The body is held as
// bytes so the call can be reissued after a token refresh.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func jsonRequest(method, path string, body any) (request, error) {
	req := request{method: method, path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return request{}, fmt.Errorf("encode request body: %w", err)
		}
		req.body = data
		req.contentType = "application/json"
	}
	return req, nil
}

// invoke runs the full request path: send with the stored token, then on a
// 401 run the recovery protocol and retry at most once.
func (s *Session) invoke(ctx context.Context, req request, dest any) error {
	pair, err := s.tokens.Load()
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}

	err = s.send(ctx, req, pair.AccessToken, dest)
	if !IsUnauthorized(err) {
		return err
	}

	// Rejected login and refresh calls are terminal: there is nothing left
	// to refresh with.
	if isAuthPath(req.path) {
		s.expire()
		return err
	}

	if current, loadErr := s.tokens.Load(); loadErr == nil {
		switch {
		case current.AccessToken != "" && current.AccessToken != pair.AccessToken:
			// Another request already rotated the tokens; reuse its result.
			return s.send(ctx, req, current.AccessToken, dest)
		case current.Empty() && !pair.Empty():
			// Tokens were cleared while this request was in flight.
			return fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
	}

	access, refreshErr := s.refreshTokens(ctx, pair.AccessToken)
	if refreshErr != nil {
		return refreshErr
	}

	// Retry once with the rotated token. A second 401 surfaces to the
	// caller rather than starting another refresh cycle.
	return s.send(ctx, req, access, dest)
}

func isAuthPath(path string) bool {
	switch path {
	case "/auth/login", "/auth/refresh", "/admin/auth/login":
		return true
	}
	return false
}

// refreshTokens exchanges the stored refresh token for a new pair. Concurrent
// callers share a single in-flight exchange; each receives the access token
// it produced. stale is the access token the failing request was sent with,
// so a refresh that already happened is not repeated.
func (s *Session) refreshTokens(ctx context.Context, stale string) (string, error) {
	v, err, _ := s.refresh.Do("refresh", func() (any, error) {
		pair, err := s.tokens.Load()
		if err != nil {
			return nil, fmt.Errorf("load tokens: %w", err)
		}
		if pair.AccessToken != "" && pair.AccessToken != stale {
			// Tokens rotated since the failing request went out.
			return pair.AccessToken, nil
		}
		if pair.RefreshToken == "" {
			s.expire()
			return nil, fmt.Errorf("%w: no refresh token stored", ErrSessionExpired)
		}

		req, err := jsonRequest(http.MethodPost, "/auth/refresh", map[string]string{
			"refresh_token": pair.RefreshToken,
		})
		if err != nil {
			return nil, err
		}

		var rotated TokenPair
		if err := s.send(ctx, req, "", &rotated); err != nil {
			s.expire()
			return nil, fmt.Errorf("%w: refresh rejected: %v", ErrSessionExpired, err)
		}
		if err := s.tokens.Save(rotated); err != nil {
			return nil, fmt.Errorf("save tokens: %w", err)
		}
		s.log.Debug().Msg("access token refreshed")
		return rotated.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// expire clears stored credentials and notifies the application once. The
// session stays usable for unauthenticated calls and a later login.
func (s *Session) expire() {
	s.expireMu.Lock()
	pair, err := s.tokens.Load()
	if err == nil && pair.Empty() {
		// Already cleared by a concurrent failure.
		s.expireMu.Unlock()
		return
	}
	if err := s.tokens.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("clear tokens")
	}
	s.expireMu.Unlock()

	s.log.Info().Msg("session expired")
	if s.onExpired != nil {
		s.onExpired()
	}
}

// send performs one HTTP round trip. token may be empty for unauthenticated
// requests.
func (s *Session) send(ctx context.Context, r request, token string, dest any) error {
	origin, err := s.resolveOrigin(ctx)
	if err != nil {
		return err
	}

	rel := &url.URL{Path: s.basePath + r.path}
	if r.query != nil {
		rel.RawQuery = r.query.Encode()
	}
	reqURL := origin.ResolveReference(rel)

	var body io.Reader
	if len(r.body) > 0 {
		body = bytes.NewReader(r.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	s.log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Msg("api request")

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if raw, ok := dest.(*[]byte); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// resolveOrigin returns the validated backend origin, calling the resolver
// on first use and caching the result for the session lifetime. Failures are
// not cached; every request re-resolves until one succeeds.
func (s *Session) resolveOrigin(ctx context.Context) (*url.URL, error) {
	s.mu.Lock()
	cached := s.origin
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	raw, err := s.resolver(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve backend origin: %w", err)
	}
	u, err := parseOrigin(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.origin = u
	s.mu.Unlock()
	return u, nil
}

func parseOrigin(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: origin is empty", ErrInvalidOrigin)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", ErrInvalidOrigin, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidOrigin, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidOrigin, raw)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Detail != "" {
			apiErr.Detail = payload.Detail
		}
	}
	return apiErr
}
