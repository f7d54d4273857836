package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domain "forum/backend/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultRedirectDelay postpones the auth failure callback.
	DefaultRedirectDelay = time.Second
	// expiryMargin treats tokens this close to expiry as already expired.
	expiryMargin = 60 * time.Second
)

// ErrNotAuthenticated is returned when a call needs a session and none is stored.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a non-2xx response.
type APIError struct {
	Status   int
	Code     string
	Message  string
	NotFound bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// AuthFailure reports whether the server rejected the session.
func (e *APIError) AuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Gateway sends API requests with the stored bearer token.
type Gateway struct {
	baseURL       string
	http          *http.Client
	store         SessionStore
	onAuthFailure func()
	redirectDelay time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.http = c }
}

// WithAuthFailureHandler registers the callback run after the session is
// cleared on a 401 or 403, delayed by delay.
func WithAuthFailureHandler(fn func(), delay time.Duration) Option {
	return func(g *Gateway) {
		g.onAuthFailure = fn
		g.redirectDelay = delay
	}
}

// WithClock replaces the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// New creates a gateway for the API at baseURL.
func New(baseURL string, store SessionStore, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: 30 * time.Second},
		store:         store,
		redirectDelay: DefaultRedirectDelay,
		now:           time.Now,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do sends a request and decodes a 2xx JSON body into out (when non-nil).
// The token is read from the store immediately before sending.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	session, err := g.store.Load()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil && method != http.MethodGet {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = g.baseURL + path
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		switch {
		case apiErr.AuthFailure():
			g.log.WarnContext(ctx, "session rejected, clearing", "status", apiErr.Status, "code", apiErr.Code)
			g.clearSession()
			g.scheduleAuthFailure()
		case apiErr.NotFound:
			g.log.DebugContext(ctx, "route not found", "path", path)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// DoWithFallback tries primary and, on failure, alternate once. A rejected
// session is returned as is: the alternate would go out without a token.
func (g *Gateway) DoWithFallback(ctx context.Context, method, primary, alternate string, body, out any) error {
	err := g.Do(ctx, method, primary, body, out)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.AuthFailure() {
		return err
	}
	g.log.DebugContext(ctx, "primary path failed, trying alternate", "primary", primary, "alternate", alternate, "error", err)
	if err := g.Do(ctx, method, alternate, body, out); err != nil {
		return fmt.Errorf("both %s and %s failed: %w", primary, alternate, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		Status:   resp.StatusCode,
		NotFound: resp.StatusCode == http.StatusNotFound,
		Message:  http.StatusText(resp.StatusCode),
	}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err == nil {
		apiErr.Code = body.Code
		if body.Message != "" {
			apiErr.Message = body.Message
		} else if body.Error != "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

func (g *Gateway) clearSession() {
	if err := g.store.Clear(); err != nil {
		g.log.Warn("clear session failed", "error", err)
	}
}

func (g *Gateway) scheduleAuthFailure() {
	if g.onAuthFailure == nil {
		return
	}
	time.AfterFunc(g.redirectDelay, g.onAuthFailure)
}

type loginResponse struct {
	Token   string         `json:"token"`
	Profile domain.Profile `json:"profile"`
}

// Login authenticates and stores the token and profile.
func (g *Gateway) Login(ctx context.Context, identifier, secret string) (*domain.Profile, error) {
	var resp loginResponse
	err := g.Do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": identifier,
		"secret":     secret,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	if err := g.store.Save(Session{Token: resp.Token, Profile: &resp.Profile}); err != nil {
		return nil, err
	}
	return &resp.Profile, nil
}

// Logout notifies the server when a session exists and always clears it locally.
func (g *Gateway) Logout(ctx context.Context) error {
	session, err := g.store.Load()
	if err != nil {
		return err
	}
	if session.Token != "" {
		if err := g.Do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
			g.log.DebugContext(ctx, "server logout failed", "error", err)
		}
	}
	return g.store.Clear()
}

// Profile returns the stored profile, if any.
func (g *Gateway) Profile() (*domain.Profile, error) {
	session, err := g.store.Load()
	if err != nil {
		return nil, err
	}
	if session.Profile == nil {
		return nil, ErrNotAuthenticated
	}
	return session.Profile, nil
}

// IsAuthenticated requires a stored token and profile and a token that is
// more than a minute from expiry. Unreadable or expiring tokens clear the session.
func (g *Gateway) IsAuthenticated() bool {
	session, err := g.store.Load()
	if err != nil || session.Token == "" || session.Profile == nil {
		return false
	}
	info, err := inspect(session.Token, g.now())
	if err != nil || info.ExpiresAt.Sub(g.now()) < expiryMargin {
		g.clearSession()
		return false
	}
	return true
}

// TokenInfo summarises the stored token without verifying its signature.
type TokenInfo struct {
	SubjectID        int64
	Identifier       string
	Role             domain.Role
	ExpiresAt        time.Time
	MinutesRemaining int
}

// TokenInfo decodes the stored token.
func (g *Gateway) TokenInfo() (*TokenInfo, error) {
	session, err := g.store.Load()
	if err != nil {
		return nil, err
	}
	if session.Token == "" {
		return nil, ErrNotAuthenticated
	}
	return inspect(session.Token, g.now())
}

type unverifiedClaims struct {
	UserID   int64        `json:"uid"`
	LegacyID int64        `json:"id"`
	Email    string       `json:"email"`
	Role     *domain.Role `json:"role"`
	RoleID   *domain.Role `json:"role_id"`
	jwt.RegisteredClaims
}

// inspect decodes the payload only; the server remains the authority on validity.
func inspect(token string, now time.Time) (*TokenInfo, error) {
	if strings.Count(token, ".") != 2 {
		return nil, domain.ErrMalformedToken
	}
	var claims unverifiedClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, domain.ErrMalformedToken.WithCause(err)
	}
	if claims.ExpiresAt == nil {
		return nil, domain.ErrMalformedToken.WithMessage("token has no expiry")
	}

	info := &TokenInfo{
		SubjectID:  claims.UserID,
		Identifier: claims.Email,
		ExpiresAt:  claims.ExpiresAt.Time,
	}
	if info.SubjectID == 0 {
		info.SubjectID = claims.LegacyID
	}
	if claims.Role != nil && *claims.Role != domain.RoleNone {
		info.Role = *claims.Role
	} else if claims.RoleID != nil {
		info.Role = *claims.RoleID
	}
	if left := info.ExpiresAt.Sub(now); left > 0 {
		info.MinutesRemaining = int(left / time.Minute)
	}
	return info, nil
}

// Introspection mirrors the verify endpoint response.
type Introspection struct {
	Valid     bool           `json:"valid"`
	Profile   domain.Profile `json:"profile"`
	TokenInfo struct {
		ExpiresAt        time.Time `json:"expires_at"`
		MinutesRemaining int       `json:"minutes_remaining"`
		ExpiringSoon     bool      `json:"expiring_soon"`
	} `json:"token_info"`
}

// Verify asks the server to introspect the stored token.
func (g *Gateway) Verify(ctx context.Context) (*Introspection, error) {
	var out Introspection
	if err := g.Do(ctx, http.MethodGet, "/api/auth/verify", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostMessage publishes a message to a forum, falling back to the legacy path.
func (g *Gateway) PostMessage(ctx context.Context, forumID int64, content string, out any) error {
	return g.DoWithFallback(ctx, http.MethodPost,
		fmt.Sprintf("/api/foros/%d/mensaje", forumID),
		fmt.Sprintf("/api/foros/foro/%d/mensaje", forumID),
		map[string]string{"mensaje": content}, out)
}

// Messages lists the messages of a forum, falling back to the legacy path.
func (g *Gateway) Messages(ctx context.Context, forumID int64, out any) error {
	return g.DoWithFallback(ctx, http.MethodGet,
		fmt.Sprintf("/api/foros/%d/mensajes", forumID),
		fmt.Sprintf("/api/foros/foro/%d/mensajes", forumID),
		nil, out)
}
