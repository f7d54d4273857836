package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domain "forum/backend/internal/domain/auth"
	"forum/backend/internal/infrastructure/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func issue(t *testing.T, ttl time.Duration) string {
	t.Helper()
	mgr := token.NewJWTManager("client-secret", time.Hour, "forum").WithClock(func() time.Time { return fixedNow })
	tok, err := mgr.Issue(domain.Claims{SubjectID: 7, Identifier: "ana@example.com", Role: domain.RoleInstructor}, ttl)
	require.NoError(t, err)
	return tok
}

func seeded(t *testing.T, tok string) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Save(Session{Token: tok, Profile: &domain.Profile{ID: 7, Email: "ana@example.com"}}))
	return store
}

func TestDo_AttachesFreshBearerEachCall(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	store := seeded(t, "first")
	gw := New(srv.URL, store)

	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/api/x", nil, nil))
	require.NoError(t, store.Save(Session{Token: "second"}))
	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/api/x", nil, nil))
	require.NoError(t, store.Clear())
	require.NoError(t, gw.Do(context.Background(), http.MethodGet, "/api/x", nil, nil))

	assert.Equal(t, []string{"Bearer first", "Bearer second", ""}, seen)
}

func TestDo_AuthFailureClearsSessionAndNotifies(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"success":false,"code":"TOKEN_EXPIRED","message":"token expired"}`))
			}))
			defer srv.Close()

			fired := make(chan struct{})
			store := seeded(t, "tok")
			gw := New(srv.URL, store, WithAuthFailureHandler(func() { close(fired) }, 10*time.Millisecond))

			err := gw.Do(context.Background(), http.MethodGet, "/api/users", nil, nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, status, apiErr.Status)
			assert.Equal(t, "TOKEN_EXPIRED", apiErr.Code)
			assert.Equal(t, "token expired", apiErr.Message)
			assert.True(t, apiErr.AuthFailure())

			session, _ := store.Load()
			assert.Empty(t, session.Token)
			assert.Nil(t, session.Profile)

			select {
			case <-fired:
			case <-time.After(2 * time.Second):
				t.Fatal("auth failure handler did not run")
			}
		})
	}
}

func TestDo_NotFoundKeepsSession(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var calls atomic.Int32
	store := seeded(t, "tok")
	gw := New(srv.URL, store, WithAuthFailureHandler(func() { calls.Add(1) }, 0))

	err := gw.Do(context.Background(), http.MethodGet, "/missing", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound)
	assert.False(t, apiErr.AuthFailure())

	session, _ := store.Load()
	assert.Equal(t, "tok", session.Token)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestDo_ServerErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := seeded(t, "tok")
	err := New(srv.URL, store).Do(context.Background(), http.MethodGet, "/api/x", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.EqualValues(t, 1, hits.Load())

	session, _ := store.Load()
	assert.Equal(t, "tok", session.Token)
}

func TestPostMessage_FallsBackToAlternatePath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/foros/4/mensaje" {
			http.NotFound(w, r)
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hola", body["mensaje"])
		_, _ = w.Write([]byte(`{"id":99}`))
	}))
	defer srv.Close()

	var out struct {
		ID int `json:"id"`
	}
	gw := New(srv.URL, seeded(t, "tok"))
	require.NoError(t, gw.PostMessage(context.Background(), 4, "hola", &out))
	assert.Equal(t, 99, out.ID)
	assert.Equal(t, []string{"/api/foros/4/mensaje", "/api/foros/foro/4/mensaje"}, paths)
}

func TestMessages_BothPathsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := New(srv.URL, seeded(t, "tok")).Messages(context.Background(), 4, nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound)
	assert.Contains(t, err.Error(), "/api/foros/foro/4/mensajes")
}

func TestFallback_StopsOnRejectedSession(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"code":"TOKEN_EXPIRED","message":"token expired"}`))
	}))
	defer srv.Close()

	var calls atomic.Int32
	store := seeded(t, "tok")
	gw := New(srv.URL, store, WithAuthFailureHandler(func() { calls.Add(1) }, time.Millisecond))

	err := gw.Messages(context.Background(), 4, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.AuthFailure())

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	mu.Lock()
	assert.Equal(t, []string{"/api/foros/4/mensajes"}, paths)
	mu.Unlock()

	session, _ := store.Load()
	assert.Empty(t, session.Token)
}

func TestIsAuthenticated(t *testing.T) {
	clock := func() time.Time { return fixedNow }

	t.Run("valid token and profile", func(t *testing.T) {
		gw := New("http://unused", seeded(t, issue(t, time.Hour)), WithClock(clock))
		assert.True(t, gw.IsAuthenticated())
	})

	t.Run("token inside the expiry margin clears session", func(t *testing.T) {
		store := seeded(t, issue(t, 30*time.Second))
		gw := New("http://unused", store, WithClock(clock))
		assert.False(t, gw.IsAuthenticated())
		session, _ := store.Load()
		assert.Empty(t, session.Token)
	})

	t.Run("garbage token clears session", func(t *testing.T) {
		store := seeded(t, "not-a-jwt")
		gw := New("http://unused", store, WithClock(clock))
		assert.False(t, gw.IsAuthenticated())
		session, _ := store.Load()
		assert.Empty(t, session.Token)
	})

	t.Run("token without profile", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(Session{Token: issue(t, time.Hour)}))
		assert.False(t, New("http://unused", store, WithClock(clock)).IsAuthenticated())
	})
}

func TestTokenInfo(t *testing.T) {
	gw := New("http://unused", seeded(t, issue(t, 90*time.Minute)), WithClock(func() time.Time { return fixedNow }))

	info, err := gw.TokenInfo()
	require.NoError(t, err)
	assert.EqualValues(t, 7, info.SubjectID)
	assert.Equal(t, "ana@example.com", info.Identifier)
	assert.Equal(t, domain.RoleInstructor, info.Role)
	assert.Equal(t, 90, info.MinutesRemaining)
	assert.True(t, info.ExpiresAt.Equal(fixedNow.Add(90*time.Minute)))

	_, err = New("http://unused", NewMemoryStore()).TokenInfo()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLoginAndLogout(t *testing.T) {
	tok := issue(t, time.Hour)
	var logoutAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ana@example.com", body["identifier"])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"token":   tok,
				"profile": map[string]any{"id": 7, "email": "ana@example.com", "role": 2},
			})
		case "/api/auth/logout":
			logoutAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"success":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := NewMemoryStore()
	gw := New(srv.URL, store)

	profile, err := gw.Login(context.Background(), "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleInstructor, profile.Role)

	session, _ := store.Load()
	assert.Equal(t, tok, session.Token)
	require.NotNil(t, session.Profile)

	require.NoError(t, gw.Logout(context.Background()))
	assert.Equal(t, "Bearer "+tok, logoutAuth)
	session, _ = store.Load()
	assert.Empty(t, session.Token)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	empty, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, empty.Token)

	want := Session{Token: "abc", Profile: &domain.Profile{ID: 3, Email: "x@example.com", Role: domain.RoleMember}}
	require.NoError(t, store.Save(want))

	got, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, got.Token)
}
