package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domain "forum/backend/internal/domain/auth"
	"forum/backend/internal/usecase/access"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// requestLogger logs one line per request. Headers are never logged.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		s.log.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", recorder.size,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// gate adapts an access gate to chi middleware. On allow the verified claims
// are stored in the request context; on deny the error body is written.
func (s *Server) gate(g access.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gctx := access.NewContext(r.Header.Get("Authorization"), routeParams(r)).WithRequest(r.Context())
			decision := g(gctx)
			if !decision.Allowed() {
				level := slog.LevelDebug
				if decision.Err.Err != nil {
					level = slog.LevelWarn
				}
				s.log.Log(r.Context(), level, "access denied",
					"path", r.URL.Path,
					"code", decision.Err.Kind,
					"error", decision.Err.Err,
					"request_id", middleware.GetReqID(r.Context()),
				)
				writeAuthError(w, decision.Err)
				return
			}
			ctx := r.Context()
			if claims, ok := decision.Context.Claims(); ok {
				ctx = context.WithValue(ctx, ctxKeyClaims{}, claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func routeParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

type ctxKeyClaims struct{}

func claimsFromContext(ctx context.Context) (domain.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims{}).(domain.Claims)
	return claims, ok
}

// bearerToken returns the raw token of a request that already passed a token gate.
func bearerToken(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}
