package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
)

// DefaultSessionCookie names the cookie carrying the session id.
const DefaultSessionCookie = "radiotx_session"

// SessionStore persists session data by id.
type SessionStore interface {
	Load(id string) (map[string]string, error)
	Save(id string, data map[string]string) error
}

// RequestSession is the caller's session for the lifetime of one request.
type RequestSession struct {
	ID   string
	Data services.Session
}

type sessionKey struct{}

// SessionFrom returns the session attached by [Sessions], or nil.
func SessionFrom(ctx context.Context) *RequestSession {
	s, _ := ctx.Value(sessionKey{}).(*RequestSession)
	return s
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *RequestSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs method, path, status and duration of every request.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			kv := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start)}
			if rec.status >= http.StatusInternalServerError {
				logger.Error("request", kv...)
				return
			}
			logger.Info("request", kv...)
		})
	}
}

// Recover turns a handler panic into a 500 error response.
func Recover(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panicked", "path", r.URL.Path, "panic", v)
					RespondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Internal error: %v", v))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Sessions loads the session named by cookie, issuing a new id when the cookie is absent.
func Sessions(store SessionStore, cookie string, logger *log.Logger) Middleware {
	if cookie == "" {
		cookie = DefaultSessionCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
				id = c.Value
			} else {
				id = shared.GenerateID()
				http.SetCookie(w, &http.Cookie{
					Name:     cookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			data, err := store.Load(id)
			if err != nil {
				logger.Error("failed to load session", "session_id", id, "error", err)
				data = map[string]string{}
			}

			ctx := WithSession(r.Context(), &RequestSession{ID: id, Data: services.Session(data)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
