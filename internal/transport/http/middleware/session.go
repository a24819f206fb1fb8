package middleware

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/go-blog-auth/internal/application/session"
)

// SessionStore is the minimal interface the middleware requires from the
// session repository.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (map[string]any, error)
	Save(ctx context.Context, sessionID string, attrs map[string]any) error
	Delete(ctx context.Context, sessionID string) error
}

// Session resolves the session cookie on the way in and persists the diffed
// outcome on the way out. Per request the states are
// NoSession -> Loaded -> (Unchanged | Modified | Cleared):
//
//   - Cleared (initial non-empty, final empty): delete the store key and
//     expire the cookie.
//   - Modified (final non-empty and different): save under the existing or a
//     freshly generated session id and (re-)issue the cookie.
//   - Unchanged: no store write, no Set-Cookie header.
//
// Writing only on change keeps every read-only request from costing a store
// write. Two concurrent requests with the same cookie race load-mutate-save;
// the last completed writer wins, which is an accepted property of this
// session model, not something the middleware guards against.
type Session struct {
	store      SessionStore
	cookieName string
	ttl        time.Duration
}

func NewSession(store SessionStore, cookieName string, ttl time.Duration) *Session {
	return &Session{store: store, cookieName: cookieName, ttl: ttl}
}

func (m *Session) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
			sessionID = c.Value
		}

		attrs := map[string]any{}
		if sessionID != "" {
			var err error
			attrs, err = m.store.Load(r.Context(), sessionID)
			if err != nil {
				// An unreachable store must not silently log every user out.
				writeJSONError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}
		}

		st := session.NewState(attrs)
		initial := st.Snapshot()

		// The downstream chain writes into a buffer so the exit-phase store
		// write and cookie headers happen before anything reaches the client.
		buf := newBufferedResponse()
		next.ServeHTTP(buf, r.WithContext(session.WithState(r.Context(), st)))

		final := st.Attributes()
		switch {
		case len(initial) > 0 && len(final) == 0:
			if sessionID != "" {
				if err := m.store.Delete(r.Context(), sessionID); err != nil {
					writeJSONError(w, http.StatusServiceUnavailable, "session store unavailable")
					return
				}
			}
			m.clearCookie(w)

		case len(final) > 0 && !reflect.DeepEqual(initial, final):
			id := sessionID
			if id == "" {
				id = uuid.NewString()
			}
			if err := m.store.Save(r.Context(), id, final); err != nil {
				writeJSONError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}
			m.setCookie(w, id)
		}

		buf.flush(w)
	})
}

func (m *Session) setCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Session) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// bufferedResponse captures the downstream handler's response until the
// session exit phase has run.
type bufferedResponse struct {
	header http.Header
	body   []byte
	status int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: http.Header{}, status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.body = append(b.body, p...)
	return len(p), nil
}

func (b *bufferedResponse) WriteHeader(status int) {
	b.status = status
}

func (b *bufferedResponse) flush(w http.ResponseWriter) {
	for k, vs := range b.header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body)
}
