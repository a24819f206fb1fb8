package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-blog-auth/internal/config"
	"github.com/go-blog-auth/internal/domain"
	redisinfra "github.com/go-blog-auth/internal/infrastructure/redis"
	"github.com/go-blog-auth/internal/transport/http/handler"
)

// memUserRepo is an in-memory stand-in for the PostgreSQL user store.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[int]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, name, email, passwordHash string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return 0, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
	}
	id := m.nextID
	m.nextID++
	m.users[id] = &domain.User{UserID: id, Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	return id, nil
}

func (m *memUserRepo) Get(_ context.Context, userID int) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) MarkEmailVerified(_ context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsEmailVerified = true
	return nil
}

// captureMailer records sent mail instead of talking SMTP.
type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureMailer) SendEmail(_, _, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, body)
	return nil
}

func (c *captureMailer) lastBody(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no email captured")
	return c.sent[len(c.sent)-1]
}

var tokenLinkRe = regexp.MustCompile(`token=([0-9a-f]{64})`)

func newTestServer(t *testing.T) (http.Handler, *memUserRepo, *captureMailer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		SessionCookieName: "session_id",
		SessionTTL:        time.Hour,
		VerificationTTL:   time.Hour,
		PublicBaseURL:     "http://localhost:3000",
		AllowedOrigins:    []string{"*"},
	}

	users := newMemUserRepo()
	mailer := &captureMailer{}
	deps := &Deps{
		SessionRepo:      redisinfra.NewSessionRepo(client, cfg.SessionTTL),
		UserRepo:         users,
		VerificationRepo: redisinfra.NewVerificationRepo(client),
		Mailer:           mailer,
	}
	return NewRouter(cfg, deps), users, mailer
}

func postJSON(t *testing.T, h http.Handler, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func getWithCookie(t *testing.T, h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func findSessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	return nil
}

func TestRouter_RegisterSignInConfirmSignOut(t *testing.T) {
	h, _, mailer := newTestServer(t)

	// Register.
	rr := postJSON(t, h, "/v1/users", map[string]string{
		"name": "alice", "email": "alice@example.com", "password": "secret-password",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Nil(t, findSessionCookie(rr), "registration does not sign the user in")

	// Sign in; a fresh session cookie is issued.
	rr = postJSON(t, h, "/v1/sessions/sign-in", map[string]string{
		"email": "alice@example.com", "password": "secret-password",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookie := findSessionCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// Current identity resolves through the cookie.
	rr = getWithCookie(t, h, "/v1/sessions", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var env handler.IdentityEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.Identity)
	assert.Equal(t, "alice@example.com", env.Identity.Email)
	assert.False(t, env.Identity.IsEmailVerified)

	// Confirm via the token from the registration email; the live session
	// picks up the verified flag.
	m := tokenLinkRe.FindStringSubmatch(mailer.lastBody(t))
	require.Len(t, m, 2, "confirmation link with token expected in email")
	rr = postJSON(t, h, "/v1/email-confirmations/confirm", map[string]string{"token": m[1]}, cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = getWithCookie(t, h, "/v1/sessions", cookie)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.NotNil(t, env.Identity)
	assert.True(t, env.Identity.IsEmailVerified)

	// Replay of the same token fails: it was consumed.
	rr = postJSON(t, h, "/v1/email-confirmations/confirm", map[string]string{"token": m[1]}, cookie)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Sign out clears the cookie.
	rr = postJSON(t, h, "/v1/sessions/sign-out", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := findSessionCookie(rr)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	// The old cookie no longer resolves.
	rr = getWithCookie(t, h, "/v1/sessions", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_SignInWrongPassword(t *testing.T) {
	h, users, _ := newTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = users.Create(context.Background(), "bob", "bob@example.com", string(hash))
	require.NoError(t, err)

	rr := postJSON(t, h, "/v1/sessions/sign-in", map[string]string{
		"email": "bob@example.com", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, findSessionCookie(rr))
}

func TestRouter_DuplicateRegistration(t *testing.T) {
	h, _, _ := newTestServer(t)

	body := map[string]string{"name": "alice", "email": "a@example.com", "password": "secret-password"}
	rr := postJSON(t, h, "/v1/users", body, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = postJSON(t, h, "/v1/users", body, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_ConfirmationRequiresSession(t *testing.T) {
	h, _, _ := newTestServer(t)

	rr := postJSON(t, h, "/v1/email-confirmations", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
