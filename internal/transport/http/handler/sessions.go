package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-blog-auth/internal/application/auth"
	"github.com/go-blog-auth/internal/application/session"
	"github.com/go-blog-auth/internal/domain"
	"github.com/go-blog-auth/internal/pkg/validate"
)

// SessionHandler handles sign-in, sign-out, and current-identity endpoints.
// It never touches session attributes directly; establishing and clearing the
// session goes through the session package.
type SessionHandler struct {
	svc auth.Service
}

func NewSessionHandler(svc auth.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.svc.SignIn(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	identity := domain.IdentityOf(u)
	session.Login(r.Context(), identity)
	writeJSON(w, http.StatusOK, IdentityEnvelope{Identity: &identity})
}

// SignOut clears the session. Signing out without a session is not an error;
// the end state is the same either way.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	session.Logout(r.Context())
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "signed out"})
}

func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	identity, err := session.RequireIdentity(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IdentityEnvelope{Identity: identity})
}
