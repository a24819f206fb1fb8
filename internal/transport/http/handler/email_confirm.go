package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-blog-auth/internal/application/auth"
	"github.com/go-blog-auth/internal/application/session"
	"github.com/go-blog-auth/internal/domain"
)

// EmailConfirmHandler handles the email confirmation flow.
type EmailConfirmHandler struct {
	svc auth.Service
}

func NewEmailConfirmHandler(svc auth.Service) *EmailConfirmHandler {
	return &EmailConfirmHandler{svc: svc}
}

// Request issues a fresh verification token for the signed-in user and emails
// the confirmation link.
func (h *EmailConfirmHandler) Request(w http.ResponseWriter, r *http.Request) {
	identity, err := session.RequireIdentity(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.svc.RequestEmailConfirmation(r.Context(), identity.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "confirmation email sent"})
}

// Confirm redeems a verification token. The token may arrive in the JSON body
// or as a query parameter (the form emailed links use). When the confirmed
// account belongs to the caller's live session, the session identity is
// refreshed in place so the verified flag is visible immediately.
func (h *EmailConfirmHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token = body.Token
		}
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	u, err := h.svc.ConfirmEmail(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if identity, ok := session.Identity(r.Context()); ok && identity.UserID == u.UserID {
		session.Login(r.Context(), domain.IdentityOf(u))
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email confirmed"})
}
