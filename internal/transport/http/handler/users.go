package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-blog-auth/internal/application/auth"
	"github.com/go-blog-auth/internal/domain"
	"github.com/go-blog-auth/internal/pkg/validate"
)

// UserHandler handles account registration.
type UserHandler struct {
	svc auth.Service
}

func NewUserHandler(svc auth.Service) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserEnvelope{User: u, Message: "confirmation email sent"})
}
