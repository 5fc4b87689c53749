package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tomatoService/internal/auth"
)

// AuthHandler handles token requests
type AuthHandler struct {
	auth *auth.Auth
}

// NewAuthHandler creates a new auth handler. a may be nil when auth is disabled.
func NewAuthHandler(a *auth.Auth) *AuthHandler {
	return &AuthHandler{auth: a}
}

type tokenRequest struct {
	Passphrase string `json:"passphrase" validate:"required,max=256"`
}

// IssueToken exchanges the owner passphrase for a bearer token
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeErrorResponse(w, http.StatusNotFound, "Auth disabled", "Token auth is not configured")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", "Failed to parse request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Validation error", validationMessage(err))
		return
	}

	token, err := h.auth.Login(req.Passphrase)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeErrorResponse(w, http.StatusUnauthorized, "Authentication failed", "Invalid passphrase")
			return
		}
		log.Printf("Failed to generate JWT: %v", err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to generate token", "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, token)
}
