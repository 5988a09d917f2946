package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"learning-diary/internal/models"
)

type authService interface {
	SignInAnonymously(ctx context.Context) (*models.SignInResponse, error)
	SignInWithCustomToken(ctx context.Context, token string) (*models.SignInResponse, error)
}

type AuthHandler struct {
	authService authService
}

func NewAuthHandler(authService authService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Anonymous(w http.ResponseWriter, r *http.Request) {
	resp, err := h.authService.SignInAnonymously(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) CustomToken(w http.ResponseWriter, r *http.Request) {
	var req models.CustomTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	resp, err := h.authService.SignInWithCustomToken(r.Context(), req.Token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
