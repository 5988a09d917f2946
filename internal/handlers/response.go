package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"learning-diary/internal/features"
	"learning-diary/internal/logger"
	"learning-diary/internal/models"
	"learning-diary/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *services.ValidationError
		notFoundErr     *services.NotFoundError
		unauthorizedErr *services.UnauthorizedError
		preconditionErr *features.PreconditionError
		apiErr          *services.APIError
		generationErr   *services.GenerationError
		dispatchErr     *services.DispatchError
		persistErr      *services.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &preconditionErr):
		writeJSON(w, http.StatusBadRequest, errorResp("PRECONDITION_FAILED", preconditionErr.Message, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.As(err, &unauthorizedErr):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthorizedErr.Message, r))
	case errors.Is(err, services.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_NOT_CONFIGURED", models.MsgAINotReady, r))
	case errors.As(err, &apiErr):
		logger.L.Warnw("generation API failed", "status", apiErr.StatusCode, "body", apiErr.Body)
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", models.MsgAIFailed, r))
	case errors.As(err, &generationErr):
		logger.L.Warnw("generation failed", "error", generationErr.Err)
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", models.MsgAIFailed, r))
	case errors.As(err, &dispatchErr):
		logger.L.Warnw("diary dispatch failed", "status", dispatchErr.StatusCode, "error", dispatchErr.Err)
		writeJSON(w, http.StatusBadGateway, errorResp("DISPATCH_FAILED", models.MsgDispatchFailed, r))
	case errors.As(err, &persistErr):
		logger.L.Errorw("failed to persist AI result", "error", persistErr.Err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", models.MsgSaveFailed, r))
	default:
		logger.L.Errorw("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
