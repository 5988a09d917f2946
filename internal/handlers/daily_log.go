package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"learning-diary/internal/features"
	"learning-diary/internal/middleware"
	"learning-diary/internal/models"
)

type dailyLogStore interface {
	Key(userID, date string) models.DocKey
	Get(ctx context.Context, key models.DocKey) (*models.DailyRecord, error)
	MergeWrite(ctx context.Context, key models.DocKey, fields models.Fields) (*models.DailyRecord, error)
}

type featureRunner interface {
	Run(ctx context.Context, key models.DocKey, id features.ID, inputs *models.DailyRecord) (*models.FeatureResult, error)
}

type DailyLogHandler struct {
	logs     dailyLogStore
	features featureRunner
	now      func() time.Time
}

func NewDailyLogHandler(logs dailyLogStore, runner featureRunner) *DailyLogHandler {
	return &DailyLogHandler{logs: logs, features: runner, now: time.Now}
}

// docKey resolves the {date} URL param for the authenticated user. It writes
// the error response itself and returns false on failure.
func (h *DailyLogHandler) docKey(w http.ResponseWriter, r *http.Request) (models.DocKey, bool) {
	date, err := models.ParseDate(chi.URLParam(r, "date"), h.now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid date", map[string]string{"date": err.Error()}, r))
		return models.DocKey{}, false
	}
	return h.logs.Key(middleware.GetUserID(r.Context()), date), true
}

func (h *DailyLogHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.docKey(w, r)
	if !ok {
		return
	}

	rec, err := h.logs.Get(r.Context(), key)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No diary for this date yet", r))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Merge applies a partial write. JSON null deletes a field.
func (h *DailyLogHandler) Merge(w http.ResponseWriter, r *http.Request) {
	key, ok := h.docKey(w, r)
	if !ok {
		return
	}

	var fields models.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	rec, err := h.logs.MergeWrite(r.Context(), key, fields)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *DailyLogHandler) RunFeature(w http.ResponseWriter, r *http.Request) {
	key, ok := h.docKey(w, r)
	if !ok {
		return
	}

	var req models.FeatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	id := features.ID(chi.URLParam(r, "feature"))
	result, err := h.features.Run(r.Context(), key, id, req.Inputs)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	switch {
	case result.Status == string(features.StatusInsufficient):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("AI_INSUFFICIENT_INPUT", result.Message, r))
	case result.Status == string(features.StatusInvalid) && !result.Persisted:
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", result.Message, r))
	default:
		writeJSON(w, http.StatusOK, result)
	}
}
