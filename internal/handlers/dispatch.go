package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"learning-diary/internal/middleware"
	"learning-diary/internal/models"
)

type diarySender interface {
	Send(ctx context.Context, studentID, content string) error
}

type dailyLogReader interface {
	Key(userID, date string) models.DocKey
	Get(ctx context.Context, key models.DocKey) (*models.DailyRecord, error)
}

type DispatchHandler struct {
	sender diarySender
	logs   dailyLogReader
	now    func() time.Time
}

func NewDispatchHandler(sender diarySender, logs dailyLogReader) *DispatchHandler {
	return &DispatchHandler{sender: sender, logs: logs, now: time.Now}
}

// Dispatch forwards a diary to the teacher. Without explicit content the
// stored document for the requested date is flattened and sent.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req models.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.StudentID) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", models.MsgNoStudentName,
			map[string]string{"studentId": "Student name is required"}, r))
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		date, err := models.ParseDate(req.Date, h.now())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid date", map[string]string{"date": err.Error()}, r))
			return
		}
		rec, err := h.logs.Get(r.Context(), h.logs.Key(middleware.GetUserID(r.Context()), date))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		content = models.FlattenDiary(rec)
	}

	if err := h.sender.Send(r.Context(), req.StudentID, content); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.DispatchResponse{Message: models.MsgDispatchOK})
}
