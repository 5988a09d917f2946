package handlers

import (
	"net/http"

	"learning-diary/internal/features"
	"learning-diary/internal/models"
)

type featureInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type referenceResponse struct {
	models.ReferenceData
	Features []featureInfo `json:"features"`
}

// Reference serves the fixed checklist, emotions and AI feature list.
func Reference(w http.ResponseWriter, r *http.Request) {
	resp := referenceResponse{ReferenceData: models.Reference()}
	for _, f := range features.All() {
		resp.Features = append(resp.Features, featureInfo{ID: string(f.ID), Label: f.Label})
	}
	writeJSON(w, http.StatusOK, resp)
}
