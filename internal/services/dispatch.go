package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type dispatchRequest struct {
	StudentID string `json:"studentId"`
	Content   string `json:"content"`
}

// DispatchService delivers flattened diaries to the teacher's collection
// endpoint.
type DispatchService struct {
	endpoint   string
	httpClient *http.Client
}

func NewDispatchService(endpoint string) *DispatchService {
	return &DispatchService{endpoint: endpoint, httpClient: &http.Client{}}
}

// Send posts one diary. Success is a 2xx reply; nothing is retried.
func (s *DispatchService) Send(ctx context.Context, studentID, content string) error {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return &ValidationError{Fields: map[string]string{"studentId": "Student name is required"}}
	}

	body, err := json.Marshal(dispatchRequest{StudentID: studentID, Content: content})
	if err != nil {
		return fmt.Errorf("failed to encode diary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return &DispatchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &DispatchError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DispatchError{StatusCode: resp.StatusCode}
	}
	return nil
}
