package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"learning-diary/internal/logger"
)

// ResponseFormat asks the model for JSON matching Schema.
type ResponseFormat struct {
	MIMEType string
	Schema   *genai.Schema
}

// JSONFormat is the response format for structured features.
func JSONFormat(schema *genai.Schema) *ResponseFormat {
	return &ResponseFormat{MIMEType: "application/json", Schema: schema}
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	ImageModel     string
	BaseURL        string
	ConcurrentReqs int
}

type GeminiService struct {
	client     *genai.Client
	cfg        GeminiConfig
	httpClient *http.Client
	newModel   func(format *ResponseFormat) contentGenerator
	rateChan   chan struct{} // Concurrency slots
}

// NewGeminiService builds the generation client. Without an API key the
// service is created disabled and every call returns ErrNotConfigured.
func NewGeminiService(ctx context.Context, cfg GeminiConfig) (*GeminiService, error) {
	if cfg.ConcurrentReqs <= 0 {
		cfg.ConcurrentReqs = 1
	}

	rateChan := make(chan struct{}, cfg.ConcurrentReqs)
	for i := 0; i < cfg.ConcurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	s := &GeminiService{
		cfg:        cfg,
		httpClient: &http.Client{},
		rateChan:   rateChan,
	}
	if cfg.APIKey == "" {
		return s, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.client = client
	s.newModel = func(format *ResponseFormat) contentGenerator {
		model := client.GenerativeModel(cfg.Model)
		model.SetTemperature(0.7)
		if format != nil {
			model.ResponseMIMEType = format.MIMEType
			model.ResponseSchema = format.Schema
		}
		return model
	}
	return s, nil
}

func (s *GeminiService) Enabled() bool {
	return s.cfg.APIKey != "" && s.newModel != nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a concurrency slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Generate sends one prompt. There is no retry: a failed call is reported to
// the caller as is.
func (s *GeminiService) Generate(ctx context.Context, prompt string, format *ResponseFormat) (*genai.GenerateContentResponse, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	resp, err := s.newModel(format).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classifyError(err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			logger.L.Warnw("Gemini candidate stopped early", "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}
	return resp, nil
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	SampleCount int `json:"sampleCount"`
}

type predictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage renders one image and returns it as base64 PNG bytes.
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if s.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	body, err := json.Marshal(predictRequest{
		Instances:  []predictInstance{{Prompt: prompt}},
		Parameters: predictParameters{SampleCount: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode image request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predict?key=%s", s.cfg.BaseURL, s.cfg.ImageModel, url.QueryEscape(s.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &GenerationError{Err: fmt.Errorf("failed to decode image response: %w", err)}
	}
	if len(out.Predictions) == 0 || out.Predictions[0].BytesBase64Encoded == "" {
		return "", &GenerationError{Err: errors.New("image generation returned no image")}
	}
	return out.Predictions[0].BytesBase64Encoded, nil
}

// classifyError surfaces upstream HTTP failures as *APIError.
func classifyError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &APIError{StatusCode: gerr.Code, Body: body}
	}

	var aerr *apierror.APIError
	if errors.As(err, &aerr) && aerr.HTTPCode() > 0 {
		return &APIError{StatusCode: aerr.HTTPCode(), Body: aerr.Error()}
	}

	return &GenerationError{Err: err}
}
