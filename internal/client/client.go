// Package client talks to the diary backend over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"learning-diary/internal/features"
	"learning-diary/internal/models"
)

// ErrNoSession is returned by calls that need a signed-in user.
var ErrNoSession = errors.New("not signed in")

// APIError is a non-2xx reply decoded from the backend's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// UserMessage is the text the backend meant for the student.
func (e *APIError) UserMessage() string {
	return e.Message
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu    sync.RWMutex
	token string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		dialer:     websocket.DefaultDialer,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SignInAnonymously(ctx context.Context) (*models.SignInResponse, error) {
	var resp models.SignInResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/anonymous", nil, &resp, false); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

func (c *Client) SignInWithCustomToken(ctx context.Context, token string) (*models.SignInResponse, error) {
	var resp models.SignInResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/custom-token", models.CustomTokenRequest{Token: token}, &resp, false); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// GetDailyLog returns the stored document, or nil when none exists yet.
func (c *Client) GetDailyLog(ctx context.Context, date string) (*models.DailyRecord, error) {
	var rec models.DailyRecord
	err := c.do(ctx, http.MethodGet, "/api/v1/daily-logs/"+url.PathEscape(date), nil, &rec, true)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (c *Client) MergeWrite(ctx context.Context, date string, fields models.Fields) (*models.DailyRecord, error) {
	var rec models.DailyRecord
	if err := c.do(ctx, http.MethodPatch, "/api/v1/daily-logs/"+url.PathEscape(date), fields, &rec, true); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RunFeature asks the backend to generate and persist one AI feature. inputs
// may be nil, in which case the stored document is used.
func (c *Client) RunFeature(ctx context.Context, date string, id features.ID, inputs *models.DailyRecord) (*models.FeatureResult, error) {
	path := fmt.Sprintf("/api/v1/daily-logs/%s/features/%s", url.PathEscape(date), url.PathEscape(string(id)))
	var result models.FeatureResult
	if err := c.do(ctx, http.MethodPost, path, models.FeatureRequest{Inputs: inputs}, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// Dispatch forwards a diary to the teacher and returns the confirmation text.
func (c *Client) Dispatch(ctx context.Context, studentID, content, date string) (string, error) {
	var resp models.DispatchResponse
	req := models.DispatchRequest{StudentID: studentID, Content: content, Date: date}
	if err := c.do(ctx, http.MethodPost, "/api/v1/diary/dispatch", req, &resp, true); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Subscribe opens the live subscription for one day. The first value is the
// current document (nil when absent), then one value per remote change. The
// channel closes when the connection drops or unsubscribe is called.
func (c *Client) Subscribe(ctx context.Context, date string) (<-chan *models.DailyRecord, func(), error) {
	token := c.Token()
	if token == "" {
		return nil, nil, ErrNoSession
	}

	wsURL, err := c.wsURL(token, date)
	if err != nil {
		return nil, nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, nil, &APIError{StatusCode: resp.StatusCode, Message: "subscription rejected"}
		}
		return nil, nil, fmt.Errorf("failed to open subscription: %w", err)
	}

	out := make(chan *models.DailyRecord, 8)
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		})
	}

	go func() {
		defer close(out)
		for {
			var msg struct {
				Type    string          `json:"type"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != models.WSTypeSnapshot {
				continue
			}
			var snap models.SnapshotEvent
			if err := json.Unmarshal(msg.Payload, &snap); err != nil {
				continue
			}
			var rec *models.DailyRecord
			if snap.Exists {
				rec = snap.Record
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				unsubscribe()
				return
			}
		}
	}()

	return out, unsubscribe, nil
}

func (c *Client) wsURL(token, date string) (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/ws")
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("date", date)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, auth bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.Token()
		if token == "" {
			return ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	var envelope models.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Message == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(data))}
	}
	return &APIError{
		StatusCode: status,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
		Fields:     envelope.Error.Fields,
	}
}
