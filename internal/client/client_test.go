package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"learning-diary/internal/features"
	"learning-diary/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_SignInStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/auth/anonymous" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, models.SignInResponse{Token: "tok", UserID: "u-1", Provider: models.ProviderAnonymous})
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	resp, err := c.SignInAnonymously(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.UserID != "u-1" || c.Token() != "tok" {
		t.Fatalf("unexpected state: %+v token=%q", resp, c.Token())
	}
}

func TestClient_GetDailyLogAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: models.APIError{Code: "NOT_FOUND", Message: "Daily log not found"}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	rec, err := c.GetDailyLog(context.Background(), "2026-03-02")
	if err != nil || rec != nil {
		t.Fatalf("expected nil record without error, got %+v %v", rec, err)
	}
}

func TestClient_RequiresSession(t *testing.T) {
	c := New("http://127.0.0.1:0")
	if _, err := c.MergeWrite(context.Background(), "today", models.Fields{"studyContent": "x"}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, _, err := c.Subscribe(context.Background(), "today"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestClient_RunFeatureDecodesErrorEnvelope(t *testing.T) {
	var got models.FeatureRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/daily-logs/2026-03-02/features/coaching" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: models.APIError{Code: "AI_ERROR", Message: models.MsgAIFailed}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	_, err := c.RunFeature(context.Background(), "2026-03-02", features.Coaching, &models.DailyRecord{StudyContent: "광합성"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Code != "AI_ERROR" || apiErr.UserMessage() != models.MsgAIFailed {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if got.Inputs == nil || got.Inputs.StudyContent != "광합성" {
		t.Fatalf("expected inputs to be sent, got %+v", got)
	}
}

func TestClient_DispatchPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	_, err := c.Dispatch(context.Background(), "민준", "", "today")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Subscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" || r.URL.Query().Get("date") != "2026-03-02" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(models.WSMessage{Type: models.WSTypeSnapshot, Payload: models.SnapshotEvent{Exists: false}})
		conn.WriteJSON(models.WSMessage{Type: models.WSTypeError, Payload: models.ErrorEvent{ErrorCode: "X"}})
		conn.WriteJSON(models.WSMessage{Type: models.WSTypeSnapshot, Payload: models.SnapshotEvent{Exists: true, Record: &models.DailyRecord{StudyContent: "X"}}})
		conn.ReadMessage()
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	updates, unsubscribe, err := c.Subscribe(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer unsubscribe()

	first := <-updates
	if first != nil {
		t.Fatalf("expected absent document first, got %+v", first)
	}
	select {
	case second := <-updates:
		if second == nil || second.StudyContent != "X" {
			t.Fatalf("unexpected second snapshot: %+v", second)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}

	unsubscribe()
	select {
	case _, ok := <-updates:
		if ok {
			t.Fatalf("expected channel to close after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel did not close")
	}
}

func TestClient_SubscribeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("bad")
	_, _, err := c.Subscribe(context.Background(), "today")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u-1", "exp": exp.Unix()}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	return tok
}

func TestTokenCache(t *testing.T) {
	cache := NewTokenCache(t.TempDir())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if _, ok := cache.Load(); ok {
		t.Fatalf("expected empty cache")
	}

	valid := signedToken(t, now.Add(time.Hour))
	if err := cache.Save(&models.SignInResponse{Token: valid, UserID: "u-1", Provider: models.ProviderAnonymous}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	s, ok := cache.Load()
	if !ok || s.UserID != "u-1" || s.Token != valid {
		t.Fatalf("unexpected cached session: %+v %v", s, ok)
	}

	cache.Save(&models.SignInResponse{Token: signedToken(t, now.Add(-time.Minute)), UserID: "u-1"})
	if _, ok := cache.Load(); ok {
		t.Fatalf("expected expired token to be ignored")
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok := cache.Load(); ok {
		t.Fatalf("expected cleared cache")
	}

	if cache.StudentName() != "" {
		t.Fatalf("expected no name yet")
	}
	cache.SetStudentName("민준")
	if cache.StudentName() != "민준" {
		t.Fatalf("unexpected name %q", cache.StudentName())
	}
}

func TestIdentity_UsesCachedSession(t *testing.T) {
	cache := NewTokenCache(t.TempDir())
	tok := signedToken(t, time.Now().Add(time.Hour))
	cache.Save(&models.SignInResponse{Token: tok, UserID: "u-9", Provider: models.ProviderCustomToken})

	c := New("http://127.0.0.1:0")
	user, ok := NewIdentity(c, cache).CurrentUser()
	if !ok || user.ID != "u-9" {
		t.Fatalf("expected cached user, got %+v %v", user, ok)
	}
	if c.Token() != tok {
		t.Fatalf("expected client token to be restored")
	}
}
