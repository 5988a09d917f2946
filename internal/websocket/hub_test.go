package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"learning-diary/internal/models"
)

type stubAuth struct{}

func (stubAuth) ParseToken(tokenStr string) (string, error) {
	if tokenStr != "good" {
		return "", errors.New("invalid token")
	}
	return "user-1", nil
}

type stubFeed struct {
	updates chan *models.DailyRecord
	key     models.DocKey
	stopped chan struct{}
}

func (f *stubFeed) Key(userID, date string) models.DocKey {
	return models.DocKey{AppID: "ai-learning-diary", UserID: userID, Date: date}
}

func (f *stubFeed) Subscribe(ctx context.Context, key models.DocKey) (<-chan *models.DailyRecord, func(), error) {
	f.key = key
	return f.updates, func() { close(f.stopped) }, nil
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHub_RejectsBadToken(t *testing.T) {
	hub := NewHub(stubAuth{}, &stubFeed{})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dial(t, srv, "token=bad&date=today")
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestHub_StreamsSnapshots(t *testing.T) {
	feed := &stubFeed{updates: make(chan *models.DailyRecord, 2), stopped: make(chan struct{})}
	hub := NewHub(stubAuth{}, feed)
	hub.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	feed.updates <- nil
	feed.updates <- &models.DailyRecord{StudyContent: "X"}

	conn, _, err := dial(t, srv, "token=good&date=today")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first, second struct {
		Type    string               `json:"type"`
		Payload models.SnapshotEvent `json:"payload"`
	}
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if first.Type != models.WSTypeSnapshot || first.Payload.Exists {
		t.Fatalf("expected empty snapshot first, got %+v", first)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !second.Payload.Exists || second.Payload.Record.StudyContent != "X" {
		t.Fatalf("unexpected second snapshot: %+v", second)
	}
	if feed.key.Date != "2026-03-02" || feed.key.UserID != "user-1" {
		t.Fatalf("unexpected subscription key: %+v", feed.key)
	}
	if second.Payload.Path != feed.key.Path() {
		t.Fatalf("expected path %s, got %s", feed.key.Path(), second.Payload.Path)
	}

	conn.Close()
	select {
	case <-feed.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected subscription to stop after disconnect")
	}
}

func TestHub_PingsIdleSubscribers(t *testing.T) {
	feed := &stubFeed{updates: make(chan *models.DailyRecord, 1), stopped: make(chan struct{})}
	hub := NewHub(stubAuth{}, feed)
	hub.pingPeriod = 20 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	feed.updates <- nil
	conn, _, err := dial(t, srv, "token=good&date=2026-03-02")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a ping on an idle subscription")
	}
}

func TestHub_DropsPeerThatStopsAnswering(t *testing.T) {
	feed := &stubFeed{updates: make(chan *models.DailyRecord), stopped: make(chan struct{})}
	hub := NewHub(stubAuth{}, feed)
	hub.pongWait = 50 * time.Millisecond
	hub.pingPeriod = time.Hour
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "token=good&date=2026-03-02")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case <-feed.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected subscription to stop once the read deadline passed")
	}
}
