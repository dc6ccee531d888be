package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"studysphere-tracker/internal/app"
	"studysphere-tracker/internal/crypto"
	"studysphere-tracker/internal/domain"
	"studysphere-tracker/internal/infra/memory"
)

func TestWebSocketRegisterAttemptProgressFlow(t *testing.T) {
	conn, metrics, cleanup := dialTestServer(t)
	defer cleanup()

	send(t, conn, "register", map[string]any{
		"email":           "ada@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
		"fullName":        "Ada Lovelace",
	})
	_, payload := readNext(conn, t, "user")
	if payload["email"] != "ada@example.com" {
		t.Fatalf("expected registered user, got %+v", payload)
	}

	send(t, conn, "attempt", map[string]any{
		"passageId":      "bio-1",
		"score":          80,
		"timeElapsed":    120,
		"totalQuestions": 5,
	})
	_, attempt := readNext(conn, t, "attemptRecorded")
	if attempt["passageId"] != "bio-1" {
		t.Fatalf("unexpected attempt payload %+v", attempt)
	}
	_, progress := readNext(conn, t, "progress")
	subjects, _ := progress["subjects"].(map[string]any)
	biology, _ := subjects["biology"].(map[string]any)
	if biology["attempts"] != float64(1) || biology["averageScore"] != float64(80) {
		t.Fatalf("unexpected biology bucket %+v", biology)
	}

	if got := testutil.ToFloat64(metrics.events.WithLabelValues("attempt", "ok")); got != 1 {
		t.Fatalf("expected 1 attempt event, got %v", got)
	}
}

func TestWebSocketErrorCodes(t *testing.T) {
	conn, metrics, cleanup := dialTestServer(t)
	defer cleanup()

	send(t, conn, "progress", nil)
	expectError(t, conn, codeNotLoggedIn)

	send(t, conn, "attempt", map[string]any{"passageId": "bio-1", "score": 50})
	expectError(t, conn, codeNotLoggedIn)

	send(t, conn, "register", map[string]any{
		"email": "ada@example.com", "password": "abc12", "confirmPassword": "abc12", "fullName": "Ada",
	})
	expectError(t, conn, codeValidation)

	send(t, conn, "login", map[string]any{"email": "nobody@example.com", "password": "secret1"})
	expectError(t, conn, codeNotFound)

	send(t, conn, "register", map[string]any{
		"email": "ada@example.com", "password": "secret1", "confirmPassword": "secret1", "fullName": "Ada",
	})
	readNext(conn, t, "user")
	send(t, conn, "logout", nil)
	readNext(conn, t, "loggedOut")

	send(t, conn, "login", map[string]any{"email": "ada@example.com", "password": "wrong-password"})
	expectError(t, conn, codeInvalidCredentials)

	send(t, conn, "register", map[string]any{
		"email": "ada@example.com", "password": "secret1", "confirmPassword": "secret1", "fullName": "Ada",
	})
	expectError(t, conn, codeDuplicateEmail)

	send(t, conn, "dance", nil)
	expectError(t, conn, codeBadRequest)

	if got := testutil.ToFloat64(metrics.events.WithLabelValues("login", codeInvalidCredentials)); got != 1 {
		t.Fatalf("expected one invalid_credentials login, got %v", got)
	}
}

func TestWebSocketWhoamiAndAttempts(t *testing.T) {
	conn, _, cleanup := dialTestServer(t)
	defer cleanup()

	send(t, conn, "whoami", nil)
	expectError(t, conn, codeNotLoggedIn)

	send(t, conn, "register", map[string]any{
		"email": "ada@example.com", "password": "secret1", "confirmPassword": "secret1", "fullName": "Ada",
	})
	readNext(conn, t, "user")

	send(t, conn, "whoami", nil)
	_, me := readNext(conn, t, "user")
	if me["email"] != "ada@example.com" {
		t.Fatalf("unexpected whoami payload %+v", me)
	}

	send(t, conn, "attempts", nil)
	var msg struct {
		Type    string           `json:"type"`
		Payload []map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read attempts: %v", err)
	}
	if msg.Type != "attempts" || len(msg.Payload) != 0 {
		t.Fatalf("expected empty attempts list, got %+v", msg)
	}
}

func TestEnqueueStopsWhenWriterIsGone(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	send <- outboundMessage[any]{Type: "user"}
	writerDone := make(chan struct{})
	close(writerDone)

	done := make(chan bool, 1)
	go func() {
		done <- enqueue(send, writerDone, reply("progress", struct{}{}))
	}()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected enqueue to report the stopped writer")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue blocked on a full buffer after the writer exited")
	}
}

func TestEnqueueDeliversInOrder(t *testing.T) {
	send := make(chan outboundMessage[any], 2)
	replies := []outboundMessage[any]{{Type: "attemptRecorded"}, {Type: "progress"}}
	if !enqueue(send, make(chan struct{}), replies) {
		t.Fatalf("expected enqueue to succeed")
	}
	if first, second := <-send, <-send; first.Type != "attemptRecorded" || second.Type != "progress" {
		t.Fatalf("unexpected order %s, %s", first.Type, second.Type)
	}
}

func TestErrorCodeForMissingStoredUser(t *testing.T) {
	if got := errorCode(domain.ErrUnknownUser); got != codeNotFound {
		t.Fatalf("expected %s, got %s", codeNotFound, got)
	}
}

func dialTestServer(t *testing.T) (*websocket.Conn, *Metrics, func()) {
	t.Helper()
	catalog := memory.NewStaticPassageLoader([]domain.Passage{{ID: "bio-1", Subject: "biology"}})
	tracker, err := app.NewTracker(context.Background(), memory.NewStorage(), catalog, app.Options{
		Hasher: crypto.LegacyChecksum{},
	})
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	wsHandler := NewWSHandler(tracker, metrics, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, metrics, func() {
		conn.Close()
		server.Close()
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func expectError(t *testing.T, conn *websocket.Conn, code string) {
	t.Helper()
	_, payload := readNext(conn, t, "error")
	if payload["code"] != code {
		t.Fatalf("expected error code %s, got %+v", code, payload)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%+v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}
