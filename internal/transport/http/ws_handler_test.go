package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"iqplay/internal/app"
)

func TestWebSocketRoundFlow(t *testing.T) {
	srv := newTestServer(t)
	game := srv.createGame(t)

	u := "ws" + srv.URL[len("http"):] + "/ws?gameId=" + game.ID + "&token=" + srv.token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "start", map[string]string{"category": "Science", "tier": "Hard"})
	snap := readSnapshot(t, conn)
	if snap.State != app.StateQuestionActive || snap.Question == nil {
		t.Fatalf("expected active question, got %+v", snap)
	}

	// Next before selecting is rejected.
	send(t, conn, "next", nil)
	if typ, _ := readUntil(t, conn, "error"); typ != "error" {
		t.Fatalf("expected error, got %s", typ)
	}

	send(t, conn, "select", map[string]string{"option": "a"})
	send(t, conn, "next", nil)
	snap = readSnapshot(t, conn)
	if snap.Index != 1 || snap.Scores.PlayerOne != 5 {
		t.Fatalf("expected second question with 5 points, got index=%d scores=%+v", snap.Index, snap.Scores)
	}

	send(t, conn, "exit", nil)
	typ, payload := readUntil(t, conn, "event")
	for typ == "event" {
		var ev app.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Type == app.EventAbandoned {
			return
		}
		typ, payload = readUntil(t, conn, "event")
	}
	t.Fatalf("expected abandoned event")
}

func TestWebSocketRejectsUnknownMessage(t *testing.T) {
	srv := newTestServer(t)
	game := srv.createGame(t)

	u := "ws" + srv.URL[len("http"):] + "/ws?gameId=" + game.ID + "&token=" + srv.token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "dance", nil)
	typ, payload := readNext(t, conn)
	if typ != "error" {
		t.Fatalf("expected error, got %s", typ)
	}
	var e errorPayload
	if err := json.Unmarshal(payload, &e); err != nil || e.Message != "unsupported message type" {
		t.Fatalf("unexpected error payload %s", payload)
	}
}

func TestWebSocketRequiresGameID(t *testing.T) {
	srv := newTestServer(t)
	u := "ws" + srv.URL[len("http"):] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
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

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// readUntil skips session events until a message of type want arrives.
// Asking for "event" returns the next event.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (string, json.RawMessage) {
	t.Helper()
	for i := 0; i < 64; i++ {
		typ, payload := readNext(t, conn)
		if typ == want || typ != "event" {
			return typ, payload
		}
	}
	t.Fatalf("no %s message received", want)
	return "", nil
}

func readSnapshot(t *testing.T, conn *websocket.Conn) app.Snapshot {
	t.Helper()
	typ, payload := readUntil(t, conn, "snapshot")
	if typ != "snapshot" {
		t.Fatalf("expected snapshot, got %s: %s", typ, payload)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snap
}
