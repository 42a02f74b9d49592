package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-service/internal/auth"
	"trivia-service/internal/domain"

	"github.com/gorilla/websocket"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	ctx := context.Background()
	router, service, _ := newTestRouter(t, auth.HeaderResolver{})
	server := httptest.NewServer(router)
	defer server.Close()

	host := domain.Identity{ID: "host", Name: "Host"}
	game, err := service.CreateGame(ctx, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.JoinGame(ctx, game.ID, domain.Identity{ID: "u1", Name: "Alice"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.StartGame(ctx, game.ID, host); err != nil {
		t.Fatalf("start: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?gameId=" + game.ID
	header := http.Header{}
	header.Set("X-User-ID", "u1")
	header.Set("X-User-Name", "Alice")
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current game first.
	_, payload := readNext(conn, t, "game")
	if payload["game"] == nil {
		t.Fatalf("expected game payload, got %v", payload)
	}

	q0 := game.QuestionIDs[0]
	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId":    q0,
			"choice":        correctFor(q0),
			"timeRemaining": 12,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// The result and the answer.submitted snapshot may arrive in either order.
	var result map[string]any
	for i := 0; i < 3 && result == nil; i++ {
		typ, p := readNext(conn, t, "")
		if typ == "answerResult" {
			result = p
		}
	}
	if result == nil {
		t.Fatalf("expected answerResult")
	}
	if result["pointsEarned"].(float64) != 12 || result["correct"] != true {
		t.Fatalf("unexpected answer result %v", result)
	}

	if _, err := service.AdvanceQuestion(ctx, game.ID, host, nil); err != nil {
		t.Fatalf("advance: %v", err)
	}
	for i := 0; i < 4; i++ {
		typ, p := readNext(conn, t, "")
		if typ != string(domain.EventQuestionAdvanced) {
			continue
		}
		g := p["game"].(map[string]any)
		if g["currentQuestionIndex"].(float64) != 1 {
			t.Fatalf("expected question 1 in snapshot, got %v", g["currentQuestionIndex"])
		}
		return
	}
	t.Fatalf("expected %s snapshot", domain.EventQuestionAdvanced)
}

func TestWebSocketRejectsUnknownGame(t *testing.T) {
	router, _, _ := newTestRouter(t, auth.HeaderResolver{})
	server := httptest.NewServer(router)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?gameId=missing"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestOutboxStopsWhenWriterIsGone(t *testing.T) {
	out := outbox{msgs: make(chan outboundMessage[any], 1), done: make(chan struct{})}
	if !out.push(outboundMessage[any]{Type: "game"}) {
		t.Fatalf("expected first message to be queued")
	}
	close(out.done)

	pushed := make(chan bool, 1)
	go func() { pushed <- out.push(outboundMessage[any]{Type: "game"}) }()
	select {
	case ok := <-pushed:
		if ok {
			t.Fatalf("expected push to fail once the writer stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("push blocked on a full outbox after the writer stopped")
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
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
