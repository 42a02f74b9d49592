package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"trivia-service/internal/app"
	"trivia-service/internal/auth"
	"trivia-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler streams game snapshots to a client and takes its answers.
type WSHandler struct {
	service  *app.GameService
	resolver auth.Resolver
	events   app.EventSubscriber
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, resolver auth.Resolver, events app.EventSubscriber) *WSHandler {
	return &WSHandler{
		service:  service,
		resolver: resolver,
		events:   events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades GET /ws?gameId=... and pushes a fresh game view after every
// event of that game. Clients send {"type":"answer","payload":{...}} to answer.
func (h *WSHandler) ServeWS(c *gin.Context) {
	gameID := c.Query("gameId")
	if gameID == "" {
		badRequest(c, errMissingGameID)
		return
	}
	who, err := h.resolver.Resolve(c.Request)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	view, err := h.service.GetGame(ctx, gameID)
	if err != nil {
		writeError(c, err)
		return
	}

	updates, cancel, err := h.events.Subscribe(ctx, gameID)
	if err != nil {
		writeError(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	out := outbox{msgs: make(chan outboundMessage[any], 16), done: make(chan struct{})}
	closeSignals := make(chan struct{})
	updatesDone := make(chan struct{})

	// the writer goroutine is the only one touching conn for writes
	go func() {
		defer close(out.done)
		for msg := range out.msgs {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// unblock the read loop
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				msg := h.snapshot(ctx, gameID, string(event.Type))
				select {
				case out.msgs <- msg:
				case <-out.done:
					return
				case <-closeSignals:
					return
				}
			case <-out.done:
				return
			case <-closeSignals:
				return
			}
		}
	}()

	if out.push(outboundMessage[any]{Type: "game", Payload: view}) {
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				break
			}
			var reply outboundMessage[any]
			switch inbound.Type {
			case "answer":
				reply = h.answer(ctx, view.Game, who, inbound.Payload)
			case "refresh":
				reply = h.snapshot(ctx, gameID, "game")
			default:
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
			}
			if !out.push(reply) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(out.msgs)
	<-out.done
}

// outbox hands messages to a connection's writer goroutine.
type outbox struct {
	msgs chan outboundMessage[any]
	// done is closed when the writer stops.
	done chan struct{}
}

// push queues msg. It reports false once the writer has stopped, instead of blocking.
func (o outbox) push(msg outboundMessage[any]) bool {
	select {
	case o.msgs <- msg:
		return true
	case <-o.done:
		return false
	}
}

func (h *WSHandler) snapshot(ctx context.Context, gameID, typ string) outboundMessage[any] {
	view, err := h.service.GetGame(ctx, gameID)
	if err != nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	return outboundMessage[any]{Type: typ, Payload: view}
}

func (h *WSHandler) answer(ctx context.Context, game domain.Game, who domain.Identity, raw json.RawMessage) outboundMessage[any] {
	var req answerRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.QuestionID == "" || req.Choice == "" {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
	}
	var (
		res domain.AnswerResult
		err error
	)
	if game.IsSolo() {
		res, err = h.service.SubmitSoloAnswer(ctx, game.ID, req.submission())
	} else {
		res, err = h.service.SubmitAnswer(ctx, game.ID, who, req.submission())
	}
	if err != nil {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	}
	return outboundMessage[any]{Type: "answerResult", Payload: res}
}
