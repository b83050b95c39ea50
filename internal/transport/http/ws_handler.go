package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"hanzi-quiz-service/internal/app"
	"hanzi-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, verifier TokenVerifier) *WSHandler {
	return &WSHandler{
		service:  service,
		verifier: verifier,
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
	Code    string `json:"code,omitempty"`
}

// wsOutbox hands messages to the connection's writer goroutine.
type wsOutbox struct {
	send       chan outboundMessage[any]
	writerDone chan struct{}
}

func newWSOutbox(size int) *wsOutbox {
	return &wsOutbox{send: make(chan outboundMessage[any], size), writerDone: make(chan struct{})}
}

// push queues msg and reports false once the writer has exited.
func (o *wsOutbox) push(msg outboundMessage[any]) bool {
	select {
	case o.send <- msg:
		return true
	case <-o.writerDone:
		return false
	}
}

func wsError(err error) outboundMessage[any] {
	_, code := errorStatus(err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Code: code}}
}

// ServeWS streams session events to the client and accepts answer, advance and
// restart commands. The session must already exist; ?session=<id>&token=<jwt>.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session", http.StatusBadRequest)
		return
	}
	userID, err := h.verifier.Verify(tokenFromRequest(r))
	if err != nil {
		http.Error(w, domain.ErrInvalidToken.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	events, cancel, err := h.service.Subscribe(ctx, userID, sessionID)
	if err != nil {
		_ = conn.WriteJSON(wsError(err))
		return
	}
	defer cancel()

	out := newWSOutbox(16)
	closeSignals := make(chan struct{})
	eventsDone := make(chan struct{})

	// A single writer goroutine owns the connection's write side.
	go func() {
		defer close(out.writerDone)
		for msg := range out.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					// Session closed elsewhere; unblock the reader.
					_ = conn.Close()
					return
				}
				select {
				case out.send <- outboundMessage[any]{Type: "event", Payload: ev}:
				case <-out.writerDone:
					_ = conn.Close()
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		if !h.handleInbound(ctx, conn, out, userID, sessionID) {
			break
		}
	}

	close(closeSignals)
	<-eventsDone
	close(out.send)
	<-out.writerDone
}

// handleInbound processes one client command and reports whether the read
// loop should continue.
func (h *WSHandler) handleInbound(ctx context.Context, conn *websocket.Conn, out *wsOutbox, userID, sessionID string) bool {
	var inbound inboundMessage
	if err := conn.ReadJSON(&inbound); err != nil {
		return false
	}
	switch inbound.Type {
	case "answer":
		var answer domain.Answer
		if err := json.Unmarshal(inbound.Payload, &answer); err != nil {
			return out.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload", Code: "invalid_answer"}})
		}
		res, err := h.service.Submit(ctx, userID, sessionID, answer)
		if err != nil {
			return out.push(wsError(err))
		}
		return out.push(outboundMessage[any]{Type: "answerResult", Payload: res})
	case "advance":
		if _, err := h.service.Advance(ctx, userID, sessionID); err != nil {
			return out.push(wsError(err))
		}
	case "restart":
		if _, err := h.service.Restart(ctx, userID, sessionID); err != nil {
			return out.push(wsError(err))
		}
	default:
		return out.push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
	return true
}
