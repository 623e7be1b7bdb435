package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"iqplay/internal/app"
	"iqplay/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
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

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// wsConn serializes writes through send and tracks the forwarder of the
// current round's events.
type wsConn struct {
	gameID string
	send   chan outboundMessage
	closed chan struct{}

	mu          sync.Mutex
	forwarders  sync.WaitGroup
	unsubscribe func()
}

// ServeWS upgrades HTTP requests to websockets and drives one game's rounds.
// Inbound: start {category, tier}, select {option}, next, retry, exit.
// Outbound: event (session events), snapshot, error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		http.Error(w, "missing gameId", http.StatusBadRequest)
		return
	}

	logger := h.logger.With().Str("game_id", gameID).Str("conn_id", uuid.NewString()).Logger()
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer ws.Close()

	ctx := r.Context()
	c := &wsConn{
		gameID: gameID,
		send:   make(chan outboundMessage, 16),
		closed: make(chan struct{}),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range c.send {
			if failed {
				// keep draining so senders never block on a dead socket
				continue
			}
			if err := ws.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write error")
				failed = true
				_ = ws.Close()
			}
		}
	}()

	// attach to a round that is already running
	if _, err := h.service.Snapshot(ctx, gameID); err == nil {
		h.subscribe(ctx, c)
	}

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, c, inbound)
	}

	close(c.closed)
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.mu.Unlock()
	c.forwarders.Wait()
	close(c.send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, c *wsConn, in inboundMessage) {
	switch in.Type {
	case "start":
		var payload startRequest
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			c.reply("error", newErrorPayload(&domain.ValidationError{Err: errors.New("invalid start payload")}))
			return
		}
		snap, err := h.service.Start(ctx, app.StartRequest{GameID: c.gameID, Category: payload.Category, Tier: payload.Tier})
		if err != nil {
			c.reply("error", newErrorPayload(err))
			return
		}
		h.subscribe(ctx, c)
		c.reply("snapshot", snap)
	case "select":
		var payload selectRequest
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			c.reply("error", newErrorPayload(&domain.ValidationError{Err: errors.New("invalid select payload")}))
			return
		}
		if _, err := h.service.Select(ctx, c.gameID, payload.Option); err != nil {
			c.reply("error", newErrorPayload(err))
		}
	case "next":
		snap, err := h.service.Next(ctx, c.gameID)
		if err != nil {
			c.reply("error", newErrorPayload(err))
			return
		}
		c.reply("snapshot", snap)
	case "retry":
		snap, err := h.service.Retry(ctx, c.gameID)
		if err != nil {
			c.reply("error", newErrorPayload(err))
			return
		}
		c.reply("snapshot", snap)
	case "exit":
		if err := h.service.Exit(ctx, c.gameID); err != nil {
			c.reply("error", newErrorPayload(err))
		}
	default:
		c.reply("error", errorPayload{Code: domain.KindValidation, Message: "unsupported message type"})
	}
}

// subscribe replaces the current event forwarder with one for the live round.
func (h *WSHandler) subscribe(ctx context.Context, c *wsConn) {
	updates, cancel, err := h.service.Subscribe(ctx, c.gameID)
	if err != nil {
		c.reply("error", newErrorPayload(err))
		return
	}

	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.unsubscribe = cancel
	c.forwarders.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.forwarders.Done()
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case c.send <- outboundMessage{Type: "event", Payload: ev}:
				case <-c.closed:
					return
				}
			case <-c.closed:
				return
			}
		}
	}()
}

func (c *wsConn) reply(typ string, payload any) {
	select {
	case c.send <- outboundMessage{Type: typ, Payload: payload}:
	case <-c.closed:
	}
}
