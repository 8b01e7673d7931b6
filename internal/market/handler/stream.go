// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     handler
// Description: WebSocket streaming of live quotes
// ============================================================================

package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nexus-finance/platform/internal/market/engine"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

// WebSocket upgrader with permissive settings for local development
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// StreamHandler pushes quote updates to WebSocket clients
type StreamHandler struct {
	engine   *engine.Engine
	interval time.Duration
	logger   *logging.Logger
}

// NewStreamHandler creates a quote stream handler
func NewStreamHandler(e *engine.Engine, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StreamHandler{
		engine:   e,
		interval: interval,
		logger:   logging.New("market-stream"),
	}
}

// WSMessage is an inbound client message
type WSMessage struct {
	Type    string   `json:"type"` // "subscribe", "unsubscribe", "ping"
	Symbols []string `json:"symbols,omitempty"`
}

// WSResponse is an outbound server message
type WSResponse struct {
	Type    string      `json:"type"` // "quotes", "subscribed", "error", "pong"
	Payload interface{} `json:"payload,omitempty"`
}

// WSErrorPayload carries error details
type WSErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeHTTP handles WebSocket upgrade and connections
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	h.handleConnection(conn)
}

// handleConnection runs one WebSocket session: a read loop for
// subscription changes and a ticker loop pushing quotes
func (h *StreamHandler) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	h.logger.Info("Stream connection established", "remote", conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu        sync.Mutex
		symbols   []string
		writeLock sync.Mutex
	)

	send := func(resp WSResponse) {
		writeLock.Lock()
		defer writeLock.Unlock()
		if err := conn.WriteJSON(resp); err != nil {
			h.logger.Debug("Stream send failed", "error", err)
		}
	}
	sendError := func(code, message string) {
		send(WSResponse{Type: "error", Payload: WSErrorPayload{Code: code, Message: message}})
	}

	conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	// Push loop
	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				subscribed := append([]string(nil), symbols...)
				mu.Unlock()
				if len(subscribed) == 0 {
					continue
				}
				quotes := h.engine.GetQuotes(ctx, subscribed)
				send(WSResponse{Type: "quotes", Payload: quotes})
			}
		}
	}()

	// Read loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("Stream read error", "error", err)
			} else {
				h.logger.Info("Stream connection closed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		switch msg.Type {
		case "ping":
			send(WSResponse{Type: "pong"})

		case "subscribe":
			validated := make([]string, 0, len(msg.Symbols))
			for _, s := range msg.Symbols {
				symbol, ok := validateSymbol(s)
				if !ok {
					sendError("invalid_symbol", "Invalid ticker symbol: "+s)
					continue
				}
				validated = append(validated, symbol)
			}
			if len(validated) > maxBatchSymbols {
				validated = validated[:maxBatchSymbols]
			}
			mu.Lock()
			symbols = validated
			mu.Unlock()
			send(WSResponse{Type: "subscribed", Payload: validated})

		case "unsubscribe":
			mu.Lock()
			symbols = nil
			mu.Unlock()
			send(WSResponse{Type: "subscribed", Payload: []string{}})

		default:
			sendError("unknown_type", "Unknown message type: "+msg.Type)
		}
	}
}
