package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/auth"
)

const writeWait = 10 * time.Second

// WSHandler streams live test analytics to admins over a websocket.
type WSHandler struct {
	service  *app.Service
	tokens   *auth.Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, tokens *auth.Service, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		tokens:  tokens,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// bearer reads the token from the Authorization header, or from the token
// query parameter for browser clients that cannot set headers on upgrade.
func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// ServeWS upgrades GET /ws/results?testId=... and pushes a snapshot after every submission.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	testID := r.URL.Query().Get("testId")
	if testID == "" {
		writeErr(w, http.StatusBadRequest, "missing testId")
		return
	}
	caller, err := h.tokens.Parse(bearer(r))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.SubscribeFeed(r.Context(), caller, testID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	// Single writer; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(outboundMessage[any]{Type: "snapshot", Payload: snap}); err != nil {
					h.log.Debug("ws write error", zap.String("test_id", testID), zap.Error(err))
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// The feed is push-only; reading just detects the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-writerDone
}
