package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"studysphere-tracker/internal/app"
	"studysphere-tracker/internal/domain"
)

// WSHandler replays UI events over a WebSocket. Messages on a connection are
// handled one at a time, in order; the tracker serialises across connections.
type WSHandler struct {
	tracker  *app.Tracker
	metrics  *Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(tracker *app.Tracker, metrics *Metrics, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		tracker: tracker,
		metrics: metrics,
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

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type attemptsPayload struct {
	UserID string `json:"userId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes sent to clients.
const (
	codeValidation         = "validation"
	codeDuplicateEmail     = "duplicate_email"
	codeNotFound           = "not_found"
	codeInvalidCredentials = "invalid_credentials"
	codeNotLoggedIn        = "not_logged_in"
	codeBadRequest         = "bad_request"
	codeInternal           = "internal"
)

var errBadRequest = errors.New("invalid payload")

// ServeWS upgrades HTTP requests to websockets and dispatches tracker events.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		start := time.Now()
		replies, err := h.dispatch(r, inbound)
		outcome := "ok"
		if err != nil {
			code := errorCode(err)
			outcome = code
			if code == codeInternal {
				h.logger.Error("ws event failed", zap.String("type", inbound.Type), zap.Error(err))
			}
			replies = []outboundMessage[any]{{Type: "error", Payload: errorPayload{Code: code, Message: err.Error()}}}
		}
		h.metrics.observe(inbound.Type, outcome, time.Since(start))
		if !enqueue(send, writerDone, replies) {
			break
		}
	}

	close(send)
	<-writerDone
}

// enqueue hands replies to the writer. It reports false once the writer has
// stopped, so a dead connection never blocks the read loop.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, replies []outboundMessage[any]) bool {
	for _, msg := range replies {
		select {
		case send <- msg:
		case <-writerDone:
			return false
		}
	}
	return true
}

func (h *WSHandler) dispatch(r *http.Request, in inboundMessage) ([]outboundMessage[any], error) {
	ctx := r.Context()
	switch in.Type {
	case "register":
		var payload domain.RegisterInput
		if err := decode(in.Payload, &payload); err != nil {
			return nil, err
		}
		user, err := h.tracker.Register(ctx, payload)
		if err != nil {
			return nil, err
		}
		return reply("user", user.Public()), nil

	case "login":
		var payload loginPayload
		if err := decode(in.Payload, &payload); err != nil {
			return nil, err
		}
		user, err := h.tracker.Login(ctx, payload.Email, payload.Password)
		if err != nil {
			return nil, err
		}
		return reply("user", user.Public()), nil

	case "logout":
		if err := h.tracker.Logout(ctx); err != nil {
			return nil, err
		}
		return reply("loggedOut", struct{}{}), nil

	case "whoami":
		user, ok := h.tracker.CurrentUser()
		if !ok {
			return nil, domain.ErrNotLoggedIn
		}
		return reply("user", user.Public()), nil

	case "attempt":
		var payload domain.AttemptInput
		if err := decode(in.Payload, &payload); err != nil {
			return nil, err
		}
		attempt, recorded, err := h.tracker.RecordAttempt(ctx, payload)
		if err != nil {
			return nil, err
		}
		if !recorded {
			return nil, domain.ErrNotLoggedIn
		}
		report, _, err := h.tracker.ComputeProgress(ctx)
		if err != nil {
			return nil, err
		}
		return []outboundMessage[any]{
			{Type: "attemptRecorded", Payload: attempt},
			{Type: "progress", Payload: report},
		}, nil

	case "attempts":
		var payload attemptsPayload
		if len(in.Payload) > 0 {
			if err := decode(in.Payload, &payload); err != nil {
				return nil, err
			}
		}
		attempts, err := h.tracker.ListAttempts(ctx, payload.UserID)
		if err != nil {
			return nil, err
		}
		return reply("attempts", attempts), nil

	case "progress":
		report, ok, err := h.tracker.ComputeProgress(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrNotLoggedIn
		}
		return reply("progress", report), nil

	default:
		return nil, fmt.Errorf("%w: unsupported message type %q", errBadRequest, in.Type)
	}
}

func reply(typ string, payload any) []outboundMessage[any] {
	return []outboundMessage[any]{{Type: typ, Payload: payload}}
}

func decode(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return errBadRequest
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return codeValidation
	case errors.Is(err, domain.ErrDuplicateEmail):
		return codeDuplicateEmail
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnknownUser):
		return codeNotFound
	case errors.Is(err, domain.ErrInvalidCredentials):
		return codeInvalidCredentials
	case errors.Is(err, domain.ErrNotLoggedIn):
		return codeNotLoggedIn
	case errors.Is(err, errBadRequest):
		return codeBadRequest
	default:
		return codeInternal
	}
}
