package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/composer"
	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// Inbound command types accepted on the event stream.
const (
	InboundSelect = "select"
	InboundSend   = "send"
	InboundRetry  = "retry"
)

// InboundCommand is a command sent by the presentation layer over the
// event stream.
type InboundCommand struct {
	Type      string `json:"type"`
	GroupID   string `json:"group_id,omitempty"`
	Body      string `json:"body,omitempty"`
	Image     bool   `json:"image,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// WSHandler upgrades HTTP connections and streams session events to them.
type WSHandler struct {
	session   Session
	rateLimit int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(sess Session, rateLimit int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{session: sess, rateLimit: rateLimit, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sub := core.NewSubscriber(uuid.New().String())
	h.session.Subscribe(sub)
	defer h.session.Unsubscribe(sub.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.rateLimit)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sub, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sub)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("subscriber", sub.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscriber, limiter *rateLimiter) error {
	for {
		var inbound InboundCommand
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("subscriber", sub.ID).Msg("read ws inbound")
			return err
		}
		if !limiter.allow() {
			if err := h.writeError(ctx, conn, ErrorResponse{Error: "too many commands", Code: "rate_limited"}); err != nil {
				return err
			}
			continue
		}
		if err := h.handleInbound(ctx, conn, inbound); err != nil {
			return err
		}
	}
}

// handleInbound runs one command. Only write failures end the connection.
func (h *WSHandler) handleInbound(ctx context.Context, conn *websocket.Conn, inbound InboundCommand) error {
	var (
		res composer.Result
		err error
	)
	switch inbound.Type {
	case InboundSelect:
		err = h.session.SelectGroup(ctx, inbound.GroupID)
		if err == nil {
			return nil
		}
	case InboundSend:
		res, err = h.session.ComposeAndSend(ctx, inbound.Body, inbound.Image)
	case InboundRetry:
		res, err = h.session.Retry(ctx, inbound.MessageID)
	default:
		return h.writeError(ctx, conn, ErrorResponse{Error: "unknown command type", Code: core.ErrCodeBadRequest})
	}

	if err != nil && res.Message.ID == "" {
		_, body := errorResponse(err)
		return h.writeError(ctx, conn, body)
	}
	m := messageResponse(res.Message)
	return wsjson.Write(ctx, conn, EventResponse{
		Type:    "sent",
		GroupID: res.Message.GroupID,
		Message: &m,
		Notice:  noticeResponse(res.Notice),
	})
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, body ErrorResponse) error {
	return wsjson.Write(ctx, conn, EventResponse{Type: "error", Error: &body})
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *core.Subscriber) error {
	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, eventResponse(event)); err != nil {
				h.log.Error().Err(err).Str("subscriber", sub.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
