package gateway

import (
	"context"

	"PShare/logger"

	"go.uber.org/zap"
)

// Session is what a handler knows about the connection a frame came from.
type Session struct {
	Conn   Emitter
	UserID string
}

// Handler serves one inbound event.
type Handler interface {
	Event() string
	Handle(ctx context.Context, s Session, f Frame) error
}

// Handlers is the event-name -> handler table.
type Handlers struct {
	m map[string]Handler
}

func NewHandlers(hs ...Handler) *Handlers {
	t := &Handlers{m: make(map[string]Handler)}
	for _, h := range hs {
		t.Register(h)
	}
	return t
}

func (t *Handlers) Register(h Handler) { t.m[h.Event()] = h }

func (t *Handlers) Get(event string) Handler {
	h, ok := t.m[event]
	if !ok {
		logger.Debug("[WS] no handler for event", zap.String("event", event))
		return nil
	}
	return h
}

// SendFileHandler decodes send_file and hands it to the dispatcher.
type SendFileHandler struct {
	d *Dispatcher
}

func NewSendFileHandler(d *Dispatcher) Handler { return &SendFileHandler{d: d} }

func (h *SendFileHandler) Event() string { return EventSendFile }

func (h *SendFileHandler) Handle(ctx context.Context, s Session, f Frame) error {
	req, err := DecodeSendFile(f)
	if err != nil {
		// Dispatch answers malformed requests with an error notification
		logger.Debug("[WS] bad send_file payload", zap.String("user", s.UserID), zap.Error(err))
	}
	h.d.Dispatch(ctx, s.Conn, s.UserID, req)
	return nil
}
