package natsx

import (
	"context"

	"PShare/tools/errs"

	"github.com/google/uuid"
)

// MsgIDHeader lets JetStream drop duplicates inside its dedupe window.
const MsgIDHeader = "Nats-Msg-Id"

// NatsxProducer publishes by biz key.
type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

// Publish sends data on the subject registered for biz.
func (p *NatsxProducer) Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error {
	r, ok := p.c.route(biz)
	if !ok {
		return errs.New("route not found", "biz", biz)
	}
	switch r.Mode {
	case Core:
		return p.c.sendCore(r.Subject, data, hdr)
	case JetStream:
		return p.c.sendJS(ctx, r.Subject, data, hdr)
	default:
		return errs.New("unsupported mode", "mode", int(r.Mode))
	}
}

// PublishOnce stamps a message id so retries of the same payload are stored once.
// An empty msgID gets a random one.
func (p *NatsxProducer) PublishOnce(ctx context.Context, biz string, data []byte, hdr map[string]string, msgID string) error {
	h := make(map[string]string, len(hdr)+1)
	for k, v := range hdr {
		h[k] = v
	}
	if msgID == "" {
		msgID = uuid.NewString()
	}
	h[MsgIDHeader] = msgID
	return p.Publish(ctx, biz, data, h)
}
