package natsx

import (
	"context"

	"PShare/logger"
	"PShare/tools/errs"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ToHeader copies a flat map into a nats header; nil for an empty map.
func ToHeader(h map[string]string) nats.Header {
	if len(h) == 0 {
		return nil
	}
	hd := nats.Header{}
	for k, v := range h {
		hd.Add(k, v)
	}
	return hd
}

func newMsg(subject string, data []byte, hdr map[string]string) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	return msg
}

func (c *NatsxClient) sendCore(subject string, data []byte, hdr map[string]string) error {
	if err := c.nc.PublishMsg(newMsg(subject, data, hdr)); err != nil {
		return errs.WrapMsg(err, "nats publish", "subject", subject)
	}
	return nil
}

func (c *NatsxClient) sendJS(ctx context.Context, subject string, data []byte, hdr map[string]string) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()
	ack, err := js.PublishMsg(newMsg(subject, data, hdr), nats.Context(ctx))
	if err != nil {
		return errs.WrapMsg(err, "jetstream publish", "subject", subject)
	}
	logger.Debug("[natsx] stored", zap.String("stream", ack.Stream), zap.Uint64("seq", ack.Sequence))
	return nil
}
