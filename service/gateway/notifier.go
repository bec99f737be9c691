package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PShare/logger"
	"PShare/service/events"
	"PShare/tools/errs"
	"PShare/tools/ids"
	"PShare/tools/safe"

	"go.uber.org/zap"
)

// Dispatcher turns a transfer request into notifications for the two parties.
type Dispatcher struct {
	reg     *Registry
	files   FileFinder
	journal Journal
	node    int64
	now     func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithJournal(j Journal) DispatcherOption {
	return func(d *Dispatcher) {
		if j != nil {
			d.journal = j
		}
	}
}

func WithNode(node int64) DispatcherOption {
	return func(d *Dispatcher) { d.node = node }
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(reg *Registry, files FileFinder, opts ...DispatcherOption) *Dispatcher {
	safe.MustNotNil(reg, "registry")
	safe.MustNotNil(files, "file finder")
	d := &Dispatcher{reg: reg, files: files, journal: nopJournal{}, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch handles one send_file request from senderID, whose connection is sender.
// Every failure ends as an error notification to the sender; nothing is returned to the read loop.
func (d *Dispatcher) Dispatch(ctx context.Context, sender Emitter, senderID string, req SendFileRequest) events.Outcome {
	rec := events.TransferRecord{
		FileID:     req.FileID,
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
	}

	if err := req.Validate(); err != nil {
		d.fail(sender, errs.ErrInvalidRequest, err)
		return d.record(rec, events.OutcomeInvalidRequest)
	}

	receiver, ok := d.reg.Resolve(req.ReceiverID)
	if !ok {
		d.fail(sender, errs.ErrReceiverNotConnected, nil)
		return d.record(rec, events.OutcomeReceiverOffline)
	}

	var meta *FileMeta
	err := safe.Run(func() error {
		var ferr error
		meta, ferr = d.files.FindFileByID(ctx, req.FileID)
		if ferr != nil {
			return ferr
		}
		if meta == nil {
			return errs.ErrFileNotFound.Wrap()
		}
		rec.FileName = meta.OriginalName
		d.deliver(receiver, sender, senderID, req.ReceiverID, meta)
		return nil
	})
	switch {
	case err == nil:
		return d.record(rec, events.OutcomeDelivered)
	case errors.Is(err, errs.ErrFileNotFound):
		d.fail(sender, errs.ErrFileNotFound, nil)
		return d.record(rec, events.OutcomeFileNotFound)
	default:
		logger.Error("[dispatch] transfer failed",
			zap.String("sender", senderID), zap.String("receiver", req.ReceiverID),
			zap.String("file", req.FileID), zap.Error(err))
		d.fail(sender, errs.ErrTransferFailed, nil)
		return d.record(rec, events.OutcomeFailed)
	}
}

// NotifyUpload tells a connected receiver that meta was just uploaded for them.
// It reports whether the receiver was online.
func (d *Dispatcher) NotifyUpload(meta FileMeta) bool {
	receiver, ok := d.reg.Resolve(meta.ReceiverID)
	if !ok {
		return false
	}
	n := Notification{
		Type:      NotifyFileReceived,
		Message:   fmt.Sprintf("File received from user %s", meta.SenderID),
		FileID:    meta.ID,
		FileName:  meta.OriginalName,
		SenderID:  meta.SenderID,
		Timestamp: stamp(d.now()),
	}
	d.emit(receiver, n)
	return true
}

// deliver emits both notifications; one failing does not stop the other.
func (d *Dispatcher) deliver(receiver, sender Emitter, senderID, receiverID string, meta *FileMeta) {
	ts := stamp(d.now())
	d.emit(receiver, Notification{
		Type:      NotifyFileReceived,
		Message:   fmt.Sprintf("File received from user %s", senderID),
		FileID:    meta.ID,
		FileName:  meta.OriginalName,
		SenderID:  senderID,
		Timestamp: ts,
	})
	d.emit(sender, Notification{
		Type:       NotifyFileSent,
		Message:    fmt.Sprintf("File sent to user %s", receiverID),
		FileID:     meta.ID,
		FileName:   meta.OriginalName,
		ReceiverID: receiverID,
		Timestamp:  ts,
	})
}

func (d *Dispatcher) fail(sender Emitter, reason errs.CodeError, cause error) {
	if cause != nil {
		logger.Debug("[dispatch] rejected request", zap.Int("code", reason.Code), zap.Error(cause))
	}
	d.emit(sender, errorNotification(reason.Msg))
}

func (d *Dispatcher) emit(to Emitter, n Notification) {
	if err := to.Emit(EventNotification, n); err != nil {
		logger.Debug("[dispatch] emit dropped", zap.String("conn", to.ID()), zap.String("type", string(n.Type)), zap.Error(err))
	}
}

func (d *Dispatcher) record(rec events.TransferRecord, outcome events.Outcome) events.Outcome {
	rec.ID = ids.GenerateString()
	rec.Outcome = outcome
	rec.Node = d.node
	rec.At = d.now().UTC()
	d.journal.Record(rec)
	return outcome
}
