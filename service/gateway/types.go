package gateway

import (
	"context"

	"PShare/service/events"
)

// Emitter is a connection handle as seen by the registry and the dispatcher.
// Emit is fire-and-forget: it queues the frame and never waits for the network.
type Emitter interface {
	ID() string
	Emit(event string, payload any) error
}

// FileMeta is the part of a stored file record the dispatcher needs.
type FileMeta struct {
	ID           string
	OriginalName string
	SenderID     string
	ReceiverID   string
}

// FileFinder looks up file metadata. A missing file is reported as errs.ErrFileNotFound;
// any other error is treated as a collaborator fault.
type FileFinder interface {
	FindFileByID(ctx context.Context, fileID string) (*FileMeta, error)
}

// PresenceMirror copies local presence into a shared store for reporting.
type PresenceMirror interface {
	Online(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID, connID string) error
}

// Journal receives one record per finished transfer request. Implementations must not block.
type Journal interface {
	Record(rec events.TransferRecord)
}

type nopJournal struct{}

func (nopJournal) Record(events.TransferRecord) {}
