package file

import (
	"context"

	"PShare/service/gateway"
)

// Finder exposes Store to the notification dispatcher.
type Finder struct {
	Store Store
}

func (f Finder) FindFileByID(ctx context.Context, fileID string) (*gateway.FileMeta, error) {
	rec, err := f.Store.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return toMeta(rec), nil
}
