package database

import (
	"PShare/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

// DBProvider returns the current database, or an error while it is unavailable.
type DBProvider func() (*mongo.Database, error)

type Table interface {
	GetTableName() string
}

// Collection resolves t against the database handed out by p.
func Collection(p DBProvider, t Table) (*mongo.Collection, error) {
	if p == nil {
		return nil, errs.ErrInternal.WrapMsg("no database provider")
	}
	db, err := p()
	if err != nil {
		return nil, err
	}
	return db.Collection(t.GetTableName()), nil
}
