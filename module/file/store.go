package file

import (
	"context"
	"time"

	"PShare/data/database"
	"PShare/module/file/model"
	"PShare/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Stats are the dashboard counters over all file records.
type Stats struct {
	TotalTransfers  int64 `json:"totalTransfers"`
	FilesUploaded   int64 `json:"filesUploaded"`
	FilesDownloaded int64 `json:"filesDownloaded"`
}

// Store persists file metadata. Get reports a missing record as errs.ErrFileNotFound.
type Store interface {
	Create(ctx context.Context, f *model.File) error
	Get(ctx context.Context, id string) (*model.File, error)
	ListBySender(ctx context.Context, userID string) ([]*model.File, error)
	ListByReceiver(ctx context.Context, userID string) ([]*model.File, error)
	MarkDownloaded(ctx context.Context, id string) error
	Recent(ctx context.Context, limit int) ([]*model.File, error)
	Stats(ctx context.Context) (Stats, error)
}

type MongoStore struct {
	db database.DBProvider
}

func NewMongoStore(db database.DBProvider) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) coll() (*mongo.Collection, error) {
	return database.Collection(s.db, &model.File{})
}

// EnsureIndexes creates the lookup indexes used by history and the dashboard.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	c, err := s.coll()
	if err != nil {
		return err
	}
	_, err = c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "uploadedAt", Value: -1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "uploadedAt", Value: -1}}},
		{Keys: bson.D{{Key: "uploadedAt", Value: -1}}},
	})
	return errs.WrapMsg(err, "ensure file indexes")
}

func (s *MongoStore) Create(ctx context.Context, f *model.File) error {
	c, err := s.coll()
	if err != nil {
		return err
	}
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	if _, err := c.InsertOne(ctx, f); err != nil {
		return errs.WrapMsg(err, "insert file", "name", f.OriginalName)
	}
	return nil
}

// Get treats an id that is not an ObjectID hex the same as an unknown id.
func (s *MongoStore) Get(ctx context.Context, id string) (*model.File, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrFileNotFound.WrapMsg("malformed id", "id", id)
	}
	c, err := s.coll()
	if err != nil {
		return nil, err
	}
	var f model.File
	err = c.FindOne(ctx, bson.M{"_id": oid}).Decode(&f)
	if errs.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrFileNotFound.WrapMsg("no such file", "id", id)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find file", "id", id)
	}
	return &f, nil
}

func (s *MongoStore) ListBySender(ctx context.Context, userID string) ([]*model.File, error) {
	return s.find(ctx, bson.M{"sender": userID}, options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}}))
}

func (s *MongoStore) ListByReceiver(ctx context.Context, userID string) ([]*model.File, error) {
	return s.find(ctx, bson.M{"receiver": userID}, options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}}))
}

func (s *MongoStore) Recent(ctx context.Context, limit int) ([]*model.File, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}}).SetLimit(int64(limit)))
}

func (s *MongoStore) MarkDownloaded(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrFileNotFound.WrapMsg("malformed id", "id", id)
	}
	c, err := s.coll()
	if err != nil {
		return err
	}
	_, err = c.UpdateByID(ctx, oid, bson.M{"$inc": bson.M{"downloads": 1}})
	return errs.WrapMsg(err, "mark downloaded", "id", id)
}

func (s *MongoStore) Stats(ctx context.Context) (Stats, error) {
	c, err := s.coll()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	if st.TotalTransfers, err = c.CountDocuments(ctx, bson.M{"sender": bson.M{"$ne": ""}, "receiver": bson.M{"$ne": ""}}); err != nil {
		return Stats{}, errs.WrapMsg(err, "count transfers")
	}
	if st.FilesUploaded, err = c.CountDocuments(ctx, bson.M{}); err != nil {
		return Stats{}, errs.WrapMsg(err, "count uploads")
	}
	if st.FilesDownloaded, err = c.CountDocuments(ctx, bson.M{"downloads": bson.M{"$gt": 0}}); err != nil {
		return Stats{}, errs.WrapMsg(err, "count downloads")
	}
	return st, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.File, error) {
	c, err := s.coll()
	if err != nil {
		return nil, err
	}
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "find files")
	}
	out := make([]*model.File, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode files")
	}
	return out, nil
}
