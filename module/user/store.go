package user

import (
	"context"
	"time"

	"PShare/data/database"
	"PShare/module/user/model"
	"PShare/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists accounts and login sessions. Lookups report a missing user as errs.ErrNotFound
// and a duplicate username or email as errs.ErrConflict.
type Store interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	List(ctx context.Context, excludeID string) ([]*model.User, error)
	Count(ctx context.Context) (int64, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
	RecordSession(ctx context.Context, s *model.UserSession) error
	CloseSessions(ctx context.Context, userID string, at time.Time) error
}

type MongoStore struct {
	db database.DBProvider
}

func NewMongoStore(db database.DBProvider) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) users() (*mongo.Collection, error) {
	return database.Collection(s.db, &model.User{})
}

func (s *MongoStore) sessions() (*mongo.Collection, error) {
	return database.Collection(s.db, &model.UserSession{})
}

// EnsureIndexes creates the unique account keys and the session TTL index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	uc, err := s.users()
	if err != nil {
		return err
	}
	if _, err := uc.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return errs.WrapMsg(err, "ensure user indexes")
	}
	sc, err := s.sessions()
	if err != nil {
		return err
	}
	_, err = sc.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "expire_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	return errs.WrapMsg(err, "ensure session indexes")
}

func (s *MongoStore) Create(ctx context.Context, u *model.User) error {
	c, err := s.users()
	if err != nil {
		return err
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := c.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrConflict.WrapMsg("User already exists")
		}
		return errs.WrapMsg(err, "insert user", "email", u.Email)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	c, err := s.users()
	if err != nil {
		return nil, err
	}
	var u model.User
	err = c.FindOne(ctx, filter).Decode(&u)
	if errs.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WrapMsg("User not found")
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user")
	}
	return &u, nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errs.ErrNotFound.WrapMsg("User not found", "id", id)
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	out := make(map[string]*model.User, len(oids))
	if len(oids) == 0 {
		return out, nil
	}
	users, err := s.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID.Hex()] = u
	}
	return out, nil
}

func (s *MongoStore) List(ctx context.Context, excludeID string) ([]*model.User, error) {
	filter := bson.M{}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	return s.find(ctx, filter)
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	c, err := s.users()
	if err != nil {
		return 0, err
	}
	n, err := c.CountDocuments(ctx, bson.M{})
	return n, errs.WrapMsg(err, "count users")
}

func (s *MongoStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errs.ErrNotFound.WrapMsg("User not found", "id", id)
	}
	c, err := s.users()
	if err != nil {
		return err
	}
	_, err = c.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"lastLogin": at}})
	return errs.WrapMsg(err, "touch login", "id", id)
}

func (s *MongoStore) RecordSession(ctx context.Context, sess *model.UserSession) error {
	c, err := s.sessions()
	if err != nil {
		return err
	}
	_, err = c.InsertOne(ctx, sess)
	return errs.WrapMsg(err, "insert session", "user", sess.UserID)
}

func (s *MongoStore) CloseSessions(ctx context.Context, userID string, at time.Time) error {
	c, err := s.sessions()
	if err != nil {
		return err
	}
	_, err = c.UpdateMany(ctx,
		bson.M{"user_id": userID, "status": model.SessionActive},
		bson.M{"$set": bson.M{"status": model.SessionLoggedOut, "logout_time": at}})
	return errs.WrapMsg(err, "close sessions", "user", userID)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]*model.User, error) {
	c, err := s.users()
	if err != nil {
		return nil, err
	}
	cur, err := c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, errs.WrapMsg(err, "find users")
	}
	out := make([]*model.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	return out, nil
}
