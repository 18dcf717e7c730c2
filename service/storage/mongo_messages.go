package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	chatmodel "linker/module/chat/model"
	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

// MongoMessageStore keeps one document per message. Ids are time-ordered
// UUIDs, so _id order is creation order.
type MongoMessageStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoMessageStore(db *mongo.Database, collection string) *MongoMessageStore {
	if collection == "" {
		collection = chatmodel.MsgTableName
	}
	return &MongoMessageStore{coll: db.Collection(collection), now: time.Now}
}

// EnsureIndexes creates the author index used by moderation queries.
func (s *MongoMessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user.id", Value: 1}, {Key: "_id", Value: -1}},
	})
	return errs.WrapMsg(err, "create message index")
}

func (s *MongoMessageStore) Create(ctx context.Context, content string, author usermodel.Identity) (*chatmodel.Message, error) {
	if err := checkCreate(content, author); err != nil {
		return nil, err
	}
	msg := chatmodel.Message{
		ID:        newMessageID(),
		Content:   content,
		User:      author,
		CreatedAt: utcMilli(s.now()),
	}
	if _, err := s.coll.InsertOne(ctx, msg); err != nil {
		return nil, errs.ErrPersist.WrapMsg(err.Error(), "id", msg.ID)
	}
	return &msg, nil
}

func (s *MongoMessageStore) List(ctx context.Context, q chatmodel.ListQuery) ([]chatmodel.Message, bool, error) {
	q = q.Normalize()
	filter := bson.M{}
	if q.Before != "" {
		err := s.coll.FindOne(ctx, bson.M{"_id": q.Before},
			options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []chatmodel.Message{}, false, nil
		}
		if err != nil {
			return nil, false, errs.WrapMsg(err, "find before", "before", q.Before)
		}
		filter["_id"] = bson.M{"$lt": q.Before}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(q.Limit + 1))
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, errs.WrapMsg(err, "list messages")
	}
	var rows []chatmodel.Message
	if err := cur.All(ctx, &rows); err != nil {
		return nil, false, errs.WrapMsg(err, "decode messages")
	}
	for i := range rows {
		rows[i].CreatedAt = rows[i].CreatedAt.UTC()
	}
	page, more := newestFirstPage(rows, q.Limit)
	if page == nil {
		page = []chatmodel.Message{}
	}
	return page, more, nil
}
