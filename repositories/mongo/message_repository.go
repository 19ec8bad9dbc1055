package mongo

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"slices"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messageCounterID = "messages"

var _ repositories.IMessageRepository = (*MessageRepository)(nil)

// MessageRepository handles database operations for chat messages.
type MessageRepository struct {
	DB *mongo.Database
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{DB: db}
}

// Insert assigns the next creation sequence from the counters collection
// and inserts the message document.
func (r *MessageRepository) Insert(ctx context.Context, message domain.Message) error {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	_, err = r.collection().InsertOne(ctx, repositories.FromMessage(message, seq))
	return err
}

func (r *MessageRepository) Get(ctx context.Context, id uuid.UUID) (domain.Message, error) {
	var doc repositories.MessageDocument
	err := r.collection().FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	return doc.ToMessage()
}

// FindVisible pushes the visibility rule down as an $or filter and reads
// newest first so the limit applies to the trailing window.
func (r *MessageRepository) FindVisible(ctx context.Context, viewer string, limit int) ([]domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"to": viewer},
		bson.M{"from": viewer},
		bson.M{"to": domain.Broadcast},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []repositories.MessageDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		message, err := doc.ToMessage()
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *MessageRepository) Update(ctx context.Context, message domain.Message) error {
	res, err := r.collection().UpdateOne(ctx,
		bson.M{"_id": message.ID.String()},
		bson.M{"$set": bson.M{
			"to":   message.To,
			"text": message.Text,
			"type": string(message.Kind),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.collection().DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.DB.Collection(counterCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": messageCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}

func (r *MessageRepository) collection() *mongo.Collection {
	return r.DB.Collection(messageCollection)
}
