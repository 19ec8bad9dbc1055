package mongo

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ repositories.IParticipantRepository = (*ParticipantRepository)(nil)

// ParticipantRepository stores participants as {name, lastStatus} documents.
type ParticipantRepository struct {
	DB *mongo.Database
}

func NewParticipantRepository(db *mongo.Database) *ParticipantRepository {
	return &ParticipantRepository{DB: db}
}

// Create relies on the unique name index: a concurrent duplicate insert
// fails with a duplicate key error.
func (r *ParticipantRepository) Create(ctx context.Context, participant domain.Participant) error {
	_, err := r.collection().InsertOne(ctx, repositories.FromParticipant(participant))
	if mongo.IsDuplicateKeyError(err) {
		return errors.ErrNameTaken
	}
	return err
}

func (r *ParticipantRepository) Get(ctx context.Context, name string) (domain.Participant, error) {
	var doc repositories.ParticipantDocument
	err := r.collection().FindOne(ctx, bson.M{"name": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Participant{}, errors.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, err
	}
	return doc.ToParticipant(), nil
}

func (r *ParticipantRepository) List(ctx context.Context) ([]domain.Participant, error) {
	return r.find(ctx, bson.M{})
}

func (r *ParticipantRepository) FindStale(ctx context.Context, cutoff time.Time) ([]domain.Participant, error) {
	return r.find(ctx, bson.M{"lastStatus": bson.M{"$lt": cutoff.UnixMilli()}})
}

func (r *ParticipantRepository) Touch(ctx context.Context, name string, at time.Time) error {
	res, err := r.collection().UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"lastStatus": at.UnixMilli()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.ErrParticipantNotFound
	}
	return nil
}

// DeleteIfUnchanged filters on both name and the lastStatus read by the
// caller, so a heartbeat committed in between leaves nothing to delete.
func (r *ParticipantRepository) DeleteIfUnchanged(ctx context.Context, participant domain.Participant) (bool, error) {
	res, err := r.collection().DeleteOne(ctx, bson.M{
		"name":       participant.Name,
		"lastStatus": participant.LastSeen.UnixMilli(),
	})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

func (r *ParticipantRepository) find(ctx context.Context, filter bson.M) ([]domain.Participant, error) {
	cursor, err := r.collection().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []repositories.ParticipantDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return lo.Map(docs, func(doc repositories.ParticipantDocument, _ int) domain.Participant {
		return doc.ToParticipant()
	}), nil
}

func (r *ParticipantRepository) collection() *mongo.Collection {
	return r.DB.Collection(participantCollection)
}
