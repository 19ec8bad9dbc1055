//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"
)

// IParticipantRepository is the participants collection of the persistence
// port. Every method touches a single document atomically.
type IParticipantRepository interface {
	// Create fails with errors.ErrNameTaken when the name already exists.
	Create(ctx context.Context, participant domain.Participant) error
	Get(ctx context.Context, name string) (domain.Participant, error)
	List(ctx context.Context) ([]domain.Participant, error)
	// Touch sets LastSeen, or fails with errors.ErrParticipantNotFound.
	Touch(ctx context.Context, name string, at time.Time) error
	FindStale(ctx context.Context, cutoff time.Time) ([]domain.Participant, error)
	// DeleteIfUnchanged removes the participant only when its stored
	// LastSeen still equals the given one.
	DeleteIfUnchanged(ctx context.Context, participant domain.Participant) (bool, error)
}

const participantPrefix = "participant:"

func participantKey(name string) []byte {
	return []byte(participantPrefix + name)
}

var _ IParticipantRepository = (*ParticipantRepository)(nil)

type ParticipantRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger) *ParticipantRepository {
	return &ParticipantRepository{db: db, log: log}
}

// Create inserts the participant under "participant:{name}". The existence
// check and the write share one transaction, so two concurrent joins with the
// same name cannot both succeed.
func (r *ParticipantRepository) Create(_ context.Context, participant domain.Participant) error {
	data, err := bson.Marshal(FromParticipant(participant))
	if err != nil {
		return err
	}
	key := participantKey(participant.Name)
	return update(r.db, func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrNameTaken
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
}

func (r *ParticipantRepository) Get(_ context.Context, name string) (domain.Participant, error) {
	var participant domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		doc, err := getParticipant(txn, name)
		if err != nil {
			return err
		}
		participant = doc.ToParticipant()
		return nil
	})
	return participant, err
}

func (r *ParticipantRepository) List(_ context.Context) ([]domain.Participant, error) {
	return r.scan(func(domain.Participant) bool { return true })
}

func (r *ParticipantRepository) FindStale(_ context.Context, cutoff time.Time) ([]domain.Participant, error) {
	return r.scan(func(p domain.Participant) bool { return p.IsStale(cutoff) })
}

func (r *ParticipantRepository) Touch(_ context.Context, name string, at time.Time) error {
	return update(r.db, func(txn *badger.Txn) error {
		doc, err := getParticipant(txn, name)
		if err != nil {
			return err
		}
		doc.LastStatus = at.UnixMilli()
		data, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set(participantKey(name), data)
	})
}

// DeleteIfUnchanged is the conditional delete used by eviction. A heartbeat
// committed after the caller read the participant changes lastStatus, and
// the delete is skipped. A heartbeat racing with this transaction makes the
// commit conflict; the replay then sees the new value.
func (r *ParticipantRepository) DeleteIfUnchanged(_ context.Context, participant domain.Participant) (bool, error) {
	var deleted bool
	err := update(r.db, func(txn *badger.Txn) error {
		deleted = false
		doc, err := getParticipant(txn, participant.Name)
		if errors.Is(err, errors.ErrParticipantNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if doc.LastStatus != participant.LastSeen.UnixMilli() {
			return nil
		}
		if err := txn.Delete(participantKey(participant.Name)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *ParticipantRepository) scan(keep func(domain.Participant) bool) ([]domain.Participant, error) {
	participants := make([]domain.Participant, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(participantPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc ParticipantDocument
			err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			if p := doc.ToParticipant(); keep(p) {
				participants = append(participants, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func getParticipant(txn *badger.Txn, name string) (ParticipantDocument, error) {
	var doc ParticipantDocument
	item, err := txn.Get(participantKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return doc, errors.ErrParticipantNotFound
	}
	if err != nil {
		return doc, err
	}
	err = item.Value(func(val []byte) error {
		return bson.Unmarshal(val, &doc)
	})
	return doc, err
}
