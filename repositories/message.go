//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// IMessageRepository is the messages collection of the persistence port.
type IMessageRepository interface {
	Insert(ctx context.Context, message domain.Message) error
	Get(ctx context.Context, id uuid.UUID) (domain.Message, error)
	// FindVisible returns the messages visible to viewer in creation order.
	// A positive limit keeps only the last limit of them.
	FindVisible(ctx context.Context, viewer string, limit int) ([]domain.Message, error)
	// Update overwrites recipient, text and kind, keeping id and time.
	Update(ctx context.Context, message domain.Message) error
	Delete(ctx context.Context, id uuid.UUID) error
}

const (
	messagePrefix   = "msg:"
	messageIDPrefix = "msgid:"
	messageSeqKey   = "seq:messages"
	// seqBandwidth is the number of sequence values leased from disk at once.
	seqBandwidth = 128
)

var _ IMessageRepository = (*MessageRepository)(nil)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSeqKey), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, seq: seq}, nil
}

// Close returns the unused part of the leased sequence.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// messageKey is "msg:{seq}" with the sequence zero padded to 20 digits so
// lexicographical key order is creation order.
func messageKey(seq int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", messagePrefix, seq))
}

func messageIDKey(id uuid.UUID) []byte {
	return []byte(messageIDPrefix + id.String())
}

// Insert stores the message under its creation sequence and indexes the
// sequence key by message id.
func (m *MessageRepository) Insert(_ context.Context, message domain.Message) error {
	next, err := m.seq.Next()
	if err != nil {
		return err
	}
	seq := int64(next)
	data, err := bson.Marshal(FromMessage(message, seq))
	if err != nil {
		return err
	}
	key := messageKey(seq)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), key)
	})
}

func (m *MessageRepository) Get(_ context.Context, id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		_, doc, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		message, err = doc.ToMessage()
		return err
	})
	return message, err
}

// FindVisible walks the messages from the newest one backwards, so a limited
// read stops as soon as enough visible messages are collected.
func (m *MessageRepository) FindVisible(_ context.Context, viewer string, limit int) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Past the largest possible sequence, then backwards.
		seekKey := append([]byte(messagePrefix), []byte("99999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			var doc MessageDocument
			err := it.Item().Value(func(val []byte) error {
				return bson.Unmarshal(val, &doc)
			})
			if err != nil {
				return err
			}
			message, err := doc.ToMessage()
			if err != nil {
				return err
			}
			if message.VisibleTo(viewer) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func (m *MessageRepository) Update(_ context.Context, message domain.Message) error {
	return update(m.db, func(txn *badger.Txn) error {
		key, doc, err := getMessage(txn, message.ID)
		if err != nil {
			return err
		}
		doc.To = message.To
		doc.Text = message.Text
		doc.Type = string(message.Kind)
		data, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (m *MessageRepository) Delete(_ context.Context, id uuid.UUID) error {
	return update(m.db, func(txn *badger.Txn) error {
		key, _, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(messageIDKey(id))
	})
}

// getMessage resolves the id index and loads the document it points to.
func getMessage(txn *badger.Txn, id uuid.UUID) ([]byte, MessageDocument, error) {
	var doc MessageDocument
	idx, err := txn.Get(messageIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, doc, errors.ErrMessageNotFound
	}
	if err != nil {
		return nil, doc, err
	}
	key, err := idx.ValueCopy(nil)
	if err != nil {
		return nil, doc, err
	}
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, doc, errors.ErrMessageNotFound
	}
	if err != nil {
		return nil, doc, err
	}
	err = item.Value(func(val []byte) error {
		return bson.Unmarshal(val, &doc)
	})
	return key, doc, err
}
