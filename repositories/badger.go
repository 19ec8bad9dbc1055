package repositories

import (
	"chat-relay/errors"
	"context"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds how many times a read-modify-write transaction
// is replayed after losing a race against a concurrent writer.
const maxConflictRetries = 5

// OpenBadger opens the embedded store. An empty path or inMemory opens a
// volatile database.
func OpenBadger(path string, inMemory bool, log *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING)
	if inMemory || path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.WARNING)
	}
	log.Debug("Opening BadgerDB", "path", path, "in_memory", opts.InMemory)
	return badger.Open(opts)
}

// update runs fn in a read-write transaction. Badger aborts the commit with
// ErrConflict when a key read by fn was written by someone else meanwhile;
// fn is then replayed against the fresh state.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		if err = db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

type BadgerPinger struct {
	db *badger.DB
}

func NewBadgerPinger(db *badger.DB) BadgerPinger {
	return BadgerPinger{db: db}
}

func (p BadgerPinger) Ping(_ context.Context) error {
	if p.db.IsClosed() {
		return errors.ErrStoreClosed
	}
	return nil
}
