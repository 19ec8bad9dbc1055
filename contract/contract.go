//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type Clock interface {
	Now() time.Time
}

// SystemRecorder writes status notices on behalf of participants that may
// no longer exist.
type SystemRecorder interface {
	RecordSystemEvent(ctx context.Context, name, text string) (domain.Message, error)
}

// ActivityChecker tells whether a name belongs to an active participant.
type ActivityChecker interface {
	IsActive(ctx context.Context, name string) (bool, error)
}

// Evictor exposes the part of the presence registry the sweeper needs.
// Evict must only remove the participant if it is still in the state read
// by Stale, and reports false otherwise.
type Evictor interface {
	Stale(ctx context.Context, cutoff time.Time) ([]domain.Participant, error)
	Evict(ctx context.Context, participant domain.Participant) (bool, error)
}

// ParticipantLister exposes the current participant set.
type ParticipantLister interface {
	List(ctx context.Context) ([]domain.Participant, error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
