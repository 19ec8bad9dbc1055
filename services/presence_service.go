//go:generate go run go.uber.org/mock/mockgen -source=presence_service.go -destination=../mocks/mock_presence_service.go -package=mocks
package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"
)

type IPresenceService interface {
	Join(ctx context.Context, name string) (domain.Participant, error)
	List(ctx context.Context) ([]domain.Participant, error)
	Heartbeat(ctx context.Context, name string) error
	IsActive(ctx context.Context, name string) (bool, error)
	Stale(ctx context.Context, cutoff time.Time) ([]domain.Participant, error)
	Evict(ctx context.Context, participant domain.Participant) (bool, error)
}

// Sanitizer cleans user input before validation and storage.
type Sanitizer interface {
	Sanitize(input string) string
	SanitizeText(author, text string) string
}

// PresenceService owns the participant lifecycle. It keeps no state of its
// own: every call reads or writes through the repository.
type PresenceService struct {
	log          *slog.Logger
	participants repositories.IParticipantRepository
	notices      contract.SystemRecorder
	sanitizer    Sanitizer
	clock        contract.Clock
}

func NewPresenceService(
	log *slog.Logger,
	participants repositories.IParticipantRepository,
	sanitizer Sanitizer,
	clock contract.Clock,
) *PresenceService {
	return &PresenceService{
		log:          log,
		participants: participants,
		sanitizer:    sanitizer,
		clock:        clock,
	}
}

// WithNotices sets where join notices are written. The message service
// itself depends on this registry to check senders, so it is attached after
// both are built.
func (s *PresenceService) WithNotices(notices contract.SystemRecorder) *PresenceService {
	s.notices = notices
	return s
}

// Join creates the participant, then records its join notice. The notice
// is never written when the create fails. If the notice write fails the
// participant stays registered and the fault is returned to the caller.
func (s *PresenceService) Join(ctx context.Context, name string) (domain.Participant, error) {
	cmd := domain.JoinCommand{Name: s.sanitizer.Sanitize(name)}
	if err := domain.Validate(cmd); err != nil {
		return domain.Participant{}, errors.ErrNameRequired
	}
	// Messages addressed to the broadcast token reach everyone.
	if cmd.Name == domain.Broadcast {
		return domain.Participant{}, errors.ErrNameReserved
	}

	participant := domain.Participant{Name: cmd.Name, LastSeen: s.now()}
	if err := s.participants.Create(ctx, participant); err != nil {
		return domain.Participant{}, errors.StoreFault(err)
	}
	observability.ParticipantsJoined.Inc()
	s.log.Info("Participant joined", "name", participant.Name)

	if _, err := s.notices.RecordSystemEvent(ctx, participant.Name, domain.JoinedText); err != nil {
		s.log.Error("Join notice not recorded, participant kept", "name", participant.Name, "err", err)
		return participant, errors.StoreFault(err)
	}
	return participant, nil
}

func (s *PresenceService) List(ctx context.Context) ([]domain.Participant, error) {
	participants, err := s.participants.List(ctx)
	if err != nil {
		return nil, errors.StoreFault(err)
	}
	return participants, nil
}

// Heartbeat renews LastSeen. Calling it repeatedly only moves LastSeen forward.
func (s *PresenceService) Heartbeat(ctx context.Context, name string) error {
	if name == "" {
		return errors.ErrParticipantNotFound
	}
	if err := s.participants.Touch(ctx, name, s.now()); err != nil {
		return errors.StoreFault(err)
	}
	return nil
}

func (s *PresenceService) IsActive(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	_, err := s.participants.Get(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errors.ErrParticipantNotFound):
		return false, nil
	default:
		return false, errors.StoreFault(err)
	}
}

// Stale returns the participants last seen strictly before cutoff.
func (s *PresenceService) Stale(ctx context.Context, cutoff time.Time) ([]domain.Participant, error) {
	participants, err := s.participants.FindStale(ctx, cutoff)
	if err != nil {
		return nil, errors.StoreFault(err)
	}
	return participants, nil
}

// Evict removes the participant only if it is still exactly as read by
// Stale. False means a heartbeat or another sweep won the race.
func (s *PresenceService) Evict(ctx context.Context, participant domain.Participant) (bool, error) {
	deleted, err := s.participants.DeleteIfUnchanged(ctx, participant)
	if err != nil {
		return false, errors.StoreFault(err)
	}
	return deleted, nil
}

// now is truncated to the millisecond resolution lastStatus is stored with,
// so a value read back compares equal to the one written.
func (s *PresenceService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}
