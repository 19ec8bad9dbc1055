//go:generate go run go.uber.org/mock/mockgen -source=message_service.go -destination=../mocks/mock_message_service.go -package=mocks
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

	"github.com/google/uuid"
)

type IMessageService interface {
	Post(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	Visible(ctx context.Context, viewer string, limit *int) ([]domain.Message, error)
	Edit(ctx context.Context, cmd domain.EditMessageCommand) error
	Delete(ctx context.Context, id uuid.UUID, requester string) error
	RecordSystemEvent(ctx context.Context, name, text string) (domain.Message, error)
}

type MessageService struct {
	log       *slog.Logger
	messages  repositories.IMessageRepository
	senders   contract.ActivityChecker
	sanitizer Sanitizer
	clock     contract.Clock
}

func NewMessageService(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	senders contract.ActivityChecker,
	sanitizer Sanitizer,
	clock contract.Clock,
) *MessageService {
	return &MessageService{
		log:       log,
		messages:  messages,
		senders:   senders,
		sanitizer: sanitizer,
		clock:     clock,
	}
}

// Post records a client authored message. Input is sanitized first, so a
// recipient or text made only of markup or whitespace is rejected as blank.
func (s *MessageService) Post(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	cmd.To = s.sanitizer.Sanitize(cmd.To)
	cmd.Text = s.sanitizer.SanitizeText(cmd.From, cmd.Text)
	if err := domain.Validate(cmd); err != nil {
		return domain.Message{}, err
	}

	active, err := s.senders.IsActive(ctx, cmd.From)
	if err != nil {
		return domain.Message{}, err
	}
	if !active {
		return domain.Message{}, errors.ErrUnknownSender
	}

	message := domain.Message{
		ID:   uuid.New(),
		From: cmd.From,
		To:   cmd.To,
		Text: cmd.Text,
		Kind: cmd.Kind,
		Time: s.now(),
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return domain.Message{}, errors.StoreFault(err)
	}
	observability.MessagesPosted.WithLabelValues(string(message.Kind)).Inc()
	return message, nil
}

// Visible returns what viewer may read, oldest first. A non-nil limit keeps
// the trailing window of that size and must be positive.
func (s *MessageService) Visible(ctx context.Context, viewer string, limit *int) ([]domain.Message, error) {
	n := 0
	if limit != nil {
		if *limit <= 0 {
			return nil, errors.ErrInvalidLimit
		}
		n = *limit
	}
	messages, err := s.messages.FindVisible(ctx, viewer, n)
	if err != nil {
		return nil, errors.StoreFault(err)
	}
	return messages, nil
}

// Edit rewrites recipient, text and kind of a message owned by the
// requester. Status notices cannot be edited. Id and time never change.
func (s *MessageService) Edit(ctx context.Context, cmd domain.EditMessageCommand) error {
	message, err := s.owned(ctx, cmd.ID, cmd.Requester)
	if err != nil {
		return err
	}

	cmd.To = s.sanitizer.Sanitize(cmd.To)
	cmd.Text = s.sanitizer.SanitizeText(cmd.Requester, cmd.Text)
	if err := domain.Validate(cmd); err != nil {
		return err
	}

	message.To = cmd.To
	message.Text = cmd.Text
	message.Kind = cmd.Kind
	if err := s.messages.Update(ctx, message); err != nil {
		return errors.StoreFault(err)
	}
	s.log.Debug("Message edited", "id", message.ID, "by", cmd.Requester)
	return nil
}

func (s *MessageService) Delete(ctx context.Context, id uuid.UUID, requester string) error {
	if _, err := s.owned(ctx, id, requester); err != nil {
		return err
	}
	if err := s.messages.Delete(ctx, id); err != nil {
		return errors.StoreFault(err)
	}
	s.log.Debug("Message deleted", "id", id, "by", requester)
	return nil
}

// RecordSystemEvent writes a status notice from name to everyone. The
// active sender check is skipped: a departure notice is written once the
// participant is already gone.
func (s *MessageService) RecordSystemEvent(ctx context.Context, name, text string) (domain.Message, error) {
	message := domain.NewStatusMessage(name, text, s.now())
	if err := s.messages.Insert(ctx, message); err != nil {
		return domain.Message{}, errors.StoreFault(err)
	}
	observability.MessagesPosted.WithLabelValues(string(message.Kind)).Inc()
	s.log.Info("Status recorded", "name", name, "text", text)
	return message, nil
}

// owned loads the message and checks requester may change it.
func (s *MessageService) owned(ctx context.Context, id uuid.UUID, requester string) (domain.Message, error) {
	message, err := s.messages.Get(ctx, id)
	if err != nil {
		return domain.Message{}, errors.StoreFault(err)
	}
	if !message.IsOwnedBy(requester) {
		return domain.Message{}, errors.ErrNotOwner
	}
	if message.Kind == domain.KindStatus {
		return domain.Message{}, errors.ErrStatusImmutable
	}
	return message, nil
}

func (s *MessageService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}
