package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"chat-relay/sanitize"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type messageFixture struct {
	service  *MessageService
	messages *mocks.MockIMessageRepository
	senders  *mocks.MockActivityChecker
}

func newMessageFixture(t *testing.T) messageFixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	messages := mocks.NewMockIMessageRepository(ctrl)
	senders := mocks.NewMockActivityChecker(ctrl)
	service := NewMessageService(log, messages, senders, sanitize.NewSanitizer(nil, log), runtime.NewManualClock(start))
	return messageFixture{service: service, messages: messages, senders: senders}
}

func TestMessageService_Post(t *testing.T) {
	req := require.New(t)
	f := newMessageFixture(t)

	f.senders.EXPECT().IsActive(gomock.Any(), "Maria").Return(true, nil)
	var stored domain.Message
	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, m domain.Message) error {
			stored = m
			return nil
		})

	msg, err := f.service.Post(t.Context(), domain.PostMessageCommand{
		From: "Maria", To: " João ", Text: "<b>oi</b>", Kind: domain.KindPrivateMessage,
	})

	req.NoError(err)
	req.Equal(stored, msg)
	req.NotEqual(uuid.Nil, msg.ID)
	req.Equal("Maria", msg.From)
	req.Equal("João", msg.To)
	req.Equal("oi", msg.Text)
	req.Equal(domain.KindPrivateMessage, msg.Kind)
	req.Equal(start, msg.Time)
}

func TestMessageService_Post_UnknownSender(t *testing.T) {
	f := newMessageFixture(t)
	f.senders.EXPECT().IsActive(gomock.Any(), "Pedro").Return(false, nil)

	_, err := f.service.Post(t.Context(), domain.PostMessageCommand{
		From: "Pedro", To: domain.Broadcast, Text: "hi", Kind: domain.KindMessage,
	})
	require.ErrorIs(t, err, errors.ErrUnknownSender)
}

func TestMessageService_Post_Invalid(t *testing.T) {
	f := newMessageFixture(t)
	valid := domain.PostMessageCommand{From: "Maria", To: domain.Broadcast, Text: "hi", Kind: domain.KindMessage}

	// Validation runs first: neither the sender check nor the store is reached
	tests := map[string]func(c *domain.PostMessageCommand){
		"blank text":     func(c *domain.PostMessageCommand) { c.Text = "   " },
		"markup only":    func(c *domain.PostMessageCommand) { c.Text = "<p></p>" },
		"blank to":       func(c *domain.PostMessageCommand) { c.To = "" },
		"status kind":    func(c *domain.PostMessageCommand) { c.Kind = domain.KindStatus },
		"unknown kind":   func(c *domain.PostMessageCommand) { c.Kind = "shout" },
		"missing sender": func(c *domain.PostMessageCommand) { c.From = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := valid
			mutate(&cmd)
			_, err := f.service.Post(t.Context(), cmd)
			require.Equal(t, errors.CodeValidation, errors.CodeOf(err))
		})
	}
}

func TestMessageService_Post_StoreFault(t *testing.T) {
	f := newMessageFixture(t)
	f.senders.EXPECT().IsActive(gomock.Any(), "Maria").Return(true, nil)
	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(stderrors.New("disk full"))

	_, err := f.service.Post(t.Context(), domain.PostMessageCommand{
		From: "Maria", To: domain.Broadcast, Text: "hi", Kind: domain.KindMessage,
	})
	require.Equal(t, errors.CodeStoreFault, errors.CodeOf(err))
}

func TestMessageService_Visible(t *testing.T) {
	req := require.New(t)
	f := newMessageFixture(t)
	ctx := t.Context()

	f.messages.EXPECT().FindVisible(gomock.Any(), "Maria", 0).Return([]domain.Message{}, nil)
	_, err := f.service.Visible(ctx, "Maria", nil)
	req.NoError(err)

	f.messages.EXPECT().FindVisible(gomock.Any(), "Maria", 3).Return([]domain.Message{}, nil)
	_, err = f.service.Visible(ctx, "Maria", lo.ToPtr(3))
	req.NoError(err)

	_, err = f.service.Visible(ctx, "Maria", lo.ToPtr(0))
	req.ErrorIs(err, errors.ErrInvalidLimit)
	_, err = f.service.Visible(ctx, "Maria", lo.ToPtr(-2))
	req.ErrorIs(err, errors.ErrInvalidLimit)
}

func TestMessageService_Edit(t *testing.T) {
	req := require.New(t)
	f := newMessageFixture(t)
	ctx := t.Context()
	original := domain.Message{
		ID: uuid.New(), From: "Maria", To: domain.Broadcast, Text: "oi", Kind: domain.KindMessage, Time: start,
	}

	// Given the author edits recipient, text and kind
	f.messages.EXPECT().Get(gomock.Any(), original.ID).Return(original, nil)
	edited := original
	edited.To = "João"
	edited.Text = "oi João"
	edited.Kind = domain.KindPrivateMessage
	f.messages.EXPECT().Update(gomock.Any(), edited).Return(nil)

	err := f.service.Edit(ctx, domain.EditMessageCommand{
		ID: original.ID, Requester: "Maria", To: "João", Text: " oi João ", Kind: domain.KindPrivateMessage,
	})

	// Then id and time are kept
	req.NoError(err)
}

func TestMessageService_Edit_Refused(t *testing.T) {
	id := uuid.New()
	own := domain.Message{ID: id, From: "Maria", To: domain.Broadcast, Text: "oi", Kind: domain.KindMessage, Time: start}
	status := domain.NewStatusMessage("Maria", domain.JoinedText, start)
	status.ID = id
	cmd := domain.EditMessageCommand{ID: id, Requester: "Maria", To: domain.Broadcast, Text: "new", Kind: domain.KindMessage}

	tests := []struct {
		name     string
		stored   domain.Message
		getErr   error
		mutate   func(c *domain.EditMessageCommand)
		expected error
		code     errors.Code
	}{
		{name: "Unknown message", getErr: errors.ErrMessageNotFound, expected: errors.ErrMessageNotFound},
		{name: "Not the author", stored: own, mutate: func(c *domain.EditMessageCommand) { c.Requester = "Pedro" }, expected: errors.ErrNotOwner},
		{name: "Anonymous requester", stored: own, mutate: func(c *domain.EditMessageCommand) { c.Requester = "" }, expected: errors.ErrNotOwner},
		{name: "Status notice", stored: status, expected: errors.ErrStatusImmutable},
		{name: "Blank text", stored: own, mutate: func(c *domain.EditMessageCommand) { c.Text = " " }, code: errors.CodeValidation},
		{name: "Status kind", stored: own, mutate: func(c *domain.EditMessageCommand) { c.Kind = domain.KindStatus }, code: errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMessageFixture(t)
			f.messages.EXPECT().Get(gomock.Any(), id).Return(tt.stored, tt.getErr)

			c := cmd
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			err := f.service.Edit(t.Context(), c)
			if tt.expected != nil {
				require.ErrorIs(t, err, tt.expected)
				return
			}
			require.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func TestMessageService_Delete(t *testing.T) {
	req := require.New(t)
	f := newMessageFixture(t)
	ctx := t.Context()
	own := domain.Message{ID: uuid.New(), From: "Maria", To: domain.Broadcast, Text: "oi", Kind: domain.KindMessage, Time: start}

	f.messages.EXPECT().Get(gomock.Any(), own.ID).Return(own, nil).Times(2)
	req.ErrorIs(f.service.Delete(ctx, own.ID, "Pedro"), errors.ErrNotOwner)

	f.messages.EXPECT().Delete(gomock.Any(), own.ID).Return(nil)
	req.NoError(f.service.Delete(ctx, own.ID, "Maria"))

	status := domain.NewStatusMessage("Maria", domain.LeftText, start)
	f.messages.EXPECT().Get(gomock.Any(), status.ID).Return(status, nil)
	req.ErrorIs(f.service.Delete(ctx, status.ID, "Maria"), errors.ErrStatusImmutable)

	missing := uuid.New()
	f.messages.EXPECT().Get(gomock.Any(), missing).Return(domain.Message{}, errors.ErrMessageNotFound)
	req.ErrorIs(f.service.Delete(ctx, missing, "Maria"), errors.ErrMessageNotFound)
}

func TestMessageService_RecordSystemEvent(t *testing.T) {
	req := require.New(t)
	f := newMessageFixture(t)

	// No sender check: the participant may already be gone
	f.messages.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	msg, err := f.service.RecordSystemEvent(t.Context(), "Maria", domain.LeftText)

	req.NoError(err)
	req.Equal("Maria", msg.From)
	req.Equal(domain.Broadcast, msg.To)
	req.Equal(domain.LeftText, msg.Text)
	req.Equal(domain.KindStatus, msg.Kind)
	req.Equal(start, msg.Time)
}
