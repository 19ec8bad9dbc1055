package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/runtime"
	"chat-relay/sanitize"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type presenceFixture struct {
	service      *PresenceService
	participants *mocks.MockIParticipantRepository
	notices      *mocks.MockSystemRecorder
	clock        *runtime.ManualClock
}

func newPresenceFixture(t *testing.T) presenceFixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	participants := mocks.NewMockIParticipantRepository(ctrl)
	notices := mocks.NewMockSystemRecorder(ctrl)
	clock := runtime.NewManualClock(start)
	service := NewPresenceService(log, participants, sanitize.NewSanitizer(nil, log), clock).
		WithNotices(notices)
	return presenceFixture{service: service, participants: participants, notices: notices, clock: clock}
}

func TestPresenceService_Join(t *testing.T) {
	req := require.New(t)
	f := newPresenceFixture(t)
	ctx := t.Context()

	// Given a free name, the participant is created then announced
	maria := domain.Participant{Name: "Maria", LastSeen: start}
	gomock.InOrder(
		f.participants.EXPECT().Create(gomock.Any(), maria).Return(nil),
		f.notices.EXPECT().RecordSystemEvent(gomock.Any(), "Maria", domain.JoinedText).
			Return(domain.NewStatusMessage("Maria", domain.JoinedText, start), nil),
	)

	// When joining with surrounding markup and spaces
	participant, err := f.service.Join(ctx, "  <b>Maria</b> ")

	// Then the stored name is the clean one
	req.NoError(err)
	req.Equal(maria, participant)
}

func TestPresenceService_Join_BlankName(t *testing.T) {
	f := newPresenceFixture(t)

	for _, name := range []string{"", "   ", "<i></i>"} {
		_, err := f.service.Join(t.Context(), name)
		require.ErrorIs(t, err, errors.ErrNameRequired, "name=%q", name)
	}
}

func TestPresenceService_Join_BroadcastNameReserved(t *testing.T) {
	req := require.New(t)
	f := newPresenceFixture(t)

	// Given the broadcast token as a name, nothing is stored
	_, err := f.service.Join(t.Context(), " <b>"+domain.Broadcast+"</b> ")

	req.ErrorIs(err, errors.ErrNameReserved)
	req.Equal(errors.CodeValidation, errors.CodeOf(err))
}

func TestPresenceService_Join_NameTaken(t *testing.T) {
	req := require.New(t)
	f := newPresenceFixture(t)

	// Given the store refuses a duplicate, no notice is written
	f.participants.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.ErrNameTaken)

	_, err := f.service.Join(t.Context(), "Maria")
	req.ErrorIs(err, errors.ErrNameTaken)
}

func TestPresenceService_Join_NoticeFails(t *testing.T) {
	req := require.New(t)
	f := newPresenceFixture(t)

	f.participants.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	f.notices.EXPECT().RecordSystemEvent(gomock.Any(), "Maria", domain.JoinedText).
		Return(domain.Message{}, stderrors.New("disk full"))

	// Then the participant stays registered and the fault is reported
	participant, err := f.service.Join(t.Context(), "Maria")
	req.Equal(errors.CodeStoreFault, errors.CodeOf(err))
	req.Equal("Maria", participant.Name)
}

func TestPresenceService_Heartbeat(t *testing.T) {
	req := require.New(t)
	f := newPresenceFixture(t)
	ctx := t.Context()

	f.clock.Advance(3*time.Second + 1500*time.Microsecond)
	// LastSeen is stored at millisecond resolution
	f.participants.EXPECT().Touch(gomock.Any(), "Maria", start.Add(3*time.Second+time.Millisecond)).Return(nil)
	req.NoError(f.service.Heartbeat(ctx, "Maria"))

	f.participants.EXPECT().Touch(gomock.Any(), "Pedro", gomock.Any()).Return(errors.ErrParticipantNotFound)
	req.ErrorIs(f.service.Heartbeat(ctx, "Pedro"), errors.ErrParticipantNotFound)

	// A missing identity never reaches the store
	req.ErrorIs(f.service.Heartbeat(ctx, ""), errors.ErrParticipantNotFound)
}

func TestPresenceService_IsActive(t *testing.T) {
	req := require.New(t)
	f := newPresenceFixture(t)
	ctx := t.Context()

	f.participants.EXPECT().Get(gomock.Any(), "Maria").Return(domain.Participant{Name: "Maria"}, nil)
	active, err := f.service.IsActive(ctx, "Maria")
	req.NoError(err)
	req.True(active)

	f.participants.EXPECT().Get(gomock.Any(), "Pedro").Return(domain.Participant{}, errors.ErrParticipantNotFound)
	active, err = f.service.IsActive(ctx, "Pedro")
	req.NoError(err)
	req.False(active)

	f.participants.EXPECT().Get(gomock.Any(), "Ana").Return(domain.Participant{}, stderrors.New("io"))
	_, err = f.service.IsActive(ctx, "Ana")
	req.Equal(errors.CodeStoreFault, errors.CodeOf(err))

	active, err = f.service.IsActive(ctx, "")
	req.NoError(err)
	req.False(active)
}

func TestPresenceService_StaleAndEvict(t *testing.T) {
	req := require.New(t)
	f := newPresenceFixture(t)
	ctx := t.Context()

	maria := domain.Participant{Name: "Maria", LastSeen: start}
	f.participants.EXPECT().FindStale(gomock.Any(), start).Return([]domain.Participant{maria}, nil)
	stale, err := f.service.Stale(ctx, start)
	req.NoError(err)
	req.Equal([]domain.Participant{maria}, stale)

	f.participants.EXPECT().DeleteIfUnchanged(gomock.Any(), maria).Return(false, nil)
	evicted, err := f.service.Evict(ctx, maria)
	req.NoError(err)
	req.False(evicted)

	f.participants.EXPECT().DeleteIfUnchanged(gomock.Any(), maria).Return(false, stderrors.New("io"))
	_, err = f.service.Evict(ctx, maria)
	req.Equal(errors.CodeStoreFault, errors.CodeOf(err))
}
