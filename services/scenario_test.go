package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/sanitize"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type relay struct {
	presence *PresenceService
	messages *MessageService
	clock    *runtime.ManualClock
}

// newRelay wires both services on an in-memory Badger store.
func newRelay(t *testing.T) relay {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := repositories.OpenBadger("", true, log)
	require.NoError(t, err)
	messageRepository, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = messageRepository.Close()
		_ = db.Close()
	})

	clock := runtime.NewManualClock(start)
	sanitizer := sanitize.NewSanitizer(nil, log)
	presence := NewPresenceService(log, repositories.NewParticipantRepository(db, log), sanitizer, clock)
	messages := NewMessageService(log, messageRepository, presence, sanitizer, clock)
	presence.WithNotices(messages)
	return relay{presence: presence, messages: messages, clock: clock}
}

func (r relay) post(t *testing.T, from, to, text string) domain.Message {
	t.Helper()
	kind := domain.KindMessage
	if to != domain.Broadcast {
		kind = domain.KindPrivateMessage
	}
	r.clock.Advance(time.Second)
	msg, err := r.messages.Post(t.Context(), domain.PostMessageCommand{From: from, To: to, Text: text, Kind: kind})
	require.NoError(t, err)
	return msg
}

func (r relay) visibleTexts(t *testing.T, viewer string, limit *int) []string {
	t.Helper()
	messages, err := r.messages.Visible(t.Context(), viewer, limit)
	require.NoError(t, err)
	return lo.Map(messages, func(m domain.Message, _ int) string { return m.From + ":" + m.Text })
}

func TestScenario_DuplicateJoin(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)

	for _, name := range []string{"Alice", "Bob", "José", "a b"} {
		_, err := r.presence.Join(t.Context(), name)
		req.NoError(err)
		_, err = r.presence.Join(t.Context(), name)
		req.ErrorIs(err, errors.ErrNameTaken)
	}

	participants, err := r.presence.List(t.Context())
	req.NoError(err)
	req.Len(participants, 4)
}

func TestScenario_BlankJoinNeverWrites(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	_, err := r.presence.Join(t.Context(), "Alice")
	req.NoError(err)

	for _, name := range []string{"", " ", "\t\n", "<b> </b>"} {
		_, err := r.presence.Join(t.Context(), name)
		req.Equal(errors.CodeValidation, errors.CodeOf(err), "name=%q", name)
	}

	participants, err := r.presence.List(t.Context())
	req.NoError(err)
	req.Len(participants, 1)
	req.Len(r.visibleTexts(t, "Alice", nil), 1)
}

func TestScenario_JoinNotice(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)

	_, err := r.presence.Join(t.Context(), "Alice")
	req.NoError(err)

	messages, err := r.messages.Visible(t.Context(), "Alice", nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("Alice", messages[0].From)
	req.Equal(domain.Broadcast, messages[0].To)
	req.Equal(domain.KindStatus, messages[0].Kind)
	req.Equal(domain.JoinedText, messages[0].Text)
}

func TestScenario_PrivateVisibility(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := r.presence.Join(t.Context(), name)
		req.NoError(err)
	}

	r.post(t, "Alice", "Bob", "secret")
	r.post(t, "Alice", domain.Broadcast, "public")

	req.Contains(r.visibleTexts(t, "Alice", nil), "Alice:secret")
	req.Contains(r.visibleTexts(t, "Bob", nil), "Alice:secret")
	req.NotContains(r.visibleTexts(t, "Carol", nil), "Alice:secret")
	req.Contains(r.visibleTexts(t, "Carol", nil), "Alice:public")
}

func TestScenario_TrailingWindow(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	for _, name := range []string{"Alice", "Bob"} {
		_, err := r.presence.Join(t.Context(), name)
		req.NoError(err)
	}
	for i := 0; i < 4; i++ {
		r.post(t, "Alice", domain.Broadcast, fmt.Sprintf("b%d", i))
		r.post(t, "Bob", "Alice", fmt.Sprintf("p%d", i))
	}

	// Bob sees his own private messages; Carol style viewers would not
	req.Equal([]string{"Alice:b3", "Bob:p3"}, r.visibleTexts(t, "Bob", lo.ToPtr(2)))
	req.Equal([]string{"Bob:p3"}, r.visibleTexts(t, "Bob", lo.ToPtr(1)))
	req.Equal([]string{"Alice:b2", "Bob:p2", "Alice:b3", "Bob:p3"}, r.visibleTexts(t, "Alice", lo.ToPtr(4)))
	req.Equal([]string{"Alice:b2", "Alice:b3"}, r.visibleTexts(t, "Nobody", lo.ToPtr(2)))

	_, err := r.messages.Visible(t.Context(), "Bob", lo.ToPtr(0))
	req.ErrorIs(err, errors.ErrInvalidLimit)
}

func TestScenario_OnlyAuthorChangesMessages(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	for _, name := range []string{"Alice", "Bob"} {
		_, err := r.presence.Join(t.Context(), name)
		req.NoError(err)
	}

	// Given a private message Bob can read
	msg := r.post(t, "Alice", "Bob", "hi Bob")
	req.Contains(r.visibleTexts(t, "Bob", nil), "Alice:hi Bob")

	// Then Bob can neither edit nor delete it
	err := r.messages.Edit(t.Context(), domain.EditMessageCommand{
		ID: msg.ID, Requester: "Bob", To: domain.Broadcast, Text: "hijacked", Kind: domain.KindMessage,
	})
	req.ErrorIs(err, errors.ErrNotOwner)
	req.ErrorIs(r.messages.Delete(t.Context(), msg.ID, "Bob"), errors.ErrNotOwner)

	// Then Alice edits it in place
	req.NoError(r.messages.Edit(t.Context(), domain.EditMessageCommand{
		ID: msg.ID, Requester: "Alice", To: domain.Broadcast, Text: "hi all", Kind: domain.KindMessage,
	}))
	messages, err := r.messages.Visible(t.Context(), "Bob", nil)
	req.NoError(err)
	edited := messages[len(messages)-1]
	req.Equal(msg.ID, edited.ID)
	req.Equal(msg.Time, edited.Time)
	req.Equal("hi all", edited.Text)

	// Then join notices stay untouched even for their subject
	notice := messages[0]
	req.Equal(domain.KindStatus, notice.Kind)
	req.ErrorIs(r.messages.Delete(t.Context(), notice.ID, notice.From), errors.ErrStatusImmutable)
}

func TestScenario_EndToEnd(t *testing.T) {
	req := require.New(t)
	r := newRelay(t)
	ctx := t.Context()

	_, err := r.presence.Join(ctx, "A")
	req.NoError(err)
	hi := r.post(t, "A", domain.Broadcast, "hi")
	req.Equal([]string{"A:" + domain.JoinedText, "A:hi"}, r.visibleTexts(t, "A", nil))

	_, err = r.presence.Join(ctx, "A")
	req.ErrorIs(err, errors.ErrNameTaken)

	err = r.messages.Edit(ctx, domain.EditMessageCommand{
		ID: hi.ID, Requester: "B", To: domain.Broadcast, Text: "x", Kind: domain.KindMessage,
	})
	req.Equal(errors.CodeForbidden, errors.CodeOf(err))

	req.ErrorIs(r.messages.Delete(ctx, uuid.New(), "A"), errors.ErrMessageNotFound)

	// A sender that never joined is refused
	_, err = r.messages.Post(ctx, domain.PostMessageCommand{From: "B", To: domain.Broadcast, Text: "x", Kind: domain.KindMessage})
	req.ErrorIs(err, errors.ErrUnknownSender)
}
