package api

import (
	"bytes"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/sanitize"
	"chat-relay/services"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type scenario struct {
	t       *testing.T
	server  *httptest.Server
	clock   *runtime.ManualClock
	sweeper *workers.EvictionWorker
}

func newScenario(t *testing.T) *scenario {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := repositories.OpenBadger("", true, log)
	require.NoError(t, err)
	messageRepository, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)

	clock := runtime.NewManualClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	sanitizer := sanitize.NewSanitizer(nil, log)
	presence := services.NewPresenceService(log, repositories.NewParticipantRepository(db, log), sanitizer, clock)
	messages := services.NewMessageService(log, messageRepository, presence, sanitizer, clock)
	presence.WithNotices(messages)

	server := httptest.NewServer(NewRouter(log, presence, messages, repositories.NewBadgerPinger(db), 1<<16))
	t.Cleanup(func() {
		server.Close()
		_ = messageRepository.Close()
		_ = db.Close()
	})
	return &scenario{
		t:       t,
		server:  server,
		clock:   clock,
		sweeper: workers.NewEvictionWorker(log, presence, messages, clock, 15*time.Second, 10*time.Second),
	}
}

func (s *scenario) call(method, path, user string, body any) (*http.Response, []byte) {
	s.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&payload).Encode(body))
	}
	r, err := http.NewRequestWithContext(s.t.Context(), method, s.server.URL+path, &payload)
	require.NoError(s.t, err)
	r.Header.Set("Content-Type", "application/json")
	if user != "" {
		r.Header.Set(UserHeader, user)
	}
	resp, err := s.server.Client().Do(r)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(s.t, err)
	return resp, buf.Bytes()
}

func (s *scenario) status(method, path, user string, body any) int {
	s.t.Helper()
	resp, _ := s.call(method, path, user, body)
	return resp.StatusCode
}

func (s *scenario) messages(user, query string) []MessageResponse {
	s.t.Helper()
	resp, body := s.call(http.MethodGet, "/messages"+query, user, nil)
	require.Equal(s.t, http.StatusOK, resp.StatusCode)
	var out []MessageResponse
	require.NoError(s.t, json.Unmarshal(body, &out))
	return out
}

func (s *scenario) participants() []ParticipantResponse {
	s.t.Helper()
	resp, body := s.call(http.MethodGet, "/participants", "", nil)
	require.Equal(s.t, http.StatusOK, resp.StatusCode)
	var out []ParticipantResponse
	require.NoError(s.t, json.Unmarshal(body, &out))
	return out
}

func TestScenario_ChatSession(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)

	// Join
	req.Equal(http.StatusCreated, s.status(http.MethodPost, "/participants", "", map[string]string{"name": "A"}))
	req.Equal(http.StatusConflict, s.status(http.MethodPost, "/participants", "", map[string]string{"name": "A"}))
	req.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPost, "/participants", "", map[string]string{"name": "  "}))

	// Post
	s.clock.Advance(time.Second)
	resp, body := s.call(http.MethodPost, "/messages", "A", messageRequest{To: domain.Broadcast, Text: "hi", Type: "message"})
	req.Equal(http.StatusCreated, resp.StatusCode)
	var hi MessageResponse
	req.NoError(json.Unmarshal(body, &hi))
	req.Equal("10:00:01", hi.Time)

	history := s.messages("A", "")
	req.Len(history, 2)
	req.Equal("status", history[0].Type)
	req.Equal("entered", history[0].Text)
	req.Equal("hi", history[1].Text)

	// Unknown sender and bad input
	req.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPost, "/messages", "B", messageRequest{To: domain.Broadcast, Text: "x", Type: "message"}))
	req.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPost, "/messages", "A", messageRequest{To: domain.Broadcast, Text: "x", Type: "status"}))
	req.Equal(http.StatusUnprocessableEntity, s.status(http.MethodGet, "/messages?limit=0", "A", nil))

	// Ownership
	req.Equal(http.StatusUnauthorized, s.status(http.MethodPut, "/messages/"+hi.ID, "B", messageRequest{To: domain.Broadcast, Text: "x", Type: "message"}))
	req.Equal(http.StatusUnauthorized, s.status(http.MethodDelete, "/messages/"+hi.ID, "B", nil))
	req.Equal(http.StatusNotFound, s.status(http.MethodDelete, "/messages/"+uuid.NewString(), "A", nil))
	req.Equal(http.StatusOK, s.status(http.MethodPut, "/messages/"+hi.ID, "A", messageRequest{To: domain.Broadcast, Text: "hello", Type: "message"}))

	edited := s.messages("A", "?limit=1")
	req.Len(edited, 1)
	req.Equal(hi.ID, edited[0].ID)
	req.Equal("hello", edited[0].Text)
	req.Equal(hi.Time, edited[0].Time)

	req.Equal(http.StatusOK, s.status(http.MethodDelete, "/messages/"+hi.ID, "A", nil))
	req.Len(s.messages("A", ""), 1)
}

func TestScenario_PrivateMessages(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		req.Equal(http.StatusCreated, s.status(http.MethodPost, "/participants", "", map[string]string{"name": name}))
	}

	req.Equal(http.StatusCreated, s.status(http.MethodPost, "/messages", "Alice",
		messageRequest{To: "Bob", Text: "<b>psst</b>", Type: "private_message"}))

	texts := func(user string) []string {
		var out []string
		for _, m := range s.messages(user, "") {
			if m.Type != "status" {
				out = append(out, m.Text)
			}
		}
		return out
	}
	req.Equal([]string{"psst"}, texts("Alice"))
	req.Equal([]string{"psst"}, texts("Bob"))
	req.Empty(texts("Carol"))
}

func TestScenario_HeartbeatAndEviction(t *testing.T) {
	req := require.New(t)
	s := newScenario(t)
	for _, name := range []string{"Alice", "Bob"} {
		req.Equal(http.StatusCreated, s.status(http.MethodPost, "/participants", "", map[string]string{"name": name}))
	}

	req.Equal(http.StatusNotFound, s.status(http.MethodPost, "/status", "Carol", nil))
	req.Equal(http.StatusNotFound, s.status(http.MethodPost, "/status", "", nil))

	// Bob keeps his session alive, Alice goes silent
	s.clock.Advance(8 * time.Second)
	req.Equal(http.StatusOK, s.status(http.MethodPost, "/status", "Bob", nil))
	s.clock.Advance(8 * time.Second)
	s.sweeper.Sweep(t.Context())

	names := s.participants()
	req.Len(names, 1)
	req.Equal("Bob", names[0].Name)

	left := 0
	for _, m := range s.messages("Bob", "") {
		if m.Type == "status" && m.From == "Alice" && m.Text == domain.LeftText {
			left++
		}
	}
	req.Equal(1, left)

	// Alice is no longer allowed to post or heartbeat
	req.Equal(http.StatusUnprocessableEntity, s.status(http.MethodPost, "/messages", "Alice",
		messageRequest{To: domain.Broadcast, Text: "anyone?", Type: "message"}))
	req.Equal(http.StatusNotFound, s.status(http.MethodPost, "/status", "Alice", nil))
}

func TestScenario_Health(t *testing.T) {
	s := newScenario(t)
	require.Equal(t, http.StatusOK, s.status(http.MethodGet, "/health", "", nil))
	require.Equal(t, http.StatusOK, s.status(http.MethodGet, "/metrics", "", nil))
}
