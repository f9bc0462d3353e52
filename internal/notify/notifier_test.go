package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrlworks/qrlbot/internal/domain"
)

type recordingSender struct {
	name     string
	messages []Message
	fail     bool
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	if r.fail {
		return assert.AnError
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingSender) Name() string { return r.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fieldValue(t *testing.T, msg Message, name string) string {
	t.Helper()
	for _, f := range msg.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("field %q not found in %v", name, msg.Fields)
	return ""
}

func TestNotifyFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventAllocationExecuted}, testLogger())

	require.NoError(t, n.Notify(context.Background(), Message{Event: EventAllocationSkipped, Title: "skip"}))
	assert.Empty(t, s.messages)

	require.NoError(t, n.Notify(context.Background(), Message{Event: EventAllocationExecuted, Title: "exec"}))
	require.Len(t, s.messages, 1)
	assert.Equal(t, "exec", s.messages[0].Title)
}

func TestNotifyEmptyEventListAllowsAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), Message{Event: "anything", Title: "t"}))
	assert.Len(t, s.messages, 1)
}

func TestNotifyAllocationRendersResult(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	res := domain.AllocationResult{
		RequestID:   "req-42",
		Status:      domain.AllocationStatusOK,
		ExecutedAt:  time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		Action:      domain.AllocationActionSell,
		OrderID:     "ord-7",
		SlippagePct: decimal.RequireFromString("0.42"),
	}
	require.NoError(t, n.NotifyAllocation(context.Background(), res))

	require.Len(t, s.messages, 1)
	msg := s.messages[0]
	assert.Equal(t, EventAllocationExecuted, msg.Event)
	assert.Contains(t, msg.Title, "SELL")
	assert.Equal(t, "req-42", fieldValue(t, msg, "request"))
	assert.Equal(t, "ord-7", fieldValue(t, msg, "order"))
	assert.Equal(t, "0.4200%", fieldValue(t, msg, "slippage"))
}

func TestNotifyArchiveReportsCounts(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	require.NoError(t, n.NotifyArchive(context.Background(), 12, 3))

	require.Len(t, s.messages, 1)
	msg := s.messages[0]
	assert.Equal(t, EventArchiveCompleted, msg.Event)
	assert.Equal(t, "12", fieldValue(t, msg, "allocation runs"))
	assert.Equal(t, "3", fieldValue(t, msg, "orders"))
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &recordingSender{name: "bad", fail: true}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), Message{Event: "e", Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.messages, 1)
}

func TestTelegramSenderRendersFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottok/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"chat_id":"chat1"`)
		assert.Contains(t, string(body), `*Allocation executed: SELL*`)
		assert.Contains(t, string(body), `order: ord-7`)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "chat1")
	s.apiBase = srv.URL
	msg := Message{
		Event:  EventAllocationExecuted,
		Title:  "Allocation executed: SELL",
		Fields: []Field{{Name: "order", Value: "ord-7"}},
	}
	require.NoError(t, s.Send(context.Background(), msg))
}

func TestDiscordSenderBuildsEmbed(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	msg := Message{
		Event: EventAllocationRejected,
		Title: "Allocation rejected",
		Fields: []Field{
			{Name: "request", Value: "req-42"},
			{Name: "reason", Value: "slippage 6.1% exceeds threshold"},
		},
	}
	require.NoError(t, s.Send(context.Background(), msg))

	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "Allocation rejected", embed.Title)
	assert.Equal(t, colorRejected, embed.Color)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "request", embed.Fields[0].Name)
	assert.Equal(t, "req-42", embed.Fields[0].Value)
	assert.True(t, embed.Fields[0].Inline)
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), Message{Event: "e", Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
