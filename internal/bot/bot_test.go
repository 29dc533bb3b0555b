package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/cmdbot/internal/client"
	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/models"
	"github.com/xaenox/cmdbot/internal/queue"
	"github.com/xaenox/cmdbot/internal/storage"
	"go.uber.org/zap/zaptest"
)

type emptyInbox struct{}

func (emptyInbox) Next(wait time.Duration) (*tgbotapi.Update, bool) {
	time.Sleep(wait)
	return nil, false
}

type discardOutbox struct{}

func (discardOutbox) Enqueue(payloads ...models.Payload) int { return len(payloads) }

// fakeTelegram serves getUpdates from a fixed batch once, then empty results,
// and records every sendMessage form.
type fakeTelegram struct {
	mu      sync.Mutex
	pending []tgbotapi.Update
	sent    []string
	chats   []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()

		if len(batch) == 0 {
			select {
			case <-r.Context().Done():
			case <-time.After(20 * time.Millisecond):
			}
			batch = []tgbotapi.Update{}
		}
		result, _ := json.Marshal(batch)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": json.RawMessage(result)})
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.sent = append(f.sent, r.PostForm.Get("text"))
		f.chats = append(f.chats, r.PostForm.Get("chat_id"))
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTelegram) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func testConfig(baseURL string) Config {
	return Config{
		Client:   client.Config{APIBaseURL: baseURL + "/bot", Token: "TOKEN"},
		Sender:   queue.SenderConfig{ChatID: 77, PollInterval: 5 * time.Millisecond},
		Receiver: queue.ReceiverConfig{PollTimeout: time.Second},
		Router:   RouterConfig{PollInterval: 5 * time.Millisecond},
	}
}

func TestBotAnswersCommands(t *testing.T) {
	fake := &fakeTelegram{pending: []tgbotapi.Update{
		{UpdateID: 1, Message: &tgbotapi.Message{Text: "/hello", Chat: &tgbotapi.Chat{ID: 77}}},
	}}
	server := httptest.NewServer(fake)
	defer server.Close()

	registry := command.NewRegistry()
	table := command.NewTable("demo", registry)
	require.NoError(t, table.Bind(command.Definition{Name: "/hello"},
		func(context.Context, command.Args) ([]models.Payload, error) {
			return []models.Payload{models.TextPayload("Hello!")}, nil
		}))

	history := storage.NewMemoryStorage()
	b, err := New(testConfig(server.URL), history, registry, zaptest.NewLogger(t), table)
	require.NoError(t, err)

	b.Start()
	require.Eventually(t, func() bool { return len(fake.sentTexts()) == 1 }, 2*time.Second, 10*time.Millisecond)
	b.Stop()

	assert.Equal(t, []string{"Hello!"}, fake.sentTexts())
	assert.Equal(t, []string{"77"}, fake.chats)

	logged, err := history.RecentInteractions(context.Background(), 77, 10)
	require.NoError(t, err)
	require.Len(t, logged, 2)
	assert.Equal(t, models.Outgoing, logged[0].Direction)
	assert.Equal(t, models.Incoming, logged[1].Direction)
}

func TestProbeUpdates(t *testing.T) {
	fake := &fakeTelegram{pending: []tgbotapi.Update{
		{UpdateID: 3, Message: &tgbotapi.Message{Text: "hi", Chat: &tgbotapi.Chat{ID: 77}}},
	}}
	server := httptest.NewServer(fake)
	defer server.Close()

	b, err := New(testConfig(server.URL), storage.NewMemoryStorage(), command.NewRegistry(), zaptest.NewLogger(t))
	require.NoError(t, err)

	updates, err := b.ProbeUpdates(context.Background())
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, 3, updates[0].UpdateID)
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := testConfig("http://127.0.0.1")
	cfg.Client.Token = ""
	_, err := New(cfg, storage.NewMemoryStorage(), command.NewRegistry(), zaptest.NewLogger(t))
	assert.Error(t, err)

	cfg = testConfig("http://127.0.0.1")
	cfg.Sender.ChatID = 0
	_, err = New(cfg, storage.NewMemoryStorage(), command.NewRegistry(), zaptest.NewLogger(t))
	assert.Error(t, err)
}
