package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingServer struct {
	mu       sync.Mutex
	statuses []int
	requests []*http.Request
	forms    []map[string]string
}

func (s *recordingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		s.mu.Lock()
		idx := len(s.requests)
		s.requests = append(s.requests, r)
		form := map[string]string{}
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		s.forms = append(s.forms, form)
		status := http.StatusOK
		if idx < len(s.statuses) {
			status = s.statuses[idx]
		}
		s.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

func (s *recordingServer) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestClient(t *testing.T, url string) (*Client, *[]time.Duration) {
	t.Helper()
	c := New(Config{APIBaseURL: url + "/bot", Token: "TOKEN"}, nil, zaptest.NewLogger(t))
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, Backoff(0))
	assert.Equal(t, 1*time.Second, Backoff(1))
	assert.Equal(t, 2*time.Second, Backoff(2))
	assert.Equal(t, 32*time.Second, Backoff(6))
	assert.Equal(t, time.Minute, Backoff(7))
	assert.Equal(t, time.Minute, Backoff(35))
	assert.Equal(t, time.Minute, Backoff(1000))
	assert.Equal(t, 500*time.Millisecond, Backoff(-1))
}

func TestSendSuccess(t *testing.T) {
	rs := &recordingServer{}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Greet", "/greet")),
	)

	err := c.Send(context.Background(), SendRequest{ChatID: 42, Text: "hi", ReplyMarkup: &markup}, 3)
	require.NoError(t, err)
	require.Equal(t, 1, rs.attempts())
	assert.Empty(t, *sleeps)

	assert.Equal(t, "/botTOKEN/sendMessage", rs.requests[0].URL.Path)
	assert.Equal(t, "42", rs.forms[0]["chat_id"])
	assert.Equal(t, "hi", rs.forms[0]["text"])

	var decoded tgbotapi.InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(rs.forms[0]["reply_markup"]), &decoded))
	require.Len(t, decoded.InlineKeyboard, 1)
	assert.Equal(t, "/greet", *decoded.InlineKeyboard[0][0].CallbackData)
}

func TestSendClientErrorIsNotRetried(t *testing.T) {
	rs := &recordingServer{statuses: []int{http.StatusBadRequest}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	err := c.Send(context.Background(), SendRequest{ChatID: 1, Text: "x"}, 3)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, 1, rs.attempts())
	assert.Empty(t, *sleeps)
}

func TestSendRetriesServerError(t *testing.T) {
	rs := &recordingServer{statuses: []int{http.StatusInternalServerError, http.StatusOK}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	require.NoError(t, c.Send(context.Background(), SendRequest{ChatID: 1, Text: "x"}, 3))
	assert.Equal(t, 2, rs.attempts())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *sleeps)
}

func TestSendRetriesTooManyRequests(t *testing.T) {
	rs := &recordingServer{statuses: []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusOK}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	require.NoError(t, c.Send(context.Background(), SendRequest{ChatID: 1, Text: "x"}, 3))
	assert.Equal(t, 3, rs.attempts())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, *sleeps)
}

func TestSendExhaustsRetries(t *testing.T) {
	rs := &recordingServer{statuses: []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway}}
	srv := httptest.NewServer(rs.handler(t))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	err := c.Send(context.Background(), SendRequest{ChatID: 1, Text: "x"}, 3)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.Contains(t, apiErr.Error(), "3 attempts")
	assert.Equal(t, 3, rs.attempts())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, *sleeps)
}

func TestSendConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, sleeps := newTestClient(t, url)
	err := c.Send(context.Background(), SendRequest{ChatID: 1, Text: "x"}, 3)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 3, netErr.Attempts)
	assert.Len(t, *sleeps, 2)
}

func TestSendUnsupportedSchemeFailsFast(t *testing.T) {
	c, sleeps := newTestClient(t, "ftp://example.invalid")
	err := c.Send(context.Background(), SendRequest{ChatID: 1, Text: "x"}, 3)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 1, netErr.Attempts)
	assert.Empty(t, *sleeps)
}

func TestFetchUpdates(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"timeout": r.URL.Query().Get("timeout"),
			"offset":  r.URL.Query().Get("offset"),
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":5,"message":{"message_id":1,"date":0,"text":"hi","chat":{"id":7,"type":"private"}}},
			{"update_id":6,"callback_query":{"id":"q","data":"/menu_main","message":{"message_id":2,"date":0,"chat":{"id":7,"type":"private"}}}}
		]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	offset := 5
	updates, err := c.FetchUpdates(context.Background(), UpdatesRequest{Timeout: time.Second, Offset: &offset})
	require.NoError(t, err)
	require.Len(t, updates, 2)

	assert.Equal(t, "1", gotQuery["timeout"])
	assert.Equal(t, "5", gotQuery["offset"])
	assert.Equal(t, 5, updates[0].UpdateID)
	assert.Equal(t, "hi", updates[0].Message.Text)
	assert.Equal(t, "/menu_main", updates[1].CallbackQuery.Data)
}

func TestFetchUpdatesOmitsOffset(t *testing.T) {
	var hasOffset bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasOffset = r.URL.Query().Has("offset")
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	updates, err := c.FetchUpdates(context.Background(), UpdatesRequest{Timeout: time.Second})
	require.NoError(t, err)
	assert.Empty(t, updates)
	assert.False(t, hasOffset)
}

func TestFetchUpdatesHTTPErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.FetchUpdates(context.Background(), UpdatesRequest{Timeout: time.Second})

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "getUpdates", netErr.Op)
}
