package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	DefaultAPIBaseURL      = "https://api.telegram.org/bot"
	DefaultSendEndpoint    = "/sendMessage"
	DefaultUpdatesEndpoint = "/getUpdates"
	DefaultMaxRetries      = 3
	DefaultRequestTimeout  = 10 * time.Second

	baseBackoff = 500 * time.Millisecond
	maxBackoff  = time.Minute
	bodyLimit   = 1 << 20
)

// Config describes how to reach the messaging API.
type Config struct {
	APIBaseURL      string
	Token           string
	SendEndpoint    string
	UpdatesEndpoint string
	RequestTimeout  time.Duration
}

// SendRequest is the wire form of one outbound message.
type SendRequest struct {
	ChatID      int64                          `json:"chat_id"`
	Text        string                         `json:"text"`
	ReplyMarkup *tgbotapi.InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	ParseMode   string                         `json:"parse_mode,omitempty"`
}

// UpdatesRequest holds the long-poll parameters. A nil Offset is omitted.
type UpdatesRequest struct {
	Timeout time.Duration
	Offset  *int
}

// Client is a thin HTTP wrapper around sendMessage and getUpdates.
type Client struct {
	http           *http.Client
	sendURL        string
	updatesURL     string
	requestTimeout time.Duration
	logger         *zap.Logger
	sleep          func(context.Context, time.Duration) error
}

func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.APIBaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}
	sendEndpoint := cfg.SendEndpoint
	if sendEndpoint == "" {
		sendEndpoint = DefaultSendEndpoint
	}
	updatesEndpoint := cfg.UpdatesEndpoint
	if updatesEndpoint == "" {
		updatesEndpoint = DefaultUpdatesEndpoint
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Client{
		http:           httpClient,
		sendURL:        base + cfg.Token + sendEndpoint,
		updatesURL:     base + cfg.Token + updatesEndpoint,
		requestTimeout: timeout,
		logger:         logger.Named("client"),
		sleep:          sleepContext,
	}
}

// Backoff returns the delay before retrying after the given zero-based attempt.
// The delay doubles per attempt and is capped at one minute.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := baseBackoff
	for i := 0; i < attempt && delay < maxBackoff; i++ {
		delay *= 2
	}
	return min(delay, maxBackoff)
}

// Send posts a message, retrying 5xx, 429 and connection/timeout failures
// with exponential backoff. Other 4xx responses abort immediately.
func (c *Client) Send(ctx context.Context, req SendRequest, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	form, err := req.form()
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		status, body, err := c.post(ctx, form)
		switch {
		case err == nil && status < http.StatusBadRequest:
			return nil
		case err == nil:
			if status < http.StatusInternalServerError && status != http.StatusTooManyRequests {
				c.logger.Error("Non-recoverable API error",
					zap.Int("status", status),
					zap.String("body", body))
				return &APIError{StatusCode: status, Body: body, Attempts: attempt + 1}
			}
			lastErr = &APIError{StatusCode: status, Body: body}
		case ctx.Err() != nil:
			return &NetworkError{Op: "sendMessage", Attempts: attempt + 1, Err: ctx.Err()}
		case recoverable(err):
			lastErr = err
		default:
			c.logger.Error("Unexpected request error", zap.Error(err))
			return &NetworkError{Op: "sendMessage", Attempts: attempt + 1, Err: err}
		}

		if attempt < maxRetries-1 {
			wait := Backoff(attempt)
			c.logger.Warn("Send attempt failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", maxRetries),
				zap.Duration("wait", wait),
				zap.Error(lastErr))
			if err := c.sleep(ctx, wait); err != nil {
				return &NetworkError{Op: "sendMessage", Attempts: attempt + 1, Err: err}
			}
		}
	}

	c.logger.Error("Giving up sending message", zap.Int("attempts", maxRetries), zap.Error(lastErr))
	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		apiErr.Attempts = maxRetries
		return apiErr
	}
	return &NetworkError{Op: "sendMessage", Attempts: maxRetries, Err: lastErr}
}

// FetchUpdates performs one long-poll call. Transport failures come back as
// *NetworkError and are never retried here.
func (c *Client) FetchUpdates(ctx context.Context, req UpdatesRequest) ([]tgbotapi.Update, error) {
	query := url.Values{}
	query.Set("timeout", strconv.Itoa(int(req.Timeout/time.Second)))
	if req.Offset != nil {
		query.Set("offset", strconv.Itoa(*req.Offset))
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout+c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.updatesURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &NetworkError{Op: "getUpdates", Attempts: 1, Err: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: "getUpdates", Attempts: 1, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return nil, &NetworkError{Op: "getUpdates", Attempts: 1, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &NetworkError{
			Op:       "getUpdates",
			Attempts: 1,
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var apiResp tgbotapi.APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decode getUpdates response: %w", err)
	}
	if !apiResp.Ok && (apiResp.ErrorCode != 0 || apiResp.Description != "") {
		return nil, &APIError{StatusCode: apiResp.ErrorCode, Body: apiResp.Description, Attempts: 1}
	}
	if len(apiResp.Result) == 0 {
		return nil, nil
	}

	var updates []tgbotapi.Update
	if err := json.Unmarshal(apiResp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

func (c *Client) post(ctx context.Context, form url.Values) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}

func (r SendRequest) form() (url.Values, error) {
	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(r.ChatID, 10))
	form.Set("text", r.Text)
	if r.ParseMode != "" {
		form.Set("parse_mode", r.ParseMode)
	}
	if r.ReplyMarkup != nil {
		markup, err := json.Marshal(r.ReplyMarkup)
		if err != nil {
			return nil, fmt.Errorf("marshal reply markup: %w", err)
		}
		form.Set("reply_markup", string(markup))
	}
	return form, nil
}

// recoverable reports whether a transport error is worth another attempt.
func recoverable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
