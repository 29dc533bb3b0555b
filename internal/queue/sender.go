package queue

import (
	"context"
	"sync"
	"time"

	"github.com/xaenox/cmdbot/internal/client"
	"github.com/xaenox/cmdbot/internal/models"
	"github.com/xaenox/cmdbot/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultStopTimeout  = 5 * time.Second
)

// Transport delivers one wire request.
type Transport interface {
	Send(ctx context.Context, req client.SendRequest, maxRetries int) error
}

type SenderConfig struct {
	ChatID       int64
	MaxRetries   int
	PollInterval time.Duration
	// RateLimit caps sends per second; zero disables limiting.
	RateLimit   float64
	StopTimeout time.Duration
}

// Sender drains the outbound queue in a background goroutine. Each payload
// gets one delivery attempt (with the transport's own retries); failures are
// logged and the payload is dropped.
type Sender struct {
	transport Transport
	history   storage.HistoryStore
	cfg       SenderConfig
	queue     *fifo[models.Payload]
	limiter   *rate.Limiter
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewSender(transport Transport, history storage.HistoryStore, cfg SenderConfig, logger *zap.Logger) *Sender {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = client.DefaultMaxRetries
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Sender{
		transport: transport,
		history:   history,
		cfg:       cfg,
		queue:     newFIFO[models.Payload](),
		limiter:   limiter,
		logger:    logger.Named("sender"),
	}
}

// Start launches the drain worker. Calling it on a running sender is a no-op.
func (s *Sender) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	s.logger.Info("Sender started")
}

// Stop signals the worker, waits for it and sends whatever is still queued.
func (s *Sender) Stop() {
	s.mu.Lock()
	running := s.running
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if running {
		close(stop)
		select {
		case <-done:
		case <-time.After(s.cfg.StopTimeout):
			s.logger.Warn("Sender worker did not stop in time", zap.Duration("timeout", s.cfg.StopTimeout))
		}
	}

	s.Flush(context.Background())
	s.logger.Info("Sender stopped")
}

// Enqueue validates and queues payloads. Payloads without text or markup are
// dropped. It returns the number of payloads accepted.
func (s *Sender) Enqueue(payloads ...models.Payload) int {
	accepted := 0
	for _, p := range payloads {
		if !p.Valid() {
			s.logger.Warn("Dropping empty payload", zap.Any("payload", p))
			continue
		}
		s.queue.push(p)
		accepted++
	}
	return accepted
}

// Pending returns the number of queued payloads.
func (s *Sender) Pending() int {
	return s.queue.len()
}

// Flush synchronously sends every queued payload.
func (s *Sender) Flush(ctx context.Context) {
	if n := s.queue.len(); n > 0 {
		s.logger.Info("Flushing outbound queue", zap.Int("pending", n))
	}
	for {
		p, ok := s.queue.tryPop()
		if !ok {
			return
		}
		s.deliver(ctx, p)
	}
}

func (s *Sender) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx := context.Background()
	for {
		select {
		case <-stop:
			return
		default:
		}

		p, ok := s.queue.pop(s.cfg.PollInterval)
		if !ok {
			continue
		}
		s.deliver(ctx, p)
	}
}

func (s *Sender) deliver(ctx context.Context, p models.Payload) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic while sending", zap.Any("panic", r))
		}
	}()

	req := client.SendRequest{
		ChatID:      s.cfg.ChatID,
		Text:        p.Text,
		ReplyMarkup: p.ReplyMarkup,
		ParseMode:   p.ParseMode,
	}

	if interaction, err := models.NewInteraction(models.Outgoing, req.ChatID, models.TypeMessage, req); err != nil {
		s.logger.Error("Failed to build interaction", zap.Error(err))
	} else if err := s.history.LogInteraction(ctx, interaction); err != nil {
		s.logger.Error("Failed to log outgoing interaction", zap.Error(err), zap.Int64("chat_id", req.ChatID))
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Error("Failed to wait for rate limiter", zap.Error(err))
			return
		}
	}

	s.logger.Debug("Sending message", zap.Int64("chat_id", req.ChatID), zap.String("text", previewText(req.Text)))
	if err := s.transport.Send(ctx, req, s.cfg.MaxRetries); err != nil {
		s.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", req.ChatID))
	}
}
