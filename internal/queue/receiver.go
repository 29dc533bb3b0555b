package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cmdbot/internal/client"
	"github.com/xaenox/cmdbot/internal/models"
	"github.com/xaenox/cmdbot/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultLongPollTimeout = 30 * time.Second
	defaultNetworkBackoff  = 3 * time.Second
	defaultErrorBackoff    = time.Second
	bookkeepingTimeout     = 5 * time.Second
)

// Fetcher performs one long-poll request.
type Fetcher interface {
	FetchUpdates(ctx context.Context, req client.UpdatesRequest) ([]tgbotapi.Update, error)
}

type ReceiverConfig struct {
	PollTimeout    time.Duration
	NetworkBackoff time.Duration
	ErrorBackoff   time.Duration
	StopTimeout    time.Duration
	PersistOffset  bool
}

// Receiver long-polls for updates, logs each one and queues it for the
// router. It owns the poll offset.
type Receiver struct {
	fetcher Fetcher
	history storage.HistoryStore
	cfg     ReceiverConfig
	queue   *fifo[*tgbotapi.Update]
	logger  *zap.Logger
	sleep   func(context.Context, time.Duration) error

	mu           sync.Mutex
	lastUpdateID int
	hasOffset    bool
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
}

func NewReceiver(fetcher Fetcher, history storage.HistoryStore, cfg ReceiverConfig, logger *zap.Logger) *Receiver {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultLongPollTimeout
	}
	if cfg.NetworkBackoff <= 0 {
		cfg.NetworkBackoff = defaultNetworkBackoff
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = defaultErrorBackoff
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}

	return &Receiver{
		fetcher: fetcher,
		history: history,
		cfg:     cfg,
		queue:   newFIFO[*tgbotapi.Update](),
		logger:  logger.Named("receiver"),
		sleep:   sleepContext,
	}
}

// Start launches the polling worker. Calling it on a running receiver is a no-op.
func (r *Receiver) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	if r.cfg.PersistOffset && !r.hasOffset {
		offset, ok, err := r.history.LoadOffset(ctx)
		switch {
		case err != nil:
			r.logger.Error("Failed to load poll offset", zap.Error(err))
		case ok:
			r.lastUpdateID, r.hasOffset = offset, true
			r.logger.Info("Resuming from stored offset", zap.Int("last_update_id", offset))
		}
	}

	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
	r.logger.Info("Receiver started")
}

// Stop cancels the poll, wakes a consumer blocked in Next with a nil update
// and waits for the worker.
func (r *Receiver) Stop() {
	r.mu.Lock()
	running := r.running
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if running {
		cancel()
	}
	r.queue.push(nil)

	if running {
		select {
		case <-done:
		case <-time.After(r.cfg.StopTimeout):
			r.logger.Warn("Receiver worker did not stop in time", zap.Duration("timeout", r.cfg.StopTimeout))
		}
	}
	r.logger.Info("Receiver stopped")
}

// Next waits up to wait for an update. A nil update with ok set is the stop
// sentinel.
func (r *Receiver) Next(wait time.Duration) (update *tgbotapi.Update, ok bool) {
	return r.queue.pop(wait)
}

// LastUpdateID returns the id of the most recent update seen.
func (r *Receiver) LastUpdateID() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUpdateID, r.hasOffset
}

func (r *Receiver) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		err := r.poll(ctx)
		if err == nil || ctx.Err() != nil {
			continue
		}

		var netErr *client.NetworkError
		if errors.As(err, &netErr) {
			r.logger.Warn("Network error while polling", zap.Error(err))
			_ = r.sleep(ctx, r.cfg.NetworkBackoff)
			continue
		}
		r.logger.Error("Unexpected error while polling", zap.Error(err))
		_ = r.sleep(ctx, r.cfg.ErrorBackoff)
	}
}

// poll runs one fetch and queues the batch in the order returned.
func (r *Receiver) poll(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while polling: %v", rec)
		}
	}()

	req := client.UpdatesRequest{Timeout: r.cfg.PollTimeout}
	if last, ok := r.LastUpdateID(); ok {
		next := last + 1
		req.Offset = &next
	}

	updates, err := r.fetcher.FetchUpdates(ctx, req)
	if err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}
	r.logger.Debug("Received updates", zap.Int("count", len(updates)))

	// A fetched batch is recorded even when Stop lands mid-batch.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	for i := range updates {
		update := updates[i]

		r.mu.Lock()
		r.lastUpdateID, r.hasOffset = update.UpdateID, true
		r.mu.Unlock()

		r.record(writeCtx, update)
		r.queue.push(&update)
	}

	if r.cfg.PersistOffset {
		last, _ := r.LastUpdateID()
		if err := r.history.SaveOffset(writeCtx, last); err != nil {
			r.logger.Error("Failed to save poll offset", zap.Error(err), zap.Int("last_update_id", last))
		}
	}
	return nil
}

func (r *Receiver) record(ctx context.Context, update tgbotapi.Update) {
	chatID, messageType, content := ParseUpdate(update)
	if chatID == 0 {
		r.logger.Debug("Skipping history for update without chat", zap.Int("update_id", update.UpdateID))
		return
	}

	interaction, err := models.NewInteraction(models.Incoming, chatID, messageType, content)
	if err != nil {
		r.logger.Error("Failed to build interaction", zap.Error(err))
		return
	}
	if err := r.history.LogInteraction(ctx, interaction.WithUpdateID(update.UpdateID)); err != nil {
		r.logger.Error("Failed to log incoming interaction",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("update_id", update.UpdateID))
	}
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
