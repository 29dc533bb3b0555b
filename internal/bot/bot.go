package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cmdbot/internal/client"
	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/queue"
	"github.com/xaenox/cmdbot/internal/storage"
	"go.uber.org/zap"
)

const probeTimeout = time.Second

type Config struct {
	Client   client.Config
	Sender   queue.SenderConfig
	Receiver queue.ReceiverConfig
	Router   RouterConfig
}

// Bot wires the transport client, the two queues and the router into one
// service.
type Bot struct {
	client   *client.Client
	sender   *queue.Sender
	receiver *queue.Receiver
	router   *Router
	logger   *zap.Logger
}

func New(cfg Config, store storage.HistoryStore, registry *command.Registry, logger *zap.Logger, handlers ...command.Handler) (*Bot, error) {
	if cfg.Client.Token == "" {
		return nil, fmt.Errorf("failed to create bot: token is empty")
	}
	if cfg.Sender.ChatID == 0 {
		return nil, fmt.Errorf("failed to create bot: chat id is not set")
	}

	api := client.New(cfg.Client, &http.Client{}, logger)
	return &Bot{
		client:   api,
		sender:   queue.NewSender(api, store, cfg.Sender, logger),
		receiver: queue.NewReceiver(api, store, cfg.Receiver, logger),
		router:   NewRouter(registry, store, cfg.Router, logger, handlers...),
		logger:   logger,
	}, nil
}

// Start launches the sender, receiver and router workers.
func (b *Bot) Start() {
	b.sender.Start()
	b.receiver.Start()
	b.router.Start(b.receiver, b.sender)
	b.logger.Info("Bot started")
}

// Stop shuts the workers down. Payloads already queued are sent before Stop
// returns.
func (b *Bot) Stop() {
	b.receiver.Stop()
	b.router.Stop()
	b.sender.Stop()
	b.logger.Info("Bot stopped")
}

// Run starts the bot and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	b.Start()
	<-ctx.Done()
	b.Stop()
}

// ProbeUpdates performs one short getUpdates call without an offset. It is
// meant for checking credentials and connectivity.
func (b *Bot) ProbeUpdates(ctx context.Context) ([]tgbotapi.Update, error) {
	updates, err := b.client.FetchUpdates(ctx, client.UpdatesRequest{Timeout: probeTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to probe updates: %w", err)
	}
	return updates, nil
}
