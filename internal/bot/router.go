package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/models"
	"github.com/xaenox/cmdbot/internal/queue"
	"github.com/xaenox/cmdbot/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultHelpTrigger  = "/help"
	defaultPollInterval = 100 * time.Millisecond
	defaultStopTimeout  = 5 * time.Second
)

// Inbox yields inbound updates. A nil update with ok set means the producer
// is shutting down.
type Inbox interface {
	Next(wait time.Duration) (*tgbotapi.Update, bool)
}

// Outbox accepts outbound payloads.
type Outbox interface {
	Enqueue(payloads ...models.Payload) int
}

type RouterConfig struct {
	HelpTrigger  string
	ItemsPerRow  int
	PollInterval time.Duration
	StopTimeout  time.Duration
}

// Router turns inbound updates into payloads. Updates are processed strictly
// one at a time so prompt state for a chat is never read and written
// concurrently.
type Router struct {
	registry *command.Registry
	history  storage.HistoryStore
	handlers []command.Handler
	cfg      RouterConfig
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewRouter(registry *command.Registry, history storage.HistoryStore, cfg RouterConfig, logger *zap.Logger, handlers ...command.Handler) *Router {
	if cfg.HelpTrigger == "" {
		cfg.HelpTrigger = DefaultHelpTrigger
	}
	if cfg.ItemsPerRow <= 0 {
		cfg.ItemsPerRow = DefaultItemsPerRow
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}

	return &Router{
		registry: registry,
		history:  history,
		handlers: handlers,
		cfg:      cfg,
		logger:   logger.Named("router"),
	}
}

// Start seals the registry and consumes inbox until Stop is called.
func (r *Router) Start(inbox Inbox, outbox Outbox) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.registry.Seal()

	ctx, cancel := context.WithCancel(context.Background())
	r.running = true
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, inbox, outbox, r.done)
	r.logger.Info("Router started", zap.Int("handlers", len(r.handlers)))
}

func (r *Router) Stop() {
	r.mu.Lock()
	running := r.running
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if !running {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(r.cfg.StopTimeout):
		r.logger.Warn("Router worker did not stop in time", zap.Duration("timeout", r.cfg.StopTimeout))
	}
	r.logger.Info("Router stopped")
}

func (r *Router) run(ctx context.Context, inbox Inbox, outbox Outbox, done chan<- struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		update, ok := inbox.Next(r.cfg.PollInterval)
		if !ok || update == nil {
			continue
		}
		if payloads := r.ProcessUpdate(ctx, *update); len(payloads) > 0 {
			outbox.Enqueue(payloads...)
		}
	}
}

// ProcessUpdate routes a single update and returns the payloads to send. A
// panic while handling the update is logged and yields no payloads.
func (r *Router) ProcessUpdate(ctx context.Context, update tgbotapi.Update) (payloads []models.Payload) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Recovered panic while processing update",
				zap.Any("panic", rec),
				zap.Int("update_id", update.UpdateID))
			payloads = nil
		}
	}()

	chatID, messageType, _ := queue.ParseUpdate(update)
	switch messageType {
	case models.TypeText:
		return r.handleText(ctx, chatID, update.Message.Text)
	case models.TypeCallbackQuery:
		return r.handleCallback(ctx, chatID, update.CallbackQuery.Data)
	default:
		r.logger.Debug("Ignoring unsupported update", zap.Int("update_id", update.UpdateID))
		return nil
	}
}

func (r *Router) handleText(ctx context.Context, chatID int64, text string) []models.Payload {
	text = strings.TrimSpace(text)
	if text == r.cfg.HelpTrigger {
		return []models.Payload{r.topLevelKeyboard()}
	}

	prompt, err := r.history.LastActivePrompt(ctx, chatID)
	if err != nil {
		r.logger.Error("Failed to load active prompt", zap.Error(err), zap.Int64("chat_id", chatID))
		return nil
	}
	if prompt != nil && prompt.Action == models.ActionAsk {
		args := append(prompt.Arguments, text)
		return r.respond(ctx, chatID, prompt.Command, args)
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	token, inline := fields[0], fields[1:]

	if def, ok := r.registry.Get(models.Command(token)); ok {
		if len(def.Asks) > 0 {
			return r.ask(ctx, chatID, def, inline)
		}
		return r.execute(ctx, def.Name, inline)
	}
	if r.registry.IsMenu(models.Menu(token)) {
		return []models.Payload{r.menuKeyboard(models.Menu(token))}
	}

	r.logger.Debug("Ignoring text without command", zap.Int64("chat_id", chatID))
	return nil
}

func (r *Router) handleCallback(ctx context.Context, chatID int64, data string) []models.Payload {
	cb, err := command.ParseCallback(data)
	if err != nil {
		r.logger.Warn("Unresolvable callback", zap.String("data", data), zap.Int64("chat_id", chatID))
		return nil
	}

	switch cb.Verb {
	case command.VerbAsk:
		def, ok := r.registry.Get(models.Command(cb.Token))
		if !ok {
			r.logger.Warn("Ask for unknown command", zap.String("command", cb.Token))
			return nil
		}
		return r.ask(ctx, chatID, def, cb.Args)
	case command.VerbRespond:
		return r.respond(ctx, chatID, models.Command(cb.Token), cb.Args)
	}

	if def, ok := r.registry.Get(models.Command(cb.Token)); ok {
		return r.execute(ctx, def.Name, cb.Args)
	}
	if r.registry.IsMenu(models.Menu(cb.Token)) {
		return []models.Payload{r.menuKeyboard(models.Menu(cb.Token))}
	}

	r.logger.Warn("Unresolvable callback", zap.String("data", data), zap.Int64("chat_id", chatID))
	return nil
}

// execute runs the command on every handler that owns it. Commands owned by
// no handler of this router are skipped silently.
func (r *Router) execute(ctx context.Context, name models.Command, raw []string) []models.Payload {
	def, ok := r.registry.Get(name)
	if !ok {
		r.logger.Warn("Command is not registered", zap.String("command", name.String()))
		return nil
	}

	var payloads []models.Payload
	for _, handler := range r.handlers {
		action, owned := handler.Actions()[name]
		if !owned {
			continue
		}

		out, err := command.Invoke(ctx, def, action, raw)
		var valErr *command.ValidationError
		switch {
		case errors.As(err, &valErr):
			r.logger.Info("Rejected command arguments",
				zap.String("command", name.String()),
				zap.String("handler", handler.Name()),
				zap.Error(err))
			payloads = append(payloads, models.TextPayload(valErr.Error()))
		case err != nil:
			r.logger.Error("Failed to execute command",
				zap.Error(err),
				zap.String("command", name.String()),
				zap.String("handler", handler.Name()))
			payloads = append(payloads, models.TextPayload(fmt.Sprintf("⚠️ Sorry, %s failed. Please try again.", name)))
		default:
			payloads = append(payloads, out...)
		}
	}
	return payloads
}

func (r *Router) owned(name models.Command) bool {
	for _, handler := range r.handlers {
		if _, ok := handler.Actions()[name]; ok {
			return true
		}
	}
	return false
}

func (r *Router) topLevelKeyboard() models.Payload {
	var tokens []string
	for _, menu := range r.registry.TopLevelMenus() {
		if len(r.menuCommands(menu)) > 0 {
			tokens = append(tokens, menu.String())
		}
	}
	return MenuKeyboard(tokens, r.cfg.ItemsPerRow)
}

func (r *Router) menuKeyboard(menu models.Menu) models.Payload {
	return MenuKeyboard(r.menuCommands(menu), r.cfg.ItemsPerRow)
}

// menuCommands lists the commands of a menu that this router's handlers own.
func (r *Router) menuCommands(menu models.Menu) []string {
	var tokens []string
	for _, def := range r.registry.ByMenu(menu) {
		if r.owned(def.Name) {
			tokens = append(tokens, def.Name.String())
		}
	}
	return tokens
}
