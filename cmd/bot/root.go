package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xaenox/cmdbot/internal/bot"
	"github.com/xaenox/cmdbot/internal/classifier"
	"github.com/xaenox/cmdbot/internal/client"
	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/handlers"
	"github.com/xaenox/cmdbot/internal/queue"
	"github.com/xaenox/cmdbot/internal/storage"
	"github.com/xaenox/cmdbot/pkg/config"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "cmdbot",
		Short:        "Command driven Telegram bot",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "config.yaml", "Config file path.")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newUpdatesCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start polling and answering commands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := storage.Open(databaseConfig(cfg.Database), logger)
			if err != nil {
				logger.Fatal("Failed to initialize storage", zap.Error(err))
			}
			defer store.Close()

			registry := command.NewRegistry()
			tables, err := demoHandlers(cfg, registry, store, logger)
			if err != nil {
				logger.Fatal("Failed to register commands", zap.Error(err))
			}

			b, err := bot.New(botConfig(cfg), store, registry, logger, tables...)
			if err != nil {
				logger.Fatal("Failed to create bot", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b.Run(ctx)
			return nil
		},
	}
}

func newUpdatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "updates",
		Short: "Fetch pending updates once and print them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			b, err := bot.New(botConfig(cfg), storage.NewMemoryStorage(), command.NewRegistry(), logger)
			if err != nil {
				return err
			}

			updates, err := b.ProbeUpdates(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d pending update(s)\n", len(updates))
			for _, update := range updates {
				chatID, kind, content := queue.ParseUpdate(update)
				fmt.Fprintf(out, "#%d chat=%d type=%s content=%v\n", update.UpdateID, chatID, kind, content)
			}
			return nil
		},
	}
}

func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func demoHandlers(cfg *config.Config, registry *command.Registry, store storage.HistoryStore, logger *zap.Logger) ([]command.Handler, error) {
	greetings, err := handlers.NewGreetings(registry)
	if err != nil {
		return nil, err
	}
	history, err := handlers.NewHistory(registry, store, cfg.Telegram.ChatID)
	if err != nil {
		return nil, err
	}

	var clf classifier.Classifier = classifier.NewSimpleClassifier(cfg.Classifier.MaxTags)
	if cfg.OpenAI.APIKey != "" {
		clf = classifier.NewGPTClassifier(classifier.GPTConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
			MaxTags:     cfg.Classifier.MaxTags,
		}, logger)
	} else {
		logger.Info("OpenAI key not set, /classify uses keyword matching")
	}
	classify, err := handlers.NewClassify(registry, clf)
	if err != nil {
		return nil, err
	}

	return []command.Handler{greetings, history, classify}, nil
}

func databaseConfig(c config.DatabaseConfig) storage.DatabaseConfig {
	return storage.DatabaseConfig{
		Driver:   c.Driver,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.DBName,
		SSLMode:  c.SSLMode,
		Path:     c.Path,
	}
}

func botConfig(cfg *config.Config) bot.Config {
	return bot.Config{
		Client: client.Config{
			APIBaseURL:      cfg.Telegram.APIBaseURL,
			Token:           cfg.Telegram.Token,
			SendEndpoint:    cfg.Telegram.Endpoints.Text,
			UpdatesEndpoint: cfg.Telegram.Endpoints.Updates,
			RequestTimeout:  cfg.Telegram.RequestTimeout,
		},
		Sender: queue.SenderConfig{
			ChatID:       cfg.Telegram.ChatID,
			MaxRetries:   cfg.Sender.MaxRetries,
			PollInterval: cfg.Sender.PollInterval,
			RateLimit:    cfg.Sender.RateLimit,
			StopTimeout:  cfg.Sender.StopTimeout,
		},
		Receiver: queue.ReceiverConfig{
			PollTimeout:    cfg.Receiver.PollTimeout,
			NetworkBackoff: cfg.Receiver.NetworkBackoff,
			ErrorBackoff:   cfg.Receiver.ErrorBackoff,
			StopTimeout:    cfg.Receiver.StopTimeout,
			PersistOffset:  cfg.Receiver.PersistOffset,
		},
		Router: bot.RouterConfig{
			HelpTrigger:  cfg.Router.HelpTrigger,
			ItemsPerRow:  cfg.Router.ItemsPerRow,
			PollInterval: cfg.Router.PollInterval,
			StopTimeout:  cfg.Router.StopTimeout,
		},
	}
}
