package bot

import (
	"context"
	"slices"

	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/models"
	"go.uber.org/zap"
)

// ask opens a prompt for def with the arguments supplied so far. When every
// argument is already present the prompt is resolved and the command runs.
func (r *Router) ask(ctx context.Context, chatID int64, def *command.Definition, args []string) []models.Payload {
	if len(def.Asks) == 0 {
		r.logger.Warn("No questions declared for command", zap.String("command", def.Name.String()))
		return nil
	}

	prompt := models.CurrentPrompt{
		Action:    models.ActionAsk,
		Command:   def.Name,
		Arguments: slices.Clone(args),
		Index:     len(args),
	}
	if prompt.Arguments == nil {
		prompt.Arguments = []string{}
	}

	if err := r.history.LogPrompt(ctx, chatID, prompt); err != nil {
		r.logger.Error("Failed to log prompt", zap.Error(err), zap.Int64("chat_id", chatID))
		return nil
	}

	if prompt.Index >= len(def.Asks) {
		return r.complete(ctx, chatID, def.Name, prompt.Arguments)
	}
	return []models.Payload{models.TextPayload(def.Asks[prompt.Index])}
}

// respond replaces the arguments of the chat's active prompt with args and
// either asks the next question or runs the command.
func (r *Router) respond(ctx context.Context, chatID int64, name models.Command, args []string) []models.Payload {
	prompt, err := r.history.LastActivePrompt(ctx, chatID)
	if err != nil {
		r.logger.Error("Failed to load active prompt", zap.Error(err), zap.Int64("chat_id", chatID))
		return nil
	}
	if prompt == nil {
		r.logger.Warn("No active prompt to respond to",
			zap.Int64("chat_id", chatID),
			zap.String("command", name.String()))
		return nil
	}

	def, ok := r.registry.Get(name)
	if !ok {
		// The command is gone, so the prompt can never complete. Drop it so the
		// chat is not stuck answering it.
		r.logger.Warn("Dropping prompt for unknown command",
			zap.Int64("chat_id", chatID),
			zap.String("command", name.String()))
		if err := r.history.ResolvePrompt(ctx, chatID); err != nil {
			r.logger.Error("Failed to resolve prompt", zap.Error(err), zap.Int64("chat_id", chatID))
		}
		return nil
	}

	prompt.Arguments = slices.Clone(args)
	prompt.Index = len(args)

	if prompt.Index < len(def.Asks) {
		if err := r.history.LogPrompt(ctx, chatID, *prompt); err != nil {
			r.logger.Error("Failed to log prompt", zap.Error(err), zap.Int64("chat_id", chatID))
			return nil
		}
		return []models.Payload{models.TextPayload(def.Asks[prompt.Index])}
	}
	return r.complete(ctx, chatID, def.Name, prompt.Arguments)
}

func (r *Router) complete(ctx context.Context, chatID int64, name models.Command, args []string) []models.Payload {
	if err := r.history.ResolvePrompt(ctx, chatID); err != nil {
		r.logger.Error("Failed to resolve prompt", zap.Error(err), zap.Int64("chat_id", chatID))
	}
	return r.execute(ctx, name, args)
}
