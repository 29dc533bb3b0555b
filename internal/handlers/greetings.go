package handlers

import (
	"context"
	"fmt"

	"github.com/xaenox/cmdbot/internal/command"
	"github.com/xaenox/cmdbot/internal/models"
)

const (
	MenuMain  models.Menu = "/menu_main"
	MenuTools models.Menu = "/menu_tools"
)

// NewGreetings binds /hello and /greet.
func NewGreetings(registry *command.Registry) (*command.Table, error) {
	table := command.NewTable("greetings", registry)

	if err := table.Bind(command.Definition{
		Name:        "/hello",
		Menu:        MenuMain,
		Description: "Say hello",
	}, hello); err != nil {
		return nil, err
	}

	if err := table.Bind(command.Definition{
		Name:        "/greet",
		Menu:        MenuMain,
		Args:        []string{"name", "age"},
		Types:       map[string]command.Coercer{"name": command.String, "age": command.Int},
		Asks:        []string{"What is your name?", "How old are you?"},
		Description: "Personal greeting",
	}, greet); err != nil {
		return nil, err
	}

	return table, nil
}

func hello(context.Context, command.Args) ([]models.Payload, error) {
	return []models.Payload{models.TextPayload("Hello! 👋 Send /help to see what I can do.")}, nil
}

func greet(_ context.Context, args command.Args) ([]models.Payload, error) {
	text := fmt.Sprintf("Nice to meet you, %s! %d is a great age.", args.String("name"), args.Int("age"))
	return []models.Payload{models.TextPayload(text)}, nil
}
