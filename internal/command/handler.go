package command

import (
	"context"
	"fmt"

	"github.com/xaenox/cmdbot/internal/models"
)

// Action is the function bound to a command. Returning no payloads is fine.
type Action func(ctx context.Context, args Args) ([]models.Payload, error)

// Handler declares which commands it owns and the action bound to each.
type Handler interface {
	Name() string
	Actions() map[models.Command]Action
}

// Table is a Handler assembled from explicit Bind calls.
type Table struct {
	name     string
	registry *Registry
	actions  map[models.Command]Action
}

func NewTable(name string, registry *Registry) *Table {
	return &Table{
		name:     name,
		registry: registry,
		actions:  make(map[models.Command]Action),
	}
}

// Bind registers the definition and makes the table own the command.
func (t *Table) Bind(def Definition, action Action) error {
	if action == nil {
		return &RegistrationError{Command: def.Name, Reason: "action is nil"}
	}
	if err := t.registry.Register(def); err != nil {
		return err
	}
	t.actions[def.Name] = action
	return nil
}

func (t *Table) Name() string { return t.name }

func (t *Table) Actions() map[models.Command]Action { return t.actions }

// Invoke checks arity, coerces each raw argument to its declared type and
// runs the action. Arity and coercion failures are *ValidationError and the
// action is not run.
func Invoke(ctx context.Context, def *Definition, action Action, raw []string) ([]models.Payload, error) {
	if len(raw) != len(def.Args) {
		return nil, &ValidationError{
			Command: def.Name,
			Reason:  fmt.Sprintf("wrong number of arguments: expected %d, got %d", len(def.Args), len(raw)),
		}
	}

	args := make(Args, len(def.Args))
	for i, name := range def.Args {
		coercer := def.Coercer(name)
		value, err := coercer.Convert(raw[i])
		if err != nil {
			return nil, &ValidationError{
				Command:  def.Name,
				Argument: name,
				Value:    raw[i],
				Expected: coercer.TypeName,
				Reason:   err.Error(),
			}
		}
		args[name] = value
	}

	return action(ctx, args)
}
