package command

import (
	"fmt"

	"github.com/xaenox/cmdbot/internal/models"
)

// RegistrationError rejects a command definition at startup.
type RegistrationError struct {
	Command models.Command
	Reason  string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register command %q: %s", e.Command, e.Reason)
}

// ValidationError describes arguments that cannot be used to run a command.
// Its message is meant to be shown to the end user.
type ValidationError struct {
	Command  models.Command
	Argument string
	Value    string
	Expected string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Argument == "" {
		return fmt.Sprintf("Invalid arguments for %s: %s", e.Command, e.Reason)
	}
	return fmt.Sprintf("Argument %q for %q is invalid. Expected type: %s.", e.Value, e.Argument, e.Expected)
}
