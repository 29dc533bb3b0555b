package command

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xaenox/cmdbot/internal/models"
)

// Definition is the metadata of one command.
type Definition struct {
	Name        models.Command
	Menu        models.Menu
	Args        []string
	Types       map[string]Coercer
	Asks        []string
	Description string
}

// Coercer returns the declared coercer of an argument, String by default.
func (d *Definition) Coercer(arg string) Coercer {
	if c, ok := d.Types[arg]; ok {
		return c
	}
	return String
}

// Registry maps command identifiers to their definitions. It is filled during
// startup and sealed before the router starts consuming updates.
type Registry struct {
	mu       sync.RWMutex
	commands map[models.Command]*Definition
	sealed   bool
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[models.Command]*Definition)}
}

// Register validates and stores a definition.
func (r *Registry) Register(def Definition) error {
	def.Name = models.Command(strings.TrimSpace(string(def.Name)))
	def.Menu = models.Menu(strings.TrimSpace(string(def.Menu)))
	if def.Menu == "" {
		def.Menu = models.NoMenu
	}

	if err := validate(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return &RegistrationError{Command: def.Name, Reason: "registry is sealed"}
	}
	if _, exists := r.commands[def.Name]; exists {
		return &RegistrationError{Command: def.Name, Reason: "already registered"}
	}

	def.Args = slices.Clone(def.Args)
	def.Asks = slices.Clone(def.Asks)
	r.commands[def.Name] = &def
	return nil
}

func validate(def Definition) error {
	if !ValidToken(string(def.Name)) {
		return &RegistrationError{Command: def.Name, Reason: "name must be '/' followed by letters, digits or '_'"}
	}
	if !ValidToken(string(def.Menu)) {
		return &RegistrationError{
			Command: def.Name,
			Reason:  fmt.Sprintf("menu %q must be '/' followed by letters, digits or '_'", def.Menu),
		}
	}

	if len(def.Types) > 0 {
		if len(def.Types) != len(def.Args) {
			return &RegistrationError{
				Command: def.Name,
				Reason:  fmt.Sprintf("types %v do not match arguments %v", typeKeys(def.Types), def.Args),
			}
		}
		for _, arg := range def.Args {
			if _, ok := def.Types[arg]; !ok {
				return &RegistrationError{
					Command: def.Name,
					Reason:  fmt.Sprintf("types %v do not match arguments %v", typeKeys(def.Types), def.Args),
				}
			}
		}
	}

	if len(def.Asks) > 0 && len(def.Asks) != len(def.Args) {
		return &RegistrationError{
			Command: def.Name,
			Reason:  fmt.Sprintf("%d questions for %d arguments", len(def.Asks), len(def.Args)),
		}
	}
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Get returns the definition of a command.
func (r *Registry) Get(name models.Command) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.commands[name]
	return def, ok
}

// IsMenu reports whether at least one command belongs to the menu.
func (r *Registry) IsMenu(menu models.Menu) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.commands {
		if def.Menu == menu {
			return true
		}
	}
	return false
}

// ByMenu returns the commands of a menu sorted by name.
func (r *Registry) ByMenu(menu models.Menu) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []*Definition
	for _, def := range r.commands {
		if def.Menu == menu {
			defs = append(defs, def)
		}
	}
	slices.SortFunc(defs, func(a, b *Definition) int {
		return strings.Compare(string(a.Name), string(b.Name))
	})
	return defs
}

// TopLevelMenus returns every distinct menu except NoMenu, sorted.
func (r *Registry) TopLevelMenus() []models.Menu {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[models.Menu]struct{})
	var menus []models.Menu
	for _, def := range r.commands {
		if def.Menu == models.NoMenu {
			continue
		}
		if _, ok := seen[def.Menu]; ok {
			continue
		}
		seen[def.Menu] = struct{}{}
		menus = append(menus, def.Menu)
	}
	slices.Sort(menus)
	return menus
}

func typeKeys(types map[string]Coercer) []string {
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
