// Package admin provides the text command surface for operating the
// wave runtime: forced spawns, clearing, wave jumps and strategy changes.
package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrEmptyCommand is returned for a blank command line.
	ErrEmptyCommand = errors.New("empty command")

	// ErrUnknownCommand is returned when no command is registered under the name.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is wrapped by commands given bad arguments.
	ErrUsage = errors.New("bad arguments")

	// ErrNoSuchUnit is returned by kill for a unit that is not alive.
	ErrNoSuchUnit = errors.New("no such unit")
)

// Command is one admin command.
type Command interface {
	// Handle executes the command. args includes command name at [0].
	Handle(args []string) (string, error)
	// Names returns all registered command names.
	Names() []string
	// Usage is the one-line help text.
	Usage() string
}

// Handler dispatches command lines to registered commands.
// Thread-safe: commands are registered once at startup, then read-only.
type Handler struct {
	mu   sync.RWMutex
	cmds map[string]Command // name → Command (lowercase)
}

// NewHandler creates an empty command handler.
func NewHandler() *Handler {
	return &Handler{cmds: make(map[string]Command, 16)}
}

// Register registers a command under all of its names.
// All command names are lowercased for case-insensitive lookup.
func (h *Handler) Register(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range cmd.Names() {
		h.cmds[strings.ToLower(name)] = cmd
	}
}

// Handle runs a command line and returns its reply.
func (h *Handler) Handle(line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", ErrEmptyCommand
	}
	name := strings.ToLower(parts[0])

	h.mu.RLock()
	cmd, ok := h.cmds[name]
	h.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownCommand)
	}

	slog.Info("admin command", "command", line)

	reply, err := cmd.Handle(parts)
	if err != nil {
		slog.Error("admin command failed",
			"command", line,
			"error", err)
		if errors.Is(err, ErrUsage) {
			return "", fmt.Errorf("%w (usage: %s)", err, cmd.Usage())
		}
		return "", err
	}
	return reply, nil
}

// Names returns the registered command names, sorted.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.cmds))
	for name := range h.cmds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Count returns number of registered command names.
func (h *Handler) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.cmds)
}

// usages returns one usage line per distinct command.
func (h *Handler) usages() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[Command]bool, len(h.cmds))
	out := make([]string, 0, len(h.cmds))
	for _, cmd := range h.cmds {
		if seen[cmd] {
			continue
		}
		seen[cmd] = true
		out = append(out, cmd.Usage())
	}
	slices.Sort(out)
	return out
}
