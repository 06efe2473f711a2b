package server

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
	"github.com/moonshotcommons/cross-guess-game/internal/wallet"
)

var ErrUnknownMode = errors.New("unknown mode")

const (
	ModeDemo = "demo"
	ModeReal = "real"
)

// Mode is one independently running game: its session and the wallet that
// supplies player identities.
type Mode struct {
	Name    string
	Session *game.Session
	Wallet  wallet.Provider
}

// Registry maps mode names to their game.
type Registry struct {
	fallback string
	mu       sync.RWMutex
	modes    map[string]*Mode
}

// NewRegistry returns an empty registry. Lookups of the empty name resolve to
// fallback.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		fallback: fallback,
		modes:    make(map[string]*Mode),
	}
}

func (r *Registry) Add(m *Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes[m.Name] = m
}

func (r *Registry) Get(name string) (*Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.fallback
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modes[name]
	if !ok {
		return nil, ErrUnknownMode
	}
	return m, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modes))
	for name := range r.modes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close shuts every session down, waiting for in-flight payouts.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, m := range r.modes {
		m.Session.Close()
		delete(r.modes, name)
	}
	return nil
}
