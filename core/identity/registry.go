package identity

import (
	"fmt"

	"corepay/core/state"
)

// Registry maps human-readable aliases to account addresses on top of the
// state manager. It implements the resolver contract consumed by the payments
// engine.
type Registry struct {
	state *state.Manager
}

// NewRegistry creates an alias registry backed by the provided state manager.
func NewRegistry(st *state.Manager) *Registry {
	return &Registry{state: st}
}

// Register claims an alias for the supplied address. Aliases are first come,
// first served and never transferred here.
func (r *Registry) Register(alias string, addr [20]byte) error {
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return err
	}
	if _, taken, err := r.state.AliasAddress(normalized); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("%w: %s", ErrAliasTaken, normalized)
	}
	return r.state.SetAliasAddress(normalized, addr)
}

// Resolve maps an alias to the owning address. Unregistered aliases return
// ErrAliasNotFound.
func (r *Registry) Resolve(alias string) ([20]byte, error) {
	var zero [20]byte
	normalized, err := NormalizeAlias(alias)
	if err != nil {
		return zero, err
	}
	addr, found, err := r.state.AliasAddress(normalized)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("%w: %s", ErrAliasNotFound, normalized)
	}
	return addr, nil
}
