package staking

import (
	"math/big"

	"corepay/core/state"
)

// Registry answers staker-eligibility and reward-unit queries on top of the
// state manager. How an address acquires or loses staker status is decided
// elsewhere; the payments engine only consumes the two read methods.
type Registry struct {
	state *state.Manager
}

// NewRegistry creates a staking registry backed by the provided state manager.
func NewRegistry(st *state.Manager) *Registry {
	return &Registry{state: st}
}

// IsStaker reports whether the address currently holds the staker role.
func (r *Registry) IsStaker(addr [20]byte) (bool, error) {
	return r.state.IsStaker(addr)
}

// RewardUnit returns the protocol incentive scalar for the given token. A
// zero unit disables payouts in that token.
func (r *Registry) RewardUnit(token string) (*big.Int, error) {
	return r.state.RewardUnit(token)
}

// SetStaker updates the staker flag for an address. Exposed for genesis
// seeding and admin tooling.
func (r *Registry) SetStaker(addr [20]byte, staker bool) {
	r.state.SetStaker(addr, staker)
}

// SetRewardUnit stores the incentive scalar for a token.
func (r *Registry) SetRewardUnit(token string, amount *big.Int) error {
	return r.state.SetRewardUnit(token, amount)
}
