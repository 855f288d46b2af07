package core

import (
	"log/slog"
	"math/big"
	"sync"

	"corepay/core/events"
	"corepay/core/identity"
	"corepay/core/state"
	"corepay/native/payments"
	"corepay/native/staking"
	"corepay/storage"
)

// Node owns the ledger state and serialises every submitted operation: each
// one runs to completion against the state overlay and is committed on
// success or discarded on failure, so a failed operation leaves no trace.
// Partial commits inside batch calls are the engine's business; the node only
// sees the whole call.
type Node struct {
	mu       sync.Mutex
	db       storage.Database
	state    *state.Manager
	engine   *payments.Engine
	identity *identity.Registry
	staking  *staking.Registry
	log      *slog.Logger
}

// NewNode wires the state manager, alias registry, stake registry, and
// payments engine on top of the provided database.
func NewNode(db storage.Database, chainID uint64, service [20]byte, rewardToken string, log *slog.Logger) *Node {
	st := state.NewManager(db)
	aliases := identity.NewRegistry(st)
	stakers := staking.NewRegistry(st)

	engine := payments.NewEngine(chainID, service, rewardToken)
	engine.SetState(st)
	engine.SetResolver(aliases)
	engine.SetOracle(stakers)

	if log == nil {
		log = slog.Default()
	}
	return &Node{
		db:       db,
		state:    st,
		engine:   engine,
		identity: aliases,
		staking:  stakers,
		log:      log,
	}
}

// SetEmitter configures the event emitter receiving settlement events.
func (n *Node) SetEmitter(emitter events.Emitter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.engine.SetEmitter(emitter)
}

func (n *Node) finish(op string, err error) error {
	if err != nil {
		n.state.Discard()
		n.log.Warn("operation rejected", "op", op, "err", err)
		return err
	}
	if commitErr := n.state.Commit(); commitErr != nil {
		n.log.Error("state commit failed", "op", op, "err", commitErr)
		return commitErr
	}
	n.log.Info("operation committed", "op", op)
	return nil
}

// Pay executes a single signed transfer submitted by executor.
func (n *Node) Pay(executor [20]byte, req payments.PayRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("pay", n.engine.Pay(executor, req))
}

// BatchPay executes a list of independent signed transfers. Per-item failures
// are reported in the result vector; successful items commit even when
// others fail.
func (n *Node) BatchPay(executor [20]byte, items []payments.PayRequest) (payments.BatchResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	result, err := n.engine.BatchPay(executor, items)
	if err := n.finish("batchPay", err); err != nil {
		return payments.BatchResult{Results: make([]bool, len(items))}, err
	}
	return result, nil
}

// PayMultiple executes a batch under the atomic-signature policy: any invalid
// item signature aborts the whole call with zero state change.
func (n *Node) PayMultiple(executor [20]byte, items []payments.PayRequest) (payments.BatchResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	result, err := n.engine.PayMultiple(executor, items)
	if err := n.finish("payMultiple", err); err != nil {
		return payments.BatchResult{Results: make([]bool, len(items))}, err
	}
	return result, nil
}

// DispersePay executes a single signed fan-out payment.
func (n *Node) DispersePay(executor [20]byte, req payments.DisperseRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("dispersePay", n.engine.DispersePay(executor, req))
}

// GetBalance returns the (account, token) ledger balance.
func (n *Node) GetBalance(addr [20]byte, token string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Balance(addr, token)
}

// GetSequentialNonce returns the account's current sequential counter.
func (n *Node) GetSequentialNonce(addr [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.SequentialNonce(addr)
}

// IsFreeNonceUsed reports whether the account already consumed the value.
func (n *Node) IsFreeNonceUsed(addr [20]byte, value [32]byte) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.FreeNonceUsed(addr, value)
}

// RegisterAlias claims an alias for an address and commits immediately.
func (n *Node) RegisterAlias(alias string, addr [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("registerAlias", n.identity.Register(alias, addr))
}

// RegisterToken registers token metadata. Already-registered symbols are
// left untouched so genesis seeding stays idempotent.
func (n *Node) RegisterToken(symbol, name string, decimals uint8) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	existing, err := n.state.Token(symbol)
	if err != nil {
		n.state.Discard()
		return err
	}
	if existing != nil {
		return nil
	}
	return n.finish("registerToken", n.state.RegisterToken(symbol, name, decimals))
}

// SetStaker updates an address's staker flag and commits immediately.
func (n *Node) SetStaker(addr [20]byte, staker bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.staking.SetStaker(addr, staker)
	return n.finish("setStaker", nil)
}

// SetRewardUnit stores the incentive scalar for a token.
func (n *Node) SetRewardUnit(token string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("setRewardUnit", n.staking.SetRewardUnit(token, amount))
}

// AllocationsSeeded reports whether genesis allocations were already applied
// to this data directory.
func (n *Node) AllocationsSeeded() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.AllocationsSeeded()
}

// MarkAllocationsSeeded records that genesis allocations have been applied,
// so a restart against the same data directory does not apply them again.
func (n *Node) MarkAllocationsSeeded() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.SetAllocationsSeeded()
	return n.finish("markAllocationsSeeded", nil)
}

// Mint credits an account outside the signed-payment flow. Used for genesis
// allocations and local development faucets only.
func (n *Node) Mint(addr [20]byte, token string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.finish("mint", n.state.Credit(addr, token, amount))
}
