package payments

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"corepay/core/events"
)

var (
	errNilState    = errors.New("payments engine: state not configured")
	errNilResolver = errors.New("payments engine: resolver not configured")
	errNilOracle   = errors.New("payments engine: stake oracle not configured")
)

var zeroAddress [20]byte

// LedgerState describes the functionality the payments engine needs from the
// surrounding state implementation.
type LedgerState interface {
	Balance(addr [20]byte, token string) (*big.Int, error)
	Credit(addr [20]byte, token string, amount *big.Int) error
	Debit(addr [20]byte, token string, amount *big.Int) error
	Transfer(from, to [20]byte, token string, amount *big.Int) error
	SequentialNonce(addr [20]byte) (uint64, error)
	AdvanceSequentialNonce(addr [20]byte, supplied uint64) error
	FreeNonceUsed(addr [20]byte, value [32]byte) (bool, error)
	ConsumeFreeNonce(addr [20]byte, value [32]byte) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Resolver maps a registered alias to the owning account address.
type Resolver interface {
	Resolve(alias string) ([20]byte, error)
}

// StakeOracle answers executor-eligibility and reward-unit queries. Stake
// acquisition mechanics live outside the engine.
type StakeOracle interface {
	IsStaker(addr [20]byte) (bool, error)
	RewardUnit(token string) (*big.Int, error)
}

// Engine orchestrates signature-authorized payments on top of the ledger
// state, the alias resolver, and the stake oracle. It holds no per-request
// state; all effects flow through the injected LedgerState.
type Engine struct {
	state       LedgerState
	resolver    Resolver
	oracle      StakeOracle
	emitter     events.Emitter
	chainID     uint64
	service     [20]byte
	rewardToken string
}

// NewEngine creates a payments engine bound to a network id, the service
// identity covered by every signature, and the designated reward token.
func NewEngine(chainID uint64, service [20]byte, rewardToken string) *Engine {
	return &Engine{
		emitter:     events.NoopEmitter{},
		chainID:     chainID,
		service:     service,
		rewardToken: strings.ToUpper(strings.TrimSpace(rewardToken)),
	}
}

// SetState configures the ledger state backend used by the engine.
func (e *Engine) SetState(state LedgerState) { e.state = state }

// SetResolver configures the alias resolver.
func (e *Engine) SetResolver(resolver Resolver) { e.resolver = resolver }

// SetOracle configures the stake oracle.
func (e *Engine) SetOracle(oracle StakeOracle) { e.oracle = oracle }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// RewardToken returns the token symbol used for incentive payouts.
func (e *Engine) RewardToken() string { return e.rewardToken }

// ChainID returns the network id bound into every authorization.
func (e *Engine) ChainID() uint64 { return e.chainID }

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.resolver == nil {
		return errNilResolver
	}
	if e.oracle == nil {
		return errNilOracle
	}
	return nil
}

// expectedNonce renders the nonce the canonical string must carry for the
// sender, validating replay protection without consuming anything. Sequential
// mode reads the authority-assigned counter; free mode checks the supplied
// value has not been used.
func (e *Engine) expectedNonce(sender [20]byte, mode NonceMode, free [32]byte) (string, error) {
	switch mode {
	case NonceModeSequential:
		current, err := e.state.SequentialNonce(sender)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(current, 10), nil
	case NonceModeFree:
		used, err := e.state.FreeNonceUsed(sender, free)
		if err != nil {
			return "", err
		}
		if used {
			return "", ErrNonceUsed
		}
		return freeNonceString(free), nil
	}
	return "", fmt.Errorf("%w: unknown nonce mode %d", ErrInvalidSignature, mode)
}

// commitNonce consumes the nonce after all transfers succeeded. The prior
// expectedNonce check guarantees this cannot fail on replay grounds.
func (e *Engine) commitNonce(sender [20]byte, mode NonceMode, free [32]byte) error {
	switch mode {
	case NonceModeSequential:
		current, err := e.state.SequentialNonce(sender)
		if err != nil {
			return err
		}
		return e.state.AdvanceSequentialNonce(sender, current)
	case NonceModeFree:
		return e.state.ConsumeFreeNonce(sender, free)
	}
	return fmt.Errorf("%w: unknown nonce mode %d", ErrInvalidSignature, mode)
}

func (e *Engine) resolveRecipient(ref RecipientRef) ([20]byte, error) {
	if strings.TrimSpace(ref.Alias) == "" {
		return ref.Address, nil
	}
	addr, err := e.resolver.Resolve(ref.Alias)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", ErrIdentityResolution, err)
	}
	return addr, nil
}

// executePay runs the full single-transfer pipeline for one request. All
// validation happens before the first ledger write, so a returned error means
// no state was touched for this item. Returns whether a priority fee was
// present, which feeds the incentive multiple.
func (e *Engine) executePay(executor [20]byte, req PayRequest, privileged bool) (bool, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return false, ErrInvalidAmount
	}
	fee := bigOrZero(req.Fee)
	if fee.Sign() < 0 {
		return false, ErrInvalidAmount
	}

	nonce, err := e.expectedNonce(req.Sender, req.Mode, req.FreeNonce)
	if err != nil {
		return false, err
	}

	opHash := PayOperationHash(req.Recipient, req.Token, req.Amount, fee)
	canonical := CanonicalAuthorization(e.chainID, e.service, opHash, req.Executor, nonce, req.Mode)
	signer, err := RecoverSigner(canonical, req.Signature)
	if err != nil {
		return false, err
	}
	if signer != req.Sender {
		// A sequential-mode request replayed after it committed verifies
		// against the previous counter value; report that as a consumed
		// nonce rather than a bad signature.
		if req.Mode == NonceModeSequential {
			if current, parseErr := strconv.ParseUint(nonce, 10, 64); parseErr == nil && current > 0 {
				replayed := CanonicalAuthorization(e.chainID, e.service, opHash, req.Executor, strconv.FormatUint(current-1, 10), req.Mode)
				if replaySigner, replayErr := RecoverSigner(replayed, req.Signature); replayErr == nil && replaySigner == req.Sender {
					return false, fmt.Errorf("%w: sequential nonce %d already consumed", ErrNonceUsed, current-1)
				}
			}
		}
		return false, fmt.Errorf("%w: recovered signer does not match sender", ErrInvalidSignature)
	}

	if req.Executor != zeroAddress && executor != req.Executor {
		return false, ErrInvalidExecutor
	}

	recipient, err := e.resolveRecipient(req.Recipient)
	if err != nil {
		return false, err
	}

	feePresent := fee.Sign() > 0
	feeDue := privileged && feePresent
	required := new(big.Int).Set(req.Amount)
	if feeDue {
		required.Add(required, fee)
	}
	balance, err := e.state.Balance(req.Sender, req.Token)
	if err != nil {
		return false, err
	}
	if balance.Cmp(required) < 0 {
		return false, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, required)
	}

	// A write can still fail after validation (the recipient's balance may
	// sit at the representable cap), so the item's writes are journaled and
	// unwound together: a failed item leaves no state.
	snap := e.state.Snapshot()
	if err := e.state.Transfer(req.Sender, recipient, req.Token, req.Amount); err != nil {
		e.state.RevertToSnapshot(snap)
		return false, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if feeDue {
		if err := e.state.Transfer(req.Sender, executor, req.Token, fee); err != nil {
			e.state.RevertToSnapshot(snap)
			return false, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	if err := e.commitNonce(req.Sender, req.Mode, req.FreeNonce); err != nil {
		e.state.RevertToSnapshot(snap)
		return false, err
	}

	e.emit(events.PaymentSettled{
		Sender:   req.Sender[:],
		Receiver: recipient[:],
		Token:    req.Token,
		Amount:   req.Amount,
		Fee:      fee,
		Executor: executor[:],
	})
	return feePresent, nil
}

// Pay settles a single signed transfer. Any failure aborts the whole
// operation: no balance moves and the nonce stays unconsumed.
func (e *Engine) Pay(executor [20]byte, req PayRequest) error {
	if err := e.ready(); err != nil {
		return err
	}
	privileged, err := e.oracle.IsStaker(executor)
	if err != nil {
		return err
	}
	feePresent, err := e.executePay(executor, req, privileged)
	if err != nil {
		return err
	}
	if privileged {
		reward, err := e.rewardAmount(OpPay, feePresent)
		if err != nil {
			return err
		}
		if err := e.payoutReward(executor, reward, OpPay); err != nil {
			return err
		}
	}
	return nil
}

// BatchPay settles a list of independent signed transfers, potentially from
// different senders. Every per-item failure, signature failures included,
// only marks that item failed; the call itself never aborts. The executor's
// privilege is determined once for the whole batch.
func (e *Engine) BatchPay(executor [20]byte, items []PayRequest) (BatchResult, error) {
	if err := e.ready(); err != nil {
		return BatchResult{}, err
	}
	privileged, err := e.oracle.IsStaker(executor)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Results: make([]bool, len(items))}
	totalReward := big.NewInt(0)
	for i, item := range items {
		feePresent, err := e.executePay(executor, item, privileged)
		if err != nil {
			continue
		}
		result.Results[i] = true
		result.Successes++
		if privileged {
			reward, err := e.rewardAmount(OpBatchItem, feePresent)
			if err != nil {
				return BatchResult{}, err
			}
			totalReward.Add(totalReward, reward)
		}
	}
	// Rewards accrue per successful item, not per attempted item.
	if privileged {
		if err := e.payoutReward(executor, totalReward, OpBatchItem); err != nil {
			return BatchResult{}, err
		}
	}

	e.emit(events.PaymentBatchSettled{
		Executor:  executor[:],
		Items:     len(items),
		Successes: result.Successes,
		Atomic:    false,
	})
	return result, nil
}

// PayMultiple settles a list of signed transfers under the atomic-signature
// policy: an invalid signature on any item aborts the entire call with zero
// state change, while every other failure class still only marks the item
// failed. Signatures are therefore verified in a read-only prefix pass before
// any item executes.
func (e *Engine) PayMultiple(executor [20]byte, items []PayRequest) (BatchResult, error) {
	if err := e.ready(); err != nil {
		return BatchResult{}, err
	}
	privileged, err := e.oracle.IsStaker(executor)
	if err != nil {
		return BatchResult{}, err
	}

	empty := BatchResult{Results: make([]bool, len(items))}
	counters := make(map[[20]byte]uint64)
	for i, item := range items {
		nonce, err := e.simulatedNonce(counters, item)
		if err != nil {
			return empty, fmt.Errorf("item %d: %w", i, err)
		}
		fee := bigOrZero(item.Fee)
		opHash := PayOperationHash(item.Recipient, item.Token, item.Amount, fee)
		canonical := CanonicalAuthorization(e.chainID, e.service, opHash, item.Executor, nonce, item.Mode)
		signer, err := RecoverSigner(canonical, item.Signature)
		if err != nil {
			return empty, fmt.Errorf("item %d: %w", i, err)
		}
		if signer != item.Sender {
			return empty, fmt.Errorf("item %d: %w: recovered signer does not match sender", i, ErrInvalidSignature)
		}
	}

	result := BatchResult{Results: make([]bool, len(items))}
	totalReward := big.NewInt(0)
	for i, item := range items {
		feePresent, err := e.executePay(executor, item, privileged)
		if err != nil {
			continue
		}
		result.Results[i] = true
		result.Successes++
		if privileged {
			reward, err := e.rewardAmount(OpMultipleItem, feePresent)
			if err != nil {
				return BatchResult{}, err
			}
			totalReward.Add(totalReward, reward)
		}
	}
	if privileged {
		if err := e.payoutReward(executor, totalReward, OpMultipleItem); err != nil {
			return BatchResult{}, err
		}
	}

	e.emit(events.PaymentBatchSettled{
		Executor:  executor[:],
		Items:     len(items),
		Successes: result.Successes,
		Atomic:    true,
	})
	return result, nil
}

// simulatedNonce renders the nonce an item's signature must cover during the
// prefix verification pass. Sequential counters are simulated per sender so a
// batch can carry several ordered items from one account.
func (e *Engine) simulatedNonce(counters map[[20]byte]uint64, item PayRequest) (string, error) {
	switch item.Mode {
	case NonceModeSequential:
		current, ok := counters[item.Sender]
		if !ok {
			stateNonce, err := e.state.SequentialNonce(item.Sender)
			if err != nil {
				return "", err
			}
			current = stateNonce
		}
		counters[item.Sender] = current + 1
		return strconv.FormatUint(current, 10), nil
	case NonceModeFree:
		return freeNonceString(item.FreeNonce), nil
	}
	return "", fmt.Errorf("%w: unknown nonce mode %d", ErrInvalidSignature, item.Mode)
}

// DispersePay settles one signed fan-out payment: one sender, one nonce, many
// recipients. Any failure aborts the whole operation; there is no partial
// fan-out.
func (e *Engine) DispersePay(executor [20]byte, req DisperseRequest) error {
	if err := e.ready(); err != nil {
		return err
	}
	if req.Total == nil || req.Total.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if len(req.Recipients) == 0 {
		return fmt.Errorf("%w: no recipients", ErrInvalidAmount)
	}
	fee := bigOrZero(req.Fee)
	if fee.Sign() < 0 {
		return ErrInvalidAmount
	}

	declared := new(big.Int).Set(req.Total)
	sum := big.NewInt(0)
	for _, share := range req.Recipients {
		if share.Amount == nil || share.Amount.Sign() < 0 {
			return ErrInvalidAmount
		}
		sum.Add(sum, share.Amount)
	}
	if sum.Cmp(declared) != 0 {
		return fmt.Errorf("%w: shares sum to %s, declared total %s", ErrInvalidAmount, sum, declared)
	}

	nonce, err := e.expectedNonce(req.Sender, req.Mode, req.FreeNonce)
	if err != nil {
		return err
	}

	opHash := DisperseOperationHash(req.Recipients, req.Token, declared, fee)
	canonical := CanonicalAuthorization(e.chainID, e.service, opHash, req.Executor, nonce, req.Mode)
	signer, err := RecoverSigner(canonical, req.Signature)
	if err != nil {
		return err
	}
	if signer != req.Sender {
		if req.Mode == NonceModeSequential {
			if current, parseErr := strconv.ParseUint(nonce, 10, 64); parseErr == nil && current > 0 {
				replayed := CanonicalAuthorization(e.chainID, e.service, opHash, req.Executor, strconv.FormatUint(current-1, 10), req.Mode)
				if replaySigner, replayErr := RecoverSigner(replayed, req.Signature); replayErr == nil && replaySigner == req.Sender {
					return fmt.Errorf("%w: sequential nonce %d already consumed", ErrNonceUsed, current-1)
				}
			}
		}
		return fmt.Errorf("%w: recovered signer does not match sender", ErrInvalidSignature)
	}

	if req.Executor != zeroAddress && executor != req.Executor {
		return ErrInvalidExecutor
	}

	// Unlike the batch operations, one unresolved alias fails the whole
	// fan-out, so every recipient resolves before the first write.
	resolved := make([][20]byte, len(req.Recipients))
	for i, share := range req.Recipients {
		addr, err := e.resolveRecipient(share.Recipient)
		if err != nil {
			return err
		}
		resolved[i] = addr
	}

	privileged, err := e.oracle.IsStaker(executor)
	if err != nil {
		return err
	}

	upfront := new(big.Int).Add(declared, fee)
	balance, err := e.state.Balance(req.Sender, req.Token)
	if err != nil {
		return err
	}
	if balance.Cmp(upfront) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, upfront)
	}
	// The fan-out has no partial outcome: every write from the upfront debit
	// on is unwound together if any leg fails.
	snap := e.state.Snapshot()
	if err := e.state.Debit(req.Sender, req.Token, upfront); err != nil {
		e.state.RevertToSnapshot(snap)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	distributed := big.NewInt(0)
	for i, share := range req.Recipients {
		if err := e.state.Credit(resolved[i], req.Token, share.Amount); err != nil {
			e.state.RevertToSnapshot(snap)
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		distributed.Add(distributed, share.Amount)
	}
	// The distributed amount must reconcile exactly with the declared total.
	if distributed.Cmp(declared) != 0 {
		e.state.RevertToSnapshot(snap)
		return fmt.Errorf("%w: distributed %s of declared %s", ErrInvalidAmount, distributed, declared)
	}

	// The fee either pays the privileged executor or returns to the sender;
	// it never stays debited.
	if fee.Sign() > 0 {
		feeRecipient := req.Sender
		if privileged {
			feeRecipient = executor
		}
		if err := e.state.Credit(feeRecipient, req.Token, fee); err != nil {
			e.state.RevertToSnapshot(snap)
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	if privileged {
		reward, err := e.rewardAmount(OpDisperse, fee.Sign() > 0)
		if err != nil {
			e.state.RevertToSnapshot(snap)
			return err
		}
		if err := e.payoutReward(executor, reward, OpDisperse); err != nil {
			e.state.RevertToSnapshot(snap)
			return err
		}
	}

	if err := e.commitNonce(req.Sender, req.Mode, req.FreeNonce); err != nil {
		e.state.RevertToSnapshot(snap)
		return err
	}

	e.emit(events.PaymentDispersed{
		Sender:     req.Sender[:],
		Token:      req.Token,
		Total:      declared,
		Fee:        fee,
		Recipients: len(req.Recipients),
		Executor:   executor[:],
	})
	return nil
}

// Balance exposes the ledger balance query.
func (e *Engine) Balance(addr [20]byte, token string) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.Balance(addr, token)
}

// SequentialNonce exposes the sender's current sequential counter.
func (e *Engine) SequentialNonce(addr [20]byte) (uint64, error) {
	if e.state == nil {
		return 0, errNilState
	}
	return e.state.SequentialNonce(addr)
}

// FreeNonceUsed reports whether a free-mode nonce value was consumed.
func (e *Engine) FreeNonceUsed(addr [20]byte, value [32]byte) (bool, error) {
	if e.state == nil {
		return false, errNilState
	}
	return e.state.FreeNonceUsed(addr, value)
}

func freeNonceString(value [32]byte) string {
	return hexHash(value)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
