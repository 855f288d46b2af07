package state

import (
	"fmt"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"corepay/storage"
)

// Manager provides keyed access to all ledger state: token metadata, balances,
// replay-protection nonces, aliases, and staker bookkeeping. All mutations are
// buffered in an overlay until Commit so a failed operation can be discarded
// without touching the backing store.
//
// Manager is not safe for concurrent use; the node serialises operations.
type Manager struct {
	db      storage.Database
	overlay map[string][]byte
	journal []journalEntry
}

// journalEntry records the overlay state a key held before a write, so a
// slice of entries can be unwound to restore an earlier overlay.
type journalEntry struct {
	key     string
	prev    []byte
	existed bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		overlay: make(map[string][]byte),
	}
}

// TokenMetadata describes a registered native token.
type TokenMetadata struct {
	Symbol   string
	Name     string
	Decimals uint8
}

var (
	tokenPrefix      = []byte("token:")
	tokenListKey     = ethcrypto.Keccak256([]byte("token-list"))
	balancePrefix    = []byte("balance:")
	seqNoncePrefix   = []byte("nonce-seq:")
	freeNoncePrefix  = []byte("nonce-free:")
	aliasPrefix      = []byte("alias:")
	stakerPrefix     = []byte("staker:")
	rewardUnitPrefix = []byte("reward-unit:")
)

func tokenMetadataKey(symbol string) []byte {
	buf := make([]byte, len(tokenPrefix)+len(symbol))
	copy(buf, tokenPrefix)
	copy(buf[len(tokenPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr [20]byte, symbol string) []byte {
	buf := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], symbol)
	buf[len(balancePrefix)+len(symbol)] = ':'
	copy(buf[len(balancePrefix)+len(symbol)+1:], addr[:])
	return ethcrypto.Keccak256(buf)
}

func seqNonceKey(addr [20]byte) []byte {
	buf := make([]byte, len(seqNoncePrefix)+len(addr))
	copy(buf, seqNoncePrefix)
	copy(buf[len(seqNoncePrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func freeNonceKey(addr [20]byte, value [32]byte) []byte {
	buf := make([]byte, len(freeNoncePrefix)+len(addr)+1+len(value))
	copy(buf, freeNoncePrefix)
	copy(buf[len(freeNoncePrefix):], addr[:])
	buf[len(freeNoncePrefix)+len(addr)] = ':'
	copy(buf[len(freeNoncePrefix)+len(addr)+1:], value[:])
	return ethcrypto.Keccak256(buf)
}

func aliasKey(alias string) []byte {
	buf := make([]byte, len(aliasPrefix)+len(alias))
	copy(buf, aliasPrefix)
	copy(buf[len(aliasPrefix):], alias)
	return ethcrypto.Keccak256(buf)
}

func stakerKey(addr [20]byte) []byte {
	buf := make([]byte, len(stakerPrefix)+len(addr))
	copy(buf, stakerPrefix)
	copy(buf[len(stakerPrefix):], addr[:])
	return ethcrypto.Keccak256(buf)
}

func rewardUnitKey(symbol string) []byte {
	buf := make([]byte, len(rewardUnitPrefix)+len(symbol))
	copy(buf, rewardUnitPrefix)
	copy(buf[len(rewardUnitPrefix):], symbol)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if value, ok := m.overlay[string(key)]; ok {
		out := make([]byte, len(value))
		copy(out, value)
		return out, nil
	}
	return m.db.Get(key)
}

func (m *Manager) put(key, value []byte) {
	k := string(key)
	prev, existed := m.overlay[k]
	m.journal = append(m.journal, journalEntry{key: k, prev: prev, existed: existed})
	buf := make([]byte, len(value))
	copy(buf, value)
	m.overlay[k] = buf
}

// Snapshot returns an identifier for the current overlay state. Passing it to
// RevertToSnapshot undoes every write made after this call.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot rolls the overlay back to the state captured by a prior
// Snapshot call. Writes made before the snapshot are preserved.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		entry := m.journal[i]
		if entry.existed {
			m.overlay[entry.key] = entry.prev
		} else {
			delete(m.overlay, entry.key)
		}
	}
	m.journal = m.journal[:id]
}

// Commit flushes all overlay writes to the backing database. Keys are flushed
// in sorted order so a crash mid-flush is at least deterministic.
func (m *Manager) Commit() error {
	keys := make([]string, 0, len(m.overlay))
	for key := range m.overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := m.db.Put([]byte(key), m.overlay[key]); err != nil {
			return fmt.Errorf("state: commit write: %w", err)
		}
	}
	m.overlay = make(map[string][]byte)
	m.journal = nil
	return nil
}

// Discard drops all uncommitted overlay writes.
func (m *Manager) Discard() {
	m.overlay = make(map[string][]byte)
	m.journal = nil
}

// Dirty reports whether uncommitted writes are pending.
func (m *Manager) Dirty() bool {
	return len(m.overlay) > 0
}

// NormalizeTokenSymbol canonicalises token symbols for state lookups.
func NormalizeTokenSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (m *Manager) loadTokenList() ([]string, error) {
	data, err := m.get(tokenListKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []string{}, nil
	}
	var list []string
	if err := rlp.DecodeBytes(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RegisterToken stores the metadata for a native token and records it in the
// token index. Registering the same symbol twice is an error.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	normalized := NormalizeTokenSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("state: token symbol required")
	}
	existing, err := m.Token(normalized)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("state: token %s already registered", normalized)
	}
	meta := &TokenMetadata{Symbol: normalized, Name: name, Decimals: decimals}
	encoded, err := rlp.EncodeToBytes(meta)
	if err != nil {
		return err
	}
	m.put(tokenMetadataKey(normalized), encoded)

	list, err := m.loadTokenList()
	if err != nil {
		return err
	}
	list = append(list, normalized)
	sort.Strings(list)
	encodedList, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	m.put(tokenListKey, encodedList)
	return nil
}

// Token retrieves token metadata by symbol, or nil when unregistered.
func (m *Manager) Token(symbol string) (*TokenMetadata, error) {
	normalized := NormalizeTokenSymbol(symbol)
	data, err := m.get(tokenMetadataKey(normalized))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	meta := new(TokenMetadata)
	if err := rlp.DecodeBytes(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// TokenList returns the registered token symbols in sorted order.
func (m *Manager) TokenList() ([]string, error) {
	return m.loadTokenList()
}

// AliasAddress resolves a normalised alias to the owning address. The second
// return reports whether the alias is registered.
func (m *Manager) AliasAddress(alias string) ([20]byte, bool, error) {
	var addr [20]byte
	data, err := m.get(aliasKey(alias))
	if err != nil {
		return addr, false, err
	}
	if len(data) != len(addr) {
		return addr, false, nil
	}
	copy(addr[:], data)
	return addr, true, nil
}

// SetAliasAddress records ownership of a normalised alias.
func (m *Manager) SetAliasAddress(alias string, addr [20]byte) error {
	if strings.TrimSpace(alias) == "" {
		return fmt.Errorf("state: alias required")
	}
	m.put(aliasKey(alias), addr[:])
	return nil
}

// IsStaker reports whether the address is registered as a staker.
func (m *Manager) IsStaker(addr [20]byte) (bool, error) {
	data, err := m.get(stakerKey(addr))
	if err != nil {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

// SetStaker flips the staker flag for an address.
func (m *Manager) SetStaker(addr [20]byte, staker bool) {
	if staker {
		m.put(stakerKey(addr), []byte{1})
		return
	}
	m.put(stakerKey(addr), []byte{0})
}
