package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"mintgate/core/types"
	"mintgate/native/sale"
	"mintgate/storage"
)

// Manager is a write-buffered, journaled view over a storage.Database. All
// writes land in an in-memory overlay first; Snapshot and RevertToSnapshot
// give the engine all-or-nothing purchase semantics, and Commit flushes the
// overlay to the backing database once a call has fully succeeded.
type Manager struct {
	db        storage.Database
	overlay   map[string]overlayEntry
	journal   []journalEntry
	snapshots []int
}

type overlayEntry struct {
	value   []byte
	deleted bool
}

type journalEntry struct {
	key     string
	hadPrev bool
	prev    overlayEntry
}

// NewManager constructs a manager over the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		overlay: make(map[string]overlayEntry),
	}
}

// Snapshot marks the current journal position and returns an identifier for
// RevertToSnapshot.
func (m *Manager) Snapshot() int {
	m.snapshots = append(m.snapshots, len(m.journal))
	return len(m.snapshots) - 1
}

// RevertToSnapshot undoes every overlay write made since the identified
// snapshot. Reverting to an unknown identifier is a no-op.
func (m *Manager) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		return
	}
	target := m.snapshots[id]
	for len(m.journal) > target {
		entry := m.journal[len(m.journal)-1]
		m.journal = m.journal[:len(m.journal)-1]
		if entry.hadPrev {
			m.overlay[entry.key] = entry.prev
		} else {
			delete(m.overlay, entry.key)
		}
	}
	m.snapshots = m.snapshots[:id]
}

// Commit flushes the overlay to the backing database and clears the journal.
func (m *Manager) Commit() error {
	for key, entry := range m.overlay {
		if entry.deleted {
			if err := m.db.Delete([]byte(key)); err != nil {
				return fmt.Errorf("state: commit delete: %w", err)
			}
			continue
		}
		if err := m.db.Put([]byte(key), entry.value); err != nil {
			return fmt.Errorf("state: commit put: %w", err)
		}
	}
	m.overlay = make(map[string]overlayEntry)
	m.journal = m.journal[:0]
	m.snapshots = m.snapshots[:0]
	return nil
}

// Discard drops all uncommitted writes.
func (m *Manager) Discard() {
	m.overlay = make(map[string]overlayEntry)
	m.journal = m.journal[:0]
	m.snapshots = m.snapshots[:0]
}

func (m *Manager) rawGet(key []byte) ([]byte, bool, error) {
	if entry, ok := m.overlay[string(key)]; ok {
		if entry.deleted {
			return nil, false, nil
		}
		return append([]byte(nil), entry.value...), true, nil
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) rawPut(key []byte, value []byte) {
	m.record(string(key))
	m.overlay[string(key)] = overlayEntry{value: append([]byte(nil), value...)}
}

func (m *Manager) rawDelete(key []byte) {
	m.record(string(key))
	m.overlay[string(key)] = overlayEntry{deleted: true}
}

func (m *Manager) record(key string) {
	prev, had := m.overlay[key]
	m.journal = append(m.journal, journalEntry{key: key, hadPrev: had, prev: prev})
}

// SaleGet loads the sale record for a category.
func (m *Manager) SaleGet(categoryID uint64) (*sale.CategorySale, bool, error) {
	raw, ok, err := m.rawGet(saleKey(categoryID))
	if err != nil || !ok {
		return nil, false, err
	}
	var rec sale.CategorySale
	if err := rlp.DecodeBytes(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("state: decode sale: %w", err)
	}
	return &rec, true, nil
}

// SalePut stores a sanitised sale record.
func (m *Manager) SalePut(rec *sale.CategorySale) error {
	sanitized, err := sale.SanitizeSale(rec)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(sanitized)
	if err != nil {
		return fmt.Errorf("state: encode sale: %w", err)
	}
	m.rawPut(saleKey(sanitized.CategoryID), encoded)
	return nil
}

// SaleDelete removes the sale record for a category.
func (m *Manager) SaleDelete(categoryID uint64) error {
	m.rawDelete(saleKey(categoryID))
	return nil
}

// BuyWindowGet loads a buyer's rate-limit window for a category.
func (m *Manager) BuyWindowGet(buyer [20]byte, categoryID uint64) (*sale.BuyLimitWindow, bool, error) {
	raw, ok, err := m.rawGet(windowKey(buyer, categoryID))
	if err != nil || !ok {
		return nil, false, err
	}
	var window sale.BuyLimitWindow
	if err := rlp.DecodeBytes(raw, &window); err != nil {
		return nil, false, fmt.Errorf("state: decode buy window: %w", err)
	}
	return &window, true, nil
}

// BuyWindowPut stores a buyer's rate-limit window.
func (m *Manager) BuyWindowPut(buyer [20]byte, categoryID uint64, window *sale.BuyLimitWindow) error {
	if window == nil {
		return fmt.Errorf("state: nil buy window")
	}
	encoded, err := rlp.EncodeToBytes(window)
	if err != nil {
		return fmt.Errorf("state: encode buy window: %w", err)
	}
	m.rawPut(windowKey(buyer, categoryID), encoded)
	return nil
}

// TradePut stores an executed trade record.
func (m *Manager) TradePut(trade *sale.TradeRecord) error {
	if trade == nil {
		return fmt.Errorf("state: nil trade")
	}
	encoded, err := rlp.EncodeToBytes(trade.Clone())
	if err != nil {
		return fmt.Errorf("state: encode trade: %w", err)
	}
	m.rawPut(tradeKey(trade.ID), encoded)
	return nil
}

// TradeGet loads a trade record by id.
func (m *Manager) TradeGet(id [32]byte) (*sale.TradeRecord, bool, error) {
	raw, ok, err := m.rawGet(tradeKey(id))
	if err != nil || !ok {
		return nil, false, err
	}
	var trade sale.TradeRecord
	if err := rlp.DecodeBytes(raw, &trade); err != nil {
		return nil, false, fmt.Errorf("state: decode trade: %w", err)
	}
	return &trade, true, nil
}

// GetAccount loads the account for an address, returning an initialised
// empty account when none exists.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	raw, ok, err := m.rawGet(accountKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewAccount(), nil
	}
	var account types.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return account.Normalize(), nil
}

// PutAccount stores the account for an address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	encoded, err := json.Marshal(account.Normalize())
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	m.rawPut(accountKey(addr), encoded)
	return nil
}

// ParamStoreGet loads a raw parameter value.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	return m.rawGet(paramKey(name))
}

// ParamStoreSet stores a raw parameter value.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	m.rawPut(paramKey(name), value)
	return nil
}

// HasRole reports whether the address holds the named role.
func (m *Manager) HasRole(role string, addr []byte) bool {
	_, ok, err := m.rawGet(roleKey(role, addr))
	return err == nil && ok
}

// GrantRole assigns the named role to the address.
func (m *Manager) GrantRole(role string, addr []byte) error {
	if role == "" || len(addr) == 0 {
		return fmt.Errorf("state: role and address required")
	}
	m.rawPut(roleKey(role, addr), []byte{1})
	return nil
}

// RevokeRole removes the named role from the address.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	m.rawDelete(roleKey(role, addr))
	return nil
}
