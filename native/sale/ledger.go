package sale

import (
	"fmt"
	"math/big"
)

type ledgerState interface {
	SaleGet(categoryID uint64) (*CategorySale, bool, error)
	SalePut(sale *CategorySale) error
	SaleDelete(categoryID uint64) error
}

// Ledger owns the per-category sale metadata and its lifecycle. All reads
// hand out clones; all writes pass through SanitizeSale.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs a category ledger over the supplied state backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

func (l *Ledger) withState() (ledgerState, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state, nil
}

// Get returns a clone of the sale record for the category.
func (l *Ledger) Get(categoryID uint64) (*CategorySale, bool, error) {
	state, err := l.withState()
	if err != nil {
		return nil, false, err
	}
	sale, ok, err := state.SaleGet(categoryID)
	if err != nil || !ok {
		return nil, false, err
	}
	return sale.Clone(), true, nil
}

// RegisterSale creates the sale record for a category. Registration fails
// when a record already exists; cancellation is the only path back to a
// registerable category.
func (l *Ledger) RegisterSale(categoryID uint64, seller [20]byte, cap *big.Int, startHeight, endHeight, currentHeight uint64, quoteAsset string) (*CategorySale, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	if isZeroAddress(seller) {
		return nil, ErrZeroAddress
	}
	existing, ok, err := state.SaleGet(categoryID)
	if err != nil {
		return nil, err
	}
	if ok && existing.StartHeight != 0 {
		return nil, fmt.Errorf("%w: category %d", ErrDuplicateCategory, categoryID)
	}
	if err := validateWindow(startHeight, endHeight, currentHeight); err != nil {
		return nil, err
	}
	asset, err := NormalizeAsset(quoteAsset)
	if err != nil {
		return nil, err
	}
	if cap == nil || cap.Sign() <= 0 {
		return nil, fmt.Errorf("sale: cap must be positive")
	}
	sale := &CategorySale{
		CategoryID:      categoryID,
		Seller:          seller,
		QuoteAsset:      asset,
		RemainingSupply: new(big.Int).Set(cap),
		MaxSupply:       new(big.Int).Set(cap),
		StartHeight:     startHeight,
		EndHeight:       endHeight,
	}
	sanitized, err := SanitizeSale(sale)
	if err != nil {
		return nil, err
	}
	if err := state.SalePut(sanitized); err != nil {
		return nil, err
	}
	return sanitized.Clone(), nil
}

// UpdateMetadata retunes the cap and window of an existing sale. Both supply
// counters are overwritten with the new cap, so consumed supply is forgotten:
// calling this after purchases have started is a deliberate hard reset.
func (l *Ledger) UpdateMetadata(categoryID uint64, cap *big.Int, startHeight, endHeight, currentHeight uint64) (*CategorySale, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	sale, ok, err := state.SaleGet(categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: category %d", errSaleNotFound, categoryID)
	}
	if err := validateWindow(startHeight, endHeight, currentHeight); err != nil {
		return nil, err
	}
	if cap == nil || cap.Sign() <= 0 {
		return nil, fmt.Errorf("sale: cap must be positive")
	}
	updated := sale.Clone()
	updated.MaxSupply = new(big.Int).Set(cap)
	updated.RemainingSupply = new(big.Int).Set(cap)
	updated.StartHeight = startHeight
	updated.EndHeight = endHeight
	sanitized, err := SanitizeSale(updated)
	if err != nil {
		return nil, err
	}
	if err := state.SalePut(sanitized); err != nil {
		return nil, err
	}
	return sanitized.Clone(), nil
}

// SetQuoteAsset changes the asset a category's price is denominated in.
func (l *Ledger) SetQuoteAsset(categoryID uint64, asset string) (*CategorySale, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	sale, ok, err := state.SaleGet(categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: category %d", errSaleNotFound, categoryID)
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	updated := sale.Clone()
	updated.QuoteAsset = normalized
	if err := state.SalePut(updated); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// DecrementSupply reserves units of a category. The subtraction happens
// before any pricing or payment so a same-height race cannot oversell.
func (l *Ledger) DecrementSupply(categoryID uint64, amount *big.Int) (*CategorySale, error) {
	state, err := l.withState()
	if err != nil {
		return nil, err
	}
	sale, ok, err := state.SaleGet(categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: category %d", errSaleNotFound, categoryID)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("sale: decrement amount must be positive")
	}
	if sale.RemainingSupply == nil || sale.RemainingSupply.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: category %d", ErrSupplyExhausted, categoryID)
	}
	updated := sale.Clone()
	updated.RemainingSupply = new(big.Int).Sub(updated.RemainingSupply, amount)
	if err := state.SalePut(updated); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// CancelSale removes the record and the seller binding. Cancelling an absent
// category is a no-op.
func (l *Ledger) CancelSale(categoryID uint64) error {
	state, err := l.withState()
	if err != nil {
		return err
	}
	return state.SaleDelete(categoryID)
}

// IsWithinWindow reports whether the category's sale is open at the height.
func (l *Ledger) IsWithinWindow(categoryID uint64, currentHeight uint64) (bool, error) {
	state, err := l.withState()
	if err != nil {
		return false, err
	}
	sale, ok, err := state.SaleGet(categoryID)
	if err != nil || !ok {
		return false, err
	}
	return currentHeight >= sale.StartHeight && currentHeight <= sale.EndHeight, nil
}

func validateWindow(startHeight, endHeight, currentHeight uint64) error {
	if startHeight <= currentHeight {
		return fmt.Errorf("%w: start %d not after height %d", ErrInvalidWindow, startHeight, currentHeight)
	}
	if endHeight <= startHeight {
		return fmt.Errorf("%w: end %d not after start %d", ErrInvalidWindow, endHeight, startHeight)
	}
	return nil
}
