package sale

import (
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ModuleName keys the pause switch and the metrics namespace for this module.
const ModuleName = "sale"

// WrappedNativeSymbol is the canonical symbol of the 1:1 wrapped
// representation of the native currency. Categories quoted in it accept
// attached native value on purchase and pay out unwrapped native currency.
const WrappedNativeSymbol = "WGATE"

// Roles gating the administration surface. Owner-level covers fund and
// identity parameters; governance-level covers sale configuration.
const (
	RoleSaleOwner      = "ROLE_SALE_OWNER"
	RoleSaleGovernance = "ROLE_SALE_GOVERNANCE"
)

// CategorySale is the per-category sale record owned by the ledger. Supply
// counters satisfy 0 <= RemainingSupply <= MaxSupply; the window satisfies
// StartHeight < EndHeight and a zero StartHeight marks an absent record.
type CategorySale struct {
	CategoryID      uint64
	Seller          [20]byte
	QuoteAsset      string
	RemainingSupply *big.Int
	MaxSupply       *big.Int
	StartHeight     uint64
	EndHeight       uint64
	// IsBidding is a reserved extension point: stored and reported but not
	// consulted by any purchase flow.
	IsBidding bool
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored record.
func (s *CategorySale) Clone() *CategorySale {
	if s == nil {
		return nil
	}
	clone := *s
	if s.RemainingSupply != nil {
		clone.RemainingSupply = new(big.Int).Set(s.RemainingSupply)
	} else {
		clone.RemainingSupply = big.NewInt(0)
	}
	if s.MaxSupply != nil {
		clone.MaxSupply = new(big.Int).Set(s.MaxSupply)
	} else {
		clone.MaxSupply = big.NewInt(0)
	}
	return &clone
}

// SanitizeSale validates and normalises a sale record, returning a clone
// with canonical asset casing and non-nil supply counters.
func SanitizeSale(s *CategorySale) (*CategorySale, error) {
	if s == nil {
		return nil, fmt.Errorf("sale: nil record")
	}
	clone := s.Clone()
	asset, err := NormalizeAsset(clone.QuoteAsset)
	if err != nil {
		return nil, err
	}
	clone.QuoteAsset = asset
	if clone.RemainingSupply.Sign() < 0 {
		return nil, fmt.Errorf("sale: negative remaining supply")
	}
	if clone.MaxSupply.Sign() < 0 {
		return nil, fmt.Errorf("sale: negative max supply")
	}
	if clone.RemainingSupply.Cmp(clone.MaxSupply) > 0 {
		return nil, fmt.Errorf("sale: remaining supply above cap")
	}
	if clone.StartHeight >= clone.EndHeight {
		return nil, fmt.Errorf("%w: start %d end %d", ErrInvalidWindow, clone.StartHeight, clone.EndHeight)
	}
	return clone, nil
}

// BuyLimitWindow is the rolling per-buyer-per-category purchase counter. A
// zero WindowStart means no window has been opened yet.
type BuyLimitWindow struct {
	Count       uint64
	WindowStart uint64
}

// TradeRecord is the immutable audit entry persisted for every successful
// purchase.
type TradeRecord struct {
	ID         [32]byte
	CategoryID uint64
	Seller     [20]byte
	Buyer      [20]byte
	QuoteAsset string
	Price      *big.Int
	Fee        *big.Int
	Height     uint64
}

// Clone returns a deep copy of the trade record.
func (t *TradeRecord) Clone() *TradeRecord {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Price != nil {
		clone.Price = new(big.Int).Set(t.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	if t.Fee != nil {
		clone.Fee = new(big.Int).Set(t.Fee)
	} else {
		clone.Fee = big.NewInt(0)
	}
	return &clone
}

// TradeID derives the deterministic identifier for a purchase from the
// buyer, category and height of execution.
func TradeID(buyer [20]byte, categoryID uint64, height uint64) [32]byte {
	payload := fmt.Sprintf("%d/%d", categoryID, height)
	return ethcrypto.Keccak256Hash(buyer[:], []byte(payload))
}

// NormalizeAsset canonicalises a quote-asset symbol. The empty string is
// the null sentinel and is rejected with ErrInvalidAsset.
func NormalizeAsset(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", ErrInvalidAsset
	}
	return trimmed, nil
}

// VaultAddress returns the module custody account that holds collected quote
// assets between the collect and payout legs of a purchase.
func VaultAddress() [20]byte {
	var addr [20]byte
	sum := ethcrypto.Keccak256([]byte("mintgate/sale/vault"))
	copy(addr[:], sum[len(sum)-20:])
	return addr
}

func isZeroAddress(addr [20]byte) bool {
	return addr == ([20]byte{})
}
