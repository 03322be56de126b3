package sale

import (
	"fmt"
	"math/big"
)

// PriceModel computes the unit price for the next item of a category. Models
// must be pure: the price may depend only on the three inputs, never on
// engine state or wall-clock time.
type PriceModel interface {
	Price(maxSupply, remainingSupply *big.Int, categoryID uint64) (*big.Int, error)
}

// FixedPriceModel quotes the same unit price for every item.
type FixedPriceModel struct {
	Unit *big.Int
}

// Price implements the PriceModel interface.
func (m FixedPriceModel) Price(_, _ *big.Int, _ uint64) (*big.Int, error) {
	if m.Unit == nil || m.Unit.Sign() <= 0 {
		return nil, fmt.Errorf("sale: fixed price model requires a positive unit price")
	}
	return new(big.Int).Set(m.Unit), nil
}

// AscendingTierModel steps the unit price up as supply is consumed: every
// TierSize items sold raise the price by Step above Base. The first tier
// sells at Base.
type AscendingTierModel struct {
	Base     *big.Int
	Step     *big.Int
	TierSize uint64
}

// Price implements the PriceModel interface.
func (m AscendingTierModel) Price(maxSupply, remainingSupply *big.Int, _ uint64) (*big.Int, error) {
	if m.Base == nil || m.Base.Sign() <= 0 {
		return nil, fmt.Errorf("sale: tier model requires a positive base price")
	}
	if m.Step == nil || m.Step.Sign() < 0 {
		return nil, fmt.Errorf("sale: tier model requires a non-negative step")
	}
	if m.TierSize == 0 {
		return nil, fmt.Errorf("sale: tier model requires a positive tier size")
	}
	if maxSupply == nil || remainingSupply == nil {
		return nil, fmt.Errorf("sale: tier model requires supply counters")
	}
	sold := new(big.Int).Sub(maxSupply, remainingSupply)
	if sold.Sign() < 0 {
		return nil, fmt.Errorf("sale: remaining supply above cap")
	}
	tier := new(big.Int).Div(sold, new(big.Int).SetUint64(m.TierSize))
	price := new(big.Int).Mul(tier, m.Step)
	price.Add(price, m.Base)
	return price, nil
}
