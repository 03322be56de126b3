package sale

import (
	"errors"
	"math/big"
	"testing"
)

func TestNormalizeAsset(t *testing.T) {
	asset, err := NormalizeAsset("  token_a ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if asset != "TOKEN_A" {
		t.Fatalf("unexpected asset: %q", asset)
	}
	if _, err := NormalizeAsset("   "); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("expected ErrInvalidAsset, got %v", err)
	}
}

func TestSanitizeSaleRejectsInconsistentSupply(t *testing.T) {
	base := &CategorySale{
		CategoryID:      1,
		Seller:          newTestAddress(0x03),
		QuoteAsset:      "TOKEN_A",
		RemainingSupply: big.NewInt(5),
		MaxSupply:       big.NewInt(10),
		StartHeight:     100,
		EndHeight:       200,
	}
	if _, err := SanitizeSale(base); err != nil {
		t.Fatalf("sanitize: %v", err)
	}

	over := base.Clone()
	over.RemainingSupply = big.NewInt(11)
	if _, err := SanitizeSale(over); err == nil {
		t.Fatalf("expected remaining > max rejection")
	}
	negative := base.Clone()
	negative.RemainingSupply = big.NewInt(-1)
	if _, err := SanitizeSale(negative); err == nil {
		t.Fatalf("expected negative supply rejection")
	}
	inverted := base.Clone()
	inverted.StartHeight = 300
	if _, err := SanitizeSale(inverted); err == nil {
		t.Fatalf("expected inverted window rejection")
	}
}

func TestTradeIDIsDeterministic(t *testing.T) {
	buyer := newTestAddress(0xB1)
	a := TradeID(buyer, 7, 150)
	b := TradeID(buyer, 7, 150)
	if a != b {
		t.Fatalf("trade id not deterministic")
	}
	if a == TradeID(buyer, 7, 151) {
		t.Fatalf("trade id ignores height")
	}
	if a == TradeID(buyer, 8, 150) {
		t.Fatalf("trade id ignores category")
	}
	if a == TradeID(newTestAddress(0xB2), 7, 150) {
		t.Fatalf("trade id ignores buyer")
	}
}

func TestCategorySaleCloneIsDeep(t *testing.T) {
	rec := &CategorySale{
		CategoryID:      1,
		Seller:          newTestAddress(0x03),
		QuoteAsset:      "TOKEN_A",
		RemainingSupply: big.NewInt(5),
		MaxSupply:       big.NewInt(10),
		StartHeight:     100,
		EndHeight:       200,
	}
	clone := rec.Clone()
	clone.RemainingSupply.SetInt64(0)
	if rec.RemainingSupply.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("clone shares supply pointer")
	}
}
