package sale

import (
	"math/big"
	"testing"
)

func TestFixedPriceModel(t *testing.T) {
	model := FixedPriceModel{Unit: big.NewInt(500)}
	price, err := model.Price(big.NewInt(100), big.NewInt(7), 1)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if price.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected price: %s", price)
	}
	// The returned value is a copy: mutating it must not poison later quotes.
	price.SetInt64(1)
	again, _ := model.Price(big.NewInt(100), big.NewInt(7), 1)
	if again.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("model state leaked: %s", again)
	}

	if _, err := (FixedPriceModel{}).Price(nil, nil, 1); err == nil {
		t.Fatalf("expected missing unit rejection")
	}
	if _, err := (FixedPriceModel{Unit: big.NewInt(0)}).Price(nil, nil, 1); err == nil {
		t.Fatalf("expected zero unit rejection")
	}
}

func TestAscendingTierModelSteps(t *testing.T) {
	model := AscendingTierModel{Base: big.NewInt(100), Step: big.NewInt(5), TierSize: 10}
	max := big.NewInt(100)
	cases := []struct {
		remaining int64
		want      int64
	}{
		{100, 100}, // nothing sold, first tier
		{91, 100},  // 9 sold, still first tier
		{90, 105},  // 10 sold, second tier
		{81, 105},
		{80, 110},
		{1, 145}, // 99 sold, tenth tier
		{0, 150}, // fully sold
	}
	for _, tc := range cases {
		price, err := model.Price(max, big.NewInt(tc.remaining), 1)
		if err != nil {
			t.Fatalf("remaining %d: %v", tc.remaining, err)
		}
		if price.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("remaining %d: got %s, want %d", tc.remaining, price, tc.want)
		}
	}
}

func TestAscendingTierModelValidation(t *testing.T) {
	if _, err := (AscendingTierModel{Step: big.NewInt(5), TierSize: 10}).Price(big.NewInt(10), big.NewInt(5), 1); err == nil {
		t.Fatalf("expected missing base rejection")
	}
	if _, err := (AscendingTierModel{Base: big.NewInt(100), Step: big.NewInt(-1), TierSize: 10}).Price(big.NewInt(10), big.NewInt(5), 1); err == nil {
		t.Fatalf("expected negative step rejection")
	}
	if _, err := (AscendingTierModel{Base: big.NewInt(100), Step: big.NewInt(5)}).Price(big.NewInt(10), big.NewInt(5), 1); err == nil {
		t.Fatalf("expected zero tier size rejection")
	}
	if _, err := (AscendingTierModel{Base: big.NewInt(100), Step: big.NewInt(5), TierSize: 10}).Price(big.NewInt(10), big.NewInt(20), 1); err == nil {
		t.Fatalf("expected remaining-above-cap rejection")
	}
}
