package sale

import (
	"errors"
	"math/big"
	"testing"

	"mintgate/core/types"
)

func newTransferFixture() (*Transfer, *mockState, [20]byte) {
	state := newMockState()
	vault := VaultAddress()
	return NewTransfer(state, vault, WrappedNativeSymbol), state, vault
}

func setTokenBalance(state *mockState, addr [20]byte, asset string, amount int64) {
	account := types.NewAccount()
	if existing, ok := state.accounts[string(addr[:])]; ok {
		account = existing.Clone()
	}
	account.SetTokenBalance(asset, big.NewInt(amount))
	state.accounts[string(addr[:])] = account
}

func setNativeBalance(state *mockState, addr [20]byte, amount int64) {
	account := types.NewAccount()
	if existing, ok := state.accounts[string(addr[:])]; ok {
		account = existing.Clone()
	}
	account.BalanceNative = big.NewInt(amount)
	state.accounts[string(addr[:])] = account
}

func balanceOf(state *mockState, addr [20]byte, asset string) *big.Int {
	account, ok := state.accounts[string(addr[:])]
	if !ok {
		return big.NewInt(0)
	}
	return account.TokenBalance(asset)
}

func nativeOf(state *mockState, addr [20]byte) *big.Int {
	account, ok := state.accounts[string(addr[:])]
	if !ok || account.BalanceNative == nil {
		return big.NewInt(0)
	}
	return account.BalanceNative
}

func TestCollectPullsTokensIntoVault(t *testing.T) {
	transfer, state, vault := newTransferFixture()
	payer := newTestAddress(0xA1)
	setTokenBalance(state, payer, "TOKEN_A", 1000)

	if err := transfer.Collect("TOKEN_A", payer, big.NewInt(400), nil); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if balanceOf(state, payer, "TOKEN_A").Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("payer not debited: %s", balanceOf(state, payer, "TOKEN_A"))
	}
	if balanceOf(state, vault, "TOKEN_A").Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("vault not credited: %s", balanceOf(state, vault, "TOKEN_A"))
	}
}

func TestCollectInsufficientBalanceLeavesAccountsUntouched(t *testing.T) {
	transfer, state, vault := newTransferFixture()
	payer := newTestAddress(0xA2)
	setTokenBalance(state, payer, "TOKEN_A", 100)

	err := transfer.Collect("TOKEN_A", payer, big.NewInt(400), nil)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if balanceOf(state, payer, "TOKEN_A").Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("payer balance changed on failed collect")
	}
	if balanceOf(state, vault, "TOKEN_A").Sign() != 0 {
		t.Fatalf("vault credited on failed collect")
	}
}

func TestCollectAttachedNativeWraps(t *testing.T) {
	transfer, state, vault := newTransferFixture()
	payer := newTestAddress(0xA3)
	setNativeBalance(state, payer, 1000)

	if err := transfer.Collect("TOKEN_A", payer, big.NewInt(400), big.NewInt(400)); !errors.Is(err, ErrAssetMismatch) {
		t.Fatalf("expected ErrAssetMismatch, got %v", err)
	}
	if err := transfer.Collect(WrappedNativeSymbol, payer, big.NewInt(400), big.NewInt(399)); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
	if nativeOf(state, payer).Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("payer debited by rejected collects")
	}

	if err := transfer.Collect(WrappedNativeSymbol, payer, big.NewInt(400), big.NewInt(400)); err != nil {
		t.Fatalf("wrap failed: %v", err)
	}
	if nativeOf(state, payer).Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("payer native not debited: %s", nativeOf(state, payer))
	}
	if balanceOf(state, vault, WrappedNativeSymbol).Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("vault wrapped balance mismatch: %s", balanceOf(state, vault, WrappedNativeSymbol))
	}
}

func TestPayoutUnwrapsWrappedNative(t *testing.T) {
	transfer, state, vault := newTransferFixture()
	recipient := newTestAddress(0xA4)
	setTokenBalance(state, vault, WrappedNativeSymbol, 500)

	if err := transfer.Payout(WrappedNativeSymbol, recipient, big.NewInt(300)); err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if nativeOf(state, recipient).Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("recipient native not credited: %s", nativeOf(state, recipient))
	}
	if balanceOf(state, vault, WrappedNativeSymbol).Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("vault not debited: %s", balanceOf(state, vault, WrappedNativeSymbol))
	}

	if err := transfer.Payout(WrappedNativeSymbol, recipient, big.NewInt(300)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed for underfunded vault, got %v", err)
	}
	if nativeOf(state, recipient).Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("recipient credited by failed payout")
	}
}

func TestPayoutTokensFromVault(t *testing.T) {
	transfer, state, vault := newTransferFixture()
	recipient := newTestAddress(0xA5)
	setTokenBalance(state, vault, "TOKEN_A", 500)

	if err := transfer.Payout("TOKEN_A", recipient, big.NewInt(500)); err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if balanceOf(state, recipient, "TOKEN_A").Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("recipient not credited")
	}
	if balanceOf(state, vault, "TOKEN_A").Sign() != 0 {
		t.Fatalf("vault not emptied")
	}
	// Zero payouts short-circuit without touching accounts.
	if err := transfer.Payout("TOKEN_A", recipient, big.NewInt(0)); err != nil {
		t.Fatalf("zero payout failed: %v", err)
	}
}
