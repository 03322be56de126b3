package sale

import (
	"fmt"
	"math/big"

	"mintgate/core/types"
)

type transferState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Transfer unifies the two payment paths of a purchase: collecting the quote
// asset from the buyer (either by wrapping attached native value or by
// pulling tokens) and paying it out (unwrapping back to native currency when
// the quote asset is the wrapped-native symbol). All collected funds sit in
// the module vault between the two legs.
type Transfer struct {
	state         transferState
	vault         [20]byte
	wrappedNative string
}

// NewTransfer constructs the safe-transfer helper. wrappedNative is the
// canonical symbol of the 1:1 wrapped representation of the native currency.
func NewTransfer(state transferState, vault [20]byte, wrappedNative string) *Transfer {
	return &Transfer{state: state, vault: vault, wrappedNative: wrappedNative}
}

// Collect moves `amount` of `asset` from the payer into the module vault.
// When attached native value accompanies the call the asset must be the
// wrapped-native symbol and the attached value must equal the amount; the
// value is then wrapped 1:1 into the vault's token balance. Otherwise the
// amount is pulled from the payer's token balance. A failed collect leaves
// both accounts untouched.
func (t *Transfer) Collect(asset string, payer [20]byte, amount, attachedNative *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("sale: collect amount must be positive")
	}
	if attachedNative != nil && attachedNative.Sign() != 0 {
		if asset != t.wrappedNative {
			return fmt.Errorf("%w: asset %s does not accept native value", ErrAssetMismatch, asset)
		}
		if attachedNative.Cmp(amt) != 0 {
			return fmt.Errorf("%w: attached %s, price %s", ErrAmountMismatch, attachedNative, amt)
		}
		return t.wrap(payer, amt)
	}
	return t.moveToken(asset, payer, t.vault, amt)
}

// Payout delivers `amount` of `asset` from the module vault to the
// recipient, unwrapping to native currency when the asset is the
// wrapped-native symbol. An underfunded vault is an internal accounting bug
// once collection is symmetric, but it still surfaces as ErrTransferFailed
// rather than panicking.
func (t *Transfer) Payout(asset string, recipient [20]byte, amount *big.Int) error {
	if t == nil || t.state == nil {
		return errNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("sale: payout amount must be positive")
	}
	if asset == t.wrappedNative {
		return t.unwrap(recipient, amt)
	}
	return t.moveToken(asset, t.vault, recipient, amt)
}

// wrap debits the payer's native balance and credits the vault's
// wrapped-native token balance 1:1.
func (t *Transfer) wrap(payer [20]byte, amount *big.Int) error {
	payerAcc, err := t.state.GetAccount(payer[:])
	if err != nil {
		return err
	}
	vaultAcc, err := t.state.GetAccount(t.vault[:])
	if err != nil {
		return err
	}
	payerAcc = payerAcc.Normalize()
	vaultAcc = vaultAcc.Normalize()
	if payerAcc.BalanceNative.Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient native balance", ErrTransferFailed)
	}
	payerAcc.BalanceNative = new(big.Int).Sub(payerAcc.BalanceNative, amount)
	vaultAcc.SetTokenBalance(t.wrappedNative, new(big.Int).Add(vaultAcc.TokenBalance(t.wrappedNative), amount))
	if err := t.state.PutAccount(payer[:], payerAcc); err != nil {
		return err
	}
	return t.state.PutAccount(t.vault[:], vaultAcc)
}

// unwrap debits the vault's wrapped-native balance and credits the
// recipient's native balance 1:1.
func (t *Transfer) unwrap(recipient [20]byte, amount *big.Int) error {
	vaultAcc, err := t.state.GetAccount(t.vault[:])
	if err != nil {
		return err
	}
	recipientAcc, err := t.state.GetAccount(recipient[:])
	if err != nil {
		return err
	}
	vaultAcc = vaultAcc.Normalize()
	recipientAcc = recipientAcc.Normalize()
	held := vaultAcc.TokenBalance(t.wrappedNative)
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("%w: vault underfunded for %s", ErrTransferFailed, t.wrappedNative)
	}
	vaultAcc.SetTokenBalance(t.wrappedNative, new(big.Int).Sub(held, amount))
	recipientAcc.BalanceNative = new(big.Int).Add(recipientAcc.BalanceNative, amount)
	if err := t.state.PutAccount(t.vault[:], vaultAcc); err != nil {
		return err
	}
	return t.state.PutAccount(recipient[:], recipientAcc)
}

func (t *Transfer) moveToken(asset string, from, to [20]byte, amount *big.Int) error {
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	fromAcc, err := t.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := t.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Normalize()
	toAcc = toAcc.Normalize()
	held := fromAcc.TokenBalance(normalized)
	if held.Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient %s balance", ErrTransferFailed, normalized)
	}
	fromAcc.SetTokenBalance(normalized, new(big.Int).Sub(held, amount))
	toAcc.SetTokenBalance(normalized, new(big.Int).Add(toAcc.TokenBalance(normalized), amount))
	if err := t.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return t.state.PutAccount(to[:], toAcc)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
