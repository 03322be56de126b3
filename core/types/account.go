package types

import "math/big"

// Account is the balance sheet tracked for every address known to the sale
// engine. BalanceNative holds the spendable native currency; TokenBalances
// holds fungible token balances keyed by their canonical symbol, including
// the wrapped-native representation used for uniform quote accounting.
type Account struct {
	Nonce         uint64              `json:"nonce"`
	BalanceNative *big.Int            `json:"balanceNative"`
	TokenBalances map[string]*big.Int `json:"tokenBalances"`
}

// NewAccount returns an account with all balance fields initialised.
func NewAccount() *Account {
	return &Account{
		BalanceNative: big.NewInt(0),
		TokenBalances: make(map[string]*big.Int),
	}
}

// Normalize ensures every balance field is non-nil so callers can operate on
// the account without nil checks. The receiver is returned for chaining; a
// nil receiver yields a fresh account.
func (a *Account) Normalize() *Account {
	if a == nil {
		return NewAccount()
	}
	if a.BalanceNative == nil {
		a.BalanceNative = big.NewInt(0)
	}
	if a.TokenBalances == nil {
		a.TokenBalances = make(map[string]*big.Int)
	}
	return a
}

// TokenBalance returns the balance held for the supplied symbol. The result
// is never nil and aliases the stored value, so callers must not mutate it
// directly; use SetTokenBalance instead.
func (a *Account) TokenBalance(symbol string) *big.Int {
	if a == nil || a.TokenBalances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.TokenBalances[symbol]; ok && bal != nil {
		return bal
	}
	return big.NewInt(0)
}

// SetTokenBalance records the balance for the supplied symbol, copying the
// provided amount.
func (a *Account) SetTokenBalance(symbol string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.TokenBalances == nil {
		a.TokenBalances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.TokenBalances[symbol] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := &Account{
		Nonce:         a.Nonce,
		BalanceNative: big.NewInt(0),
		TokenBalances: make(map[string]*big.Int, len(a.TokenBalances)),
	}
	if a.BalanceNative != nil {
		clone.BalanceNative = new(big.Int).Set(a.BalanceNative)
	}
	for symbol, bal := range a.TokenBalances {
		if bal != nil {
			clone.TokenBalances[symbol] = new(big.Int).Set(bal)
		}
	}
	return clone
}
