package sale

import (
	"errors"

	nativecommon "mintgate/native/common"
)

var (
	// ErrDuplicateCategory rejects registration of a category that already
	// has a live sale record.
	ErrDuplicateCategory = errors.New("sale: category already registered")
	// ErrInvalidWindow rejects sale windows that do not start in the future,
	// do not end after they start, or purchases outside the open window.
	ErrInvalidWindow = errors.New("sale: invalid sale window")
	// ErrInvalidAsset rejects the null quote-asset sentinel.
	ErrInvalidAsset = errors.New("sale: invalid quote asset")
	// ErrSupplyExhausted rejects purchases once remaining supply cannot cover
	// the requested units.
	ErrSupplyExhausted = errors.New("sale: supply exhausted")
	// ErrBuyLimitExceeded rejects purchases beyond the per-buyer window
	// limit. The window increment still persists on rejection.
	ErrBuyLimitExceeded = errors.New("sale: buy limit exceeded")
	// ErrAssetMismatch rejects attached native value when the category is
	// not quoted in the wrapped-native asset.
	ErrAssetMismatch = errors.New("sale: attached value asset mismatch")
	// ErrAmountMismatch rejects attached native value that differs from the
	// computed price.
	ErrAmountMismatch = errors.New("sale: attached value amount mismatch")
	// ErrTransferFailed reports a failed fund movement (insufficient balance
	// or allowance on collect, underfunded custody on payout).
	ErrTransferFailed = errors.New("sale: transfer failed")
	// ErrNoOpUpdate rejects parameter writes that would not change the
	// stored value.
	ErrNoOpUpdate = errors.New("sale: no-op parameter update")
	// ErrZeroAddress rejects the zero address where a real recipient or
	// authority is required.
	ErrZeroAddress = errors.New("sale: zero address")

	// ErrPaused and ErrUnauthorized alias the shared module guards so
	// callers can match either spelling with errors.Is.
	ErrPaused       = nativecommon.ErrModulePaused
	ErrUnauthorized = nativecommon.ErrUnauthorized
)

var (
	errNilState          = errors.New("sale engine: state not configured")
	errNilMinter         = errors.New("sale engine: minter not configured")
	errSaleNotFound      = errors.New("sale engine: category not found")
	errPriceModelUnknown = errors.New("sale engine: price model not registered")
)
