package sale

import (
	"fmt"
	"math/big"

	"mintgate/core/events"
	"mintgate/core/types"
	nativecommon "mintgate/native/common"
)

// Minter is the consumed collectible-registry capability. A mint failure is
// a fatal abort of the whole purchase.
type Minter interface {
	Mint(recipient [20]byte, categoryID uint64, metadata []byte) error
}

type engineState interface {
	ledgerState
	limiterState
	transferState
	TradePut(trade *TradeRecord) error
	TradeGet(id [32]byte) (*TradeRecord, bool, error)
	HasRole(role string, addr []byte) bool
	ParamStoreGet(name string) ([]byte, bool, error)
	ParamStoreSet(name string, value []byte) error
	Snapshot() int
	RevertToSnapshot(id int)
}

type saleEvent struct {
	evt *types.Event
}

func (e saleEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e saleEvent) Event() *types.Event { return e.evt }

// PurchaseRequest carries one buyer-facing purchase call. Originator is the
// ultimate transaction originator; purchases where it differs from the buyer
// are rejected so composed intermediary calls cannot buy on someone's
// behalf.
type PurchaseRequest struct {
	Buyer          [20]byte
	Originator     [20]byte
	CategoryID     uint64
	AttachedNative *big.Int
	Metadata       []byte
}

// Engine orchestrates the purchase flow and fronts the administration
// surface. All state mutation funnels through the ledger, limiter and
// transfer components over one shared backend.
type Engine struct {
	state    engineState
	ledger   *Ledger
	limiter  *Limiter
	transfer *Transfer
	params   *ParamStore
	emitter  events.Emitter
	minter   Minter
	models   map[string]PriceModel
	heightFn func() uint64
}

// NewEngine creates a sale engine with a no-op emitter and no state wired.
// Callers must call SetState and SetMinter before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		models:  make(map[string]PriceModel),
	}
}

// SetState configures the state backend and rebuilds the component wiring
// on top of it.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.ledger = NewLedger(state)
	e.limiter = NewLimiter(state)
	e.transfer = NewTransfer(state, VaultAddress(), WrappedNativeSymbol)
	e.params = NewParamStore(state)
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetMinter configures the collectible-registry capability.
func (e *Engine) SetMinter(minter Minter) { e.minter = minter }

// SetHeightFunc configures the block-height source consulted by window and
// rate-limit checks.
func (e *Engine) SetHeightFunc(height func() uint64) { e.heightFn = height }

// RegisterPriceModel makes a pricing strategy available under a handle. The
// active handle is selected through SetPriceModel on the admin surface.
func (e *Engine) RegisterPriceModel(handle string, model PriceModel) {
	if e.models == nil {
		e.models = make(map[string]PriceModel)
	}
	if handle == "" || model == nil {
		return
	}
	e.models[handle] = model
}

// Ledger exposes the category ledger for read paths.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Limiter exposes the rate limiter for read paths.
func (e *Engine) Limiter() *Limiter { return e.limiter }

// Params exposes the parameter store for read paths.
func (e *Engine) Params() *ParamStore { return e.params }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(saleEvent{evt: event})
}

func (e *Engine) height() uint64 {
	if e == nil || e.heightFn == nil {
		return 0
	}
	return e.heightFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// Purchase executes one purchase end to end. The step order is fixed:
// pause/originator/window checks, supply reservation, price computation,
// rate-limit update, fee split, collect, disburse, mint, record. Supply
// reservation and the rate-limit update are committed before any fund
// movement so a reentrant call observes already-decremented supply and an
// already-advanced window. A rejection at the rate-limit step keeps both
// mutations; any failure from the collect step onward reverts the whole
// purchase.
func (e *Engine) Purchase(req PurchaseRequest) (*TradeRecord, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.minter == nil {
		return nil, errNilMinter
	}
	if err := nativecommon.Guard(e.params, ModuleName); err != nil {
		return nil, err
	}
	params, err := e.params.Load()
	if err != nil {
		return nil, err
	}
	if req.Buyer != req.Originator {
		return nil, fmt.Errorf("%w: purchase must come from the originating account", ErrUnauthorized)
	}
	if isZeroAddress(req.Buyer) {
		return nil, ErrZeroAddress
	}
	currentHeight := e.height()
	saleRec, ok, err := e.ledger.Get(req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: category %d", errSaleNotFound, req.CategoryID)
	}
	if currentHeight < saleRec.StartHeight || currentHeight > saleRec.EndHeight {
		return nil, fmt.Errorf("%w: height %d outside [%d, %d]", ErrInvalidWindow, currentHeight, saleRec.StartHeight, saleRec.EndHeight)
	}

	snapshot := e.state.Snapshot()

	reserved, err := e.ledger.DecrementSupply(req.CategoryID, big.NewInt(1))
	if err != nil {
		return nil, err
	}

	model, ok := e.models[params.PriceModel]
	if !ok {
		e.state.RevertToSnapshot(snapshot)
		return nil, fmt.Errorf("%w: %q", errPriceModelUnknown, params.PriceModel)
	}
	price, err := model.Price(reserved.MaxSupply, reserved.RemainingSupply, req.CategoryID)
	if err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		e.state.RevertToSnapshot(snapshot)
		return nil, fmt.Errorf("sale: price model returned a non-positive price")
	}

	count, err := e.limiter.RecordAndCheck(req.Buyer, req.CategoryID, currentHeight, params.BuyLimitPeriod)
	if err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, err
	}
	if params.BuyLimitCount > 0 && count > params.BuyLimitCount {
		// The reservation and the window increment stay committed: a
		// rejected attempt still debits both.
		e.emitBuyWindow(req.Buyer, req.CategoryID)
		return nil, fmt.Errorf("%w: %d purchases in window, limit %d", ErrBuyLimitExceeded, count, params.BuyLimitCount)
	}

	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(params.FeeBps)))
	fee.Div(fee, big.NewInt(MaxFeeBps))
	net := new(big.Int).Sub(price, fee)

	if err := e.transfer.Collect(saleRec.QuoteAsset, req.Buyer, price, req.AttachedNative); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, err
	}
	if fee.Sign() > 0 {
		if isZeroAddress(params.FeeCollector) {
			e.state.RevertToSnapshot(snapshot)
			return nil, fmt.Errorf("%w: fee collector not configured", ErrZeroAddress)
		}
		if err := e.transfer.Payout(saleRec.QuoteAsset, params.FeeCollector, fee); err != nil {
			e.state.RevertToSnapshot(snapshot)
			return nil, err
		}
	}
	if err := e.transfer.Payout(saleRec.QuoteAsset, saleRec.Seller, net); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, err
	}
	if err := e.minter.Mint(req.Buyer, req.CategoryID, req.Metadata); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, fmt.Errorf("sale: mint failed: %w", err)
	}

	trade := &TradeRecord{
		ID:         TradeID(req.Buyer, req.CategoryID, currentHeight),
		CategoryID: req.CategoryID,
		Seller:     saleRec.Seller,
		Buyer:      req.Buyer,
		QuoteAsset: saleRec.QuoteAsset,
		Price:      new(big.Int).Set(price),
		Fee:        fee,
		Height:     currentHeight,
	}
	if err := e.state.TradePut(trade); err != nil {
		e.state.RevertToSnapshot(snapshot)
		return nil, err
	}
	e.emitBuyWindow(req.Buyer, req.CategoryID)
	e.emit(NewTradeExecutedEvent(trade))
	return trade.Clone(), nil
}

// emitBuyWindow reports the persisted window for an attempt. Only called
// once the window increment is final: either the purchase completed or the
// rate-limit rejection kept the debit. Reverted attempts emit nothing.
func (e *Engine) emitBuyWindow(buyer [20]byte, categoryID uint64) {
	if window, ok, err := e.limiter.Window(buyer, categoryID); err == nil && ok {
		e.emit(NewBuyWindowUpdatedEvent(buyer, categoryID, window))
	}
}

// Trade returns the persisted record for a trade id.
func (e *Engine) Trade(id [32]byte) (*TradeRecord, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	trade, ok, err := e.state.TradeGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return trade.Clone(), true, nil
}

// RegisterSale creates a category sale. Governance role required.
func (e *Engine) RegisterSale(caller [20]byte, categoryID uint64, seller [20]byte, cap *big.Int, startHeight, endHeight uint64, quoteAsset string) (*CategorySale, error) {
	if err := e.requireRole(RoleSaleGovernance, caller); err != nil {
		return nil, err
	}
	saleRec, err := e.ledger.RegisterSale(categoryID, seller, cap, startHeight, endHeight, e.height(), quoteAsset)
	if err != nil {
		return nil, err
	}
	e.emit(NewSaleRegisteredEvent(saleRec))
	return saleRec, nil
}

// UpdateSaleMetadata retunes the cap and window of a sale. Governance role
// required.
func (e *Engine) UpdateSaleMetadata(caller [20]byte, categoryID uint64, cap *big.Int, startHeight, endHeight uint64) (*CategorySale, error) {
	if err := e.requireRole(RoleSaleGovernance, caller); err != nil {
		return nil, err
	}
	saleRec, err := e.ledger.UpdateMetadata(categoryID, cap, startHeight, endHeight, e.height())
	if err != nil {
		return nil, err
	}
	e.emit(NewMetadataUpdatedEvent(saleRec))
	return saleRec, nil
}

// SetQuoteAsset changes a sale's quote asset. Governance role required.
func (e *Engine) SetQuoteAsset(caller [20]byte, categoryID uint64, asset string) (*CategorySale, error) {
	if err := e.requireRole(RoleSaleGovernance, caller); err != nil {
		return nil, err
	}
	saleRec, err := e.ledger.SetQuoteAsset(categoryID, asset)
	if err != nil {
		return nil, err
	}
	e.emit(NewQuoteAssetUpdatedEvent(saleRec))
	return saleRec, nil
}

// CancelSale removes a sale record. Governance role required; cancelling an
// absent category succeeds.
func (e *Engine) CancelSale(caller [20]byte, categoryID uint64) error {
	if err := e.requireRole(RoleSaleGovernance, caller); err != nil {
		return err
	}
	if err := e.ledger.CancelSale(categoryID); err != nil {
		return err
	}
	e.emit(NewSaleCancelledEvent(categoryID))
	return nil
}

// SetFeeBps stores a new fee rate. Owner role required.
func (e *Engine) SetFeeBps(caller [20]byte, bps uint32) error {
	if err := e.requireRole(RoleSaleOwner, caller); err != nil {
		return err
	}
	params, err := e.params.SetFeeBps(bps)
	if err != nil {
		return err
	}
	e.emit(NewParamsUpdatedEvent("feeBps", params))
	return nil
}

// SetFeeCollector stores the fee recipient. Owner role required.
func (e *Engine) SetFeeCollector(caller [20]byte, addr [20]byte) error {
	if err := e.requireRole(RoleSaleOwner, caller); err != nil {
		return err
	}
	params, err := e.params.SetFeeCollector(addr)
	if err != nil {
		return err
	}
	e.emit(NewParamsUpdatedEvent("feeCollector", params))
	return nil
}

// SetBuyLimit stores the rate-limit count and period. Governance role
// required.
func (e *Engine) SetBuyLimit(caller [20]byte, count, period uint64) error {
	if err := e.requireRole(RoleSaleGovernance, caller); err != nil {
		return err
	}
	params, err := e.params.SetBuyLimit(count, period)
	if err != nil {
		return err
	}
	e.emit(NewParamsUpdatedEvent("buyLimit", params))
	return nil
}

// SetPriceModel selects the active pricing strategy by handle. Owner role
// required; the handle must name a registered model.
func (e *Engine) SetPriceModel(caller [20]byte, handle string) error {
	if err := e.requireRole(RoleSaleOwner, caller); err != nil {
		return err
	}
	if _, ok := e.models[handle]; !ok {
		return fmt.Errorf("%w: %q", errPriceModelUnknown, handle)
	}
	params, err := e.params.SetPriceModel(handle)
	if err != nil {
		return err
	}
	e.emit(NewParamsUpdatedEvent("priceModel", params))
	return nil
}

// Pause halts purchases. Owner role required.
func (e *Engine) Pause(caller [20]byte) error {
	if err := e.requireRole(RoleSaleOwner, caller); err != nil {
		return err
	}
	if _, err := e.params.SetPaused(true); err != nil {
		return err
	}
	e.emit(NewPausedEvent())
	return nil
}

// Unpause resumes purchases. Owner role required.
func (e *Engine) Unpause(caller [20]byte) error {
	if err := e.requireRole(RoleSaleOwner, caller); err != nil {
		return err
	}
	if _, err := e.params.SetPaused(false); err != nil {
		return err
	}
	e.emit(NewUnpausedEvent())
	return nil
}

func (e *Engine) requireRole(role string, caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	return nativecommon.RequireRole(e.state, role, caller)
}
