package sale

import (
	"encoding/json"
	"fmt"
)

// paramsKey is the canonical parameter-store slot for the module
// configuration. Values are marshalled as JSON to align with governance
// proposal payloads.
const paramsKey = "sale/params"

// Default limits applied when the store has never been initialised.
const (
	DefaultFeeBps         = 0
	DefaultBuyLimitCount  = 10
	DefaultBuyLimitPeriod = 100
)

// MaxFeeBps bounds the fee rate: 10000 basis points is 100.00%.
const MaxFeeBps = 10_000

// Params is the process-wide sale configuration. Every field is
// independently consistent, so setters write single fields with no
// transactional coupling.
type Params struct {
	FeeBps         uint32   `json:"feeBps"`
	FeeCollector   [20]byte `json:"feeCollector"`
	BuyLimitCount  uint64   `json:"buyLimitCount"`
	BuyLimitPeriod uint64   `json:"buyLimitPeriod"`
	PriceModel     string   `json:"priceModel"`
	Paused         bool     `json:"paused"`
	// PurchaseSigner is a reserved extension point for an EOA-signature
	// verification gate. It is stored and reported but never enforced.
	PurchaseSigner [20]byte `json:"purchaseSigner"`
}

type paramsState interface {
	ParamStoreGet(name string) ([]byte, bool, error)
	ParamStoreSet(name string, value []byte) error
}

// ParamStore provides typed access to the module configuration.
type ParamStore struct {
	state paramsState
}

// NewParamStore constructs a parameter store over the supplied backend.
func NewParamStore(state paramsState) *ParamStore {
	return &ParamStore{state: state}
}

func (s *ParamStore) withState() (paramsState, error) {
	if s == nil || s.state == nil {
		return nil, errNilState
	}
	return s.state, nil
}

// Initialized reports whether a configuration has ever been persisted.
func (s *ParamStore) Initialized() (bool, error) {
	state, err := s.withState()
	if err != nil {
		return false, err
	}
	_, ok, err := state.ParamStoreGet(paramsKey)
	return ok, err
}

// Load returns the stored configuration, falling back to defaults when the
// store has never been written.
func (s *ParamStore) Load() (Params, error) {
	state, err := s.withState()
	if err != nil {
		return Params{}, err
	}
	raw, ok, err := state.ParamStoreGet(paramsKey)
	if err != nil {
		return Params{}, fmt.Errorf("sale: load params: %w", err)
	}
	if !ok {
		return Params{
			FeeBps:         DefaultFeeBps,
			BuyLimitCount:  DefaultBuyLimitCount,
			BuyLimitPeriod: DefaultBuyLimitPeriod,
		}, nil
	}
	var params Params
	if err := json.Unmarshal(raw, &params); err != nil {
		return Params{}, fmt.Errorf("sale: decode params: %w", err)
	}
	return params, nil
}

// Save persists the configuration.
func (s *ParamStore) Save(params Params) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if params.FeeBps > MaxFeeBps {
		return fmt.Errorf("sale: fee bps out of range: %d", params.FeeBps)
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("sale: encode params: %w", err)
	}
	return state.ParamStoreSet(paramsKey, encoded)
}

// SetFeeBps stores a new fee rate in basis points.
func (s *ParamStore) SetFeeBps(bps uint32) (Params, error) {
	params, err := s.Load()
	if err != nil {
		return Params{}, err
	}
	if bps > MaxFeeBps {
		return Params{}, fmt.Errorf("sale: fee bps out of range: %d", bps)
	}
	if params.FeeBps == bps {
		return Params{}, ErrNoOpUpdate
	}
	params.FeeBps = bps
	return params, s.Save(params)
}

// SetFeeCollector stores the address receiving fee proceeds.
func (s *ParamStore) SetFeeCollector(addr [20]byte) (Params, error) {
	params, err := s.Load()
	if err != nil {
		return Params{}, err
	}
	if isZeroAddress(addr) {
		return Params{}, ErrZeroAddress
	}
	if params.FeeCollector == addr {
		return Params{}, ErrNoOpUpdate
	}
	params.FeeCollector = addr
	return params, s.Save(params)
}

// SetBuyLimit stores the per-buyer purchase count and rolling period.
func (s *ParamStore) SetBuyLimit(count, period uint64) (Params, error) {
	params, err := s.Load()
	if err != nil {
		return Params{}, err
	}
	if count == 0 || period == 0 {
		return Params{}, fmt.Errorf("sale: buy limit count and period must be positive")
	}
	if params.BuyLimitCount == count && params.BuyLimitPeriod == period {
		return Params{}, ErrNoOpUpdate
	}
	params.BuyLimitCount = count
	params.BuyLimitPeriod = period
	return params, s.Save(params)
}

// SetPriceModel stores the handle of the active pricing strategy.
func (s *ParamStore) SetPriceModel(handle string) (Params, error) {
	params, err := s.Load()
	if err != nil {
		return Params{}, err
	}
	if handle == "" {
		return Params{}, fmt.Errorf("sale: price model handle required")
	}
	if params.PriceModel == handle {
		return Params{}, ErrNoOpUpdate
	}
	params.PriceModel = handle
	return params, s.Save(params)
}

// SetPaused flips the module pause switch.
func (s *ParamStore) SetPaused(paused bool) (Params, error) {
	params, err := s.Load()
	if err != nil {
		return Params{}, err
	}
	if params.Paused == paused {
		return Params{}, ErrNoOpUpdate
	}
	params.Paused = paused
	return params, s.Save(params)
}

// IsPaused implements the native/common.PauseView interface for this module.
func (s *ParamStore) IsPaused(module string) bool {
	if module != ModuleName {
		return false
	}
	params, err := s.Load()
	if err != nil {
		// An unreadable store fails closed: purchases halt rather than run
		// against unknown configuration.
		return true
	}
	return params.Paused
}
