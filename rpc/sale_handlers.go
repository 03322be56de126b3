package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"mintgate/native/sale"
	"mintgate/observability/metrics"
)

var errInvalidParams = errors.New("rpc: invalid params")

type methodSpec struct {
	handler  func(*Server, json.RawMessage) (interface{}, error)
	mutating bool
}

var methods = map[string]methodSpec{
	"sale_register":        {handler: (*Server).handleRegister, mutating: true},
	"sale_updateMetadata":  {handler: (*Server).handleUpdateMetadata, mutating: true},
	"sale_setQuoteAsset":   {handler: (*Server).handleSetQuoteAsset, mutating: true},
	"sale_cancel":          {handler: (*Server).handleCancel, mutating: true},
	"sale_purchase":        {handler: (*Server).handlePurchase, mutating: true},
	"sale_setFeeBps":       {handler: (*Server).handleSetFeeBps, mutating: true},
	"sale_setFeeCollector": {handler: (*Server).handleSetFeeCollector, mutating: true},
	"sale_setBuyLimit":     {handler: (*Server).handleSetBuyLimit, mutating: true},
	"sale_setPriceModel":   {handler: (*Server).handleSetPriceModel, mutating: true},
	"sale_pause":           {handler: (*Server).handlePause, mutating: true},
	"sale_unpause":         {handler: (*Server).handleUnpause, mutating: true},
	"sale_get":             {handler: (*Server).handleGet},
	"sale_trade":           {handler: (*Server).handleTrade},
	"sale_buyWindow":       {handler: (*Server).handleBuyWindow},
	"sale_params":          {handler: (*Server).handleParams},
}

type saleView struct {
	CategoryID      uint64 `json:"categoryId"`
	Seller          string `json:"seller"`
	QuoteAsset      string `json:"quoteAsset"`
	RemainingSupply string `json:"remainingSupply"`
	MaxSupply       string `json:"maxSupply"`
	StartHeight     uint64 `json:"startHeight"`
	EndHeight       uint64 `json:"endHeight"`
	IsBidding       bool   `json:"isBidding"`
}

type tradeView struct {
	ID         string `json:"id"`
	CategoryID uint64 `json:"categoryId"`
	Seller     string `json:"seller"`
	Buyer      string `json:"buyer"`
	QuoteAsset string `json:"quoteAsset"`
	Price      string `json:"price"`
	Fee        string `json:"fee"`
	Height     uint64 `json:"height"`
}

type paramsView struct {
	FeeBps         uint32 `json:"feeBps"`
	FeeCollector   string `json:"feeCollector"`
	BuyLimitCount  uint64 `json:"buyLimitCount"`
	BuyLimitPeriod uint64 `json:"buyLimitPeriod"`
	PriceModel     string `json:"priceModel"`
	Paused         bool   `json:"paused"`
}

func newSaleView(s *sale.CategorySale) saleView {
	view := saleView{
		CategoryID:  s.CategoryID,
		Seller:      encodeAddress(s.Seller),
		QuoteAsset:  s.QuoteAsset,
		StartHeight: s.StartHeight,
		EndHeight:   s.EndHeight,
		IsBidding:   s.IsBidding,
	}
	if s.RemainingSupply != nil {
		view.RemainingSupply = s.RemainingSupply.String()
	}
	if s.MaxSupply != nil {
		view.MaxSupply = s.MaxSupply.String()
	}
	return view
}

func newTradeView(t *sale.TradeRecord) tradeView {
	return tradeView{
		ID:         hex.EncodeToString(t.ID[:]),
		CategoryID: t.CategoryID,
		Seller:     encodeAddress(t.Seller),
		Buyer:      encodeAddress(t.Buyer),
		QuoteAsset: t.QuoteAsset,
		Price:      t.Price.String(),
		Fee:        t.Fee.String(),
		Height:     t.Height,
	}
}

func (s *Server) handleRegister(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller      string `json:"caller"`
		CategoryID  uint64 `json:"categoryId"`
		Seller      string `json:"seller"`
		Cap         string `json:"cap"`
		StartHeight uint64 `json:"startHeight"`
		EndHeight   uint64 `json:"endHeight"`
		QuoteAsset  string `json:"quoteAsset"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		return nil, err
	}
	cap, err := parseAmount(params.Cap)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.RegisterSale(caller, params.CategoryID, seller, cap, params.StartHeight, params.EndHeight, params.QuoteAsset)
	if err != nil {
		return nil, err
	}
	return newSaleView(rec), nil
}

func (s *Server) handleUpdateMetadata(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller      string `json:"caller"`
		CategoryID  uint64 `json:"categoryId"`
		Cap         string `json:"cap"`
		StartHeight uint64 `json:"startHeight"`
		EndHeight   uint64 `json:"endHeight"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	cap, err := parseAmount(params.Cap)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.UpdateSaleMetadata(caller, params.CategoryID, cap, params.StartHeight, params.EndHeight)
	if err != nil {
		return nil, err
	}
	return newSaleView(rec), nil
}

func (s *Server) handleSetQuoteAsset(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller     string `json:"caller"`
		CategoryID uint64 `json:"categoryId"`
		Asset      string `json:"asset"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	rec, err := s.engine.SetQuoteAsset(caller, params.CategoryID, params.Asset)
	if err != nil {
		return nil, err
	}
	return newSaleView(rec), nil
}

func (s *Server) handleCancel(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller     string `json:"caller"`
		CategoryID uint64 `json:"categoryId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CancelSale(caller, params.CategoryID); err != nil {
		return nil, err
	}
	return map[string]bool{"cancelled": true}, nil
}

func (s *Server) handlePurchase(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Buyer          string `json:"buyer"`
		CategoryID     uint64 `json:"categoryId"`
		AttachedNative string `json:"attachedNative"`
		Metadata       string `json:"metadata"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		return nil, err
	}
	var attached *big.Int
	if strings.TrimSpace(params.AttachedNative) != "" {
		attached, err = parseAmount(params.AttachedNative)
		if err != nil {
			return nil, err
		}
	}
	trade, err := s.engine.Purchase(sale.PurchaseRequest{
		Buyer:          buyer,
		Originator:     buyer,
		CategoryID:     params.CategoryID,
		AttachedNative: attached,
		Metadata:       []byte(params.Metadata),
	})
	if err != nil {
		return nil, err
	}
	metrics.Sale().RecordTrade(trade.CategoryID)
	if rec, ok, lerr := s.engine.Ledger().Get(trade.CategoryID); lerr == nil && ok && rec.RemainingSupply != nil {
		remaining, _ := new(big.Float).SetInt(rec.RemainingSupply).Float64()
		metrics.Sale().SetRemainingSupply(trade.CategoryID, remaining)
	}
	return newTradeView(trade), nil
}

func (s *Server) handleSetFeeBps(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		FeeBps uint32 `json:"feeBps"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	if err := s.engine.SetFeeBps(caller, params.FeeBps); err != nil {
		return nil, err
	}
	return s.currentParams()
}

func (s *Server) handleSetFeeCollector(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller    string `json:"caller"`
		Collector string `json:"collector"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	collector, err := parseAddress(params.Collector)
	if err != nil {
		return nil, err
	}
	if err := s.engine.SetFeeCollector(caller, collector); err != nil {
		return nil, err
	}
	return s.currentParams()
}

func (s *Server) handleSetBuyLimit(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		Count  uint64 `json:"count"`
		Period uint64 `json:"period"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	if err := s.engine.SetBuyLimit(caller, params.Count, params.Period); err != nil {
		return nil, err
	}
	return s.currentParams()
}

func (s *Server) handleSetPriceModel(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Caller string `json:"caller"`
		Handle string `json:"handle"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		return nil, err
	}
	if err := s.engine.SetPriceModel(caller, params.Handle); err != nil {
		return nil, err
	}
	return s.currentParams()
}

func (s *Server) handlePause(raw json.RawMessage) (interface{}, error) {
	caller, err := decodeCaller(raw)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Pause(caller); err != nil {
		return nil, err
	}
	return s.currentParams()
}

func (s *Server) handleUnpause(raw json.RawMessage) (interface{}, error) {
	caller, err := decodeCaller(raw)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Unpause(caller); err != nil {
		return nil, err
	}
	return s.currentParams()
}

func (s *Server) handleGet(raw json.RawMessage) (interface{}, error) {
	var params struct {
		CategoryID uint64 `json:"categoryId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	rec, ok, err := s.engine.Ledger().Get(params.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: category %d not found", errInvalidParams, params.CategoryID)
	}
	return newSaleView(rec), nil
}

func (s *Server) handleTrade(raw json.RawMessage) (interface{}, error) {
	var params struct {
		ID string `json:"id"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(params.ID), "0x"))
	if err != nil || len(decoded) != 32 {
		return nil, fmt.Errorf("%w: trade id must be 32 hex-encoded bytes", errInvalidParams)
	}
	var id [32]byte
	copy(id[:], decoded)
	trade, ok, err := s.engine.Trade(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: trade not found", errInvalidParams)
	}
	return newTradeView(trade), nil
}

func (s *Server) handleBuyWindow(raw json.RawMessage) (interface{}, error) {
	var params struct {
		Buyer      string `json:"buyer"`
		CategoryID uint64 `json:"categoryId"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		return nil, err
	}
	window, ok, err := s.engine.Limiter().Window(buyer, params.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// No purchases yet: report an empty window rather than an error.
		window = &sale.BuyLimitWindow{}
	}
	return map[string]uint64{"count": window.Count, "windowStart": window.WindowStart}, nil
}

func (s *Server) handleParams(json.RawMessage) (interface{}, error) {
	return s.currentParams()
}

func (s *Server) currentParams() (interface{}, error) {
	params, err := s.engine.Params().Load()
	if err != nil {
		return nil, err
	}
	return paramsView{
		FeeBps:         params.FeeBps,
		FeeCollector:   encodeAddress(params.FeeCollector),
		BuyLimitCount:  params.BuyLimitCount,
		BuyLimitPeriod: params.BuyLimitPeriod,
		PriceModel:     params.PriceModel,
		Paused:         params.Paused,
	}, nil
}

func decodeParams(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func decodeCaller(raw json.RawMessage) ([20]byte, error) {
	var params struct {
		Caller string `json:"caller"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return [20]byte{}, err
	}
	return parseAddress(params.Caller)
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(addr) {
		return addr, fmt.Errorf("%w: address must be 20 hex-encoded bytes", errInvalidParams)
	}
	copy(addr[:], decoded)
	return addr, nil
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount required", errInvalidParams)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount must be a base-10 integer", errInvalidParams)
	}
	return amount, nil
}

func encodeAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}
