package sale

import (
	"encoding/hex"
	"strconv"

	"mintgate/core/types"
)

const (
	EventTypeSaleRegistered    = "sale.registered"
	EventTypeMetadataUpdated   = "sale.metadata_updated"
	EventTypeQuoteAssetUpdated = "sale.quote_asset_updated"
	EventTypeSaleCancelled     = "sale.cancelled"
	EventTypeTradeExecuted     = "sale.trade_executed"
	EventTypeBuyWindowUpdated  = "sale.buy_window_updated"
	EventTypeParamsUpdated     = "sale.params_updated"
	EventTypeSalePaused        = "sale.paused"
	EventTypeSaleUnpaused      = "sale.unpaused"
)

// NewSaleRegisteredEvent returns the canonical payload for a newly
// registered category sale.
func NewSaleRegisteredEvent(s *CategorySale) *types.Event {
	return newSaleEvent(EventTypeSaleRegistered, s)
}

// NewMetadataUpdatedEvent returns the payload emitted when a sale's cap or
// window is retuned.
func NewMetadataUpdatedEvent(s *CategorySale) *types.Event {
	return newSaleEvent(EventTypeMetadataUpdated, s)
}

// NewQuoteAssetUpdatedEvent returns the payload emitted when a sale's quote
// asset changes.
func NewQuoteAssetUpdatedEvent(s *CategorySale) *types.Event {
	return newSaleEvent(EventTypeQuoteAssetUpdated, s)
}

// NewSaleCancelledEvent returns the payload emitted when a sale record is
// removed.
func NewSaleCancelledEvent(categoryID uint64) *types.Event {
	return &types.Event{
		Type: EventTypeSaleCancelled,
		Attributes: map[string]string{
			"categoryId": strconv.FormatUint(categoryID, 10),
		},
	}
}

// NewTradeExecutedEvent returns the payload emitted for every successful
// purchase.
func NewTradeExecutedEvent(t *TradeRecord) *types.Event {
	attrs := make(map[string]string)
	if t == nil {
		return &types.Event{Type: EventTypeTradeExecuted, Attributes: attrs}
	}
	clone := t.Clone()
	attrs["tradeId"] = hex.EncodeToString(clone.ID[:])
	attrs["categoryId"] = strconv.FormatUint(clone.CategoryID, 10)
	attrs["seller"] = hex.EncodeToString(clone.Seller[:])
	attrs["buyer"] = hex.EncodeToString(clone.Buyer[:])
	attrs["quoteAsset"] = clone.QuoteAsset
	attrs["price"] = clone.Price.String()
	attrs["fee"] = clone.Fee.String()
	attrs["height"] = strconv.FormatUint(clone.Height, 10)
	return &types.Event{Type: EventTypeTradeExecuted, Attributes: attrs}
}

// NewBuyWindowUpdatedEvent returns the payload emitted whenever a buyer's
// rate-limit window advances, including on attempts later rejected.
func NewBuyWindowUpdatedEvent(buyer [20]byte, categoryID uint64, w *BuyLimitWindow) *types.Event {
	attrs := map[string]string{
		"buyer":      hex.EncodeToString(buyer[:]),
		"categoryId": strconv.FormatUint(categoryID, 10),
	}
	if w != nil {
		attrs["count"] = strconv.FormatUint(w.Count, 10)
		attrs["windowStart"] = strconv.FormatUint(w.WindowStart, 10)
	}
	return &types.Event{Type: EventTypeBuyWindowUpdated, Attributes: attrs}
}

// NewParamsUpdatedEvent returns the payload emitted after any configuration
// change, carrying the full post-update view.
func NewParamsUpdatedEvent(field string, p Params) *types.Event {
	return &types.Event{
		Type: EventTypeParamsUpdated,
		Attributes: map[string]string{
			"field":          field,
			"feeBps":         strconv.FormatUint(uint64(p.FeeBps), 10),
			"feeCollector":   hex.EncodeToString(p.FeeCollector[:]),
			"buyLimitCount":  strconv.FormatUint(p.BuyLimitCount, 10),
			"buyLimitPeriod": strconv.FormatUint(p.BuyLimitPeriod, 10),
			"priceModel":     p.PriceModel,
			"paused":         strconv.FormatBool(p.Paused),
		},
	}
}

// NewPausedEvent returns the payload emitted when purchases are halted.
func NewPausedEvent() *types.Event {
	return &types.Event{Type: EventTypeSalePaused, Attributes: map[string]string{}}
}

// NewUnpausedEvent returns the payload emitted when purchases resume.
func NewUnpausedEvent() *types.Event {
	return &types.Event{Type: EventTypeSaleUnpaused, Attributes: map[string]string{}}
}

func newSaleEvent(eventType string, s *CategorySale) *types.Event {
	attrs := make(map[string]string)
	if s == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeSale(s)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["categoryId"] = strconv.FormatUint(sanitized.CategoryID, 10)
	attrs["seller"] = hex.EncodeToString(sanitized.Seller[:])
	attrs["quoteAsset"] = sanitized.QuoteAsset
	attrs["remainingSupply"] = sanitized.RemainingSupply.String()
	attrs["maxSupply"] = sanitized.MaxSupply.String()
	attrs["startHeight"] = strconv.FormatUint(sanitized.StartHeight, 10)
	attrs["endHeight"] = strconv.FormatUint(sanitized.EndHeight, 10)
	return &types.Event{Type: eventType, Attributes: attrs}
}
