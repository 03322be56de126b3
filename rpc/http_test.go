package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"mintgate/core/types"
	"mintgate/native/sale"
	"mintgate/state"
	"mintgate/storage"
)

const testToken = "test-token"

type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type okMinter struct{}

func (okMinter) Mint([20]byte, uint64, []byte) error { return nil }

type rpcFixture struct {
	server  *Server
	manager *state.Manager
	height  uint64

	governance [20]byte
	seller     [20]byte
	buyer      [20]byte
}

func newRPCFixture(t *testing.T) *rpcFixture {
	t.Helper()
	t.Setenv(authTokenEnv, testToken)

	fx := &rpcFixture{
		manager:    state.NewManager(storage.NewMemDB()),
		height:     50,
		governance: [20]byte{0x02},
		seller:     [20]byte{0x03},
		buyer:      [20]byte{0x0B},
	}
	if err := fx.manager.GrantRole(sale.RoleSaleGovernance, fx.governance[:]); err != nil {
		t.Fatalf("grant role: %v", err)
	}

	engine := sale.NewEngine()
	engine.SetState(fx.manager)
	engine.SetMinter(okMinter{})
	engine.SetHeightFunc(func() uint64 { return fx.height })
	engine.RegisterPriceModel("fixed", sale.FixedPriceModel{Unit: big.NewInt(10_000)})
	if err := engine.Params().Save(sale.Params{BuyLimitCount: 5, BuyLimitPeriod: 10, PriceModel: "fixed"}); err != nil {
		t.Fatalf("save params: %v", err)
	}
	if err := fx.manager.Commit(); err != nil {
		t.Fatalf("commit genesis: %v", err)
	}

	fx.server = NewServer(engine, fx.manager, slog.Default())
	return fx
}

func (fx *rpcFixture) call(t *testing.T, method string, params interface{}, token string) testResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	fx.server.ServeHTTP(recorder, req)

	var resp testResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
	return resp
}

func addressParam(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func (fx *rpcFixture) registerSale(t *testing.T, categoryID uint64) {
	t.Helper()
	resp := fx.call(t, "sale_register", map[string]interface{}{
		"caller":      addressParam(fx.governance),
		"categoryId":  categoryID,
		"seller":      addressParam(fx.seller),
		"cap":         "5",
		"startHeight": 100,
		"endHeight":   200,
		"quoteAsset":  "TOKEN_A",
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("register failed: %+v", resp.Error)
	}
}

func (fx *rpcFixture) fundBuyer(t *testing.T, asset string, amount int64) {
	t.Helper()
	account := types.NewAccount()
	account.SetTokenBalance(asset, big.NewInt(amount))
	if err := fx.manager.PutAccount(fx.buyer[:], account); err != nil {
		t.Fatalf("fund buyer: %v", err)
	}
	if err := fx.manager.Commit(); err != nil {
		t.Fatalf("commit funding: %v", err)
	}
}

func TestServerRejectsMalformedRequests(t *testing.T) {
	fx := newRPCFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()
	fx.server.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET accepted: %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	recorder = httptest.NewRecorder()
	fx.server.ServeHTTP(recorder, req)
	var resp testResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", resp.Error)
	}

	resp = fx.call(t, "sale_unknown", nil, testToken)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp.Error)
	}
}

func TestServerRequiresBearerTokenForMutations(t *testing.T) {
	fx := newRPCFixture(t)

	resp := fx.call(t, "sale_pause", map[string]interface{}{"caller": addressParam(fx.governance)}, "")
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
	resp = fx.call(t, "sale_pause", map[string]interface{}{"caller": addressParam(fx.governance)}, "wrong")
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized for bad token, got %+v", resp.Error)
	}

	// Read-only methods need no token.
	resp = fx.call(t, "sale_params", nil, "")
	if resp.Error != nil {
		t.Fatalf("read-only call rejected: %+v", resp.Error)
	}
}

func TestServerPurchaseFlow(t *testing.T) {
	fx := newRPCFixture(t)
	fx.registerSale(t, 1)
	fx.fundBuyer(t, "TOKEN_A", 100_000)
	fx.height = 150

	resp := fx.call(t, "sale_purchase", map[string]interface{}{
		"buyer":      addressParam(fx.buyer),
		"categoryId": 1,
	}, testToken)
	if resp.Error != nil {
		t.Fatalf("purchase failed: %+v", resp.Error)
	}
	var trade tradeView
	if err := json.Unmarshal(resp.Result, &trade); err != nil {
		t.Fatalf("decode trade: %v", err)
	}
	if trade.Price != "10000" || trade.Height != 150 {
		t.Fatalf("unexpected trade: %+v", trade)
	}

	// The trade is committed and queryable by id.
	resp = fx.call(t, "sale_trade", map[string]interface{}{"id": trade.ID}, "")
	if resp.Error != nil {
		t.Fatalf("trade lookup failed: %+v", resp.Error)
	}

	resp = fx.call(t, "sale_get", map[string]interface{}{"categoryId": 1}, "")
	if resp.Error != nil {
		t.Fatalf("sale lookup failed: %+v", resp.Error)
	}
	var rec saleView
	if err := json.Unmarshal(resp.Result, &rec); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if rec.RemainingSupply != "4" {
		t.Fatalf("supply not committed: %+v", rec)
	}

	resp = fx.call(t, "sale_buyWindow", map[string]interface{}{
		"buyer":      addressParam(fx.buyer),
		"categoryId": 1,
	}, "")
	if resp.Error != nil {
		t.Fatalf("window lookup failed: %+v", resp.Error)
	}
	var window map[string]uint64
	if err := json.Unmarshal(resp.Result, &window); err != nil {
		t.Fatalf("decode window: %v", err)
	}
	if window["count"] != 1 || window["windowStart"] != 150 {
		t.Fatalf("unexpected window: %+v", window)
	}
}

func TestServerMapsDomainErrors(t *testing.T) {
	fx := newRPCFixture(t)
	fx.registerSale(t, 1)
	fx.fundBuyer(t, "TOKEN_A", 100_000)

	fx.height = 50
	resp := fx.call(t, "sale_purchase", map[string]interface{}{
		"buyer":      addressParam(fx.buyer),
		"categoryId": 1,
	}, testToken)
	if resp.Error == nil || resp.Error.Code != codeInvalidWindow {
		t.Fatalf("expected window error code, got %+v", resp.Error)
	}

	resp = fx.call(t, "sale_register", map[string]interface{}{
		"caller":      addressParam(fx.governance),
		"categoryId":  1,
		"seller":      addressParam(fx.seller),
		"cap":         "5",
		"startHeight": 100,
		"endHeight":   200,
		"quoteAsset":  "TOKEN_A",
	}, testToken)
	if resp.Error == nil || resp.Error.Code != codeDuplicate {
		t.Fatalf("expected duplicate error code, got %+v", resp.Error)
	}

	resp = fx.call(t, "sale_purchase", map[string]interface{}{
		"buyer":      "0x1234",
		"categoryId": 1,
	}, testToken)
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params code, got %+v", resp.Error)
	}
}
