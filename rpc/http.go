package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"mintgate/native/sale"
	"mintgate/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	authTokenEnv    = "MINTGATE_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeDuplicate      = -32010
	codeInvalidWindow  = -32011
	codeInvalidAsset   = -32012
	codeExhausted      = -32013
	codeBuyLimit       = -32014
	codeAssetMismatch  = -32015
	codeAmountMismatch = -32016
	codeTransferFailed = -32017
	codePaused         = -32018
	codeNoOpUpdate     = -32019
	codeZeroAddress    = -32020
)

// Committer flushes or discards the state overlay once a call completes.
type Committer interface {
	Commit() error
	Discard()
}

// Server exposes the sale engine over a single JSON-RPC 2.0 POST endpoint.
// Mutating methods require the bearer token from MINTGATE_RPC_TOKEN.
type Server struct {
	engine    *sale.Engine
	committer Committer
	logger    *slog.Logger
	authToken string
}

// NewServer constructs the RPC server for an engine and its state committer.
func NewServer(engine *sale.Engine, committer Committer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		committer: committer,
		logger:    logger,
		authToken: strings.TrimSpace(os.Getenv(authTokenEnv)),
	}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, nil, codeParseError, "unable to read request body")
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, nil, codeInvalidRequest, "request body too large")
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		writeError(w, req.ID, codeInvalidRequest, "invalid JSON-RPC request")
		return
	}
	method, ok := methods[req.Method]
	if !ok {
		writeError(w, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
		return
	}
	if method.mutating && !s.authorized(r) {
		writeError(w, req.ID, codeUnauthorized, "missing or invalid bearer token")
		return
	}
	result, err := method.handler(s, req.Params)
	if method.mutating {
		// The engine reverts its own partial state on failure, and some
		// rejections (the buy-limit debit) intentionally leave mutations
		// behind, so the overlay is committed on every outcome.
		if commitErr := s.commit(); commitErr != nil {
			s.logger.Error("state commit failed", slog.String("method", req.Method), slog.Any("error", commitErr))
			writeError(w, req.ID, codeServerError, "state commit failed")
			return
		}
	}
	if err != nil {
		if method.mutating {
			metrics.Sale().RecordRejection(rejectionReason(err))
		}
		writeError(w, req.ID, errorCode(err), err.Error())
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

func (s *Server) commit() error {
	if s.committer == nil {
		return nil
	}
	return s.committer.Commit()
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &rpcError{Code: code, Message: message}})
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, sale.ErrDuplicateCategory):
		return codeDuplicate
	case errors.Is(err, sale.ErrInvalidWindow):
		return codeInvalidWindow
	case errors.Is(err, sale.ErrInvalidAsset):
		return codeInvalidAsset
	case errors.Is(err, sale.ErrSupplyExhausted):
		return codeExhausted
	case errors.Is(err, sale.ErrBuyLimitExceeded):
		return codeBuyLimit
	case errors.Is(err, sale.ErrAssetMismatch):
		return codeAssetMismatch
	case errors.Is(err, sale.ErrAmountMismatch):
		return codeAmountMismatch
	case errors.Is(err, sale.ErrTransferFailed):
		return codeTransferFailed
	case errors.Is(err, sale.ErrPaused):
		return codePaused
	case errors.Is(err, sale.ErrNoOpUpdate):
		return codeNoOpUpdate
	case errors.Is(err, sale.ErrZeroAddress):
		return codeZeroAddress
	case errors.Is(err, sale.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, errInvalidParams):
		return codeInvalidParams
	default:
		return codeServerError
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, sale.ErrSupplyExhausted):
		return "supply_exhausted"
	case errors.Is(err, sale.ErrBuyLimitExceeded):
		return "buy_limit"
	case errors.Is(err, sale.ErrInvalidWindow):
		return "window"
	case errors.Is(err, sale.ErrPaused):
		return "paused"
	case errors.Is(err, sale.ErrTransferFailed):
		return "transfer"
	case errors.Is(err, sale.ErrAmountMismatch), errors.Is(err, sale.ErrAssetMismatch):
		return "payment_mismatch"
	case errors.Is(err, sale.ErrUnauthorized):
		return "unauthorized"
	default:
		return "other"
	}
}
