package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corepay/core"
	"corepay/native/payments"
	"corepay/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Engine failure classes map to their own codes so clients can branch on the
// taxonomy without parsing messages.
const (
	codeInvalidSignature    = -32010
	codeNonceUsed           = -32011
	codeNonceMismatch       = -32012
	codeInvalidExecutor     = -32013
	codeInsufficientBalance = -32014
	codeIdentityResolution  = -32015
	codeInvalidAmount       = -32016
	codeTransferFailed      = -32017
)

// Server exposes the node operations over JSON-RPC 2.0. When an auth token is
// configured, submission methods require a matching bearer token; queries
// stay open.
type Server struct {
	node      *core.Node
	authToken string
	log       *slog.Logger
	metrics   *observability.PaymentMetrics
}

// NewServer creates an RPC server around the node. An empty authToken
// disables authentication.
func NewServer(node *core.Node, authToken string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(authToken),
		log:       log,
		metrics:   observability.Payments(),
	}
}

// Router builds the HTTP routes: JSON-RPC on / and prometheus on /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start serves the router on the given address and blocks.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, nil, codeInvalidRequest, "failed to read request body")
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, codeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, req.ID, codeInvalidRequest, "unsupported jsonrpc version")
		return
	}

	if s.mutates(req.Method) && !s.authorized(r) {
		writeError(w, req.ID, codeUnauthorized, "unauthorized")
		return
	}

	started := time.Now()
	result, rpcErr := s.dispatch(&req)
	s.metrics.ObserveOperation(req.Method, errFromRPC(rpcErr), started)
	if rpcErr != nil {
		writeError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) mutates(method string) bool {
	switch method {
	case "core_pay", "core_batchPay", "core_payMultiple", "core_dispersePay":
		return true
	}
	return false
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token := strings.TrimPrefix(header, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

func (s *Server) dispatch(req *rpcRequest) (interface{}, *rpcError) {
	switch req.Method {
	case "core_pay":
		return s.handlePay(req.Params)
	case "core_batchPay":
		return s.handleBatch(req.Params, false)
	case "core_payMultiple":
		return s.handleBatch(req.Params, true)
	case "core_dispersePay":
		return s.handleDisperse(req.Params)
	case "core_getBalance":
		return s.handleGetBalance(req.Params)
	case "core_getSequentialNonce":
		return s.handleGetSequentialNonce(req.Params)
	case "core_isFreeNonceUsed":
		return s.handleIsFreeNonceUsed(req.Params)
	}
	return nil, &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
}

func (s *Server) handlePay(params []json.RawMessage) (interface{}, *rpcError) {
	var p payParams
	if err := decodeSingleParam(params, &p); err != nil {
		return nil, err
	}
	executor, req, err := p.toRequest()
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.node.Pay(executor, req); err != nil {
		s.metrics.ObserveFailure("pay", failureReason(err))
		return nil, mapEngineError(err)
	}
	return statusResult{Status: "ok"}, nil
}

func (s *Server) handleBatch(params []json.RawMessage, atomic bool) (interface{}, *rpcError) {
	var p batchParams
	if err := decodeSingleParam(params, &p); err != nil {
		return nil, err
	}
	executor, items, err := p.toRequests()
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	var result payments.BatchResult
	var callErr error
	kind := "batchPay"
	if atomic {
		kind = "payMultiple"
		result, callErr = s.node.PayMultiple(executor, items)
	} else {
		result, callErr = s.node.BatchPay(executor, items)
	}
	if callErr != nil {
		s.metrics.ObserveFailure(kind, failureReason(callErr))
		return nil, mapEngineError(callErr)
	}
	s.metrics.ObserveBatch(kind, result.Successes, len(items))
	return batchResult{SuccessCount: result.Successes, Results: result.Results}, nil
}

func (s *Server) handleDisperse(params []json.RawMessage) (interface{}, *rpcError) {
	var p disperseParams
	if err := decodeSingleParam(params, &p); err != nil {
		return nil, err
	}
	executor, req, err := p.toRequest()
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	if err := s.node.DispersePay(executor, req); err != nil {
		s.metrics.ObserveFailure("dispersePay", failureReason(err))
		return nil, mapEngineError(err)
	}
	return statusResult{Status: "ok"}, nil
}

func (s *Server) handleGetBalance(params []json.RawMessage) (interface{}, *rpcError) {
	var p balanceParams
	if err := decodeSingleParam(params, &p); err != nil {
		return nil, err
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	balance, err := s.node.GetBalance(addr, p.Token)
	if err != nil {
		return nil, &rpcError{Code: codeServerError, Message: err.Error()}
	}
	return balanceResult{Address: p.Address, Token: strings.ToUpper(strings.TrimSpace(p.Token)), Amount: balance.String()}, nil
}

func (s *Server) handleGetSequentialNonce(params []json.RawMessage) (interface{}, *rpcError) {
	var p addressParams
	if err := decodeSingleParam(params, &p); err != nil {
		return nil, err
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	nonce, err := s.node.GetSequentialNonce(addr)
	if err != nil {
		return nil, &rpcError{Code: codeServerError, Message: err.Error()}
	}
	return nonceResult{Address: p.Address, Nonce: nonce}, nil
}

func (s *Server) handleIsFreeNonceUsed(params []json.RawMessage) (interface{}, *rpcError) {
	var p freeNonceParams
	if err := decodeSingleParam(params, &p); err != nil {
		return nil, err
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	value, err := parseFreeNonce(p.Value)
	if err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	used, err := s.node.IsFreeNonceUsed(addr, value)
	if err != nil {
		return nil, &rpcError{Code: codeServerError, Message: err.Error()}
	}
	return freeNonceResult{Address: p.Address, Value: p.Value, Used: used}, nil
}

func decodeSingleParam(params []json.RawMessage, target interface{}) *rpcError {
	if len(params) != 1 {
		return &rpcError{Code: codeInvalidParams, Message: "expected exactly one parameter object"}
	}
	if err := json.Unmarshal(params[0], target); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	}
	return nil
}

func mapEngineError(err error) *rpcError {
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		return &rpcError{Code: codeInvalidSignature, Message: err.Error()}
	case errors.Is(err, payments.ErrNonceUsed):
		return &rpcError{Code: codeNonceUsed, Message: err.Error()}
	case errors.Is(err, payments.ErrNonceMismatch):
		return &rpcError{Code: codeNonceMismatch, Message: err.Error()}
	case errors.Is(err, payments.ErrInvalidExecutor):
		return &rpcError{Code: codeInvalidExecutor, Message: err.Error()}
	case errors.Is(err, payments.ErrInsufficientBalance):
		return &rpcError{Code: codeInsufficientBalance, Message: err.Error()}
	case errors.Is(err, payments.ErrIdentityResolution):
		return &rpcError{Code: codeIdentityResolution, Message: err.Error()}
	case errors.Is(err, payments.ErrInvalidAmount):
		return &rpcError{Code: codeInvalidAmount, Message: err.Error()}
	case errors.Is(err, payments.ErrTransferFailed):
		return &rpcError{Code: codeTransferFailed, Message: err.Error()}
	}
	return &rpcError{Code: codeServerError, Message: err.Error()}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, payments.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, payments.ErrNonceUsed):
		return "nonce_used"
	case errors.Is(err, payments.ErrNonceMismatch):
		return "nonce_mismatch"
	case errors.Is(err, payments.ErrInvalidExecutor):
		return "invalid_executor"
	case errors.Is(err, payments.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, payments.ErrIdentityResolution):
		return "identity_resolution"
	case errors.Is(err, payments.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, payments.ErrTransferFailed):
		return "transfer_failed"
	}
	return "other"
}

func errFromRPC(rpcErr *rpcError) error {
	if rpcErr == nil {
		return nil
	}
	return errors.New(rpcErr.Message)
}

func writeResult(w http.ResponseWriter, id, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &rpcError{Code: code, Message: message}})
}
