package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/errors"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeNotFound       = -32004
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type runIDParams struct {
	RunID string `json:"run_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, codeParseError, "Parse error", nil, nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, codeInvalidRequest, "Invalid Request", request.ID, nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "searchspace.normalize":
		var req NormalizeRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.normalize(&req)
		}
	case "optimization.start":
		var req StartRequest
		if err = decodeParams(request.Params, &req); err == nil {
			result, err = s.startRun(&req)
		}
	case "optimization.status":
		var p runIDParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.runStatus(p.RunID)
		}
	case "optimization.cancel":
		var p runIDParams
		if err = decodeParams(request.Params, &p); err == nil {
			result, err = s.cancelRun(p.RunID)
		}
	case "solvers.list":
		result = s.solverList()
	default:
		s.respondWithError(w, codeMethodNotFound, "Method not found", request.ID, nil)
		return
	}

	if err != nil {
		s.respondWithError(w, rpcCode(err), err.Error(), request.ID, map[string]interface{}{"kind": errors.KindOf(err)})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: request.ID, Result: result})
}

// decodeParams accepts params as an object or as a single element array.
func decodeParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errors.New(errors.KindInvalidInput, "missing required parameters")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return errors.Wrap(err, errors.KindInvalidInput, "invalid parameter format")
		}
		if len(list) == 0 {
			return errors.New(errors.KindInvalidInput, "missing required parameters")
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, v); err != nil {
		if errors.KindOf(err) != "" {
			return err
		}
		return errors.Wrap(err, errors.KindInvalidInput, "invalid parameter format, expected object")
	}
	return nil
}

func rpcCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindInvalidInput, errors.KindPrecondition, errors.KindTypeMismatch, errors.KindUnsupportedDomain:
		return codeInvalidParams
	case errors.KindNotFound:
		return codeNotFound
	default:
		return codeServerError
	}
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}, data interface{}) {
	s.logger.Warn("RPC error",
		zap.Int("code", code),
		zap.String("message", message),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message, Data: data},
	})
}
