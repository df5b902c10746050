package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/huynle/brain/internal/resolver"
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleMCP implements the stateless MCP transport (spec §6 "MCP endpoint").
// POST accepts a JSON-RPC body and always replies with a single JSON object
// (never an event stream, since this server runs stateless). GET and DELETE
// are not supported by a stateless transport and return 405.
func (h *Handler) HandleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "could not read request body"}})
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	resp := h.dispatchMCP(r, req)
	writeJSON(w, http.StatusOK, resp)
}

// HandleMCPUnsupported rejects GET/DELETE against the stateless MCP
// endpoint (spec §6 "GET /mcp and DELETE /mcp return 405").
func (h *Handler) HandleMCPUnsupported(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST")
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "this MCP transport is stateless and only supports POST")
}

func (h *Handler) dispatchMCP(r *http.Request, req rpcRequest) rpcResponse {
	switch req.Method {
	case "tasks/list":
		return h.mcpTasksList(r, req)
	case "tasks/ready":
		return h.mcpTasksReady(r, req)
	default:
		return rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found: " + req.Method}}
	}
}

func (h *Handler) mcpTasksList(r *http.Request, req rpcRequest) rpcResponse {
	var params struct {
		Project string `json:"project"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}}
		}
	}
	tasks, err := h.tasks.Tasks(r.Context(), params.Project)
	if err != nil {
		return rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32000, Message: err.Error()}}
	}
	return rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tasks": tasks}}
}

func (h *Handler) mcpTasksReady(r *http.Request, req rpcRequest) rpcResponse {
	var params struct {
		Project string `json:"project"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}}
		}
	}
	result, err := h.tasks.Classified(r.Context(), params.Project)
	if err != nil {
		return rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32000, Message: err.Error()}}
	}
	return rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tasks": resolver.Ready(result.Tasks)}}
}
