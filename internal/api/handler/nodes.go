package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ExecuteRequest struct {
	Sender string          `json:"sender"`
	Msg    json.RawMessage `json:"msg"`
}

type QueryRequest struct {
	Msg json.RawMessage `json:"msg"`
}

// Execute godoc
// @Summary  Execute a message on a node
// @Tags     nodes
// @Accept   json
// @Produce  json
// @Param    address path string         true "node address"
// @Param    request body ExecuteRequest true "sender and message"
// @Success  200 {object} host.Result
// @Failure  400,403,404,422,500 {object} errorResponse
// @Router   /api/v1/nodes/{address}/execute [post]
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	contract := strings.TrimSpace(chi.URLParam(r, "address"))

	var req ExecuteRequest
	if err := decodeBody(w, r, &req); err != nil || len(req.Msg) == 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sender, err := h.addr.Validate(strings.TrimSpace(req.Sender))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.bus.Execute(r.Context(), contract, sender, req.Msg)
	if err != nil {
		writeBusError(w, err, "Execute", logrus.Fields{"contract": contract, "sender": sender})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Query godoc
// @Summary  Run a read-only query on a node
// @Tags     nodes
// @Accept   json
// @Produce  json
// @Param    address path string       true "node address"
// @Param    request body QueryRequest true "query message"
// @Success  200 {object} object
// @Failure  400,404,422,500 {object} errorResponse
// @Router   /api/v1/nodes/{address}/query [post]
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	contract := strings.TrimSpace(chi.URLParam(r, "address"))

	var req QueryRequest
	if err := decodeBody(w, r, &req); err != nil || len(req.Msg) == 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.bus.Query(r.Context(), contract, req.Msg)
	if err != nil {
		writeBusError(w, err, "Query", logrus.Fields{"contract": contract})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// ListNodes godoc
// @Summary  List instantiated nodes
// @Tags     nodes
// @Produce  json
// @Success  200 {array} host.NodeInfo
// @Router   /api/v1/nodes [get]
func (h *Handler) ListNodes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.bus.Nodes())
}
