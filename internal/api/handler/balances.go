package handler

import (
	"net/http"
	"strings"

	"fxrelay/internal/fixedpoint"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type SetBalanceRequest struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}

// SetBalance godoc
// @Summary  Seed the bank balance of an address
// @Tags     bank
// @Accept   json
// @Produce  json
// @Param    request body SetBalanceRequest true "balance"
// @Success  200 {object} BalanceResponse
// @Failure  400,500 {object} errorResponse
// @Router   /api/v1/bank/balances [put]
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req SetBalanceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	address, err := h.addr.Validate(strings.TrimSpace(req.Address))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	denom := strings.TrimSpace(req.Denom)
	amount, err := fixedpoint.ParseUint128(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err = h.bus.SetBalance(r.Context(), address, denom, amount); err != nil {
		writeBusError(w, err, "SetBalance", logrus.Fields{"address": address, "denom": denom})
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Address: address, Denom: denom, Amount: amount.Dec()})
}

// GetBalance godoc
// @Summary  Get the bank balance of an address
// @Tags     bank
// @Produce  json
// @Param    address path string true "account address"
// @Param    denom   path string true "denom"
// @Success  200 {object} BalanceResponse
// @Failure  400,500 {object} errorResponse
// @Router   /api/v1/bank/balances/{address}/{denom} [get]
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address, err := h.addr.Validate(strings.TrimSpace(chi.URLParam(r, "address")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	denom := strings.TrimSpace(chi.URLParam(r, "denom"))

	amount, err := h.bus.QueryBalance(r.Context(), address, denom)
	if err != nil {
		writeBusError(w, err, "GetBalance", logrus.Fields{"address": address, "denom": denom})
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Address: address, Denom: denom, Amount: amount.Dec()})
}
