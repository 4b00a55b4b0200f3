package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fxrelay/internal/domain"
	"fxrelay/internal/host"
	"fxrelay/internal/identity"
	"fxrelay/internal/storage"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 64 << 10

// Bus is the part of host.Bus the gateway drives.
type Bus interface {
	Execute(ctx context.Context, contract, sender string, msg any) (*host.Result, error)
	Query(ctx context.Context, contract string, msg any) (json.RawMessage, error)
	SetBalance(ctx context.Context, address, denom string, amount *uint256.Int) error
	QueryBalance(ctx context.Context, address, denom string) (*uint256.Int, error)
	Nodes() []host.NodeInfo
}

type Handler struct {
	bus  Bus
	addr *identity.AddressValidator
}

func NewHandler(bus Bus, addr *identity.AddressValidator) *Handler {
	return &Handler{bus: bus, addr: addr}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg string) {
	writeJSON(w, statusCode, errorResponse{Error: errorMsg})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBusError maps a node or bus error to a status code. Unexpected errors
// are logged and hidden behind a generic message.
func writeBusError(w http.ResponseWriter, err error, op string, fields logrus.Fields) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(fields).WithField("handler", op).Error("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, domain.ErrUnknownNode),
		errors.Is(err, domain.ErrPriceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAddressInvalid),
		errors.Is(err, domain.ErrDenomRequired),
		errors.Is(err, domain.ErrNumericParse),
		errors.Is(err, domain.ErrUnknownMessage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMismatchedRequest),
		errors.Is(err, domain.ErrNoRequestYet),
		errors.Is(err, domain.ErrRateNotAvailable),
		errors.Is(err, domain.ErrArithmeticOverflow),
		errors.Is(err, domain.ErrDivision),
		errors.Is(err, domain.ErrUnknownCorrelationID),
		errors.Is(err, domain.ErrConfig),
		errors.Is(err, host.ErrDepthExceeded):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// decodeBody reads a JSON body of at most maxBodyBytes and rejects unknown
// fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
