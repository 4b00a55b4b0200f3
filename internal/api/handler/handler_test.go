package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fxrelay/internal/domain"
	"fxrelay/internal/host"
	"fxrelay/internal/identity"
	"fxrelay/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBus struct{ mock.Mock }

func (m *MockBus) Execute(ctx context.Context, contract, sender string, msg any) (*host.Result, error) {
	args := m.Called(ctx, contract, sender, msg)
	res, _ := args.Get(0).(*host.Result)
	return res, args.Error(1)
}

func (m *MockBus) Query(ctx context.Context, contract string, msg any) (json.RawMessage, error) {
	args := m.Called(ctx, contract, msg)
	out, _ := args.Get(0).(json.RawMessage)
	return out, args.Error(1)
}

func (m *MockBus) SetBalance(ctx context.Context, address, denom string, amount *uint256.Int) error {
	args := m.Called(ctx, address, denom, amount)
	return args.Error(0)
}

func (m *MockBus) QueryBalance(ctx context.Context, address, denom string) (*uint256.Int, error) {
	args := m.Called(ctx, address, denom)
	amount, _ := args.Get(0).(*uint256.Int)
	return amount, args.Error(1)
}

func (m *MockBus) Nodes() []host.NodeInfo {
	args := m.Called()
	nodes, _ := args.Get(0).([]host.NodeInfo)
	return nodes
}

type errorJSON struct {
	Error string `json:"error"`
}

func newHandler(t *testing.T) (*Handler, *MockBus, *identity.AddressValidator) {
	t.Helper()
	addr, err := identity.NewAddressValidator("wasm")
	require.NoError(t, err)
	bus := new(MockBus)
	return NewHandler(bus, addr), bus, addr
}

func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var ej errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
	return ej.Error
}

// --- Execute ---

func TestHandler_Execute_Success(t *testing.T) {
	h, bus, addr := newHandler(t)
	sender := addr.MustAccount("user")
	msg := json.RawMessage(`{"request_token_price":{}}`)
	txID := uuid.New()

	bus.On("Execute", mock.Anything, "wasm1node", sender, msg).Return(&host.Result{
		TxID:       txID,
		Attributes: []host.Attribute{{Key: "action", Value: "request_token_price"}},
	}, nil).Once()

	body, _ := json.Marshal(ExecuteRequest{Sender: sender, Msg: msg})
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/api/v1/nodes/wasm1node/execute", bytes.NewReader(body)), "address", "wasm1node")
	rr := httptest.NewRecorder()

	h.Execute(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got host.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, txID, got.TxID)
	require.Equal(t, []host.Attribute{{Key: "action", Value: "request_token_price"}}, got.Attributes)
	bus.AssertExpectations(t)
}

func TestHandler_Execute_BadRequest(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "unknown field", body: `{"sender":"x","msg":{},"extra":1}`},
		{name: "missing msg", body: `{"sender":"x"}`},
		{name: "invalid sender", body: `{"sender":"nope","msg":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, bus, _ := newHandler(t)
			req := withURLParams(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tc.body)), "address", "wasm1node")
			rr := httptest.NewRecorder()

			h.Execute(rr, req)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotEmpty(t, decodeError(t, rr))
			bus.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Execute_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "unauthorized", err: fmt.Errorf("%w: sender x", domain.ErrUnauthorized), wantCode: http.StatusForbidden},
		{name: "unknown node", err: fmt.Errorf("%w: wasm1node", domain.ErrUnknownNode), wantCode: http.StatusNotFound},
		{name: "not found", err: storage.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "price not found", err: domain.ErrPriceNotFound, wantCode: http.StatusNotFound},
		{name: "address invalid", err: domain.ErrAddressInvalid, wantCode: http.StatusBadRequest},
		{name: "numeric parse", err: domain.ErrNumericParse, wantCode: http.StatusBadRequest},
		{name: "unknown message", err: domain.ErrUnknownMessage, wantCode: http.StatusBadRequest},
		{name: "mismatched", err: domain.ErrMismatchedRequest, wantCode: http.StatusUnprocessableEntity},
		{name: "no request", err: domain.ErrNoRequestYet, wantCode: http.StatusUnprocessableEntity},
		{name: "overflow", err: domain.ErrArithmeticOverflow, wantCode: http.StatusUnprocessableEntity},
		{name: "depth", err: host.ErrDepthExceeded, wantCode: http.StatusUnprocessableEntity},
		{name: "storage", err: errors.New("disk on fire"), wantCode: http.StatusInternalServerError, wantMsg: "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, bus, addr := newHandler(t)
			sender := addr.MustAccount("user")
			bus.On("Execute", mock.Anything, "wasm1node", sender, mock.Anything).Return(nil, tc.err).Once()

			body, _ := json.Marshal(ExecuteRequest{Sender: sender, Msg: json.RawMessage(`{}`)})
			req := withURLParams(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), "address", "wasm1node")
			rr := httptest.NewRecorder()

			h.Execute(rr, req)

			require.Equal(t, tc.wantCode, rr.Code)
			wantMsg := tc.wantMsg
			if wantMsg == "" {
				wantMsg = tc.err.Error()
			}
			require.Equal(t, wantMsg, decodeError(t, rr))
			bus.AssertExpectations(t)
		})
	}
}

// --- Query ---

func TestHandler_Query_PassesRawJSON(t *testing.T) {
	h, bus, _ := newHandler(t)
	msg := json.RawMessage(`{"request_status":{}}`)
	bus.On("Query", mock.Anything, "wasm1node", msg).Return(json.RawMessage(`{"request_status":"none"}`), nil).Once()

	body, _ := json.Marshal(QueryRequest{Msg: msg})
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)), "address", "wasm1node")
	rr := httptest.NewRecorder()

	h.Query(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"request_status":"none"}`, rr.Body.String())
	bus.AssertExpectations(t)
}

func TestHandler_Query_RateNotAvailable(t *testing.T) {
	h, bus, _ := newHandler(t)
	bus.On("Query", mock.Anything, "wasm1node", mock.Anything).Return(nil, domain.ErrRateNotAvailable).Once()

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"msg":{"calculated_balance":{}}}`)), "address", "wasm1node")
	rr := httptest.NewRecorder()

	h.Query(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, domain.ErrRateNotAvailable.Error(), decodeError(t, rr))
}

// --- Nodes ---

func TestHandler_ListNodes(t *testing.T) {
	h, bus, _ := newHandler(t)
	nodes := []host.NodeInfo{{Address: "wasm1a", Label: "currency-hub"}, {Address: "wasm1b", Label: "requester"}}
	bus.On("Nodes").Return(nodes).Once()

	rr := httptest.NewRecorder()
	h.ListNodes(rr, httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []host.NodeInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, nodes, got)
}

// --- Balances ---

func TestHandler_SetBalance(t *testing.T) {
	h, bus, addr := newHandler(t)
	holder := addr.MustAccount("addr1")
	bus.On("SetBalance", mock.Anything, holder, "uatom", uint256.NewInt(10)).Return(nil).Once()

	body, _ := json.Marshal(SetBalanceRequest{Address: holder, Denom: "uatom", Amount: "10"})
	rr := httptest.NewRecorder()
	h.SetBalance(rr, httptest.NewRequest(http.MethodPut, "/api/v1/bank/balances", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	var got BalanceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, BalanceResponse{Address: holder, Denom: "uatom", Amount: "10"}, got)
	bus.AssertExpectations(t)
}

func TestHandler_SetBalance_Validation(t *testing.T) {
	_, _, addr := newHandler(t)
	holder := addr.MustAccount("addr1")
	cases := []struct {
		name string
		req  SetBalanceRequest
	}{
		{name: "bad address", req: SetBalanceRequest{Address: "x", Denom: "uatom", Amount: "1"}},
		{name: "negative amount", req: SetBalanceRequest{Address: holder, Denom: "uatom", Amount: "-1"}},
		{name: "fractional amount", req: SetBalanceRequest{Address: holder, Denom: "uatom", Amount: "1.5"}},
		{name: "empty amount", req: SetBalanceRequest{Address: holder, Denom: "uatom"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, bus, _ := newHandler(t)
			body, _ := json.Marshal(tc.req)
			rr := httptest.NewRecorder()

			h.SetBalance(rr, httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(body)))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotEmpty(t, decodeError(t, rr))
			bus.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_SetBalance_EmptyDenom(t *testing.T) {
	h, bus, addr := newHandler(t)
	holder := addr.MustAccount("addr1")
	bus.On("SetBalance", mock.Anything, holder, "", mock.Anything).Return(domain.ErrDenomRequired).Once()

	body, _ := json.Marshal(SetBalanceRequest{Address: holder, Amount: "1"})
	rr := httptest.NewRecorder()
	h.SetBalance(rr, httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, domain.ErrDenomRequired.Error(), decodeError(t, rr))
}

func TestHandler_GetBalance(t *testing.T) {
	h, bus, addr := newHandler(t)
	holder := addr.MustAccount("addr1")
	bus.On("QueryBalance", mock.Anything, holder, "uatom").Return(uint256.NewInt(42), nil).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "address", " "+holder+" ", "denom", "uatom")
	rr := httptest.NewRecorder()
	h.GetBalance(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got BalanceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, "42", got.Amount)
	bus.AssertExpectations(t)
}

func TestHandler_GetBalance_InternalError(t *testing.T) {
	h, bus, addr := newHandler(t)
	holder := addr.MustAccount("addr1")
	bus.On("QueryBalance", mock.Anything, holder, "uatom").Return(nil, errors.New("boom")).Once()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "address", holder, "denom", "uatom")
	rr := httptest.NewRecorder()
	h.GetBalance(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "internal error", decodeError(t, rr))
}
