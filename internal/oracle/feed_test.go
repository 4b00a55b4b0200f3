package oracle

import (
	"context"
	"errors"
	"slices"
	"testing"

	"fxrelay/internal/domain"
	"fxrelay/internal/host"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRateClient struct{ mock.Mock }

func (m *MockRateClient) GetExchangeRates(ctx context.Context, code string) (map[string]float64, error) {
	args := m.Called(ctx, code)
	rates, _ := args.Get(0).(map[string]float64)
	return rates, args.Error(1)
}

type MockQuoteCache struct{ mock.Mock }

func (m *MockQuoteCache) Get(base string) (map[string]float64, bool) {
	args := m.Called(base)
	rates, _ := args.Get(0).(map[string]float64)
	return rates, args.Bool(1)
}

func (m *MockQuoteCache) Set(base string, rates map[string]float64) {
	m.Called(base, rates)
}

func (m *MockQuoteCache) CleanBatch(bases []string) {
	m.Called(bases)
}

type MockSubmitter struct{ mock.Mock }

func (m *MockSubmitter) Execute(ctx context.Context, contract, sender string, msg any) (*host.Result, error) {
	args := m.Called(ctx, contract, sender, msg)
	res, _ := args.Get(0).(*host.Result)
	return res, args.Error(1)
}

func fp(baseDenom, quoteDenom, base, quote string) FeedPair {
	return FeedPair{
		Denoms: domain.Pair{Base: baseDenom, Quote: quoteDenom},
		Codes:  domain.Pair{Base: base, Quote: quote},
	}
}

func submitted(t *testing.T, args mock.Arguments) []Price {
	t.Helper()
	msg, ok := args.Get(3).(ExecuteMsg)
	require.True(t, ok)
	require.NotNil(t, msg.SetPrices)
	prices := slices.Clone(msg.SetPrices.Prices)
	slices.SortFunc(prices, func(a, b Price) int {
		switch {
		case a.BaseAssetDenom < b.BaseAssetDenom:
			return -1
		case a.BaseAssetDenom > b.BaseAssetDenom:
			return 1
		}
		return 0
	})
	return prices
}

// --- getUniquePairs ---

func TestGetUniquePairs_SkipsReversedAndIdentity(t *testing.T) {
	pairs := getUniquePairs([]FeedPair{
		fp("uusd", "ueur", "USD", "EUR"),
		fp("uusd", "umxn", "USD", "MXN"),
		fp("ueur", "uusd", "EUR", "USD"), // reversed
		fp("uusd", "uusdc", "USD", "USD"),
	})

	require.Len(t, pairs, 2)
	_, hasUSDEUR := pairs[domain.Pair{Base: "USD", Quote: "EUR"}]
	_, hasEURUSD := pairs[domain.Pair{Base: "EUR", Quote: "USD"}]
	require.True(t, hasUSDEUR)
	require.False(t, hasEURUSD)
}

// --- getUniqueBases ---

func TestGetUniqueBases_CollectsUnique(t *testing.T) {
	bases := getUniqueBases(map[domain.Pair]struct{}{
		{Base: "USD", Quote: "EUR"}: {},
		{Base: "USD", Quote: "PLN"}: {},
		{Base: "EUR", Quote: "GBP"}: {},
	})
	require.Len(t, bases, 2)
	require.Contains(t, bases, "USD")
	require.Contains(t, bases, "EUR")
}

// --- processBase ---

func TestProcessBase_ErrorFromClient_SendsNothing(t *testing.T) {
	mockClient := new(MockRateClient)
	pairs := map[domain.Pair]struct{}{{Base: "USD", Quote: "EUR"}: {}}
	updatesCh := make(chan rateUpdate, 1)

	mockClient.On("GetExchangeRates", mock.Anything, "USD").Return(nil, errors.New("timeout")).Once()

	processBase(context.Background(), 1, "USD", mockClient, nil, pairs, updatesCh)

	require.Empty(t, updatesCh)
	mockClient.AssertExpectations(t)
}

func TestProcessBase_UsesCache(t *testing.T) {
	mockClient := new(MockRateClient)
	mockCache := new(MockQuoteCache)
	pairs := map[domain.Pair]struct{}{{Base: "USD", Quote: "EUR"}: {}}
	updatesCh := make(chan rateUpdate, 1)

	mockCache.On("Get", "USD").Return(map[string]float64{"EUR": 0.9, "JPY": 150}, true).Once()

	processBase(context.Background(), 1, "USD", mockClient, mockCache, pairs, updatesCh)

	require.Len(t, updatesCh, 1)
	upd := <-updatesCh
	require.InDelta(t, 0.9, upd.Value, 1e-9)
	mockClient.AssertNotCalled(t, "GetExchangeRates", mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestProcessBase_CacheMissFetchesAndStores(t *testing.T) {
	mockClient := new(MockRateClient)
	mockCache := new(MockQuoteCache)
	pairs := map[domain.Pair]struct{}{
		{Base: "USD", Quote: "EUR"}: {},
		{Base: "USD", Quote: "PLN"}: {},
	}
	updatesCh := make(chan rateUpdate, 2)
	rates := map[string]float64{"EUR": 1.2, "PLN": 4.0, "JPY": 150}

	mockCache.On("Get", "USD").Return(nil, false).Once()
	mockClient.On("GetExchangeRates", mock.Anything, "USD").Return(rates, nil).Once()
	mockCache.On("Set", "USD", rates).Once()

	processBase(context.Background(), 2, "USD", mockClient, mockCache, pairs, updatesCh)

	require.Len(t, updatesCh, 2)
	mockClient.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

// --- processInParallel ---

func TestProcessInParallel_FetchesEachBaseOnce(t *testing.T) {
	mockClient := new(MockRateClient)
	pairs := map[domain.Pair]struct{}{
		{Base: "USD", Quote: "EUR"}: {},
		{Base: "USD", Quote: "PLN"}: {},
		{Base: "EUR", Quote: "GBP"}: {},
	}

	mockClient.On("GetExchangeRates", mock.Anything, "USD").Return(map[string]float64{"EUR": 1.11, "PLN": 3.99}, nil).Once()
	mockClient.On("GetExchangeRates", mock.Anything, "EUR").Return(map[string]float64{"GBP": 0.86}, nil).Once()

	values := processInParallel(context.Background(), mockClient, nil, pairs)

	require.Len(t, values, 3)
	require.InDelta(t, 1.11, values[domain.Pair{Base: "USD", Quote: "EUR"}], 1e-9)
	require.InDelta(t, 3.99, values[domain.Pair{Base: "USD", Quote: "PLN"}], 1e-9)
	require.InDelta(t, 0.86, values[domain.Pair{Base: "EUR", Quote: "GBP"}], 1e-9)
	mockClient.AssertExpectations(t)
}

// --- buildPrices ---

func TestBuildPrices_DirectReversedIdentityAndMissing(t *testing.T) {
	prices := buildPrices([]FeedPair{
		fp("uusd", "ueur", "USD", "EUR"),   // direct
		fp("upln", "ueur", "PLN", "EUR"),   // reversed via EUR/PLN => 1/4
		fp("ugbp", "ujpy", "GBP", "JPY"),   // missing
		fp("uusd", "uusdc", "USD", "USD"),  // identity
		fp("uaud", "unzd", "AUD", "NZD"),   // non-positive
		fp("uthree", "ueur", "THR", "EUR"), // reversed via EUR/THR => 1/3
	}, map[domain.Pair]float64{
		{Base: "USD", Quote: "EUR"}: 0.92,
		{Base: "EUR", Quote: "PLN"}: 4.0,
		{Base: "AUD", Quote: "NZD"}: 0,
		{Base: "EUR", Quote: "THR"}: 3,
	})

	require.Equal(t, []Price{
		{BaseAssetDenom: "uusd", QuoteAssetDenom: "ueur", ArithmeticTwap: "920000000000000000"},
		{BaseAssetDenom: "upln", QuoteAssetDenom: "ueur", ArithmeticTwap: "250000000000000000"},
		{BaseAssetDenom: "uusd", QuoteAssetDenom: "uusdc", ArithmeticTwap: "1000000000000000000"},
		{BaseAssetDenom: "uthree", QuoteAssetDenom: "ueur", ArithmeticTwap: "333333333333333333"},
	}, prices)
}

func TestDisplayRate(t *testing.T) {
	require.Equal(t, "1.5", displayRate("1500000000000000000"))
	require.Equal(t, "0.333333333333333333", displayRate("333333333333333333"))
	require.Equal(t, "not-a-number", displayRate("not-a-number"))
}

// --- Refresh ---

func TestFeed_Refresh_NoPairs(t *testing.T) {
	mockSubmitter := new(MockSubmitter)
	f := NewFeed(nil, new(MockRateClient), nil, mockSubmitter, "wasm1hub", "wasm1feeder")

	n, err := f.Refresh(context.Background(), "exec-1")
	require.NoError(t, err)
	require.Zero(t, n)
	mockSubmitter.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFeed_Refresh_SubmitsPrices(t *testing.T) {
	mockClient := new(MockRateClient)
	mockSubmitter := new(MockSubmitter)

	mockClient.On("GetExchangeRates", mock.Anything, "ATOM").Return(map[string]float64{"USD": 1.5}, nil).Once()
	mockSubmitter.On("Execute", mock.Anything, "wasm1hub", "wasm1feeder", mock.Anything).
		Return(&host.Result{}, nil).
		Run(func(args mock.Arguments) {
			prices := submitted(t, args)
			require.Len(t, prices, 2)
			require.Equal(t, Price{BaseAssetDenom: "uatom", QuoteAssetDenom: "uusd", ArithmeticTwap: "1500000000000000000"}, prices[0])
			require.Equal(t, Price{BaseAssetDenom: "uusd", QuoteAssetDenom: "uatom", ArithmeticTwap: "666666666666666667"}, prices[1])
		}).Once()

	f := NewFeed([]FeedPair{
		fp("uatom", "uusd", "ATOM", "USD"),
		fp("uusd", "uatom", "USD", "ATOM"),
	}, mockClient, nil, mockSubmitter, "wasm1hub", "wasm1feeder")

	n, err := f.Refresh(context.Background(), "exec-2")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	mockClient.AssertExpectations(t)
	mockSubmitter.AssertExpectations(t)
}

func TestFeed_Refresh_NothingPriced_DoesNotSubmit(t *testing.T) {
	mockClient := new(MockRateClient)
	mockSubmitter := new(MockSubmitter)
	mockClient.On("GetExchangeRates", mock.Anything, "ATOM").Return(nil, errors.New("down")).Once()

	f := NewFeed([]FeedPair{fp("uatom", "uusd", "ATOM", "USD")}, mockClient, nil, mockSubmitter, "wasm1hub", "wasm1feeder")

	n, err := f.Refresh(context.Background(), "exec-3")
	require.NoError(t, err)
	require.Zero(t, n)
	mockSubmitter.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFeed_Refresh_SubmitError_EvictsCache(t *testing.T) {
	mockClient := new(MockRateClient)
	mockCache := new(MockQuoteCache)
	mockSubmitter := new(MockSubmitter)

	mockCache.On("Get", "ATOM").Return(map[string]float64{"USD": 2.0}, true).Once()
	mockSubmitter.On("Execute", mock.Anything, "wasm1hub", "wasm1feeder", mock.Anything).
		Return(nil, domain.ErrUnauthorized).Once()
	mockCache.On("CleanBatch", []string{"ATOM"}).Once()

	f := NewFeed([]FeedPair{fp("uatom", "uusd", "ATOM", "USD")}, mockClient, mockCache, mockSubmitter, "wasm1hub", "wasm1feeder")

	_, err := f.Refresh(context.Background(), "exec-4")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorContains(t, err, "failed to submit prices")
	mockCache.AssertExpectations(t)
	mockSubmitter.AssertExpectations(t)
}

func TestFeed_Submit_Empty(t *testing.T) {
	mockSubmitter := new(MockSubmitter)
	f := NewFeed(nil, nil, nil, mockSubmitter, "wasm1hub", "wasm1feeder")

	require.NoError(t, f.Submit(context.Background(), nil))
	mockSubmitter.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
