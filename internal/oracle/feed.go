package oracle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"fxrelay/internal/adapters"
	"fxrelay/internal/domain"
	"fxrelay/internal/fixedpoint"
	"fxrelay/internal/host"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const numWorkers = 5
const perRequestTimeout = 5 * time.Second

var errNonPositiveRate = errors.New("rate must be positive")

// FeedPair maps a denom pair onto the currency codes the rates API uses,
// e.g. uatom/uusd onto ATOM/USD.
type FeedPair struct {
	Denoms domain.Pair
	Codes  domain.Pair
}

// Submitter executes a message on a node. *host.Bus implements it.
type Submitter interface {
	Execute(ctx context.Context, contract, sender string, msg any) (*host.Result, error)
}

type rateUpdate struct {
	Pair  domain.Pair
	Value float64
}

// Feed pulls conversion rates from an external API and pushes them to the
// currency hub as the feeder.
type Feed struct {
	pairs  []FeedPair
	client adapters.RateClient
	cache  adapters.QuoteCache
	bus    Submitter
	hub    string
	feeder string
}

// Refresh fetches rates for every configured pair and submits the ones it
// could price. It returns how many prices were submitted.
func (f *Feed) Refresh(ctx context.Context, execID string) (int, error) {
	log := logrus.WithField("execID", execID)
	if len(f.pairs) == 0 {
		log.Info("No feed pairs configured")
		return 0, nil
	}

	// reversed pairs are priced from the pair they mirror
	codePairs := getUniquePairs(f.pairs)

	pairValueMap := processInParallel(ctx, f.client, f.cache, codePairs)

	prices := buildPrices(f.pairs, pairValueMap)
	if len(prices) == 0 {
		log.Warn("No prices could be computed this time")
		return 0, nil
	}

	if err := f.Submit(ctx, prices); err != nil {
		if f.cache != nil {
			f.cache.CleanBatch(slices.Collect(maps.Keys(getUniqueBases(codePairs))))
		}
		return 0, err
	}
	for _, p := range prices {
		log.WithFields(logrus.Fields{
			"pair": domain.Pair{Base: p.BaseAssetDenom, Quote: p.QuoteAssetDenom}.String(),
			"rate": displayRate(p.ArithmeticTwap),
		}).Debug("price submitted")
	}
	log.Infof("%d prices were submitted to the currency hub", len(prices))
	return len(prices), nil
}

// Submit sends prices to the currency hub in one set_prices message.
func (f *Feed) Submit(ctx context.Context, prices []Price) error {
	if len(prices) == 0 {
		return nil
	}
	_, err := f.bus.Execute(ctx, f.hub, f.feeder, ExecuteMsg{SetPrices: &SetPrices{Prices: prices}})
	if err != nil {
		return fmt.Errorf("failed to submit prices: %w", err)
	}
	return nil
}

func getUniquePairs(pairs []FeedPair) map[domain.Pair]struct{} {
	pairSet := make(map[domain.Pair]struct{}, len(pairs))
	for _, fp := range pairs {
		p := fp.Codes
		if p.Base == p.Quote {
			continue
		}
		if _, ok := pairSet[p.Reversed()]; ok {
			continue
		}
		pairSet[p] = struct{}{}
	}
	return pairSet
}

func getUniqueBases(pairs map[domain.Pair]struct{}) map[string]struct{} {
	baseSet := make(map[string]struct{})
	for p := range pairs {
		baseSet[p.Base] = struct{}{}
	}
	return baseSet
}

// processInParallel fetches every distinct base once using a worker pool.
func processInParallel(ctx context.Context, client adapters.RateClient, cache adapters.QuoteCache, pairs map[domain.Pair]struct{}) map[domain.Pair]float64 {
	bases := getUniqueBases(pairs)

	workQueue := make(chan string, len(bases))
	for base := range maps.Keys(bases) {
		workQueue <- base
	}
	close(workQueue)

	updatesCh := make(chan rateUpdate, len(pairs))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(ctx, workerID, workQueue, client, cache, pairs, updatesCh)
		}(i)
	}

	wg.Wait()
	close(updatesCh)

	pairValueMap := make(map[domain.Pair]float64, len(pairs))
	for upd := range updatesCh {
		pairValueMap[upd.Pair] = upd.Value
	}
	return pairValueMap
}

func runWorker(ctx context.Context, workerID int, workQueue <-chan string, client adapters.RateClient, cache adapters.QuoteCache, pairs map[domain.Pair]struct{}, updatesCh chan<- rateUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case base, ok := <-workQueue:
			if !ok {
				return
			}
			processBase(ctx, workerID, base, client, cache, pairs, updatesCh)
		}
	}
}

func processBase(ctx context.Context, workerID int, base string, client adapters.RateClient, cache adapters.QuoteCache, pairs map[domain.Pair]struct{}, updatesCh chan<- rateUpdate) {
	ratesMap, ok := cachedRates(cache, base)
	if !ok {
		reqCtx, cancel := context.WithTimeout(ctx, perRequestTimeout)
		defer cancel()

		var err error
		ratesMap, err = client.GetExchangeRates(reqCtx, base)
		if err != nil {
			logrus.Warnf("Base '%s' wasn't processed by Worker %d as external api call returned error: %s", base, workerID, err)
			return
		}
		if cache != nil {
			cache.Set(base, ratesMap)
		}
	}

	for quote, v := range ratesMap {
		p := domain.Pair{Base: base, Quote: quote}
		if _, ok := pairs[p]; ok {
			updatesCh <- rateUpdate{Pair: p, Value: v}
		}
	}
}

func cachedRates(cache adapters.QuoteCache, base string) (map[string]float64, bool) {
	if cache == nil {
		return nil, false
	}
	return cache.Get(base)
}

// buildPrices turns fetched rates into 18-decimal TWAPs for the configured
// denom pairs. Pairs without a usable rate are skipped.
func buildPrices(pairs []FeedPair, pairValueMap map[domain.Pair]float64) []Price {
	prices := make([]Price, 0, len(pairs))
	for _, fp := range pairs {
		var (
			twap string
			err  error
		)
		switch v, ok := pairValueMap[fp.Codes]; {
		case fp.Codes.Base == fp.Codes.Quote:
			twap, err = toTwap(1, false)
		case ok:
			twap, err = toTwap(v, false)
		default:
			rv, found := pairValueMap[fp.Codes.Reversed()]
			if !found {
				logrus.Warnf("Skipping price for '%s', it'll be processed next time", fp.Denoms)
				continue
			}
			twap, err = toTwap(rv, true)
		}
		if err != nil {
			logrus.WithError(err).Warnf("Skipping price for '%s'", fp.Denoms)
			continue
		}
		prices = append(prices, Price{
			BaseAssetDenom:  fp.Denoms.Base,
			QuoteAssetDenom: fp.Denoms.Quote,
			ArithmeticTwap:  twap,
		})
	}
	return prices
}

// displayRate renders an 18-decimal TWAP as a plain rate.
func displayRate(twap string) string {
	v, err := fixedpoint.ParseUint128(twap)
	if err != nil {
		return twap
	}
	return fixedpoint.ToDecimal(v).String()
}

// toTwap scales v (or 1/v) to 18 decimals.
func toTwap(v float64, inverse bool) (string, error) {
	d := decimal.NewFromFloat(v)
	if !d.IsPositive() {
		return "", errNonPositiveRate
	}
	if inverse {
		d = decimal.NewFromInt(1).DivRound(d, fixedpoint.Decimals)
	}
	scaled, err := fixedpoint.FromDecimal(d)
	if err != nil {
		return "", err
	}
	return scaled.Dec(), nil
}

func NewFeed(pairs []FeedPair, client adapters.RateClient, cache adapters.QuoteCache, bus Submitter, hub, feeder string) *Feed {
	return &Feed{
		pairs:  slices.Clone(pairs),
		client: client,
		cache:  cache,
		bus:    bus,
		hub:    hub,
		feeder: feeder,
	}
}
