// Package oracle is the currency hub node. It keeps 18-decimal TWAPs per
// denom pair, pushed by a feeder, and answers price requests with a message
// back to the caller once the request's transaction has committed.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"fxrelay/internal/domain"
	"fxrelay/internal/fixedpoint"
	"fxrelay/internal/host"
	"fxrelay/internal/identity"
	"fxrelay/internal/storage"

	"github.com/sirupsen/logrus"
)

const (
	ContractName    = "fxrelay:currency-hub"
	ContractVersion = "0.1.0"
)

var feeder = identity.NewGate("feeder")

func priceItem(p domain.Pair) storage.Item[string] {
	return storage.NewItem[string]("price/" + p.String())
}

type Contract struct{}

func (c Contract) Instantiate(ctx context.Context, deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	deps.Log.Debug("instantiate")

	var msg InstantiateMsg
	if err := host.DecodeMsg(raw, &msg); err != nil {
		return nil, err
	}
	addr, err := deps.Addr.Validate(msg.Feeder)
	if err != nil {
		return nil, err
	}
	if err = host.SetContractVersion(ctx, deps.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}
	if err = feeder.Init(ctx, deps.Store, addr); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("feeder", addr), nil
}

func (c Contract) Execute(ctx context.Context, deps host.Deps, _ host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.DecodeVariant(raw, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.SetPrices != nil:
		return setPrices(ctx, deps, info, *msg.SetPrices)
	case msg.QueryArithmeticTwap != nil:
		return queryArithmeticTwap(ctx, deps, info, *msg.QueryArithmeticTwap)
	}
	return nil, domain.ErrUnknownMessage
}

func setPrices(ctx context.Context, deps host.Deps, info host.MessageInfo, msg SetPrices) (*host.Response, error) {
	if err := feeder.Authorize(ctx, deps.Store, info.Sender); err != nil {
		return nil, err
	}
	resp := host.NewResponse()
	for _, p := range msg.Prices {
		pair := domain.Pair{Base: p.BaseAssetDenom, Quote: p.QuoteAssetDenom}
		if pair.Base == "" || pair.Quote == "" {
			return nil, domain.ErrDenomRequired
		}
		twap, err := fixedpoint.ParseUint128(p.ArithmeticTwap)
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", pair, err)
		}
		if err = priceItem(pair).Save(ctx, deps.Store, twap.Dec()); err != nil {
			return nil, err
		}
		resp.AddEvent(host.NewEvent("price").
			AddAttribute("base_asset_denom", pair.Base).
			AddAttribute("quote_asset_denom", pair.Quote).
			AddAttribute("arithmetic_twap", twap.Dec()))
	}
	deps.Log.WithField("count", len(msg.Prices)).Debug("prices set")

	return resp.
		AddAttribute("action", "set_prices").
		AddAttribute("count", strconv.Itoa(len(msg.Prices))), nil
}

func loadPrice(ctx context.Context, s storage.Store, pair domain.Pair) (string, error) {
	if pair.Base == "" || pair.Quote == "" {
		return "", domain.ErrDenomRequired
	}
	twap, ok, err := priceItem(pair).MayLoad(ctx, s)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrPriceNotFound, pair)
	}
	return twap, nil
}

// queryArithmeticTwap answers the caller with a deferred
// response_token_price message.
func queryArithmeticTwap(ctx context.Context, deps host.Deps, info host.MessageInfo, msg QueryArithmeticTwap) (*host.Response, error) {
	pair := domain.Pair{Base: msg.BaseAssetDenom, Quote: msg.QuoteAssetDenom}
	deps.Log.WithFields(logrus.Fields{"pair": pair.String(), "sender": info.Sender}).Debug("query arithmetic twap")

	twap, err := loadPrice(ctx, deps.Store, pair)
	if err != nil {
		return nil, err
	}
	answer, err := host.NewWasmMsg(info.Sender, requesterExecuteMsg{
		ResponseTokenPrice: &Price{
			BaseAssetDenom:  pair.Base,
			QuoteAssetDenom: pair.Quote,
			ArithmeticTwap:  twap,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer: %w", err)
	}

	return host.NewResponse().
		AddDeferredMessage(answer).
		AddAttribute("action", "query_arithmetic_twap").
		AddAttribute("arithmetic_twap", twap), nil
}

func (c Contract) Query(ctx context.Context, deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg QueryMsg
	if err := host.DecodeVariant(raw, &msg); err != nil {
		return nil, err
	}
	if msg.ArithmeticTwap == nil {
		return nil, domain.ErrUnknownMessage
	}
	twap, err := loadPrice(ctx, deps.Store, domain.Pair{
		Base:  msg.ArithmeticTwap.BaseAssetDenom,
		Quote: msg.ArithmeticTwap.QuoteAssetDenom,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(ArithmeticTwapResponse{ArithmeticTwap: twap})
}

func (c Contract) Reply(_ context.Context, _ host.Deps, _ host.Env, reply host.Reply) (*host.Response, error) {
	return nil, fmt.Errorf("%w: %d", domain.ErrUnknownCorrelationID, reply.ID)
}

func New() Contract {
	return Contract{}
}
