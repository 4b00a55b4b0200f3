// Package requester is the node that asks the currency hub for an exchange
// rate and converts an observed balance with the answer.
package requester

import (
	"context"
	"encoding/json"
	"fmt"

	"fxrelay/internal/ack"
	"fxrelay/internal/domain"
	"fxrelay/internal/fixedpoint"
	"fxrelay/internal/host"

	"github.com/sirupsen/logrus"
)

const (
	ContractName    = "fxrelay:requester"
	ContractVersion = "0.1.0"

	// ReplyFromCurrencyHub tags the price request sent to the hub.
	ReplyFromCurrencyHub uint64 = 1
)

type Contract struct{}

func (c Contract) Instantiate(ctx context.Context, deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	deps.Log.Debug("instantiate")

	var msg InstantiateMsg
	if err := host.DecodeMsg(raw, &msg); err != nil {
		return nil, err
	}
	hub, err := deps.Addr.Validate(msg.CurrencyHubAddress)
	if err != nil {
		return nil, err
	}
	if err = host.SetContractVersion(ctx, deps.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}
	if err = currencyHub.Init(ctx, deps.Store, hub); err != nil {
		return nil, err
	}
	if err = requestStatus.Save(ctx, deps.Store, domain.StatusNone); err != nil {
		return nil, err
	}

	return host.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("currency_hub_address", hub), nil
}

func (c Contract) Execute(ctx context.Context, deps host.Deps, env host.Env, info host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.DecodeVariant(raw, &msg); err != nil {
		return nil, err
	}

	switch {
	case msg.RequestTokenPrice != nil:
		cfg, err := loadConfig(ctx, deps.Store)
		if err != nil {
			return nil, err
		}
		return requestTokenPrice(ctx, deps, cfg, *msg.RequestTokenPrice)
	case msg.ResponseTokenPrice != nil:
		return responseTokenPrice(ctx, deps, info, *msg.ResponseTokenPrice)
	}
	return nil, domain.ErrUnknownMessage
}

func requestTokenPrice(ctx context.Context, deps host.Deps, cfg Config, msg RequestTokenPrice) (*host.Response, error) {
	log := deps.Log.WithFields(logrus.Fields{
		"base_asset_denom":  msg.BaseAssetDenom,
		"quote_asset_denom": msg.QuoteAssetDenom,
	})
	log.Debug("request token price")

	if msg.BaseAssetDenom == "" || msg.QuoteAssetDenom == "" {
		return nil, domain.ErrDenomRequired
	}
	queryAddress, err := deps.Addr.Validate(msg.QueryAddress)
	if err != nil {
		return nil, err
	}

	req := domain.ContractRequest{
		BaseAssetDenom:  msg.BaseAssetDenom,
		QuoteAssetDenom: msg.QuoteAssetDenom,
		QueryAddress:    queryAddress,
	}
	if err = sentRequest.Save(ctx, deps.Store, req); err != nil {
		return nil, err
	}
	if _, err = advance(ctx, deps.Store, domain.EventRequested); err != nil {
		return nil, err
	}

	wasmMsg, err := host.NewWasmMsg(cfg.CurrencyHubAddress, hubExecuteMsg{
		QueryArithmeticTwap: &queryArithmeticTwap{
			BaseAssetDenom:  msg.BaseAssetDenom,
			QuoteAssetDenom: msg.QuoteAssetDenom,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode hub message: %w", err)
	}

	return host.NewResponse().
		AddSubMessage(host.SubMsg{ID: ReplyFromCurrencyHub, Msg: wasmMsg, ReplyOn: host.ReplyAlways}).
		AddAttribute("action", "request_token_price").
		AddAttribute("base_asset_denom", msg.BaseAssetDenom).
		AddAttribute("quote_asset_denom", msg.QuoteAssetDenom), nil
}

func responseTokenPrice(ctx context.Context, deps host.Deps, info host.MessageInfo, msg ResponseTokenPrice) (*host.Response, error) {
	deps.Log.WithField("sender", info.Sender).Debug("response token price")

	if err := currencyHub.Authorize(ctx, deps.Store, info.Sender); err != nil {
		return nil, err
	}
	req, err := loadRequest(ctx, deps.Store)
	if err != nil {
		return nil, err
	}
	if !req.Matches(msg.BaseAssetDenom, msg.QuoteAssetDenom) {
		return nil, fmt.Errorf("%w: got %s/%s, requested %s/%s", domain.ErrMismatchedRequest,
			msg.BaseAssetDenom, msg.QuoteAssetDenom, req.BaseAssetDenom, req.QuoteAssetDenom)
	}
	rate, err := fixedpoint.ParseUint128(msg.ArithmeticTwap)
	if err != nil {
		return nil, err
	}

	if _, err = advance(ctx, deps.Store, domain.EventAnswered); err != nil {
		return nil, err
	}
	if err = saveRate(ctx, deps.Store, rate); err != nil {
		return nil, err
	}

	return host.NewResponse().
		AddAttribute("action", "response_token_price").
		AddAttribute("arithmetic_twap", msg.ArithmeticTwap), nil
}

func (c Contract) Query(ctx context.Context, deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg QueryMsg
	if err := host.DecodeVariant(raw, &msg); err != nil {
		return nil, err
	}

	switch {
	case msg.CalculatedBalance != nil:
		res, err := calculatedBalance(ctx, deps)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	case msg.RequestStatus != nil:
		st, err := loadStatus(ctx, deps.Store)
		if err != nil {
			return nil, err
		}
		return json.Marshal(RequestStatusResponse{RequestStatus: st})
	}
	return nil, domain.ErrUnknownMessage
}

func calculatedBalance(ctx context.Context, deps host.Deps) (CalculatedBalanceResponse, error) {
	req, err := loadRequest(ctx, deps.Store)
	if err != nil {
		return CalculatedBalanceResponse{}, err
	}
	balance, err := deps.Querier.QueryBalance(ctx, req.QueryAddress, req.BaseAssetDenom)
	if err != nil {
		return CalculatedBalanceResponse{}, fmt.Errorf("failed to query balance: %w", err)
	}

	st, err := loadStatus(ctx, deps.Store)
	if err != nil {
		return CalculatedBalanceResponse{}, err
	}
	if st != domain.StatusAnswered {
		return CalculatedBalanceResponse{}, fmt.Errorf("%w: request is %s", domain.ErrRateNotAvailable, st)
	}
	rate, ok, err := loadRate(ctx, deps.Store)
	if err != nil {
		return CalculatedBalanceResponse{}, err
	}
	if !ok {
		return CalculatedBalanceResponse{}, domain.ErrRateNotAvailable
	}

	exchanged, err := fixedpoint.ComputeConvertedAmount(balance, rate)
	if err != nil {
		return CalculatedBalanceResponse{}, err
	}
	return CalculatedBalanceResponse{
		QueryAddress:     req.QueryAddress,
		OriginalBalance:  balance.Dec(),
		ExchangedBalance: exchanged.Dec(),
	}, nil
}

func (c Contract) Reply(ctx context.Context, deps host.Deps, _ host.Env, reply host.Reply) (*host.Response, error) {
	if reply.ID != ReplyFromCurrencyHub {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownCorrelationID, reply.ID)
	}
	cfg, err := loadConfig(ctx, deps.Store)
	if err != nil {
		return nil, err
	}

	if reply.IsSuccess() {
		deps.Log.Debug("reply from currency hub ok")
		if _, err = advance(ctx, deps.Store, domain.EventDispatchSucceeded); err != nil {
			return nil, err
		}
		return host.NewResponse().
			AddAttribute("reply_from", cfg.CurrencyHubAddress).
			SetData(ack.Result(reply.Result.Ok.Data)), nil
	}

	deps.Log.WithField("error", reply.Result.Err).Debug("reply from currency hub failed")
	if _, err = advance(ctx, deps.Store, domain.EventDispatchFailed); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("reply_from", cfg.CurrencyHubAddress).
		SetData(ack.Fail(reply.Result.Err)), nil
}

func New() Contract {
	return Contract{}
}
