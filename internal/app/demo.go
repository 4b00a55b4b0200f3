package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"fxrelay/internal/ack"
	"fxrelay/internal/domain"
	"fxrelay/internal/oracle"
	"fxrelay/internal/relay"
	"fxrelay/internal/requester"

	"github.com/holiman/uint256"
)

const (
	demoBase    = "uatom"
	demoQuote   = "uusd"
	demoTwap    = "1500000000000000000"
	demoBalance = 10
)

// DemoReport is what the demo observed at each step.
type DemoReport struct {
	Holder         string                              `json:"holder"`
	AfterRequest   domain.RequestStatus                `json:"after_request"`
	AfterDelivery  domain.RequestStatus                `json:"after_delivery"`
	Calculated     requester.CalculatedBalanceResponse `json:"calculated"`
	RelayedBalance string                              `json:"relayed_balance"`
}

// RunDemo drives both protocols once: a price request answered by the
// currency hub, then a balance relayed through the reporter.
func RunDemo(ctx context.Context, a *App, out io.Writer) (*DemoReport, error) {
	holder, err := a.Addr.Account("demo-holder")
	if err != nil {
		return nil, err
	}
	rep := &DemoReport{Holder: holder}

	if err = a.Bus.SetBalance(ctx, holder, demoBase, uint256.NewInt(demoBalance)); err != nil {
		return nil, err
	}
	if err = a.ensureDemoPrice(ctx); err != nil {
		return nil, err
	}

	res, err := a.Bus.Execute(ctx, a.Nodes.Requester, holder, requester.ExecuteMsg{
		RequestTokenPrice: &requester.RequestTokenPrice{BaseAssetDenom: demoBase, QuoteAssetDenom: demoQuote, QueryAddress: holder},
	})
	if err == nil {
		err = checkAck(res.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to request price: %w", err)
	}
	if rep.AfterRequest, err = a.requestStatus(ctx); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "requested %s/%s for %s: status %s\n", demoBase, demoQuote, holder, rep.AfterRequest)

	if _, err = a.Bus.Flush(ctx); err != nil {
		return nil, err
	}
	if rep.AfterDelivery, err = a.requestStatus(ctx); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "answer delivered: status %s\n", rep.AfterDelivery)

	if err = a.query(ctx, a.Nodes.Requester, requester.QueryMsg{CalculatedBalance: &struct{}{}}, &rep.Calculated); err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "calculated balance: %s %s is %s %s\n",
		rep.Calculated.OriginalBalance, demoBase, rep.Calculated.ExchangedBalance, demoQuote)

	res, err = a.Bus.Execute(ctx, a.Nodes.Relay, holder, relay.ExecuteMsg{
		Start: &relay.Start{Contract2Addr: a.Nodes.Reporter, QueryAddress: holder},
	})
	if err == nil {
		err = checkAck(res.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start relay flow: %w", err)
	}
	var info relay.BalanceInfoResponse
	if err = a.query(ctx, a.Nodes.Relay, relay.QueryMsg{BalanceInfo: &struct{}{}}, &info); err != nil {
		return nil, err
	}
	rep.RelayedBalance = info.Balance
	fmt.Fprintf(out, "relayed balance: %s\n", rep.RelayedBalance)

	return rep, nil
}

// ensureDemoPrice stores a price for the demo pair unless the hub has one.
func (a *App) ensureDemoPrice(ctx context.Context) error {
	_, err := a.Bus.Query(ctx, a.Nodes.CurrencyHub, oracle.QueryMsg{
		ArithmeticTwap: &oracle.QueryArithmeticTwap{BaseAssetDenom: demoBase, QuoteAssetDenom: demoQuote},
	})
	if err == nil || !errors.Is(err, domain.ErrPriceNotFound) {
		return err
	}
	_, err = a.Bus.Execute(ctx, a.Nodes.CurrencyHub, a.Feeder, oracle.ExecuteMsg{SetPrices: &oracle.SetPrices{
		Prices: []oracle.Price{{BaseAssetDenom: demoBase, QuoteAssetDenom: demoQuote, ArithmeticTwap: demoTwap}},
	}})
	return err
}

// checkAck turns a failure acknowledgement into an error.
func checkAck(data []byte) error {
	a, err := ack.Decode(data)
	if err != nil {
		return err
	}
	if a.IsError() {
		return errors.New(a.Error)
	}
	return nil
}

func (a *App) requestStatus(ctx context.Context) (domain.RequestStatus, error) {
	var res requester.RequestStatusResponse
	err := a.query(ctx, a.Nodes.Requester, requester.QueryMsg{RequestStatus: &struct{}{}}, &res)
	return res.RequestStatus, err
}

func (a *App) query(ctx context.Context, contract string, msg, v any) error {
	raw, err := a.Bus.Query(ctx, contract, msg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
