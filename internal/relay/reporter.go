package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"fxrelay/internal/domain"
	"fxrelay/internal/host"
)

const ReporterContractName = "fxrelay:reporter"

// Reporter answers trigger_flow with the bank balance of the asked address,
// announced as reported_address and reported_balance attributes.
type Reporter struct{}

func (r Reporter) Instantiate(ctx context.Context, deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	deps.Log.Debug("instantiate")

	var msg ReporterInstantiateMsg
	if err := host.DecodeMsg(raw, &msg); err != nil {
		return nil, err
	}
	if err := host.SetContractVersion(ctx, deps.Store, ReporterContractName, ContractVersion); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (r Reporter) Execute(ctx context.Context, deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg ReporterExecuteMsg
	if err := host.DecodeVariant(raw, &msg); err != nil {
		return nil, err
	}
	if msg.TriggerFlow == nil {
		return nil, domain.ErrUnknownMessage
	}
	flow := *msg.TriggerFlow
	deps.Log.WithField("query_address", flow.QueryAddress).Debug("trigger flow")

	addr, err := deps.Addr.Validate(flow.QueryAddress)
	if err != nil {
		return nil, err
	}
	balance, err := deps.Querier.QueryBalance(ctx, addr, flow.QueryDenom)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance: %w", err)
	}

	return host.NewResponse().
		AddAttribute("action", "trigger_flow").
		AddAttribute("reported_address", addr).
		AddAttribute("reported_balance", balance.Dec()), nil
}

func (r Reporter) Query(context.Context, host.Deps, host.Env, json.RawMessage) (json.RawMessage, error) {
	return nil, domain.ErrUnknownMessage
}

func (r Reporter) Reply(_ context.Context, _ host.Deps, _ host.Env, reply host.Reply) (*host.Response, error) {
	return nil, fmt.Errorf("%w: %d", domain.ErrUnknownCorrelationID, reply.ID)
}

func NewReporter() Reporter {
	return Reporter{}
}
