// Package relay holds the balance relay node and the reporter it talks to.
// The relay asks a reporter for the balance of an address and keeps what
// the reporter announced in its events.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"fxrelay/internal/ack"
	"fxrelay/internal/domain"
	"fxrelay/internal/host"

	"github.com/sirupsen/logrus"
)

const (
	ContractName    = "fxrelay:relay"
	ContractVersion = "0.1.0"

	// ReplyFromReporter tags the trigger_flow message sent to the reporter.
	ReplyFromReporter uint64 = 1

	// replyFrom is the reply_from attribute value the relay emits.
	replyFrom = "contract2"
)

type Contract struct{}

func (c Contract) Instantiate(ctx context.Context, deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	deps.Log.Debug("instantiate")

	var msg InstantiateMsg
	if err := host.DecodeMsg(raw, &msg); err != nil {
		return nil, err
	}
	if msg.QueryDenom == "" {
		return nil, domain.ErrDenomRequired
	}
	if err := host.SetContractVersion(ctx, deps.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}
	if err := queryDenom.Save(ctx, deps.Store, msg.QueryDenom); err != nil {
		return nil, err
	}
	return host.NewResponse().AddAttribute("action", "instantiate"), nil
}

func (c Contract) Execute(ctx context.Context, deps host.Deps, _ host.Env, _ host.MessageInfo, raw json.RawMessage) (*host.Response, error) {
	var msg ExecuteMsg
	if err := host.DecodeVariant(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Start == nil {
		return nil, domain.ErrUnknownMessage
	}

	cfg, err := loadConfig(ctx, deps.Store)
	if err != nil {
		return nil, err
	}
	return start(deps, cfg, *msg.Start)
}

func start(deps host.Deps, cfg Config, msg Start) (*host.Response, error) {
	deps.Log.WithFields(logrus.Fields{
		"reporter":      msg.Contract2Addr,
		"query_address": msg.QueryAddress,
	}).Debug("start flow")

	reporter, err := deps.Addr.Validate(msg.Contract2Addr)
	if err != nil {
		return nil, err
	}
	trigger, err := host.NewWasmMsg(reporter, ReporterExecuteMsg{
		TriggerFlow: &TriggerFlow{QueryAddress: msg.QueryAddress, QueryDenom: cfg.QueryDenom},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode trigger message: %w", err)
	}

	return host.NewResponse().
		AddSubMessage(host.SubMsg{ID: ReplyFromReporter, Msg: trigger, ReplyOn: host.ReplyAlways}).
		AddAttribute("action", "start_flow"), nil
}

func (c Contract) Query(ctx context.Context, deps host.Deps, _ host.Env, raw json.RawMessage) (json.RawMessage, error) {
	var msg QueryMsg
	if err := host.DecodeVariant(raw, &msg); err != nil {
		return nil, err
	}
	if msg.BalanceInfo == nil {
		return nil, domain.ErrUnknownMessage
	}
	report, err := lastReport.Load(ctx, deps.Store)
	if err != nil {
		return nil, err
	}
	return json.Marshal(BalanceInfoResponse{Balance: report.Balance})
}

func (c Contract) Reply(ctx context.Context, deps host.Deps, _ host.Env, reply host.Reply) (*host.Response, error) {
	if reply.ID != ReplyFromReporter {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownCorrelationID, reply.ID)
	}
	if !reply.IsSuccess() {
		deps.Log.WithField("error", reply.Result.Err).Debug("reply from reporter failed")
		return host.NewResponse().SetData(ack.Fail(reply.Result.Err)), nil
	}
	deps.Log.Debug("reply from reporter ok")

	report := scanReport(reply.Result.Ok.Events)
	if err := lastReport.Save(ctx, deps.Store, report); err != nil {
		return nil, err
	}
	return host.NewResponse().
		AddAttribute("reply_from", replyFrom).
		AddAttribute("address", report.Address).
		AddAttribute("balance", report.Balance).
		SetData(ack.Result(reply.Result.Ok.Data)), nil
}

// scanReport walks every attribute of every event. Later occurrences win and
// missing keys stay empty.
func scanReport(events []host.Event) Report {
	var r Report
	for _, ev := range events {
		for _, attr := range ev.Attributes {
			switch attr.Key {
			case "reported_address":
				r.Address = attr.Value
			case "reported_balance":
				r.Balance = attr.Value
			}
		}
	}
	return r
}

func New() Contract {
	return Contract{}
}
