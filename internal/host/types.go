// Package host implements the message bus that isolated nodes use to talk to
// each other: addressed messages, submessages with correlation-id replies,
// deferred delivery and transactional state.
package host

import (
	"context"
	"encoding/json"

	"fxrelay/internal/identity"
	"fxrelay/internal/storage"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// BalanceQuerier answers bank balance lookups.
type BalanceQuerier interface {
	QueryBalance(ctx context.Context, address, denom string) (*uint256.Int, error)
}

// Deps is what a node can touch while handling a message. Store is private
// to the node and scoped to the running transaction.
type Deps struct {
	Store   storage.Store
	Querier BalanceQuerier
	Addr    *identity.AddressValidator
	Log     *logrus.Entry
}

type Env struct {
	Contract string
	TxID     uuid.UUID
}

type MessageInfo struct {
	Sender string
}

// Contract is a node's entry points.
type Contract interface {
	Instantiate(ctx context.Context, deps Deps, env Env, info MessageInfo, msg json.RawMessage) (*Response, error)
	Execute(ctx context.Context, deps Deps, env Env, info MessageInfo, msg json.RawMessage) (*Response, error)
	Query(ctx context.Context, deps Deps, env Env, msg json.RawMessage) (json.RawMessage, error)
	Reply(ctx context.Context, deps Deps, env Env, reply Reply) (*Response, error)
}

// ReplyOn controls when the sender of a submessage gets a Reply.
type ReplyOn uint8

const (
	ReplyNever ReplyOn = iota
	ReplySuccess
	ReplyError
	ReplyAlways
)

func (r ReplyOn) onSuccess() bool { return r == ReplySuccess || r == ReplyAlways }
func (r ReplyOn) onError() bool   { return r == ReplyError || r == ReplyAlways }

type WasmMsg struct {
	Contract string          `json:"contract_addr"`
	Msg      json.RawMessage `json:"msg"`
}

// NewWasmMsg encodes msg as JSON addressed to contract.
func NewWasmMsg(contract string, msg any) (WasmMsg, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return WasmMsg{}, err
	}
	return WasmMsg{Contract: contract, Msg: raw}, nil
}

type SubMsg struct {
	ID      uint64  `json:"id"`
	Msg     WasmMsg `json:"msg"`
	ReplyOn ReplyOn `json:"reply_on"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

func NewEvent(typ string) Event {
	return Event{Type: typ}
}

func (e Event) AddAttribute(key, value string) Event {
	e.Attributes = append(e.Attributes, Attribute{Key: key, Value: value})
	return e
}

type SubMsgResponse struct {
	Events []Event `json:"events"`
	Data   []byte  `json:"data,omitempty"`
}

// SubMsgResult is either Ok or Err.
type SubMsgResult struct {
	Ok  *SubMsgResponse `json:"ok,omitempty"`
	Err string          `json:"error,omitempty"`
}

// Reply carries the outcome of a submessage back to its sender.
type Reply struct {
	ID     uint64       `json:"id"`
	Result SubMsgResult `json:"result"`
}

func (r Reply) IsSuccess() bool { return r.Result.Ok != nil }

func Success(id uint64, events []Event, data []byte) Reply {
	return Reply{ID: id, Result: SubMsgResult{Ok: &SubMsgResponse{Events: events, Data: data}}}
}

func Failure(id uint64, detail string) Reply {
	return Reply{ID: id, Result: SubMsgResult{Err: detail}}
}
