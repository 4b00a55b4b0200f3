package host

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"fxrelay/internal/domain"
	"fxrelay/internal/identity"
	"fxrelay/internal/storage"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// MaxDepth bounds how deep submessages may nest.
const MaxDepth = 16

var ErrDepthExceeded = errors.New("submessage depth exceeded")

// Bank is the balance store the bus exposes to nodes.
type Bank interface {
	BalanceQuerier
	SetBalance(ctx context.Context, address, denom string, amount *uint256.Int) error
}

// Result is the outcome of a committed transaction.
type Result struct {
	TxID       uuid.UUID   `json:"tx_id"`
	Attributes []Attribute `json:"attributes"`
	Events     []Event     `json:"events"`
	Data       []byte      `json:"data,omitempty"`
}

type NodeInfo struct {
	Address string `json:"address"`
	Label   string `json:"label"`
}

type node struct {
	NodeInfo
	contract Contract
}

func (n *node) prefix() string {
	return "node/" + n.Address + "/"
}

type envelope struct {
	sender string
	msg    WasmMsg
}

type outcome struct {
	attrs    []Attribute
	events   []Event
	data     []byte
	deferred []envelope
}

// Bus delivers messages between nodes. Every invocation holds execMu, so a
// node never handles two messages at once.
type Bus struct {
	base    storage.Store
	bank    Bank
	addr    *identity.AddressValidator
	log     *logrus.Entry
	metrics *busMetrics

	execMu sync.Mutex
	nodes  map[string]*node

	queueMu sync.Mutex
	queue   []envelope
	notify  chan struct{}
}

// Instantiate creates a node running c at an address derived from label and
// runs its Instantiate entry point.
func (b *Bus) Instantiate(ctx context.Context, c Contract, label, sender string, msg any) (string, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode instantiate message: %w", err)
	}
	addr, err := b.addr.Derive(label)
	if err != nil {
		return "", err
	}

	b.execMu.Lock()
	defer b.execMu.Unlock()

	if _, ok := b.nodes[addr]; ok {
		return "", fmt.Errorf("%w: node %q already exists", domain.ErrConfig, label)
	}
	n := &node{NodeInfo: NodeInfo{Address: addr, Label: label}, contract: c}
	b.nodes[addr] = n

	txID := uuid.New()
	cache := storage.NewCache(b.base)
	deps, env := b.env(cache, n, txID)
	resp, err := c.Instantiate(ctx, deps, env, MessageInfo{Sender: sender}, raw)
	b.metrics.messages.WithLabelValues("instantiate", result(err)).Inc()
	if err != nil {
		delete(b.nodes, addr)
		return "", fmt.Errorf("failed to instantiate %s: %w", label, err)
	}
	out, err := b.handleResponse(ctx, txID, cache, 0, n, resp)
	if err != nil {
		delete(b.nodes, addr)
		return "", fmt.Errorf("failed to instantiate %s: %w", label, err)
	}
	if err = cache.Write(ctx); err != nil {
		delete(b.nodes, addr)
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	b.enqueue(out.deferred)

	b.log.WithFields(logrus.Fields{"node": label, "address": addr}).Info("node instantiated")
	return addr, nil
}

// Restore attaches c to a node instantiated in an earlier run. It reports
// false when no state exists for label.
func (b *Bus) Restore(ctx context.Context, c Contract, label string) (string, bool, error) {
	addr, err := b.addr.Derive(label)
	if err != nil {
		return "", false, err
	}

	b.execMu.Lock()
	defer b.execMu.Unlock()

	if _, exists := b.nodes[addr]; exists {
		return "", false, fmt.Errorf("%w: node %q already exists", domain.ErrConfig, label)
	}
	n := &node{NodeInfo: NodeInfo{Address: addr, Label: label}, contract: c}
	_, ok, err := contractInfo.MayLoad(ctx, storage.Prefix(b.base, n.prefix()))
	if err != nil {
		return "", false, fmt.Errorf("failed to restore %s: %w", label, err)
	}
	if !ok {
		return addr, false, nil
	}
	b.nodes[addr] = n
	return addr, true, nil
}

// Execute runs msg on contract as a single transaction. State is committed
// only if the whole call tree succeeds.
func (b *Bus) Execute(ctx context.Context, contract, sender string, msg any) (*Result, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode execute message: %w", err)
	}

	b.execMu.Lock()
	defer b.execMu.Unlock()

	return b.runTx(ctx, "execute", sender, WasmMsg{Contract: contract, Msg: raw})
}

func (b *Bus) Query(ctx context.Context, contract string, msg any) (json.RawMessage, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query message: %w", err)
	}

	b.execMu.Lock()
	defer b.execMu.Unlock()

	n, err := b.node(contract)
	if err != nil {
		return nil, err
	}
	deps, env := b.env(b.base, n, uuid.Nil)
	deps.Store = storage.ReadOnly(deps.Store)
	out, err := n.contract.Query(ctx, deps, env, raw)
	b.metrics.messages.WithLabelValues("query", result(err)).Inc()
	return out, err
}

func (b *Bus) SetBalance(ctx context.Context, address, denom string, amount *uint256.Int) error {
	b.execMu.Lock()
	defer b.execMu.Unlock()
	return b.bank.SetBalance(ctx, address, denom, amount)
}

func (b *Bus) QueryBalance(ctx context.Context, address, denom string) (*uint256.Int, error) {
	b.execMu.Lock()
	defer b.execMu.Unlock()
	return b.bank.QueryBalance(ctx, address, denom)
}

func (b *Bus) ContractVersion(ctx context.Context, contract string) (ContractVersion, error) {
	b.execMu.Lock()
	defer b.execMu.Unlock()

	n, err := b.node(contract)
	if err != nil {
		return ContractVersion{}, err
	}
	return GetContractVersion(ctx, storage.Prefix(b.base, n.prefix()))
}

func (b *Bus) Nodes() []NodeInfo {
	b.execMu.Lock()
	defer b.execMu.Unlock()

	out := make([]NodeInfo, 0, len(b.nodes))
	for _, n := range b.nodes {
		out = append(out, n.NodeInfo)
	}
	slices.SortFunc(out, func(x, y NodeInfo) int {
		return cmp.Compare(x.Label, y.Label)
	})
	return out
}

// Lookup resolves a node address by label.
func (b *Bus) Lookup(label string) (string, error) {
	b.execMu.Lock()
	defer b.execMu.Unlock()

	for _, n := range b.nodes {
		if n.Label == label {
			return n.Address, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnknownNode, label)
}

// runTx expects execMu to be held.
func (b *Bus) runTx(ctx context.Context, entry, sender string, msg WasmMsg) (*Result, error) {
	txID := uuid.New()
	cache := storage.NewCache(b.base)

	out, err := b.call(ctx, txID, cache, 0, sender, msg)
	if err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"entry":    entry,
			"tx":       txID,
			"contract": msg.Contract,
		}).Debug("transaction rolled back")
		return nil, err
	}
	if err = cache.Write(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	b.enqueue(out.deferred)

	return &Result{TxID: txID, Attributes: out.attrs, Events: out.events, Data: out.data}, nil
}

func (b *Bus) call(ctx context.Context, txID uuid.UUID, cache storage.Store, depth int, sender string, msg WasmMsg) (*outcome, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrDepthExceeded, depth)
	}
	n, err := b.node(msg.Contract)
	if err != nil {
		return nil, err
	}

	deps, env := b.env(cache, n, txID)
	resp, err := n.contract.Execute(ctx, deps, env, MessageInfo{Sender: sender}, msg.Msg)
	b.metrics.messages.WithLabelValues("execute", result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return b.handleResponse(ctx, txID, cache, depth, n, resp)
}

// handleResponse dispatches the submessages of resp depth first. Each
// submessage runs in its own cache layered on cache and is dropped on
// failure.
func (b *Bus) handleResponse(ctx context.Context, txID uuid.UUID, cache storage.Store, depth int, n *node, resp *Response) (*outcome, error) {
	if resp == nil {
		resp = NewResponse()
	}
	out := &outcome{
		attrs:  slices.Clone(resp.Attributes),
		events: contractEvents(n.Address, resp),
		data:   resp.Data,
	}
	for _, d := range resp.Deferred {
		out.deferred = append(out.deferred, envelope{sender: n.Address, msg: d})
	}

	for _, sub := range resp.Messages {
		child := storage.NewCache(cache)
		subOut, err := b.call(ctx, txID, child, depth+1, n.Address, sub.Msg)
		if err == nil {
			err = child.Write(ctx)
		}

		var reply Reply
		switch {
		case err != nil && !sub.ReplyOn.onError():
			return nil, err
		case err != nil:
			reply = Failure(sub.ID, err.Error())
		default:
			out.events = append(out.events, subOut.events...)
			out.deferred = append(out.deferred, subOut.deferred...)
			if !sub.ReplyOn.onSuccess() {
				continue
			}
			reply = Success(sub.ID, subOut.events, subOut.data)
		}

		deps, env := b.env(cache, n, txID)
		rresp, err := n.contract.Reply(ctx, deps, env, reply)
		b.metrics.replies.WithLabelValues(replyOutcome(reply)).Inc()
		if err != nil {
			return nil, err
		}
		rout, err := b.handleResponse(ctx, txID, cache, depth, n, rresp)
		if err != nil {
			return nil, err
		}
		out.attrs = append(out.attrs, rout.attrs...)
		out.events = append(out.events, rout.events...)
		out.deferred = append(out.deferred, rout.deferred...)
		if rout.data != nil {
			out.data = rout.data
		}
	}
	return out, nil
}

func (b *Bus) node(addr string) (*node, error) {
	n, ok := b.nodes[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNode, addr)
	}
	return n, nil
}

func (b *Bus) env(cache storage.Store, n *node, txID uuid.UUID) (Deps, Env) {
	deps := Deps{
		Store:   storage.Prefix(cache, n.prefix()),
		Querier: b.bank,
		Addr:    b.addr,
		Log:     b.log.WithFields(logrus.Fields{"node": n.Label, "tx": txID}),
	}
	return deps, Env{Contract: n.Address, TxID: txID}
}

// contractEvents turns the attributes of resp into a "wasm" event and
// prefixes custom events with "wasm-".
func contractEvents(addr string, resp *Response) []Event {
	events := make([]Event, 0, len(resp.Events)+1)
	if len(resp.Attributes) > 0 {
		ev := NewEvent("wasm").AddAttribute("_contract_address", addr)
		ev.Attributes = append(ev.Attributes, resp.Attributes...)
		events = append(events, ev)
	}
	for _, e := range resp.Events {
		ev := NewEvent("wasm-"+e.Type).AddAttribute("_contract_address", addr)
		ev.Attributes = append(ev.Attributes, e.Attributes...)
		events = append(events, ev)
	}
	return events
}

func replyOutcome(r Reply) string {
	if r.IsSuccess() {
		return "success"
	}
	return "failure"
}

func NewBus(base storage.Store, bank Bank, addr *identity.AddressValidator, reg prometheus.Registerer) *Bus {
	return &Bus{
		base:    base,
		bank:    bank,
		addr:    addr,
		log:     logrus.WithField("component", "bus"),
		metrics: newBusMetrics(reg),
		nodes:   make(map[string]*node),
		notify:  make(chan struct{}, 1),
	}
}
