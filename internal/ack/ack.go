// Package ack builds the acknowledgement payloads nodes return to their
// callers.
package ack

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Ack is either {"result": <base64>} or {"error": "<detail>"}.
type Ack struct {
	Result []byte `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (a Ack) IsError() bool { return a.Error != "" }

// Fail encodes a failure acknowledgement.
func Fail(detail string) []byte {
	out, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: detail})
	return out
}

// Result encodes a success acknowledgement.
func Result(data []byte) []byte {
	if data == nil {
		data = []byte{}
	}
	out, _ := json.Marshal(struct {
		Result []byte `json:"result"`
	}{Result: data})
	return out
}

func Decode(raw []byte) (Ack, error) {
	var a Ack
	if err := json.Unmarshal(raw, &a); err != nil {
		return Ack{}, fmt.Errorf("failed to decode ack: %w", err)
	}
	if a.Error == "" && a.Result == nil && !hasResult(raw) {
		return Ack{}, errors.New("failed to decode ack: neither result nor error set")
	}
	return a, nil
}

func hasResult(raw []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	_, ok := fields["result"]
	return ok
}
