package domain

import (
	"fmt"
)

// RequestStatus is the progress of the requester's single in-flight request.
type RequestStatus uint8

const (
	StatusNone RequestStatus = iota
	StatusRequested
	StatusAccepted
	StatusAnswered
	StatusFailed
)

var statusNames = [...]string{
	StatusNone:      "none",
	StatusRequested: "requested",
	StatusAccepted:  "accepted",
	StatusAnswered:  "answered",
	StatusFailed:    "failed",
}

// StatusEvent is something that happened to the in-flight request.
type StatusEvent uint8

const (
	EventRequested StatusEvent = iota + 1
	EventDispatchSucceeded
	EventDispatchFailed
	EventAnswered
)

func (s RequestStatus) Valid() bool { return int(s) < len(statusNames) }

func (s RequestStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("RequestStatus(%d)", uint8(s))
	}
	return statusNames[s]
}

// Next returns the status reached from s when ev happens.
//
// Every status accepts every event: a new request may replace one still in
// flight, and a late dispatch outcome or a repeated answer overwrites whatever
// was recorded before. Only values outside the enum are rejected.
func (s RequestStatus) Next(ev StatusEvent) (RequestStatus, error) {
	if !s.Valid() {
		return s, fmt.Errorf("unknown request status %d", uint8(s))
	}
	switch ev {
	case EventRequested:
		return StatusRequested, nil
	case EventDispatchSucceeded:
		return StatusAccepted, nil
	case EventDispatchFailed:
		return StatusFailed, nil
	case EventAnswered:
		return StatusAnswered, nil
	default:
		return s, fmt.Errorf("unknown status event %d", uint8(ev))
	}
}

func (s RequestStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown request status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *RequestStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = RequestStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown request status %q", string(text))
}
