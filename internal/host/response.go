package host

// Response is what a node returns from Instantiate, Execute and Reply.
type Response struct {
	Attributes []Attribute
	Events     []Event
	Messages   []SubMsg
	// Deferred messages are delivered after the transaction commits.
	Deferred []WasmMsg
	Data     []byte
}

func NewResponse() *Response {
	return &Response{}
}

func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) AddEvent(ev Event) *Response {
	r.Events = append(r.Events, ev)
	return r
}

// AddMessage dispatches msg without asking for a reply.
func (r *Response) AddMessage(msg WasmMsg) *Response {
	r.Messages = append(r.Messages, SubMsg{Msg: msg, ReplyOn: ReplyNever})
	return r
}

func (r *Response) AddSubMessage(sub SubMsg) *Response {
	r.Messages = append(r.Messages, sub)
	return r
}

func (r *Response) AddDeferredMessage(msg WasmMsg) *Response {
	r.Deferred = append(r.Deferred, msg)
	return r
}

func (r *Response) SetData(data []byte) *Response {
	r.Data = data
	return r
}

// Attr returns the value of the first attribute named key.
func (r *Response) Attr(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// FindAttribute scans every attribute of every event for key.
func FindAttribute(events []Event, key string) (string, bool) {
	for _, ev := range events {
		for _, a := range ev.Attributes {
			if a.Key == key {
				return a.Value, true
			}
		}
	}
	return "", false
}
