// Package sessiontest provides a scripted in-memory session implementation.
// Tests enqueue events up front or attach a Respond hook that reacts to each
// send, which makes throttle/retry sequences and shuffled arrival orders
// fully deterministic.
package sessiontest

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"cmpfetch/cli/internal/session"
)

// SentRequest records one SendRequest call.
type SentRequest struct {
	Corr    session.CorrelationID
	Payload []byte
	// Attempt counts sends per correlation id, starting at 1.
	Attempt int
}

// Fake is a scripted Session. The zero value is not usable; call New.
type Fake struct {
	mu       sync.Mutex
	queue    []session.Event
	sent     []SentRequest
	attempts map[session.CorrelationID]int
	closed   bool

	// Respond, when set, maps each send to the events it produces. Events
	// returned here are appended to the queue in order.
	Respond func(req SentRequest) []session.Event
}

func New() *Fake {
	return &Fake{attempts: make(map[session.CorrelationID]int)}
}

type fakeRequest struct {
	data []byte
}

func (r *fakeRequest) SetRequestData(data []byte) { r.data = data }

type fakeService struct{}

func (fakeService) Name() string                   { return "//blp/cmp" }
func (fakeService) CreateRequest() session.Request { return &fakeRequest{} }

// Service returns the service handle paired with this fake session.
func (f *Fake) Service() session.Service { return fakeService{} }

// Enqueue appends events for NextEvent to drain, ahead of any Respond output.
func (f *Fake) Enqueue(events ...session.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, events...)
}

// Sent returns every recorded send in order.
func (f *Fake) Sent() []SentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentRequest(nil), f.sent...)
}

func (f *Fake) SendRequest(ctx context.Context, req session.Request, corr session.CorrelationID) error {
	r := req.(*fakeRequest)
	f.mu.Lock()
	f.attempts[corr]++
	rec := SentRequest{Corr: corr, Payload: r.data, Attempt: f.attempts[corr]}
	f.sent = append(f.sent, rec)
	respond := f.Respond
	f.mu.Unlock()

	if respond != nil {
		events := respond(rec)
		f.Enqueue(events...)
	}
	return nil
}

func (f *Fake) NextEvent(ctx context.Context, poll time.Duration) (session.Event, error) {
	f.mu.Lock()
	if len(f.queue) > 0 {
		ev := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return ev, nil
	}
	f.mu.Unlock()
	// Nothing scripted: behave like an idle session without stalling tests.
	time.Sleep(time.Millisecond)
	return session.Event{Type: session.EventTimeout}, nil
}

func (f *Fake) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SuccessEvent builds a terminal response event carrying the given fields.
func SuccessEvent(corr session.CorrelationID, fields map[string]any) session.Event {
	type field struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	}
	var fs []field
	for name, value := range fields {
		fs = append(fs, field{Name: name, Value: value})
	}
	payload, _ := json.Marshal(map[string]any{
		"cmpExcelResponse": map[string]any{
			"results": []any{map[string]any{"fields": fs}},
		},
	})
	return responseEvent(corr, payload, session.EventResponse)
}

// ErrorEvent builds a response event carrying an errorResponse message.
func ErrorEvent(corr session.CorrelationID, message string) session.Event {
	payload, _ := json.Marshal(map[string]any{
		"errorResponse": map[string]any{"message": message},
	})
	return responseEvent(corr, payload, session.EventResponse)
}

// ThrottleEvent builds the throttling error response the service emits when
// its rate limit is reached.
func ThrottleEvent(corr session.CorrelationID) session.Event {
	return ErrorEvent(corr, "Limit reached")
}

// FailureEvent builds an outright RequestFailure message.
func FailureEvent(corr session.CorrelationID, text string) session.Event {
	return session.Event{
		Type: session.EventOther,
		Messages: []session.Message{{
			Type:           session.MessageRequestFailure,
			CorrelationIDs: []session.CorrelationID{corr},
			Payload:        []byte(text),
		}},
	}
}

// UncorrelatedEvent builds a message without any correlation id, which the
// dispatcher must ignore.
func UncorrelatedEvent() session.Event {
	return session.Event{
		Type:     session.EventSessionStatus,
		Messages: []session.Message{{Type: "SessionConnectionUp"}},
	}
}

func responseEvent(corr session.CorrelationID, payload []byte, typ session.EventType) session.Event {
	return session.Event{
		Type: typ,
		Messages: []session.Message{{
			Type:           "cmpJsonResponse",
			CorrelationIDs: []session.CorrelationID{corr},
			Payload:        payload,
		}},
	}
}
