// Package session models the terminal's local session API as capability
// interfaces: a bound service that creates requests, and a session that
// submits them and yields asynchronous events. The wire protocol belongs to
// the vendor terminal; callers only ever see these interfaces, so the
// dispatcher and orchestrator can run against a fake implementation that
// deterministically emits success/error/throttle events.
package session

import (
	"context"
	"time"
)

// CorrelationID pairs an asynchronous request with its eventual response.
type CorrelationID uint64

// EventType enumerates the event kinds the session yields.
type EventType int

const (
	// EventOther covers administrative events the dispatcher ignores.
	EventOther EventType = iota
	// EventTimeout is synthesized when no event arrived within the poll interval.
	EventTimeout
	// EventSessionStatus carries session and service lifecycle messages.
	EventSessionStatus
	// EventPartialResponse carries an intermediate chunk of a response.
	EventPartialResponse
	// EventResponse carries the terminal response for a request.
	EventResponse
)

func (t EventType) String() string {
	switch t {
	case EventTimeout:
		return "TIMEOUT"
	case EventSessionStatus:
		return "SESSION_STATUS"
	case EventPartialResponse:
		return "PARTIAL_RESPONSE"
	case EventResponse:
		return "RESPONSE"
	default:
		return "OTHER"
	}
}

// MessageRequestFailure is the message type the terminal uses for requests
// that failed outright, before producing any response payload.
const MessageRequestFailure = "RequestFailure"

// Message is one message within an event.
type Message struct {
	// Type is the vendor message type, e.g. "cmpJsonResponse" or "RequestFailure".
	Type string
	// CorrelationIDs identifies the originating request(s). Empty for
	// administrative messages.
	CorrelationIDs []CorrelationID
	// Payload carries the responseData JSON for response messages; nil otherwise.
	Payload []byte
}

// FirstCorrelation returns the first correlation id and whether one exists.
func (m Message) FirstCorrelation() (CorrelationID, bool) {
	if len(m.CorrelationIDs) == 0 {
		return 0, false
	}
	return m.CorrelationIDs[0], true
}

// Event is a batch of messages sharing one event type.
type Event struct {
	Type     EventType
	Messages []Message
}

// Request is a vendor request object created by a Service. The CMP payload
// is attached as a string-valued element before sending.
type Request interface {
	SetRequestData(data []byte)
}

// Service creates requests bound to the terminal's CMP service.
type Service interface {
	// Name returns the vendor service identifier, e.g. "//blp/cmp".
	Name() string
	CreateRequest() Request
}

// Session submits requests and yields events. The session handle is shared
// read-mostly across all requests of a batch; the driving loop is
// single-threaded so no locking is imposed on implementations.
type Session interface {
	// SendRequest submits a request under the given correlation id. The same
	// id may be re-sent to retry a throttled request.
	SendRequest(ctx context.Context, req Request, corr CorrelationID) error
	// NextEvent returns the next event, or an EventTimeout event when nothing
	// arrived within the poll interval.
	NextEvent(ctx context.Context, poll time.Duration) (Event, error)
	Close(ctx context.Context) error
}
