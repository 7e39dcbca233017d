// Package dispatch sends CMP requests over a terminal session and correlates
// asynchronous responses back to their originating requests. It supports a
// blocking single-request mode and a pipelined batch mode in which many
// requests are in flight at once and responses are demultiplexed by
// correlation id as they arrive. Throttled requests are retried up to a
// bound; results always come back in submission order.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cmpfetch/cli/internal/cmp"
	"cmpfetch/cli/internal/cmpvalue"
	"cmpfetch/cli/internal/errors"
	"cmpfetch/cli/internal/session"
)

const (
	// pollInterval bounds how long one NextEvent call may block.
	pollInterval = time.Second

	// singleAttempts is the total attempt budget in single-request mode.
	singleAttempts = 3
	// singleBackoff is the fixed wait before resubmitting a throttled
	// single-mode request.
	singleBackoff = time.Second

	// throttleIndicator is the error message pattern the service uses to
	// signal rate limiting.
	throttleIndicator = "Limit reached"
)

// isThrottled reports whether a service error message signals throttling.
func isThrottled(msg string) bool { return strings.Contains(msg, throttleIndicator) }

// ResendFunc resubmits a throttled request. The default re-sends the same
// vendor request under the same correlation id; whether the terminal treats
// that as a new logical request is vendor-defined, so callers may plug in
// their own resend behavior.
type ResendFunc func(ctx context.Context, sess session.Session, req session.Request, corr session.CorrelationID) error

// Options tunes batch dispatch.
type Options struct {
	// Timeout bounds the whole batch; exceeding it fails the entire call.
	Timeout time.Duration
	// MaxRetries bounds throttled retries per request.
	MaxRetries int
	// RetryDelay is the wait before resubmitting a throttled request.
	RetryDelay time.Duration
	// ParseValues runs every response value through cmpvalue.Parse.
	ParseValues bool
	// Resend overrides how throttled requests are resubmitted.
	Resend ResendFunc
	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 1200 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 30 * time.Second
	}
	if o.Resend == nil {
		o.Resend = func(ctx context.Context, sess session.Session, req session.Request, corr session.CorrelationID) error {
			return sess.SendRequest(ctx, req, corr)
		}
	}
	return o
}

// Outcome is the terminal result for one submitted request. Exactly one of
// Fields or Err is meaningful; Index is the zero-based submission index.
type Outcome struct {
	Index  int
	Fields map[string]any
	Err    error
}

// OK reports whether the request produced a successful response.
func (o Outcome) OK() bool { return o.Err == nil }

// Send submits one request and blocks until a terminal response arrives.
// Throttled responses are retried after a fixed backoff within a budget of
// three total attempts; any other service error fails immediately. With
// parse enabled every value is run through cmpvalue.Parse.
func Send(ctx context.Context, params cmp.Parameters, svc session.Service, sess session.Session, parse bool, log zerolog.Logger) (map[string]any, error) {
	payload, err := cmp.EncodeRequest(params)
	if err != nil {
		return nil, err
	}
	req := svc.CreateRequest()
	req.SetRequestData(payload)

	throttled := false
	for attempt := 0; attempt < singleAttempts; attempt++ {
		if err := sess.SendRequest(ctx, req, 0); err != nil {
			return nil, err
		}

		msg, ok, err := awaitResponse(ctx, sess)
		if err != nil {
			return nil, err
		}
		if !ok {
			throttled = false
			log.Warn().Int("attempt", attempt+1).Msg("no response received, retrying")
			continue
		}

		resp, err := cmp.DecodeResponse(msg.Payload)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			if isThrottled(resp.ErrorMessage) {
				throttled = true
				log.Warn().Msg("throttling detected, retrying after backoff")
				time.Sleep(singleBackoff)
				continue
			}
			log.Error().Str("message", resp.ErrorMessage).Msg("error from CMP")
			return nil, errors.New(errors.RequestFailed, resp.ErrorMessage)
		}
		return flatten(resp, parse), nil
	}
	if throttled {
		return nil, errors.New(errors.ThrottleExhausted, "throttle limit reached after repeated attempts")
	}
	return nil, errors.New(errors.NoResponse, "failed to receive a valid response after multiple attempts")
}

// awaitResponse drains events until the terminal response for the in-flight
// request arrives. A poll timeout or an outright RequestFailure ends the
// attempt (ok=false); partial responses and administrative events are
// skipped without consuming the attempt.
func awaitResponse(ctx context.Context, sess session.Session) (session.Message, bool, error) {
	for {
		ev, err := sess.NextEvent(ctx, pollInterval)
		if err != nil {
			return session.Message{}, false, err
		}
		switch ev.Type {
		case session.EventTimeout:
			return session.Message{}, false, nil
		case session.EventResponse:
			for _, msg := range ev.Messages {
				if msg.Type == session.MessageRequestFailure {
					return session.Message{}, false, nil
				}
				return msg, true, nil
			}
		default:
			for _, msg := range ev.Messages {
				if msg.Type == session.MessageRequestFailure {
					return session.Message{}, false, nil
				}
			}
		}
	}
}

// SendMany submits every request asynchronously under correlation id = index,
// then drains events until each index has a terminal outcome. The returned
// slice has the same length and order as reqs regardless of arrival order.
// Exceeding opts.Timeout fails the whole call; no partial results escape.
func SendMany(ctx context.Context, reqs []cmp.Parameters, svc session.Service, sess session.Session, opts Options) ([]Outcome, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	log.Info().Int("requests", len(reqs)).Msg("sending requests")

	// Vendor request objects are kept around for throttle retries; the slice
	// doubles as the correlation id -> index table since id == index.
	vendorReqs := make([]session.Request, len(reqs))
	retries := make([]int, len(reqs))
	outcomes := make([]Outcome, len(reqs))
	pending := make(map[int]struct{}, len(reqs))

	for i, params := range reqs {
		payload, err := cmp.EncodeRequest(params)
		if err != nil {
			return nil, err
		}
		req := svc.CreateRequest()
		req.SetRequestData(payload)
		if err := sess.SendRequest(ctx, req, session.CorrelationID(i)); err != nil {
			return nil, err
		}
		vendorReqs[i] = req
		pending[i] = struct{}{}
		log.Debug().Int("request", i).Msg("sent request")
	}

	start := time.Now()
	for len(pending) > 0 {
		if elapsed := time.Since(start); elapsed > opts.Timeout {
			log.Error().Dur("elapsed", elapsed).Int("pending", len(pending)).Msg("batch timed out")
			return nil, errors.New(errors.BatchTimeout,
				fmt.Sprintf("timed out after %s with %d request(s) pending", opts.Timeout, len(pending)))
		}

		ev, err := sess.NextEvent(ctx, pollInterval)
		if err != nil {
			return nil, err
		}
		log.Debug().Stringer("event", ev.Type).Int("messages", len(ev.Messages)).Int("pending", len(pending)).Msg("event received")

		for _, msg := range ev.Messages {
			corr, ok := msg.FirstCorrelation()
			if !ok {
				log.Debug().Str("type", msg.Type).Msg("message without correlation id")
				continue
			}
			idx := int(corr)
			if idx < 0 || idx >= len(reqs) {
				log.Debug().Uint64("correlation", uint64(corr)).Msg("unknown correlation id")
				continue
			}
			if _, still := pending[idx]; !still {
				continue // duplicate or late message
			}

			if msg.Type == session.MessageRequestFailure {
				outcomes[idx] = Outcome{Index: idx, Err: errors.New(errors.RequestFailed, "RequestFailure: "+string(msg.Payload))}
				delete(pending, idx)
				log.Error().Int("request", idx).Msg("request failed")
				continue
			}
			if ev.Type != session.EventPartialResponse && ev.Type != session.EventResponse {
				continue
			}

			resp, derr := cmp.DecodeResponse(msg.Payload)
			if derr != nil {
				outcomes[idx] = Outcome{Index: idx, Err: derr}
				delete(pending, idx)
				log.Error().Int("request", idx).Err(derr).Msg("undecodable response")
				continue
			}

			if resp.IsError() {
				if isThrottled(resp.ErrorMessage) {
					if retries[idx] < opts.MaxRetries {
						retries[idx]++
						log.Warn().Int("request", idx).Int("retry", retries[idx]).Int("max", opts.MaxRetries).Dur("delay", opts.RetryDelay).Msg("throttled, retrying")
						// The batch loop stalls while a retry backs off.
						time.Sleep(opts.RetryDelay)
						if err := opts.Resend(ctx, sess, vendorReqs[idx], corr); err != nil {
							outcomes[idx] = Outcome{Index: idx, Err: err}
							delete(pending, idx)
						}
					} else {
						outcomes[idx] = Outcome{Index: idx, Err: errors.New(errors.ThrottleExhausted,
							fmt.Sprintf("throttle limit reached after %d retries", opts.MaxRetries))}
						delete(pending, idx)
						log.Error().Int("request", idx).Msg("exceeded max retries")
					}
				} else {
					outcomes[idx] = Outcome{Index: idx, Err: errors.New(errors.RequestFailed, resp.ErrorMessage)}
					delete(pending, idx)
					log.Error().Int("request", idx).Str("message", resp.ErrorMessage).Msg("error in response")
				}
				continue
			}

			outcomes[idx] = Outcome{Index: idx, Fields: flatten(resp, opts.ParseValues)}
			delete(pending, idx)
			log.Debug().Int("request", idx).Msg("received successful response")
		}
	}

	log.Info().Msg("all responses received")
	return outcomes, nil
}

// flatten converts a decoded response into a field mapping, optionally
// parsing every value to its typed form.
func flatten(resp *cmp.Response, parse bool) map[string]any {
	out := make(map[string]any, len(resp.Fields))
	for name, value := range resp.Fields {
		if parse {
			out[name] = cmpvalue.Parse(value)
		} else {
			out[name] = value
		}
	}
	return out
}
