// Copyright (c) 2025 Cmpfetch
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpcgateway provides a gRPC-backed implementation of the session
// interfaces. It connects to the terminal's local service and exchanges
// loosely-typed Struct envelopes over a bidirectional stream: requests carry
// a correlation id and the CMP request payload, and incoming frames are
// translated into session events for the dispatcher to demultiplex.
//
// The package manages connection lifecycle, the service-open handshake, and
// protocol conversion between stream frames and the session event model.
package grpcgateway

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	cmperrors "cmpfetch/cli/internal/errors"
	"cmpfetch/cli/internal/session"
)

// ServiceName is the CMP service identifier opened on every session.
const ServiceName = "//blp/cmp"

// eventBuffer bounds how many undrained events the receive pump may hold.
const eventBuffer = 64

// request is the vendor request object for this transport.
type request struct {
	data []byte
}

func (r *request) SetRequestData(data []byte) { r.data = data }

// service creates requests bound to the CMP service.
type service struct {
	name string
}

func (s *service) Name() string                   { return s.name }
func (s *service) CreateRequest() session.Request { return &request{} }

// gateway implements session.Session over the terminal's session stream.
type gateway struct {
	conn   *grpc.ClientConn
	stream *grpc.GenericClientStream[structpb.Struct, structpb.Struct]

	events chan session.Event
}

// Connect dials the terminal's local service, opens the session stream and
// binds the CMP service. Failure at any step is fatal to the caller; there
// is no retry at this layer.
func Connect(ctx context.Context, host string, port int) (session.Service, session.Session, error) {
	target := net.JoinHostPort(host, strconv.Itoa(port))

	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(dctx, target, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithBlock())
	if err != nil {
		return nil, nil, cmperrors.Wrap(cmperrors.ConnectionFailed, "failed to start terminal session", err)
	}

	// The terminal's bridge is not generated from a proto file we own, so the
	// stream is opened with the literal method name.
	cs, err := conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true, ClientStreams: true}, "/blp.cmp.Terminal/session")
	if err != nil {
		_ = conn.Close()
		return nil, nil, cmperrors.Wrap(cmperrors.ConnectionFailed, "failed to start terminal session", err)
	}

	g := &gateway{
		conn:   conn,
		stream: &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs},
		events: make(chan session.Event, eventBuffer),
	}

	if err := g.openService(ServiceName); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	go g.receiveLoop()
	return &service{name: ServiceName}, g, nil
}

// openService binds the CMP service and waits for the terminal's ack frame.
func (g *gateway) openService(name string) error {
	open, err := structpb.NewStruct(map[string]any{
		"type":    "openService",
		"service": name,
	})
	if err != nil {
		return cmperrors.Wrap(cmperrors.ConnectionFailed, "failed to open CMP service", err)
	}
	if err := g.stream.Send(open); err != nil {
		return cmperrors.Wrap(cmperrors.ConnectionFailed, "failed to open CMP service", err)
	}

	ack, err := g.stream.Recv()
	if err != nil {
		return cmperrors.Wrap(cmperrors.ConnectionFailed, "failed to open CMP service", err)
	}
	ev := eventFromFrame(ack.AsMap())
	for _, msg := range ev.Messages {
		if msg.Type == "ServiceOpened" {
			return nil
		}
	}
	return cmperrors.New(cmperrors.ConnectionFailed, "failed to open CMP service")
}

// SendRequest submits the request payload under the given correlation id.
func (g *gateway) SendRequest(ctx context.Context, req session.Request, corr session.CorrelationID) error {
	r, ok := req.(*request)
	if !ok {
		return errors.New("request was not created by this service")
	}
	frame, err := structpb.NewStruct(map[string]any{
		"type":          "request",
		"operation":     "request",
		"correlationId": float64(corr),
		"requestData":   string(r.data),
	})
	if err != nil {
		return err
	}
	return g.stream.Send(frame)
}

// NextEvent returns the next pumped event, or a Timeout event when nothing
// arrived within poll.
func (g *gateway) NextEvent(ctx context.Context, poll time.Duration) (session.Event, error) {
	timer := time.NewTimer(poll)
	defer timer.Stop()
	select {
	case ev, ok := <-g.events:
		if !ok {
			return session.Event{}, errors.New("session stream closed")
		}
		return ev, nil
	case <-timer.C:
		return session.Event{Type: session.EventTimeout}, nil
	case <-ctx.Done():
		return session.Event{}, ctx.Err()
	}
}

func (g *gateway) Close(ctx context.Context) error {
	if g.stream != nil {
		_ = g.stream.CloseSend()
	}
	if g.conn != nil {
		return g.conn.Close()
	}
	return nil
}

func (g *gateway) receiveLoop() {
	defer close(g.events)
	for {
		frame, err := g.stream.Recv()
		if err != nil {
			// Differentiate normal close vs error; a terminated session still
			// surfaces as one last status event before the channel closes.
			msg := session.Message{Type: "SessionTerminated"}
			if !errors.Is(err, io.EOF) {
				if st, ok := status.FromError(err); ok {
					msg.Payload = []byte(st.Code().String() + ": " + st.Message())
				} else {
					msg.Payload = []byte(err.Error())
				}
			}
			g.events <- session.Event{Type: session.EventSessionStatus, Messages: []session.Message{msg}}
			return
		}
		g.events <- eventFromFrame(frame.AsMap())
	}
}

// eventFromFrame translates one stream frame into a session event. Frames
// carry a flat envelope: eventType, messageType, correlationIds, responseData.
func eventFromFrame(m map[string]any) session.Event {
	ev := session.Event{Type: eventTypeOf(m["eventType"])}

	msg := session.Message{}
	if s, ok := m["messageType"].(string); ok {
		msg.Type = s
	}
	if ids, ok := m["correlationIds"].([]any); ok {
		for _, id := range ids {
			if n, ok := id.(float64); ok {
				msg.CorrelationIDs = append(msg.CorrelationIDs, session.CorrelationID(n))
			}
		}
	}
	if s, ok := m["responseData"].(string); ok && s != "" {
		msg.Payload = []byte(s)
	}
	ev.Messages = []session.Message{msg}
	return ev
}

func eventTypeOf(v any) session.EventType {
	s, _ := v.(string)
	switch s {
	case "RESPONSE":
		return session.EventResponse
	case "PARTIAL_RESPONSE":
		return session.EventPartialResponse
	case "SESSION_STATUS":
		return session.EventSessionStatus
	default:
		return session.EventOther
	}
}
