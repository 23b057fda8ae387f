// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.


// Package session maintains the device's session with the control plane:
// it synchronizes the desired properties and serves remote methods.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/mendersoftware/go-lib-micro/ws"
	natsio "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mendersoftware/kioskconnect/client/nats"
	"github.com/mendersoftware/kioskconnect/metrics"
	"github.com/mendersoftware/kioskconnect/model"
)

const (
	channelSize = 25

	DefaultTwinTimeout = 10 * time.Second
)

// Session errors
var (
	ErrSessionActive = errors.New("session is already open")
	ErrUnknownMethod = errors.New("unknown method")
)

// DeltaHandler applies a desired-properties document to the device state
type DeltaHandler func(ctx context.Context, delta model.Desired) error

// MethodHandler serves a remote method invocation
type MethodHandler func(ctx context.Context, payload []byte) model.CommandResult

// Dialer opens the transport connection
type Dialer func(url string, opts nats.Options) (nats.Client, error)

// Config holds the session parameters
type Config struct {
	URI           string
	SubjectPrefix string
	Identity      model.DeviceIdentity
	Reconnect     bool
	TwinTimeout   time.Duration
}

// Session is the device's control plane session
type Session struct {
	config Config
	dial   Dialer

	state int32

	mu       sync.Mutex
	client   nats.Client
	subs     []*natsio.Subscription
	stop     chan struct{}
	loopDone chan struct{}
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	handlersMu sync.RWMutex
	handlers   map[string]MethodHandler

	onDelta DeltaHandler
	onReady func(ctx context.Context)
	onFault func()
}

// New returns a closed session; onDelta is invoked for the snapshot and
// for every delta in arrival order.
func New(config Config, onDelta DeltaHandler) *Session {
	if config.TwinTimeout <= 0 {
		config.TwinTimeout = DefaultTwinTimeout
	}
	return &Session{
		config:   config,
		dial:     nats.NewClientWithDefaults,
		handlers: make(map[string]MethodHandler),
		onDelta:  onDelta,
	}
}

// WithDialer replaces the transport dialer
func (s *Session) WithDialer(dial Dialer) *Session {
	s.dial = dial
	return s
}

// OnReady sets the hook fired every time the session becomes ready
func (s *Session) OnReady(hook func(ctx context.Context)) {
	s.onReady = hook
}

// OnFault sets the hook fired when an established connection is lost
func (s *Session) OnFault(hook func()) {
	s.onFault = hook
}

// RegisterMethod registers the handler for the named remote method
func (s *Session) RegisterMethod(name string, handler MethodHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers[name] = handler
}

// State returns the current session state
func (s *Session) State() model.SessionState {
	return model.SessionState(atomic.LoadInt32(&s.state))
}

// Ready tells whether the session is serving deltas and methods
func (s *Session) Ready() bool {
	return s.State() == model.SessionStateReady
}

func (s *Session) setState(state model.SessionState) {
	atomic.StoreInt32(&s.state, int32(state))
	metrics.SessionState.Set(float64(state))
}

// Open connects to the control plane, applies the desired-properties
// snapshot and starts serving deltas and remote methods.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := log.FromContext(ctx)

	switch s.State() {
	case model.SessionStateClosed:
	case model.SessionStateFaulted:
		s.teardown()
	default:
		return ErrSessionActive
	}

	err := s.open(ctx)
	if err != nil {
		l.Errorf("failed to open the control plane session: %s", err)
		s.setState(model.SessionStateFaulted)
		s.teardown()
		return err
	}

	s.setState(model.SessionStateReady)
	l.Infof("control plane session ready for device %s", s.config.Identity.DeviceID)
	if s.onReady != nil {
		s.onReady(ctx)
	}
	return nil
}

func (s *Session) open(ctx context.Context) error {
	s.setState(model.SessionStateOpening)
	client, err := s.dial(s.config.URI, nats.Options{
		Name:          s.config.Identity.DeviceID,
		Token:         s.config.Identity.SharedAccessKey,
		Reconnect:     s.config.Reconnect,
		ErrorHandler:  s.handleError,
		ClosedHandler: s.handleClosed,
	})
	if err != nil {
		return errors.Wrap(err, "failed to connect to the control plane")
	}
	s.client = client
	s.setState(model.SessionStateOpen)

	// subscribe before the snapshot so no delta falls in between. Deltas
	// buffered while syncing are applied after the snapshot in arrival
	// order; a newer change always arrives as a later delta, so the replay
	// ends on the latest values.
	deviceID := s.config.Identity.DeviceID
	desired := make(chan *natsio.Msg, channelSize)
	sub, err := client.ChanSubscribe(
		model.GetDesiredSubject(s.config.SubjectPrefix, deviceID), desired)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to desired properties")
	}
	s.subs = append(s.subs, sub)
	methods := make(chan *natsio.Msg, channelSize)
	sub, err = client.ChanSubscribe(
		model.GetMethodsSubject(s.config.SubjectPrefix, deviceID), methods)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to remote methods")
	}
	s.subs = append(s.subs, sub)

	s.setState(model.SessionStateSyncing)
	snapshot, err := s.requestSnapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.applyDelta(ctx, snapshot); err != nil {
		log.FromContext(ctx).Warnf("desired properties snapshot "+
			"partially applied: %s", err)
	}

	loopCtx, cancel := context.WithCancel(log.WithContext(
		context.Background(), log.FromContext(ctx)))
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.loop(loopCtx, client, desired, methods, s.stop, s.loopDone)
	return nil
}

func (s *Session) requestSnapshot(ctx context.Context) (model.Desired, error) {
	req, err := newTwinRequest()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.TwinTimeout)
	defer cancel()
	data, err := s.client.Request(ctx,
		model.GetTwinSubject(s.config.SubjectPrefix, s.config.Identity.DeviceID),
		req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve the desired properties")
	}
	return DecodeDesired(data)
}

func (s *Session) applyDelta(ctx context.Context, delta model.Desired) error {
	if s.onDelta == nil {
		return nil
	}
	err := s.onDelta(ctx, delta)
	metrics.DeltasApplied.Inc()
	return err
}

func (s *Session) loop(
	ctx context.Context,
	client nats.Client,
	desired, methods chan *natsio.Msg,
	stop, done chan struct{},
) {
	defer close(done)
	l := log.FromContext(ctx)
	for {
		select {
		case <-stop:
			return

		case msg := <-desired:
			delta, err := DecodeDesired(msg.Data)
			if err != nil {
				l.Errorf("dropping desired properties update: %s", err)
				continue
			}
			if err := s.applyDelta(ctx, delta); err != nil {
				l.Warnf("desired properties update partially applied: %s", err)
			}

		case msg := <-methods:
			s.inflight.Add(1)
			go s.handleMethod(ctx, client, msg)
		}
	}
}

func (s *Session) handleMethod(
	ctx context.Context,
	client nats.Client,
	msg *natsio.Msg,
) {
	defer s.inflight.Done()
	l := log.FromContext(ctx)

	req := &ws.ProtoMsg{}
	status, result := StatusOK, model.CommandResult{}
	if err := msgpack.Unmarshal(msg.Data, req); err != nil {
		status = StatusBadRequest
		result = model.NewFailureResult(errors.Wrap(err, "malformed invocation"))
	} else {
		status, result = s.invoke(ctx, req)
	}

	if msg.Reply == "" {
		l.Warnf("method %q invoked without a reply subject", req.Header.MsgType)
		return
	}
	data, err := encodeReply(req, status, result)
	if err == nil {
		err = client.Publish(msg.Reply, data)
	}
	if err != nil {
		l.Errorf("failed to reply to method %q: %s", req.Header.MsgType, err)
	}
}

func (s *Session) invoke(
	ctx context.Context,
	req *ws.ProtoMsg,
) (status int, result model.CommandResult) {
	method := req.Header.MsgType
	s.handlersMu.RLock()
	handler, ok := s.handlers[method]
	s.handlersMu.RUnlock()
	if !ok {
		log.FromContext(ctx).Warnf("unknown method %q invoked", method)
		return StatusNotFound, model.NewFailureResult(
			errors.Wrap(ErrUnknownMethod, method))
	}

	defer func() {
		if r := recover(); r != nil {
			log.FromContext(ctx).Errorf("method %q panicked: %v", method, r)
			status = StatusInternalError
			result = model.NewFailureResult(fmt.Errorf("%s: %v", method, r))
		}
	}()
	result = handler(ctx, req.Body)
	if !result.Success {
		return StatusInternalError, result
	}
	return StatusOK, result
}

func (s *Session) handleError(err error) {
	log.NewEmpty().Errorf("control plane transport error: %s", err)
}

func (s *Session) handleClosed() {
	state := s.State()
	if state == model.SessionStateClosed || state == model.SessionStateFaulted {
		return
	}
	log.NewEmpty().Error("control plane connection closed")
	s.setState(model.SessionStateFaulted)
	if s.onFault != nil {
		s.onFault()
	}
}

// teardown stops the dispatch loop, cancels the in-flight method handlers
// and waits for their replies before closing the connection. Callers hold
// s.mu.
func (s *Session) teardown() {
	if s.stop != nil {
		close(s.stop)
		<-s.loopDone
		s.stop, s.loopDone = nil, nil
	}
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.inflight.Wait()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// Close ends the session; in-flight method handlers see their context
// cancelled and Close returns once they replied.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setState(model.SessionStateClosed)
	s.teardown()
}
