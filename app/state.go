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


package app

import (
	"context"
	"sync"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/sirupsen/logrus"

	"github.com/mendersoftware/kioskconnect/metrics"
	"github.com/mendersoftware/kioskconnect/model"
)

// ChangeHook is called after a delta changed the device state
type ChangeHook func(ctx context.Context, prev, next model.DeviceState)

// StateStore owns the device state; readers always get copies.
type StateStore struct {
	mu        sync.RWMutex
	state     model.DeviceState
	connected bool

	hooks []ChangeHook

	watchMu  sync.Mutex
	watchers map[uint64]chan struct{}
	nextID   uint64
}

// NewStateStore returns a store holding an empty device state
func NewStateStore() *StateStore {
	return &StateStore{
		state:    model.NewDeviceState(),
		watchers: make(map[uint64]chan struct{}),
	}
}

// Get returns a copy of the device state
func (s *StateStore) Get() model.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// VerificationCode returns the code rendered by the QR provisioning page
func (s *StateStore) VerificationCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.VerificationCode
}

// OnChange registers a hook called after every state change
func (s *StateStore) OnChange(hook ChangeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Apply merges a desired-properties document into the device state. Fields
// with invalid values are skipped and reported in the error; the others are
// applied.
func (s *StateStore) Apply(
	ctx context.Context,
	delta model.Desired,
) (prev, next model.DeviceState, err error) {
	s.mu.Lock()
	prev = s.state
	next, err = prev.Merge(delta)
	s.state = next
	hooks := s.hooks
	s.mu.Unlock()

	if err != nil {
		log.FromContext(ctx).WithFields(logrus.Fields{
			"delta": delta,
		}).Warnf("ignoring invalid desired properties: %s", err)
	}
	if prev != next {
		for _, hook := range hooks {
			hook(ctx, prev, next)
		}
		s.notify()
	}
	return prev, next, err
}

// ApplyDelta is Apply with the signature of a session delta handler
func (s *StateStore) ApplyDelta(ctx context.Context, delta model.Desired) error {
	_, _, err := s.Apply(ctx, delta)
	return err
}

// SetConnected records the result of the last connectivity check
func (s *StateStore) SetConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()

	if connected {
		metrics.Connected.Set(1)
	} else {
		metrics.Connected.Set(0)
	}
	if changed {
		s.notify()
	}
}

// Connected returns the result of the last connectivity check
func (s *StateStore) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Watch returns a channel signalled after every change; pending signals
// are coalesced. The returned function releases the watch.
func (s *StateStore) Watch() (<-chan struct{}, func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.watchers[id] = ch
	return ch, func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *StateStore) notify() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
