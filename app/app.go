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

	"github.com/pkg/errors"

	"github.com/mendersoftware/kioskconnect/model"
)

// App errors
var (
	ErrSessionNotReady = errors.New("control plane session is not ready")
)

// SessionStater reports the state of the control plane session
type SessionStater interface {
	State() model.SessionState
}

// App interface describes app objects
//
//go:generate ../utils/mockgen.sh
type App interface {
	HealthCheck(ctx context.Context) error
	GetStatus(ctx context.Context) model.Status
	GetVerificationCode(ctx context.Context) string
	WatchStatus(ctx context.Context) <-chan model.Status
}

// app is an app object
type app struct {
	identity model.DeviceIdentity
	state    *StateStore
	session  SessionStater
}

// New initialize a new kioskconnect App
func New(identity model.DeviceIdentity, state *StateStore, session SessionStater) App {
	return &app{
		identity: identity,
		state:    state,
		session:  session,
	}
}

// HealthCheck fails unless the control plane session is ready
func (a *app) HealthCheck(ctx context.Context) error {
	if state := a.session.State(); state != model.SessionStateReady {
		return errors.Wrap(ErrSessionNotReady, state.String())
	}
	return nil
}

// GetStatus returns the status rendered by the local status surface
func (a *app) GetStatus(ctx context.Context) model.Status {
	sessionState := a.session.State()
	return model.Status{
		DeviceID: a.identity.DeviceID,
		Connected: a.state.Connected() ||
			sessionState == model.SessionStateReady,
		SessionState: sessionState,
		Device:       a.state.Get(),
	}
}

// GetVerificationCode returns the code shown by the QR provisioning page
func (a *app) GetVerificationCode(ctx context.Context) string {
	return a.state.VerificationCode()
}

// WatchStatus pushes the current status, then a fresh status after every
// state change, until the context is done.
func (a *app) WatchStatus(ctx context.Context) <-chan model.Status {
	changes, release := a.state.Watch()
	out := make(chan model.Status, 1)
	go func() {
		defer close(out)
		defer release()
		for {
			select {
			case out <- a.GetStatus(ctx):
			case <-ctx.Done():
				return
			}
			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
