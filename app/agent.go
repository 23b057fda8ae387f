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
	"sync/atomic"
	"time"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/sirupsen/logrus"

	"github.com/mendersoftware/kioskconnect/model"
	"github.com/mendersoftware/kioskconnect/utils"
)

// DefaultSessionRetryInterval is the default wait between session opens
const DefaultSessionRetryInterval = 30 * time.Second

// Prober tells whether the network is reachable
type Prober interface {
	Probe(ctx context.Context) bool
}

// Provisioner brings up the cellular link
type Provisioner interface {
	Provision(ctx context.Context) error
}

// Session is the control plane session driven by the agent
type Session interface {
	SessionStater
	Open(ctx context.Context) error
	OnReady(hook func(ctx context.Context))
	OnFault(hook func())
}

// Screen is the display collaborator
type Screen interface {
	ApplyOrientation(ctx context.Context, orientation model.Orientation) error
	LaunchViewer(ctx context.Context, url string) error
}

// AgentConfig holds the bootstrap settings
type AgentConfig struct {
	CellularEnabled      bool
	SessionReconnect     bool
	SessionRetryInterval time.Duration
	ViewerEnabled        bool
	ViewerURL            string
	UploadOnStart        bool
}

// Agent runs the startup flow: connectivity, session, screen and logs
type Agent struct {
	prober      Prober
	provisioner Provisioner
	session     Session
	state       *StateStore
	screen      Screen
	uploader    Uploader
	config      AgentConfig

	ready int32
	wg    sync.WaitGroup
}

// NewAgent returns a new Agent and hooks it to the session and the state;
// the provisioner may be nil when the cellular fallback is disabled.
func NewAgent(
	prober Prober,
	provisioner Provisioner,
	session Session,
	state *StateStore,
	screen Screen,
	uploader Uploader,
	config AgentConfig,
) *Agent {
	if config.SessionRetryInterval <= 0 {
		config.SessionRetryInterval = DefaultSessionRetryInterval
	}
	a := &Agent{
		prober:      prober,
		provisioner: provisioner,
		session:     session,
		state:       state,
		screen:      screen,
		uploader:    uploader,
		config:      config,
	}
	session.OnReady(a.onReady)
	session.OnFault(a.onFault)
	state.OnChange(a.onStateChange)
	return a
}

// Bootstrap establishes connectivity and opens the session; it returns an
// error only when the context is cancelled.
func (a *Agent) Bootstrap(ctx context.Context) error {
	l := log.FromContext(ctx)

	connected := a.prober.Probe(ctx)
	a.state.SetConnected(connected)
	if !connected {
		if a.config.CellularEnabled && a.provisioner != nil {
			l.Warn("network unreachable, bringing up the cellular link")
			if err := a.provisioner.Provision(ctx); err != nil {
				return err
			}
			a.state.SetConnected(a.prober.Probe(ctx))
		} else {
			l.Warn("network unreachable and the cellular fallback is disabled")
		}
	}

	if err := a.session.Open(ctx); err != nil && a.config.SessionReconnect {
		a.wg.Add(1)
		go a.retryOpen(ctx)
	} else if err != nil {
		l.Error("control plane session unavailable, the device is unmanaged")
	}

	if a.config.ViewerEnabled {
		url := a.state.Get().WebURL
		if url == "" {
			url = a.config.ViewerURL
		}
		if err := a.screen.LaunchViewer(ctx, url); err != nil {
			l.Errorf("failed to launch the viewer: %s", err)
		}
	}

	if a.config.UploadOnStart {
		report, err := a.uploader.Upload(ctx)
		if err != nil {
			l.Errorf("startup log upload: %s", err)
		} else {
			l.WithFields(logrus.Fields{
				"uploaded": report.Uploaded,
				"missing":  report.Missing,
			}).Info("startup logs uploaded")
		}
	}
	return ctx.Err()
}

func (a *Agent) retryOpen(ctx context.Context) {
	defer a.wg.Done()
	l := log.FromContext(ctx)
	for {
		if err := utils.Sleep(ctx, a.config.SessionRetryInterval); err != nil {
			return
		}
		a.state.SetConnected(a.prober.Probe(ctx))
		if err := a.session.Open(ctx); err == nil {
			return
		}
		l.Warnf("control plane session unavailable, retrying in %s",
			a.config.SessionRetryInterval)
	}
}

// Wait blocks until the background session retries stopped
func (a *Agent) Wait() {
	a.wg.Wait()
}

func (a *Agent) onReady(ctx context.Context) {
	atomic.StoreInt32(&a.ready, 1)
	a.state.SetConnected(true)
	a.applyOrientation(ctx, a.state.Get().Orientation)
}

func (a *Agent) onFault() {
	atomic.StoreInt32(&a.ready, 0)
	a.state.SetConnected(false)
	log.NewEmpty().Warn("control plane session lost, the device is unmanaged")
}

func (a *Agent) onStateChange(ctx context.Context, prev, next model.DeviceState) {
	// the snapshot applied while syncing is rendered by onReady
	if atomic.LoadInt32(&a.ready) == 0 {
		return
	}
	if prev.Orientation != next.Orientation {
		a.applyOrientation(ctx, next.Orientation)
	}
}

func (a *Agent) applyOrientation(ctx context.Context, orientation model.Orientation) {
	if err := a.screen.ApplyOrientation(ctx, orientation); err != nil {
		log.FromContext(ctx).Errorf("failed to apply the orientation: %s", err)
	}
}
