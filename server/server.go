// Copyright 2020 Northern.tech AS
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


package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	api "github.com/mendersoftware/kioskconnect/api/http"
	"github.com/mendersoftware/kioskconnect/app"
	dconfig "github.com/mendersoftware/kioskconnect/config"
	"github.com/mendersoftware/kioskconnect/model"
	"github.com/mendersoftware/kioskconnect/shell"
	"github.com/mendersoftware/kioskconnect/store"
)

// InitAndRun initializes the agent and the status server and runs them
// until the process is signalled
func InitAndRun(
	conf config.Reader,
	identity *model.DeviceIdentity,
	blobs store.BlobStore,
) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(quit)

	log.Setup(conf.GetBool(dconfig.SettingDebugLog))
	l := log.FromContext(ctx)

	runner := shell.NewRunner()
	state := app.NewStateStore()
	sess, err := NewSession(conf, *identity, state.ApplyDelta)
	if err != nil {
		return err
	}
	uploader := NewLogUploader(conf, blobs, state)

	dispatcher := app.NewDispatcher(runner, uploader, app.DispatcherConfig{
		TrustedOperator: conf.GetBool(dconfig.SettingTrustedOperator),
		RepoPath:        conf.GetString(dconfig.SettingRepoPath),
		RepoRemote:      conf.GetString(dconfig.SettingRepoRemote),
		RepoBranch:      conf.GetString(dconfig.SettingRepoBranch),
	})
	dispatcher.Register(sess)

	var provisioner app.Provisioner
	cellularEnabled := conf.GetBool(dconfig.SettingCellularEnabled)
	if cellularEnabled {
		p, err := NewProvisioner(conf, runner)
		if err != nil {
			return err
		}
		provisioner = p
	}

	display := app.NewDisplay(runner, app.DisplayConfig{
		Display:       conf.GetString(dconfig.SettingDisplay),
		Output:        conf.GetString(dconfig.SettingDisplayOutput),
		ViewerCommand: conf.GetString(dconfig.SettingViewerCommand),
	})
	agent := app.NewAgent(NewProber(conf), provisioner, sess, state, display,
		uploader, app.AgentConfig{
			CellularEnabled:  cellularEnabled,
			SessionReconnect: conf.GetBool(dconfig.SettingSessionReconnect),
			SessionRetryInterval: seconds(conf,
				dconfig.SettingSessionRetryIntervalSeconds),
			ViewerEnabled: conf.GetBool(dconfig.SettingViewerEnabled),
			ViewerURL:     conf.GetString(dconfig.SettingViewerURL),
			UploadOnStart: conf.GetBool(dconfig.SettingLogUploadOnStart),
		})

	kioskApp := app.New(*identity, state, sess)

	var listen = conf.GetString(dconfig.SettingListen)
	api.SetAcceptedOrigins(conf.GetStringSlice(dconfig.SettingAllowedOrigins))
	router, err := api.NewRouter(kioskApp)
	if err != nil {
		l.Fatal(err)
	}
	srv := &http.Server{
		Addr:    listen,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		err := agent.Bootstrap(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Errorf("bootstrap: %s", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-quit:
		case <-gctx.Done():
		}
		l.Info("Shutdown Agent ...")
		cancel()
		agent.Wait()
		sess.Close()

		ctxWithTimeout, cancelShutdown := context.WithTimeout(
			context.Background(), 5*time.Second)
		defer cancelShutdown()
		return errors.Wrap(srv.Shutdown(ctxWithTimeout), "server shutdown")
	})
	return g.Wait()
}
