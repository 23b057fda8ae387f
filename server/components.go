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


package server

import (
	"context"
	"strings"
	"time"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/pkg/errors"

	"github.com/mendersoftware/kioskconnect/app"
	dconfig "github.com/mendersoftware/kioskconnect/config"
	"github.com/mendersoftware/kioskconnect/model"
	"github.com/mendersoftware/kioskconnect/network"
	"github.com/mendersoftware/kioskconnect/session"
	"github.com/mendersoftware/kioskconnect/shell"
	"github.com/mendersoftware/kioskconnect/store"
	"github.com/mendersoftware/kioskconnect/store/mongo"
	"github.com/mendersoftware/kioskconnect/store/s3"
)

// Blob storage backends
const (
	BlobBackendGridFS = "gridfs"
	BlobBackendS3     = "s3"
)

// Configuration errors
var (
	ErrMissingConnectionString = errors.New(dconfig.EnvConnectionString +
		" is not set")
	ErrMissingPIN = errors.New(dconfig.EnvSimPIN +
		" is not set and the cellular fallback is enabled")
	ErrUnknownBlobBackend = errors.New("unknown blob backend")
)

// LoadIdentity parses the device credentials and checks the settings the
// agent cannot start without
func LoadIdentity(conf config.Reader) (*model.DeviceIdentity, error) {
	connectionString := conf.GetString(dconfig.SettingConnectionString)
	if strings.TrimSpace(connectionString) == "" {
		return nil, ErrMissingConnectionString
	}
	identity, err := model.ParseConnectionString(connectionString)
	if err != nil {
		return nil, errors.Wrap(err, "invalid "+dconfig.EnvConnectionString)
	}
	if conf.GetBool(dconfig.SettingCellularEnabled) &&
		conf.GetString(dconfig.SettingSimPIN) == "" {
		return nil, ErrMissingPIN
	}
	return identity, nil
}

func seconds(conf config.Reader, key string) time.Duration {
	return time.Duration(conf.GetInt(key)) * time.Second
}

func milliseconds(conf config.Reader, key string) time.Duration {
	return time.Duration(conf.GetInt(key)) * time.Millisecond
}

// NewProber returns the connectivity prober
func NewProber(conf config.Reader) *network.Prober {
	return network.NewProber(
		conf.GetString(dconfig.SettingProbeHost),
		seconds(conf, dconfig.SettingProbeTimeoutSeconds),
	)
}

// NewProvisioner returns the cellular provisioner
func NewProvisioner(conf config.Reader, runner shell.Runner) (*network.CellularProvisioner, error) {
	cellular := network.CellularConfig{
		ModemDevice:  conf.GetString(dconfig.SettingCellularModemDevice),
		Interface:    conf.GetString(dconfig.SettingCellularInterface),
		APN:          conf.GetString(dconfig.SettingCellularAPN),
		PIN:          conf.GetString(dconfig.SettingSimPIN),
		RestartDelay: milliseconds(conf, dconfig.SettingCellularRestartDelayMs),
	}
	if err := cellular.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid cellular configuration")
	}
	executor := shell.NewRetryingExecutor(runner,
		milliseconds(conf, dconfig.SettingCellularStepRetryDelayMs))
	return network.NewCellularProvisioner(executor, cellular), nil
}

// SetupBlobStore returns the configured blob storage backend; it connects
// on the first upload, so an unreachable backend only fails the uploads.
func SetupBlobStore(conf config.Reader) (store.BlobStore, error) {
	var dial store.Dialer
	switch backend := conf.GetString(dconfig.SettingBlobBackend); backend {
	case BlobBackendGridFS:
		dial = func(ctx context.Context) (store.BlobStore, error) {
			ds, err := mongo.SetupDataStore(ctx)
			if err != nil {
				return nil, err
			}
			return ds, nil
		}
	case BlobBackendS3:
		s3Config := s3.NewConfig(conf)
		dial = func(ctx context.Context) (store.BlobStore, error) {
			ds, err := s3.NewDataStore(s3Config)
			if err != nil {
				return nil, err
			}
			return ds, nil
		}
	default:
		return nil, errors.Wrap(ErrUnknownBlobBackend, backend)
	}
	return store.NewLazyBlobStore(dial), nil
}

// NewLogUploader returns the log uploader
func NewLogUploader(
	conf config.Reader,
	blobs store.BlobStore,
	state *app.StateStore,
) *app.LogUploader {
	return app.NewLogUploader(blobs, state, nil, app.LogUploaderConfig{
		StartupPath:      conf.GetString(dconfig.SettingLogStartupPath),
		ErrorPath:        conf.GetString(dconfig.SettingLogErrorPath),
		DefaultContainer: conf.GetString(dconfig.SettingBlobContainer),
		Truncate:         conf.GetBool(dconfig.SettingLogTruncateOnUpload),
	})
}

// NewSession returns the control plane session of the device
func NewSession(
	conf config.Reader,
	identity model.DeviceIdentity,
	onDelta session.DeltaHandler,
) (*session.Session, error) {
	uri, err := session.ResolveURI(conf.GetString(dconfig.SettingNatsURI), identity)
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		URI:           uri,
		SubjectPrefix: conf.GetString(dconfig.SettingNatsSubjectPrefix),
		Identity:      identity,
		Reconnect:     conf.GetBool(dconfig.SettingSessionReconnect),
		TwinTimeout:   seconds(conf, dconfig.SettingTwinTimeoutSeconds),
	}, onDelta), nil
}
