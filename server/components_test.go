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
	"testing"
	"time"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dconfig "github.com/mendersoftware/kioskconnect/config"
	"github.com/mendersoftware/kioskconnect/model"
	shell_mocks "github.com/mendersoftware/kioskconnect/shell/mocks"
	"github.com/mendersoftware/kioskconnect/store"
)

// withSettings applies the settings to the global configuration for the
// duration of the test; tests using it cannot run in parallel.
func withSettings(t *testing.T, settings map[string]interface{}) {
	for _, d := range dconfig.Defaults {
		config.Config.SetDefault(d.Key, d.Value)
	}
	for key, value := range settings {
		config.Config.Set(key, value)
	}
	t.Cleanup(func() {
		for key := range settings {
			config.Config.Set(key, nil)
		}
	})
}

func TestLoadIdentity(t *testing.T) {
	testCases := []struct {
		Name string

		Settings map[string]interface{}

		Identity *model.DeviceIdentity
		Error    error
	}{{
		Name: "ok, cellular disabled and no PIN",

		Settings: map[string]interface{}{
			dconfig.SettingConnectionString: "HostName=h;DeviceId=abc123;SharedAccessKey=k",
			dconfig.SettingCellularEnabled:  false,
		},

		Identity: &model.DeviceIdentity{
			DeviceID:        "abc123",
			HostName:        "h",
			SharedAccessKey: "k",
		},
	}, {
		Name: "ok, cellular enabled with PIN",

		Settings: map[string]interface{}{
			dconfig.SettingConnectionString: "DeviceId=abc123",
			dconfig.SettingSimPIN:           "1234",
		},

		Identity: &model.DeviceIdentity{DeviceID: "abc123"},
	}, {
		Name: "error, no connection string",

		Settings: map[string]interface{}{
			dconfig.SettingSimPIN: "1234",
		},

		Error: ErrMissingConnectionString,
	}, {
		Name: "error, no device id",

		Settings: map[string]interface{}{
			dconfig.SettingConnectionString: "HostName=h;SharedAccessKey=k",
			dconfig.SettingSimPIN:           "1234",
		},

		Error: model.ErrMissingDeviceID,
	}, {
		Name: "error, cellular enabled without PIN",

		Settings: map[string]interface{}{
			dconfig.SettingConnectionString: "DeviceId=abc123",
		},

		Error: ErrMissingPIN,
	}}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			withSettings(t, tc.Settings)

			identity, err := LoadIdentity(config.Config)
			if tc.Error != nil {
				assert.ErrorIs(t, err, tc.Error)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.Identity, identity)
		})
	}
}

func TestNewProvisioner(t *testing.T) {
	testCases := []struct {
		Name string

		PIN   string
		Error bool
	}{{
		Name: "ok",
		PIN:  "1234",
	}, {
		Name:  "error, missing PIN",
		Error: true,
	}, {
		Name:  "error, PIN is not numeric",
		PIN:   "12a4",
		Error: true,
	}}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			withSettings(t, map[string]interface{}{
				dconfig.SettingSimPIN: tc.PIN,
			})
			provisioner, err := NewProvisioner(config.Config, shell_mocks.NewRunner(t))
			if tc.Error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			steps := provisioner.Steps()
			assert.Len(t, steps, 6)
			assert.Contains(t, steps[4], "--uim-verify-pin=PIN1,1234")
		})
	}
}

func TestNewProber(t *testing.T) {
	withSettings(t, map[string]interface{}{
		dconfig.SettingProbeHost: "localhost",
	})
	prober := NewProber(config.Config)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.True(t, prober.Probe(ctx))
}

func TestSetupBlobStore(t *testing.T) {
	testCases := []struct {
		Name string

		Settings map[string]interface{}

		Error       error
		UploadError error
	}{{
		Name: "s3",
		Settings: map[string]interface{}{
			dconfig.SettingBlobBackend: BlobBackendS3,
			dconfig.SettingS3Endpoint:  "http://127.0.0.1:1",
		},
	}, {
		// an unreachable backend does not prevent the agent from starting
		Name: "gridfs unreachable",
		Settings: map[string]interface{}{
			dconfig.SettingBlobBackend: BlobBackendGridFS,
			dconfig.SettingMongo:       "mongodb://127.0.0.1:1",
		},
		UploadError: store.ErrBackendUnavailable,
	}, {
		Name: "unknown",
		Settings: map[string]interface{}{
			dconfig.SettingBlobBackend: "ftp",
		},
		Error: ErrUnknownBlobBackend,
	}}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			withSettings(t, tc.Settings)
			start := time.Now()
			blobs, err := SetupBlobStore(config.Config)
			if tc.Error != nil {
				assert.ErrorIs(t, err, tc.Error)
				assert.Nil(t, blobs)
				return
			}
			require.NoError(t, err)
			assert.Less(t, time.Since(start), time.Second)
			assert.IsType(t, &store.LazyBlobStore{}, blobs)

			if tc.UploadError != nil {
				ctx, cancel := context.WithTimeout(context.Background(),
					500*time.Millisecond)
				defer cancel()
				err = blobs.Upload(ctx, "kiosklogs", "startup",
					strings.NewReader("hello"), 5)
				assert.ErrorIs(t, err, tc.UploadError)
			}
			assert.NoError(t, blobs.Close())
		})
	}
}

func TestNewSession(t *testing.T) {
	withSettings(t, map[string]interface{}{
		dconfig.SettingNatsURI: "",
	})
	_, err := NewSession(config.Config, model.DeviceIdentity{DeviceID: "abc123"}, nil)
	assert.Error(t, err)

	sess, err := NewSession(config.Config, model.DeviceIdentity{
		DeviceID: "abc123",
		HostName: "hub.example.com",
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, model.SessionStateClosed, sess.State())
}
