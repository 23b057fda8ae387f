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


package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"

	"github.com/mendersoftware/kioskconnect/model"
)

var (
	acceptanceTesting bool
)

func init() {
	flag.BoolVar(&acceptanceTesting, "acceptance-testing", false,
		"Acceptance testing mode, starts the application main function "+
			"with cover mode enabled. Non-flag arguments are passed"+
			"to the main application, add '--' after test flags to"+
			"pass flags to main.",
	)
}

func TestMain(m *testing.M) {
	flag.Parse()
	if acceptanceTesting {
		// Override 'run' flags to only execute TestDoMain
		flag.Set("test.run", "TestDoMain")
	}
	os.Exit(m.Run())
}

func TestDoMain(t *testing.T) {
	if !acceptanceTesting {
		t.Skip()
	}
	doMain(append(os.Args[:1], flag.Args()...))
}

func TestConfigurationErrors(t *testing.T) {
	exitCode := 0
	cli.OsExiter = func(code int) { exitCode = code }
	cli.ErrWriter = io.Discard
	defer func() {
		cli.OsExiter = os.Exit
		cli.ErrWriter = os.Stderr
	}()

	testCases := []struct {
		Name string

		Config           string
		ConnectionString string
		PIN              string
		Args             []string

		ExitCode int
		Error    string
	}{{
		Name: "missing connection string",

		Config: "cellular_enabled: false\n",
		Args:   []string{"run"},

		ExitCode: 1,
		Error:    "DEVICE_CONNECTION_STRING is not set",
	}, {
		Name: "connection string without device id",

		Config:           "cellular_enabled: false\n",
		ConnectionString: "HostName=h;SharedAccessKey=k",
		Args:             []string{"run"},

		ExitCode: 1,
		Error:    "DeviceId",
	}, {
		Name: "missing PIN with cellular enabled",

		Config:           "cellular_enabled: true\n",
		ConnectionString: "HostName=h;DeviceId=abc123;SharedAccessKey=k",
		Args:             []string{"run"},

		ExitCode: 1,
		Error:    "PIN is not set",
	}, {
		Name: "invalid PIN",

		Config: "cellular_enabled: true\n",
		PIN:    "12a4",
		Args:   []string{"provision-cellular"},

		ExitCode: 1,
		Error:    "invalid cellular configuration",
	}, {
		Name: "probe",

		Config: "probe_host: localhost\n",
		Args:   []string{"probe"},
	}}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			exitCode = 0
			t.Setenv("DEVICE_CONNECTION_STRING", tc.ConnectionString)
			t.Setenv("PIN", tc.PIN)
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tc.Config), 0644))

			args := append([]string{"kioskconnect", "--config", configPath}, tc.Args...)
			err := newApp().Run(args)
			assert.Equal(t, tc.ExitCode, exitCode)
			if tc.Error != "" {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tc.Error)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	exitCode := 0
	cli.OsExiter = func(code int) { exitCode = code }
	cli.ErrWriter = io.Discard
	defer func() {
		cli.OsExiter = os.Exit
		cli.ErrWriter = os.Stderr
	}()

	err := newApp().Run([]string{"kioskconnect", "--config",
		filepath.Join(t.TempDir(), "missing.yaml"), "probe"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "error loading configuration")
	}
	assert.Equal(t, 1, exitCode)
}

func freeAddr(t *testing.T) string {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().String()
}

func TestRunWithUnreachableBackends(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	dir := t.TempDir()
	startupLog := filepath.Join(dir, "startup.log")
	require.NoError(t, os.WriteFile(startupLog, []byte("booted\n"), 0644))
	addr := freeAddr(t)
	conf := fmt.Sprintf(`listen: %s
cellular_enabled: false
probe_host: localhost
nats_uri: nats://127.0.0.1:1
blob_backend: gridfs
mongo_url: mongodb://127.0.0.1:1
log_upload_on_start: true
log_startup_path: %s
log_error_path: %s
`, addr, startupLog, filepath.Join(dir, "error.log"))
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(conf), 0644))
	t.Setenv("DEVICE_CONNECTION_STRING", "HostName=h;DeviceId=abc123;SharedAccessKey=k")

	done := make(chan error, 1)
	go func() {
		done <- newApp().Run([]string{"kioskconnect", "--config", configPath, "run"})
	}()

	// the status surface serves while the log upload is still dialing
	// the blob store
	assert.Eventually(t, func() bool {
		rsp, err := http.Get("http://" + addr + "/api/v1/kioskconnect/device")
		if err != nil {
			return false
		}
		defer rsp.Body.Close()
		var status map[string]interface{}
		if json.NewDecoder(rsp.Body).Decode(&status) != nil {
			return false
		}
		return status["device_id"] == "abc123" &&
			status["session_state"] == model.SessionStateFaulted.String()
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, unix.Kill(os.Getpid(), unix.SIGTERM))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		assert.FailNow(t, "agent did not shut down")
	}
}
