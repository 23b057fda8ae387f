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


package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_mocks "github.com/mendersoftware/kioskconnect/app/mocks"
	"github.com/mendersoftware/kioskconnect/model"
)

var testStatus = model.Status{
	DeviceID:     "abc123",
	Connected:    true,
	SessionState: model.SessionStateReady,
	Device: model.DeviceState{
		Location:         "lobby",
		VerificationCode: "QR-1",
		Orientation:      model.OrientationLeft,
	},
}

func TestVerificationCode(t *testing.T) {
	testCases := []struct {
		Name string

		Code string
		Body string
	}{{
		Name: "provisioned",
		Code: "QR-1",
		Body: `"QR-1"`,
	}, {
		Name: "not yet provisioned",
		Body: `""`,
	}}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			kioskApp := app_mocks.NewApp(t)
			kioskApp.On("GetVerificationCode", mock.Anything).Return(tc.Code)
			router, _ := NewRouter(kioskApp)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", APIURLStatus, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.Body, w.Body.String())
		})
	}
}

func TestDeviceStatus(t *testing.T) {
	kioskApp := app_mocks.NewApp(t)
	kioskApp.On("GetStatus", mock.Anything).Return(testStatus)
	router, _ := NewRouter(kioskApp)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", APIURLDevice, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"device_id": "abc123",
		"connected": true,
		"session_state": "ready",
		"device": {
			"location": "lobby",
			"verification_code": "QR-1",
			"orientation": "left",
			"storage_name": "",
			"web_url": ""
		}
	}`, w.Body.String())
}

func TestDeviceWatch(t *testing.T) {
	statuses := make(chan model.Status, 1)
	kioskApp := app_mocks.NewApp(t)
	kioskApp.On("WatchStatus", mock.Anything).
		Return((<-chan model.Status)(statuses))
	router, _ := NewRouter(kioskApp)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + APIURLDeviceWatch
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, location := range []string{"lobby", "hall"} {
		status := testStatus
		status.Device.Location = location
		statuses <- status

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var pushed map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &pushed))
		assert.Equal(t, "abc123", pushed["device_id"])
		assert.Equal(t, location,
			pushed["device"].(map[string]interface{})["location"])
	}

	// closing the feed ends the stream
	close(statuses)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestDeviceWatchBadRequest(t *testing.T) {
	router, _ := NewRouter(app_mocks.NewApp(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", APIURLDeviceWatch, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
