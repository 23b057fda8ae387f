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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	app_mocks "github.com/mendersoftware/kioskconnect/app/mocks"
)

func TestAlive(t *testing.T) {
	kioskApp := &app_mocks.App{}

	router, _ := NewRouter(kioskApp)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", APIURLAlive, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	kioskApp.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	testCases := []struct {
		Name           string
		HealthCheckErr error

		HTTPStatus int
		HTTPBody   map[string]interface{}
	}{
		{
			Name:       "ok",
			HTTPStatus: http.StatusNoContent,
		},
		{
			Name:           "ko",
			HealthCheckErr: errors.New("syncing: control plane session is not ready"),
			HTTPStatus:     http.StatusServiceUnavailable,
			HTTPBody: map[string]interface{}{
				"error": "syncing: control plane session is not ready",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			kioskApp := &app_mocks.App{}
			kioskApp.On("HealthCheck",
				mock.MatchedBy(func(_ context.Context) bool {
					return true
				})).Return(tc.HealthCheckErr)

			router, _ := NewRouter(kioskApp)
			req, err := http.NewRequest("GET", APIURLHealth, nil)
			if !assert.NoError(t, err) {
				t.FailNow()
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.HTTPStatus, w.Code)
			if tc.HTTPStatus == http.StatusNoContent {
				assert.Nil(t, w.Body.Bytes())
			} else {
				var body map[string]interface{}
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tc.HTTPBody, body)
			}

			kioskApp.AssertExpectations(t)
		})
	}
}

func TestMetrics(t *testing.T) {
	router, _ := NewRouter(&app_mocks.App{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", APIURLMetrics, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "kioskconnect_session_state")
}
