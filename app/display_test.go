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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mendersoftware/kioskconnect/model"
	shell_mocks "github.com/mendersoftware/kioskconnect/shell/mocks"
)

var testDisplayConfig = DisplayConfig{
	Display:       ":0",
	Output:        "HDMI-1",
	ViewerCommand: "chromium-browser --kiosk ",
}

func TestApplyOrientation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		Name string

		Orientation model.Orientation
		RunErr      error

		Instruction string
		Error       string
	}{{
		Name:        "ok",
		Orientation: model.OrientationLeft,
		Instruction: "DISPLAY=':0' xrandr --output 'HDMI-1' --rotate 'left'",
	}, {
		Name:        "error, xrandr failed",
		Orientation: model.OrientationInverted,
		RunErr:      errors.New("can't open display"),
		Instruction: "DISPLAY=':0' xrandr --output 'HDMI-1' --rotate 'inverted'",
		Error:       "failed to rotate the display: can't open display",
	}, {
		Name:        "error, invalid orientation",
		Orientation: "sideways",
		Error:       `invalid orientation "sideways"`,
	}}
	for i := range testCases {
		tc := testCases[i]
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			runner := shell_mocks.NewRunner(t)
			if tc.Instruction != "" {
				runner.On("Run", mock.Anything, tc.Instruction).
					Return("", tc.RunErr)
			}
			display := NewDisplay(runner, testDisplayConfig)
			err := display.ApplyOrientation(context.Background(), tc.Orientation)
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

func TestLaunchViewer(t *testing.T) {
	t.Parallel()
	runner := shell_mocks.NewRunner(t)
	runner.On("Start", mock.Anything,
		"DISPLAY=':0' chromium-browser --kiosk 'http://localhost:8080/'").
		Return(nil)
	display := NewDisplay(runner, testDisplayConfig)

	assert.NoError(t, display.LaunchViewer(context.Background(), "http://localhost:8080/"))
	assert.Error(t, display.LaunchViewer(context.Background(), ""))
}
