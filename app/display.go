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
	"fmt"
	"strings"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"

	"github.com/mendersoftware/kioskconnect/model"
	"github.com/mendersoftware/kioskconnect/shell"
)

// DisplayConfig holds the X display settings
type DisplayConfig struct {
	Display       string
	Output        string
	ViewerCommand string
}

// Display drives the kiosk screen through the display utilities
type Display struct {
	runner shell.Runner
	config DisplayConfig
}

// NewDisplay returns a new Display
func NewDisplay(runner shell.Runner, config DisplayConfig) *Display {
	return &Display{
		runner: runner,
		config: config,
	}
}

func (d *Display) env() string {
	return "DISPLAY=" + shell.Quote(d.config.Display)
}

// RotateInstruction returns the instruction rotating the output
func (d *Display) RotateInstruction(orientation model.Orientation) string {
	return fmt.Sprintf("%s xrandr --output %s --rotate %s",
		d.env(), shell.Quote(d.config.Output), shell.Quote(string(orientation)))
}

// ViewerInstruction returns the instruction showing url full-screen
func (d *Display) ViewerInstruction(url string) string {
	return fmt.Sprintf("%s %s %s",
		d.env(), strings.TrimSpace(d.config.ViewerCommand), shell.Quote(url))
}

// ApplyOrientation rotates the screen
func (d *Display) ApplyOrientation(ctx context.Context, orientation model.Orientation) error {
	if err := orientation.Validate(); err != nil {
		return errors.Wrapf(err, "invalid orientation %q", orientation)
	}
	_, err := d.runner.Run(ctx, d.RotateInstruction(orientation))
	if err != nil {
		return errors.Wrap(err, "failed to rotate the display")
	}
	log.FromContext(ctx).Infof("display rotated to %s", orientation)
	return nil
}

// LaunchViewer starts the full-screen browser in the background
func (d *Display) LaunchViewer(ctx context.Context, url string) error {
	if url == "" {
		return errors.New("no page to show")
	}
	return errors.Wrap(d.runner.Start(ctx, d.ViewerInstruction(url)),
		"failed to launch the viewer")
}
