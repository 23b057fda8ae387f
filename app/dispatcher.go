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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mendersoftware/kioskconnect/metrics"
	"github.com/mendersoftware/kioskconnect/model"
	"github.com/mendersoftware/kioskconnect/session"
	"github.com/mendersoftware/kioskconnect/shell"
)

// Remote method names
const (
	MethodHealthCheck    = "health-check"
	MethodUploadLogs     = "upload-logs"
	MethodRunCommand     = "run-command"
	MethodRepoUpdate     = "repo-update"
	MethodQRAcknowledged = "qr-acknowledged"
)

// MessageReceived acknowledges qr-acknowledged notifications
const MessageReceived = "message received"

// Uploader uploads the agent's logs
type Uploader interface {
	Upload(ctx context.Context) (model.UploadReport, error)
}

// MethodRegistrar accepts remote method handlers
type MethodRegistrar interface {
	RegisterMethod(name string, handler session.MethodHandler)
}

// DispatcherConfig holds the remote method settings
type DispatcherConfig struct {
	TrustedOperator bool
	RepoPath        string
	RepoRemote      string
	RepoBranch      string
}

// Dispatcher maps remote method names to operations; every invocation
// yields exactly one result.
type Dispatcher struct {
	runner   shell.Runner
	uploader Uploader
	config   DispatcherConfig
	methods  map[string]session.MethodHandler
}

// NewDispatcher returns a new Dispatcher
func NewDispatcher(
	runner shell.Runner,
	uploader Uploader,
	config DispatcherConfig,
) *Dispatcher {
	d := &Dispatcher{
		runner:   runner,
		uploader: uploader,
		config:   config,
	}
	d.methods = map[string]session.MethodHandler{
		MethodHealthCheck:    d.healthCheck,
		MethodUploadLogs:     d.uploadLogs,
		MethodRepoUpdate:     d.repoUpdate,
		MethodQRAcknowledged: d.qrAcknowledged,
	}
	if config.TrustedOperator {
		d.methods[MethodRunCommand] = d.runCommand
	}
	return d
}

// Methods returns the names of the served methods
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register registers every served method with the session
func (d *Dispatcher) Register(registrar MethodRegistrar) {
	for _, name := range d.Methods() {
		name := name
		registrar.RegisterMethod(name,
			func(ctx context.Context, payload []byte) model.CommandResult {
				return d.Invoke(ctx, name, payload)
			})
	}
}

// Invoke runs the named method; panics are converted to a failure result
func (d *Dispatcher) Invoke(
	ctx context.Context,
	method string,
	payload []byte,
) (result model.CommandResult) {
	l := log.FromContext(ctx).WithFields(logrus.Fields{
		"method": method,
	})
	handler, ok := d.methods[method]
	if !ok {
		l.Warn("unknown method")
		metrics.Commands.WithLabelValues("unknown", metrics.ResultFailure).Inc()
		return model.NewFailureResult(errors.Wrap(session.ErrUnknownMethod, method))
	}

	defer func() {
		if r := recover(); r != nil {
			l.Errorf("method panicked: %v", r)
			result = model.NewFailureResult(fmt.Errorf("%s: %v", method, r))
		}
		result.Message = capMessage(result.Message)
		outcome := metrics.ResultSuccess
		if !result.Success {
			outcome = metrics.ResultFailure
		}
		metrics.Commands.WithLabelValues(method, outcome).Inc()
		l.Infof("method completed, success: %t", result.Success)
	}()
	l.Info("method invoked")
	return handler(ctx, payload)
}

func (d *Dispatcher) healthCheck(ctx context.Context, _ []byte) model.CommandResult {
	return model.NewSuccessResult("")
}

func (d *Dispatcher) uploadLogs(ctx context.Context, _ []byte) model.CommandResult {
	report, err := d.uploader.Upload(ctx)
	if err != nil {
		return model.NewFailureResult(err)
	}
	return model.NewSuccessResult(summarize(report))
}

func summarize(report model.UploadReport) string {
	var parts []string
	if len(report.Uploaded) > 0 {
		parts = append(parts, "uploaded: "+strings.Join(report.Uploaded, ", "))
	}
	if len(report.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(report.Missing, ", "))
	}
	return strings.Join(parts, "; ")
}

// ParseInstruction extracts the instruction from a run-command payload;
// the payload is either a JSON string or the raw instruction text.
func ParseInstruction(payload []byte) string {
	var instruction string
	if err := json.Unmarshal(payload, &instruction); err == nil {
		return strings.TrimSpace(instruction)
	}
	return strings.TrimSpace(string(payload))
}

func (d *Dispatcher) runCommand(ctx context.Context, payload []byte) model.CommandResult {
	output, err := d.runner.Run(ctx, ParseInstruction(payload))
	if err != nil {
		return model.NewFailureResult(err)
	}
	return model.NewSuccessResult(output)
}

// RepoUpdateInstruction returns the instruction resetting the repository
// to the latest commit of the configured branch
func (d *Dispatcher) RepoUpdateInstruction() string {
	path := shell.Quote(d.config.RepoPath)
	remote := shell.Quote(d.config.RepoRemote)
	return fmt.Sprintf("git -C %s fetch -q %s && git -C %s reset -q --hard %s/%s",
		path, remote, path, remote, shell.Quote(d.config.RepoBranch))
}

func (d *Dispatcher) repoUpdate(ctx context.Context, _ []byte) model.CommandResult {
	output, err := d.runner.Run(ctx, d.RepoUpdateInstruction())
	if err != nil {
		return model.NewFailureResult(err)
	}
	return model.NewSuccessResult(output)
}

func (d *Dispatcher) qrAcknowledged(ctx context.Context, payload []byte) model.CommandResult {
	log.FromContext(ctx).Infof("QR code acknowledged: %s", string(payload))
	return model.NewSuccessResult(MessageReceived)
}
