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

package shell

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	// DefaultShell interprets the instructions
	DefaultShell = "/bin/sh"

	// waitDelay bounds the wait for the output pipes once the process
	// group was killed
	waitDelay = time.Second
)

// ErrEmptyInstruction is returned when asked to run nothing
var ErrEmptyInstruction = errors.New("shell: empty instruction")

// CommandError is returned by Run when the instruction exited with a
// non-zero status or wrote to its error stream.
type CommandError struct {
	Instruction string
	Stderr      string
	Err         error
}

func (e *CommandError) Error() string {
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		return stderr
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "command failed: " + e.Instruction
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner executes shell instructions
//
//go:generate ../utils/mockgen.sh
type Runner interface {
	// Run executes the instruction, waits for it and returns its stdout.
	Run(ctx context.Context, instruction string) (string, error)
	// Start launches the instruction without waiting for it to exit.
	Start(ctx context.Context, instruction string) error
}

type runner struct {
	shell string
}

// NewRunner returns a Runner executing instructions with /bin/sh
func NewRunner() Runner {
	return &runner{shell: DefaultShell}
}

func (r *runner) command(ctx context.Context, instruction string) (*exec.Cmd, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, ErrEmptyInstruction
	}
	cmd := exec.CommandContext(ctx, r.shell, "-c", instruction)
	// cancellation kills the whole process group, so the children of
	// the shell do not keep the output pipes open
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	return cmd, nil
}

func (r *runner) Run(ctx context.Context, instruction string) (string, error) {
	l := log.FromContext(ctx)
	cmd, err := r.command(ctx, instruction)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.WithFields(logrus.Fields{
		"cmd": instruction,
	}).Debug("Executing")

	err = cmd.Run()
	if err != nil || stderr.Len() > 0 {
		l.WithFields(logrus.Fields{
			"cmd":    instruction,
			"output": stderr.String(),
		}).WithError(err).Debug("Command failed")
		return stdout.String(), &CommandError{
			Instruction: instruction,
			Stderr:      stderr.String(),
			Err:         err,
		}
	}
	l.WithFields(logrus.Fields{
		"cmd":    instruction,
		"output": stdout.String(),
	}).Debug("Command completed successfully")
	return stdout.String(), nil
}

func (r *runner) Start(ctx context.Context, instruction string) error {
	l := log.FromContext(ctx)
	cmd, err := r.command(ctx, instruction)
	if err != nil {
		return err
	}
	if err = cmd.Start(); err != nil {
		return &CommandError{Instruction: instruction, Err: err}
	}
	go func() {
		err := cmd.Wait()
		fields := logrus.Fields{"cmd": instruction}
		if err != nil && ctx.Err() == nil {
			l.WithFields(fields).WithError(err).Warn("Process exited")
		} else {
			l.WithFields(fields).Info("Process exited")
		}
	}()
	return nil
}

// Quote returns s quoted for use as a single /bin/sh word
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
