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
	"context"
	"time"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"

	"github.com/mendersoftware/kioskconnect/utils"
)

// DefaultRetryDelay is the pause between the two attempts of a step
const DefaultRetryDelay = time.Second

// RetryingExecutor runs instruction sequences, giving every instruction
// one extra attempt after a fixed delay.
type RetryingExecutor struct {
	runner Runner
	delay  time.Duration
}

// NewRetryingExecutor returns a RetryingExecutor on top of runner
func NewRetryingExecutor(runner Runner, delay time.Duration) *RetryingExecutor {
	return &RetryingExecutor{
		runner: runner,
		delay:  delay,
	}
}

// Run executes a single instruction with one retry
func (e *RetryingExecutor) Run(ctx context.Context, instruction string) (string, error) {
	l := log.FromContext(ctx)
	out, err := e.runner.Run(ctx, instruction)
	if err == nil {
		return out, nil
	}
	l.Warnf("%q failed, retrying in %s: %s", instruction, e.delay, err.Error())
	if errSleep := utils.Sleep(ctx, e.delay); errSleep != nil {
		return out, errSleep
	}
	return e.runner.Run(ctx, instruction)
}

// RunSequence executes the instructions in order. The sequence stops at the
// first instruction failing both of its attempts.
func (e *RetryingExecutor) RunSequence(ctx context.Context, instructions []string) error {
	for i, instruction := range instructions {
		if _, err := e.Run(ctx, instruction); err != nil {
			return errors.Wrapf(err, "step %d/%d (%s)",
				i+1, len(instructions), instruction)
		}
	}
	return nil
}
