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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		Name string

		Instruction string

		Output string
		Error  string
	}{{
		Name: "ok",

		Instruction: "echo hello",
		Output:      "hello\n",
	}, {
		Name: "ok, pipeline",

		Instruction: "printf 'a\\nb\\n' | wc -l | tr -d ' '",
		Output:      "2\n",
	}, {
		Name: "error, stderr output",

		Instruction: "echo out; echo oops >&2",
		Output:      "out\n",
		Error:       "oops",
	}, {
		Name: "error, exit status",

		Instruction: "exit 3",
		Error:       "exit status 3",
	}, {
		Name: "error, empty instruction",

		Instruction: " ",
		Error:       ErrEmptyInstruction.Error(),
	}}
	for i := range testCases {
		tc := testCases[i]
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			out, err := NewRunner().Run(context.Background(), tc.Instruction)
			assert.Equal(t, tc.Output, out)
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

func TestRunCommandError(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), "echo bad >&2; exit 1")
	var cmdErr *CommandError
	if assert.True(t, errors.As(err, &cmdErr)) {
		assert.Equal(t, "echo bad >&2; exit 1", cmdErr.Instruction)
		assert.Equal(t, "bad\n", cmdErr.Stderr)
		assert.Error(t, cmdErr.Unwrap())
		assert.Equal(t, "bad", cmdErr.Error())
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		Name string

		Instruction string
	}{{
		Name:        "single process",
		Instruction: "sleep 10",
	}, {
		Name:        "child holding the output pipes",
		Instruction: "sleep 10; echo done",
	}, {
		Name:        "background grandchild",
		Instruction: "(sleep 10 >&2) & wait",
	}}
	for i := range testCases {
		tc := testCases[i]
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(),
				100*time.Millisecond)
			defer cancel()
			start := time.Now()
			_, err := NewRunner().Run(ctx, tc.Instruction)
			assert.Error(t, err)
			assert.Less(t, time.Since(start), 3*time.Second)
		})
	}
}

func TestStart(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "started")
	err := NewRunner().Start(context.Background(), "touch "+Quote(marker))
	assert.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, NewRunner().Start(context.Background(), ""), ErrEmptyInstruction)
}

func TestQuote(t *testing.T) {
	out, err := NewRunner().Run(context.Background(),
		"printf %s "+Quote("it's a $HOME `test`"))
	assert.NoError(t, err)
	assert.Equal(t, "it's a $HOME `test`", out)
}
