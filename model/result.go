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

package model

// CommandResult is the reply to a remote method invocation
type CommandResult struct {
	Success bool   `json:"success" msgpack:"success"`
	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
}

// NewSuccessResult returns a successful result carrying the given output
func NewSuccessResult(message string) CommandResult {
	return CommandResult{Success: true, Message: message}
}

// NewFailureResult returns a failed result carrying the error text
func NewFailureResult(err error) CommandResult {
	if err == nil {
		return CommandResult{Success: false}
	}
	return CommandResult{Success: false, Message: err.Error()}
}

// UploadReport summarizes one log upload batch
type UploadReport struct {
	Uploaded  []string `json:"uploaded,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Failed    []string `json:"failed,omitempty"`
	Truncated []string `json:"truncated,omitempty"`
}

// Status is what the local status surface renders
type Status struct {
	DeviceID     string       `json:"device_id"`
	Connected    bool         `json:"connected"`
	SessionState SessionState `json:"session_state"`
	Device       DeviceState  `json:"device"`
}
