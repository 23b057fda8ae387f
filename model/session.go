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

import (
	"strings"
)

// SessionState is the state of the control plane session
type SessionState int32

// Control plane session states
const (
	SessionStateClosed SessionState = iota
	SessionStateOpening
	SessionStateOpen
	SessionStateSyncing
	SessionStateReady
	SessionStateFaulted
)

var sessionStateNames = map[SessionState]string{
	SessionStateClosed:  "closed",
	SessionStateOpening: "opening",
	SessionStateOpen:    "open",
	SessionStateSyncing: "syncing",
	SessionStateReady:   "ready",
	SessionStateFaulted: "faulted",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON documents
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Control plane subjects, relative to the configured prefix
const (
	subjectDevices = "devices"
	subjectTwin    = "twin"
	subjectDesired = "desired"
	subjectMethods = "methods"
)

// GetTwinSubject returns the subject answering twin snapshot requests
func GetTwinSubject(prefix, deviceID string) string {
	return strings.Join([]string{
		prefix, subjectDevices, deviceID, subjectTwin,
	}, ".")
}

// GetDesiredSubject returns the subject carrying desired-property deltas
func GetDesiredSubject(prefix, deviceID string) string {
	return strings.Join([]string{
		prefix, subjectDevices, deviceID, subjectTwin, subjectDesired,
	}, ".")
}

// GetMethodsSubject returns the subject carrying remote method invocations
func GetMethodsSubject(prefix, deviceID string) string {
	return strings.Join([]string{
		prefix, subjectDevices, deviceID, subjectMethods,
	}, ".")
}
