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
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pkg/errors"
)

// Connection string segment keys
const (
	SegmentHostName        = "HostName"
	SegmentDeviceID        = "DeviceId"
	SegmentSharedAccessKey = "SharedAccessKey"
)

// Model errors
var (
	ErrMissingDeviceID = errors.New(
		"connection string does not contain a DeviceId segment",
	)
	ErrEmptyConnectionString = errors.New("connection string is empty")
	ErrInvalidDeviceID       = errors.New("invalid DeviceId")
)

// the device id is a single subject token on the control plane
var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// DeviceIdentity is derived once from the device connection string and
// stays the same for the lifetime of the process.
type DeviceIdentity struct {
	DeviceID        string `json:"device_id"`
	HostName        string `json:"-"`
	SharedAccessKey string `json:"-"`
}

// ParseConnectionString parses a `key=value;key=value` device credential
// string. Only the DeviceId segment is mandatory.
func ParseConnectionString(connectionString string) (*DeviceIdentity, error) {
	if strings.TrimSpace(connectionString) == "" {
		return nil, ErrEmptyConnectionString
	}
	identity := &DeviceIdentity{}
	for _, segment := range strings.Split(connectionString, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(segment), "=")
		if !found {
			continue
		}
		switch key {
		case SegmentHostName:
			identity.HostName = value
		case SegmentDeviceID:
			identity.DeviceID = value
		case SegmentSharedAccessKey:
			identity.SharedAccessKey = value
		}
	}
	if identity.DeviceID == "" {
		return nil, ErrMissingDeviceID
	}
	err := validation.Validate(identity.DeviceID,
		validation.Match(deviceIDPattern).
			Error("must contain only letters, digits, '-' and '_'"))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDeviceID, "%q: %s", identity.DeviceID, err)
	}
	return identity, nil
}

// Orientation is the display rotation
type Orientation string

// Values for the display orientation
const (
	OrientationNormal   Orientation = "normal"
	OrientationLeft     Orientation = "left"
	OrientationRight    Orientation = "right"
	OrientationInverted Orientation = "inverted"
)

var orientations = []interface{}{
	string(OrientationNormal),
	string(OrientationLeft),
	string(OrientationRight),
	string(OrientationInverted),
}

// Validate checks the orientation is one of the supported rotations
func (o Orientation) Validate() error {
	return validation.Validate(string(o), validation.In(orientations...))
}

// Desired-property keys carried by the twin snapshot and its deltas
const (
	DesiredLocation         = "location"
	DesiredLocationLegacy   = "mzr"
	DesiredVerificationCode = "verificationCode"
	DesiredOrientation      = "orientation"
	DesiredStorageName      = "storageName"
	DesiredWebURL           = "webUrl"
)

// Desired is a (partial) desired-properties document received from the
// control plane.
type Desired map[string]interface{}

// DeviceState is the configuration record the control plane manages for
// the kiosk.
type DeviceState struct {
	Location         string      `json:"location"`
	VerificationCode string      `json:"verification_code"`
	Orientation      Orientation `json:"orientation"`
	StorageName      string      `json:"storage_name"`
	WebURL           string      `json:"web_url"`
}

// NewDeviceState returns an empty state with the default orientation
func NewDeviceState() DeviceState {
	return DeviceState{Orientation: OrientationNormal}
}

// Provisioned tells whether the device received its verification code
func (s DeviceState) Provisioned() bool {
	return s.VerificationCode != ""
}

// Merge returns a copy of the state with the fields present in the delta
// applied. Absent and null fields keep their current value. Fields with an
// invalid value are skipped and reported in the returned
// validation.Errors; the remaining fields are still applied.
func (s DeviceState) Merge(delta Desired) (DeviceState, error) {
	errs := validation.Errors{}
	next := s

	setString := func(key string, dst *string, rules ...validation.Rule) {
		raw, ok := delta[key]
		if !ok || raw == nil {
			return
		}
		value, ok := raw.(string)
		if !ok {
			errs[key] = errors.Errorf("expected a string, got %T", raw)
			return
		}
		if err := validation.Validate(value, rules...); err != nil {
			errs[key] = err
			return
		}
		*dst = value
	}

	setString(DesiredLocationLegacy, &next.Location)
	setString(DesiredLocation, &next.Location)
	setString(DesiredVerificationCode, &next.VerificationCode)
	setString(DesiredStorageName, &next.StorageName)
	setString(DesiredWebURL, &next.WebURL, is.URL)

	var orientation string
	setString(DesiredOrientation, &orientation, validation.In(orientations...))
	if orientation != "" {
		next.Orientation = Orientation(orientation)
	}

	if len(errs) > 0 {
		return next, errs
	}
	return next, nil
}
