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


package session

import (
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/mendersoftware/go-lib-micro/ws"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mendersoftware/kioskconnect/model"
)

const (
	// ProtoTypeTwin is the protocol of the twin snapshot and delta messages
	ProtoTypeTwin ws.ProtoType = 0x0100
	// ProtoTypeMethod is the protocol of remote method invocations
	ProtoTypeMethod = ws.ProtoTypeMenderClient
)

// Twin message types
const (
	MessageTypeGetTwin = "get"
	MessageTypeDesired = "desired"
)

// PropertyStatus carries the HTTP-like status of a method reply
const PropertyStatus = "status"

// Method reply statuses
const (
	StatusOK            = 200
	StatusBadRequest    = 400
	StatusNotFound      = 404
	StatusInternalError = 500
)

const (
	defaultNatsPort      = "4222"
	defaultNatsURIScheme = "nats"
)

// ResolveURI returns the configured broker URI or derives it from the
// HostName segment of the device credentials.
func ResolveURI(uri string, identity model.DeviceIdentity) (string, error) {
	if uri != "" {
		return uri, nil
	}
	if identity.HostName == "" {
		return "", errors.New("no broker uri configured and the " +
			"connection string has no HostName segment")
	}
	host := identity.HostName
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, defaultNatsPort)
	}
	return fmt.Sprintf("%s://%s", defaultNatsURIScheme, host), nil
}

func newTwinRequest() ([]byte, error) {
	return msgpack.Marshal(ws.ProtoMsg{
		Header: ws.ProtoHdr{
			Proto:     ProtoTypeTwin,
			MsgType:   MessageTypeGetTwin,
			SessionID: uuid.NewString(),
		},
	})
}

// EncodeDesired wraps a desired-properties document in a twin message
func EncodeDesired(msgType string, desired model.Desired) ([]byte, error) {
	body, err := msgpack.Marshal(desired)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(ws.ProtoMsg{
		Header: ws.ProtoHdr{
			Proto:     ProtoTypeTwin,
			MsgType:   msgType,
			SessionID: uuid.NewString(),
		},
		Body: body,
	})
}

// DecodeDesired unwraps the desired-properties document of a twin message
func DecodeDesired(data []byte) (model.Desired, error) {
	msg := &ws.ProtoMsg{}
	if err := msgpack.Unmarshal(data, msg); err != nil {
		return nil, errors.Wrap(err, "malformed twin message")
	}
	if msg.Header.Proto != ProtoTypeTwin {
		return nil, errors.Errorf("unexpected protocol %d", msg.Header.Proto)
	}
	if msg.Header.MsgType == ws.MessageTypeError {
		erro := ws.Error{}
		_ = msgpack.Unmarshal(msg.Body, &erro)
		return nil, errors.Errorf("control plane error: %s", erro.Error)
	}
	desired := model.Desired{}
	if len(msg.Body) == 0 {
		return desired, nil
	}
	if err := msgpack.Unmarshal(msg.Body, &desired); err != nil {
		return nil, errors.Wrap(err, "malformed desired properties")
	}
	return desired, nil
}

// EncodeInvocation builds a method invocation message
func EncodeInvocation(method string, payload []byte) ([]byte, error) {
	return msgpack.Marshal(ws.ProtoMsg{
		Header: ws.ProtoHdr{
			Proto:     ProtoTypeMethod,
			MsgType:   method,
			SessionID: uuid.NewString(),
		},
		Body: payload,
	})
}

func encodeReply(
	req *ws.ProtoMsg,
	status int,
	result model.CommandResult,
) ([]byte, error) {
	body, err := msgpack.Marshal(result)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(ws.ProtoMsg{
		Header: ws.ProtoHdr{
			Proto:     ProtoTypeMethod,
			MsgType:   req.Header.MsgType,
			SessionID: req.Header.SessionID,
			Properties: map[string]interface{}{
				PropertyStatus: status,
			},
		},
		Body: body,
	})
}

// DecodeReply returns the status and the result carried by a method reply
func DecodeReply(data []byte) (int, model.CommandResult, error) {
	var result model.CommandResult
	msg := &ws.ProtoMsg{}
	if err := msgpack.Unmarshal(data, msg); err != nil {
		return 0, result, errors.Wrap(err, "malformed reply")
	}
	if err := msgpack.Unmarshal(msg.Body, &result); err != nil {
		return 0, result, errors.Wrap(err, "malformed command result")
	}
	return statusCode(msg.Header.Properties[PropertyStatus]), result, nil
}

// msgpack decodes integers to the smallest fitting type
func statusCode(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	}
	return 0
}
