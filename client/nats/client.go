// Copyright 2021 Northern.tech AS
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

package nats

import (
	"context"
	"time"

	natsio "github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/mendersoftware/go-lib-micro/log"
)

const (
	// Set reconnect buffer size in bytes (1 MB)
	reconnectBufSize = 1 * 1024 * 1024
	// Set reconnect interval to 1 second
	reconnectWaitTime = 1 * time.Second
)

// ErrTimeout is returned when a request is not answered in time
var ErrTimeout = errors.New("nats: timeout waiting for reply")

// Client is the nats client
//
//go:generate ../../utils/mockgen.sh
type Client interface {
	Publish(string, []byte) error
	Request(ctx context.Context, subj string, data []byte) ([]byte, error)
	ChanSubscribe(string, chan *natsio.Msg) (*natsio.Subscription, error)
	IsConnected() bool
	Close()
}

// Options configure the connection of a device to the control plane
type Options struct {
	// Name identifies the connection on the server, the device ID
	Name string
	// Token authenticates the connection, if set
	Token string
	// Reconnect enables unlimited reconnection attempts
	Reconnect bool
	// ErrorHandler receives asynchronous transport errors
	ErrorHandler func(error)
	// ClosedHandler is called once the connection is permanently closed
	ClosedHandler func()
}

// NewClient returns a new nats client
func NewClient(url string, opts ...natsio.Option) (Client, error) {
	natsClient, err := natsio.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &client{
		nats: natsClient,
	}, nil
}

// NewClientWithDefaults returns a new nats client with the agent's
// connection options
func NewClientWithDefaults(url string, opts Options) (Client, error) {
	ctx := context.Background()
	l := log.FromContext(ctx)

	natsClient, err := NewClient(url,
		func(o *natsio.Options) error {
			o.Name = opts.Name
			o.Token = opts.Token
			o.AllowReconnect = opts.Reconnect
			o.ReconnectBufSize = reconnectBufSize
			o.ReconnectWait = reconnectWaitTime
			if opts.Reconnect {
				o.MaxReconnect = -1
			} else {
				o.MaxReconnect = 0
			}
			o.ClosedCB = func(_ *natsio.Conn) {
				l.Info("nats client closed the connection")
				if opts.ClosedHandler != nil {
					opts.ClosedHandler()
				}
			}
			o.DisconnectedErrCB = func(_ *natsio.Conn, e error) {
				if e != nil {
					l.Warnf("nats client disconnected, err: %v", e)
					if opts.ErrorHandler != nil {
						opts.ErrorHandler(e)
					}
				}
			}
			o.ReconnectedCB = func(_ *natsio.Conn) {
				l.Warn("nats client reconnected")
			}
			o.AsyncErrorCB = func(_ *natsio.Conn, _ *natsio.Subscription, e error) {
				l.Errorf("nats client error: %v", e)
				if opts.ErrorHandler != nil {
					opts.ErrorHandler(e)
				}
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return natsClient, nil
}

type client struct {
	nats *natsio.Conn
}

func (c *client) Publish(subj string, data []byte) error {
	return c.nats.Publish(subj, data)
}

func (c *client) Request(ctx context.Context, subj string, data []byte) ([]byte, error) {
	msg, err := c.nats.RequestWithContext(ctx, subj, data)
	if err == context.DeadlineExceeded || err == natsio.ErrTimeout {
		return nil, ErrTimeout
	} else if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func (c *client) ChanSubscribe(subj string,
	channel chan *natsio.Msg) (*natsio.Subscription, error) {
	return c.nats.ChanSubscribe(subj, channel)
}

func (c *client) IsConnected() bool {
	return c.nats.IsConnected()
}

func (c *client) Close() {
	c.nats.Close()
}
