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
	"errors"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

var natsPort int32 = 42069

func NewNATSTestServer(t *testing.T, opts *server.Options) (URI string, srv *server.Server) {
	port := atomic.AddInt32(&natsPort, 1)
	if opts == nil {
		opts = &server.Options{}
	}
	opts.Port = int(port)
	srv, err := server.NewServer(opts)
	if err != nil {
		panic(err)
	}
	go srv.Start()
	t.Cleanup(srv.Shutdown)

	// Spinlock until go routine is listening
	for i := 0; srv.Addr() == nil && i < 1000; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Addr() == nil {
		panic("failed to setup NATS test server")
	}
	uri, err := url.Parse("nats://" + srv.Addr().String())
	if err != nil {
		panic(err)
	}

	return uri.String(), srv
}

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		Name string

		URI      string
		SubTopic string

		ClientError error
		SubError    error
	}{{
		Name: "ok",

		SubTopic: "foo.bar",
	}, {
		Name: "error invalid URI",

		URI:         "bats://localhost",
		ClientError: errors.New(""),
	}, {
		Name: "error bad topic",

		SubTopic: ".foo.bar",
		SubError: nats.ErrBadSubject,
	}}
	for i := range testCases {
		tc := testCases[i]
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			uri, _ := NewNATSTestServer(t, nil)
			if tc.URI != "" {
				uri = tc.URI
			}
			conn, err := NewClientWithDefaults(uri, Options{Name: "test"})
			if tc.ClientError != nil {
				if assert.Error(t, err) {
					assert.Regexp(t, tc.ClientError.Error(), err.Error())
				}
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			defer conn.Close()
			assert.True(t, conn.IsConnected())

			ch := make(chan *nats.Msg, 1)
			s, err := conn.ChanSubscribe(tc.SubTopic, ch)
			if err == nil {
				defer s.Unsubscribe()
			}
			if tc.SubError != nil {
				if assert.Error(t, err) {
					assert.Regexp(t, tc.SubError.Error(), err.Error())
				}
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			err = conn.Publish(tc.SubTopic, []byte("hello"))
			assert.NoError(t, err)
			select {
			case msg := <-ch:
				assert.Equal(t, []byte("hello"), msg.Data)
			case <-time.After(5 * time.Second):
				assert.FailNow(t, "timeout waiting for message")
			}
		})
	}
}

func TestRequest(t *testing.T) {
	t.Parallel()
	uri, _ := NewNATSTestServer(t, nil)
	conn, err := NewClientWithDefaults(uri, Options{Name: "test"})
	if !assert.NoError(t, err) {
		return
	}
	defer conn.Close()

	responder, err := nats.Connect(uri)
	if !assert.NoError(t, err) {
		return
	}
	defer responder.Close()
	sub, err := responder.Subscribe("echo", func(msg *nats.Msg) {
		msg.Respond(append([]byte("re: "), msg.Data...))
	})
	if !assert.NoError(t, err) {
		return
	}
	defer sub.Unsubscribe()
	assert.NoError(t, responder.Flush())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	data, err := conn.Request(ctx, "echo", []byte("ping"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("re: ping"), data)

	ctx, cancel = context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = conn.Request(ctx, "nobody.listens", nil)
	assert.Error(t, err)
}

func TestTokenAuthentication(t *testing.T) {
	t.Parallel()
	uri, _ := NewNATSTestServer(t, &server.Options{Authorization: "s3cr3t"})

	_, err := NewClientWithDefaults(uri, Options{Name: "test", Token: "wrong"})
	assert.Error(t, err)

	conn, err := NewClientWithDefaults(uri, Options{Name: "test", Token: "s3cr3t"})
	if assert.NoError(t, err) {
		conn.Close()
	}
}

func TestClosedHandler(t *testing.T) {
	t.Parallel()
	uri, srv := NewNATSTestServer(t, nil)

	closed := make(chan struct{})
	errs := make(chan error, 10)
	conn, err := NewClientWithDefaults(uri, Options{
		Name: "test",
		ClosedHandler: func() {
			close(closed)
		},
		ErrorHandler: func(err error) {
			errs <- err
		},
	})
	if !assert.NoError(t, err) {
		return
	}
	defer conn.Close()

	srv.Shutdown()
	select {
	case <-closed:
	case <-time.After(10 * time.Second):
		assert.FailNow(t, "connection was not closed")
	}
	assert.False(t, conn.IsConnected())
}
