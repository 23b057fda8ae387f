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

package network

import (
	"context"
	"net"
	"time"

	"github.com/mendersoftware/go-lib-micro/log"
)

const (
	// DefaultProbeHost is resolved to decide whether the device is online
	DefaultProbeHost = "google.com"
	// DefaultProbeTimeout bounds a single probe
	DefaultProbeTimeout = 5 * time.Second
)

// Resolver resolves host names
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Prober reports whether the device can reach the internet
type Prober struct {
	resolver Resolver
	host     string
	timeout  time.Duration
}

// NewProber returns a Prober resolving host with the system resolver
func NewProber(host string, timeout time.Duration) *Prober {
	return NewProberWithResolver(net.DefaultResolver, host, timeout)
}

// NewProberWithResolver returns a Prober using the given resolver
func NewProberWithResolver(resolver Resolver, host string, timeout time.Duration) *Prober {
	if host == "" {
		host = DefaultProbeHost
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		resolver: resolver,
		host:     host,
		timeout:  timeout,
	}
}

// Probe returns true when the probe host resolves. Any failure, including
// a timeout, is reported as not connected.
func (p *Prober) Probe(ctx context.Context) bool {
	l := log.FromContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	addrs, err := p.resolver.LookupHost(ctx, p.host)
	if err != nil {
		l.Warnf("connectivity probe of %s failed: %s", p.host, err.Error())
		return false
	}
	if len(addrs) == 0 {
		l.Warnf("connectivity probe of %s returned no addresses", p.host)
		return false
	}
	return true
}
