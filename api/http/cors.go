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


package http

import (
	"net/http"
	"sync/atomic"
)

// HdrKeyOrigin is the canonical Origin header key
const HdrKeyOrigin = "Origin"

type originFunc func(origin string) bool

// acceptedOrigin is shared by the CORS middleware and the websocket
// upgrader; it holds an originFunc.
var acceptedOrigin atomic.Value

func init() {
	SetAcceptedOrigins(nil)
}

func allowAllOrigins(string) bool { return true }

func newOriginFunc(origins []string) originFunc {
	switch len(origins) {
	case 0:
		return allowAllOrigins
	case 1:
		accepted := origins[0]
		return func(origin string) bool {
			return origin == accepted
		}
	default:
		// Compile a hashmap of valid origins for fast lookup
		originSet := make(map[string]struct{}, len(origins))
		for _, origin := range origins {
			originSet[origin] = struct{}{}
		}
		return func(origin string) bool {
			_, allowed := originSet[origin]
			return allowed
		}
	}
}

// SetAcceptedOrigins restricts the origins of browser requests and
// websocket upgrades; an empty list accepts every origin.
func SetAcceptedOrigins(origins []string) {
	acceptedOrigin.Store(newOriginFunc(origins))
}

func isAcceptedOrigin(origin string) bool {
	return acceptedOrigin.Load().(originFunc)(origin)
}

func checkOrigin(r *http.Request) bool {
	actual, ok := r.Header[HdrKeyOrigin]
	if !ok {
		// Origin header not present
		return true
	}
	return len(actual) > 0 && isAcceptedOrigin(actual[0])
}
