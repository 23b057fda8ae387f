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

// Package metrics holds the prometheus collectors exported by the agent
// on the status server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kioskconnect"

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultMissing = "missing"
)

var (
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected",
		Help:      "1 when the last connectivity probe succeeded.",
	})

	ProvisionAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cellular",
		Name:      "provision_attempts_total",
		Help:      "Cellular bring-up sequences started.",
	})

	ProvisionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cellular",
		Name:      "provision_failures_total",
		Help:      "Cellular bring-up sequences that failed.",
	})

	SessionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "state",
		Help:      "Control plane session state (0 closed .. 4 ready, 5 faulted).",
	})

	DeltasApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "deltas_applied_total",
		Help:      "Desired-property documents applied to the device state.",
	})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "methods",
		Name:      "invocations_total",
		Help:      "Remote method invocations by method and result.",
	}, []string{"method", "result"})

	LogUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "logs",
		Name:      "uploads_total",
		Help:      "Log file uploads by file and result.",
	}, []string{"file", "result"})
)

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
