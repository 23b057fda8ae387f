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
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/mendersoftware/go-lib-micro/log"

	"github.com/mendersoftware/kioskconnect/metrics"
	"github.com/mendersoftware/kioskconnect/utils"
)

// DefaultRestartDelay is the pause before the bring-up sequence restarts
const DefaultRestartDelay = 2 * time.Second

// CellularConfig describes the modem and the packet data session
type CellularConfig struct {
	ModemDevice  string
	Interface    string
	APN          string
	PIN          string
	RestartDelay time.Duration
}

// Validate checks that the modem, the interface, the APN and the PIN are set
func (c CellularConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ModemDevice, validation.Required),
		validation.Field(&c.Interface, validation.Required),
		validation.Field(&c.APN, validation.Required),
		validation.Field(&c.PIN, validation.Required, is.Digit),
	)
}

// SequenceRunner runs instruction sequences with retries
type SequenceRunner interface {
	Run(ctx context.Context, instruction string) (string, error)
	RunSequence(ctx context.Context, instructions []string) error
}

// CellularProvisioner brings the cellular interface up
type CellularProvisioner struct {
	executor SequenceRunner
	config   CellularConfig
}

// NewCellularProvisioner returns a provisioner for the given modem setup
func NewCellularProvisioner(
	executor SequenceRunner,
	config CellularConfig,
) *CellularProvisioner {
	if config.RestartDelay <= 0 {
		config.RestartDelay = DefaultRestartDelay
	}
	return &CellularProvisioner{
		executor: executor,
		config:   config,
	}
}

// Steps returns the modem bring-up instructions in execution order
func (p *CellularProvisioner) Steps() []string {
	dev := p.config.ModemDevice
	iface := p.config.Interface
	return []string{
		fmt.Sprintf("qmicli -d %s --dms-set-operating-mode='online'", dev),
		fmt.Sprintf("ip link set %s down", iface),
		fmt.Sprintf("echo 'Y' > /sys/class/net/%s/qmi/raw_ip", iface),
		fmt.Sprintf("ip link set %s up", iface),
		fmt.Sprintf("qmicli -d %s --uim-verify-pin=PIN1,%s", dev, p.config.PIN),
		fmt.Sprintf("qmicli -p -d %s "+
			"--device-open-net='net-raw-ip|net-no-qos-header' "+
			"--wds-start-network=\"apn='%s',ip-type=4\" "+
			"--client-no-release-cid", dev, p.config.APN),
	}
}

// DHCPInstruction returns the lease acquisition instruction
func (p *CellularProvisioner) DHCPInstruction() string {
	return fmt.Sprintf("udhcpc -q -f -n -i %s", p.config.Interface)
}

// Provision runs the bring-up sequence until it succeeds, restarting it
// from the first step after every failure. It only gives up when the
// context is done.
func (p *CellularProvisioner) Provision(ctx context.Context) error {
	l := log.FromContext(ctx)
	for attempt := 1; ; attempt++ {
		metrics.ProvisionAttempts.Inc()
		l.Infof("bringing up cellular interface %s (attempt %d)",
			p.config.Interface, attempt)

		err := p.executor.RunSequence(ctx, p.Steps())
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.Errorf("cellular bring-up failed, restarting in %s: %s",
			p.config.RestartDelay, err.Error())
		metrics.ProvisionFailures.Inc()
		if err := utils.Sleep(ctx, p.config.RestartDelay); err != nil {
			return err
		}
	}

	if _, err := p.executor.Run(ctx, p.DHCPInstruction()); err != nil {
		l.Warnf("dhcp on %s failed: %s", p.config.Interface, err.Error())
	}
	l.Infof("cellular interface %s is up", p.config.Interface)
	return nil
}
