// Copyright 2020 Northern.tech AS
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


package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/mendersoftware/go-lib-micro/config"
	mlog "github.com/mendersoftware/go-lib-micro/log"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"

	"github.com/mendersoftware/kioskconnect/app"
	dconfig "github.com/mendersoftware/kioskconnect/config"
	"github.com/mendersoftware/kioskconnect/model"
	"github.com/mendersoftware/kioskconnect/server"
	"github.com/mendersoftware/kioskconnect/shell"
)

var Version string = "unknown"

func main() {
	doMain(os.Args)
}

func doMain(args []string) {
	if err := newApp().Run(args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var configPath string

	app := &cli.App{
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name: "config",
				Usage: "Configuration `FILE`. " +
					"Supports JSON, TOML, YAML and HCL " +
					"formatted configs.",
				Value:       "config.yaml",
				Destination: &configPath,
			},
		},
		Commands: []cli.Command{
			{
				Name:   "run",
				Usage:  "Run the agent and the local status server",
				Action: cmdRun,
			},
			{
				Name:   "probe",
				Usage:  "Check the network connectivity",
				Action: cmdProbe,
			},
			{
				Name:   "provision-cellular",
				Usage:  "Bring up the cellular link",
				Action: cmdProvisionCellular,
			},
			{
				Name:   "upload-logs",
				Usage:  "Upload the startup and error logs",
				Action: cmdUploadLogs,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "container",
						Usage: "Upload to `CONTAINER` instead of the configured one.",
					},
				},
			},
		},
	}
	app.Usage = "Kiosk Connect"
	app.Version = Version
	app.Action = cmdRun

	app.Before = func(args *cli.Context) error {
		err := config.FromConfigFile(configPath, dconfig.Defaults)
		if err != nil {
			return cli.NewExitError(
				fmt.Sprintf("error loading configuration: %s", err),
				1)
		}

		// Enable setting config values by environment variables
		config.Config.SetEnvPrefix("KIOSKCONNECT")
		config.Config.AutomaticEnv()
		config.Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		for key, env := range dconfig.EnvBindings {
			if err := config.Config.BindEnv(key, env); err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
		}

		mlog.Setup(config.Config.GetBool(dconfig.SettingDebugLog))
		return nil
	}
	return app
}

func loadIdentity() (*model.DeviceIdentity, error) {
	identity, err := server.LoadIdentity(config.Config)
	if err != nil {
		return nil, cli.NewExitError(
			fmt.Sprintf("configuration error: %s", err), 1)
	}
	return identity, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
}

func cmdRun(args *cli.Context) error {
	identity, err := loadIdentity()
	if err != nil {
		return err
	}
	blobs, err := server.SetupBlobStore(config.Config)
	if err != nil {
		return cli.NewExitError(
			fmt.Sprintf("configuration error: %s", err), 1)
	}
	defer blobs.Close()
	return server.InitAndRun(config.Config, identity, blobs)
}

func cmdProbe(args *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()
	if !server.NewProber(config.Config).Probe(ctx) {
		return cli.NewExitError("network unreachable", 1)
	}
	fmt.Println("network reachable")
	return nil
}

func cmdProvisionCellular(args *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()
	provisioner, err := server.NewProvisioner(config.Config, shell.NewRunner())
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return provisioner.Provision(ctx)
}

func cmdUploadLogs(args *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()
	blobs, err := server.SetupBlobStore(config.Config)
	if err != nil {
		return cli.NewExitError(
			fmt.Sprintf("configuration error: %s", err), 1)
	}
	defer blobs.Close()

	state := app.NewStateStore()
	if container := args.String("container"); container != "" {
		_, _, err = state.Apply(ctx, model.Desired{model.DesiredStorageName: container})
		if err != nil {
			return err
		}
	}
	report, err := server.NewLogUploader(config.Config, blobs, state).Upload(ctx)
	for _, name := range report.Uploaded {
		fmt.Println("uploaded", name)
	}
	for _, kind := range report.Missing {
		fmt.Println("missing", kind)
	}
	return err
}
