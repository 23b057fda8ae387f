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

package config

import (
	"github.com/mendersoftware/go-lib-micro/config"
)

const (
	// SettingListen is the config key for the status page listen address
	SettingListen = "listen"
	// SettingListenDefault is the default value for the listen address
	SettingListenDefault = ":8080"

	// SettingAllowedOrigins is the config key for the origins accepted by
	// the status page; empty accepts every origin
	SettingAllowedOrigins = "allowed_origins"

	// SettingDebugLog is the config key for the turning on the debug log
	SettingDebugLog = "debug_log"
	// SettingDebugLogDefault is the default value for the debug log enabling
	SettingDebugLogDefault = false

	// SettingConnectionString is the config key for the device credential
	// string (HostName=...;DeviceId=...;SharedAccessKey=...)
	SettingConnectionString = "connection_string"
	// EnvConnectionString is the unprefixed environment variable bound to
	// SettingConnectionString
	EnvConnectionString = "DEVICE_CONNECTION_STRING"

	// SettingSimPIN is the config key for the SIM unlock PIN
	SettingSimPIN = "sim_pin"
	// EnvSimPIN is the unprefixed environment variable bound to SettingSimPIN
	EnvSimPIN = "PIN"

	// SettingNatsURI is the config key for the control plane nats uri;
	// when empty the uri is derived from the HostName credential segment
	SettingNatsURI = "nats_uri"
	// SettingNatsURIDefault is the default value for the nats uri
	SettingNatsURIDefault = ""

	// SettingNatsSubjectPrefix is the config key for the control plane
	// subject prefix
	SettingNatsSubjectPrefix = "nats_subject_prefix"
	// SettingNatsSubjectPrefixDefault is the default subject prefix
	SettingNatsSubjectPrefixDefault = "kiosk"

	// SettingProbeHost is the config key for the host resolved by the
	// connectivity probe
	SettingProbeHost = "probe_host"
	// SettingProbeHostDefault is the default probe host
	SettingProbeHostDefault = "google.com"

	// SettingProbeTimeoutSeconds is the config key for the probe timeout
	SettingProbeTimeoutSeconds = "probe_timeout_seconds"
	// SettingProbeTimeoutSecondsDefault is the default probe timeout
	SettingProbeTimeoutSecondsDefault = 5

	// SettingCellularEnabled is the config key for enabling the cellular
	// fallback
	SettingCellularEnabled = "cellular_enabled"
	// SettingCellularEnabledDefault is the default for the cellular fallback
	SettingCellularEnabledDefault = true

	// SettingCellularModemDevice is the config key for the QMI modem device
	SettingCellularModemDevice = "cellular_modem_device"
	// SettingCellularModemDeviceDefault is the default modem device
	SettingCellularModemDeviceDefault = "/dev/cdc-wdm0"

	// SettingCellularInterface is the config key for the cellular netdev
	SettingCellularInterface = "cellular_interface"
	// SettingCellularInterfaceDefault is the default cellular netdev
	SettingCellularInterfaceDefault = "wwan0"

	// SettingCellularAPN is the config key for the packet data APN
	SettingCellularAPN = "cellular_apn"
	// SettingCellularAPNDefault is the default APN
	SettingCellularAPNDefault = "internet"

	// SettingCellularStepRetryDelayMs is the config key for the delay
	// between the two attempts of a single bring-up step
	SettingCellularStepRetryDelayMs = "cellular_step_retry_delay_ms"
	// SettingCellularStepRetryDelayMsDefault is the default step retry delay
	SettingCellularStepRetryDelayMsDefault = 1000

	// SettingCellularRestartDelayMs is the config key for the delay before
	// the bring-up sequence is restarted from the beginning
	SettingCellularRestartDelayMs = "cellular_restart_delay_ms"
	// SettingCellularRestartDelayMsDefault is the default restart delay
	SettingCellularRestartDelayMsDefault = 2000

	// SettingSessionReconnect is the config key for reconnecting the
	// control plane session after transport failures
	SettingSessionReconnect = "session_reconnect"
	// SettingSessionReconnectDefault is the default reconnect policy
	SettingSessionReconnectDefault = false

	// SettingSessionRetryIntervalSeconds is the config key for the interval
	// between attempts to open the session when reconnecting is enabled
	SettingSessionRetryIntervalSeconds = "session_retry_interval_seconds"
	// SettingSessionRetryIntervalSecondsDefault is the default open retry
	// interval
	SettingSessionRetryIntervalSecondsDefault = 30

	// SettingTwinTimeoutSeconds is the config key for the twin snapshot
	// request timeout
	SettingTwinTimeoutSeconds = "twin_request_timeout_seconds"
	// SettingTwinTimeoutSecondsDefault is the default snapshot timeout
	SettingTwinTimeoutSecondsDefault = 10

	// SettingTrustedOperator is the config key enabling the run-command
	// remote method
	SettingTrustedOperator = "trusted_operator"
	// SettingTrustedOperatorDefault is the default for run-command
	SettingTrustedOperatorDefault = false

	// SettingRepoPath is the config key for the repository reset by
	// repo-update
	SettingRepoPath = "repo_path"
	// SettingRepoPathDefault is the default repository path
	SettingRepoPathDefault = "/home/pi/kiosk"

	// SettingRepoRemote is the config key for the repository remote
	SettingRepoRemote = "repo_remote"
	// SettingRepoRemoteDefault is the default repository remote
	SettingRepoRemoteDefault = "origin"

	// SettingRepoBranch is the config key for the repository branch
	SettingRepoBranch = "repo_branch"
	// SettingRepoBranchDefault is the default repository branch
	SettingRepoBranchDefault = "main"

	// SettingDisplay is the config key for the X display used by the
	// display utilities
	SettingDisplay = "display"
	// SettingDisplayDefault is the default X display
	SettingDisplayDefault = ":0"

	// SettingDisplayOutput is the config key for the rotated output
	SettingDisplayOutput = "display_output"
	// SettingDisplayOutputDefault is the default output
	SettingDisplayOutputDefault = "HDMI-1"

	// SettingViewerEnabled is the config key for launching the full-screen
	// viewer at startup
	SettingViewerEnabled = "viewer_enabled"
	// SettingViewerEnabledDefault is the default for the viewer
	SettingViewerEnabledDefault = false

	// SettingViewerCommand is the config key for the viewer command; the
	// page URL is appended as the last argument
	SettingViewerCommand = "viewer_command"
	// SettingViewerCommandDefault is the default viewer command
	SettingViewerCommandDefault = "chromium-browser --noerrdialogs " +
		"--disable-infobars --kiosk"

	// SettingViewerURL is the config key for the page shown when the device
	// state has no web URL yet
	SettingViewerURL = "viewer_url"
	// SettingViewerURLDefault is the local status page
	SettingViewerURLDefault = "http://localhost:8080/"

	// SettingLogStartupPath is the config key for the startup log file
	SettingLogStartupPath = "log_startup_path"
	// SettingLogStartupPathDefault is the default startup log file
	SettingLogStartupPathDefault = "/var/log/kioskconnect/startup.log"

	// SettingLogErrorPath is the config key for the error log file
	SettingLogErrorPath = "log_error_path"
	// SettingLogErrorPathDefault is the default error log file
	SettingLogErrorPathDefault = "/var/log/kioskconnect/error.log"

	// SettingLogUploadOnStart is the config key for uploading pending logs
	// at the end of the bootstrap
	SettingLogUploadOnStart = "log_upload_on_start"
	// SettingLogUploadOnStartDefault is the default for startup uploads
	SettingLogUploadOnStartDefault = true

	// SettingLogTruncateOnUpload is the config key for truncating log
	// files after they were uploaded
	SettingLogTruncateOnUpload = "log_truncate_on_upload"
	// SettingLogTruncateOnUploadDefault is the default truncate policy
	SettingLogTruncateOnUploadDefault = false

	// SettingBlobBackend is the config key for the blob storage backend
	// (gridfs or s3)
	SettingBlobBackend = "blob_backend"
	// SettingBlobBackendDefault is the default blob backend
	SettingBlobBackendDefault = "gridfs"

	// SettingBlobContainer is the config key for the container used when
	// the device state has no storage name
	SettingBlobContainer = "blob_container"
	// SettingBlobContainerDefault is the default container
	SettingBlobContainerDefault = "kiosklogs"

	// SettingMongo is the config key for the mongo URL
	SettingMongo = "mongo_url"
	// SettingMongoDefault is the default value for the mongo URL
	SettingMongoDefault = "mongodb://localhost:27017"

	// SettingDbName is the config key for the mongo database name
	SettingDbName = "mongo_dbname"
	// SettingDbNameDefault is the default value for the mongo database name
	SettingDbNameDefault = "kioskconnect"

	// SettingDbSSL is the config key for the mongo SSL setting
	SettingDbSSL = "mongo_ssl"
	// SettingDbSSLDefault is the default value for the mongo SSL setting
	SettingDbSSLDefault = false

	// SettingDbSSLSkipVerify is the config key for the mongo SSL skip verify setting
	SettingDbSSLSkipVerify = "mongo_ssl_skipverify"
	// SettingDbSSLSkipVerifyDefault is the default value for the mongo SSL skip verify setting
	SettingDbSSLSkipVerifyDefault = false

	// SettingDbUsername is the config key for the mongo username
	SettingDbUsername = "mongo_username"

	// SettingDbPassword is the config key for the mongo password
	SettingDbPassword = "mongo_password"

	// SettingS3Region is the config key for the S3 region
	SettingS3Region = "s3_region"
	// SettingS3RegionDefault is the default S3 region
	SettingS3RegionDefault = "us-east-1"

	// SettingS3Endpoint is the config key for a custom S3 endpoint
	SettingS3Endpoint = "s3_endpoint"

	// SettingS3ForcePathStyle is the config key for path-style S3 addressing
	SettingS3ForcePathStyle = "s3_force_path_style"
	// SettingS3ForcePathStyleDefault is the default addressing style
	SettingS3ForcePathStyleDefault = false
)

var (
	// Defaults are the default configuration settings
	Defaults = []config.Default{
		{Key: SettingListen, Value: SettingListenDefault},
		{Key: SettingAllowedOrigins, Value: []string{}},
		{Key: SettingDebugLog, Value: SettingDebugLogDefault},
		{Key: SettingNatsURI, Value: SettingNatsURIDefault},
		{Key: SettingNatsSubjectPrefix, Value: SettingNatsSubjectPrefixDefault},
		{Key: SettingProbeHost, Value: SettingProbeHostDefault},
		{Key: SettingProbeTimeoutSeconds, Value: SettingProbeTimeoutSecondsDefault},
		{Key: SettingCellularEnabled, Value: SettingCellularEnabledDefault},
		{Key: SettingCellularModemDevice, Value: SettingCellularModemDeviceDefault},
		{Key: SettingCellularInterface, Value: SettingCellularInterfaceDefault},
		{Key: SettingCellularAPN, Value: SettingCellularAPNDefault},
		{Key: SettingCellularStepRetryDelayMs, Value: SettingCellularStepRetryDelayMsDefault},
		{Key: SettingCellularRestartDelayMs, Value: SettingCellularRestartDelayMsDefault},
		{Key: SettingSessionReconnect, Value: SettingSessionReconnectDefault},
		{Key: SettingSessionRetryIntervalSeconds,
			Value: SettingSessionRetryIntervalSecondsDefault},
		{Key: SettingTwinTimeoutSeconds, Value: SettingTwinTimeoutSecondsDefault},
		{Key: SettingTrustedOperator, Value: SettingTrustedOperatorDefault},
		{Key: SettingRepoPath, Value: SettingRepoPathDefault},
		{Key: SettingRepoRemote, Value: SettingRepoRemoteDefault},
		{Key: SettingRepoBranch, Value: SettingRepoBranchDefault},
		{Key: SettingDisplay, Value: SettingDisplayDefault},
		{Key: SettingDisplayOutput, Value: SettingDisplayOutputDefault},
		{Key: SettingViewerEnabled, Value: SettingViewerEnabledDefault},
		{Key: SettingViewerCommand, Value: SettingViewerCommandDefault},
		{Key: SettingViewerURL, Value: SettingViewerURLDefault},
		{Key: SettingLogStartupPath, Value: SettingLogStartupPathDefault},
		{Key: SettingLogErrorPath, Value: SettingLogErrorPathDefault},
		{Key: SettingLogUploadOnStart, Value: SettingLogUploadOnStartDefault},
		{Key: SettingLogTruncateOnUpload, Value: SettingLogTruncateOnUploadDefault},
		{Key: SettingBlobBackend, Value: SettingBlobBackendDefault},
		{Key: SettingBlobContainer, Value: SettingBlobContainerDefault},
		{Key: SettingMongo, Value: SettingMongoDefault},
		{Key: SettingDbName, Value: SettingDbNameDefault},
		{Key: SettingDbSSL, Value: SettingDbSSLDefault},
		{Key: SettingDbSSLSkipVerify, Value: SettingDbSSLSkipVerifyDefault},
		{Key: SettingS3Region, Value: SettingS3RegionDefault},
		{Key: SettingS3ForcePathStyle, Value: SettingS3ForcePathStyleDefault},
	}

	// EnvBindings maps settings to the unprefixed process environment
	// variables the agent has always been configured with
	EnvBindings = map[string]string{
		SettingConnectionString: EnvConnectionString,
		SettingSimPIN:           EnvSimPIN,
	}
)
