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


package app

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mendersoftware/kioskconnect/metrics"
	"github.com/mendersoftware/kioskconnect/model"
	"github.com/mendersoftware/kioskconnect/store"
	"github.com/mendersoftware/kioskconnect/utils"
)

// Log kinds, used as the blob name suffix
const (
	LogKindStartup = "startup"
	LogKindError   = "error"
)

// TimestampFormat prefixes the uploaded blob names
const TimestampFormat = "20060102T150405Z"

// LogUploaderConfig holds the log uploader settings
type LogUploaderConfig struct {
	StartupPath      string
	ErrorPath        string
	DefaultContainer string
	Truncate         bool
}

// LogUploader ships the agent's log files to blob storage
type LogUploader struct {
	// uploads never interleave
	mu sync.Mutex

	store  store.BlobStore
	state  *StateStore
	clock  utils.Clock
	config LogUploaderConfig
}

// NewLogUploader returns a new LogUploader
func NewLogUploader(
	blobs store.BlobStore,
	state *StateStore,
	clock utils.Clock,
	config LogUploaderConfig,
) *LogUploader {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &LogUploader{
		store:  blobs,
		state:  state,
		clock:  clock,
		config: config,
	}
}

type logFile struct {
	kind string
	path string
}

type uploadOutcome struct {
	missing   bool
	truncated bool
	err       error
}

// Container returns the container the logs are uploaded to
func (u *LogUploader) Container() string {
	if name := u.state.Get().StorageName; name != "" {
		return name
	}
	return u.config.DefaultContainer
}

// Upload uploads the startup and the error log. Missing files are reported,
// not returned as errors; the two uploads are independent and failures are
// aggregated into the returned error.
func (u *LogUploader) Upload(ctx context.Context) (model.UploadReport, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	report := model.UploadReport{}
	container := u.Container()
	timestamp := u.clock.Now().UTC().Format(TimestampFormat)
	files := []logFile{
		{kind: LogKindStartup, path: u.config.StartupPath},
		{kind: LogKindError, path: u.config.ErrorPath},
	}

	outcomes := make([]uploadOutcome, len(files))
	var g errgroup.Group
	for i := range files {
		i := i
		g.Go(func() error {
			outcomes[i] = u.upload(ctx, container, timestamp, files[i])
			return nil
		})
	}
	_ = g.Wait()

	var failures []string
	for i, file := range files {
		name := timestamp + "-" + file.kind
		outcome := outcomes[i]
		switch {
		case outcome.missing:
			report.Missing = append(report.Missing, file.kind)
			metrics.LogUploads.WithLabelValues(file.kind, metrics.ResultMissing).Inc()
		case outcome.err != nil:
			report.Failed = append(report.Failed, name)
			failures = append(failures, outcome.err.Error())
			metrics.LogUploads.WithLabelValues(file.kind, metrics.ResultFailure).Inc()
		default:
			report.Uploaded = append(report.Uploaded, name)
			if outcome.truncated {
				report.Truncated = append(report.Truncated, file.kind)
			}
			metrics.LogUploads.WithLabelValues(file.kind, metrics.ResultSuccess).Inc()
		}
	}
	if len(failures) > 0 {
		return report, errors.Errorf("log upload failed: %s",
			strings.Join(failures, "; "))
	}
	return report, nil
}

func (u *LogUploader) upload(
	ctx context.Context,
	container, timestamp string,
	file logFile,
) uploadOutcome {
	l := log.FromContext(ctx)
	name := timestamp + "-" + file.kind

	f, err := os.Open(file.path)
	if os.IsNotExist(err) {
		l.Warnf("%s log %s does not exist, nothing to upload", file.kind, file.path)
		return uploadOutcome{missing: true}
	} else if err != nil {
		return uploadOutcome{err: errors.Wrapf(err, "failed to open %s", file.path)}
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	if err := u.store.Upload(ctx, container, name, f, size); err != nil {
		l.Errorf("failed to upload %s log: %s", file.kind, err)
		return uploadOutcome{err: err}
	}
	l.Infof("uploaded %s log to %s/%s", file.kind, container, name)

	outcome := uploadOutcome{}
	if u.config.Truncate {
		if err := os.Truncate(file.path, 0); err != nil {
			l.Warnf("failed to truncate %s: %s", file.path, err)
		} else {
			outcome.truncated = true
		}
	}
	return outcome
}
