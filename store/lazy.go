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

package store

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// ErrBackendUnavailable is returned by uploads when the backend could not
// be reached
var ErrBackendUnavailable = errors.New("store: backend unavailable")

// Dialer connects a blob storage backend
type Dialer func(ctx context.Context) (BlobStore, error)

// LazyBlobStore connects its backend on the first upload. A failed
// connection fails that upload only; the next upload dials again.
type LazyBlobStore struct {
	dial Dialer

	mu    sync.Mutex
	blobs BlobStore
}

// NewLazyBlobStore returns a BlobStore dialing the backend on demand
func NewLazyBlobStore(dial Dialer) *LazyBlobStore {
	return &LazyBlobStore{dial: dial}
}

func (s *LazyBlobStore) backend(ctx context.Context) (BlobStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs != nil {
		return s.blobs, nil
	}
	blobs, err := s.dial(ctx)
	if err != nil {
		return nil, errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	s.blobs = blobs
	return blobs, nil
}

// Upload connects the backend if needed and uploads the blob
func (s *LazyBlobStore) Upload(
	ctx context.Context,
	container, name string,
	r io.Reader,
	size int64,
) error {
	if err := ValidateTarget(container, name); err != nil {
		return err
	}
	blobs, err := s.backend(ctx)
	if err != nil {
		return err
	}
	return blobs.Upload(ctx, container, name, r, size)
}

// Close closes the backend if it was ever connected
func (s *LazyBlobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs == nil {
		return nil
	}
	err := s.blobs.Close()
	s.blobs = nil
	return err
}
