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
	"errors"
	"io"
)

// BlobStore interface for the log upload storage backends
//
//go:generate ../utils/mockgen.sh
type BlobStore interface {
	// Upload streams size bytes from r into the named blob of the
	// container; size is -1 when unknown.
	Upload(ctx context.Context, container, name string, r io.Reader, size int64) error
	Close() error
}

var (
	ErrEmptyContainer = errors.New("store: container name is empty")
	ErrEmptyBlobName  = errors.New("store: blob name is empty")
)

// ValidateTarget checks the container and blob names of an upload
func ValidateTarget(container, name string) error {
	if container == "" {
		return ErrEmptyContainer
	}
	if name == "" {
		return ErrEmptyBlobName
	}
	return nil
}
