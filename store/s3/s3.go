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


// Package s3 stores log blobs in S3 buckets.
package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"

	dconfig "github.com/mendersoftware/kioskconnect/config"
	"github.com/mendersoftware/kioskconnect/store"
)

const contentType = "text/plain; charset=utf-8"

// Config holds the S3 connection parameters; credentials default to the
// SDK's environment and instance-profile chain.
type Config struct {
	Region         string
	Endpoint       string
	ForcePathStyle bool
	Credentials    *credentials.Credentials
}

// NewConfig reads the S3 settings
func NewConfig(c config.Reader) Config {
	return Config{
		Region:         c.GetString(dconfig.SettingS3Region),
		Endpoint:       c.GetString(dconfig.SettingS3Endpoint),
		ForcePathStyle: c.GetBool(dconfig.SettingS3ForcePathStyle),
	}
}

// DataStoreS3 uploads blobs as objects, the container is the bucket
type DataStoreS3 struct {
	uploader *s3manager.Uploader
}

// NewDataStore returns an S3 blob store
func NewDataStore(c Config) (*DataStoreS3, error) {
	awsConfig := aws.NewConfig().
		WithRegion(c.Region).
		WithS3ForcePathStyle(c.ForcePathStyle)
	if c.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(c.Endpoint)
	}
	if c.Credentials != nil {
		awsConfig = awsConfig.WithCredentials(c.Credentials)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "s3: failed to create session")
	}
	return &DataStoreS3{
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Upload streams the blob to the bucket named after the container
func (s *DataStoreS3) Upload(
	ctx context.Context,
	container, name string,
	r io.Reader,
	size int64,
) error {
	if err := store.ValidateTarget(container, name); err != nil {
		return err
	}
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(container),
		Key:         aws.String(name),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(err, "s3: failed to upload %s/%s", container, name)
	}
	log.FromContext(ctx).Debugf("uploaded %d bytes to %s", size, out.Location)
	return nil
}

// Close is a no-op, the uploader holds no connection
func (s *DataStoreS3) Close() error {
	return nil
}
