// Copyright 2020 Northern.tech AS
//
//    All Rights Reserved

package mongo

import (
	"context"
	"crypto/tls"
	"io"
	"strings"
	"time"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	mopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	dconfig "github.com/mendersoftware/kioskconnect/config"
	"github.com/mendersoftware/kioskconnect/store"
)

// SetupDataStore returns the GridFS blob store configured in config.Config
func SetupDataStore(ctx context.Context) (*DataStoreMongo, error) {
	dbClient, err := NewClient(ctx, config.Config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to db")
	}
	return NewDataStoreWithClient(dbClient, config.Config), nil
}

func disconnectClient(parentCtx context.Context, client *mongo.Client) {
	ctx, cancel := context.WithTimeout(parentCtx, 1*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

// NewClient returns a mongo client
func NewClient(ctx context.Context, c config.Reader) (*mongo.Client, error) {

	clientOptions := mopts.Client()
	mongoURL := c.GetString(dconfig.SettingMongo)
	if !strings.Contains(mongoURL, "://") {
		return nil, errors.Errorf("Invalid mongoURL %q: missing schema.",
			mongoURL)
	}
	clientOptions.ApplyURI(mongoURL)

	username := c.GetString(dconfig.SettingDbUsername)
	if username != "" {
		credentials := mopts.Credential{
			Username: c.GetString(dconfig.SettingDbUsername),
		}
		password := c.GetString(dconfig.SettingDbPassword)
		if password != "" {
			credentials.Password = password
			credentials.PasswordSet = true
		}
		clientOptions.SetAuth(credentials)
	}

	if c.GetBool(dconfig.SettingDbSSL) {
		tlsConfig := &tls.Config{}
		tlsConfig.InsecureSkipVerify = c.GetBool(dconfig.SettingDbSSLSkipVerify)
		clientOptions.SetTLSConfig(tlsConfig)
	}

	// Log chunks must be journaled before the upload is acknowledged.
	clientOptions.SetWriteConcern(writeconcern.New(
		writeconcern.W(1), writeconcern.J(true),
	))

	// Set 10s timeout
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to connect to mongo server")
	}

	// Validate connection
	if err = client.Ping(ctx, nil); err != nil {
		disconnectClient(context.Background(), client)
		return nil, errors.Wrap(err, "Error reaching mongo server")
	}

	return client, nil
}

// DataStoreMongo stores blobs in GridFS, one bucket per container
type DataStoreMongo struct {
	// client holds the reference to the client used to communicate with the
	// mongodb server.
	client *mongo.Client
	// dbName contains the name of the database holding the buckets.
	dbName string
}

// NewDataStoreWithClient initializes a DataStore object
func NewDataStoreWithClient(client *mongo.Client, c config.Reader) *DataStoreMongo {
	dbName := c.GetString(dconfig.SettingDbName)

	return &DataStoreMongo{
		client: client,
		dbName: dbName,
	}
}

// Ping verifies the connection to the database
func (db *DataStoreMongo) Ping(ctx context.Context) error {
	res := db.client.Database(db.dbName).RunCommand(ctx, bson.M{"ping": 1})
	return res.Err()
}

func (db *DataStoreMongo) bucket(container string) (*gridfs.Bucket, error) {
	return gridfs.NewBucket(
		db.client.Database(db.dbName),
		mopts.GridFSBucket().SetName(container),
	)
}

// Upload streams the blob into the GridFS bucket named after the container
func (db *DataStoreMongo) Upload(
	ctx context.Context,
	container, name string,
	r io.Reader,
	size int64,
) error {
	if err := store.ValidateTarget(container, name); err != nil {
		return err
	}
	bucket, err := db.bucket(container)
	if err != nil {
		return errors.Wrap(err, "mongo: failed to open bucket")
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	opts := mopts.GridFSUpload().
		SetMetadata(bson.D{{Key: "size", Value: size}})
	id, err := bucket.UploadFromStream(name, r, opts)
	if err != nil {
		return errors.Wrapf(err, "mongo: failed to upload %s/%s", container, name)
	}
	log.FromContext(ctx).Debugf("uploaded %s/%s as %s", container, name, id.Hex())
	return nil
}

// Close disconnects the client
func (db *DataStoreMongo) Close() error {
	ctx := context.Background()
	err := db.client.Disconnect(ctx)
	return err
}
