package main

import (
	"context"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ TokenStore = (*boltTokenStore)(nil)

type boltTokenStore struct {
	logger *zap.Logger
	client *bolt.DB
	bucket []byte
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltTokenStore provides a file backed token store for single instance deployments.
func NewBoltTokenStore(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) TokenStore {
	return &boltTokenStore{
		logger: logger,
		client: client,
		bucket: []byte(boltConfig.BucketName),
	}
}

// Get retrieves the token of a visitor.
func (bs *boltTokenStore) Get(_ context.Context, visitorID string) (string, error) {
	var token string
	err := bs.client.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bs.bucket).Get([]byte(TokenKey(visitorID)))
		if value == nil {
			return ErrTokenNotFound
		}
		token = string(value)
		return nil
	})
	return token, err
}

// Set saves or replaces the token of a visitor.
func (bs *boltTokenStore) Set(_ context.Context, visitorID, token string) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).Put([]byte(TokenKey(visitorID)), []byte(token))
	})
}

// Delete removes the token of a visitor. Missing tokens are not an error.
func (bs *boltTokenStore) Delete(_ context.Context, visitorID string) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).Delete([]byte(TokenKey(visitorID)))
	})
}

// Close shuts down the bolt database.
func (bs *boltTokenStore) Close() error {
	return bs.client.Close()
}
