package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBoltStore returns a token store backed by a temporary bolt file.
func newTestBoltStore(t *testing.T) TokenStore {
	t.Helper()
	f, err := os.CreateTemp("", "tmp.bolt.db-")
	require.NoError(t, err)
	f.Close()
	testConfig := &Config{
		BoltDB: BoltDBConfig{
			FilePath:   f.Name(),
			Timeout:    5 * time.Second,
			BucketName: "test.tokens",
		},
	}
	client, err := GetBoltDBClient(testConfig)
	require.NoError(t, err, "failed in creating a test bolt store")
	ts := NewBoltTokenStore(zap.NewNop(), &testConfig.BoltDB, client)
	t.Cleanup(func() {
		ts.Close()
		os.Remove(testConfig.BoltDB.FilePath)
	})
	return ts
}

// Ensure bolt store can save, replace and fetch a visitor token.
func TestBoltStore_SetToken(t *testing.T) {
	ts := newTestBoltStore(t)

	err := ts.Set(context.TODO(), testVisitorID, "tok-1")
	assert.NoError(t, err)
	token, err := ts.Get(context.TODO(), testVisitorID)
	assert.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	err = ts.Set(context.TODO(), testVisitorID, "tok-2")
	assert.NoError(t, err)
	token, err = ts.Get(context.TODO(), testVisitorID)
	assert.NoError(t, err)
	assert.Equal(t, "tok-2", token)
}

// Ensure fetching the token of an unknown visitor fails with ErrTokenNotFound.
func TestBoltStore_GetUnknownToken(t *testing.T) {
	ts := newTestBoltStore(t)
	token, err := ts.Get(context.TODO(), "v:unknown")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Empty(t, token)
}

// Ensure bolt store can delete a token, even twice.
func TestBoltStore_DeleteToken(t *testing.T) {
	ts := newTestBoltStore(t)
	require.NoError(t, ts.Set(context.TODO(), testVisitorID, "tok-1"))

	assert.NoError(t, ts.Delete(context.TODO(), testVisitorID))
	_, err := ts.Get(context.TODO(), testVisitorID)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NoError(t, ts.Delete(context.TODO(), testVisitorID))
}

// Ensure the token source hides missing tokens from the API client.
func TestVisitorTokenSource(t *testing.T) {
	ts := newTestBoltStore(t)
	src := &visitorTokenSource{store: ts, visitorID: testVisitorID}

	token, err := src.Token(context.TODO())
	assert.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, ts.Set(context.TODO(), testVisitorID, "tok-1"))
	token, err = src.Token(context.TODO())
	assert.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}
