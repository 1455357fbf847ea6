// Package filestore defines the interface for publishing rendered diagram
// artifacts to an object storage backend.
//
// All providers (MinIO, S3, …) implement the Store interface. Callers depend
// only on this package — never on a specific provider package.
package filestore

import (
	"context"
	"time"
)

// Store is the interface all artifact storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable and the configured
	// bucket exists.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// Put uploads one artifact under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// PresignGetURL returns a time-limited URL that allows downloading the
	// artifact at key without credentials.
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Config holds all settings needed to connect to an artifact store.
type Config struct {
	// Endpoint is the host:port of the storage server,
	// e.g. "localhost:9000" for local MinIO.
	Endpoint string

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Bucket is where published artifacts land.
	Bucket string
}
