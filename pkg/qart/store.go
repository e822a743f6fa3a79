// Package qart exports job query results to S3-compatible object storage.
package qart

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// Object describes an uploaded export.
type Object struct {
	Key         string            `json:"key" yaml:"key"`
	Bucket      string            `json:"bucket" yaml:"bucket"`
	Size        int64             `json:"size" yaml:"size"`
	ContentType string            `json:"content_type" yaml:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	URL         string            `json:"url,omitempty" yaml:"url,omitempty"`
}

// Store is the subset of object storage an export needs.
type Store interface {
	// EnsureBucket creates the bucket when it does not exist yet.
	EnsureBucket(ctx context.Context) error

	// Put uploads size bytes from reader under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) (*Object, error)

	// PresignedURL returns a time-limited download link for key.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const exportPrefix = "exports/"

// ExportKey normalizes a user-supplied name into an object key under
// "exports/", adding a .json extension when none is given.
func ExportKey(name string) (string, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return "", ErrEmptyKey
	}
	name = path.Clean(name)
	if name == "." || strings.HasPrefix(name, "..") {
		return "", ErrEmptyKey
	}
	if path.Ext(name) == "" {
		name += ".json"
	}
	if strings.HasPrefix(name, exportPrefix) {
		return name, nil
	}
	return exportPrefix + name, nil
}
