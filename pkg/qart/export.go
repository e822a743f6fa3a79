package qart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DefaultURLExpiry bounds presigned links handed back to the user.
const DefaultURLExpiry = 24 * time.Hour

// ExportOptions tunes a single export.
type ExportOptions struct {
	// Metadata is stored as object user metadata.
	Metadata map[string]string
	// Expiry of the presigned URL; DefaultURLExpiry when zero.
	Expiry time.Duration
}

// ExportJSON encodes v as indented JSON and uploads it under ExportKey(name).
// The returned Object carries a presigned download URL.
func ExportJSON(ctx context.Context, store Store, name string, v any, opts ExportOptions) (*Object, error) {
	key, err := ExportKey(name)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("preparing bucket: %w", err)
	}

	meta := map[string]string{"exported-at": strconv.FormatInt(time.Now().Unix(), 10)}
	for k, val := range opts.Metadata {
		meta[k] = val
	}

	obj, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json", meta)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}

	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	obj.URL, err = store.PresignedURL(ctx, key, expiry)
	if err != nil {
		return nil, fmt.Errorf("presigning %s: %w", key, err)
	}
	return obj, nil
}
