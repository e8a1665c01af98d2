package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the JetStream key-value bucket holding drafts.
const DefaultBucket = "NSEPOLICY_DRAFTS"

// JetStreamKV stores drafts in a NATS key-value bucket.
type JetStreamKV struct {
	kv jetstream.KeyValue
}

// NewJetStreamKV opens bucket, creating it when it does not exist.
func NewJetStreamKV(ctx context.Context, js jetstream.JetStream, bucket string) (*JetStreamKV, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("create drafts bucket: %w", err)
	}
	return &JetStreamKV{kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "NSE policy questionnaire drafts",
		History:     1,
	})
}

// bucketKey maps a draft key onto the characters JetStream accepts.
func bucketKey(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

func (j *JetStreamKV) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := j.kv.Get(ctx, bucketKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return entry.Value(), nil
}

func (j *JetStreamKV) Put(ctx context.Context, key string, value []byte) error {
	if _, err := j.kv.Put(ctx, bucketKey(key), value); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (j *JetStreamKV) Delete(ctx context.Context, key string) error {
	err := j.kv.Delete(ctx, bucketKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Close is a no-op; the NATS connection belongs to the caller.
func (j *JetStreamKV) Close() error { return nil }
