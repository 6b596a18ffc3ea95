package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/legoreviews/internal/config"
)

type memoryStorage struct {
	objects   map[string][]byte
	uploads   int
	existsErr error
}

func (m *memoryStorage) Upload(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	m.uploads++
	return nil
}

func (m *memoryStorage) Exists(_ context.Context, key string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.objects[key]
	return ok, nil
}

func TestCaptionArchive_Save(t *testing.T) {
	ctx := context.Background()
	store := &memoryStorage{}
	archive := NewCaptionArchive(store, "captions")

	assert.Equal(t, "captions/abc123.json3", archive.Key("abc123"))

	raw := []byte(`{"events":[]}`)
	require.NoError(t, archive.Save(ctx, "abc123", raw))
	assert.Equal(t, raw, store.objects["captions/abc123.json3"])

	// An archived payload is never overwritten.
	require.NoError(t, archive.Save(ctx, "abc123", []byte(`{"events":[{}]}`)))
	assert.Equal(t, 1, store.uploads)
	assert.Equal(t, raw, store.objects["captions/abc123.json3"])
}

func TestCaptionArchive_ExistsError(t *testing.T) {
	store := &memoryStorage{existsErr: errors.New("access denied")}
	err := NewCaptionArchive(store, "").Save(context.Background(), "abc123", []byte("{}"))
	assert.Error(t, err)
	assert.Zero(t, store.uploads)
}

func TestDetectStorageType(t *testing.T) {
	assert.Equal(t, StorageTypeS3, detectStorageType(""))
	assert.Equal(t, StorageTypeS3, detectStorageType("https://s3.eu-central-1.amazonaws.com"))
	assert.Equal(t, StorageTypeR2, detectStorageType("https://acct.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("localhost:9000"))
}

func TestOpenCaptionArchive_Disabled(t *testing.T) {
	archive, err := OpenCaptionArchive(context.Background(), &config.StorageConfig{Enabled: false})
	assert.Nil(t, archive)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

func TestNewStorage_RequiresBucket(t *testing.T) {
	_, err := NewStorage(&S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(fmt.Errorf("head: %w", &smithy.GenericAPIError{Code: "NoSuchKey"})))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("dial tcp: connection refused")))
}
