package storage

import (
	"bytes"
	"context"
	"path"
)

// CaptionArchive keeps the raw caption payload of each fetched transcript.
type CaptionArchive struct {
	store  ObjectStorage
	prefix string
}

// NewCaptionArchive creates an archive writing under prefix.
func NewCaptionArchive(store ObjectStorage, prefix string) *CaptionArchive {
	return &CaptionArchive{store: store, prefix: prefix}
}

// Key returns the object key for a video's caption payload.
func (a *CaptionArchive) Key(videoID string) string {
	return path.Join(a.prefix, videoID+".json3")
}

// Save uploads the raw json3 payload of videoID. An existing object is kept.
func (a *CaptionArchive) Save(ctx context.Context, videoID string, raw []byte) error {
	key := a.Key(videoID)
	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return a.store.Upload(ctx, key, bytes.NewReader(raw), int64(len(raw)), "application/json")
}
