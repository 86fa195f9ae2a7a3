package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/timmy/videoqa/internal/storage"
)

// TranscriptArchive copies completed transcripts to object storage.
type TranscriptArchive struct {
	store  storage.ObjectStorage
	prefix string
}

// NewTranscriptArchive returns nil when store is nil, which disables archiving.
func NewTranscriptArchive(store storage.ObjectStorage, prefix string) *TranscriptArchive {
	if store == nil {
		return nil
	}
	return &TranscriptArchive{store: store, prefix: prefix}
}

// Key returns the object key for a video's transcript.
func (a *TranscriptArchive) Key(videoID string) string {
	return a.prefix + videoID + ".txt"
}

// Put uploads the transcript text, replacing any previous copy.
func (a *TranscriptArchive) Put(ctx context.Context, videoID, text string) error {
	if err := a.store.Upload(ctx, a.Key(videoID), strings.NewReader(text), int64(len(text)), "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("failed to archive transcript: %w", err)
	}
	return nil
}

// Get downloads a previously archived transcript.
func (a *TranscriptArchive) Get(ctx context.Context, videoID string) (string, error) {
	rc, err := a.store.Download(ctx, a.Key(videoID))
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read archived transcript: %w", err)
	}
	return string(data), nil
}

// Delete removes the archived transcript if present.
func (a *TranscriptArchive) Delete(ctx context.Context, videoID string) error {
	return a.store.Delete(ctx, a.Key(videoID))
}
