package service

import (
	"context"
	"testing"

	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/lock"
	"github.com/timmy/videoqa/internal/storage"
)

func TestPipelineArchivesTranscript(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	archive := NewTranscriptArchive(store, "transcripts/")

	svc, err := NewVideoService(env.videoRepo, env.vectors, env.transcriber, env.embedder, lock.NewMemory(), archive, nil, &VideoConfig{
		ChunkSize:    22,
		ChunkOverlap: 4,
	})
	if err != nil {
		t.Fatalf("NewVideoService() error = %v", err)
	}

	video, err := svc.Create(ctx, CreateVideoInput{URL: catsURL})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	text, err := archive.Get(ctx, video.ID)
	if err != nil {
		t.Fatalf("archive.Get() error = %v", err)
	}
	if text != *video.Transcription {
		t.Errorf("archived %q, want %q", text, *video.Transcription)
	}

	if err := svc.Delete(ctx, video.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, archive.Key(video.ID)); ok {
		t.Error("archived transcript survived delete")
	}
}

func TestNewTranscriptArchiveDisabled(t *testing.T) {
	if a := NewTranscriptArchive(nil, "x/"); a != nil {
		t.Errorf("NewTranscriptArchive(nil) = %v, want nil", a)
	}
}

func TestTranscriptFallsBackToArchive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	archive := NewTranscriptArchive(storage.NewMemoryStorage(), "transcripts/")

	svc, err := NewVideoService(env.videoRepo, env.vectors, env.transcriber, env.embedder, lock.NewMemory(), archive, nil, &VideoConfig{
		ChunkSize:    22,
		ChunkOverlap: 4,
	})
	if err != nil {
		t.Fatalf("NewVideoService() error = %v", err)
	}

	video, err := svc.Create(ctx, CreateVideoInput{URL: catsURL})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	want := *video.Transcription

	env.transcriber.mu.Lock()
	delete(env.transcriber.results, catsURL)
	env.transcriber.mu.Unlock()
	if _, err := svc.Reindex(ctx, video.ID); err == nil {
		t.Fatal("Reindex() error = nil, want failure")
	}

	got, err := svc.Transcript(ctx, video.ID)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if got != want {
		t.Errorf("Transcript() = %q, want archived %q", got, want)
	}
}

func TestTranscriptNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.videos.Transcript(ctx, "missing"); !domain.IsNotFound(err) {
		t.Errorf("unknown video: error = %v, want NotFound", err)
	}

	env.transcriber.mu.Lock()
	delete(env.transcriber.results, dogsURL)
	env.transcriber.mu.Unlock()
	video, _ := env.videos.Create(ctx, CreateVideoInput{URL: dogsURL})
	if video == nil {
		t.Fatal("Create() returned no video")
	}
	if _, err := env.videos.Transcript(ctx, video.ID); !domain.IsNotFound(err) {
		t.Errorf("no transcript without archive: error = %v, want NotFound", err)
	}
}
