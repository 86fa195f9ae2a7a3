package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/videoqa/internal/chunker"
	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/lock"
	"github.com/timmy/videoqa/internal/logger"
	"github.com/timmy/videoqa/internal/repository"
	"github.com/timmy/videoqa/internal/storage"
)

const (
	collectionPrefix = "video_"
	chunkSource      = "transcription"
)

// Chunk metadata keys stored with every vector record.
const (
	MetaVideoID     = "video_id"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaSource      = "source"
	MetaTimestamp   = "timestamp"
)

// VideoStore persists Video records.
type VideoStore interface {
	Create(ctx context.Context, video *domain.Video) error
	Update(ctx context.Context, video *domain.Video) error
	GetByID(ctx context.Context, id string) (*domain.Video, error)
	List(ctx context.Context, limit, offset int) ([]domain.Video, error)
	ListIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// VideoService runs the ingestion pipeline and owns each video's collection lifecycle.
type VideoService struct {
	videos      VideoStore
	vectors     repository.VectorStore
	transcriber Transcriber
	embedder    Embedder
	locker      lock.Locker
	archive     *TranscriptArchive
	splitter    *chunker.Splitter
	logger      *logger.Logger
	cfg         VideoConfig
}

// VideoConfig holds configuration for the ingestion pipeline
type VideoConfig struct {
	ChunkSize         int
	ChunkOverlap      int
	TranscribeTimeout time.Duration
	EmbedTimeout      time.Duration
	IndexTimeout      time.Duration
}

// CreateVideoInput is the request to register and ingest a video.
type CreateVideoInput struct {
	URL         string
	Title       string
	Description string
}

// UpdateVideoInput carries optional field changes; nil leaves a field unchanged.
type UpdateVideoInput struct {
	URL         *string
	Title       *string
	Description *string
}

// NewVideoService creates a new video service
// Parameters:
//   - videos: relational store for Video records.
//   - vectors: per-video vector collection store.
//   - transcriber: URL validation and transcription collaborator.
//   - embedder: embedding gateway.
//   - locker: per-video mutual exclusion around ingestion.
//   - archive: transcript archive; nil disables archiving.
//   - log: fallback logger.
//   - cfg: chunking parameters and per-call timeouts.
// Returns:
//   - *VideoService: pipeline instance.
//   - error: non-nil if the chunking parameters are invalid.
func NewVideoService(
	videos VideoStore,
	vectors repository.VectorStore,
	transcriber Transcriber,
	embedder Embedder,
	locker lock.Locker,
	archive *TranscriptArchive,
	log *logger.Logger,
	cfg *VideoConfig,
) (*VideoService, error) {
	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &VideoService{
		videos:      videos,
		vectors:     vectors,
		transcriber: transcriber,
		embedder:    embedder,
		locker:      locker,
		archive:     archive,
		splitter:    splitter,
		logger:      log.WithField(logger.FieldComponent, "ingest"),
		cfg:         *cfg,
	}, nil
}

// log returns a logger from context if available, otherwise returns the service logger
func (s *VideoService) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return s.logger
}

func (s *VideoService) withVideo(ctx context.Context, v *domain.Video) context.Context {
	return s.log(ctx).WithFields(logger.Fields{
		logger.FieldVideoID:      v.ID,
		logger.FieldCollectionID: v.CollectionID,
	}).WithContext(ctx)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func storeErr(err error) error {
	if domain.IsNotFound(err) {
		return err
	}
	return domain.Upstream(domain.StageStore, err)
}

// Create registers a video, creates its collection, and runs the pipeline synchronously.
// Parameters:
//   - ctx: request context.
//   - in: source URL and optional title and description.
// Returns:
//   - *domain.Video: the persisted video in its final status; nil if nothing was persisted.
//   - error: Validation for a bad URL (no side effects), Upstream(collection|store) when
//     nothing was persisted, or the pipeline failure with the video left failed.
func (s *VideoService) Create(ctx context.Context, in CreateVideoInput) (*domain.Video, error) {
	url := strings.TrimSpace(in.URL)
	if err := s.transcriber.ValidateURL(url); err != nil {
		return nil, err
	}

	video := &domain.Video{
		ID:           uuid.NewString(),
		URL:          url,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Status:       domain.VideoStatusPending,
		CollectionID: collectionPrefix + uuid.NewString(),
	}
	ctx = s.withVideo(ctx, video)

	if err := s.vectors.CreateCollection(ctx, video.CollectionID); err != nil {
		s.log(ctx).WithError(err).Error("Failed to create collection")
		return nil, domain.Upstream(domain.StageCollection, err)
	}

	video.Status = domain.VideoStatusProcessing
	if err := s.videos.Create(ctx, video); err != nil {
		// The video never existed; do not leave an orphaned collection behind.
		if derr := s.vectors.DeleteCollection(context.WithoutCancel(ctx), video.CollectionID); derr != nil {
			s.log(ctx).WithError(derr).Warn("Failed to remove orphaned collection")
		}
		return nil, domain.Upstream(domain.StageStore, err)
	}
	s.log(ctx).WithField("url", url).Info("Video registered")

	if err := s.process(ctx, video, video.URL, false); err != nil {
		return video, err
	}
	return video, nil
}

// Get returns a video by ID.
func (s *VideoService) Get(ctx context.Context, id string) (*domain.Video, error) {
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return video, nil
}

// List returns videos newest first.
func (s *VideoService) List(ctx context.Context, skip, limit int) ([]domain.Video, error) {
	if skip < 0 || limit < 0 {
		return nil, domain.Validation("skip and limit must not be negative")
	}
	videos, err := s.videos.List(ctx, limit, skip)
	if err != nil {
		return nil, storeErr(err)
	}
	return videos, nil
}

// Update applies field changes. A changed URL is validated first and triggers re-ingestion
// into the existing collection.
func (s *VideoService) Update(ctx context.Context, id string, in UpdateVideoInput) (*domain.Video, error) {
	var newURL string
	if in.URL != nil {
		newURL = strings.TrimSpace(*in.URL)
		if err := s.transcriber.ValidateURL(newURL); err != nil {
			return nil, err
		}
	}

	video, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.withVideo(ctx, video)

	if in.Title != nil {
		video.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		video.Description = strings.TrimSpace(*in.Description)
	}

	if in.URL == nil || newURL == video.URL {
		if err := s.videos.Update(ctx, video); err != nil {
			return nil, storeErr(err)
		}
		return video, nil
	}

	s.log(ctx).WithField("url", newURL).Info("Video URL changed, re-ingesting")
	if err := s.process(ctx, video, newURL, true); err != nil {
		return video, err
	}
	return video, nil
}

// Reindex re-runs the pipeline from transcription with the video's current URL and collection.
func (s *VideoService) Reindex(ctx context.Context, id string) (*domain.Video, error) {
	video, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = s.withVideo(ctx, video)
	if err := s.process(ctx, video, video.URL, true); err != nil {
		return video, err
	}
	return video, nil
}

// Delete removes the video's collection, archived transcript, QA history and record.
// A missing collection is tolerated; an unknown video fails with NotFound.
func (s *VideoService) Delete(ctx context.Context, id string) error {
	video, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	ctx = s.withVideo(ctx, video)

	unlock, err := s.locker.Lock(ctx, lock.VideoKey(video.ID))
	if err != nil {
		return domain.Upstream(domain.StageCollection, fmt.Errorf("failed to lock video: %w", err))
	}
	defer unlock()

	s.dropCollection(ctx, video.CollectionID)
	if err := s.videos.Delete(ctx, video.ID); err != nil {
		return storeErr(err)
	}
	if s.archive != nil {
		if err := s.archive.Delete(ctx, video.ID); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to delete archived transcript")
		}
	}

	s.log(ctx).Info("Video deleted")
	return nil
}

// dropCollection deletes a collection, retrying once. A collection that cannot be
// removed is logged at error level with its ID so it can be cleaned up by hand.
func (s *VideoService) dropCollection(ctx context.Context, collectionID string) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.vectors.DeleteCollection(ctx, collectionID)
		if err == nil {
			return
		}
		if errors.Is(err, repository.ErrCollectionNotFound) {
			s.log(ctx).Warn("Collection already gone, continuing with record delete")
			return
		}
	}
	s.log(ctx).WithError(err).WithField("orphaned_collection_id", collectionID).
		Error("Failed to delete collection, record deleted and collection orphaned")
}

// Transcribe returns the transcript for url without creating a video.
func (s *VideoService) Transcribe(ctx context.Context, url string) (*domain.Transcript, error) {
	url = strings.TrimSpace(url)
	if err := s.transcriber.ValidateURL(url); err != nil {
		return nil, err
	}
	tctx, cancel := withTimeout(ctx, s.cfg.TranscribeTimeout)
	defer cancel()
	transcript, err := s.transcriber.Transcribe(tctx, url)
	if err != nil {
		return nil, domain.Upstream(domain.StageTranscribe, err)
	}
	return transcript, nil
}

// Transcript returns the video's stored transcript. When the record has none, as after a
// failed re-index, the last archived copy is returned instead.
func (s *VideoService) Transcript(ctx context.Context, id string) (string, error) {
	video, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if video.Transcription != nil {
		return *video.Transcription, nil
	}
	if s.archive == nil {
		return "", domain.NotFound("transcript", id)
	}
	text, err := s.archive.Get(ctx, id)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", domain.NotFound("transcript", id)
	}
	if err != nil {
		return "", domain.Upstream(domain.StageStore, err)
	}
	return text, nil
}

// process runs transcription of url then indexing under the video's lock.
// The video takes url only once the lock is held. With reset, it first goes back
// to processing with its transcript cleared.
func (s *VideoService) process(ctx context.Context, video *domain.Video, url string, reset bool) error {
	unlock, err := s.locker.Lock(ctx, lock.VideoKey(video.ID))
	if err != nil {
		return domain.Upstream(domain.StageIndex, fmt.Errorf("failed to lock video: %w", err))
	}
	defer unlock()

	video.URL = url
	start := time.Now()
	if reset {
		video.Status = domain.VideoStatusProcessing
		video.Transcription = nil
		video.ErrorMessage = ""
		if err := s.videos.Update(ctx, video); err != nil {
			return storeErr(err)
		}
	}

	tctx, cancel := withTimeout(ctx, s.cfg.TranscribeTimeout)
	transcript, err := s.transcriber.Transcribe(tctx, video.URL)
	cancel()
	if err != nil {
		return s.fail(ctx, video, domain.Upstream(domain.StageTranscribe, err))
	}

	chunks, err := s.index(ctx, video, transcript)
	if err != nil {
		return s.fail(ctx, video, err)
	}

	text := transcript.Text
	video.Transcription = &text
	video.Status = domain.VideoStatusCompleted
	video.ErrorMessage = ""
	applySourceInfo(video, transcript)
	if err := s.videos.Update(ctx, video); err != nil {
		return storeErr(err)
	}

	if s.archive != nil {
		if err := s.archive.Put(ctx, video.ID, text); err != nil {
			s.log(ctx).WithError(err).Warn("Transcript archive failed")
		}
	}

	logger.Metric(ctx, start, logger.Fields{
		logger.FieldCount:  chunks,
		logger.FieldStatus: video.Status,
	}).Info("Video ingested")
	return nil
}

// fail records err on the video as a failed run and returns err.
func (s *VideoService) fail(ctx context.Context, video *domain.Video, err error) error {
	video.Status = domain.VideoStatusFailed
	video.Transcription = nil
	video.ErrorMessage = err.Error()
	if uerr := s.videos.Update(context.WithoutCancel(ctx), video); uerr != nil {
		s.log(ctx).WithError(uerr).Error("Failed to record ingestion failure")
	}
	s.log(ctx).WithError(err).WithField(logger.FieldStage, domain.StageOf(err)).Error("Ingestion failed")
	return err
}

// index replaces the collection's records with the transcript's chunks.
// Zero chunks leave the collection empty and are not an error.
func (s *VideoService) index(ctx context.Context, video *domain.Video, transcript *domain.Transcript) (int, error) {
	ictx, cancel := withTimeout(ctx, s.cfg.IndexTimeout)
	defer cancel()

	if err := s.vectors.Clear(ictx, video.CollectionID); err != nil {
		return 0, domain.Upstream(domain.StageIndex, err)
	}

	chunks := contentChunks(s.splitter.Split(transcript.Text))
	if len(chunks) == 0 {
		s.log(ctx).Warn("Transcript produced no chunks, collection left empty")
		return 0, nil
	}
	s.log(ctx).WithField(logger.FieldCount, len(chunks)).Debug("Transcript chunked")

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	ectx, ecancel := withTimeout(ctx, s.cfg.EmbedTimeout)
	vectors, err := s.embedder.EmbedBatch(ectx, texts)
	ecancel()
	if err != nil {
		return 0, domain.Upstream(domain.StageEmbed, err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.Upstream(domain.StageEmbed,
			fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(chunks)))
	}

	if err := s.vectors.Add(ictx, video.CollectionID, buildRecords(video.ID, transcript, chunks, vectors)); err != nil {
		return 0, domain.Upstream(domain.StageIndex, err)
	}
	return len(chunks), nil
}

// contentChunks drops whitespace-only chunks and renumbers the rest contiguously.
func contentChunks(chunks []chunker.Chunk) []chunker.Chunk {
	kept := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		c.Index = len(kept)
		kept = append(kept, c)
	}
	return kept
}

// buildRecords pairs chunks with their vectors and citation metadata.
func buildRecords(videoID string, transcript *domain.Transcript, chunks []chunker.Chunk, vectors [][]float32) []repository.VectorRecord {
	total := strconv.Itoa(len(chunks))
	records := make([]repository.VectorRecord, len(chunks))
	for i, c := range chunks {
		meta := map[string]string{
			MetaVideoID:     videoID,
			MetaChunkIndex:  strconv.Itoa(c.Index),
			MetaTotalChunks: total,
			MetaSource:      chunkSource,
		}
		if startSec, ok := transcript.StartAt(c.Start); ok {
			meta[MetaTimestamp] = domain.FormatTimestamp(startSec)
		}
		records[i] = repository.VectorRecord{
			ID:        "chunk_" + strconv.Itoa(c.Index),
			Text:      c.Text,
			Embedding: vectors[i],
			Metadata:  meta,
		}
	}
	return records
}

// applySourceInfo fills fields the caller left empty from downloader metadata.
func applySourceInfo(video *domain.Video, transcript *domain.Transcript) {
	if video.Title == "" {
		video.Title = transcript.Title
	}
	if video.Description == "" {
		video.Description = transcript.Description
	}
	if transcript.Duration > 0 {
		d := int(transcript.Duration)
		video.Duration = &d
	}
}
