package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/logger"
	"github.com/timmy/videoqa/internal/prompts"
	"github.com/timmy/videoqa/internal/repository"
)

// VideoGetter resolves a video by ID.
type VideoGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Video, error)
}

// HistoryStore appends and lists QA history entries.
type HistoryStore interface {
	Create(ctx context.Context, entry *domain.QAHistory) error
	ListByVideo(ctx context.Context, videoID string) ([]domain.QAHistory, error)
}

// QAConfig holds configuration for the QA engine.
type QAConfig struct {
	TopK              int
	EmbedTimeout      time.Duration
	RetrieveTimeout   time.Duration
	CompletionTimeout time.Duration

	PlaceholderEnabled    bool
	PlaceholderAnswer     string
	PlaceholderConfidence float64
}

// QAService answers questions about a video from its indexed transcript.
// It reads collections and appends history; it never changes a video.
type QAService struct {
	videos    VideoGetter
	history   HistoryStore
	vectors   repository.VectorStore
	embedder  Embedder
	completer Completer
	logger    *logger.Logger
	cfg       QAConfig
}

// NewQAService creates a new QA service.
// Parameters:
//   - videos: resolves video IDs to collections.
//   - history: QA history store.
//   - vectors: vector collection store, read only.
//   - embedder: embeds questions.
//   - completer: generates answers.
//   - log: fallback logger.
//   - cfg: retrieval size, timeouts and placeholder mode.
//
// Returns:
//   - *QAService: initialized QA engine.
func NewQAService(
	videos VideoGetter,
	history HistoryStore,
	vectors repository.VectorStore,
	embedder Embedder,
	completer Completer,
	log *logger.Logger,
	cfg *QAConfig,
) *QAService {
	c := *cfg
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &QAService{
		videos:    videos,
		history:   history,
		vectors:   vectors,
		embedder:  embedder,
		completer: completer,
		logger:    log.WithField(logger.FieldComponent, "qa"),
		cfg:       c,
	}
}

// log returns a logger from context if available, otherwise returns the service logger
func (s *QAService) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return s.logger
}

func (s *QAService) resolve(ctx context.Context, videoID string) (*domain.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, storeErr(err)
	}
	return video, nil
}

// Ask answers question from the video's top-k most similar chunks and records the exchange.
// Parameters:
//   - ctx: request context.
//   - videoID: video to ask about.
//   - question: non-empty question text.
//
// Returns:
//   - *domain.QAHistory: the persisted entry carrying answer and context.
//   - error: Validation for an empty question, NotFound for an unknown video,
//     Upstream(embed|retrieve|generate|store) otherwise; no entry is written on error.
func (s *QAService) Ask(ctx context.Context, videoID, question string) (*domain.QAHistory, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.Validation("question must not be empty")
	}

	start := time.Now()
	video, err := s.resolve(ctx, videoID)
	if err != nil {
		return nil, err
	}
	ctx = s.log(ctx).WithFields(logger.Fields{
		logger.FieldVideoID:      video.ID,
		logger.FieldCollectionID: video.CollectionID,
	}).WithContext(ctx)

	ectx, cancel := withTimeout(ctx, s.cfg.EmbedTimeout)
	embedding, err := s.embedder.EmbedQuery(ectx, question)
	cancel()
	if err != nil {
		return nil, s.upstream(ctx, domain.StageEmbed, err)
	}

	rctx, cancel := withTimeout(ctx, s.cfg.RetrieveTimeout)
	matches, err := s.vectors.Query(rctx, video.CollectionID, embedding, s.cfg.TopK)
	cancel()
	if err != nil {
		return nil, s.upstream(ctx, domain.StageRetrieve, err)
	}

	contextText := FormatContext(matches)
	if contextText == "" {
		s.log(ctx).Warn("No context found for the question")
		contextText = prompts.NoContextMarker
	}

	gctx, cancel := withTimeout(ctx, s.cfg.CompletionTimeout)
	answer, err := s.completer.Complete(gctx, prompts.QASystemPrompt, prompts.BuildQAUserPrompt(contextText, question))
	cancel()
	if err != nil {
		return nil, s.upstream(ctx, domain.StageGenerate, err)
	}

	entry := &domain.QAHistory{
		ID:       uuid.NewString(),
		VideoID:  video.ID,
		Question: question,
		Answer:   answer,
		Context:  contextText,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return nil, s.upstream(ctx, domain.StageStore, err)
	}

	logger.Metric(ctx, start, logger.Fields{logger.FieldCount: len(matches)}).Info("Question answered")
	return entry, nil
}

func (s *QAService) upstream(ctx context.Context, stage domain.Stage, err error) error {
	s.log(ctx).WithError(err).WithField(logger.FieldStage, stage).Error("QA failed")
	return domain.Upstream(stage, err)
}

// History returns a video's QA entries, newest first.
func (s *QAService) History(ctx context.Context, videoID string) ([]domain.QAHistory, error) {
	if _, err := s.resolve(ctx, videoID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByVideo(ctx, videoID)
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// AskPlaceholder is the degraded mode: a fixed answer and confidence with no retrieval.
// It never writes history.
func (s *QAService) AskPlaceholder(ctx context.Context, videoID, question string) (*domain.PlaceholderAnswer, error) {
	if !s.cfg.PlaceholderEnabled {
		return nil, domain.Validation("placeholder QA mode is disabled")
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.Validation("question must not be empty")
	}
	if _, err := s.resolve(ctx, videoID); err != nil {
		return nil, err
	}
	return &domain.PlaceholderAnswer{
		Answer:     s.cfg.PlaceholderAnswer,
		Confidence: s.cfg.PlaceholderConfidence,
		Mode:       domain.PlaceholderMode,
	}, nil
}

// FormatContext renders matches in retrieval order as citable segments.
// It returns "" when there are no matches.
func FormatContext(matches []repository.VectorMatch) string {
	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		index := m.Metadata[MetaChunkIndex]
		if index == "" {
			index = strconv.Itoa(i)
		}
		parts = append(parts, prompts.FormatSegment(index, m.Metadata[MetaTimestamp], m.Text))
	}
	return strings.Join(parts, "\n")
}
