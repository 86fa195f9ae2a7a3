package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/timmy/videoqa/internal/config"
	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/lock"
	"github.com/timmy/videoqa/internal/repository"
	"gorm.io/gorm"
)

const (
	catsURL = "https://www.youtube.com/watch?v=aaaaaaaaaaa"
	dogsURL = "https://www.youtube.com/watch?v=bbbbbbbbbbb"
	badURL  = "https://www.youtube.com/watch?v=ccccccccccc"
)

var errUpstream = errors.New("upstream unavailable")

// fakeTranscriber returns canned transcripts keyed by URL.
type fakeTranscriber struct {
	mu      sync.Mutex
	results map[string]string
	calls   int
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{results: map[string]string{
		catsURL: "Cats are mammals. Dogs are mammals too.",
		dogsURL: "Parrots can talk. Goldfish swim slowly.",
	}}
}

func (f *fakeTranscriber) set(url, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[url] = text
}

func (f *fakeTranscriber) ValidateURL(url string) error {
	if !ValidateYouTubeURL(url) {
		return domain.Validation("invalid YouTube URL: %s", url)
	}
	return nil
}

func (f *fakeTranscriber) Transcribe(_ context.Context, url string) (*domain.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	text, ok := f.results[url]
	if !ok {
		return nil, domain.Upstream(domain.StageDownload, errUpstream)
	}
	return &domain.Transcript{Text: text, Title: "fetched title"}, nil
}

// bagOfWords embeds text as word counts over a vocabulary grown on first sight.
// The last dimension is a constant bias so no vector is all zeros.
type bagOfWords struct {
	mu    sync.Mutex
	vocab map[string]int
	fail  bool
	calls int
}

const bagDims = 64

func newBagOfWords() *bagOfWords {
	return &bagOfWords{vocab: make(map[string]int)}
}

func (b *bagOfWords) vector(text string) []float32 {
	v := make([]float32, bagDims)
	v[bagDims-1] = 1
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		idx, ok := b.vocab[w]
		if !ok {
			idx = len(b.vocab) % (bagDims - 1)
			b.vocab[w] = idx
		}
		v[idx]++
	}
	return v
}

func (b *bagOfWords) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.fail {
		return nil, errUpstream
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = b.vector(t)
	}
	return out, nil
}

func (b *bagOfWords) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.fail {
		return nil, errUpstream
	}
	return b.vector(text), nil
}

func (b *bagOfWords) setFail(fail bool) {
	b.mu.Lock()
	b.fail = fail
	b.mu.Unlock()
}

// fakeCompleter echoes the prompt it received.
type fakeCompleter struct {
	system string
	user   string
	err    error
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.system, f.user = system, user
	return "Cats are mammals [Segment 0].", nil
}

// failingVideoStore rejects Create while delegating everything else.
type failingVideoStore struct {
	VideoStore
}

func (failingVideoStore) Create(context.Context, *domain.Video) error {
	return errUpstream
}

type testEnv struct {
	db          *gorm.DB
	videoRepo   *repository.VideoRepository
	historyRepo *repository.QAHistoryRepository
	vectors     *repository.ChromemRepository
	transcriber *fakeTranscriber
	embedder    *bagOfWords
	completer   *fakeCompleter
	videos      *VideoService
	qa          *QAService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		AutoMigrate:  true,
	}, nil)
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	vectors, err := repository.NewChromemRepository(nil)
	if err != nil {
		t.Fatalf("NewChromemRepository() error = %v", err)
	}

	env := &testEnv{
		db:          db,
		videoRepo:   repository.NewVideoRepository(db),
		historyRepo: repository.NewQAHistoryRepository(db),
		vectors:     vectors,
		transcriber: newFakeTranscriber(),
		embedder:    newBagOfWords(),
		completer:   &fakeCompleter{},
	}
	env.videos = env.newVideoService(t, env.videoRepo)
	env.qa = NewQAService(env.videoRepo, env.historyRepo, vectors, env.embedder, env.completer, nil, &QAConfig{
		TopK:                  3,
		PlaceholderEnabled:    true,
		PlaceholderAnswer:     "reponse",
		PlaceholderConfidence: 0.95,
	})
	return env
}

func (e *testEnv) newVideoService(t *testing.T, videos VideoStore) *VideoService {
	t.Helper()
	svc, err := NewVideoService(videos, e.vectors, e.transcriber, e.embedder, lock.NewMemory(), nil, nil, &VideoConfig{
		ChunkSize:    22,
		ChunkOverlap: 4,
	})
	if err != nil {
		t.Fatalf("NewVideoService() error = %v", err)
	}
	return svc
}

func (e *testEnv) collectionTexts(t *testing.T, collectionID string) []string {
	t.Helper()
	ctx := context.Background()
	n, err := e.vectors.Count(ctx, collectionID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n == 0 {
		return nil
	}
	q, _ := e.embedder.EmbedQuery(ctx, "")
	matches, err := e.vectors.Query(ctx, collectionID, q, n)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return texts
}
