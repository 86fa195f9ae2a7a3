package service

import (
	"context"
	"strings"
	"testing"

	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/prompts"
	"github.com/timmy/videoqa/internal/repository"
)

func TestAskRetrievesMostRelevantChunk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	video, err := env.videos.Create(ctx, CreateVideoInput{URL: catsURL})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	entry, err := env.qa.Ask(ctx, video.ID, "What are cats?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	first := strings.Index(entry.Context, "Cats are mammals.")
	second := strings.Index(entry.Context, "Dogs are mammals too.")
	if first < 0 {
		t.Fatalf("context does not contain the retrieved text:\n%s", entry.Context)
	}
	if second >= 0 && second < first {
		t.Errorf("less relevant chunk ranked first:\n%s", entry.Context)
	}
	if !strings.Contains(entry.Context, "SEGMENT 0") {
		t.Errorf("context is missing the segment header:\n%s", entry.Context)
	}
	if env.completer.system != prompts.QASystemPrompt {
		t.Error("completion did not receive the QA instruction")
	}
	if !strings.Contains(env.completer.user, entry.Context) || !strings.Contains(env.completer.user, "What are cats?") {
		t.Errorf("user prompt missing context or question:\n%s", env.completer.user)
	}

	history, err := env.qa.History(ctx, video.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].ID != entry.ID {
		t.Fatalf("history = %+v, want the new entry", history)
	}
	if history[0].Answer != entry.Answer || history[0].Context != entry.Context {
		t.Error("persisted entry differs from returned entry")
	}
}

func TestAskWithoutChunksUsesMarker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.transcriber.set(catsURL, " ")

	video, err := env.videos.Create(ctx, CreateVideoInput{URL: catsURL})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	entry, err := env.qa.Ask(ctx, video.ID, "Anything?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if entry.Context != prompts.NoContextMarker {
		t.Errorf("context = %q, want the no-context marker", entry.Context)
	}
	if !strings.Contains(env.completer.user, prompts.NoContextMarker) {
		t.Error("marker was not sent to the completion")
	}
	if n, _ := env.historyRepo.CountByVideo(ctx, video.ID); n != 1 {
		t.Errorf("history count = %d, want 1", n)
	}
}

func TestAskFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(env *testEnv)
		videoID   func(v *domain.Video) string
		question  string
		wantKind  domain.ErrorKind
		wantStage domain.Stage
	}{
		{
			name:     "unknown video",
			videoID:  func(*domain.Video) string { return "missing" },
			question: "What are cats?",
			wantKind: domain.KindNotFound,
		},
		{
			name:     "empty question",
			question: "   ",
			wantKind: domain.KindValidation,
		},
		{
			name:      "embedding failure",
			setup:     func(env *testEnv) { env.embedder.setFail(true) },
			question:  "What are cats?",
			wantKind:  domain.KindUpstream,
			wantStage: domain.StageEmbed,
		},
		{
			name:      "completion failure",
			setup:     func(env *testEnv) { env.completer.err = errUpstream },
			question:  "What are cats?",
			wantKind:  domain.KindUpstream,
			wantStage: domain.StageGenerate,
		},
		{
			name: "collection missing",
			setup: func(env *testEnv) {
				for _, name := range env.vectors.ListCollections() {
					_ = env.vectors.DeleteCollection(context.Background(), name)
				}
			},
			question:  "What are cats?",
			wantKind:  domain.KindUpstream,
			wantStage: domain.StageRetrieve,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			video, err := env.videos.Create(ctx, CreateVideoInput{URL: catsURL})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if tt.setup != nil {
				tt.setup(env)
			}
			id := video.ID
			if tt.videoID != nil {
				id = tt.videoID(video)
			}

			entry, err := env.qa.Ask(ctx, id, tt.question)
			if entry != nil {
				t.Errorf("Ask() returned entry %+v on failure", entry)
			}
			if domain.KindOf(err) != tt.wantKind {
				t.Errorf("kind = %q, want %q (err = %v)", domain.KindOf(err), tt.wantKind, err)
			}
			if tt.wantStage != "" && domain.StageOf(err) != tt.wantStage {
				t.Errorf("stage = %q, want %q", domain.StageOf(err), tt.wantStage)
			}
			if n, _ := env.historyRepo.CountByVideo(ctx, video.ID); n != 0 {
				t.Errorf("failed ask wrote %d history entries", n)
			}
		})
	}
}

func TestHistoryUnknownVideo(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.qa.History(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Errorf("History() error = %v, want not found", err)
	}
}

func TestAskPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	video, err := env.videos.Create(ctx, CreateVideoInput{URL: catsURL})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	calls := env.embedder.calls

	got, err := env.qa.AskPlaceholder(ctx, video.ID, "What are cats?")
	if err != nil {
		t.Fatalf("AskPlaceholder() error = %v", err)
	}
	if got.Answer != "reponse" || got.Confidence != 0.95 || got.Mode != domain.PlaceholderMode {
		t.Errorf("AskPlaceholder() = %+v", got)
	}
	if env.embedder.calls != calls {
		t.Error("placeholder mode performed retrieval")
	}
	if n, _ := env.historyRepo.CountByVideo(ctx, video.ID); n != 0 {
		t.Errorf("placeholder mode wrote %d history entries", n)
	}

	if _, err := env.qa.AskPlaceholder(ctx, "missing", "q"); !domain.IsNotFound(err) {
		t.Errorf("AskPlaceholder(missing) error = %v, want not found", err)
	}

	disabled := NewQAService(env.videoRepo, env.historyRepo, env.vectors, env.embedder, env.completer, nil, &QAConfig{})
	if _, err := disabled.AskPlaceholder(ctx, video.ID, "q"); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("disabled AskPlaceholder() error = %v, want validation error", err)
	}
}

func TestFormatContext(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Errorf("FormatContext(nil) = %q, want empty", got)
	}

	got := FormatContext([]repository.VectorMatch{
		{Text: "second", Metadata: map[string]string{MetaChunkIndex: "4", MetaTimestamp: "00:02:10"}},
		{Text: "first", Metadata: map[string]string{MetaChunkIndex: "1"}},
	})
	want := prompts.FormatSegment("4", "00:02:10", "second") + "\n" + prompts.FormatSegment("1", "", "first")
	if got != want {
		t.Errorf("FormatContext() =\n%s\nwant\n%s", got, want)
	}
	if strings.Index(got, "SEGMENT 4") > strings.Index(got, "SEGMENT 1") {
		t.Error("retrieval order not preserved")
	}
	if !strings.Contains(got, "(Timestamp: 00:02:10)") {
		t.Errorf("timestamp missing from header:\n%s", got)
	}
}
