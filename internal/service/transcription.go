package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/videoqa/internal/config"
	"github.com/timmy/videoqa/internal/domain"
	"github.com/timmy/videoqa/internal/logger"
	"github.com/timmy/videoqa/internal/prompts"
)

var youtubeURLPattern = regexp.MustCompile(
	`^(https?://)?(www\.)?(youtube|youtu|youtube-nocookie)\.(com|be)/(watch\?v=|embed/|v/|.+\?v=)?([^&=%?]{11})`,
)

// ValidateYouTubeURL reports whether url points at a YouTube video.
func ValidateYouTubeURL(url string) bool {
	return youtubeURLPattern.MatchString(strings.TrimSpace(url))
}

// Transcriber turns a video URL into a transcript.
type Transcriber interface {
	// ValidateURL rejects unsupported sources without any network I/O.
	ValidateURL(url string) error
	Transcribe(ctx context.Context, url string) (*domain.Transcript, error)
}

// SourceInfo is metadata reported by the downloader.
type SourceInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

// AudioDownloader fetches the audio track of url into dir.
type AudioDownloader interface {
	Download(ctx context.Context, url, dir string) (audioPath string, info *SourceInfo, err error)
}

// YtDlpDownloader shells out to yt-dlp and extracts mp3 audio.
type YtDlpDownloader struct {
	binary string
}

// NewYtDlpDownloader creates a downloader using the given yt-dlp binary.
func NewYtDlpDownloader(binary string) *YtDlpDownloader {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlpDownloader{binary: binary}
}

// Download runs yt-dlp and returns the path of the extracted audio file.
func (d *YtDlpDownloader) Download(ctx context.Context, url, dir string) (string, *SourceInfo, error) {
	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "5",
		"--no-playlist",
		"--no-progress",
		"--no-simulate",
		"--dump-json",
		"--output", filepath.Join(dir, "%(id)s.%(ext)s"),
		url,
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", nil, fmt.Errorf("yt-dlp failed: %w: %s", err, tail(stderr.String(), 500))
	}

	var info SourceInfo
	if line := firstLine(stdout.Bytes()); len(line) > 0 {
		if err := json.Unmarshal(line, &info); err != nil {
			return "", nil, fmt.Errorf("failed to parse yt-dlp metadata: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read download directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".mp3") {
			return filepath.Join(dir, e.Name()), &info, nil
		}
	}
	return "", nil, errors.New("yt-dlp produced no audio file")
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return bytes.TrimSpace(b)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// WhisperTranscriber downloads audio and sends it to an OpenAI-compatible transcription endpoint.
type WhisperTranscriber struct {
	downloader AudioDownloader
	client     *resty.Client
	endpoint   string
	model      string
	workDir    string
	logger     *logger.Logger
}

// NewWhisperTranscriber creates a transcriber.
// Parameters:
//   - downloader: audio fetcher; nil uses yt-dlp from cfg.YtDlpPath.
//   - log: fallback logger.
//   - cfg: transcription model, endpoint and work directory.
// Returns:
//   - *WhisperTranscriber: ready-to-use transcriber.
func NewWhisperTranscriber(downloader AudioDownloader, log *logger.Logger, cfg *config.TranscriptionConfig) *WhisperTranscriber {
	if downloader == nil {
		downloader = NewYtDlpDownloader(cfg.YtDlpPath)
	}
	if log == nil {
		log = logger.GetDefault()
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &WhisperTranscriber{
		downloader: downloader,
		client:     client,
		endpoint:   baseURL + "/audio/transcriptions",
		model:      cfg.Model,
		workDir:    cfg.WorkDir,
		logger:     log,
	}
}

func (t *WhisperTranscriber) log(ctx context.Context) *logger.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return t.logger
}

// ValidateURL rejects anything that is not a YouTube video URL.
func (t *WhisperTranscriber) ValidateURL(url string) error {
	if !ValidateYouTubeURL(url) {
		return domain.Validation("invalid YouTube URL: %s", url)
	}
	return nil
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe validates url, downloads its audio to a scratch directory, and transcribes it.
// Parameters:
//   - ctx: context bounding download and upload.
//   - url: YouTube video URL.
// Returns:
//   - *domain.Transcript: text, timed segments and source metadata.
//   - error: Validation for a bad URL, Upstream with stage download or transcribe otherwise.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, url string) (*domain.Transcript, error) {
	if err := t.ValidateURL(url); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(t.workDir, "videoqa-audio-*")
	if err != nil {
		return nil, domain.Upstream(domain.StageDownload, fmt.Errorf("failed to create work directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			t.log(ctx).WithError(err).Warn("Failed to clean up audio directory")
		}
	}()

	audioPath, info, err := t.downloader.Download(ctx, url, dir)
	if err != nil {
		return nil, domain.Upstream(domain.StageDownload, err)
	}
	t.log(ctx).WithField("path", filepath.Base(audioPath)).Debug("Audio downloaded")

	var resp whisperResponse
	httpResp, err := t.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(map[string]string{
			"model":           t.model,
			"response_format": "verbose_json",
			"prompt":          prompts.WhisperPrompt,
		}).
		SetResult(&resp).
		SetError(&resp).
		Post(t.endpoint)
	if err != nil {
		return nil, domain.Upstream(domain.StageTranscribe, fmt.Errorf("failed to call transcription API: %w", err))
	}
	if httpResp.StatusCode() != http.StatusOK {
		msg := fmt.Sprintf("HTTP %d", httpResp.StatusCode())
		if resp.Error != nil && resp.Error.Message != "" {
			msg += ": " + resp.Error.Message
		}
		return nil, domain.Upstream(domain.StageTranscribe, fmt.Errorf("transcription API returned error: %s", msg))
	}

	var transcript *domain.Transcript
	if len(resp.Segments) > 0 {
		segments := make([]domain.TranscriptSegment, len(resp.Segments))
		for i, s := range resp.Segments {
			segments[i] = domain.TranscriptSegment{Start: s.Start, End: s.End, Text: s.Text}
		}
		transcript = domain.NewTranscript(segments)
	} else {
		transcript = &domain.Transcript{Text: strings.TrimSpace(resp.Text)}
	}
	if transcript.Text == "" {
		t.log(ctx).Warn("Transcription produced no text")
	}

	transcript.Duration = resp.Duration
	if info != nil {
		transcript.Title = info.Title
		transcript.Description = info.Description
		if info.Duration > 0 {
			transcript.Duration = info.Duration
		}
	}
	return transcript, nil
}
