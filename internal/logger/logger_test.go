package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(buf *bytes.Buffer, format string) *Logger {
	return New(&Options{Level: "debug", Format: format, Output: buf, ServiceName: "videoqa-test"})
}

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf, "json").WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = SetVideo(ctx, "vid-1", "video_col")

	CtxInfo(ctx, "indexed %d chunks", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	want := map[string]string{
		"message":         "indexed 3 chunks",
		"service":         "videoqa-test",
		FieldRequestID:    "req-1",
		FieldVideoID:      "vid-1",
		FieldCollectionID: "video_col",
		"level":           "info",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("field %q = %v, want %q", k, entry[k], v)
		}
	}
	if GetRequestID(ctx) != "req-1" {
		t.Errorf("GetRequestID() = %q, want %q", GetRequestID(ctx), "req-1")
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("empty context should yield the default logger")
	}
	if FromContext(nil) != GetDefault() {
		t.Error("nil context should yield the default logger")
	}
}

func TestMetricAddsDuration(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf, "text").WithContext(context.Background())

	Metric(ctx, time.Now().Add(-5*time.Millisecond), Fields{FieldCount: 2}).Info("done")

	out := buf.String()
	for _, want := range []string{"duration_ms=", "count=2", "msg=done"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Options{Level: "warn", Format: "json", Output: &buf})
	ctx := l.WithContext(context.Background())

	CtxInfo(ctx, "hidden")
	CtxWarn(ctx, "shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message missing")
	}
}
