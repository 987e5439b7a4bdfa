package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tacticalblog/pieces/internal/embedding"
	"github.com/tacticalblog/pieces/internal/llm"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
)

func TestBuildProgressBar(t *testing.T) {
	tests := []struct {
		current, total, width int
		want                  string
	}{
		{0, 10, 10, ">         "},
		{5, 10, 10, "=====>    "},
		{10, 10, 10, "=========="},
		{3, 0, 4, "    "},
	}
	for _, tt := range tests {
		got := buildProgressBar(tt.current, tt.total, tt.width)
		if got != tt.want {
			t.Errorf("buildProgressBar(%d, %d, %d) = %q, want %q", tt.current, tt.total, tt.width, got, tt.want)
		}
		if len(got) != tt.width {
			t.Errorf("buildProgressBar(%d, %d, %d) has width %d", tt.current, tt.total, tt.width, len(got))
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{125 * time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"déjà vu encore", 8, "déjà ..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("  first line\n\nsecond\tline  "); got != "first line second line" {
		t.Errorf("oneLine() = %q", got)
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"missing credential", fmt.Errorf("wrap: %w", embedding.ErrMissingCredential), ExitConfigError},
		{"missing llm key", llm.ErrMissingAPIKey, ExitConfigError},
		{"store missing", semantic.ErrStoreMissing, ExitConfigError},
		{"store empty", semantic.ErrStoreEmpty, ExitConfigError},
		{"unsupported version", semantic.ErrUnsupportedVersion, ExitConfigError},
		{"corpus unavailable", piece.ErrCorpusUnavailable, ExitConfigError},
		{"invalid document", &piece.InvalidDocumentError{File: "a.md", Field: "id"}, ExitDataError},
		{"batch mismatch", semantic.ErrBatchMismatch, ExitDataError},
		{"dimension mismatch", semantic.ErrDimensionMismatch, ExitDataError},
		{"model mismatch", semantic.ErrModelMismatch, ExitDataError},
		{"provider", &embedding.ProviderError{Provider: "huggingface", StatusCode: 503}, ExitProviderError},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
