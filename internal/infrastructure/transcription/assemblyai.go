// Package transcription turns recorded voice questions into text.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
)

// ErrNotConfigured is returned when no AssemblyAI key is set.
var ErrNotConfigured = errors.New("transcription not configured")

// AssemblyAITranscriber transcribes audio URLs through AssemblyAI.
type AssemblyAITranscriber struct {
	client  *assemblyai.Client
	timeout time.Duration
	logger  *logging.ChanneledLogger
}

// NewAssemblyAITranscriber returns a transcriber; with an empty key every call
// fails with ErrNotConfigured.
func NewAssemblyAITranscriber(apiKey, baseURL string, timeout time.Duration, logger *logging.ChanneledLogger) *AssemblyAITranscriber {
	t := &AssemblyAITranscriber{timeout: timeout, logger: logger}
	if timeout <= 0 {
		t.timeout = 2 * time.Minute
	}
	if apiKey == "" {
		return t
	}
	opts := []assemblyai.ClientOption{assemblyai.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, assemblyai.WithBaseURL(baseURL))
	}
	t.client = assemblyai.NewClientWithOptions(opts...)
	return t
}

// Transcribe returns the text spoken in the audio at audioURL. An empty
// language enables automatic language detection.
func (t *AssemblyAITranscriber) Transcribe(ctx context.Context, audioURL, language string) (string, error) {
	if t.client == nil {
		return "", ErrNotConfigured
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	params := &assemblyai.TranscriptOptionalParams{}
	if language != "" {
		params.LanguageCode = assemblyai.TranscriptLanguageCode(language)
	} else {
		params.LanguageDetection = assemblyai.Bool(true)
	}

	t.logger.AI().Debug("Submitting audio for transcription", "language", language)
	transcript, err := t.client.Transcripts.TranscribeFromURL(ctx, audioURL, params)
	if err != nil {
		t.logger.AI().Error("Transcription failed", "error", err.Error(), "duration", time.Since(start))
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	if transcript.Status == assemblyai.TranscriptStatusError {
		reason := assemblyai.ToString(transcript.Error)
		t.logger.AI().Error("Transcription rejected", "reason", reason)
		return "", fmt.Errorf("transcription error: %s", reason)
	}

	text := strings.TrimSpace(assemblyai.ToString(transcript.Text))
	t.logger.AI().Info("Transcription completed", "duration", time.Since(start), "chars", len(text))
	return text, nil
}
