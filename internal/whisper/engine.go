package whisper

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pengolodh/pengolodh/internal/audio"
	"go.uber.org/zap"
)

// DefaultSilenceThresholdDBFS is the level under which a WAV input is
// treated as silence.
const DefaultSilenceThresholdDBFS = -65.0

type Task int

const (
	TaskTranscribe Task = iota
	// TaskTranslate transcribes into English regardless of the spoken language.
	TaskTranslate
)

func (t Task) String() string {
	switch t {
	case TaskTranscribe:
		return "transcribe"
	case TaskTranslate:
		return "translate"
	default:
		return fmt.Sprintf("task(%d)", int(t))
	}
}

type Request struct {
	AudioPath string
	ModelPath string
	Language  string
	Task      Task
}

type Engine interface {
	Run(ctx context.Context, req Request) (string, error)
}

// Transcriber binds an engine to a model and language and serves both
// speech actions.
type Transcriber struct {
	Engine    Engine
	ModelPath string
	Language  string

	// SilenceGate skips the engine for WAV inputs quieter than
	// SilenceThresholdDBFS and yields an empty text.
	SilenceGate          bool
	SilenceThresholdDBFS float64
	Logger               *zap.Logger
}

func (t *Transcriber) Transcribe(ctx context.Context, inputPath string) (string, error) {
	return t.run(ctx, inputPath, TaskTranscribe)
}

func (t *Transcriber) Translate(ctx context.Context, inputPath string) (string, error) {
	return t.run(ctx, inputPath, TaskTranslate)
}

func (t *Transcriber) run(ctx context.Context, inputPath string, task Task) (string, error) {
	if t.Engine == nil {
		return "", fmt.Errorf("whisper %s: no engine configured", task)
	}

	if t.silent(inputPath) {
		return "", nil
	}

	return t.Engine.Run(ctx, Request{
		AudioPath: inputPath,
		ModelPath: t.ModelPath,
		Language:  SanitizeLanguage(t.Language),
		Task:      task,
	})
}

func (t *Transcriber) silent(inputPath string) bool {
	if !t.SilenceGate || !strings.EqualFold(filepath.Ext(inputPath), ".wav") {
		return false
	}

	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	_, levels, err := audio.MeasureWAV(inputPath)
	if err != nil {
		logger.Warn("silence gate analysis failed; running engine", zap.String("audio", inputPath), zap.Error(err))
		return false
	}
	if !levels.Silent(t.SilenceThresholdDBFS) {
		return false
	}

	logger.Info("audio considered silent; skipping engine",
		zap.String("audio", inputPath),
		zap.Float64("rms_dbfs", levels.RMS),
		zap.Float64("peak_dbfs", levels.Peak),
		zap.Float64("threshold_dbfs", t.SilenceThresholdDBFS),
	)
	return true
}

func SanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return "auto"
	}
	return trimmed
}
