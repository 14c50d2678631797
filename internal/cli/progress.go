package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pengolodh/pengolodh/internal/dispatch"
	"github.com/schollz/progressbar/v3"
)

type stopFunc func()

func startSpinner(enabled bool, out io.Writer, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

func withSpinner(enabled bool, out io.Writer, description string, fn func() (string, error)) (string, error) {
	stop := startSpinner(enabled, out, description)
	defer stop()
	return fn()
}

type spinningTranscriber struct {
	inner   dispatch.AudioTranscriber
	out     io.Writer
	enabled bool
}

func (s spinningTranscriber) Transcribe(ctx context.Context, inputPath string) (string, error) {
	return withSpinner(s.enabled, s.out, "Transcribing", func() (string, error) {
		return s.inner.Transcribe(ctx, inputPath)
	})
}

func (s spinningTranscriber) Translate(ctx context.Context, inputPath string) (string, error) {
	return withSpinner(s.enabled, s.out, "Translating", func() (string, error) {
		return s.inner.Translate(ctx, inputPath)
	})
}

type spinningLanguageModel struct {
	inner   dispatch.LanguageModel
	out     io.Writer
	enabled bool
}

func (s spinningLanguageModel) Query(ctx context.Context, text string) (string, error) {
	return withSpinner(s.enabled, s.out, "Thinking", func() (string, error) {
		return s.inner.Query(ctx, text)
	})
}
