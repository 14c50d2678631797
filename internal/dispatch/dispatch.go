package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pengolodh/pengolodh/internal/command"
	"go.uber.org/zap"
)

// AudioTranscriber is the speech model collaborator.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, inputPath string) (string, error)
	Translate(ctx context.Context, inputPath string) (string, error)
}

// LanguageModel is the language model collaborator.
type LanguageModel interface {
	Query(ctx context.Context, text string) (string, error)
}

type Option func(*Dispatcher)

func WithTranscriber(t AudioTranscriber) Option {
	return func(d *Dispatcher) { d.transcriber = t }
}

func WithLanguageModel(m LanguageModel) Option {
	return func(d *Dispatcher) { d.model = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher prints what a command does and, when the matching collaborator
// is attached, runs it.
type Dispatcher struct {
	out         io.Writer
	logger      *zap.Logger
	transcriber AudioTranscriber
	model       LanguageModel
}

func New(out io.Writer, opts ...Option) *Dispatcher {
	if out == nil {
		out = os.Stdout
	}

	d := &Dispatcher{out: out, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, c command.Command) error {
	if c == nil {
		return errors.New("no command to dispatch")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := fmt.Fprintln(d.out, Describe(c)); err != nil {
		return fmt.Errorf("write description: %w", err)
	}

	return c.Accept(ctx, runner{d})
}

// Describe returns the one-line summary of c.
func Describe(c command.Command) string {
	var d describer
	_ = c.Accept(context.Background(), &d)
	return d.line
}

type describer struct {
	line string
}

func (d *describer) VisitTranscribe(_ context.Context, c command.Transcribe) error {
	d.line = fmt.Sprintf("Transcribing %q => %q", c.InputPath, c.OutputPath)
	return nil
}

func (d *describer) VisitTranslate(_ context.Context, c command.Translate) error {
	d.line = fmt.Sprintf("Translating %q => %q", c.InputPath, c.OutputPath)
	return nil
}

func (d *describer) VisitQuery(_ context.Context, c command.Query) error {
	d.line = fmt.Sprintf("Querying: %q", c.Text)
	return nil
}

type runner struct {
	d *Dispatcher
}

func (r runner) VisitTranscribe(ctx context.Context, c command.Transcribe) error {
	if r.d.transcriber == nil {
		r.d.logger.Debug("no speech model attached; nothing to run", zap.String("action", "transcribe"))
		return nil
	}

	text, err := r.d.transcriber.Transcribe(ctx, c.InputPath)
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", c.InputPath, err)
	}
	return r.d.writeResult(c.OutputPath, text)
}

func (r runner) VisitTranslate(ctx context.Context, c command.Translate) error {
	if r.d.transcriber == nil {
		r.d.logger.Debug("no speech model attached; nothing to run", zap.String("action", "translate"))
		return nil
	}

	text, err := r.d.transcriber.Translate(ctx, c.InputPath)
	if err != nil {
		return fmt.Errorf("translate %s: %w", c.InputPath, err)
	}
	return r.d.writeResult(c.OutputPath, text)
}

func (r runner) VisitQuery(ctx context.Context, c command.Query) error {
	if r.d.model == nil {
		r.d.logger.Debug("no language model attached; nothing to run", zap.String("action", "query"))
		return nil
	}

	answer, err := r.d.model.Query(ctx, c.Text)
	if err != nil {
		return fmt.Errorf("query language model: %w", err)
	}

	if _, err := fmt.Fprintln(r.d.out, strings.TrimSpace(answer)); err != nil {
		return fmt.Errorf("write answer: %w", err)
	}
	return nil
}

func (d *Dispatcher) writeResult(path, text string) error {
	path = filepath.Clean(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	content := strings.TrimSpace(text) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	d.logger.Info("output written", zap.String("path", path), zap.Int("bytes", len(content)))
	return nil
}
