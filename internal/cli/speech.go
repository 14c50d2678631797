package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pengolodh/pengolodh/internal/command"
	"github.com/pengolodh/pengolodh/internal/config"
	"github.com/pengolodh/pengolodh/internal/dispatch"
	"github.com/pengolodh/pengolodh/internal/download"
	"github.com/pengolodh/pengolodh/internal/platform"
	"github.com/pengolodh/pengolodh/internal/whisper"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type speechFlags struct {
	model        string
	modelDir     string
	language     string
	autoDownload bool
	silenceGate  bool
	silenceDBFS  float64
}

// apply overrides cfg with the flags given on the command line.
func (f speechFlags) apply(cmd *cobra.Command, cfg *config.Speech) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("model-dir") {
		cfg.ModelDir = f.modelDir
	}
	if flags.Changed("language") {
		cfg.Language = whisper.SanitizeLanguage(f.language)
	}
	if flags.Changed("auto-download") {
		cfg.AutoDownload = f.autoDownload
	}
	if flags.Changed("silence-gate") {
		cfg.SilenceGate = f.silenceGate
	}
	if flags.Changed("silence-threshold-dbfs") {
		cfg.SilenceThresholdDBFS = f.silenceDBFS
	}
}

func newSpeechCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     string(command.FamilySpeech),
		Aliases: []string{"whisper"},
		Short:   "Whisper tasks",
		GroupID: familyGroup,
		Args:    subcommandArgs,
		RunE:    missingSubcommand,
	}
	cmd.AddGroup(&cobra.Group{ID: actionGroup, Title: "Actions:"})

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.speech.model, "model", whisper.DefaultModel, "Whisper model name or model file path (with --execute)")
	flags.StringVar(&app.speech.modelDir, "model-dir", "", "Directory where whisper models are stored (with --execute)")
	flags.StringVar(&app.speech.language, "language", "auto", "Spoken language code (auto|en|de|...) (with --execute)")
	flags.BoolVar(&app.speech.autoDownload, "auto-download", false, "Download a missing named model (with --execute)")
	flags.BoolVar(&app.speech.silenceGate, "silence-gate", true, "Skip whisper for near-silent WAV input (with --execute)")
	flags.Float64Var(&app.speech.silenceDBFS, "silence-threshold-dbfs", whisper.DefaultSilenceThresholdDBFS, "Silence gate threshold in dBFS (with --execute)")

	cmd.AddCommand(newSpeechTaskCmd(app, speechTask{
		name:    "transcribe",
		short:   "Transcribe Audio File",
		inHelp:  "Path to audio file to transcribe",
		outHelp: "Path to write the transcription to",
		build: func(in, out string) command.Command {
			return command.Transcribe{InputPath: in, OutputPath: out}
		},
	}))
	cmd.AddCommand(newSpeechTaskCmd(app, speechTask{
		name:    "translate",
		short:   "Translate Audio File",
		inHelp:  "Path to audio file to translate",
		outHelp: "Path to write the English translation to",
		build: func(in, out string) command.Command {
			return command.Translate{InputPath: in, OutputPath: out}
		},
	}))

	return cmd
}

type speechTask struct {
	name    string
	short   string
	inHelp  string
	outHelp string
	build   func(in, out string) command.Command
}

func newSpeechTaskCmd(app *appState, task speechTask) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:     task.name + " --in <audio-file> --out <text-file>",
		Short:   task.short,
		GroupID: actionGroup,
		Args:    noPositionalArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePaths(cmd, map[string]string{"in": in, "out": out}, "in", "out"); err != nil {
				return err
			}
			return app.dispatch(cmd, task.build(in, out))
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", task.inHelp+" (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", task.outHelp+" (required)")
	return cmd
}

func (a *appState) newTranscriber(ctx context.Context, cfg config.Speech, progress io.Writer) (dispatch.AudioTranscriber, error) {
	modelDir, err := platform.ResolveModelDir(cfg.ModelDir)
	if err != nil {
		a.log().Debug("no default model directory", zap.Error(err))
	}

	model, err := a.ensureModel(ctx, cfg, modelDir, progress)
	if err != nil {
		return nil, err
	}

	engine, err := whisper.NewBundledEngine(cfg.Engine, a.log())
	if err != nil {
		return nil, err
	}

	a.log().Info("using whisper model", zap.String("model", model.Path), zap.String("engine", engine.Executable), zap.String("language", cfg.Language))
	return &whisper.Transcriber{
		Engine:               engine,
		ModelPath:            model.Path,
		Language:             cfg.Language,
		SilenceGate:          cfg.SilenceGate,
		SilenceThresholdDBFS: cfg.SilenceThresholdDBFS,
		Logger:               a.log(),
	}, nil
}

// ensureModel resolves the configured model and, when allowed, downloads a
// missing named model into the model directory.
func (a *appState) ensureModel(ctx context.Context, cfg config.Speech, modelDir string, progress io.Writer) (whisper.ResolvedModel, error) {
	model, err := whisper.ResolveModel(cfg.Model, modelDir)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, whisper.ErrModelMissing) || !cfg.AutoDownload {
		return whisper.ResolvedModel{}, err
	}

	url := whisper.ModelURL(filepath.Base(model.Path), cfg.Mirror)
	a.log().Info("model not found, downloading", zap.String("model", model.Name), zap.String("url", url), zap.String("destination", model.Path))

	fetcher := &download.Fetcher{Logger: a.log(), Progress: progress}
	if err := fetcher.Fetch(ctx, download.Request{URL: url, Destination: model.Path, SHA256: model.SHA256}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", model.Name, err)
	}
	return model, nil
}
