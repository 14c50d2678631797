package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pengolodh/pengolodh/internal/command"
	"github.com/pengolodh/pengolodh/internal/config"
	"github.com/pengolodh/pengolodh/internal/dispatch"
	"github.com/pengolodh/pengolodh/internal/llm"
	"github.com/pengolodh/pengolodh/internal/logging"
	"github.com/pengolodh/pengolodh/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

const (
	familyGroup = "families"
	actionGroup = "actions"
)

// ErrNoCommand is returned by Parse when the arguments asked for help or
// the version instead of an action.
var ErrNoCommand = errors.New("no command selected")

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool
	execute    bool
	configPath string

	speech speechFlags
	lm     languageModelFlags

	logger *zap.Logger

	// dispatchFn receives every successfully parsed command.
	dispatchFn         func(cmd *cobra.Command, c command.Command) error
	newLanguageModelFn func(cfg config.LanguageModel) (dispatch.LanguageModel, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{})
}

// Parse turns args into a Command without logging or dispatching it.
func Parse(args []string) (command.Command, error) {
	var parsed command.Command
	app := &appState{
		dispatchFn: func(_ *cobra.Command, c command.Command) error {
			parsed = c
			return nil
		},
	}

	if args == nil {
		args = []string{}
	}

	root := newRootCmd(app)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.Execute(); err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, ErrNoCommand
	}
	return parsed, nil
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pengolodh",
		Short:         "Dispatch speech and language model tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		Args:          subcommandArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if app.dispatchFn != nil {
				return nil
			}
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs, Writer: cmd.ErrOrStderr()})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
		RunE: missingSubcommand,
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	cmd.SetFlagErrorFunc(flagError)
	cmd.AddGroup(&cobra.Group{ID: familyGroup, Title: "Model Families:"})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&app.verbose, "verbose", false, "Enable verbose logs")
	flags.BoolVar(&app.jsonLogs, "json", false, "Enable JSON logging")
	flags.BoolVar(&app.noProgress, "no-progress", false, "Disable progress indicators")
	flags.BoolVar(&app.execute, "execute", false, "Run the model instead of only describing the action")
	flags.StringVar(&app.configPath, "config", "", "Config file used with --execute (default ./"+config.LocalFileName+" or the user config dir)")

	cmd.AddCommand(newSpeechCmd(app))
	cmd.AddCommand(newLanguageModelCmd(app))

	return cmd
}

func (a *appState) dispatch(cmd *cobra.Command, c command.Command) error {
	if a.dispatchFn != nil {
		return a.dispatchFn(cmd, c)
	}
	return a.runCommand(cmd, c)
}

func (a *appState) runCommand(cmd *cobra.Command, c command.Command) error {
	opts := []dispatch.Option{dispatch.WithLogger(a.log())}
	if a.execute {
		collaborators, err := a.collaborators(cmd, c.Family())
		if err != nil {
			return err
		}
		opts = append(opts, collaborators...)
	}

	a.log().Debug("dispatching command",
		zap.String("family", string(c.Family())),
		zap.Strings("args", c.Args()),
		zap.Bool("execute", a.execute),
	)
	return dispatch.New(cmd.OutOrStdout(), opts...).Dispatch(cmd.Context(), c)
}

func (a *appState) collaborators(cmd *cobra.Command, family command.Family) ([]dispatch.Option, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}

	spinnerOut, spin := a.progressWriter(cmd)

	switch family {
	case command.FamilySpeech:
		a.speech.apply(cmd, &cfg.Speech)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid speech settings: %w", err)
		}
		var downloadProgress io.Writer
		if spin {
			downloadProgress = spinnerOut
		}
		transcriber, err := a.newTranscriber(cmd.Context(), cfg.Speech, downloadProgress)
		if err != nil {
			return nil, err
		}
		return []dispatch.Option{dispatch.WithTranscriber(spinningTranscriber{inner: transcriber, out: spinnerOut, enabled: spin})}, nil
	case command.FamilyLanguageModel:
		a.lm.apply(cmd, &cfg.LanguageModel)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid language model settings: %w", err)
		}
		model, err := a.newLanguageModel(cfg.LanguageModel)
		if err != nil {
			return nil, err
		}
		return []dispatch.Option{dispatch.WithLanguageModel(spinningLanguageModel{inner: model, out: spinnerOut, enabled: spin})}, nil
	default:
		return nil, fmt.Errorf("no collaborator for command family %q", family)
	}
}

func (a *appState) newLanguageModel(cfg config.LanguageModel) (dispatch.LanguageModel, error) {
	if a.newLanguageModelFn != nil {
		return a.newLanguageModelFn(cfg)
	}

	a.log().Info("using language model", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return llm.New(llm.Options{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		ServerURL: cfg.ServerURL,
		APIKey:    cfg.APIKey,
	})
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// progressWriter returns where spinners draw and whether they should.
func (a *appState) progressWriter(cmd *cobra.Command) (io.Writer, bool) {
	out := cmd.ErrOrStderr()
	if a.noProgress {
		return out, false
	}
	f, ok := out.(*os.File)
	return out, ok && term.IsTerminal(int(f.Fd()))
}
