package cli

import (
	"github.com/pengolodh/pengolodh/internal/command"
	"github.com/pengolodh/pengolodh/internal/config"
	"github.com/pengolodh/pengolodh/internal/llm"
	"github.com/spf13/cobra"
)

type languageModelFlags struct {
	provider  string
	model     string
	serverURL string
}

func (f languageModelFlags) apply(cmd *cobra.Command, cfg *config.LanguageModel) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = f.provider
	}
	if flags.Changed("model") {
		cfg.Model = f.model
	}
	if flags.Changed("server-url") {
		cfg.ServerURL = f.serverURL
	}
}

func newLanguageModelCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     string(command.FamilyLanguageModel),
		Aliases: []string{"llama"},
		Short:   "LLaMa tasks",
		GroupID: familyGroup,
		Args:    subcommandArgs,
		RunE:    missingSubcommand,
	}
	cmd.AddGroup(&cobra.Group{ID: actionGroup, Title: "Actions:"})

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.lm.provider, "provider", llm.ProviderOllama, "Language model provider: ollama|openai (with --execute)")
	flags.StringVar(&app.lm.model, "model", llm.DefaultModel, "Language model name (with --execute)")
	flags.StringVar(&app.lm.serverURL, "server-url", "", "Provider endpoint, e.g. http://localhost:11434 (with --execute)")

	cmd.AddCommand(newQueryCmd(app))
	return cmd
}

func newQueryCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:     "query <text>",
		Short:   "Query the language model",
		Example: "  pengolodh language-model query \"what is the weather\"\n  pengolodh llama query -- \"-v or --verbose?\"",
		GroupID: actionGroup,
		Args:    exactlyOnePositional("<text>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.dispatch(cmd, command.Query{Text: args[0]})
		},
	}
}
