package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Rule names the grammar rule an argument vector broke.
type Rule string

const (
	RuleMissingSubcommand Rule = "missing subcommand"
	RuleUnknownSubcommand Rule = "unknown subcommand"
	RuleUnknownFlag       Rule = "unknown flag"
	RuleMissingParameter  Rule = "missing required parameter"
	RuleUnexpectedToken   Rule = "unexpected argument"
	RuleMalformedValue    Rule = "malformed value"
)

// GrammarViolation is the only error Parse returns for a bad command line.
type GrammarViolation struct {
	Rule Rule
	// CommandPath is the command being parsed when the rule broke, e.g.
	// "pengolodh speech".
	CommandPath string
	Err         error
}

func (e *GrammarViolation) Error() string {
	return e.Err.Error()
}

func (e *GrammarViolation) Unwrap() error {
	return e.Err
}

func violation(cmd *cobra.Command, rule Rule, format string, args ...any) *GrammarViolation {
	return &GrammarViolation{
		Rule:        rule,
		CommandPath: cmd.CommandPath(),
		Err:         fmt.Errorf(format, args...),
	}
}

// flagError is installed as the root FlagErrorFunc and inherited by every
// subcommand.
func flagError(cmd *cobra.Command, err error) error {
	message := err.Error()
	rule := RuleMalformedValue
	switch {
	case strings.HasPrefix(message, "unknown flag"), strings.HasPrefix(message, "unknown shorthand flag"):
		rule = RuleUnknownFlag
	case strings.HasPrefix(message, "flag needs an argument"):
		rule = RuleMissingParameter
	}
	return &GrammarViolation{Rule: rule, CommandPath: cmd.CommandPath(), Err: err}
}

// subcommandArgs rejects positional tokens on commands that only group
// actions. Anything left over after cobra's lookup is an unknown name.
func subcommandArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}

	message := fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath())
	if suggestions := cmd.SuggestionsFor(args[0]); len(suggestions) > 0 {
		message += "\n\nDid you mean this?\n\t" + strings.Join(suggestions, "\n\t")
	}
	return &GrammarViolation{Rule: RuleUnknownSubcommand, CommandPath: cmd.CommandPath(), Err: errors.New(message)}
}

// missingSubcommand is the RunE of grouping commands: reaching it means no
// action was named.
func missingSubcommand(cmd *cobra.Command, _ []string) error {
	return violation(cmd, RuleMissingSubcommand, "missing subcommand for %q (available: %s)", cmd.CommandPath(), strings.Join(actionNames(cmd), ", "))
}

func actionNames(cmd *cobra.Command) []string {
	var names []string
	for _, sub := range cmd.Commands() {
		if sub.GroupID != "" && sub.IsAvailableCommand() {
			names = append(names, sub.Name())
		}
	}
	return names
}

func noPositionalArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return violation(cmd, RuleUnexpectedToken, "unexpected argument %q for %q", args[0], cmd.CommandPath())
}

func exactlyOnePositional(name string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		switch {
		case len(args) == 0:
			return violation(cmd, RuleMissingParameter, "missing required argument %s", name)
		case len(args) > 1:
			return violation(cmd, RuleUnexpectedToken, "unexpected argument %q for %q (quote %s to pass it as one argument)", args[1], cmd.CommandPath(), name)
		}
		return nil
	}
}

// requirePaths checks that every named path flag was given a non-blank
// value.
func requirePaths(cmd *cobra.Command, values map[string]string, order ...string) error {
	var missing []string
	for _, name := range order {
		if !cmd.Flags().Changed(name) {
			missing = append(missing, fmt.Sprintf("%q", name))
		}
	}
	if len(missing) > 0 {
		return violation(cmd, RuleMissingParameter, "required flag(s) %s not set", strings.Join(missing, ", "))
	}

	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			return violation(cmd, RuleMalformedValue, "flag --%s must not be empty", name)
		}
	}
	return nil
}
