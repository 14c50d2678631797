// Package command defines the closed set of actions pengolodh can dispatch.
//
// Every action is a variant of Command. Consumers match on variants by
// implementing Visitor; adding a variant adds a Visitor method, so every
// consumer must handle it before the module compiles again.
package command

import (
	"context"
	"strings"
)

type Family string

const (
	FamilySpeech        Family = "speech"
	FamilyLanguageModel Family = "language-model"
)

// Command is one parsed invocation. Implementations are immutable values.
type Command interface {
	Family() Family
	Accept(ctx context.Context, v Visitor) error
	// Args renders the canonical argument vector that parses back into an
	// equal Command.
	Args() []string

	isCommand()
}

type SpeechCommand interface {
	Command
	isSpeech()
}

type LanguageModelCommand interface {
	Command
	isLanguageModel()
}

type Visitor interface {
	VisitTranscribe(ctx context.Context, c Transcribe) error
	VisitTranslate(ctx context.Context, c Translate) error
	VisitQuery(ctx context.Context, c Query) error
}

type Transcribe struct {
	InputPath  string
	OutputPath string
}

func (Transcribe) Family() Family { return FamilySpeech }

func (c Transcribe) Accept(ctx context.Context, v Visitor) error {
	return v.VisitTranscribe(ctx, c)
}

func (c Transcribe) Args() []string {
	return []string{string(FamilySpeech), "transcribe", "--in", c.InputPath, "--out", c.OutputPath}
}

func (Transcribe) isCommand() {}
func (Transcribe) isSpeech()  {}

type Translate struct {
	InputPath  string
	OutputPath string
}

func (Translate) Family() Family { return FamilySpeech }

func (c Translate) Accept(ctx context.Context, v Visitor) error {
	return v.VisitTranslate(ctx, c)
}

func (c Translate) Args() []string {
	return []string{string(FamilySpeech), "translate", "--in", c.InputPath, "--out", c.OutputPath}
}

func (Translate) isCommand() {}
func (Translate) isSpeech()  {}

type Query struct {
	Text string
}

func (Query) Family() Family { return FamilyLanguageModel }

func (c Query) Accept(ctx context.Context, v Visitor) error {
	return v.VisitQuery(ctx, c)
}

func (c Query) Args() []string {
	args := []string{string(FamilyLanguageModel), "query"}
	if strings.HasPrefix(c.Text, "-") {
		args = append(args, "--")
	}
	return append(args, c.Text)
}

func (Query) isCommand()       {}
func (Query) isLanguageModel() {}

var (
	_ SpeechCommand        = Transcribe{}
	_ SpeechCommand        = Translate{}
	_ LanguageModelCommand = Query{}
)
