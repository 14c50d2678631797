package dispatch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pengolodh/pengolodh/internal/command"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	calls []string
	text  string
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, inputPath string) (string, error) {
	f.calls = append(f.calls, "transcribe:"+inputPath)
	return f.text, f.err
}

func (f *fakeTranscriber) Translate(_ context.Context, inputPath string) (string, error) {
	f.calls = append(f.calls, "translate:"+inputPath)
	return f.text, f.err
}

type fakeModel struct {
	prompts []string
	answer  string
	err     error
}

func (f *fakeModel) Query(_ context.Context, text string) (string, error) {
	f.prompts = append(f.prompts, text)
	return f.answer, f.err
}

func TestDescribeCoversEveryVariant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmd  command.Command
		want string
	}{
		{cmd: command.Transcribe{InputPath: "a.wav", OutputPath: "a.txt"}, want: `Transcribing "a.wav" => "a.txt"`},
		{cmd: command.Translate{InputPath: "b.wav", OutputPath: "b.txt"}, want: `Translating "b.wav" => "b.txt"`},
		{cmd: command.Query{Text: "what is the weather"}, want: `Querying: "what is the weather"`},
	}

	for _, tt := range tests {
		tt := tt
		require.Equal(t, tt.want, Describe(tt.cmd))
	}
}

func TestDescribeQuotesSpecialCharacters(t *testing.T) {
	t.Parallel()

	require.Equal(t, `Querying: "say \"hi\"\n"`, Describe(command.Query{Text: "say \"hi\"\n"}))
	require.Equal(t, `Transcribing "my file.wav" => "out/ü.txt"`, Describe(command.Transcribe{InputPath: "my file.wav", OutputPath: "out/ü.txt"}))
}

func TestDispatchWithoutCollaboratorsOnlyDescribes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outPath := filepath.Join(dir, "a.txt")
	out := new(bytes.Buffer)

	err := New(out).Dispatch(context.Background(), command.Transcribe{InputPath: "a.wav", OutputPath: outPath})
	require.NoError(t, err)
	require.Equal(t, "Transcribing \"a.wav\" => \""+outPath+"\"\n", out.String())

	_, statErr := os.Stat(outPath)
	require.True(t, errors.Is(statErr, os.ErrNotExist), "dry dispatch must not create files")
}

func TestDispatchIsDeterministic(t *testing.T) {
	t.Parallel()

	commands := []command.Command{
		command.Transcribe{InputPath: "a.wav", OutputPath: "a.txt"},
		command.Translate{InputPath: "b.wav", OutputPath: "b.txt"},
		command.Query{Text: "q"},
	}

	for _, c := range commands {
		first, second := new(bytes.Buffer), new(bytes.Buffer)
		require.NoError(t, New(first).Dispatch(context.Background(), c))
		require.NoError(t, New(second).Dispatch(context.Background(), c))
		require.Equal(t, first.String(), second.String())
		require.Equal(t, Describe(c)+"\n", first.String())
	}
}

func TestDispatchTranscribeWritesOutputFile(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "nested", "a.txt")
	transcriber := &fakeTranscriber{text: "  hello world \n"}
	out := new(bytes.Buffer)

	d := New(out, WithTranscriber(transcriber))
	require.NoError(t, d.Dispatch(context.Background(), command.Transcribe{InputPath: "a.wav", OutputPath: outPath}))

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "hello world\n", string(content))
	require.Equal(t, []string{"transcribe:a.wav"}, transcriber.calls)
}

func TestDispatchTranslateUsesTranslateBranch(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "b.txt")
	transcriber := &fakeTranscriber{text: "bonjour"}
	out := new(bytes.Buffer)

	d := New(out, WithTranscriber(transcriber))
	require.NoError(t, d.Dispatch(context.Background(), command.Translate{InputPath: "b.wav", OutputPath: outPath}))

	require.Equal(t, []string{"translate:b.wav"}, transcriber.calls)
	require.Contains(t, out.String(), "Translating")
}

func TestDispatchQueryPrintsAnswer(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answer: "Sunny.\n"}
	out := new(bytes.Buffer)

	d := New(out, WithLanguageModel(model))
	require.NoError(t, d.Dispatch(context.Background(), command.Query{Text: "what is the weather"}))

	require.Equal(t, "Querying: \"what is the weather\"\nSunny.\n", out.String())
	require.Equal(t, []string{"what is the weather"}, model.prompts)
}

func TestDispatchIgnoresCollaboratorOfOtherFamily(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answer: "unused"}
	out := new(bytes.Buffer)
	outPath := filepath.Join(t.TempDir(), "a.txt")

	d := New(out, WithLanguageModel(model))
	require.NoError(t, d.Dispatch(context.Background(), command.Transcribe{InputPath: "a.wav", OutputPath: outPath}))
	require.Empty(t, model.prompts)

	_, err := os.Stat(outPath)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDispatchPropagatesCollaboratorErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("engine exploded")

	d := New(new(bytes.Buffer), WithTranscriber(&fakeTranscriber{err: boom}))
	err := d.Dispatch(context.Background(), command.Transcribe{InputPath: "a.wav", OutputPath: filepath.Join(t.TempDir(), "a.txt")})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "transcribe a.wav")

	d = New(new(bytes.Buffer), WithLanguageModel(&fakeModel{err: boom}))
	err = d.Dispatch(context.Background(), command.Query{Text: "q"})
	require.ErrorIs(t, err, boom)
}

func TestDispatchRejectsNilCommand(t *testing.T) {
	t.Parallel()

	err := New(new(bytes.Buffer)).Dispatch(context.Background(), nil)
	require.Error(t, err)
}
