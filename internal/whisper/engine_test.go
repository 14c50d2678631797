package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingEngine struct {
	requests []Request
}

func (r *recordingEngine) Run(_ context.Context, req Request) (string, error) {
	r.requests = append(r.requests, req)
	return req.Task.String() + ":" + req.AudioPath, nil
}

func TestTranscriberRoutesTasks(t *testing.T) {
	t.Parallel()

	engine := &recordingEngine{}
	tr := &Transcriber{Engine: engine, ModelPath: "/models/ggml-tiny.bin", Language: " EN "}

	text, err := tr.Transcribe(context.Background(), "a.wav")
	require.NoError(t, err)
	require.Equal(t, "transcribe:a.wav", text)

	text, err = tr.Translate(context.Background(), "b.wav")
	require.NoError(t, err)
	require.Equal(t, "translate:b.wav", text)

	require.Equal(t, []Request{
		{AudioPath: "a.wav", ModelPath: "/models/ggml-tiny.bin", Language: "en", Task: TaskTranscribe},
		{AudioPath: "b.wav", ModelPath: "/models/ggml-tiny.bin", Language: "en", Task: TaskTranslate},
	}, engine.requests)
}

func TestTranscriberWithoutEngine(t *testing.T) {
	t.Parallel()

	_, err := (&Transcriber{}).Translate(context.Background(), "a.wav")
	require.ErrorContains(t, err, "no engine configured")
}

// writeWAV writes mono 16-bit PCM at 16 kHz.
func writeWAV(t *testing.T, samples []int16) string {
	t.Helper()

	data := new(bytes.Buffer)
	require.NoError(t, binary.Write(data, binary.LittleEndian, samples))

	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint32(36+data.Len())))
	buf.WriteString("WAVEfmt ")
	for _, v := range []any{uint32(16), uint16(1), uint16(1), uint32(16000), uint32(32000), uint16(2), uint16(16)} {
		require.NoError(t, binary.Write(buf, binary.LittleEndian, v))
	}
	buf.WriteString("data")
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint32(data.Len())))
	buf.Write(data.Bytes())

	path := filepath.Join(t.TempDir(), "input.wav")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestTranscriberSilenceGateSkipsEngine(t *testing.T) {
	t.Parallel()

	engine := &recordingEngine{}
	tr := &Transcriber{Engine: engine, SilenceGate: true, SilenceThresholdDBFS: DefaultSilenceThresholdDBFS}

	text, err := tr.Transcribe(context.Background(), writeWAV(t, make([]int16, 1600)))
	require.NoError(t, err)
	require.Empty(t, text)
	require.Empty(t, engine.requests)
}

func TestTranscriberSilenceGatePassesSignal(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 1600)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 8000
		} else {
			samples[i] = -8000
		}
	}
	path := writeWAV(t, samples)

	engine := &recordingEngine{}
	tr := &Transcriber{Engine: engine, SilenceGate: true, SilenceThresholdDBFS: DefaultSilenceThresholdDBFS}

	text, err := tr.Translate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "translate:"+path, text)
	require.Len(t, engine.requests, 1)
}

func TestTranscriberSilenceGateIgnoresUnreadableAudio(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav"), 0o644))

	engine := &recordingEngine{}
	tr := &Transcriber{Engine: engine, SilenceGate: true, SilenceThresholdDBFS: DefaultSilenceThresholdDBFS}

	_, err := tr.Transcribe(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, engine.requests, 1)

	tr.SilenceGate = false
	_, err = tr.Transcribe(context.Background(), writeWAV(t, make([]int16, 16)))
	require.NoError(t, err)
	require.Len(t, engine.requests, 2)
}

func TestSanitizeLanguage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "auto", SanitizeLanguage(""))
	require.Equal(t, "auto", SanitizeLanguage("   "))
	require.Equal(t, "en", SanitizeLanguage(" EN "))
	require.Equal(t, "de", SanitizeLanguage("De"))
}

func TestTaskString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "transcribe", TaskTranscribe.String())
	require.Equal(t, "translate", TaskTranslate.String())
	require.Equal(t, "task(7)", Task(7).String())
}
