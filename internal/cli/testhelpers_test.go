package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runApp(t, &appState{}, args)
}

func runApp(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	if args == nil {
		args = []string{}
	}

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func requireViolation(t *testing.T, err error, rule Rule) *GrammarViolation {
	t.Helper()

	var gv *GrammarViolation
	require.ErrorAs(t, err, &gv)
	require.Equal(t, rule, gv.Rule, "unexpected rule for %q", err)
	return gv
}

// writeStubEngine installs a fake whisper-cli that writes "<task>: <audio>"
// to the requested output file.
func writeStubEngine(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs are not supported on windows")
	}

	script := `#!/bin/sh
out=""
audio=""
task="transcribed"
while [ $# -gt 0 ]; do
  case "$1" in
    -of) out="$2"; shift 2 ;;
    -f) audio="$2"; shift 2 ;;
    -tr) task="translated"; shift ;;
    *) shift ;;
  esac
done
echo "$task: $(basename "$audio")" > "$out.txt"
`
	path := filepath.Join(t.TempDir(), "whisper-cli")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
