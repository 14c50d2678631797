package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultModelDirFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		goos    string
		home    string
		xdg     string
		want    string
		wantErr bool
	}{
		{name: "linux with xdg", goos: "linux", home: "/home/dev", xdg: "/tmp/xdg-data", want: "/tmp/xdg-data/pengolodh/models"},
		{name: "linux without xdg", goos: "linux", home: "/home/dev", want: "/home/dev/.local/share/pengolodh/models"},
		{name: "macos", goos: "darwin", home: "/Users/dev", want: "/Users/dev/Library/Application Support/pengolodh/models"},
		{name: "unsupported os", goos: "windows", home: "/Users/dev", wantErr: true},
		{name: "empty home", goos: "linux", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir, err := DefaultModelDirFor(tt.goos, tt.home, tt.xdg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, dir)
		})
	}
}

func TestDefaultConfigFileFor(t *testing.T) {
	t.Parallel()

	path, err := DefaultConfigFileFor("linux", "/home/dev", "/tmp/xdg-config")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg-config/pengolodh/config.yaml", path)

	path, err = DefaultConfigFileFor("linux", "/home/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/home/dev/.config/pengolodh/config.yaml", path)

	path, err = DefaultConfigFileFor("darwin", "/Users/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/Users/dev/Library/Application Support/pengolodh/config.yaml", path)

	_, err = DefaultConfigFileFor("plan9", "/usr/glenda", "")
	require.EqualError(t, err, `pengolodh keeps no default config dir on "plan9"; pass one explicitly`)
}

func TestDefaultDirsWithoutHome(t *testing.T) {
	t.Parallel()

	_, err := DefaultModelDirFor("linux", "", "/tmp/xdg-data")
	require.ErrorIs(t, err, ErrNoHome)
	require.EqualError(t, err, "data dir: pengolodh: no home directory for per-user files")

	_, err = DefaultConfigFileFor("darwin", "", "")
	require.ErrorIs(t, err, ErrNoHome)
	require.Contains(t, err.Error(), "config dir")
}

func TestDefaultModelDirForUnsupportedOS(t *testing.T) {
	t.Parallel()

	_, err := DefaultModelDirFor("windows", `C:\Users\dev`, "")
	require.EqualError(t, err, `pengolodh keeps no default data dir on "windows"; pass one explicitly`)
}

func TestResolveModelDirOverride(t *testing.T) {
	t.Parallel()

	dir, err := ResolveModelDir("/opt/models/")
	require.NoError(t, err)
	require.Equal(t, "/opt/models", dir)
}

func TestNormalizeArchAndTarget(t *testing.T) {
	t.Parallel()

	require.Equal(t, "amd64", NormalizeArch("x86_64"))
	require.Equal(t, "arm64", NormalizeArch("aarch64"))
	require.Equal(t, "riscv64", NormalizeArch("riscv64"))
	require.Equal(t, "linux_arm64", Runtime{OS: "linux", Arch: "arm64"}.Target())
}
