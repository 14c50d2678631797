package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "pengolodh"

// ErrNoHome is returned when there is no home directory to anchor the
// per-user model and config locations under.
var ErrNoHome = errors.New("pengolodh: no home directory for per-user files")

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// Target is the GOOS_GOARCH pair used to lay out bundled engine binaries.
func (r Runtime) Target() string {
	return fmt.Sprintf("%s_%s", r.OS, r.Arch)
}

// userDir names one kind of per-user directory: whisper models live under
// the data dir, the yaml config under the config dir.
type userDir struct {
	kind      string
	xdgEnv    string
	linuxBase []string
}

var (
	dataDir   = userDir{kind: "data", xdgEnv: "XDG_DATA_HOME", linuxBase: []string{".local", "share"}}
	configDir = userDir{kind: "config", xdgEnv: "XDG_CONFIG_HOME", linuxBase: []string{".config"}}
)

// under returns the pengolodh directory of this kind. xdg wins on linux when
// set; macOS keeps models and config side by side in Application Support.
func (d userDir) under(goos, home, xdg string) (string, error) {
	if home == "" {
		return "", fmt.Errorf("%s dir: %w", d.kind, ErrNoHome)
	}

	switch goos {
	case "linux":
		if xdg == "" {
			xdg = filepath.Join(append([]string{home}, d.linuxBase...)...)
		}
		return filepath.Join(xdg, appName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName), nil
	default:
		return "", fmt.Errorf("pengolodh keeps no default %s dir on %q; pass one explicitly", d.kind, goos)
	}
}

func (d userDir) resolve() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%s dir: %w: %v", d.kind, ErrNoHome, err)
	}
	return d.under(runtime.GOOS, home, os.Getenv(d.xdgEnv))
}

// DefaultModelDirFor is where downloaded whisper models go when no
// model_dir is configured.
func DefaultModelDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	dir, err := dataDir.under(goos, homeDir, xdgDataHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "models"), nil
}

func DefaultConfigFileFor(goos, homeDir, xdgConfigHome string) (string, error) {
	dir, err := configDir.under(goos, homeDir, xdgConfigHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ResolveModelDir prefers override and otherwise falls back to the data dir
// for the running OS.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}
	dir, err := dataDir.resolve()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "models"), nil
}

func ResolveConfigFile() (string, error) {
	dir, err := configDir.resolve()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
