package whisper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const DefaultModel = "small"

// ErrModelMissing means a named model is known but its file is not in the
// model directory.
var ErrModelMissing = errors.New("whisper model not installed")

type Model struct {
	Name     string
	FileName string
	URL      string
	SHA256   string
}

type ResolvedModel struct {
	Name         string
	Path         string
	URL          string
	SHA256       string
	IsCustomPath bool
}

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

var registry = map[string]Model{
	"tiny": {
		Name:     "tiny",
		FileName: "ggml-tiny.bin",
		SHA256:   "be07e048e1e599ad46341c8d2a135645097a538221678b7acdd1b1919c6e1b21",
	},
	"base": {
		Name:     "base",
		FileName: "ggml-base.bin",
		SHA256:   "60ed5bc3dd14eea856493d334349b405782ddcaf0028d4b5df4088345fba2efe",
	},
	"small": {
		Name:     "small",
		FileName: "ggml-small.bin",
		SHA256:   "1be3a9b2063867b937e64e2ec7483364a79917e157fa98c5d94b5c1fffea987b",
	},
	"medium": {
		Name:     "medium",
		FileName: "ggml-medium.bin",
		SHA256:   "6c14d5adee5f86394037b4e4e8b59f1673b6cee10e3cf0b11bbdbee79c156208",
	},
	"large-v3": {
		Name:     "large-v3",
		FileName: "ggml-large-v3.bin",
		SHA256:   "64d182b440b98d5203c4f9bd541544d84c605196c4f7b845dfa11fb23594d1e2",
	},
}

// ModelURL is where fileName is served from under mirror, or the upstream
// repository when mirror is empty.
func ModelURL(fileName, mirror string) string {
	base := strings.TrimSpace(mirror)
	if base == "" {
		base = modelBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/" + fileName
}

func ModelNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LookupModel(name string) (Model, bool) {
	model, ok := registry[name]
	if ok {
		model.URL = ModelURL(model.FileName, "")
	}
	return model, ok
}

// ResolveModel maps a model reference (a registry name or a path to a ggml
// file) to a file on disk. Named models that are absent return a
// ResolvedModel describing where to put them, wrapped in ErrModelMissing.
func ResolveModel(modelRef, modelDir string) (ResolvedModel, error) {
	modelRef = strings.TrimSpace(modelRef)
	if modelRef == "" {
		modelRef = DefaultModel
	}

	if model, ok := LookupModel(modelRef); ok {
		if strings.TrimSpace(modelDir) == "" {
			return ResolvedModel{}, errors.New("model directory must not be empty for named model")
		}

		resolved := ResolvedModel{
			Name:   model.Name,
			Path:   filepath.Join(modelDir, model.FileName),
			URL:    model.URL,
			SHA256: model.SHA256,
		}

		if _, err := os.Stat(resolved.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return resolved, fmt.Errorf("%w: %q expected at %s (download from %s)", ErrModelMissing, resolved.Name, resolved.Path, resolved.URL)
			}
			return ResolvedModel{}, fmt.Errorf("stat model path: %w", err)
		}
		return resolved, nil
	}

	if !looksLikePath(modelRef) {
		return ResolvedModel{}, fmt.Errorf("unknown model %q (known models: %s)", modelRef, strings.Join(ModelNames(), ", "))
	}

	customPath := filepath.Clean(modelRef)
	if _, err := os.Stat(customPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ResolvedModel{}, fmt.Errorf("custom model path does not exist: %s", customPath)
		}
		return ResolvedModel{}, fmt.Errorf("stat custom model path: %w", err)
	}

	return ResolvedModel{
		Path:         customPath,
		IsCustomPath: true,
	}, nil
}

func looksLikePath(input string) bool {
	return strings.ContainsRune(input, os.PathSeparator) || strings.HasSuffix(strings.ToLower(input), ".bin")
}
