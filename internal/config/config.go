package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pengolodh/pengolodh/internal/llm"
	"github.com/pengolodh/pengolodh/internal/platform"
	"github.com/pengolodh/pengolodh/internal/whisper"
	"gopkg.in/yaml.v3"
)

// LocalFileName is looked up in the working directory before the
// per-user config file.
const LocalFileName = ".pengolodh.yaml"

type Config struct {
	Speech        Speech        `yaml:"speech"`
	LanguageModel LanguageModel `yaml:"language_model"`
}

type Speech struct {
	Model    string `yaml:"model"`
	ModelDir string `yaml:"model_dir,omitempty"`
	Language string `yaml:"language"`
	Engine   string `yaml:"engine,omitempty"`

	// AutoDownload fetches a missing named model from Mirror, or the
	// upstream repository when Mirror is empty.
	AutoDownload bool   `yaml:"auto_download"`
	Mirror       string `yaml:"mirror,omitempty"`

	SilenceGate          bool    `yaml:"silence_gate"`
	SilenceThresholdDBFS float64 `yaml:"silence_threshold_dbfs"`
}

type LanguageModel struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
}

func Default() *Config {
	return &Config{
		Speech: Speech{
			Model:                whisper.DefaultModel,
			Language:             "auto",
			SilenceGate:          true,
			SilenceThresholdDBFS: whisper.DefaultSilenceThresholdDBFS,
		},
		LanguageModel: LanguageModel{
			Provider: llm.ProviderOllama,
			Model:    llm.DefaultModel,
		},
	}
}

// Load reads path, or the first existing default location when path is
// empty. No file at the default locations yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = findDefault()
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func findDefault() string {
	locations := []string{LocalFileName}
	if userFile, err := platform.ResolveConfigFile(); err == nil {
		locations = append(locations, userFile)
	}

	for _, loc := range locations {
		if info, err := os.Stat(loc); err == nil && !info.IsDir() {
			return loc
		}
	}
	return ""
}

// Validate normalizes c in place and rejects invalid settings. Call it
// again after overriding loaded values.
func (c *Config) Validate() error {
	c.Speech.Language = whisper.SanitizeLanguage(c.Speech.Language)
	if strings.TrimSpace(c.Speech.Model) == "" {
		c.Speech.Model = whisper.DefaultModel
	}
	if c.Speech.SilenceThresholdDBFS > 0 {
		return fmt.Errorf("speech.silence_threshold_dbfs must not be positive, got %g", c.Speech.SilenceThresholdDBFS)
	}

	c.LanguageModel.Provider = strings.ToLower(strings.TrimSpace(c.LanguageModel.Provider))
	switch c.LanguageModel.Provider {
	case "":
		c.LanguageModel.Provider = llm.ProviderOllama
	case llm.ProviderOllama, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported language_model.provider %q", c.LanguageModel.Provider)
	}

	if strings.TrimSpace(c.LanguageModel.Model) == "" {
		c.LanguageModel.Model = llm.DefaultModel
	}

	if url := c.LanguageModel.ServerURL; url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		c.LanguageModel.ServerURL = "http://" + url
	}

	if c.LanguageModel.Provider == llm.ProviderOpenAI && c.LanguageModel.APIKey == "" && os.Getenv("OPENAI_API_KEY") == "" {
		return errors.New("language_model.api_key is required for the openai provider")
	}
	return nil
}
