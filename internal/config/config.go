// Package config loads spinecat settings from an optional YAML file, a
// .env file, and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MatcherConfig selects and tunes the matching engine.
type MatcherConfig struct {
	Kind                string  `yaml:"kind"`
	UseCharNgrams       bool    `yaml:"use_char_ngrams"`
	UseEmbeddings       bool    `yaml:"use_embeddings"`
	TopK                int     `yaml:"top_k"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// OCRConfig selects the vision provider used for spine extraction.
type OCRConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// OpenLibraryConfig tunes the candidate retrieval client.
type OpenLibraryConfig struct {
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	PageSize          int     `yaml:"page_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	Matcher     MatcherConfig     `yaml:"matcher"`
	OCR         OCRConfig         `yaml:"ocr"`
	OpenLibrary OpenLibraryConfig `yaml:"open_library"`
	Server      ServerConfig      `yaml:"server"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Matcher: MatcherConfig{
			Kind:                "advanced",
			UseCharNgrams:       true,
			TopK:                5,
			ConfidenceThreshold: 0.5,
		},
		OCR: OCRConfig{
			Provider: "ollama",
		},
		OpenLibrary: OpenLibraryConfig{
			RequestsPerSecond: 1,
			PageSize:          20,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// given, then environment variables. A .env file in the working directory
// is loaded first so both sources see it; a missing .env is not an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SPINECAT_MATCHER"); v != "" {
		cfg.Matcher.Kind = v
	}
	if v := os.Getenv("SPINECAT_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matcher.TopK = n
		}
	}
	if v := os.Getenv("SPINECAT_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matcher.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("SPINECAT_PROVIDER"); v != "" {
		cfg.OCR.Provider = v
	}
	if v := os.Getenv("SPINECAT_MODEL"); v != "" {
		cfg.OCR.Model = v
	}
	if v := os.Getenv("OPENLIBRARY_URL"); v != "" {
		cfg.OpenLibrary.BaseURL = v
	}
	if v := os.Getenv("SPINECAT_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

func (c Config) validate() error {
	switch c.Matcher.Kind {
	case "advanced", "legacy":
	default:
		return fmt.Errorf("invalid matcher kind: %s", c.Matcher.Kind)
	}
	if c.Matcher.TopK < 0 {
		return fmt.Errorf("top_k must not be negative: %d", c.Matcher.TopK)
	}
	if c.Matcher.ConfidenceThreshold < 0 || c.Matcher.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1]: %v", c.Matcher.ConfidenceThreshold)
	}
	return nil
}
