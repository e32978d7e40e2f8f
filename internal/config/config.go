package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the process-wide settings a store needs at construction.
// It replaces any shared mutable globals: callers load it once and pass it in.
type Config struct {
	// Catalog is the path of the XML catalog used to resolve DTDs during
	// skeleton merging.
	Catalog string `yaml:"catalog"`
	// SrcLang and TgtLang are defaults applied when a document does not
	// declare its own languages.
	SrcLang string `yaml:"srcLang"`
	TgtLang string `yaml:"tgtLang"`
	// AcceptUnconfirmed lets the final merge include segments that were
	// translated but never confirmed.
	AcceptUnconfirmed bool `yaml:"acceptUnconfirmed"`
	// ImagesURL is the base URL the editor loads placeholder glyphs from.
	ImagesURL string `yaml:"imagesURL"`
}

// Default returns a usable configuration for tests and first runs.
func Default() Config {
	return Config{
		SrcLang:   "en",
		TgtLang:   "fr",
		ImagesURL: "images/",
	}
}

// Load reads a yaml configuration file. Missing fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
