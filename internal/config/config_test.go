package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "srcLang: de\ntgtLang: it\nacceptUnconfirmed: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.SrcLang)
	assert.Equal(t, "it", cfg.TgtLang)
	assert.True(t, cfg.AcceptUnconfirmed)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "images/", cfg.ImagesURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
