package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, cfg.SourceDirectories)
	assert.True(t, cfg.WithCore())
	assert.Empty(t, cfg.Output)
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := "source-directories:\n  - lib\n  - vendor/elm\ncore: false\noutput: env.bin\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", "vendor/elm"}, cfg.SourceDirectories)
	assert.False(t, cfg.WithCore())
	assert.Equal(t, "env.bin", cfg.Output)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(":\t:"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSourceFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "Nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Main.elm"), []byte("module Main exposing (..)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Nested", "Util.elm"), []byte("module Nested.Util exposing (..)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("skip"), 0o644))

	files, err := Default().SourceFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
