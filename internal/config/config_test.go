package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	opts := GetDefaultOptions()
	assert.Equal(t, BackendNative, opts.Backend)
	assert.Equal(t, DefaultDebounce, opts.Debounce)
	assert.False(t, opts.ShowGenerated)
	require.NoError(t, opts.Validate())
}

func TestValidateRejectsBrowserBackend(t *testing.T) {
	opts := GetDefaultOptions()
	opts.Backend = "browser"
	require.Error(t, opts.Validate())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "backend": "interp",
  "toolchain": "clang++",
  "debounceMs": 100,
  "showGenerated": true
}`), 0644))

	opts, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendInterp, opts.Backend)
	assert.Equal(t, "clang++", opts.Toolchain)
	assert.Equal(t, 100*time.Millisecond, opts.Debounce)
	assert.True(t, opts.ShowGenerated)
}

func TestLoadConfigRejectsBadBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend": "wasm"}`), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestFindConfigWalksParents(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))
	cfg := filepath.Join(root, "tshot.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{}`), 0644))

	found, err := FindConfig(sub)
	require.NoError(t, err)
	assert.Equal(t, cfg, found)
}

func TestFindConfigMissing(t *testing.T) {
	_, err := FindConfig(t.TempDir())
	require.Error(t, err)
}

func TestResolveToolchainFromEnv(t *testing.T) {
	t.Setenv("CXX", "sh")
	opts := GetDefaultOptions()

	path, err := opts.ResolveToolchain()
	require.NoError(t, err)
	assert.Contains(t, path, "sh")
}

func TestResolveToolchainConfigWinsOverEnv(t *testing.T) {
	t.Setenv("CXX", "definitely-not-a-compiler")
	opts := GetDefaultOptions()
	opts.Toolchain = "sh"

	path, err := opts.ResolveToolchain()
	require.NoError(t, err)
	assert.Contains(t, path, "sh")
}

func TestResolveToolchainMissing(t *testing.T) {
	opts := GetDefaultOptions()
	opts.Toolchain = "definitely-not-a-compiler"

	_, err := opts.ResolveToolchain()
	require.Error(t, err)
}
