package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Delay   string            `json:"delay"`
	Headers map[string]string `json:"headers"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.json5"), []byte(`{
		// comments are fine
		name: "base",
		delay: "1s",
		headers: { a: "1" },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.local.json5"), []byte(`{
		delay: "2s",
	}`), 0644))

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Name:    "base",
		Delay:   "2s",
		Headers: map[string]string{"a": "1"},
	}, config)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "app.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.local.json5"), []byte(`{name: "local"}`), 0644))

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", config.Name)
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{name: `), 0644))

	_, err := ReadConfig[testConfig](path)
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func chdir(t *testing.T, dir string) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "found.json5"), []byte(`{name: "root"}`), 0644))
	chdir(t, nested)

	config, err := ReadRecursively[testConfig]("found.json5")
	require.NoError(t, err)
	require.Equal(t, "root", config.Name)

	_, err = ReadRecursively[testConfig]("lyricsync-does-not-exist.json5")
	require.True(t, os.IsNotExist(err))
}

func TestLoadDotenvPriority(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LYRICSYNC_A=env\nLYRICSYNC_B=env\nLYRICSYNC_C=env\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("LYRICSYNC_B=local\nLYRICSYNC_C=local\n"), 0644))
	t.Setenv("LYRICSYNC_C", "process")
	for _, key := range []string{"LYRICSYNC_A", "LYRICSYNC_B"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	require.NoError(t, LoadDotenv(dir))
	require.Equal(t, "env", os.Getenv("LYRICSYNC_A"))
	require.Equal(t, "local", os.Getenv("LYRICSYNC_B"))
	require.Equal(t, "process", os.Getenv("LYRICSYNC_C"))
}

func TestLoadDotenvMissing(t *testing.T) {
	require.NoError(t, LoadDotenv(t.TempDir()))
}

func TestGetenv(t *testing.T) {
	t.Setenv("LYRICSYNC_SET", "value")
	t.Setenv("LYRICSYNC_EMPTY", "")
	require.Equal(t, "value", Getenv("LYRICSYNC_SET", "fallback"))
	require.Equal(t, "fallback", Getenv("LYRICSYNC_EMPTY", "fallback"))
}
