package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(append([]string{"--env-file", ""}, args...)))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := Load(newFlags(t))
	require.NoError(t, err)
	require.Equal(t, DefaultAPIBaseURL, s.APIBaseURL)
	require.Equal(t, DefaultRequestTimeout, s.RequestTimeout)
	require.Equal(t, 2*time.Second, s.CopyAckDelay)
	require.Equal(t, 500, s.PreviewLimit)
	require.False(t, s.Redis.Enabled)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CHATFRONT_API_BASE_URL", "https://chat.example.com/api/")
	t.Setenv("CHATFRONT_USER_ID", "u-1")

	s, err := Load(newFlags(t))
	require.NoError(t, err)
	require.Equal(t, "https://chat.example.com/api", s.APIBaseURL)
	require.Equal(t, "u-1", s.UserID)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CHATFRONT_USER_ID", "from-env")

	s, err := Load(newFlags(t, "--user-id", "from-flag"))
	require.NoError(t, err)
	require.Equal(t, "from-flag", s.UserID)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "chatfront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: secret\nredis-enabled: true\n"), 0o600))

	s, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)
	require.Equal(t, "secret", s.Token)
	require.True(t, s.Redis.Enabled)
}

func TestValidate_RejectsNonHTTP(t *testing.T) {
	s := &Settings{APIBaseURL: "ftp://example.com"}
	require.Error(t, s.Validate())
}

func TestLoad_ExpandsHomeInPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	s, err := Load(newFlags(t, "--model-catalog", "~/models.yaml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "models.yaml"), s.ModelCatalog)
}
