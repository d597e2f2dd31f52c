package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, ".config", "x.json"), ExpandPath("~/.config/x.json"))
	assert.Equal(t, "/etc/x.json", ExpandPath("/etc/x.json"))
	assert.Equal(t, "rel/x.json", ExpandPath("rel/x.json"))
}

func TestResolveCredentialsPath_Priority(t *testing.T) {
	defCred, _ := DefaultCredentialPaths()

	t.Setenv(EnvCredentials, "")
	assert.Equal(t, defCred, ResolveCredentialsPath("", ""))
	assert.Equal(t, "/cfg/cred.json", ResolveCredentialsPath("", "/cfg/cred.json"))

	t.Setenv(EnvCredentials, "/env/cred.json")
	assert.Equal(t, "/env/cred.json", ResolveCredentialsPath("", "/cfg/cred.json"))
	assert.Equal(t, "/flag/cred.json", ResolveCredentialsPath("/flag/cred.json", "/cfg/cred.json"))
}

func TestResolveTokenPath_Priority(t *testing.T) {
	_, defToken := DefaultCredentialPaths()

	t.Setenv(EnvToken, "")
	assert.Equal(t, defToken, ResolveTokenPath("", ""))
	assert.Equal(t, "/cfg/token.json", ResolveTokenPath("", "/cfg/token.json"))

	t.Setenv(EnvToken, "/env/token.json")
	assert.Equal(t, "/env/token.json", ResolveTokenPath("", "/cfg/token.json"))
	assert.Equal(t, "/flag/token.json", ResolveTokenPath("/flag/token.json", ""))
}

func TestResolveConfigPath_Priority(t *testing.T) {
	t.Setenv(EnvConfig, "")
	assert.Equal(t, DefaultConfigPath(), ResolveConfigPath(""))

	t.Setenv(EnvConfig, "/env/config.yaml")
	assert.Equal(t, "/env/config.yaml", ResolveConfigPath(""))
	assert.Equal(t, "/flag/config.json", ResolveConfigPath("/flag/config.json"))
}

func TestDefaultPaths_UnderAppDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := DefaultConfigDir()
	cred, token := DefaultCredentialPaths()
	assert.Equal(t, filepath.Join(dir, "credentials.json"), cred)
	assert.Equal(t, filepath.Join(dir, "token.json"), token)
	assert.Equal(t, filepath.Join(dir, "replies.db"), DefaultJournalPath())
	assert.Equal(t, filepath.Join(dir, "config.json"), DefaultConfigPath())

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("max_results: 1\n"), 0o644))
	assert.Equal(t, filepath.Join(dir, "config.yaml"), DefaultConfigPath())
}
