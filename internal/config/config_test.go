package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profilegate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
upstream:
  baseURL: http://scraper.local:9000/
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "http://scraper.local:9000", cfg.Upstream.BaseURL)
	assert.Equal(t, 3, cfg.Upstream.MaxAttempts)
	assert.Equal(t, 12, cfg.Upstream.MaxItems)
	assert.Equal(t, 12*time.Hour, cfg.Upstream.SessionMaxAge.Std())
	assert.Equal(t, 5*time.Minute, cfg.Upstream.Backoff.Floor.Std())
	assert.Equal(t, 2*time.Hour, cfg.Upstream.Backoff.Ceiling.Std())
	assert.Equal(t, 10*time.Second, cfg.Governor.MinInterval.Std())
	assert.Equal(t, 5*time.Minute, cfg.Governor.RateLimitBlock.Std())
	assert.Equal(t, 30*time.Minute, cfg.Governor.AccessBlock.Std())
	assert.Equal(t, time.Hour, cfg.Cache.Duration.Std())
	assert.Equal(t, "file", cfg.State.Backend)
}

func TestLoadConfigOverridesAndSecrets(t *testing.T) {
	t.Setenv("PG_TEST_USER", "scout")
	t.Setenv("PG_TEST_PASS", "hunter2")
	path := writeConfig(t, `
server:
  port: 9090
upstream:
  baseURL: http://scraper.local
  username: env:PG_TEST_USER
  password: env:PG_TEST_PASS
  humanDelay:
    min: 1s
    max: 3s
governor:
  minInterval: 30s
cache:
  duration: 15m
  disk:
    path: ./data/cache
    max: 64mb
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "scout", cfg.Upstream.Username)
	assert.Equal(t, "hunter2", cfg.Upstream.Password)
	assert.Equal(t, time.Second, cfg.Upstream.HumanDelay.Min.Std())
	assert.Equal(t, 3*time.Second, cfg.Upstream.HumanDelay.Max.Std())
	assert.Equal(t, 30*time.Second, cfg.Governor.MinInterval.Std())
	assert.Equal(t, 15*time.Minute, cfg.Cache.Duration.Std())
	assert.Equal(t, int64(64<<20), cfg.Cache.Disk.MaxBytes)
}

func TestLoadConfigMissingCredentialsIsNotAnError(t *testing.T) {
	path := writeConfig(t, `
upstream:
  baseURL: http://scraper.local
  username: env:PG_TEST_DEFINITELY_UNSET
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Upstream.Username)
}

func TestLoadConfigUnsetSealKeyLeavesSessionsUnsealed(t *testing.T) {
	path := writeConfig(t, `
upstream:
  baseURL: http://scraper.local
state:
  backend: file
  sealKey: env:PG_TEST_SEAL_KEY_UNSET
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.State.SealKey)

	t.Setenv("PG_TEST_SEAL_KEY_UNSET", "s3cret")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.State.SealKey)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing base url": `
server:
  port: 8080
`,
		"bad duration": `
upstream:
  baseURL: http://scraper.local
governor:
  minInterval: ten seconds
`,
		"inverted delay range": `
upstream:
  baseURL: http://scraper.local
  humanDelay:
    min: 5s
    max: 1s
`,
		"unknown state backend": `
upstream:
  baseURL: http://scraper.local
state:
  backend: etcd
`,
		"redis without addr": `
upstream:
  baseURL: http://scraper.local
state:
  backend: redis
`,
		"bad disk size": `
upstream:
  baseURL: http://scraper.local
cache:
  disk:
    max: lots
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestParseBytes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"512b", 512},
		{"64kb", 64 << 10},
		{"10 MB", 10 << 20},
		{"1.5g", 3 << 29},
	}
	for _, tc := range cases {
		got, err := parseBytes(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "kb", "-1k", "abc"} {
		_, err := parseBytes(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("PG_TEST_SECRET", "s3cret")

	v, err := ResolveSecret("env:PG_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	v, err = ResolveSecret("literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", v)

	_, err = ResolveSecret("env:PG_TEST_DEFINITELY_UNSET")
	assert.Error(t, err)
	_, err = ResolveSecret("  ")
	assert.Error(t, err)
}
