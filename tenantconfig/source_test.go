package tenantconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MapSource(t *testing.T) {
	source := NewMapSource(map[string]string{
		"Oidc:Acme:Authority":  "https://idp",
		"Oidc:acme:ClientId":   "app1",
		"Oidc:acmeco:ClientId": "other",
	})

	section, ok, err := source.Section(context.Background(), "oidc:ACME")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Section{"authority": "https://idp", "clientid": "app1"}, section)

	v, ok := section.Get("ClientId")
	assert.True(t, ok)
	assert.Equal(t, "app1", v)

	_, ok, err = source.Section(context.Background(), "Oidc:missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_Layered(t *testing.T) {
	base := NewMapSource(map[string]string{
		"Oidc:acme:Authority": "https://file",
		"Oidc:acme:ClientId":  "app1",
	})
	override := NewMapSource(map[string]string{
		"Oidc:acme:Authority": "https://env",
	})

	t.Run("It lets later sources win per key", func(t *testing.T) {
		section, ok, err := Layered(base, override).Section(context.Background(), "Oidc:acme")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "https://env", section["authority"])
		assert.Equal(t, "app1", section["clientid"])
	})

	t.Run("It reports which source failed", func(t *testing.T) {
		failing := &RedisSource{client: stubRedis{err: errors.New("connection refused")}}
		_, _, err := Layered(base, failing).Section(context.Background(), "Oidc:acme")
		assert.ErrorContains(t, err, "configuration source 1")
	})
}

func Test_LoadYAML(t *testing.T) {
	t.Run("It flattens nested YAML", func(t *testing.T) {
		source, err := LoadYAML(strings.NewReader(`
Oidc:
  acme:
    Authority: https://idp/realms/acme
    CacheDelayInSec: 60
    Scopes: [openid, profile]
`))
		require.NoError(t, err)
		assert.Equal(t, MapSource{
			"oidc:acme:authority":       "https://idp/realms/acme",
			"oidc:acme:cachedelayinsec": "60",
			"oidc:acme:scopes:0":        "openid",
			"oidc:acme:scopes:1":        "profile",
		}, source)
	})

	t.Run("It reads JSON documents", func(t *testing.T) {
		source, err := LoadYAML(strings.NewReader(`{"Oidc": {"${Template}": {"ClientId": "app1"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "app1", source["oidc:${template}:clientid"])
	})

	t.Run("It accepts an empty document", func(t *testing.T) {
		source, err := LoadYAML(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, source)
	})

	t.Run("It fails on invalid input", func(t *testing.T) {
		_, err := LoadYAML(strings.NewReader("Oidc: [unterminated"))
		assert.ErrorContains(t, err, "failed to decode configuration")
	})
}

func Test_EnvSource(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"TENANTJWT_Oidc__acme__Authority=https://from-file\nTENANTJWT_Oidc__acme__ClientId=app1\n",
	), 0o600))

	t.Setenv("TENANTJWT_Oidc__acme__Authority", "https://from-env")
	t.Setenv("UNRELATED", "x")

	source, err := EnvSource("TENANTJWT_", dotenv)
	require.NoError(t, err)

	section, ok, err := source.Section(context.Background(), "Oidc:acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Section{"authority": "https://from-env", "clientid": "app1"}, section)

	_, err = EnvSource("TENANTJWT_", filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

// replaceFile swaps content in with a rename so the watcher never sees a
// truncated file.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func Test_WatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	replaceFile(t, path, "Oidc:\n  acme:\n    ClientId: v1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := WatchFile(ctx, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = source.Close() })

	clientID := func() string {
		section, _, _ := source.Section(context.Background(), "Oidc:acme")
		return section["clientid"]
	}
	assert.Equal(t, "v1", clientID())

	t.Run("It reloads when the file is replaced", func(t *testing.T) {
		replaceFile(t, path, "Oidc:\n  acme:\n    ClientId: v2\n")
		require.Eventually(t, func() bool { return clientID() == "v2" }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("It keeps the previous content when the file breaks", func(t *testing.T) {
		reloads := source.Reloads()
		replaceFile(t, path, "Oidc: [broken")
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, "v2", clientID())
		assert.Equal(t, reloads, source.Reloads())
	})

	t.Run("It fails for a missing file", func(t *testing.T) {
		_, err := WatchFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"), nil)
		assert.Error(t, err)
	})
}

type stubRedis struct {
	hashes map[string]map[string]string
	err    error
}

func (s stubRedis) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	if s.err != nil {
		return redis.NewMapStringStringResult(nil, s.err)
	}
	return redis.NewMapStringStringResult(s.hashes[key], nil)
}

func Test_RedisSource(t *testing.T) {
	source := NewRedisSource(stubRedis{hashes: map[string]map[string]string{
		"tenantjwt:Oidc:acme": {"Authority": "https://idp", "ClientId": "app1"},
	}}, "tenantjwt:")

	section, ok, err := source.Section(context.Background(), "Oidc:acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Section{"authority": "https://idp", "clientid": "app1"}, section)

	_, ok, err = source.Section(context.Background(), "Oidc:beta")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = NewRedisSource(stubRedis{err: redis.ErrClosed}, "").Section(context.Background(), "Oidc:acme")
	assert.ErrorIs(t, err, redis.ErrClosed)
}
