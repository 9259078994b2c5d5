package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "conf.ini")

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, "sqlite", cfg.GetString(KeyDBType))
	assert.Equal(t, "local", cfg.GetString(KeyUploadSerialize))
	assert.Equal(t, 1024, cfg.GetInt(KeyUploadMaxSizeMB))
}

func TestNewConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.ini")
	require.NoError(t, os.WriteFile(path, []byte("[System\nPort = 1"), 0o644))

	_, err := NewConfig(path)
	assert.Error(t, err)
}

func TestNewConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Database]\nType = mysql\n"), 0o644))
	t.Setenv("APPDIST_DATABASE_TYPE", "postgres")
	t.Setenv("STORAGE_URL", "s3://bucket/prefix")

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.GetString(KeyDBType))
	assert.Equal(t, "s3://bucket/prefix", cfg.GetString(KeyStorageURL))
}

func TestApplyEnv_PrefixWinsOverLegacy(t *testing.T) {
	env := map[string]string{
		"APPDIST_UPLOAD_AUTHTOKEN":  "new-token",
		"UPLOADS_SECRET_AUTH_TOKEN": "old-token",
		"DATABASE_URL":              "postgres://u:p@db/app",
	}
	vp := viper.New()
	applyEnv(vp, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "new-token", vp.GetString(KeyUploadAuthToken))
	assert.Equal(t, "postgres://u:p@db/app", vp.GetString(KeyDBURL))
}

func TestApplyINI_SkipsEmptyValues(t *testing.T) {
	f, err := ini.Load([]byte("[Redis]\nAddr =\nDB = 3\n"))
	require.NoError(t, err)
	vp := viper.New()
	vp.SetDefault(KeyRedisAddr, "fallback:6379")
	applyINI(vp, f)
	assert.Equal(t, "fallback:6379", vp.GetString(KeyRedisAddr))
	assert.Equal(t, 3, vp.GetInt(KeyRedisDB))
}

func TestNewFromValues(t *testing.T) {
	cfg := NewFromValues(map[string]any{KeyUploadAuthToken: "abc"})
	assert.False(t, cfg.UsesDefaultAuthToken())
	assert.True(t, NewFromValues(nil).UsesDefaultAuthToken())
	assert.Equal(t, "@every 30m", cfg.GetString(KeyReconcileCron))
}

func TestGetStringList(t *testing.T) {
	cfg := NewFromValues(map[string]any{KeyServerCorsOrigins: " https://a.example , ,https://b.example"})
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.GetStringList(KeyServerCorsOrigins))

	assert.Equal(t, []string{"*"}, NewFromValues(nil).GetStringList(KeyServerCorsOrigins))
}
