package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Port)
	assert.Equal(t, "post-images", cfg.S3.Bucket)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, int64(30), cfg.RateLimit.Toggles)
	assert.Equal(t, 40, cfg.DB.MaxOpen)
	assert.Equal(t, "host=localhost port=5432 user=gatherly password=gatherly dbname=gatherly sslmode=disable", cfg.DSN())
	assert.Empty(t, cfg.ReplicaDSNs())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: ":9000"
db:
  host: db.internal
  replicas: "host=r1, host=r2"
kafka:
  posts_topic: custom.posts
ratelimit:
  window: 1m
`), 0o600))

	t.Setenv("GATHERLY_DB_HOST", "db.override")
	t.Setenv("GATHERLY_KAFKA_ASYNC", "true")
	t.Setenv("GATHERLY_DB_MAX_OPEN", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.App.Port)
	assert.Equal(t, "db.override", cfg.DB.Host)
	assert.Equal(t, 7, cfg.DB.MaxOpen)
	assert.Equal(t, "custom.posts", cfg.Kafka.PostsTopic)
	assert.True(t, cfg.Kafka.Async)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"host=r1", "host=r2"}, cfg.ReplicaDSNs())
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := Load("gatherly.yaml")
	require.NoError(t, err)
	assert.True(t, cfg.App.AutoMigrate)
	assert.Equal(t, "posts.lifecycle", cfg.Kafka.PostsTopic)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "http://localhost:9000", cfg.S3.PublicURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.App.Env = "production"
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "s3cret"
	assert.NoError(t, cfg.Validate())

	cfg.OTEL.SamplerRatio = 2
	assert.Error(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "db.max_open", envKey("GATHERLY_DB_MAX_OPEN"))
	assert.Equal(t, "s3.access_key", envKey("GATHERLY_S3_ACCESS_KEY"))
	assert.Equal(t, "app", envKey("GATHERLY_APP"))
}
