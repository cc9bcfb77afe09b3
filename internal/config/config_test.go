package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
logging:
  level: debug
  format: console
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: mri
  password: secret
  name: mindmate
minio:
  endpoint: minio.internal:9000
  accessKey: ak
  secretKey: sk
  bucketName: mri-scans
analysis:
  baseURL: https://assemblynet.internal
  pollIntervalSeconds: 5
  maxPollAttempts: 120
  countTransientPolls: false
cron:
  secret: s3cret
  batchLimit: 10
worker:
  intervalMinutes: 15
  runOnStart: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "mri-scans", cfg.Minio.BucketName)
	assert.Equal(t, "https://assemblynet.internal", cfg.Analysis.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 120, cfg.Analysis.MaxPollAttempts)
	assert.False(t, cfg.CountTransientPolls())
	assert.Equal(t, "s3cret", cfg.Cron.Secret)
	assert.Equal(t, 10, cfg.Cron.BatchLimit)
	assert.True(t, cfg.Worker.RunOnStart)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, 60, cfg.Analysis.MaxPollAttempts)
	assert.Equal(t, 30, cfg.Analysis.RequestTimeoutSeconds)
	assert.Equal(t, 5, cfg.Cron.BatchLimit)
	assert.Equal(t, 5, cfg.Worker.IntervalMinutes)
	assert.True(t, cfg.CountTransientPolls(), "unset countTransientPolls means the shared budget")
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
cron:
  secret: from-file
database:
  password: from-file
`)

	t.Setenv("CRON_SECRET", "from-env")
	t.Setenv("DB_PASSWORD", "env-pass")
	t.Setenv("MRI_ANALYSIS_MODEL_URL", "https://assemblynet.override")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Cron.Secret)
	assert.Equal(t, "env-pass", cfg.Database.Password)
	assert.Equal(t, "https://assemblynet.override", cfg.Analysis.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	var cfg Config
	cfg.Database.Host = "db.internal"
	cfg.Database.Port = 3306
	cfg.Database.User = "mri"
	cfg.Database.Password = "pw"
	cfg.Database.Name = "mindmate"

	assert.Equal(t,
		"mri:pw@tcp(db.internal:3306)/mindmate?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.MySQLDSN())
	assert.Equal(t,
		"host=db.internal port=3306 user=mri password=pw dbname=mindmate sslmode=disable",
		cfg.PostgresDSN())
}
