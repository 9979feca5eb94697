package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "image-browser"}
	RegisterFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func withCredentials(t *testing.T) {
	t.Setenv("IMAGEBROWSER_AUTH_USERNAME", "admin")
	t.Setenv("IMAGEBROWSER_AUTH_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	withCredentials(t)

	cfg, err := Load(newCommand(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "R2 Image Browser", cfg.Auth.Realm)
	assert.False(t, cfg.Auth.ProtectReads)
	assert.Equal(t, 1024, cfg.Limits.MaxPathLength)
	assert.Equal(t, int64(10<<20), cfg.Limits.MaxUploadSize)
	assert.Equal(t, 50, cfg.Limits.BatchSize)
	assert.Equal(t, 50000, cfg.Limits.MaxListObjects)
	assert.Equal(t, 1000, cfg.Limits.PageSize)
	assert.Equal(t, 1000, cfg.Limits.RenameAttempts)
	assert.Equal(t, 100, cfg.Limits.ReportCap)
	assert.Equal(t, "rename", cfg.Upload.DefaultConflictPolicy)
	assert.Empty(t, cfg.Stats.ExcludePrefixes)
	assert.Equal(t, "auto", cfg.Storage.S3.Region)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadEnvironmentAndFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	withCredentials(t)
	t.Setenv("IMAGEBROWSER_STORAGE_TYPE", "minio")
	t.Setenv("IMAGEBROWSER_STORAGE_MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("IMAGEBROWSER_LIMITS_BATCH_SIZE", "10")

	cfg, err := Load(newCommand(t, "--port", "9090"))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.Equal(t, "localhost:9000", cfg.Storage.MinIO.Endpoint)
	assert.Equal(t, 10, cfg.Limits.BatchSize)

	cfg, err = Load(newCommand(t, "--storage-type", "s3"))
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Type)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "browser.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
  public_url: https://img.example.com
storage:
  type: azure
  bucket: pictures
  azure:
    account_name: acct
auth:
  username: u
  password: p
  protect_reads: true
stats:
  exclude_prefixes: [".thumb/"]
log:
  format: text
`), 0o600))

	cfg, err := Load(newCommand(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "https://img.example.com", cfg.Server.PublicURL)
	assert.Equal(t, "azure", cfg.Storage.Type)
	assert.Equal(t, "pictures", cfg.Storage.Bucket)
	assert.Equal(t, "acct", cfg.Storage.Azure.AccountName)
	assert.True(t, cfg.Auth.ProtectReads)
	assert.Equal(t, []string{".thumb/"}, cfg.Stats.ExcludePrefixes)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(newCommand(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.username")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Type: "memory"},
			Auth:    AuthConfig{Username: "a", Password: "b"},
			Limits: LimitsConfig{
				MaxPathLength:  1024,
				MaxUploadSize:  1,
				BatchSize:      1,
				MaxListObjects: 1,
				PageSize:       1,
				RenameAttempts: 1,
				ReportCap:      1,
			},
			Upload:  UploadConfig{DefaultConflictPolicy: "skip"},
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		}
	}
	require.NoError(t, Validate(valid()))

	tests := map[string]func(*Config){
		"storage type": func(c *Config) { c.Storage.Type = "ftp" },
		"bucket":       func(c *Config) { c.Storage.Type = "s3"; c.Storage.Bucket = "" },
		"port":         func(c *Config) { c.Server.Port = 0 },
		"batch size":   func(c *Config) { c.Limits.BatchSize = 0 },
		"upload size":  func(c *Config) { c.Limits.MaxUploadSize = -1 },
		"policy":       func(c *Config) { c.Upload.DefaultConflictPolicy = "merge" },
		"metrics path": func(c *Config) { c.Metrics.Path = "metrics" },
		"password":     func(c *Config) { c.Auth.Password = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
