package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the configuration for the image browser
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Stats   StatsConfig   `mapstructure:"stats"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int `mapstructure:"port"`

	// PublicURL prefixes the URLs handed out for stored images
	PublicURL string `mapstructure:"public_url"`
}

// StorageConfig holds the storage configuration
type StorageConfig struct {
	Type string `mapstructure:"type"` // memory, minio, s3, azure, oss, obs

	// Bucket (or Azure container) holding the images
	Bucket string `mapstructure:"bucket"`

	MinIO MinIOConfig `mapstructure:"minio"`
	S3    S3Config    `mapstructure:"s3"`
	OSS   OSSConfig   `mapstructure:"oss"`
	OBS   OBSConfig   `mapstructure:"obs"`
	Azure AzureConfig `mapstructure:"azure"`
}

// MinIOConfig holds MinIO configuration
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// S3Config holds configuration for AWS S3 and compatible services such as R2
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// OSSConfig holds Aliyun OSS configuration
type OSSConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// OBSConfig holds Huawei Cloud OBS configuration
type OBSConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// AzureConfig holds Azure Blob configuration
type AzureConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
}

// AuthConfig holds the Basic auth credentials for admin routes
type AuthConfig struct {
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Realm        string `mapstructure:"realm"`
	ProtectReads bool   `mapstructure:"protect_reads"`
}

// LimitsConfig bounds request and listing sizes
type LimitsConfig struct {
	MaxPathLength  int   `mapstructure:"max_path_length"`
	MaxUploadSize  int64 `mapstructure:"max_upload_size"`
	BatchSize      int   `mapstructure:"batch_size"`
	MaxListObjects int   `mapstructure:"max_list_objects"`
	PageSize       int   `mapstructure:"page_size"`
	RenameAttempts int   `mapstructure:"rename_attempts"`
	ReportCap      int   `mapstructure:"report_cap"`
}

// UploadConfig holds upload behaviour
type UploadConfig struct {
	DefaultConflictPolicy string `mapstructure:"default_conflict_policy"`
}

// StatsConfig controls the bucket statistics endpoint
type StatsConfig struct {
	// ExcludePrefixes are key prefixes left out of the statistics
	ExcludePrefixes []string `mapstructure:"exclude_prefixes"`
}

// LogConfig holds log configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var storageTypes = map[string]bool{
	"memory": true,
	"minio":  true,
	"s3":     true,
	"azure":  true,
	"oss":    true,
	"obs":    true,
}

var conflictPolicies = map[string]bool{
	"overwrite": true,
	"skip":      true,
	"rename":    true,
}

// RegisterFlags adds the flags Load understands to cmd
func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Configuration file path")
	cmd.Flags().IntP("port", "p", 8080, "HTTP port")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("storage-type", "memory", "Storage backend (memory, minio, s3, azure, oss, obs)")
}

// Load loads configuration from defaults, an optional config file,
// environment variables and command line flags, in increasing priority
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// No config file, defaults and environment variables apply
		}
	}

	v.SetEnvPrefix("IMAGEBROWSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.public_url", "")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.bucket", "images")
	for _, key := range []string{
		"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.use_ssl",
		"s3.endpoint", "s3.region", "s3.access_key", "s3.secret_key", "s3.use_path_style",
		"oss.endpoint", "oss.access_key", "oss.secret_key", "oss.use_ssl",
		"obs.endpoint", "obs.access_key", "obs.secret_key", "obs.use_ssl",
		"azure.endpoint", "azure.account_name", "azure.account_key", "azure.connection_string",
	} {
		// Registered so that AutomaticEnv can see them
		if strings.HasSuffix(key, "use_ssl") || strings.HasSuffix(key, "use_path_style") {
			v.SetDefault("storage."+key, false)
		} else {
			v.SetDefault("storage."+key, "")
		}
	}
	v.SetDefault("storage.s3.region", "auto")

	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.realm", "R2 Image Browser")
	v.SetDefault("auth.protect_reads", false)

	v.SetDefault("limits.max_path_length", 1024)
	v.SetDefault("limits.max_upload_size", 10<<20)
	v.SetDefault("limits.batch_size", 50)
	v.SetDefault("limits.max_list_objects", 50000)
	v.SetDefault("limits.page_size", 1000)
	v.SetDefault("limits.rename_attempts", 1000)
	v.SetDefault("limits.report_cap", 100)

	v.SetDefault("upload.default_conflict_policy", "rename")
	v.SetDefault("stats.exclude_prefixes", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"port":         "server.port",
		"log-level":    "log.level",
		"storage-type": "storage.type",
	}

	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks a loaded configuration
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if !storageTypes[cfg.Storage.Type] {
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	if cfg.Storage.Type != "memory" && cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if cfg.Auth.Username == "" || cfg.Auth.Password == "" {
		return fmt.Errorf("auth.username and auth.password are required: set them in the config file or via IMAGEBROWSER_AUTH_USERNAME and IMAGEBROWSER_AUTH_PASSWORD")
	}

	limits := map[string]int64{
		"limits.max_path_length":  int64(cfg.Limits.MaxPathLength),
		"limits.max_upload_size":  cfg.Limits.MaxUploadSize,
		"limits.batch_size":       int64(cfg.Limits.BatchSize),
		"limits.max_list_objects": int64(cfg.Limits.MaxListObjects),
		"limits.page_size":        int64(cfg.Limits.PageSize),
		"limits.rename_attempts":  int64(cfg.Limits.RenameAttempts),
		"limits.report_cap":       int64(cfg.Limits.ReportCap),
	}
	for name, value := range limits {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if !conflictPolicies[strings.ToLower(cfg.Upload.DefaultConflictPolicy)] {
		return fmt.Errorf("unknown upload.default_conflict_policy: %s", cfg.Upload.DefaultConflictPolicy)
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}
