package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openctemio/connector/pkg/validator"
)

// DefaultIngestHost is the import API used when KDI_API_HOST is unset.
const DefaultIngestHost = "api.kennasecurity.com"

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// redacted replaces secrets in Redacted copies.
const redacted = "********"

// Config holds all connector configuration.
type Config struct {
	App      AppConfig      `yaml:"app" json:"app"`
	Armis    ArmisConfig    `yaml:"armis" json:"armis"`
	Filter   FilterConfig   `yaml:"filter" json:"filter"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Ingest   IngestConfig   `yaml:"ingest" json:"ingest"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	// Connector names artifacts and labels metrics.
	Connector string `yaml:"connector" json:"connector" validate:"required,alphanum"`
	Env       string `yaml:"env" json:"env"`
}

// ArmisConfig holds the source API endpoint and credentials.
type ArmisConfig struct {
	Host              string  `yaml:"host" json:"host" validate:"required"`
	Username          string  `yaml:"username" json:"username" validate:"required"`
	Password          string  `yaml:"password" json:"password" validate:"required"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"min=0"`
}

// FilterConfig holds the optional findings filters.
type FilterConfig struct {
	Severity  string `yaml:"severity" json:"severity" validate:"armis_severity"`
	Status    string `yaml:"status" json:"status" validate:"armis_status"`
	Name      string `yaml:"name" json:"name"`
	DeviceMac string `yaml:"device_mac" json:"device_mac" validate:"omitempty,mac"`
}

// PipelineConfig controls paging.
type PipelineConfig struct {
	BatchSize int `yaml:"batch_size" json:"batch_size" validate:"min=1,max=10000"`
	// IncludePartialPage also processes the trailing page when the total is
	// not a multiple of BatchSize.
	IncludePartialPage bool `yaml:"include_partial_page" json:"include_partial_page"`
}

// OutputConfig holds where documents are written. Directory may be a local
// path or s3://bucket/prefix.
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory" validate:"required"`
}

// IngestConfig holds the import API settings. Uploads are skipped when
// ConnectorID or APIKey is empty.
type IngestConfig struct {
	Host          string `yaml:"host" json:"host" validate:"required"`
	APIKey        string `yaml:"api_key" json:"api_key"`
	ConnectorID   string `yaml:"connector_id" json:"connector_id" validate:"omitempty,numeric"`
	SkipAutoclose bool   `yaml:"skip_autoclose" json:"skip_autoclose"`
	MaxRetries    int    `yaml:"max_retries" json:"max_retries" validate:"min=0,max=20"`
	Version       int    `yaml:"version" json:"version" validate:"min=1,max=2"`
}

// HTTPConfig holds outbound transport settings for the source API.
type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries      int           `yaml:"max_retries" json:"max_retries" validate:"min=0,max=20"`
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" json:"max_interval"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=json text JSON TEXT"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// PushgatewayURL receives run metrics after every run when set.
	PushgatewayURL string `yaml:"pushgateway_url" json:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job" json:"job"`
	// ListenAddr serves /metrics and /health in schedule mode.
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// TracingConfig holds OpenTelemetry settings. Tracing is off when
// Endpoint is empty.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	Insecure    bool    `yaml:"insecure" json:"insecure"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio" validate:"min=0,max=1"`
}

// ScheduleConfig holds the cron settings of the schedule command.
type ScheduleConfig struct {
	Cron       string `yaml:"cron" json:"cron"`
	RunOnStart bool   `yaml:"run_on_start" json:"run_on_start"`
}

// StorageConfig holds S3 settings used for s3:// output directories.
type StorageConfig struct {
	Region     string `yaml:"region" json:"region"`
	Endpoint   string `yaml:"endpoint" json:"endpoint"`
	AuthType   string `yaml:"auth_type" json:"auth_type" validate:"omitempty,oneof=default keys sts_role"`
	AccessKey  string `yaml:"access_key" json:"access_key"`
	SecretKey  string `yaml:"secret_key" json:"secret_key"`
	RoleARN    string `yaml:"role_arn" json:"role_arn"`
	ExternalID string `yaml:"external_id" json:"external_id"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Connector: getEnv("CONNECTOR_NAME", "armis"),
			Env:       getEnv("APP_ENV", "development"),
		},
		Armis: ArmisConfig{
			Host:              getEnv("ARMIS_HOST", ""),
			Username:          getEnv("ARMIS_USERNAME", ""),
			Password:          getEnv("ARMIS_PASSWORD", ""),
			RequestsPerSecond: getEnvFloat("ARMIS_REQUESTS_PER_SECOND", 0),
		},
		Filter: FilterConfig{
			Severity:  getEnv("ARMIS_SEVERITY", ""),
			Status:    getEnv("ARMIS_STATUS", ""),
			Name:      getEnv("ARMIS_NAME", ""),
			DeviceMac: getEnv("ARMIS_DEVICE_MAC", ""),
		},
		Pipeline: PipelineConfig{
			BatchSize:          getEnvInt("BATCH_SIZE", 100),
			IncludePartialPage: getEnvBool("INCLUDE_PARTIAL_PAGE", false),
		},
		Output: OutputConfig{
			Directory: getEnv("OUTPUT_DIRECTORY", ""),
		},
		Ingest: IngestConfig{
			Host:          getEnv("KDI_API_HOST", DefaultIngestHost),
			APIKey:        getEnv("KDI_API_KEY", ""),
			ConnectorID:   getEnv("KDI_CONNECTOR_ID", ""),
			SkipAutoclose: getEnvBool("KDI_SKIP_AUTOCLOSE", false),
			MaxRetries:    getEnvInt("KDI_MAX_RETRIES", 5),
			Version:       getEnvInt("KDI_VERSION", 2),
		},
		HTTP: HTTPConfig{
			Timeout:         getEnvDuration("HTTP_TIMEOUT", 60*time.Second),
			MaxRetries:      getEnvInt("HTTP_MAX_RETRIES", 5),
			InitialInterval: getEnvDuration("HTTP_RETRY_INITIAL_INTERVAL", 500*time.Millisecond),
			MaxInterval:     getEnvDuration("HTTP_RETRY_MAX_INTERVAL", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
			Job:            getEnv("METRICS_JOB", "openctem_connector"),
			ListenAddr:     getEnv("METRICS_LISTEN_ADDR", ":9102"),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "openctem-connector"),
			SampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
		Schedule: ScheduleConfig{
			Cron:       getEnv("SCHEDULE_CRON", "0 */6 * * *"),
			RunOnStart: getEnvBool("SCHEDULE_RUN_ON_START", true),
		},
		Storage: StorageConfig{
			Region:     getEnv("S3_REGION", ""),
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			AuthType:   getEnv("S3_AUTH_TYPE", ""),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			RoleARN:    getEnv("S3_ROLE_ARN", ""),
			ExternalID: getEnv("S3_EXTERNAL_ID", ""),
		},
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadFile loads configuration from the environment and overlays the YAML
// file at path. Keys missing from the file keep their environment value.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills values derived from other settings. It is called by
// Load and LoadFile and must be called again after overriding fields.
func (c *Config) ApplyDefaults() {
	if c.App.Connector == "" {
		c.App.Connector = "armis"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "output/" + c.App.Connector
	}
	if c.Ingest.Host == "" {
		c.Ingest.Host = DefaultIngestHost
	}
	c.Filter.Severity = strings.ToUpper(c.Filter.Severity)
	c.Filter.Status = strings.ToUpper(c.Filter.Status)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Validate(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Storage.AuthType == "keys" && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("%w: s3 auth type keys requires access_key and secret_key", ErrInvalidConfig)
	}
	if c.Storage.AuthType == "sts_role" && c.Storage.RoleARN == "" {
		return fmt.Errorf("%w: s3 auth type sts_role requires role_arn", ErrInvalidConfig)
	}
	return nil
}

// CanUpload reports whether documents are uploaded to the import API.
func (c *Config) CanUpload() bool {
	return c.Ingest.ConnectorID != "" && c.Ingest.APIKey != ""
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&out.Armis.Password)
	mask(&out.Ingest.APIKey)
	mask(&out.Storage.SecretKey)
	mask(&out.Storage.AccessKey)
	return &out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
