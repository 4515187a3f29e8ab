package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/otslabs/tsgallery/internal/store/tablestore"
)

// Config represents the runtime configuration for the gallery sidecar.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Images     ImagesConfig     `mapstructure:"images"`
	Gallery    GalleryConfig    `mapstructure:"gallery"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// StoreConfig selects and configures the record store backend. The
// default driver is tablestore; sqlite, mysql and postgres run the
// relational backend for self-hosted setups.
type StoreConfig struct {
	Driver     string           `mapstructure:"driver"`
	Tablestore TablestoreConfig `mapstructure:"tablestore"`
	Path       string           `mapstructure:"path"`
	DSN        string           `mapstructure:"dsn"`
	Postgres   DBAuthConfig     `mapstructure:"postgres"`
	MySQL      DBAuthConfig     `mapstructure:"mysql"`
}

// TablestoreConfig holds the hosted table store credentials. The four
// credential fields come from the OTS_*_ENV variables the WebUI
// extension documented, so existing deployments keep working without a
// config file.
type TablestoreConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	InstanceName    string `mapstructure:"instance_name"`
	Table           string `mapstructure:"table"`
	Index           string `mapstructure:"index"`
}

// ClientConfig converts the section into the store backend's config.
func (c TablestoreConfig) ClientConfig() tablestore.Config {
	return tablestore.Config{
		Endpoint:        strings.TrimSpace(c.Endpoint),
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		AccessKeySecret: strings.TrimSpace(c.AccessKeySecret),
		InstanceName:    strings.TrimSpace(c.InstanceName),
		TableName:       strings.TrimSpace(c.Table),
		IndexName:       strings.TrimSpace(c.Index),
	}
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ImagesConfig configures where generated image files live.
type ImagesConfig struct {
	Backend    string          `mapstructure:"backend"`
	Dir        string          `mapstructure:"dir"`
	S3         S3ImagesConfig  `mapstructure:"s3"`
	Thumbnails ThumbnailConfig `mapstructure:"thumbnails"`
}

// S3ImagesConfig points at an S3-compatible bucket for shared setups.
type S3ImagesConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

// ThumbnailConfig sizes the gallery thumbnail cache.
type ThumbnailConfig struct {
	Dir    string `mapstructure:"dir"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// GalleryConfig tunes the web tab's session handling and paging.
type GalleryConfig struct {
	SessionMaxIdle time.Duration `mapstructure:"session_max_idle"`
	PageSize       int           `mapstructure:"page_size"`
	MaxPageSize    int           `mapstructure:"max_page_size"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible
// defaults. Missing table store credentials are not an error here: the store
// layer reports them per operation so the tab can show the problem inline.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("TSGALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindCredentialEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// bindCredentialEnv wires the upstream OTS_*_ENV variables next to the
// prefixed forms. The prefixed variable wins when both are set.
func bindCredentialEnv(v *viper.Viper) {
	_ = v.BindEnv("store.tablestore.endpoint",
		"TSGALLERY_STORE_TABLESTORE_ENDPOINT", tablestore.EnvEndpoint)
	_ = v.BindEnv("store.tablestore.access_key_id",
		"TSGALLERY_STORE_TABLESTORE_ACCESS_KEY_ID", tablestore.EnvAccessKeyID)
	_ = v.BindEnv("store.tablestore.access_key_secret",
		"TSGALLERY_STORE_TABLESTORE_ACCESS_KEY_SECRET", tablestore.EnvAccessKeySecret)
	_ = v.BindEnv("store.tablestore.instance_name",
		"TSGALLERY_STORE_TABLESTORE_INSTANCE_NAME", tablestore.EnvInstanceName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 7870)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("store.driver", "tablestore")
	v.SetDefault("store.tablestore.endpoint", "")
	v.SetDefault("store.tablestore.access_key_id", "")
	v.SetDefault("store.tablestore.access_key_secret", "")
	v.SetDefault("store.tablestore.instance_name", "")
	v.SetDefault("store.tablestore.table", "")
	v.SetDefault("store.tablestore.index", "")
	v.SetDefault("store.path", "./data/tsgallery.sqlite")

	v.SetDefault("images.backend", "local")
	v.SetDefault("images.dir", "data/images")
	v.SetDefault("images.thumbnails.dir", "data/thumbnails")
	v.SetDefault("images.thumbnails.width", 256)
	v.SetDefault("images.thumbnails.height", 256)
	v.SetDefault("images.s3.path_style", false)

	v.SetDefault("gallery.session_max_idle", "30m")
	v.SetDefault("gallery.page_size", 20)
	v.SetDefault("gallery.max_page_size", 100)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
