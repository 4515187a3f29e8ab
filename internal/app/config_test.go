package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otslabs/tsgallery/internal/store/tablestore"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 7870, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)

	require.Equal(t, "tablestore", cfg.Store.Driver)
	require.Empty(t, cfg.Store.Tablestore.Endpoint)
	require.Equal(t, "./data/tsgallery.sqlite", cfg.Store.Path)

	require.Equal(t, "local", cfg.Images.Backend)
	require.Equal(t, "data/images", cfg.Images.Dir)
	require.Equal(t, 256, cfg.Images.Thumbnails.Width)
	require.Equal(t, 256, cfg.Images.Thumbnails.Height)

	require.Equal(t, 30*time.Minute, cfg.Gallery.SessionMaxIdle)
	require.Equal(t, 20, cfg.Gallery.PageSize)
	require.Equal(t, 100, cfg.Gallery.MaxPageSize)

	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Store.Driver)
	require.Equal(t, "db.example.com", cfg.Store.Postgres.Host)
	require.Equal(t, 5433, cfg.Store.Postgres.Port)
	require.Equal(t, "tsgallery", cfg.Store.Postgres.Database)

	require.Equal(t, "https://plugin-ots.cn-hangzhou.ots.aliyuncs.com", cfg.Store.Tablestore.Endpoint)
	require.Equal(t, "plugin-ots", cfg.Store.Tablestore.InstanceName)
	require.Equal(t, "gallery_records_v2", cfg.Store.Tablestore.Table)

	require.Equal(t, "s3", cfg.Images.Backend)
	require.Equal(t, "generated-images", cfg.Images.S3.Bucket)
	require.True(t, cfg.Images.S3.PathStyle)
	require.Equal(t, 320, cfg.Images.Thumbnails.Width)
	require.Equal(t, 200, cfg.Images.Thumbnails.Height)

	require.Equal(t, 45*time.Minute, cfg.Gallery.SessionMaxIdle)
	require.Equal(t, 36, cfg.Gallery.PageSize)
	require.Equal(t, 144, cfg.Gallery.MaxPageSize)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/internal/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigReadsUpstreamCredentialVariables(t *testing.T) {
	t.Setenv(tablestore.EnvEndpoint, "https://env-inst.cn-shanghai.ots.aliyuncs.com")
	t.Setenv(tablestore.EnvAccessKeyID, "env-key-id")
	t.Setenv(tablestore.EnvAccessKeySecret, "env-key-secret")
	t.Setenv(tablestore.EnvInstanceName, "env-inst")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "https://env-inst.cn-shanghai.ots.aliyuncs.com", cfg.Store.Tablestore.Endpoint)
	require.Equal(t, "env-key-id", cfg.Store.Tablestore.AccessKeyID)
	require.Equal(t, "env-key-secret", cfg.Store.Tablestore.AccessKeySecret)
	require.Equal(t, "env-inst", cfg.Store.Tablestore.InstanceName)
}

func TestPrefixedCredentialVariablesWin(t *testing.T) {
	t.Setenv(tablestore.EnvInstanceName, "legacy-inst")
	t.Setenv("TSGALLERY_STORE_TABLESTORE_INSTANCE_NAME", "prefixed-inst")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "prefixed-inst", cfg.Store.Tablestore.InstanceName)
}

func TestTablestoreClientConfigTrims(t *testing.T) {
	section := TablestoreConfig{
		Endpoint:        "  https://inst.cn-hangzhou.ots.aliyuncs.com ",
		AccessKeyID:     " key ",
		AccessKeySecret: " secret ",
		InstanceName:    " inst ",
		Table:           " records ",
	}

	cc := section.ClientConfig()
	require.Equal(t, "https://inst.cn-hangzhou.ots.aliyuncs.com", cc.Endpoint)
	require.Equal(t, "key", cc.AccessKeyID)
	require.Equal(t, "secret", cc.AccessKeySecret)
	require.Equal(t, "inst", cc.InstanceName)
	require.Equal(t, "records", cc.TableName)
	require.Empty(t, cc.IndexName)
}
