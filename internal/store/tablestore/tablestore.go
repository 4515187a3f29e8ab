// Package tablestore persists generation records in an Alibaba Cloud
// Tablestore table with an attached search index.
package tablestore

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	ots "github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	"go.uber.org/zap"

	"github.com/otslabs/tsgallery/internal/models"
	appErrors "github.com/otslabs/tsgallery/pkg/errors"
	"github.com/otslabs/tsgallery/pkg/logger"
)

// Credentials come from the environment under these exact names.
const (
	EnvEndpoint        = "OTS_ENDPOINT_ENV"
	EnvAccessKeyID     = "OTS_ACCESS_KEY_ID_ENV"
	EnvAccessKeySecret = "OTS_ACCESS_KEY_SECRET_ENV"
	EnvInstanceName    = "OTS_INSTANCE_NAME_ENV"
)

// DefaultTableName carries a version suffix so future schema changes
// can roll over to a fresh table.
const DefaultTableName = "stable_diffusion_webui_plugin_tablestore_sd_manager_v1"

const indexSuffix = "_search_index"

// Config selects the Tablestore instance and table. Empty TableName
// and IndexName fall back to the defaults.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	InstanceName    string
	TableName       string
	IndexName       string
}

// FromEnv builds a Config from the four credential variables.
func FromEnv() Config {
	return Config{
		Endpoint:        os.Getenv(EnvEndpoint),
		AccessKeyID:     os.Getenv(EnvAccessKeyID),
		AccessKeySecret: os.Getenv(EnvAccessKeySecret),
		InstanceName:    os.Getenv(EnvInstanceName),
	}
}

// Validate checks the credential set and reports the first missing
// variable by name.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return appErrors.NewConfiguration(EnvEndpoint)
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		return appErrors.NewConfiguration(EnvAccessKeyID)
	}
	if strings.TrimSpace(c.AccessKeySecret) == "" {
		return appErrors.NewConfiguration(EnvAccessKeySecret)
	}
	if strings.TrimSpace(c.InstanceName) == "" {
		return appErrors.NewConfiguration(EnvInstanceName)
	}
	return nil
}

// Store talks to one Tablestore table and its search index.
type Store struct {
	client *ots.TableStoreClient
	cfg    Config
	region string
	log    *zap.Logger
}

// New validates the configuration and builds a client. No network
// call happens here; connectivity problems surface on first use.
func New(cfg Config) (*Store, error) {
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.IndexName == "" {
		cfg.IndexName = cfg.TableName + indexSuffix
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region, err := parseRegion(cfg.Endpoint, cfg.InstanceName)
	if err != nil {
		return nil, err
	}

	return &Store{
		client: ots.NewClient(cfg.Endpoint, cfg.InstanceName, cfg.AccessKeyID, cfg.AccessKeySecret),
		cfg:    cfg,
		region: region,
		log:    logger.WithModule("store.tablestore"),
	}, nil
}

// parseRegion recovers the region segment from the instance endpoint,
// e.g. https://my-instance.cn-hangzhou.ots.aliyuncs.com.
func parseRegion(endpoint, instance string) (string, error) {
	if !strings.Contains(endpoint, instance) {
		return "", appErrors.NewConfigurationInvalid(EnvEndpoint,
			fmt.Sprintf("instance name %s must appear in endpoint %s", instance, endpoint))
	}

	re := regexp.MustCompile(`.*` + regexp.QuoteMeta(instance) + `\.([^.]+)`)
	m := re.FindStringSubmatch(endpoint)
	if m == nil {
		return "", appErrors.NewConfigurationInvalid(EnvEndpoint,
			fmt.Sprintf("cannot parse region from endpoint %s", endpoint))
	}
	return m[1], nil
}

// Region reports the region parsed from the endpoint.
func (s *Store) Region() string {
	return s.region
}

// ConsoleURL points at the table's data view in the cloud console.
func (s *Store) ConsoleURL() string {
	return fmt.Sprintf("https://otsnext.console.aliyun.com/%s/%s/%s/dataManage",
		s.region, s.cfg.InstanceName, s.cfg.TableName)
}

func (s *Store) primaryKey(id string) *ots.PrimaryKey {
	pk := new(ots.PrimaryKey)
	pk.AddPrimaryKeyColumn(models.PrimaryKeyColumn, id)
	return pk
}
