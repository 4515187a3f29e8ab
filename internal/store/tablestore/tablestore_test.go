package tablestore

import (
	"testing"

	ots "github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	"github.com/stretchr/testify/require"

	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

func validConfig() Config {
	return Config{
		Endpoint:        "https://gallery-inst.cn-hangzhou.ots.aliyuncs.com",
		AccessKeyID:     "ak-id",
		AccessKeySecret: "ak-secret",
		InstanceName:    "gallery-inst",
	}
}

func TestValidateNamesMissingVariable(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		envVar string
	}{
		{"endpoint", func(c *Config) { c.Endpoint = "" }, EnvEndpoint},
		{"access key id", func(c *Config) { c.AccessKeyID = "" }, EnvAccessKeyID},
		{"access key secret", func(c *Config) { c.AccessKeySecret = "  " }, EnvAccessKeySecret},
		{"instance name", func(c *Config) { c.InstanceName = "" }, EnvInstanceName},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, appErrors.IsKind(err, appErrors.KindConfiguration))
			require.Contains(t, err.Error(), tc.envVar)
		})
	}
}

func TestNewRejectsMissingCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.AccessKeySecret = ""

	_, err := New(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), EnvAccessKeySecret)
}

func TestNewAppliesDefaultNames(t *testing.T) {
	s, err := New(validConfig())
	require.NoError(t, err)
	require.Equal(t, DefaultTableName, s.cfg.TableName)
	require.Equal(t, DefaultTableName+"_search_index", s.cfg.IndexName)
}

func TestParseRegion(t *testing.T) {
	region, err := parseRegion("https://gallery-inst.cn-hangzhou.ots.aliyuncs.com", "gallery-inst")
	require.NoError(t, err)
	require.Equal(t, "cn-hangzhou", region)
}

func TestParseRegionInstanceMustAppearInEndpoint(t *testing.T) {
	_, err := parseRegion("https://other.cn-hangzhou.ots.aliyuncs.com", "gallery-inst")
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindConfiguration))
	require.Contains(t, err.Error(), EnvEndpoint)
}

func TestConsoleURL(t *testing.T) {
	s, err := New(validConfig())
	require.NoError(t, err)
	require.Equal(t,
		"https://otsnext.console.aliyun.com/cn-hangzhou/gallery-inst/"+DefaultTableName+"/dataManage",
		s.ConsoleURL())
	require.Equal(t, "cn-hangzhou", s.Region())
}

func TestRowToRecord(t *testing.T) {
	pk := new(ots.PrimaryKey)
	pk.AddPrimaryKeyColumn("uuid", "rec-1")

	row := &ots.Row{
		PrimaryKey: pk,
		Columns: []*ots.AttributeColumn{
			{ColumnName: "Prompt", Value: "a castle"},
			{ColumnName: "Steps", Value: int64(20)},
			{ColumnName: "CFG scale", Value: 7.5},
			{ColumnName: "IsTxt2Img", Value: true},
			{ColumnName: "JobStartTime", Value: "2024-03-15 10:30:00"},
			{ColumnName: "Model hash", Value: "879db523c3"},
			{ColumnName: "Denoising strength", Value: "0.4"},
		},
	}

	rec := rowToRecord(row)
	require.NotNil(t, rec)
	require.Equal(t, "rec-1", rec.ID)
	require.Equal(t, "a castle", rec.Prompt)
	require.Equal(t, int64(20), rec.Steps)
	require.Equal(t, 7.5, rec.CFGScale)
	require.True(t, rec.IsTxt2Img)
	require.Equal(t, 2024, rec.JobStartTime.Year())
	require.Equal(t, "879db523c3", rec.ModelHash)
	require.Equal(t, "0.4", rec.Extra["Denoising strength"])
}

func TestRowToRecordWithoutPrimaryKey(t *testing.T) {
	require.Nil(t, rowToRecord(nil))
	require.Nil(t, rowToRecord(&ots.Row{PrimaryKey: new(ots.PrimaryKey)}))
}
