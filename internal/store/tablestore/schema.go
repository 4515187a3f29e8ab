package tablestore

import (
	"context"

	ots "github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	"github.com/golang/protobuf/proto"
	"go.uber.org/zap"

	"github.com/otslabs/tsgallery/internal/models"
	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

const dateFormat = "yyyy-MM-dd HH:mm:ss"

// EnsureSchema creates the table and the search index when absent.
// Existing objects are left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.ensureTable(ctx); err != nil {
		return err
	}
	return s.ensureIndex(ctx)
}

func (s *Store) ensureTable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewStorage("list_table", err)
	}

	tables, err := s.client.ListTable()
	if err != nil {
		return appErrors.NewStorage("list_table", err)
	}
	for _, name := range tables.TableNames {
		if name == s.cfg.TableName {
			s.log.Debug("table already exists", zap.String("table", s.cfg.TableName))
			return nil
		}
	}

	s.log.Info("creating table", zap.String("table", s.cfg.TableName))

	meta := new(ots.TableMeta)
	meta.TableName = s.cfg.TableName
	meta.AddPrimaryKeyColumn(models.PrimaryKeyColumn, ots.PrimaryKeyType_STRING)

	option := new(ots.TableOption)
	option.TimeToAlive = -1
	option.MaxVersion = 1

	req := new(ots.CreateTableRequest)
	req.TableMeta = meta
	req.TableOption = option
	req.ReservedThroughput = &ots.ReservedThroughput{Readcap: 0, Writecap: 0}

	if _, err := s.client.CreateTable(req); err != nil {
		return appErrors.NewStorage("create_table", err)
	}
	return nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewStorage("list_search_index", err)
	}

	indexes, err := s.client.ListSearchIndex(&ots.ListSearchIndexRequest{TableName: s.cfg.TableName})
	if err != nil {
		return appErrors.NewStorage("list_search_index", err)
	}
	for _, info := range indexes.IndexInfo {
		if info.IndexName == s.cfg.IndexName {
			s.log.Debug("search index already exists", zap.String("index", s.cfg.IndexName))
			return nil
		}
	}

	s.log.Info("creating search index", zap.String("index", s.cfg.IndexName))

	req := new(ots.CreateSearchIndexRequest)
	req.TableName = s.cfg.TableName
	req.IndexName = s.cfg.IndexName
	req.IndexSchema = &ots.IndexSchema{FieldSchemas: indexFields()}

	if _, err := s.client.CreateSearchIndex(req); err != nil {
		return appErrors.NewStorage("create_search_index", err)
	}
	return nil
}

// indexFields mirrors the columns the write path produces. Prompt
// fields use the case-insensitive single-word analyzer so individual
// tokens match; the split columns are keyword arrays for exact-term
// statistics.
func indexFields() []*ots.FieldSchema {
	keyword := func(name string) *ots.FieldSchema {
		return &ots.FieldSchema{
			FieldName:        proto.String(name),
			FieldType:        ots.FieldType_KEYWORD,
			Index:            proto.Bool(true),
			EnableSortAndAgg: proto.Bool(true),
			Store:            proto.Bool(false),
		}
	}
	keywordArray := func(name string) *ots.FieldSchema {
		f := keyword(name)
		f.IsArray = proto.Bool(true)
		return f
	}
	long := func(name string) *ots.FieldSchema {
		f := keyword(name)
		f.FieldType = ots.FieldType_LONG
		return f
	}
	boolean := func(name string) *ots.FieldSchema {
		f := keyword(name)
		f.FieldType = ots.FieldType_BOOLEAN
		return f
	}
	text := func(name string) *ots.FieldSchema {
		analyzer := ots.Analyzer_SingleWord
		return &ots.FieldSchema{
			FieldName:        proto.String(name),
			FieldType:        ots.FieldType_TEXT,
			Index:            proto.Bool(true),
			EnableSortAndAgg: proto.Bool(false),
			Store:            proto.Bool(false),
			Analyzer:         &analyzer,
			AnalyzerParameter: ots.SingleWordAnalyzerParameter{
				CaseSensitive: proto.Bool(false),
				DelimitWord:   proto.Bool(true),
			},
		}
	}

	double := keyword(models.ColCFGScale)
	double.FieldType = ots.FieldType_DOUBLE

	date := keyword(models.ColJobStartTime)
	date.FieldType = ots.FieldType_DATE
	date.DateFormats = []string{dateFormat}

	return []*ots.FieldSchema{
		keyword(models.ColModel),
		keyword(models.ColVersion),
		keyword(models.ColSize),
		long(models.ColHeight),
		long(models.ColWidth),
		double,
		keyword(models.ColSampler),
		long(models.ColSteps),
		text(models.ColPrompt),
		keywordArray(models.ColPromptSplits),
		text(models.ColNegativePrompt),
		keywordArray(models.ColNegativePromptSplits),
		text(models.ColParameters),
		text(models.ColComments),
		boolean(models.ColInterrupted),
		boolean(models.ColSkipped),
		boolean(models.ColIsTxt2Img),
		boolean(models.ColIsImg2Img),
		long(models.ColUsedTimeInSeconds),
		date,
	}
}
