package tablestore

import (
	"context"

	ots "github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	"go.uber.org/zap"

	"github.com/otslabs/tsgallery/internal/models"
	appErrors "github.com/otslabs/tsgallery/pkg/errors"
)

// Put writes one record in a single attempt. There is no retry: a
// failed call leaves no row behind because the write is a single
// atomic PutRow.
func (s *Store) Put(ctx context.Context, rec *models.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return appErrors.NewBadRequest("record id is required")
	}
	if err := ctx.Err(); err != nil {
		return appErrors.NewStorage("put_row", err)
	}

	change := new(ots.PutRowChange)
	change.TableName = s.cfg.TableName
	change.PrimaryKey = s.primaryKey(rec.ID)
	for name, value := range rec.Columns() {
		change.AddColumn(name, value)
	}
	change.SetCondition(ots.RowExistenceExpectation_IGNORE)

	if _, err := s.client.PutRow(&ots.PutRowRequest{PutRowChange: change}); err != nil {
		return appErrors.NewStorage("put_row", err)
	}

	s.log.Debug("row written", zap.String("id", rec.ID))
	return nil
}

// Get fetches one record by id.
func (s *Store) Get(ctx context.Context, id string) (*models.GenerationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, appErrors.NewStorage("get_row", err)
	}

	criteria := &ots.SingleRowQueryCriteria{
		TableName:  s.cfg.TableName,
		PrimaryKey: s.primaryKey(id),
		MaxVersion: 1,
	}

	resp, err := s.client.GetRow(&ots.GetRowRequest{SingleRowQueryCriteria: criteria})
	if err != nil {
		return nil, appErrors.NewStorage("get_row", err)
	}
	if resp == nil || len(resp.PrimaryKey.PrimaryKeys) == 0 {
		return nil, appErrors.NewNotFound(id)
	}

	cols := make(map[string]interface{}, len(resp.Columns))
	for _, col := range resp.Columns {
		cols[col.ColumnName] = col.Value
	}
	return models.RecordFromColumns(id, cols), nil
}

// Delete removes one record. Absent rows are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewStorage("delete_row", err)
	}

	change := new(ots.DeleteRowChange)
	change.TableName = s.cfg.TableName
	change.PrimaryKey = s.primaryKey(id)
	change.SetCondition(ots.RowExistenceExpectation_IGNORE)

	if _, err := s.client.DeleteRow(&ots.DeleteRowRequest{DeleteRowChange: change}); err != nil {
		return appErrors.NewStorage("delete_row", err)
	}

	s.log.Debug("row deleted", zap.String("id", id))
	return nil
}

// Ping verifies the instance answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.NewStorage("list_table", err)
	}
	if _, err := s.client.ListTable(); err != nil {
		return appErrors.NewStorage("list_table", err)
	}
	return nil
}

// Close releases nothing; the client has no persistent connection
// state beyond its HTTP pool.
func (s *Store) Close() error {
	return nil
}
