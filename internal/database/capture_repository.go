package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type CaptureRepository struct {
	ctx *Context
}

func NewCaptureRepository(dbCtx *Context) *CaptureRepository {
	return &CaptureRepository{ctx: dbCtx}
}

func (r *CaptureRepository) Create(ctx context.Context, row NewCaptureRecordRow) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, fmt.Errorf("capture repository: missing database context")
	}

	res, err := queries.InsertCaptureRecord(ctx, CaptureInsertParams(row))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *CaptureRepository) FindByID(ctx context.Context, id int64) (*CaptureRecordRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("capture repository: missing database context")
	}

	row, err := queries.FindCaptureRecordByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record := CaptureRecordRowFromRow(row)
	return &record, nil
}

func (r *CaptureRepository) ListByParent(ctx context.Context, parentID int64) ([]CaptureRecordRow, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("capture repository: missing database context")
	}

	rows, err := queries.ListCaptureRecordsByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}

	result := make([]CaptureRecordRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, CaptureRecordRowFromRow(row))
	}
	return result, nil
}

func (r *CaptureRepository) MediaRefsByParent(ctx context.Context, parentID int64) ([]string, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("capture repository: missing database context")
	}
	return queries.ListMediaRefsByParent(ctx, parentID)
}

func (r *CaptureRepository) Delete(ctx context.Context, id int64) (bool, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return false, fmt.Errorf("capture repository: missing database context")
	}

	affected, err := queries.DeleteCaptureRecordByID(ctx, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *CaptureRepository) DeleteByParent(ctx context.Context, parentID int64) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, fmt.Errorf("capture repository: missing database context")
	}

	return queries.DeleteCaptureRecordsByParent(ctx, parentID)
}
