package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqldb "github.com/biosim/geocap/internal/database/sqlc"
)

type ParentRepository struct {
	ctx *Context
}

func NewParentRepository(dbCtx *Context) *ParentRepository {
	return &ParentRepository{ctx: dbCtx}
}

func (r *ParentRepository) Create(ctx context.Context, kind, category, label string, crop *string) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, fmt.Errorf("parent repository: missing database context")
	}

	res, err := queries.InsertParent(ctx, sqldb.InsertParentParams{
		Kind:     kind,
		Category: category,
		Label:    label,
		Crop:     stringPtrToNullString(crop),
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *ParentRepository) FindByID(ctx context.Context, id int64) (*ParentRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("parent repository: missing database context")
	}

	row, err := queries.FindParentByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	record := ParentRecordFromRow(row)
	return &record, nil
}

// FindAll lists parents, optionally restricted to one kind.
func (r *ParentRepository) FindAll(ctx context.Context, kind string) ([]ParentRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("parent repository: missing database context")
	}

	var (
		rows []sqldb.Parent
		err  error
	)
	if kind == "" {
		rows, err = queries.ListParents(ctx)
	} else {
		rows, err = queries.ListParentsByKind(ctx, kind)
	}
	if err != nil {
		return nil, err
	}

	result := make([]ParentRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, ParentRecordFromRow(row))
	}
	return result, nil
}

// Delete removes the parent; capture rows go with it through the foreign key cascade.
func (r *ParentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return false, fmt.Errorf("parent repository: missing database context")
	}

	affected, err := queries.DeleteParentByID(ctx, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ParentRepository) Counts(ctx context.Context, id int64) (ParentCounts, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return ParentCounts{}, fmt.Errorf("parent repository: missing database context")
	}

	count, err := queries.CountCaptureRecordsByParent(ctx, id)
	if err != nil {
		return ParentCounts{}, err
	}
	return ParentCounts{ParentID: id, CaptureCount: count}, nil
}
