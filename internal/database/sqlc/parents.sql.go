package sqldb

import (
	"context"
	"database/sql"
)

const insertParent = `INSERT INTO parents (kind, category, label, crop) VALUES (?, ?, ?, ?)`

type InsertParentParams struct {
	Kind     string
	Category string
	Label    string
	Crop     sql.NullString
}

func (q *Queries) InsertParent(ctx context.Context, arg InsertParentParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertParent, arg.Kind, arg.Category, arg.Label, arg.Crop)
}

const findParentByID = `SELECT id, kind, category, label, crop, created_at FROM parents WHERE id = ?`

func (q *Queries) FindParentByID(ctx context.Context, id int64) (Parent, error) {
	row := q.db.QueryRowContext(ctx, findParentByID, id)
	var i Parent
	err := row.Scan(&i.ID, &i.Kind, &i.Category, &i.Label, &i.Crop, &i.CreatedAt)
	return i, err
}

const listParents = `SELECT id, kind, category, label, crop, created_at FROM parents ORDER BY id`

func (q *Queries) ListParents(ctx context.Context) ([]Parent, error) {
	rows, err := q.db.QueryContext(ctx, listParents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Parent
	for rows.Next() {
		var i Parent
		if err := rows.Scan(&i.ID, &i.Kind, &i.Category, &i.Label, &i.Crop, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listParentsByKind = `SELECT id, kind, category, label, crop, created_at FROM parents WHERE kind = ? ORDER BY id`

func (q *Queries) ListParentsByKind(ctx context.Context, kind string) ([]Parent, error) {
	rows, err := q.db.QueryContext(ctx, listParentsByKind, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Parent
	for rows.Next() {
		var i Parent
		if err := rows.Scan(&i.ID, &i.Kind, &i.Category, &i.Label, &i.Crop, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteParentByID = `DELETE FROM parents WHERE id = ?`

func (q *Queries) DeleteParentByID(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteParentByID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countCaptureRecordsByParent = `SELECT COUNT(*) FROM capture_records WHERE parent_id = ?`

func (q *Queries) CountCaptureRecordsByParent(ctx context.Context, parentID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCaptureRecordsByParent, parentID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
