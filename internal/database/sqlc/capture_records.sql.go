package sqldb

import (
	"context"
	"database/sql"
)

const insertCaptureRecord = `INSERT INTO capture_records (parent_id, media_ref, captured_at, latitude, longitude, note)
VALUES (?, ?, ?, ?, ?, ?)`

type InsertCaptureRecordParams struct {
	ParentID   int64
	MediaRef   string
	CapturedAt sql.NullTime
	Latitude   sql.NullFloat64
	Longitude  sql.NullFloat64
	Note       sql.NullString
}

func (q *Queries) InsertCaptureRecord(ctx context.Context, arg InsertCaptureRecordParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, insertCaptureRecord,
		arg.ParentID,
		arg.MediaRef,
		arg.CapturedAt,
		arg.Latitude,
		arg.Longitude,
		arg.Note,
	)
}

const findCaptureRecordByID = `SELECT id, parent_id, media_ref, captured_at, latitude, longitude, note
FROM capture_records WHERE id = ?`

func (q *Queries) FindCaptureRecordByID(ctx context.Context, id int64) (CaptureRecord, error) {
	row := q.db.QueryRowContext(ctx, findCaptureRecordByID, id)
	var i CaptureRecord
	err := row.Scan(&i.ID, &i.ParentID, &i.MediaRef, &i.CapturedAt, &i.Latitude, &i.Longitude, &i.Note)
	return i, err
}

const listCaptureRecordsByParent = `SELECT id, parent_id, media_ref, captured_at, latitude, longitude, note
FROM capture_records WHERE parent_id = ? ORDER BY captured_at DESC, id DESC`

func (q *Queries) ListCaptureRecordsByParent(ctx context.Context, parentID int64) ([]CaptureRecord, error) {
	rows, err := q.db.QueryContext(ctx, listCaptureRecordsByParent, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CaptureRecord
	for rows.Next() {
		var i CaptureRecord
		if err := rows.Scan(&i.ID, &i.ParentID, &i.MediaRef, &i.CapturedAt, &i.Latitude, &i.Longitude, &i.Note); err != nil {
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

const deleteCaptureRecordByID = `DELETE FROM capture_records WHERE id = ?`

func (q *Queries) DeleteCaptureRecordByID(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCaptureRecordByID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCaptureRecordsByParent = `DELETE FROM capture_records WHERE parent_id = ?`

func (q *Queries) DeleteCaptureRecordsByParent(ctx context.Context, parentID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCaptureRecordsByParent, parentID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listMediaRefsByParent = `SELECT media_ref FROM capture_records WHERE parent_id = ?`

func (q *Queries) ListMediaRefsByParent(ctx context.Context, parentID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listMediaRefsByParent, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		items = append(items, ref)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
