package sqldb

import "context"

const deleteAllCaptureRecords = `DELETE FROM capture_records`

func (q *Queries) DeleteAllCaptureRecords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllCaptureRecords)
	return err
}

const deleteAllParents = `DELETE FROM parents`

func (q *Queries) DeleteAllParents(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllParents)
	return err
}
