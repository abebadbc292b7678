package database

import (
	sqldb "github.com/biosim/geocap/internal/database/sqlc"
)

// ParentRecordFromRow converts a database parent row to a ParentRecord.
func ParentRecordFromRow(row sqldb.Parent) ParentRecord {
	return ParentRecord{
		ID:        row.ID,
		Kind:      row.Kind,
		Category:  row.Category,
		Label:     row.Label,
		Crop:      optionalStringPtr(row.Crop),
		CreatedAt: optionalTime(row.CreatedAt),
	}
}

// CaptureRecordRowFromRow converts a database capture row to a CaptureRecordRow.
func CaptureRecordRowFromRow(row sqldb.CaptureRecord) CaptureRecordRow {
	return CaptureRecordRow{
		ID:         row.ID,
		ParentID:   row.ParentID,
		MediaRef:   row.MediaRef,
		CapturedAt: optionalTime(row.CapturedAt),
		Latitude:   optionalFloatPtr(row.Latitude),
		Longitude:  optionalFloatPtr(row.Longitude),
		Note:       optionalStringPtr(row.Note),
	}
}

// CaptureInsertParams creates insert parameters from a new capture row.
func CaptureInsertParams(row NewCaptureRecordRow) sqldb.InsertCaptureRecordParams {
	return sqldb.InsertCaptureRecordParams{
		ParentID:   row.ParentID,
		MediaRef:   row.MediaRef,
		CapturedAt: nullTime(row.CapturedAt),
		Latitude:   floatPtrToNullFloat64(row.Latitude),
		Longitude:  floatPtrToNullFloat64(row.Longitude),
		Note:       stringPtrToNullString(row.Note),
	}
}
