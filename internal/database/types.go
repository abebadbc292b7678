package database

import (
	"time"
)

// ParentRecord represents a row in the parents table. Kind and Category
// are kept as the raw persisted strings; decoding into a closed variant happens in the
// record store so corrupt values can be reported.
type ParentRecord struct {
	ID        int64
	Kind      string
	Category  string
	Label     string
	Crop      *string
	CreatedAt time.Time
}

// CaptureRecordRow corresponds to a row in the capture_records table.
type CaptureRecordRow struct {
	ID         int64
	ParentID   int64
	MediaRef   string
	CapturedAt time.Time
	Latitude   *float64
	Longitude  *float64
	Note       *string
}

// NewCaptureRecordRow carries the values for an insert.
type NewCaptureRecordRow struct {
	ParentID   int64
	MediaRef   string
	CapturedAt time.Time
	Latitude   *float64
	Longitude  *float64
	Note       *string
}

// ParentCounts contains the number of captures owned by a parent.
type ParentCounts struct {
	ParentID     int64
	CaptureCount int64
}
