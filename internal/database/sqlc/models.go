package sqldb

import (
	"database/sql"
)

type Parent struct {
	ID        int64
	Kind      string
	Category  string
	Label     string
	Crop      sql.NullString
	CreatedAt sql.NullTime
}

type CaptureRecord struct {
	ID         int64
	ParentID   int64
	MediaRef   string
	CapturedAt sql.NullTime
	Latitude   sql.NullFloat64
	Longitude  sql.NullFloat64
	Note       sql.NullString
}
