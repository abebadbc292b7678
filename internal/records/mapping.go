package records

import (
	"fmt"

	"github.com/biosim/geocap/internal/capture"
	"github.com/biosim/geocap/internal/database"
	"github.com/biosim/geocap/internal/parent"
)

func recordFromRow(row database.CaptureRecordRow) (capture.Record, error) {
	rec := capture.Record{
		ID:         row.ID,
		ParentID:   row.ParentID,
		MediaRef:   row.MediaRef,
		CapturedAt: row.CapturedAt,
	}
	if row.Note != nil {
		rec.Note = *row.Note
	}

	switch {
	case row.Latitude == nil && row.Longitude == nil:
	case row.Latitude == nil || row.Longitude == nil:
		return capture.Record{}, fmt.Errorf("%w: record %d has half a location", capture.ErrCorruptValue, row.ID)
	default:
		loc, err := capture.NewLocation(*row.Latitude, *row.Longitude)
		if err != nil {
			return capture.Record{}, fmt.Errorf("record %d: %w", row.ID, err)
		}
		rec.Location = &loc
	}
	return rec, nil
}

func rowFromRecord(rec capture.NewRecord) database.NewCaptureRecordRow {
	row := database.NewCaptureRecordRow{
		ParentID:   rec.ParentID,
		MediaRef:   rec.MediaRef,
		CapturedAt: rec.CapturedAt,
	}
	if rec.Location != nil {
		lat, lon := rec.Location.Latitude, rec.Location.Longitude
		row.Latitude = &lat
		row.Longitude = &lon
	}
	if rec.Note != "" {
		note := rec.Note
		row.Note = &note
	}
	return row
}

// parentFromRow decodes a parent row. An unknown kind or category is
// reported as corrupt instead of being replaced with a default.
func parentFromRow(row database.ParentRecord) (parent.Parent, error) {
	kind, err := parent.ParseKind(row.Kind)
	if err != nil {
		return parent.Parent{}, fmt.Errorf("%w: parent %d: %w", capture.ErrCorruptValue, row.ID, err)
	}
	category, err := parent.ParseCategory(kind, row.Category)
	if err != nil {
		return parent.Parent{}, fmt.Errorf("%w: parent %d: %w", capture.ErrCorruptValue, row.ID, err)
	}
	p := parent.Parent{
		ID:        row.ID,
		Kind:      kind,
		Category:  category,
		Label:     row.Label,
		CreatedAt: row.CreatedAt,
	}
	if row.Crop != nil {
		p.Crop = *row.Crop
	}
	return p, nil
}
