// Package capture coordinates the capture, locate and persist cycle for
// geo-tagged field photos and keeps one live record list per parent.
package capture

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Location is a persisted coordinate pair. A record either has both
// coordinates or none.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewLocation validates a coordinate pair read back from storage.
func NewLocation(lat, lon float64) (Location, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Location{}, fmt.Errorf("%w: location %v,%v out of range", ErrCorruptValue, lat, lon)
	}
	return Location{Latitude: lat, Longitude: lon}, nil
}

// Record is one persisted geo-tagged capture.
type Record struct {
	ID         int64     `json:"id"`
	ParentID   int64     `json:"parent_id"`
	MediaRef   string    `json:"media_ref"`
	CapturedAt time.Time `json:"captured_at"`
	Location   *Location `json:"location,omitempty"`
	Note       string    `json:"note,omitempty"`
}

// HasLocation reports whether the capture was geo-tagged.
func (r Record) HasLocation() bool {
	return r.Location != nil
}

// NewRecord is the insert payload. The store assigns the ID.
type NewRecord struct {
	ParentID   int64
	MediaRef   string
	CapturedAt time.Time
	Location   *Location
	Note       string
}

func (n NewRecord) Validate() error {
	if n.ParentID <= 0 {
		return errors.New("capture record requires a parent id")
	}
	if n.MediaRef == "" {
		return errors.New("capture record requires a media reference")
	}
	if n.CapturedAt.IsZero() {
		return errors.New("capture record requires a capture time")
	}
	if n.Location != nil {
		if _, err := NewLocation(n.Location.Latitude, n.Location.Longitude); err != nil {
			return err
		}
	}
	return nil
}
