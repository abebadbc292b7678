// Package geo acquires location fixes from a positioning source under a
// bounded wait.
package geo

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrPermissionDenied reports that the process may not read the location source.
var ErrPermissionDenied = errors.New("location permission denied")

// ErrUnavailable reports that the source cannot produce fixes right now.
var ErrUnavailable = errors.New("location source unavailable")

// Fix is a single latitude/longitude reading in decimal degrees (WGS84).
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	At        time.Time `json:"at,omitempty"`
}

// Valid reports whether both coordinates are finite and within range.
func (f Fix) Valid() bool {
	if math.IsNaN(f.Latitude) || math.IsNaN(f.Longitude) {
		return false
	}
	if math.IsInf(f.Latitude, 0) || math.IsInf(f.Longitude, 0) {
		return false
	}
	return f.Latitude >= -90 && f.Latitude <= 90 && f.Longitude >= -180 && f.Longitude <= 180
}

func (f Fix) String() string {
	return fmt.Sprintf("%.6f,%.6f", f.Latitude, f.Longitude)
}
