package geo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
)

// ErrNoFix is returned for well-formed sentences that carry no usable position.
var ErrNoFix = errors.New("nmea: sentence has no fix")

// ParseSentence decodes a GGA or RMC sentence into a Fix. Other sentence
// types return ErrNoFix; malformed sentences and checksum mismatches are
// errors.
func ParseSentence(line string) (Fix, error) {
	s, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return Fix{}, err
	}

	var fix Fix
	switch m := s.(type) {
	case nmea.GGA:
		if m.FixQuality == "" || m.FixQuality == nmea.Invalid {
			return Fix{}, ErrNoFix
		}
		fix = Fix{Latitude: m.Latitude, Longitude: m.Longitude}
	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			return Fix{}, ErrNoFix
		}
		fix = Fix{Latitude: m.Latitude, Longitude: m.Longitude, At: rmcTime(m.Date, m.Time)}
	default:
		return Fix{}, ErrNoFix
	}

	if !fix.Valid() {
		return Fix{}, fmt.Errorf("nmea: position out of range: %s", fix)
	}
	return fix, nil
}

// rmcTime combines the RMC date and time of day; RMC years are two digits
// in the 2000s.
func rmcTime(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return time.Time{}
	}
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD, t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
