package geo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate is the NMEA 0183 standard line speed.
const DefaultBaudRate = 9600

// NMEASource reads NMEA 0183 sentences from a GPS receiver on a serial port
// (or a recorded log file) and reports every position fix it decodes. Each
// subscription opens the device; stopping closes it.
type NMEASource struct {
	path   string
	open   func(path string) (io.ReadCloser, error)
	logger *slog.Logger

	mu      sync.Mutex
	last    Fix
	hasLast bool
}

// NewNMEASource creates a source for the device at path. A baud of zero
// uses DefaultBaudRate. Pass nil logger for default.
func NewNMEASource(path string, baud int, logger *slog.Logger) *NMEASource {
	if logger == nil {
		logger = slog.Default()
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return &NMEASource{
		path: path,
		open: func(p string) (io.ReadCloser, error) {
			return openDevice(p, baud)
		},
		logger: logger.With("component", "nmea", "device", path),
	}
}

// openDevice opens a serial GPS receiver in 8N1 mode at baud. Regular files
// are NMEA logs and are read as they are.
func openDevice(path string, baud int) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode().IsRegular() {
		//nolint:gosec // G304: device path comes from configuration
		return os.Open(path)
	}

	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		var portErr *serial.PortError
		if errors.As(err, &portErr) {
			switch portErr.Code() {
			case serial.PermissionDenied:
				return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
			case serial.PortNotFound:
				return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
			}
		}
		return nil, err
	}
	return port, nil
}

func (s *NMEASource) Subscribe(ctx context.Context) (<-chan Reading, func(), error) {
	rc, err := s.open(s.path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrPermission):
			return nil, nil, fmt.Errorf("%w: %s", ErrPermissionDenied, s.path)
		case errors.Is(err, fs.ErrNotExist):
			return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, s.path)
		default:
			return nil, nil, fmt.Errorf("opening %s: %w", s.path, err)
		}
	}

	ch := make(chan Reading, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(ch)

		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			fix, err := ParseSentence(scanner.Text())
			if err != nil {
				if !errors.Is(err, ErrNoFix) {
					s.logger.Debug("skipping sentence", "error", err)
				}
				continue
			}
			s.remember(fix)
			select {
			case ch <- Reading{Fix: fix}:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}

		var final error = ErrUnavailable
		if err := scanner.Err(); err != nil {
			final = fmt.Errorf("reading %s: %w", s.path, err)
		}
		select {
		case ch <- Reading{Err: final}:
		case <-done:
		case <-ctx.Done():
		}
	}()

	stop := sync.OnceFunc(func() {
		close(done)
		_ = rc.Close()
		wg.Wait()
	})

	return ch, stop, nil
}

func (s *NMEASource) LastKnown(context.Context) (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLast {
		return Fix{}, ErrUnavailable
	}
	return s.last, nil
}

func (s *NMEASource) remember(fix Fix) {
	s.mu.Lock()
	s.last = fix
	s.hasLast = true
	s.mu.Unlock()
}
