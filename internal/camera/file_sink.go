package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSink "captures" by copying an existing image, e.g. a photo pulled from
// an SD card or a phone dump.
type FileSink struct {
	exclusive
	source string
}

func NewFileSink(source string) *FileSink {
	return &FileSink{source: source}
}

func (s *FileSink) Capture(ctx context.Context, dest string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	if err := ctx.Err(); err != nil {
		return newError(CodeDeviceUnavailable, err)
	}

	//nolint:gosec // G304: source path is supplied by the operator
	in, err := os.Open(s.source)
	if err != nil {
		return classifyOpenError(err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return newError(CodeWriteFailed, err)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return newError(CodeWriteFailed, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return newError(CodeWriteFailed, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return newError(CodeWriteFailed, err)
	}
	return nil
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return newError(CodePermissionDenied, err)
	case errors.Is(err, fs.ErrNotExist):
		return newError(CodeDeviceUnavailable, fmt.Errorf("image source missing: %w", err))
	default:
		return newError(CodeDeviceUnavailable, err)
	}
}
