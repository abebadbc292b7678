package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DestPlaceholder is replaced by the destination path in command arguments.
const DestPlaceholder = "{dest}"

// CommandSink runs an external still-capture tool such as libcamera-still
// or fswebcam. The tool must write the image to the path substituted for
// DestPlaceholder.
type CommandSink struct {
	exclusive
	command string
	args    []string
	logger  *slog.Logger
}

// NewCommandSink creates a sink for command. When args contain no
// placeholder the destination is appended as the last argument. Pass nil
// logger for default.
func NewCommandSink(command string, args []string, logger *slog.Logger) *CommandSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSink{
		command: command,
		args:    append([]string(nil), args...),
		logger:  logger.With("component", "camera", "command", command),
	}
}

func (s *CommandSink) Capture(ctx context.Context, dest string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return newError(CodeWriteFailed, err)
	}

	args := s.expandArgs(dest)
	//nolint:gosec // G204: command comes from configuration
	cmd := exec.CommandContext(ctx, s.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.logger.Debug("running capture command", "args", args)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var execErr *exec.Error
		switch {
		case errors.As(err, &execErr):
			return newError(CodeDeviceUnavailable, err)
		case errors.Is(err, fs.ErrPermission):
			return newError(CodePermissionDenied, err)
		case msg != "":
			return newError(CodeDeviceUnavailable, fmt.Errorf("%w: %s", err, msg))
		default:
			return newError(CodeDeviceUnavailable, err)
		}
	}

	info, err := os.Stat(dest)
	if err != nil {
		return newError(CodeWriteFailed, fmt.Errorf("capture command did not write %s: %w", dest, err))
	}
	if info.Size() == 0 {
		_ = os.Remove(dest)
		return newError(CodeWriteFailed, fmt.Errorf("capture command wrote an empty file"))
	}
	return nil
}

func (s *CommandSink) expandArgs(dest string) []string {
	out := make([]string, 0, len(s.args)+1)
	replaced := false
	for _, arg := range s.args {
		if strings.Contains(arg, DestPlaceholder) {
			arg = strings.ReplaceAll(arg, DestPlaceholder, dest)
			replaced = true
		}
		out = append(out, arg)
	}
	if !replaced {
		out = append(out, dest)
	}
	return out
}
