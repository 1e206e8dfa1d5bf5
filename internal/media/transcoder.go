package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// Result is the outcome of a single transcoder invocation.
type Result struct {
	// ExitCode is the process exit status. Zero means success.
	ExitCode int
	// Stderr is the diagnostic output written by the tool.
	Stderr string
}

// Transcoder runs the external media tool with a stage-specific argument set.
// A nil error means the tool exited with status 0.
type Transcoder interface {
	Run(ctx context.Context, args []string) (Result, error)
}

// preamble is prepended to every ffmpeg invocation. -y makes every stage
// overwrite its destination unconditionally.
var preamble = []string{"-hide_banner", "-nostdin", "-y"}

// FFmpegTranscoder implements Transcoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegTranscoder creates a new FFmpegTranscoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegTranscoder(ffmpegPath string, logger *slog.Logger) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath, logger: logger}
}

// Run executes ffmpeg with the given arguments. On a non-zero exit it returns
// an *FFmpegError carrying the captured stderr.
func (t *FFmpegTranscoder) Run(ctx context.Context, args []string) (Result, error) {
	full := make([]string, 0, len(preamble)+len(args))
	full = append(full, preamble...)
	full = append(full, args...)

	t.logger.Debug("running ffmpeg",
		slog.String("binary", t.ffmpegPath),
		slog.Any("args", full),
	)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, t.ffmpegPath, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	// Check if context was cancelled
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
	}

	res.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}

	return res, &FFmpegError{
		Args:     full,
		ExitCode: res.ExitCode,
		Stderr:   res.Stderr,
		Err:      err,
	}
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error (exit %d): %v\nargs: %v\nstderr: %s", e.ExitCode, e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// Verify interface implementation at compile time.
var _ Transcoder = (*FFmpegTranscoder)(nil)
