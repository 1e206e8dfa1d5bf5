package media

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every stage failure matches exactly one of these via errors.Is.
var (
	// ErrTranscode is returned when audio normalization fails.
	ErrTranscode = errors.New("audio transcode failed")
	// ErrImage is returned when an image cannot be decoded or sanitized.
	ErrImage = errors.New("image sanitize failed")
	// ErrMux is returned when a segment cannot be created.
	ErrMux = errors.New("segment mux failed")
	// ErrConcat is returned when the final output cannot be assembled.
	ErrConcat = errors.New("concatenation failed")
)

// Static errors for media operations.
var (
	// ErrDegenerateImage is returned when even-cropping would leave a zero dimension.
	ErrDegenerateImage = errors.New("image too small: a dimension would be zero after even crop")
	// ErrNoSegments is returned when no segment paths are provided for concatenation.
	ErrNoSegments = errors.New("no segment paths provided")
	// ErrInvalidSegmentPath is returned when a segment path cannot be used with the concat protocol.
	ErrInvalidSegmentPath = errors.New("segment path contains concat separator '|'")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// StageError describes a failed pipeline stage operation. Kind is one of
// ErrTranscode, ErrImage, ErrMux or ErrConcat; Stderr holds the tool's raw
// diagnostic text when the failure came from the transcoder.
type StageError struct {
	Kind   error
	Op     string
	Path   string
	Stderr string
	Err    error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s %s", e.Kind, e.Op, e.Path)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	// FFmpegError already prints stderr.
	var ffErr *FFmpegError
	if e.Stderr != "" && !errors.As(e.Err, &ffErr) {
		b.WriteString("\nstderr: ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *StageError) Is(target error) bool {
	return target == e.Kind
}

func stageFailure(kind error, op, path string, res Result, err error) *StageError {
	return &StageError{
		Kind:   kind,
		Op:     op,
		Path:   path,
		Stderr: res.Stderr,
		Err:    err,
	}
}
