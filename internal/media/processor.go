// Package media provides the image, segment and concatenation stages of the
// render pipeline, and the Transcoder adapter they use to drive ffmpeg.
package media

import (
	"context"
	"image"
)

// Sanitizer prepares a still image for H.264 encoding.
type Sanitizer interface {
	// Sanitize decodes src, converts it to RGB, crops odd dimensions down to
	// the nearest even value and writes a lossless PNG to dst. It returns the
	// dimensions of the written image.
	Sanitize(ctx context.Context, src, dst string) (image.Point, error)
}

// Muxer turns one sanitized image and one normalized audio file into a segment.
type Muxer interface {
	// Mux writes a segment to dst whose duration equals the audio duration,
	// with the image held as a static frame.
	Mux(ctx context.Context, imagePath, audioPath, dst string) error
}

// Joiner assembles ordered segments into the final output.
type Joiner interface {
	// Concatenate joins segments in order into dst. A single segment is
	// remuxed; two or more are concatenated without re-encoding.
	Concatenate(ctx context.Context, segments []string, dst string) error
}
