package audio

import (
	"context"
	"strconv"

	"github.com/maauso/slidecast/internal/media"
)

// FFmpegNormalizer implements Normalizer using a media.Transcoder.
type FFmpegNormalizer struct {
	transcoder media.Transcoder
	settings   media.Settings
}

// NewFFmpegNormalizer creates a new FFmpegNormalizer.
func NewFFmpegNormalizer(t media.Transcoder, settings media.Settings) *FFmpegNormalizer {
	return &FFmpegNormalizer{transcoder: t, settings: settings}
}

// Normalize implements Normalizer.Normalize. Failures match media.ErrTranscode
// and carry the transcoder's stderr.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, src, dst string) error {
	res, err := n.transcoder.Run(ctx, Args(n.settings, src, dst))
	if err != nil {
		return &media.StageError{
			Kind:   media.ErrTranscode,
			Op:     "normalize",
			Path:   src,
			Stderr: res.Stderr,
			Err:    err,
		}
	}
	return nil
}

// Args returns the transcoder arguments that normalize src into dst.
func Args(s media.Settings, src, dst string) []string {
	return []string{
		"-i", src,
		"-c:a", s.AudioCodec,
		"-b:a", s.AudioBitrate,
		"-ar", strconv.Itoa(s.SampleRate),
		"-ac", strconv.Itoa(s.Channels),
		dst,
	}
}

// Verify interface implementation at compile time.
var _ Normalizer = (*FFmpegNormalizer)(nil)
