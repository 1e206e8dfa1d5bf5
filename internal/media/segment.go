package media

import "context"

// SegmentMuxer implements Muxer by looping a single image at a low frame rate
// under an already-normalized audio track.
type SegmentMuxer struct {
	transcoder Transcoder
	settings   Settings
}

// NewSegmentMuxer creates a SegmentMuxer.
func NewSegmentMuxer(t Transcoder, settings Settings) *SegmentMuxer {
	return &SegmentMuxer{transcoder: t, settings: settings}
}

// Mux implements Muxer.Mux. The audio stream is copied, and -shortest caps
// the endlessly looped video at the audio duration.
func (m *SegmentMuxer) Mux(ctx context.Context, imagePath, audioPath, dst string) error {
	res, err := m.transcoder.Run(ctx, m.args(imagePath, audioPath, dst))
	if err != nil {
		return stageFailure(ErrMux, "mux", dst, res, err)
	}
	return nil
}

func (m *SegmentMuxer) args(imagePath, audioPath, dst string) []string {
	s := m.settings
	return []string{
		"-loop", "1",
		"-framerate", s.frameRate(),
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", s.VideoCodec,
		"-tune", s.Tune,
		"-c:a", "copy",
		"-pix_fmt", s.PixelFormat,
		"-shortest",
		"-f", s.SegmentFormat,
		dst,
	}
}

// Verify interface implementation at compile time.
var _ Muxer = (*SegmentMuxer)(nil)
