package media

import (
	"context"
	"fmt"
	"strings"
)

// Concatenator implements Joiner over MPEG-TS segments using ffmpeg's concat
// protocol, which joins the raw transport-stream bytes.
type Concatenator struct {
	transcoder Transcoder
	settings   Settings
}

// NewConcatenator creates a Concatenator.
func NewConcatenator(t Transcoder, settings Settings) *Concatenator {
	return &Concatenator{transcoder: t, settings: settings}
}

// Concatenate implements Joiner.Concatenate.
func (c *Concatenator) Concatenate(ctx context.Context, segments []string, dst string) error {
	if len(segments) == 0 {
		return stageFailure(ErrConcat, "concat", dst, Result{}, ErrNoSegments)
	}

	var args []string
	if len(segments) == 1 {
		args = c.remuxArgs(segments[0], dst)
	} else {
		for _, seg := range segments {
			if strings.Contains(seg, "|") {
				return stageFailure(ErrConcat, "concat", dst, Result{},
					fmt.Errorf("%w: %s", ErrInvalidSegmentPath, seg))
			}
		}
		args = c.concatArgs(segments, dst)
	}

	res, err := c.transcoder.Run(ctx, args)
	if err != nil {
		return stageFailure(ErrConcat, "concat", dst, res, err)
	}
	return nil
}

// remuxArgs changes only the container; both streams are copied.
func (c *Concatenator) remuxArgs(segment, dst string) []string {
	return []string{
		"-i", segment,
		"-c", "copy",
		dst,
	}
}

// concatArgs copies both streams and rewrites the AAC framing, since MPEG-TS
// carries ADTS headers and MP4 expects an AudioSpecificConfig.
func (c *Concatenator) concatArgs(segments []string, dst string) []string {
	return []string{
		"-i", "concat:" + strings.Join(segments, "|"),
		"-c", "copy",
		"-bsf:a", c.settings.AudioBitstreamFilter,
		dst,
	}
}

// Verify interface implementation at compile time.
var _ Joiner = (*Concatenator)(nil)
