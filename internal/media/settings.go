package media

import "strconv"

// Settings holds the fixed encoding parameters shared by every stage of a run.
// Segments can only be joined without re-encoding when all of them were
// produced with the same Settings value.
type Settings struct {
	AudioCodec   string
	AudioBitrate string
	SampleRate   int
	Channels     int

	FrameRate   int
	VideoCodec  string
	Tune        string
	PixelFormat string

	// SegmentFormat is the intermediate container; it must support raw byte concatenation.
	SegmentFormat string
	// AudioBitstreamFilter converts ADTS framing to the final container's AAC framing.
	AudioBitstreamFilter string
}

// DefaultSettings returns AAC 192k/48kHz/stereo audio and a 1 fps
// still-image H.264 video in MPEG-TS segments.
func DefaultSettings() Settings {
	return Settings{
		AudioCodec:           "aac",
		AudioBitrate:         "192k",
		SampleRate:           48000,
		Channels:             2,
		FrameRate:            1,
		VideoCodec:           "libx264",
		Tune:                 "stillimage",
		PixelFormat:          "yuv420p",
		SegmentFormat:        "mpegts",
		AudioBitstreamFilter: "aac_adtstoasc",
	}
}

func (s Settings) frameRate() string { return strconv.Itoa(s.FrameRate) }
