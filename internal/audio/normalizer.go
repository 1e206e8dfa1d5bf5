// Package audio provides interfaces and implementations for audio processing.
package audio

import "context"

// Normalizer defines the interface for converting arbitrary audio input to
// the fixed target encoding shared by every segment of a run.
type Normalizer interface {
	// Normalize re-encodes src into dst, overwriting dst if it exists.
	//
	// Every output of a given Normalizer has identical codec parameters, which
	// is what later allows segments to be concatenated without re-encoding.
	Normalize(ctx context.Context, src, dst string) error
}
