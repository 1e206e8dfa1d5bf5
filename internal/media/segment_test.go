package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentMuxer_Args(t *testing.T) {
	fake := &fakeTranscoder{}
	m := NewSegmentMuxer(fake, DefaultSettings())

	err := m.Mux(context.Background(), "/w/image_0.png", "/w/audio_0.aac", "/w/segment_0.ts")
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{
		"-loop", "1",
		"-framerate", "1",
		"-i", "/w/image_0.png",
		"-i", "/w/audio_0.aac",
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "copy",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-f", "mpegts",
		"/w/segment_0.ts",
	}, fake.calls[0])
}

func TestSegmentMuxer_Failure(t *testing.T) {
	fake := &fakeTranscoder{
		res: Result{ExitCode: 1, Stderr: "height not divisible by 2"},
		err: errors.New("exit status 1"),
	}
	m := NewSegmentMuxer(fake, DefaultSettings())

	err := m.Mux(context.Background(), "img.png", "a.aac", "seg.ts")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMux)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "seg.ts", se.Path)
	assert.Equal(t, "height not divisible by 2", se.Stderr)
}

func TestConcatenator_SingleSegmentRemux(t *testing.T) {
	fake := &fakeTranscoder{}
	c := NewConcatenator(fake, DefaultSettings())

	err := c.Concatenate(context.Background(), []string{"/w/segment_0.ts"}, "/w/final_output.mp4")
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{
		"-i", "/w/segment_0.ts",
		"-c", "copy",
		"/w/final_output.mp4",
	}, fake.calls[0])
}

func TestConcatenator_MultipleSegments(t *testing.T) {
	fake := &fakeTranscoder{}
	c := NewConcatenator(fake, DefaultSettings())

	segments := []string{"/w/segment_0.ts", "/w/segment_1.ts", "/w/segment_2.ts"}
	err := c.Concatenate(context.Background(), segments, "/w/final_output.mp4")
	require.NoError(t, err)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, []string{
		"-i", "concat:/w/segment_0.ts|/w/segment_1.ts|/w/segment_2.ts",
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"/w/final_output.mp4",
	}, fake.calls[0])
}

func TestConcatenator_NoSegments(t *testing.T) {
	fake := &fakeTranscoder{}
	c := NewConcatenator(fake, DefaultSettings())

	err := c.Concatenate(context.Background(), nil, "out.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcat)
	assert.ErrorIs(t, err, ErrNoSegments)
	assert.Empty(t, fake.calls)
}

func TestConcatenator_RejectsSeparatorInPath(t *testing.T) {
	fake := &fakeTranscoder{}
	c := NewConcatenator(fake, DefaultSettings())

	err := c.Concatenate(context.Background(), []string{"a.ts", "b|c.ts"}, "out.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcat)
	assert.ErrorIs(t, err, ErrInvalidSegmentPath)
	assert.Empty(t, fake.calls)
}

func TestConcatenator_Failure(t *testing.T) {
	fake := &fakeTranscoder{
		res: Result{ExitCode: 1, Stderr: "Invalid data found"},
		err: errors.New("exit status 1"),
	}
	c := NewConcatenator(fake, DefaultSettings())

	err := c.Concatenate(context.Background(), []string{"a.ts", "b.ts"}, "out.mp4")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConcat)
	assert.NotErrorIs(t, err, ErrMux)
	assert.Contains(t, err.Error(), "Invalid data found")
}
