package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/maauso/slidecast/internal/pipeline"
)

func TestPairList_Set(t *testing.T) {
	var l pairList
	require.NoError(t, l.Set("a.png:a.mp3"))
	require.NoError(t, l.Set("dir/b.jpg:dir/b.wav"))

	assert.Equal(t, pairList{
		{ImagePath: "a.png", AudioPath: "a.mp3"},
		{ImagePath: "dir/b.jpg", AudioPath: "dir/b.wav"},
	}, l)
	assert.Equal(t, "a.png:a.mp3,dir/b.jpg:dir/b.wav", l.String())
}

func TestPairList_SetInvalid(t *testing.T) {
	for _, s := range []string{"", "a.png", "a.png:", ":a.mp3"} {
		var l pairList
		assert.Error(t, l.Set(s), s)
		assert.Empty(t, l)
	}
}

func TestProgressBar_CountsUnits(t *testing.T) {
	bar := pb.New(pipeline.Units(2))
	bar.Output = io.Discard
	bar.NotPrint = true
	b := &progressBar{bar: bar}

	b.StageStarted(pipeline.StageNormalizingAudio, 2)
	b.UnitCompleted(pipeline.StageNormalizingAudio, 0)
	b.UnitCompleted(pipeline.StageNormalizingAudio, 1)
	b.StageStarted(pipeline.StageConcatenating, 1)
	b.UnitCompleted(pipeline.StageConcatenating, 0)

	assert.Equal(t, int64(3), bar.Get())
	assert.Equal(t, int64(7), bar.Total)
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "audio", stageLabel(pipeline.StageNormalizingAudio))
	assert.Equal(t, "images", stageLabel(pipeline.StageSanitizingImages))
	assert.Equal(t, "muxing", stageLabel(pipeline.StageMuxing))
	assert.Equal(t, "joining", stageLabel(pipeline.StageConcatenating))
	assert.Equal(t, "done", stageLabel(pipeline.StageDone))
}
