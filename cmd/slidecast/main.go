// Command slidecast renders image/audio pairs into a single MP4 slideshow.
//
//	slidecast -pair cover.png:intro.mp3 -pair slide2.jpg:part2.wav -o talk.mp4
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/cheggaaa/pb.v1"

	"github.com/maauso/slidecast/internal/bootstrap"
	"github.com/maauso/slidecast/internal/pipeline"
	"github.com/maauso/slidecast/internal/storage"
)

// pairList collects repeated -pair flags in order.
type pairList []pipeline.Pair

func (l *pairList) String() string {
	parts := make([]string, len(*l))
	for i, p := range *l {
		parts[i] = p.ImagePath + ":" + p.AudioPath
	}
	return strings.Join(parts, ",")
}

func (l *pairList) Set(s string) error {
	img, aud, ok := strings.Cut(s, ":")
	if !ok || img == "" || aud == "" {
		return fmt.Errorf("want image:audio, got %q", s)
	}
	*l = append(*l, pipeline.Pair{ImagePath: img, AudioPath: aud})
	return nil
}

var (
	pairs       pairList
	output      = flag.String("o", pipeline.OutputName, "Path of the rendered MP4")
	concurrency = flag.Int("concurrency", 1, "Pairs processed at once within a stage")
	ffmpegPath  = flag.String("ffmpeg", "ffmpeg", "Path to the ffmpeg binary")
	keepScratch = flag.Bool("keep-scratch", false, "Keep intermediate files after the run")
	verbose     = flag.Bool("v", false, "Log every stage and ffmpeg invocation")
)

func main() {
	flag.Var(&pairs, "pair", "Image and audio file as image:audio; repeat in playback order")
	flag.Parse()

	if len(pairs) == 0 {
		fmt.Fprintln(os.Stderr, "at least one -pair is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, pairs); err != nil {
		if kind := pipeline.Kind(err); kind != "" {
			failf("%s: %v\n", kind, err)
		}
		failf("%v\n", err)
	}
}

func failf(s string, args ...any) {
	fmt.Fprintf(os.Stderr, s, args...)
	os.Exit(1)
}

func run(ctx context.Context, pairs []pipeline.Pair) error {
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := pipeline.Validate(pairs); err != nil {
		return err
	}

	dst, err := filepath.Abs(*output)
	if err != nil {
		return fmt.Errorf("resolve output: %w", err)
	}
	store, err := storage.NewLocalStorage("", filepath.Dir(dst))
	if err != nil {
		return err
	}

	scratch, err := store.CreateScratch(ctx, "render")
	if err != nil {
		return err
	}
	if *keepScratch {
		defer fmt.Fprintf(os.Stderr, "intermediate files kept in %s\n", scratch)
	} else {
		defer func() { _ = store.RemoveAll(context.WithoutCancel(ctx), scratch) }()
	}

	bar := newProgressBar(len(pairs))
	p := bootstrap.NewPipeline(*ffmpegPath, *concurrency, logger)
	res, err := p.Run(ctx, scratch, pairs, bar)
	bar.finish()
	if err != nil {
		return err
	}

	path, err := store.Persist(ctx, res.OutputPath, filepath.Base(dst))
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%dx%d, %d segments)\n", path, res.Dimensions[0].X, res.Dimensions[0].Y, len(res.Segments))
	return nil
}

// progressBar shows pipeline progress on stderr.
type progressBar struct {
	bar *pb.ProgressBar
}

func newProgressBar(pairs int) *progressBar {
	bar := pb.New(pipeline.Units(pairs))
	bar.Output = os.Stderr
	bar.ShowTimeLeft = true
	bar.Start()
	return &progressBar{bar: bar}
}

func (b *progressBar) StageStarted(stage pipeline.Stage, _ int) {
	b.bar.Prefix(stageLabel(stage) + " ")
}

func (b *progressBar) UnitCompleted(pipeline.Stage, int) {
	b.bar.Increment()
}

func (b *progressBar) finish() {
	b.bar.Finish()
}

func stageLabel(s pipeline.Stage) string {
	switch s {
	case pipeline.StageNormalizingAudio:
		return "audio"
	case pipeline.StageSanitizingImages:
		return "images"
	case pipeline.StageMuxing:
		return "muxing"
	case pipeline.StageConcatenating:
		return "joining"
	}
	return strings.ToLower(string(s))
}
