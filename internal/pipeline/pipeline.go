// Package pipeline drives the four render stages over N image/audio pairs:
// audio normalization, image sanitizing, segment muxing and concatenation.
//
// Stages are separated by barriers: no unit of a stage starts before every
// unit of the previous stage has finished. The first failure stops the run.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/slidecast/internal/audio"
	"github.com/maauso/slidecast/internal/media"
)

// OutputName is the file name of the final output inside the work directory.
const OutputName = "final_output.mp4"

// Stage identifies where a run is.
type Stage string

const (
	StageIdle             Stage = "IDLE"
	StageNormalizingAudio Stage = "NORMALIZING_AUDIO"
	StageSanitizingImages Stage = "SANITIZING_IMAGES"
	StageMuxing           Stage = "MUXING"
	StageConcatenating    Stage = "CONCATENATING"
	StageDone             Stage = "DONE"
	StageFailed           Stage = "FAILED"
)

// Pair is one image/audio input, already staged on disk.
type Pair struct {
	ImagePath string
	AudioPath string
}

// Result lists every artifact of a successful run, indexed by pair.
type Result struct {
	OutputPath string
	AudioPaths []string
	ImagePaths []string
	Segments   []string
	Dimensions []image.Point
}

// Observer receives progress notifications. With concurrency above one,
// UnitCompleted may be called from several goroutines at once.
type Observer interface {
	StageStarted(stage Stage, units int)
	UnitCompleted(stage Stage, index int)
}

type nopObserver struct{}

func (nopObserver) StageStarted(Stage, int)  {}
func (nopObserver) UnitCompleted(Stage, int) {}

type observers []Observer

func (o observers) StageStarted(stage Stage, units int) {
	for _, obs := range o {
		obs.StageStarted(stage, units)
	}
}

func (o observers) UnitCompleted(stage Stage, index int) {
	for _, obs := range o {
		obs.UnitCompleted(stage, index)
	}
}

// Units returns the number of work units a run over n pairs reports.
func Units(n int) int {
	return 3*n + 1
}

// Pipeline runs the render stages.
type Pipeline struct {
	normalizer audio.Normalizer
	sanitizer  media.Sanitizer
	muxer      media.Muxer
	joiner     media.Joiner

	concurrency int
	logger      *slog.Logger
	observer    Observer
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency sets how many pairs a stage may process at once.
// Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// New creates a Pipeline. Pairs are processed one at a time unless
// WithConcurrency says otherwise.
func New(n audio.Normalizer, s media.Sanitizer, m media.Muxer, j media.Joiner, opts ...Option) *Pipeline {
	p := &Pipeline{
		normalizer:  n,
		sanitizer:   s,
		muxer:       m,
		joiner:      j,
		concurrency: 1,
		logger:      slog.Default(),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate checks that at least one pair was supplied and that every pair
// has an existing image and audio file.
func Validate(pairs []Pair) error {
	if len(pairs) == 0 {
		return &MissingInputError{Index: -1, Field: "pairs"}
	}
	for i, pair := range pairs {
		if err := checkInput(i, "image", pair.ImagePath); err != nil {
			return err
		}
		if err := checkInput(i, "audio", pair.AudioPath); err != nil {
			return err
		}
	}
	return nil
}

func checkInput(index int, field, path string) error {
	if path == "" {
		return &MissingInputError{Index: index, Field: field}
	}
	if _, err := os.Stat(path); err != nil {
		return &MissingInputError{Index: index, Field: field, Path: path, Err: err}
	}
	return nil
}

// Run renders pairs into workDir and returns the artifacts. workDir must be
// an existing, writable directory owned by the caller; artifacts left there
// after a failure are the caller's to remove. On failure no final output exists.
//
// Extra observers receive this run's progress in addition to the one set
// with WithObserver.
func (p *Pipeline) Run(ctx context.Context, workDir string, pairs []Pair, extra ...Observer) (*Result, error) {
	if err := Validate(pairs); err != nil {
		return nil, err
	}

	run := *p
	if len(extra) > 0 {
		run.observer = append(observers{p.observer}, extra...)
	}
	return run.run(ctx, workDir, pairs)
}

func (p *Pipeline) run(ctx context.Context, workDir string, pairs []Pair) (*Result, error) {
	n := len(pairs)
	res := &Result{
		AudioPaths: make([]string, n),
		ImagePaths: make([]string, n),
		Segments:   make([]string, n),
		Dimensions: make([]image.Point, n),
	}
	start := time.Now()

	err := p.stage(ctx, StageNormalizingAudio, n, func(ctx context.Context, i int) error {
		dst := filepath.Join(workDir, fmt.Sprintf("audio_%d.aac", i))
		if err := p.normalizer.Normalize(ctx, pairs[i].AudioPath, dst); err != nil {
			return err
		}
		res.AudioPaths[i] = dst
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageSanitizingImages, n, func(ctx context.Context, i int) error {
		dst := filepath.Join(workDir, fmt.Sprintf("image_%d.png", i))
		dims, err := p.sanitizer.Sanitize(ctx, pairs[i].ImagePath, dst)
		if err != nil {
			return err
		}
		res.ImagePaths[i] = dst
		res.Dimensions[i] = dims
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageMuxing, n, func(ctx context.Context, i int) error {
		dst := filepath.Join(workDir, fmt.Sprintf("segment_%d.ts", i))
		if err := p.muxer.Mux(ctx, res.ImagePaths[i], res.AudioPaths[i], dst); err != nil {
			return err
		}
		res.Segments[i] = dst
		return nil
	})
	if err != nil {
		return nil, err
	}

	output := filepath.Join(workDir, OutputName)
	p.startStage(StageConcatenating, 1)
	if err := p.joiner.Concatenate(ctx, res.Segments, output); err != nil {
		_ = os.Remove(output)
		p.logger.Error("stage failed",
			slog.String("stage", string(StageConcatenating)),
			slog.String("error", err.Error()),
		)
		return nil, &Error{Stage: StageConcatenating, Index: -1, Err: err}
	}
	p.observer.UnitCompleted(StageConcatenating, 0)
	res.OutputPath = output

	p.logger.Info("render finished",
		slog.Int("pairs", n),
		slog.String("output", output),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) startStage(stage Stage, units int) {
	p.logger.Info("stage started",
		slog.String("stage", string(stage)),
		slog.Int("units", units),
	)
	p.observer.StageStarted(stage, units)
}

// stage runs fn for indices 0..units-1 in order, at most p.concurrency at a
// time, and returns after all of them have finished. Once a unit fails no
// further unit is started and in-flight ones see a cancelled context.
func (p *Pipeline) stage(ctx context.Context, stage Stage, units int, fn func(context.Context, int) error) error {
	p.startStage(stage, units)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := 0; i < units; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &Error{Stage: stage, Index: i, Err: err}
			}
			if err := fn(gctx, i); err != nil {
				return &Error{Stage: stage, Index: i, Err: err}
			}
			p.logger.Debug("unit completed",
				slog.String("stage", string(stage)),
				slog.Int("index", i),
			)
			p.observer.UnitCompleted(stage, i)
			return nil
		})
	}

	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = &Error{Stage: stage, Index: -1, Err: ctx.Err()}
	}
	if err != nil {
		p.logger.Error("stage failed",
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
		)
		return err
	}

	p.logger.Info("stage finished",
		slog.String("stage", string(stage)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
