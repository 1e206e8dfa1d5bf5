package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/maauso/slidecast/internal/pipeline"
	"github.com/maauso/slidecast/internal/storage"
)

// Static errors returned by RenderService.
var (
	// ErrUnsupportedFormat is returned when an upload has an unknown file format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrTooManyPairs is returned when a job exceeds the configured pair limit.
	ErrTooManyPairs = errors.New("too many pairs")
	// ErrJobNotCompleted is returned when the video of an unfinished job is requested.
	ErrJobNotCompleted = errors.New("job not completed")
	// ErrVideoNotFound is returned when a completed job has no video on disk.
	ErrVideoNotFound = errors.New("video not found")
	// ErrJobCancelled is returned by ProcessExistingJob when the job was
	// cancelled before or during its render.
	ErrJobCancelled = errors.New("job cancelled")
)

var (
	imageFormats = map[string]bool{"jpg": true, "jpeg": true, "png": true}
	audioFormats = map[string]bool{"mp3": true, "wav": true, "m4a": true}
)

// DefaultMaxPairs is the pair limit used when none is configured.
const DefaultMaxPairs = 10

// Renderer runs the render pipeline over staged pairs.
type Renderer interface {
	Run(ctx context.Context, workDir string, pairs []pipeline.Pair, extra ...pipeline.Observer) (*pipeline.Result, error)
}

// DurationProber reads the length of a media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// PairInput is one uploaded image/audio pair.
type PairInput struct {
	Image       []byte
	ImageFormat string
	Audio       []byte
	AudioFormat string
}

// RenderInput contains the input parameters for a render job.
type RenderInput struct {
	// Pairs are rendered in order, one segment each.
	Pairs []PairInput
	// PushToS3 indicates whether to upload the final video to S3.
	PushToS3 bool
}

// RenderOutput contains the result of a render job.
type RenderOutput struct {
	// JobID is the unique identifier for the job.
	JobID string
	// Status is the final job status.
	Status Status
	// VideoPath is the local path to the output video.
	VideoPath string
	// VideoURL is the S3 URL of the output video (if pushed to S3).
	VideoURL string
	// Duration is the length of the output video, if it could be probed.
	Duration time.Duration
	// Error contains any error message if processing failed.
	Error string
}

// RenderService orchestrates render jobs: it stages uploads in a scratch
// directory, runs the pipeline, persists the output and keeps the job
// record in the repository up to date.
type RenderService struct {
	repo     Repository
	renderer Renderer
	storage  storage.Storage
	prober   DurationProber
	logger   *slog.Logger
	maxPairs int

	// mu serializes job start against cancellation.
	mu      sync.Mutex
	running map[string]*activeRender
}

// activeRender is a job whose pipeline is executing in this process.
type activeRender struct {
	job    *Job
	cancel context.CancelFunc
}

// ServiceOption is a function that configures a RenderService.
type ServiceOption func(*RenderService)

// WithProber sets the prober used to record output durations.
func WithProber(p DurationProber) ServiceOption {
	return func(s *RenderService) {
		s.prober = p
	}
}

// WithMaxPairs sets the maximum number of pairs per job.
// Values below one are ignored.
func WithMaxPairs(n int) ServiceOption {
	return func(s *RenderService) {
		if n > 0 {
			s.maxPairs = n
		}
	}
}

// NewRenderService creates a new RenderService.
func NewRenderService(repo Repository, renderer Renderer, store storage.Storage, logger *slog.Logger, opts ...ServiceOption) *RenderService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RenderService{
		repo:     repo,
		renderer: renderer,
		storage:  store,
		logger:   logger,
		maxPairs: DefaultMaxPairs,
		running:  make(map[string]*activeRender),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxPairs returns the pair limit per job.
func (s *RenderService) MaxPairs() int {
	return s.maxPairs
}

func normalizeFormat(f string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(f)), ".")
}

// ValidateInput checks the render precondition: between one and MaxPairs
// pairs, each with non-empty image and audio data in a supported format.
func (s *RenderService) ValidateInput(input RenderInput) error {
	if len(input.Pairs) == 0 {
		return &pipeline.MissingInputError{Index: -1, Field: "pairs"}
	}
	if len(input.Pairs) > s.maxPairs {
		return fmt.Errorf("%w: %d pairs, limit is %d", ErrTooManyPairs, len(input.Pairs), s.maxPairs)
	}

	for i, p := range input.Pairs {
		if len(p.Image) == 0 {
			return &pipeline.MissingInputError{Index: i, Field: "image"}
		}
		if len(p.Audio) == 0 {
			return &pipeline.MissingInputError{Index: i, Field: "audio"}
		}
		if !imageFormats[normalizeFormat(p.ImageFormat)] {
			return fmt.Errorf("%w: pair %d image %q", ErrUnsupportedFormat, i, p.ImageFormat)
		}
		if !audioFormats[normalizeFormat(p.AudioFormat)] {
			return fmt.Errorf("%w: pair %d audio %q", ErrUnsupportedFormat, i, p.AudioFormat)
		}
	}
	return nil
}

// CreateJob validates the input and persists a new job in IN_QUEUE status.
func (s *RenderService) CreateJob(ctx context.Context, input RenderInput) (*Job, error) {
	if err := s.ValidateInput(input); err != nil {
		return nil, err
	}

	job := New()
	job.PairCount = len(input.Pairs)
	job.PushToS3 = input.PushToS3

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.Int("pairs", job.PairCount),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *RenderService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all known jobs, oldest first.
func (s *RenderService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Process creates a job and runs it to completion.
func (s *RenderService) Process(ctx context.Context, input RenderInput) (*RenderOutput, error) {
	job, err := s.CreateJob(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.ProcessExistingJob(ctx, job.ID, input)
}

// ProcessExistingJob runs the render pipeline for a job created by CreateJob.
// The scratch directory is removed on every exit path.
// CancelJob stops it at any point; the job then ends CANCELLED.
func (s *RenderService) ProcessExistingJob(ctx context.Context, jobID string, input RenderInput) (*RenderOutput, error) {
	job, ctx, done, err := s.begin(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer done()

	log := s.logger.With(slog.String("job_id", jobID))
	log.Info("processing job", slog.Int("pairs", len(input.Pairs)))

	dir, err := s.storage.CreateScratch(ctx, jobID)
	if err != nil {
		return s.fail(ctx, job, err)
	}
	defer func() {
		if err := s.storage.RemoveAll(context.WithoutCancel(ctx), dir); err != nil {
			log.Warn("failed to remove scratch directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
		}
	}()

	pairs, err := s.stage(ctx, dir, input)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	obs := &progressObserver{svc: s, ctx: ctx, job: job, total: pipeline.Units(len(pairs))}
	res, err := s.renderer.Run(ctx, dir, pairs, obs)
	if err != nil {
		if stage := pipeline.FailedStage(err); stage != pipeline.StageIdle {
			job.SetStage(string(stage))
		}
		return s.fail(ctx, job, err)
	}

	out, err := s.deliver(ctx, job, res.OutputPath)
	if err != nil {
		return s.fail(ctx, job, err)
	}

	if len(res.Dimensions) > 0 {
		job.SetDimensions(res.Dimensions[0].X, res.Dimensions[0].Y)
	}
	job.SetOutput(out.VideoPath, out.VideoURL, out.Duration)
	job.SetStage(string(pipeline.StageDone))
	if err := job.Complete(); err != nil {
		if job.GetStatus() != StatusCancelled {
			return nil, fmt.Errorf("complete job %s: %w", jobID, err)
		}
		// Cancelled after the render finished: drop the output.
		if err := s.storage.Remove(context.WithoutCancel(ctx), out.VideoPath); err != nil {
			log.Warn("failed to remove cancelled output",
				slog.String("path", out.VideoPath),
				slog.String("error", err.Error()),
			)
		}
		job.ClearOutput()
		return s.fail(ctx, job, context.Canceled)
	}
	s.save(ctx, job)

	log.Info("job completed",
		slog.String("video_path", out.VideoPath),
		slog.Duration("duration", out.Duration),
	)

	out.JobID = jobID
	out.Status = StatusCompleted
	return out, nil
}

// begin moves an IN_QUEUE job to RUNNING and registers it for cancellation.
// The returned context is cancelled by CancelJob; done unregisters the job.
func (s *RenderService) begin(ctx context.Context, jobID string) (*Job, context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, nil, nil, err
	}
	if job.GetStatus() == StatusCancelled {
		return nil, nil, nil, fmt.Errorf("start job %s: %w", jobID, ErrJobCancelled)
	}
	if err := job.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start job %s: %w", jobID, err)
	}
	s.save(ctx, job)

	runCtx, cancel := context.WithCancel(ctx)
	s.running[jobID] = &activeRender{job: job, cancel: cancel}

	done := func() {
		s.mu.Lock()
		delete(s.running, jobID)
		s.mu.Unlock()
		cancel()
	}
	return job, runCtx, done, nil
}

// CancelJob cancels a queued or running job. A running render is
// interrupted through its context. Jobs already finished return
// ErrInvalidTransition.
func (s *RenderService) CancelJob(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.running[id]; ok {
		if err := r.job.Cancel(); err != nil {
			return nil, fmt.Errorf("cancel job %s: %w", id, err)
		}
		r.cancel()
		s.save(ctx, r.job)
		s.logger.Info("cancelled running job", slog.String("job_id", id))
		return r.job.Clone(), nil
	}

	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Cancel(); err != nil {
		return nil, fmt.Errorf("cancel job %s: %w", id, err)
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("cancelled queued job", slog.String("job_id", id))
	return job, nil
}

// stage writes the uploaded bytes into dir under their scratch names.
func (s *RenderService) stage(ctx context.Context, dir string, input RenderInput) ([]pipeline.Pair, error) {
	pairs := make([]pipeline.Pair, len(input.Pairs))
	for i, p := range input.Pairs {
		imgName := fmt.Sprintf("image_%d_orig.%s", i, normalizeFormat(p.ImageFormat))
		imgPath, err := s.storage.SaveFile(ctx, dir, imgName, bytes.NewReader(p.Image))
		if err != nil {
			return nil, fmt.Errorf("save image %d: %w", i, err)
		}

		audName := fmt.Sprintf("audio_%d_orig.%s", i, normalizeFormat(p.AudioFormat))
		audPath, err := s.storage.SaveFile(ctx, dir, audName, bytes.NewReader(p.Audio))
		if err != nil {
			return nil, fmt.Errorf("save audio %d: %w", i, err)
		}

		pairs[i] = pipeline.Pair{ImagePath: imgPath, AudioPath: audPath}
	}
	return pairs, nil
}

// deliver moves the rendered file out of scratch, probes it and optionally
// uploads it to S3.
func (s *RenderService) deliver(ctx context.Context, job *Job, output string) (*RenderOutput, error) {
	path, err := s.storage.Persist(ctx, output, job.ID+".mp4")
	if err != nil {
		return nil, err
	}
	out := &RenderOutput{VideoPath: path}

	if s.prober != nil {
		d, err := s.prober.Duration(ctx, path)
		if err != nil {
			s.logger.Warn("failed to probe output duration",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		} else {
			out.Duration = d
		}
	}

	if job.PushToS3 {
		f, err := s.storage.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		url, err := s.storage.UploadToS3(ctx, "videos/"+job.ID+".mp4", f)
		if err != nil {
			return nil, err
		}
		out.VideoURL = url
	}
	return out, nil
}

// fail records cause on the job. A job cancelled while running keeps its
// CANCELLED status.
func (s *RenderService) fail(ctx context.Context, job *Job, cause error) (*RenderOutput, error) {
	if job.GetStatus() == StatusCancelled {
		s.save(ctx, job)
		s.logger.Info("job stopped after cancellation",
			slog.String("job_id", job.ID),
			slog.String("stage", job.Clone().Stage),
		)
		return &RenderOutput{
			JobID:  job.ID,
			Status: StatusCancelled,
			Error:  ErrJobCancelled.Error(),
		}, fmt.Errorf("%w: %w", ErrJobCancelled, cause)
	}

	kind := pipeline.Kind(cause)
	if err := job.Fail(kind, cause.Error()); err != nil {
		s.logger.Warn("failed to mark job as failed",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
	s.save(ctx, job)

	s.logger.Error("job failed",
		slog.String("job_id", job.ID),
		slog.String("stage", job.Clone().Stage),
		slog.String("error_kind", kind),
		slog.String("error", cause.Error()),
	)

	return &RenderOutput{
		JobID:  job.ID,
		Status: StatusFailed,
		Error:  cause.Error(),
	}, cause
}

// save persists the job. Failures are only logged.
func (s *RenderService) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

// OpenVideo opens the output video of a completed job.
// The caller is responsible for closing the returned ReadCloser.
func (s *RenderService) OpenVideo(ctx context.Context, id string) (io.ReadCloser, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: status %s", ErrJobNotCompleted, job.Status)
	}
	if job.OutputVideoPath == "" {
		return nil, ErrVideoNotFound
	}

	rc, err := s.storage.Open(ctx, job.OutputVideoPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrVideoNotFound
	}
	return rc, err
}

// DeleteJobVideo removes a job's output video from disk and clears it from
// the job. Deleting an already deleted video is not an error.
func (s *RenderService) DeleteJobVideo(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if job.OutputVideoPath != "" {
		if err := s.storage.Remove(ctx, job.OutputVideoPath); err != nil {
			return err
		}
		s.logger.Info("deleted job video",
			slog.String("job_id", id),
			slog.String("path", job.OutputVideoPath),
		)
	}

	job.ClearOutput()
	return s.repo.Save(ctx, job)
}

// progressObserver mirrors pipeline progress into the job record.
type progressObserver struct {
	svc   *RenderService
	ctx   context.Context
	job   *Job
	total int

	mu   sync.Mutex
	done int
}

func (o *progressObserver) StageStarted(stage pipeline.Stage, _ int) {
	o.job.SetStage(string(stage))
	o.svc.save(o.ctx, o.job)
}

func (o *progressObserver) UnitCompleted(pipeline.Stage, int) {
	o.mu.Lock()
	o.done++
	// The last few percent cover delivery.
	o.job.UpdateProgress(o.done * 95 / o.total)
	o.mu.Unlock()
	o.svc.save(o.ctx, o.job)
}
