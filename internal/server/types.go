// Package server provides the HTTP server for the slidecast API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// PairRequest is one image/audio pair of a render request.
type PairRequest struct {
	// ImageBase64 is the base64-encoded source image.
	ImageBase64 string `json:"image_base64" validate:"omitempty,base64"`
	// ImageFormat is the image file format.
	ImageFormat string `json:"image_format" validate:"required,oneof=jpg jpeg png JPG JPEG PNG"`
	// AudioBase64 is the base64-encoded source audio.
	AudioBase64 string `json:"audio_base64" validate:"omitempty,base64"`
	// AudioFormat is the audio file format.
	AudioFormat string `json:"audio_format" validate:"required,oneof=mp3 wav m4a MP3 WAV M4A"`
}

// CreateJobRequest is the HTTP request body for creating a new job.
type CreateJobRequest struct {
	// Pairs are rendered in order, one segment each. The upper bound is the
	// service's configurable MaxPairs.
	Pairs []PairRequest `json:"pairs" validate:"required,min=1,dive"`
	// PushToS3 indicates whether to upload the final video to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Stage is the pipeline stage the job is in, or failed in.
	Stage string `json:"stage,omitempty"`
	// Progress is the percentage of completion (0-100).
	Progress int `json:"progress"`
	// PairCount is the number of pairs in the job.
	PairCount int `json:"pair_count"`
	// Width and Height are the output dimensions, once known.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
	// DurationSec is the length of the output video in seconds.
	DurationSec float64 `json:"duration_sec,omitempty"`
	// Error contains any error message if the job failed.
	Error string `json:"error,omitempty"`
	// ErrorKind classifies the failure.
	ErrorKind string `json:"error_kind,omitempty"`
	// VideoURL is the S3 URL of the output video (if push_to_s3=true and completed).
	VideoURL string `json:"video_url,omitempty"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
