package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(256<<20), cfg.MaxBodyBytes)
	assert.Equal(t, "/tmp/slidecast", cfg.TempDir)
	assert.Equal(t, "/tmp/slidecast/output", cfg.OutputDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, 10, cfg.MaxPairs)
	assert.Equal(t, 1, cfg.PipelineConcurrency)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
	assert.False(t, cfg.RedisEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("PIPELINE_CONCURRENCY", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 4, cfg.PipelineConcurrency)
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := load(envconfig.MapLookuper(map[string]string{
		"PORT":                  "3000",
		"TEMP_DIR":              "/custom/temp",
		"OUTPUT_DIR":            "/custom/out",
		"FFMPEG_PATH":           "/opt/ffmpeg/bin/ffmpeg",
		"FFPROBE_PATH":          "/opt/ffmpeg/bin/ffprobe",
		"MAX_PAIRS":             "5",
		"PIPELINE_CONCURRENCY":  "2",
		"S3_BUCKET":             "my-bucket",
		"S3_REGION":             "us-east-1",
		"S3_ENDPOINT":           "http://localhost:9000",
		"AWS_ACCESS_KEY_ID":     "access-key",
		"AWS_SECRET_ACCESS_KEY": "secret-key",
		"REDIS_ADDR":            "localhost:6379",
		"REDIS_DB":              "2",
		"JOB_TTL_HOURS":         "24",
		"LOG_FORMAT":            "json",
		"LOG_LEVEL":             "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "/custom/temp", cfg.TempDir)
	assert.Equal(t, "/custom/out", cfg.OutputDir)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", cfg.FFprobePath)
	assert.Equal(t, 5, cfg.MaxPairs)
	assert.Equal(t, 2, cfg.PipelineConcurrency)
	assert.Equal(t, "my-bucket", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 24, cfg.JobTTLHours)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.S3Enabled())
	assert.True(t, cfg.RedisEnabled())
}

func TestLoad_InvalidInteger(t *testing.T) {
	_, err := load(envconfig.MapLookuper(map[string]string{
		"PORT": "not-a-number",
	}))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"zero concurrency", map[string]string{"PIPELINE_CONCURRENCY": "0"}, ErrInvalidConcurrency},
		{"zero max pairs", map[string]string{"MAX_PAIRS": "0"}, ErrInvalidMaxPairs},
		{"bucket without region", map[string]string{"S3_BUCKET": "b"}, ErrS3RegionRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envconfig.MapLookuper(tt.env))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		TempDir:            "/tmp/test",
		MaxPairs:           10,
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "AKIAEXAMPLE",
		AWSSecretAccessKey: "secret-key",
		RedisAddr:          "redis:6379",
		RedisPassword:      "redis-pass",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	assert.Contains(t, str, "8080")
	assert.Contains(t, str, "/tmp/test")
	assert.Contains(t, str, "redis:6379")

	assert.NotContains(t, str, "AKIAEXAMPLE")
	assert.NotContains(t, str, "secret-key")
	assert.NotContains(t, str, "redis-pass")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "warn",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Handler().Enabled(t.Context(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(t.Context(), slog.LevelInfo))

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("test message")
	assert.Contains(t, buf.String(), `"msg"`)
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	assert.True(t, logger.Handler().Enabled(t.Context(), slog.LevelDebug))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{MaxPairs: 10, PipelineConcurrency: 1}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.PipelineConcurrency = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConcurrency)

	cfg = valid()
	cfg.MaxPairs = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidMaxPairs)

	cfg = valid()
	cfg.S3Bucket = "bucket"
	assert.ErrorIs(t, cfg.Validate(), ErrS3RegionRequired)

	cfg.S3Region = "eu-west-1"
	assert.NoError(t, cfg.Validate())
}
