package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"speech-backend/internal/app/pipeline"
)

// Processor runs one upload through the transcription pipeline
type Processor interface {
	Process(ctx context.Context, up pipeline.Upload) (*pipeline.Outcome, error)
}

// FileResult is the outcome of one converted file
type FileResult struct {
	Path       string
	Transcript string
	IsEmpty    bool
	OutputPath string
	Duration   time.Duration
	Err        error
}

// Converter transcribes local audio files through the same pipeline the
// HTTP server uses
type Converter struct {
	processor Processor
	progress  *ProgressManager
	logger    *zap.Logger
}

func NewConverter(processor Processor, config ProgressConfig, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		processor: processor,
		progress:  NewProgressManager(config),
		logger:    logger,
	}
}

// Close stops the progress display
func (c *Converter) Close() error {
	c.progress.Shutdown()
	return nil
}

// ConvertFiles transcribes paths with at most parallel files in flight.
// When outputDir is set each transcript is written to <outputDir>/<name>.txt.
// Results are returned in input order; a failed file does not stop the batch.
func (c *Converter) ConvertFiles(ctx context.Context, paths []string, outputDir string, parallel int) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if parallel < 1 {
		parallel = 1
	}
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	bar := c.progress.CreateBar(len(paths), "Transcribing")
	defer c.progress.Wait()

	results := make([]FileResult, len(paths))
	sem := semaphore.NewWeighted(int64(parallel))
	for i, path := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(paths); j++ {
				results[j] = FileResult{Path: paths[j], Err: err}
				bar.Increment()
			}
			break
		}
		go func(i int, path string) {
			defer sem.Release(1)
			defer bar.Increment()
			results[i] = c.convertFile(ctx, path, outputDir)
		}(i, path)
	}

	// Wait for all in-flight files
	if err := sem.Acquire(context.Background(), int64(parallel)); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func (c *Converter) convertFile(ctx context.Context, path, outputDir string) FileResult {
	start := time.Now()
	result := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Err = fmt.Errorf("failed to read %s: %w", path, err)
		return result
	}

	outcome, err := c.processor.Process(ctx, pipeline.Upload{
		Data:      data,
		Filename:  filepath.Base(path),
		RequestID: uuid.New().String(),
	})
	result.Duration = time.Since(start)
	if err != nil {
		c.logger.Error("Error converting file", zap.String("file", path), zap.Error(err))
		result.Err = err
		return result
	}

	result.Transcript = outcome.Result.Text
	result.IsEmpty = outcome.Result.IsEmpty

	if outputDir != "" {
		result.OutputPath = TranscriptPath(outputDir, path)
		if err := os.WriteFile(result.OutputPath, []byte(result.Transcript+"\n"), 0o644); err != nil {
			result.Err = fmt.Errorf("failed to write transcript: %w", err)
			return result
		}
	}

	c.logger.Info("Successfully converted file",
		zap.String("file", path),
		zap.Bool("empty", result.IsEmpty),
		zap.Duration("elapsed", result.Duration),
	)
	return result
}

// TranscriptPath returns <outputDir>/<base name without extension>.txt
func TranscriptPath(outputDir, path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(outputDir, name+".txt")
}

// Failed returns the results that carry an error
func Failed(results []FileResult) []FileResult {
	var failed []FileResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
