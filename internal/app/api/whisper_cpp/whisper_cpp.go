package whisper_cpp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"speech-backend/internal/app/api/asr"
	"speech-backend/internal/app/audio"
)

const (
	EngineName = "whisper_cpp"

	waitDelay = 2 * time.Second
)

func init() {
	asr.Register(EngineName, func(cfg asr.EngineConfig, logger *zap.Logger) (asr.Engine, error) {
		return NewLocalTranscriber(cfg.BinaryPath, cfg.Model, cfg.Threads, cfg.AliasDir, logger)
	})
}

// LocalTranscriber runs the whisper.cpp command line binary once per call.
// Each call works in its own temp directory, so calls may run concurrently.
type LocalTranscriber struct {
	binaryPath string
	modelPath  string
	threads    int
	aliasDir   string
	logger     *zap.Logger
}

// NewLocalTranscriber creates a new instance of LocalTranscriber. aliasDir,
// when set, is prepended to the PATH of every whisper.cpp subprocess so it
// finds the resolved ffmpeg.
func NewLocalTranscriber(binaryPath, modelPath string, threads int, aliasDir string, logger *zap.Logger) (*LocalTranscriber, error) {
	if binaryPath == "" {
		binaryPath = "whisper-cli"
	}
	resolved, err := exec.LookPath(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp binary %q not found: %w", binaryPath, err)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper.cpp model %q not readable: %w", modelPath, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalTranscriber{
		binaryPath: resolved,
		modelPath:  modelPath,
		threads:    threads,
		aliasDir:   aliasDir,
		logger:     logger,
	}, nil
}

func (lt *LocalTranscriber) Name() string { return EngineName }

func (lt *LocalTranscriber) ConcurrencySafe() bool { return true }

// Args builds the whisper.cpp command line for one call
func (lt *LocalTranscriber) Args(inputPath, outputPrefix string, params asr.Params) []string {
	language := params.Language
	if language == asr.AutoDetect {
		language = "auto"
	}
	args := []string{
		"-m", lt.modelPath,
		"-f", inputPath,
		"-l", language,
		"-nt",
		"-otxt",
		"-of", outputPrefix,
	}
	if lt.threads > 0 {
		args = append(args, "-t", strconv.Itoa(lt.threads))
	}
	if params.Temperature != nil {
		args = append(args, "--temperature", strconv.FormatFloat(float64(*params.Temperature), 'f', 2, 32))
	}
	if params.BestOf != nil {
		args = append(args, "--best-of", strconv.Itoa(*params.BestOf))
	}
	if !params.Verbose {
		args = append(args, "-np")
	}
	return args
}

// Transcribe implements asr.Engine
func (lt *LocalTranscriber) Transcribe(ctx context.Context, in asr.Input, params asr.Params) (*asr.Output, error) {
	workDir, err := os.MkdirTemp("", "whisper-cpp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			lt.logger.Warn("Failed to remove work directory", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	inputPath := in.Path
	if inputPath == "" {
		data, err := audio.EncodeWAV(in.Samples, in.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to encode samples: %w", err)
		}
		inputPath = filepath.Join(workDir, "input.wav")
		if err := os.WriteFile(inputPath, data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write samples: %w", err)
		}
	}

	outputPrefix := filepath.Join(workDir, "transcript")
	args := lt.Args(inputPath, outputPrefix, params)

	cmd := exec.CommandContext(ctx, lt.binaryPath, args...)
	cmd.Env = subprocessEnv(os.Environ(), lt.aliasDir)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	lt.logger.Debug("Running whisper.cpp", zap.String("binary", lt.binaryPath), zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("whisper.cpp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	content, err := os.ReadFile(outputPrefix + ".txt")
	if err != nil {
		return nil, fmt.Errorf("failed to read output file: %w", err)
	}

	return &asr.Output{
		Text:     strings.TrimSpace(string(content)),
		Language: params.Language,
	}, nil
}

// HealthCheck verifies the binary and model are still in place
func (lt *LocalTranscriber) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(lt.binaryPath); err != nil {
		return fmt.Errorf("whisper.cpp binary missing: %w", err)
	}
	if _, err := os.Stat(lt.modelPath); err != nil {
		return fmt.Errorf("whisper.cpp model missing: %w", err)
	}
	return ctx.Err()
}

// subprocessEnv returns env with dir prepended to PATH
func subprocessEnv(env []string, dir string) []string {
	if dir == "" {
		return env
	}
	out := make([]string, 0, len(env)+1)
	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			kv = "PATH=" + dir + string(os.PathListSeparator) + strings.TrimPrefix(kv, "PATH=")
			found = true
		}
		out = append(out, kv)
	}
	if !found {
		out = append(out, "PATH="+dir)
	}
	return out
}
