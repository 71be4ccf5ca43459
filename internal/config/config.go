package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"speech-backend/internal/app/api/asr"
)

// Defaults
const (
	DefaultPort           = "8000"
	DefaultEngine         = "whisper_cpp"
	DefaultWhisperModel   = "base.en"
	DefaultMaxUploadBytes = 50 << 20
	DefaultFFmpegTimeout  = 60 * time.Second
	DefaultASRTimeout     = 120 * time.Second
	DefaultConfigFile     = "config/speech-backend.yaml"
)

// Config is the process configuration, read once at startup
type Config struct {
	Server   ServerConfig     `yaml:"server"`
	ASR      asr.EngineConfig `yaml:"asr"`
	FFmpeg   FFmpegConfig     `yaml:"ffmpeg"`
	Pipeline PipelineConfig   `yaml:"pipeline"`
	Log      LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	Mode            string        `yaml:"mode" validate:"oneof=debug release test"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// FFmpegConfig configures the transcoder
type FFmpegConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// PipelineConfig configures per-request processing
type PipelineConfig struct {
	ScratchDir   string `yaml:"scratch_dir"`
	PathFallback bool   `yaml:"path_fallback"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the configuration used when no file or variable overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			Mode:            "release",
			MaxUploadBytes:  DefaultMaxUploadBytes,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		ASR: asr.EngineConfig{
			Engine:        DefaultEngine,
			Model:         DefaultWhisperModel,
			MaxConcurrent: 1,
			Timeout:       DefaultASRTimeout,
			BinaryPath:    "whisper-cli",
		},
		FFmpeg: FFmpegConfig{
			Timeout: DefaultFFmpegTimeout,
		},
		Pipeline: PipelineConfig{
			PathFallback: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (a
// missing file is not an error when path is the default), then environment
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = ResolveConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && filepath.ToSlash(path) == DefaultConfigFile:
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolveModel()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveConfigPath returns SPEECH_BACKEND_CONFIG, the default file under
// the project root if it exists, or DefaultConfigFile.
func ResolveConfigPath() string {
	if p := os.Getenv("SPEECH_BACKEND_CONFIG"); p != "" {
		return p
	}
	if root, err := GetProjectRoot(); err == nil {
		candidate := filepath.Join(root, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return DefaultConfigFile
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("PORT", &c.Server.Port)
	setString("GIN_MODE", &c.Server.Mode)
	setString("WHISPER_MODEL", &c.ASR.Model)
	setString("ASR_ENGINE", &c.ASR.Engine)
	setString("WHISPER_CPP_BINARY", &c.ASR.BinaryPath)
	setString("WHISPER_SERVER_URL", &c.ASR.BaseURL)
	setString("OPENAI_API_KEY", &c.ASR.APIKey)
	setString("OPENAI_BASE_URL", &c.ASR.APIBaseURL)
	setString("FFMPEG_PATH", &c.FFmpeg.Path)
	setString("SCRATCH_DIR", &c.Pipeline.ScratchDir)
	setString("LOG_LEVEL", &c.Log.Level)

	if v := os.Getenv("ASR_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ASR_MAX_CONCURRENT %q: %w", v, err)
		}
		c.ASR.MaxConcurrent = n
	}
	for key, dst := range map[string]*time.Duration{
		"ASR_TIMEOUT":    &c.ASR.Timeout,
		"FFMPEG_TIMEOUT": &c.FFmpeg.Timeout,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = d
		}
	}
	if v := os.Getenv("PATH_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PATH_FALLBACK %q: %w", v, err)
		}
		c.Pipeline.PathFallback = b
	}
	return nil
}

// resolveModel turns a whisper.cpp model variant such as "base.en" into the
// ggml file path next to the binary's models directory, unless it already
// names a file.
func (c *Config) resolveModel() {
	if c.ASR.Engine != "whisper_cpp" || strings.ContainsRune(c.ASR.Model, filepath.Separator) || strings.HasSuffix(c.ASR.Model, ".bin") {
		return
	}
	dir := os.Getenv("WHISPER_MODELS_DIR")
	if dir == "" {
		dir = "models"
	}
	c.ASR.Model = filepath.Join(dir, "ggml-"+c.ASR.Model+".bin")
}

// Validate checks struct tags on the whole configuration
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()+paramSuffix(fe.Param())))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}
