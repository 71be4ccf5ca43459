package asr

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// EngineConfig carries the settings of every engine adapter. Each adapter
// reads only the fields it needs.
type EngineConfig struct {
	Engine        string        `yaml:"engine" validate:"required,oneof=whisper_cpp whisper_server openai"`
	Model         string        `yaml:"model" validate:"required"`
	MaxConcurrent int           `yaml:"max_concurrent" validate:"gte=1"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`

	// whisper.cpp CLI
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads" validate:"gte=0"`

	// whisper-server HTTP
	BaseURL string `yaml:"base_url" validate:"required_if=Engine whisper_server"`

	// OpenAI
	APIKey       string `yaml:"api_key"`
	APIBaseURL   string `yaml:"api_base_url" validate:"omitempty,url"`
	Organization string `yaml:"organization"`

	// AliasDir holds the ffmpeg alias made visible to engine subprocesses
	AliasDir string `yaml:"-"`
}

// Factory builds an engine from configuration
type Factory func(cfg EngineConfig, logger *zap.Logger) (Engine, error)

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

// Register makes an engine adapter available under name
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Registered returns the registered engine names in sorted order
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := lo.Keys(factories)
	sort.Strings(names)
	return names
}

// NewEngine builds the engine named by cfg.Engine
func NewEngine(cfg EngineConfig, logger *zap.Logger) (Engine, error) {
	factoriesMu.RLock()
	factory, ok := factories[cfg.Engine]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown asr engine %q (registered: %v)", cfg.Engine, Registered())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	engine, err := factory(cfg, logger.Named(cfg.Engine))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s engine: %w", cfg.Engine, err)
	}
	return engine, nil
}
