package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"speech-backend/internal/api/server"
	v1routes "speech-backend/internal/api/v1/routes"
	"speech-backend/internal/api/v1/services"
	"speech-backend/internal/app/api/asr"
	"speech-backend/internal/app/audio"
	"speech-backend/internal/app/converter"
	"speech-backend/internal/app/logging"
	"speech-backend/internal/app/metrics"
	"speech-backend/internal/app/pipeline"
	"speech-backend/internal/config"

	// Register engine adapters
	_ "speech-backend/internal/app/api/openai/whisper"
	_ "speech-backend/internal/app/api/whisper_cpp"
	_ "speech-backend/internal/app/api/whisper_server"
)

// aliasDirName is the directory under the temp dir holding the ffmpeg alias
const aliasDirName = "speech-backend-bin"

// Application is everything the serve command runs
type Application struct {
	Config *config.Config
	Logger *zap.Logger
	Server *server.Server
}

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.NewLogger(cfg.Log.Development, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.NewMetrics(reg)
}

// provideTranscoder resolves ffmpeg once at startup
func provideTranscoder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*audio.Transcoder, error) {
	path, err := audio.ResolveFFmpeg(ctx, cfg.FFmpeg.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Resolved ffmpeg", zap.String("path", path))
	return audio.NewTranscoder(path, cfg.FFmpeg.Timeout, logger.Named("ffmpeg")), nil
}

// provideEngine builds the configured engine behind its concurrency guard.
// Engine subprocesses see the resolved ffmpeg through an alias directory.
func provideEngine(cfg *config.Config, transcoder *audio.Transcoder, logger *zap.Logger) (*asr.Guarded, error) {
	engineCfg := cfg.ASR
	aliasDir := filepath.Join(os.TempDir(), aliasDirName)
	if _, err := audio.EnsureAlias(aliasDir, transcoder.Path()); err != nil {
		logger.Warn("Cannot alias ffmpeg for engine subprocesses", zap.Error(err))
	} else {
		engineCfg.AliasDir = aliasDir
	}

	engine, err := asr.NewEngine(engineCfg, logger.Named("asr"))
	if err != nil {
		return nil, err
	}
	guarded := asr.NewGuarded(engine, engineCfg.MaxConcurrent)
	logger.Info("ASR engine ready",
		zap.String("engine", engine.Name()),
		zap.String("model", engineCfg.Model),
		zap.Int("slots", guarded.Slots()),
	)
	return guarded, nil
}

func provideInvoker(cfg *config.Config, engine *asr.Guarded, logger *zap.Logger, m *metrics.Metrics) *asr.Invoker {
	return asr.NewInvoker(engine, cfg.ASR.Timeout, logger.Named("asr"), m)
}

func provideOrchestrator(cfg *config.Config, transcoder *audio.Transcoder, invoker *asr.Invoker, logger *zap.Logger, m *metrics.Metrics) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(transcoder, invoker, pipeline.Options{
		ScratchRoot:  cfg.Pipeline.ScratchDir,
		PathFallback: cfg.Pipeline.PathFallback,
	}, logger.Named("pipeline"), m)
}

func provideServiceContainer(orch *pipeline.Orchestrator, engine *asr.Guarded, transcoder *audio.Transcoder, logger *zap.Logger) *v1routes.ServiceContainer {
	return &v1routes.ServiceContainer{
		TranscriptionService: services.NewTranscriptionService(orch),
		HealthService:        services.NewHealthService(engine, transcoder.Path(), orch.ScratchRoot()),
		Logger:               logger,
	}
}

func provideServer(cfg *config.Config, container *v1routes.ServiceContainer, logger *zap.Logger, m *metrics.Metrics, reg *prometheus.Registry) *server.Server {
	return server.NewServer(cfg.Server, container, logger, m, reg)
}

func provideConverter(orch *pipeline.Orchestrator, progress converter.ProgressConfig, logger *zap.Logger) *converter.Converter {
	return converter.NewConverter(orch, progress, logger.Named("converter"))
}
