//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"speech-backend/internal/app/converter"
	"speech-backend/internal/config"
)

var pipelineSet = wire.NewSet(
	provideLogger,
	provideRegistry,
	provideMetrics,
	provideTranscoder,
	provideEngine,
	provideInvoker,
	provideOrchestrator,
)

// InitializeApplication builds the HTTP server and everything behind it
func InitializeApplication(ctx context.Context, cfg *config.Config) (*Application, func(), error) {
	wire.Build(
		pipelineSet,
		provideServiceContainer,
		provideServer,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}

// InitializeConverter builds the offline batch converter
func InitializeConverter(ctx context.Context, cfg *config.Config, progress converter.ProgressConfig) (*converter.Converter, func(), error) {
	wire.Build(pipelineSet, provideConverter)
	return nil, nil, nil
}
