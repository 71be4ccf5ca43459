package asr

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	apperrors "speech-backend/internal/app/errors"
	"speech-backend/internal/app/metrics"
)

const (
	attemptPrimary = "primary"
	attemptRetry   = "retry"

	defaultTimeout = 120 * time.Second
)

// Invoker runs the two-attempt transcription policy against a shared engine
type Invoker struct {
	engine  Engine
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewInvoker creates an invoker. timeout bounds each engine call.
func NewInvoker(engine Engine, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Invoker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		engine:  engine,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

// Transcribe calls the engine with PrimaryParams. If the trimmed text is
// empty it calls it exactly once more with RetryParams. An empty result after
// both attempts is returned as a valid Result, not an error.
func (inv *Invoker) Transcribe(ctx context.Context, in Input) (Result, error) {
	if err := in.Validate(); err != nil {
		return Result{}, apperrors.Decode(err, "invalid asr input")
	}

	out, err := inv.attempt(ctx, in, PrimaryParams(), attemptPrimary)
	if err != nil {
		return Result{}, err
	}
	result := newResult(inv.engine.Name(), out, 1)
	if !result.IsEmpty {
		return result, nil
	}

	inv.logger.Info("Empty transcript, retrying with fixed decoding parameters",
		zap.String("engine", inv.engine.Name()),
		zap.Stringer("params", RetryParams()),
	)
	inv.metrics.RecordRetry()

	out, err = inv.attempt(ctx, in, RetryParams(), attemptRetry)
	if err != nil {
		return Result{}, err
	}
	retried := newResult(inv.engine.Name(), out, 2)
	if retried.IsEmpty {
		inv.metrics.RecordEmptyTranscript()
	}
	return retried, nil
}

func (inv *Invoker) attempt(ctx context.Context, in Input, params Params, label string) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	start := time.Now()
	out, err := inv.engine.Transcribe(ctx, in, params)
	elapsed := time.Since(start)
	inv.metrics.RecordASRAttempt(inv.engine.Name(), label, elapsed.Seconds())

	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Decode(err, fmt.Sprintf("inference timed out after %s", inv.timeout))
		}
		return nil, apperrors.Decode(err, fmt.Sprintf("%s inference failed", inv.engine.Name()))
	}
	if out == nil {
		out = &Output{}
	}

	inv.logger.Debug("ASR attempt finished",
		zap.String("engine", inv.engine.Name()),
		zap.String("attempt", label),
		zap.Stringer("params", params),
		zap.Bool("samples", in.HasSamples()),
		zap.Duration("elapsed", elapsed),
		zap.Int("chars", len(out.Text)),
	)
	return out, nil
}
