package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"speech-backend/internal/app/api/asr"
)

// MockEngine is a testify mock of asr.Engine. Return accepts either an
// *asr.Output or a func computing one from the call. Set expectations with On:
//
//	engine.On("Transcribe", mock.Anything, mock.Anything, asr.PrimaryParams()).
//		Return(&asr.Output{Text: "hello"}, nil)
type MockEngine struct {
	mock.Mock
	EngineName string
	Safe       bool
}

// NewMockEngine creates a MockEngine reporting name from Name()
func NewMockEngine(name string) *MockEngine {
	return &MockEngine{EngineName: name, Safe: true}
}

func (m *MockEngine) Name() string {
	if m.EngineName == "" {
		return "mock"
	}
	return m.EngineName
}

func (m *MockEngine) ConcurrencySafe() bool {
	return m.Safe
}

// Transcribe implements asr.Engine
func (m *MockEngine) Transcribe(ctx context.Context, in asr.Input, params asr.Params) (*asr.Output, error) {
	args := m.Called(ctx, in, params)
	var out *asr.Output
	switch v := args.Get(0).(type) {
	case func(context.Context, asr.Input, asr.Params) *asr.Output:
		out = v(ctx, in, params)
	case *asr.Output:
		out = v
	}
	return out, args.Error(1)
}

// ScriptedEngine replays texts in order, then keeps returning the last one.
// It records every call and can block until released to exercise timeouts
// and concurrency limits.
type ScriptedEngine struct {
	mu       sync.Mutex
	Texts    []string
	Err      error
	Block    chan struct{}
	Safe     bool
	calls    []asr.Params
	inputs   []asr.Input
	inFlight int
	peak     int
}

// NewScriptedEngine creates a ScriptedEngine returning texts in order
func NewScriptedEngine(texts ...string) *ScriptedEngine {
	return &ScriptedEngine{Texts: texts, Safe: true}
}

func (s *ScriptedEngine) Name() string { return "scripted" }

func (s *ScriptedEngine) ConcurrencySafe() bool { return s.Safe }

// Transcribe implements asr.Engine
func (s *ScriptedEngine) Transcribe(ctx context.Context, in asr.Input, params asr.Params) (*asr.Output, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, params)
	s.inputs = append(s.inputs, in)
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Texts) == 0 {
		return &asr.Output{}, nil
	}
	if n >= len(s.Texts) {
		n = len(s.Texts) - 1
	}
	return &asr.Output{Text: s.Texts[n]}, nil
}

// Calls returns the params of every call so far
func (s *ScriptedEngine) Calls() []asr.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]asr.Params(nil), s.calls...)
}

// Inputs returns the input of every call so far
func (s *ScriptedEngine) Inputs() []asr.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]asr.Input(nil), s.inputs...)
}

// PeakConcurrency returns the highest number of overlapping calls seen
func (s *ScriptedEngine) PeakConcurrency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}
