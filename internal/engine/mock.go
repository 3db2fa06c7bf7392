package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// MockName is the mock engine identifier.
const MockName = "mock"

// Mock is an Engine for testing.
type Mock struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// State
	requestCount atomic.Int64
}

var _ Engine = (*Mock)(nil)

// NewMock creates a mock engine with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		Latency:      time.Millisecond,
		ResponseText: "mock recognized text",
	}
}

// Name returns the engine identifier.
func (m *Mock) Name() string { return MockName }

// Requests returns the number of Recognize calls made.
func (m *Mock) Requests() int64 { return m.requestCount.Load() }

// InstalledLanguages reports a fixed language set.
func (m *Mock) InstalledLanguages() ([]string, error) {
	return []string{"eng"}, nil
}

// Recognize returns the configured response after the configured
// latency, honoring context cancellation.
func (m *Mock) Recognize(ctx context.Context, _ []byte, _ Options) (string, error) {
	count := m.requestCount.Add(1)

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", &RecognitionError{Engine: MockName, Err: ctx.Err()}
		case <-time.After(m.Latency):
		}
	}

	if m.ShouldFail || (m.FailAfter > 0 && count > int64(m.FailAfter)) {
		return "", &RecognitionError{Engine: MockName, Err: errors.New("mock failure")}
	}
	return m.ResponseText, nil
}
