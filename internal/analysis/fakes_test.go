package analysis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joseph-ayodele/docextract/internal/archive"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/docintel"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	calls    []string
	inFlight int
	maxSeen  int
	delay    time.Duration
	fn       func(call int, modelID string, data []byte) (*docintel.AnalyzeResult, error)
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, modelID string, data []byte) (*docintel.AnalyzeResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, modelID)
	n := len(f.calls)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return f.fn(n, modelID, data)
}

func (f *fakeAnalyzer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAnalyzer) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSeen
}

func byModel(results map[string]*docintel.AnalyzeResult) func(int, string, []byte) (*docintel.AnalyzeResult, error) {
	return func(_ int, modelID string, _ []byte) (*docintel.AnalyzeResult, error) {
		if r, ok := results[modelID]; ok {
			return r, nil
		}
		return &docintel.AnalyzeResult{ModelID: modelID}, nil
	}
}

type fakeArchiver struct {
	mu    sync.Mutex
	err   error
	names []string
	tags  []map[string]string
}

func (a *fakeArchiver) Store(_ context.Context, name string, _ []byte, md archive.Metadata) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.names = append(a.names, name)
	a.tags = append(a.tags, md.Tags)
	return "archive-1", nil
}

var errBoom = errors.New("boom")

func transient() error { return common.NewTransientError("vendor returned status 503", errBoom) }

func testConfig() Config {
	return Config{
		Endpoint: "https://example.test",
		APIKey:   "secret",
		Retry:    common.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}
}
