package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

type recordingLoader struct {
	mu    sync.Mutex
	calls [][]string
	opts  []views.LoadOptions
	err   error
}

func (l *recordingLoader) LoadAll(_ context.Context, names []string, opts views.LoadOptions) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, names)
	l.opts = append(l.opts, opts)
	return l.err
}

func (l *recordingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func TestScheduler_Disabled(t *testing.T) {
	loader := &recordingLoader{}
	s := New(loader, Config{Views: []string{"overview"}}, nil)

	assert.False(t, s.Enabled())
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.Equal(t, 0, loader.count())
}

func TestScheduler_RunNow(t *testing.T) {
	loader := &recordingLoader{}
	s := New(loader, Config{Interval: time.Hour, Views: []string{"overview", "pca"}, Timeout: time.Second}, nil)

	require.NoError(t, s.RunNow(context.Background()))
	require.Equal(t, 1, loader.count())
	assert.Equal(t, []string{"overview", "pca"}, loader.calls[0])
	assert.Equal(t, views.LoadOptions{Force: true, Trigger: views.TriggerScheduler}, loader.opts[0])

	loader.err = errors.New("pca: backend down")
	assert.Error(t, s.RunNow(context.Background()))
	assert.Equal(t, uint64(2), s.Runs())
	assert.Equal(t, uint64(1), s.Failures())
}

func TestScheduler_Ticks(t *testing.T) {
	loader := &recordingLoader{}
	s := New(loader, Config{Interval: 20 * time.Millisecond, Views: []string{"overview"}}, nil)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Error(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return loader.count() >= 2 }, 3*time.Second, 10*time.Millisecond)
}
