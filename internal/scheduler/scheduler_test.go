package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/connector/internal/pipeline"
	"github.com/openctemio/connector/pkg/logger"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{spec: "0 */6 * * *"},
		{spec: "@hourly"},
		{spec: "30 2 * * 1-5"},
		{spec: "* * * * * *", wantErr: true},
		{spec: "every day", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := ParseSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("bogus", nil, logger.NewNop())
	require.Error(t, err)
}

func TestRunNow_RecordsStatus(t *testing.T) {
	fail := false
	s, err := New("@hourly", func(context.Context) (*pipeline.Result, error) {
		if fail {
			return &pipeline.Result{State: pipeline.StateFailed}, errors.New("Unable to retrieve data from API, please check credentials")
		}
		return &pipeline.Result{State: pipeline.StateDone}, nil
	}, logger.NewNop())
	require.NoError(t, err)

	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	st := s.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, pipeline.StateDone, st.LastState)
	assert.Empty(t, st.LastError)
	assert.False(t, st.Running)

	fail = true
	_, err = s.RunNow(context.Background())
	require.Error(t, err)
	st = s.Status()
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, pipeline.StateFailed, st.LastState)
	assert.Equal(t, "Unable to retrieve data from API, please check credentials", st.LastError)

	fail = false
	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Status().LastError, "a successful run clears the error")
}

func TestRunNow_SkipsOverlappingRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32

	s, err := New("@hourly", func(context.Context) (*pipeline.Result, error) {
		calls.Add(1)
		close(started)
		<-release
		return &pipeline.Result{State: pipeline.StateDone}, nil
	}, logger.NewNop())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = s.RunNow(context.Background())
		close(done)
	}()
	<-started

	result, err := s.RunNow(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.True(t, s.Status().Running)

	close(release)
	<-done
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, s.Status().Runs)
}

func TestStartStop(t *testing.T) {
	s, err := New("@hourly", func(context.Context) (*pipeline.Result, error) {
		return &pipeline.Result{State: pipeline.StateDone}, nil
	}, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Status().NextRunAt.After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestStop_WaitsForAsyncRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	s, err := New("@hourly", func(context.Context) (*pipeline.Result, error) {
		close(started)
		<-release
		finished.Store(true)
		return &pipeline.Result{State: pipeline.StateDone}, nil
	}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	s.RunAsync(context.Background())
	<-started

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- s.Stop(ctx)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while the initial run was still in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.True(t, finished.Load())
	assert.Equal(t, 1, s.Status().Runs)
}

func TestStop_TimesOutOnStuckAsyncRun(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	s, err := New("@hourly", func(context.Context) (*pipeline.Result, error) {
		<-release
		return nil, nil
	}, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	s.RunAsync(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = s.Stop(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
