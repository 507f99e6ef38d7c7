package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/episodic/episodic/internal/orchestrator"
	"github.com/episodic/episodic/internal/scheduler"
)

type stubRunner struct {
	calls atomic.Int32
	err   error
}

func (s *stubRunner) RunPass(context.Context) (*orchestrator.PassResult, error) {
	s.calls.Add(1)
	return nil, s.err
}

type stubSyncer struct {
	calls atomic.Int32
}

func (s *stubSyncer) Run(context.Context) error {
	s.calls.Add(1)
	return nil
}

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	sched, err := scheduler.New(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sched.Stop() })
	return sched
}

func waitForRun(t *testing.T, sched *scheduler.Scheduler, id string) *scheduler.TaskInfo {
	t.Helper()
	require.Eventually(t, func() bool {
		info, err := sched.GetTask(id)
		return err == nil && info.LastRun != nil && !info.Running
	}, 5*time.Second, 10*time.Millisecond)
	info, _ := sched.GetTask(id)
	return info
}

func TestRegisterTaskPollTask(t *testing.T) {
	sched := newScheduler(t)
	runner := &stubRunner{err: orchestrator.ErrPassInProgress}

	require.NoError(t, RegisterTaskPollTask(sched, runner, 0))
	info, err := sched.GetTask("task-poll")
	require.NoError(t, err)
	assert.Equal(t, "@every 1m0s", info.Schedule)

	require.NoError(t, sched.Start())
	require.NoError(t, sched.RunNow("task-poll"))

	info = waitForRun(t, sched, "task-poll")
	assert.Empty(t, info.LastError, "an overlapping pass is not a failure")
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestRegisterFeedSyncTask_RunsOnStart(t *testing.T) {
	sched := newScheduler(t)
	syncer := &stubSyncer{}

	require.NoError(t, RegisterFeedSyncTask(sched, syncer, 15*time.Minute))
	require.NoError(t, sched.Start())

	info := waitForRun(t, sched, "feed-sync")
	assert.Equal(t, "@every 15m0s", info.Schedule)
	assert.Equal(t, int32(1), syncer.calls.Load())
}
