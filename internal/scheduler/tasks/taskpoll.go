package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/episodic/episodic/internal/orchestrator"
	"github.com/episodic/episodic/internal/scheduler"
)

// DefaultPollInterval is used when no poll interval is configured.
const DefaultPollInterval = 60 * time.Second

// PassRunner runs one task state-machine pass.
type PassRunner interface {
	RunPass(ctx context.Context) (*orchestrator.PassResult, error)
}

// RegisterTaskPollTask registers the periodic task advancement pass.
func RegisterTaskPollTask(sched *scheduler.Scheduler, runner PassRunner, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "task-poll",
		Name:        "Task Poll",
		Description: "Queries the torrent client and advances download tasks toward notification",
		Interval:    interval,
		Func: func(ctx context.Context) error {
			_, err := runner.RunPass(ctx)
			if errors.Is(err, orchestrator.ErrPassInProgress) {
				return nil
			}
			return err
		},
	})
}
