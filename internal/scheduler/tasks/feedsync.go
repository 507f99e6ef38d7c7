package tasks

import (
	"context"
	"time"

	"github.com/episodic/episodic/internal/scheduler"
)

// DefaultFeedInterval is used when no feed interval is configured.
const DefaultFeedInterval = 600 * time.Second

// FeedSyncer pulls the release feed once.
type FeedSyncer interface {
	Run(ctx context.Context) error
}

// RegisterFeedSyncTask registers the release feed sync, which also runs
// once at startup.
func RegisterFeedSyncTask(sched *scheduler.Scheduler, syncer FeedSyncer, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFeedInterval
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "feed-sync",
		Name:        "Feed Sync",
		Description: "Fetches new releases and queues those matching subscriptions",
		Interval:    interval,
		RunOnStart:  true,
		Func:        syncer.Run,
	})
}
