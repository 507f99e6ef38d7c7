package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notiftypes "github.com/episodic/episodic/internal/notification/types"
	"github.com/episodic/episodic/internal/orchestrator"
	"github.com/episodic/episodic/internal/subscription"
	"github.com/episodic/episodic/internal/testutil"
)

type stubEnqueuer struct {
	outcomes        map[int64]orchestrator.EnqueueOutcome
	fail            map[int64]bool
	failSubscribers map[string]bool
	requests        []orchestrator.Request
}

func (s *stubEnqueuer) Enqueue(_ context.Context, req orchestrator.Request) (orchestrator.EnqueueResult, error) {
	s.requests = append(s.requests, req)
	if s.fail[req.TorrentID] || s.failSubscribers[req.Subscriber] {
		return orchestrator.EnqueueResult{}, errors.New("client unavailable")
	}
	return orchestrator.EnqueueResult{Outcome: s.outcomes[req.TorrentID]}, nil
}

type stubAnnouncer struct {
	events []notiftypes.ReadyEvent
}

func (s *stubAnnouncer) NotifyReady(_ context.Context, ev notiftypes.ReadyEvent) error {
	s.events = append(s.events, ev)
	return nil
}

type failingSubscriptions struct {
	err error
}

func (f *failingSubscriptions) All(context.Context) ([]subscription.Subscription, error) {
	return nil, f.err
}

type syncHarness struct {
	sync      *SyncService
	store     *Store
	subs      *subscription.Service
	enqueuer  *stubEnqueuer
	announcer *stubAnnouncer
	client    *Client
	logger    zerolog.Logger
	baseURL   string
}

func newSyncHarness(t *testing.T) *syncHarness {
	t.Helper()
	server, _ := newFeedServer(t)
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	h := &syncHarness{
		store:     NewStore(tdb.Conn),
		subs:      subscription.NewService(tdb.Conn, tdb.Logger),
		enqueuer: &stubEnqueuer{
			outcomes:        map[int64]orchestrator.EnqueueOutcome{},
			fail:            map[int64]bool{},
			failSubscribers: map[string]bool{},
		},
		announcer: &stubAnnouncer{},
		baseURL:   server.URL,
	}
	client := NewClient(server.URL, nil, zerolog.Nop())
	h.client = client
	h.logger = tdb.Logger
	h.sync = NewSyncService(client, h.store, h.subs, h.enqueuer, h.announcer, tdb.Logger)
	return h
}

func TestSyncService_QueuesMatches(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "group_1", []string{"GIRLS", "BAND", "CRY"}))
	require.NoError(t, h.subs.Add(ctx, "private_2", []string{"no", "match"}))

	result, err := h.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 2, New: 2, Pending: 2, Matched: 1, Queued: 1}, result)

	require.Len(t, h.enqueuer.requests, 1)
	req := h.enqueuer.requests[0]
	assert.Equal(t, "group_1", req.Subscriber)
	assert.Equal(t, int64(302390), req.TorrentID)
	assert.Equal(t, h.baseURL+"/t/302390.torrent", req.TorrentURL)
	assert.Equal(t, "GIRLS BAND CRY", req.Folder)

	stored, err := h.store.Get(ctx, 302389)
	require.NoError(t, err)
	assert.Equal(t, "https://acgrip.art/t/302389.torrent", stored.TorrentURL)
}

func TestSyncService_OnlyNewReleases(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "group_1", []string{"GIRLS"}))

	_, err := h.sync.Sync(ctx)
	require.NoError(t, err)

	result, err := h.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.New)
	assert.Equal(t, 0, result.Pending)
	assert.Len(t, h.enqueuer.requests, 1)
}

func TestSyncService_AlreadyAvailableNotifies(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "private_9", []string{"夜晚的水母不会游泳"}))
	h.enqueuer.outcomes[302389] = orchestrator.AlreadyAvailable

	result, err := h.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Queued)

	require.Len(t, h.announcer.events, 1)
	assert.Equal(t, "private_9", h.announcer.events[0].Subscriber)
	assert.Equal(t, int64(302389), h.announcer.events[0].TorrentID)
}

func TestSyncService_FailureDoesNotStopOthers(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "group_1", []string{"GIRLS"}))
	require.NoError(t, h.subs.Add(ctx, "group_2", []string{"GIRLS"}))
	h.enqueuer.fail[302390] = true

	result, err := h.sync.Sync(ctx)
	assert.Error(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Len(t, h.enqueuer.requests, 2)
}

func TestSyncService_RetriesFailedEnqueue(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "group_1", []string{"GIRLS"}))
	h.enqueuer.fail[302390] = true

	_, err := h.sync.Sync(ctx)
	require.Error(t, err)

	stored, err := h.store.Get(ctx, 302390)
	require.NoError(t, err)
	assert.False(t, stored.Synced)

	delete(h.enqueuer.fail, 302390)
	result, err := h.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Fetched: 2, New: 0, Pending: 1, Matched: 1, Queued: 1}, result)
	require.Len(t, h.enqueuer.requests, 2)
	assert.Equal(t, int64(302390), h.enqueuer.requests[1].TorrentID)

	stored, err = h.store.Get(ctx, 302390)
	require.NoError(t, err)
	assert.True(t, stored.Synced)

	result, err = h.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Pending)
	assert.Len(t, h.enqueuer.requests, 2)
}

func TestSyncService_RetryOnlyFailedSubscribers(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "group_1", []string{"GIRLS"}))
	require.NoError(t, h.subs.Add(ctx, "group_2", []string{"GIRLS"}))
	h.enqueuer.failSubscribers["group_2"] = true

	_, err := h.sync.Sync(ctx)
	require.Error(t, err)
	require.Len(t, h.enqueuer.requests, 2)

	delete(h.enqueuer.failSubscribers, "group_2")
	result, err := h.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	require.Len(t, h.enqueuer.requests, 3)
	assert.Equal(t, "group_2", h.enqueuer.requests[2].Subscriber)
}

func TestSyncService_SubscriptionsErrorKeepsPending(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "group_1", []string{"GIRLS"}))

	broken := NewSyncService(h.client, h.store, &failingSubscriptions{err: errors.New("database is locked")}, h.enqueuer, h.announcer, h.logger)
	_, err := broken.Sync(ctx)
	require.Error(t, err)
	assert.Empty(t, h.enqueuer.requests)

	result, err := h.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pending)
	assert.Equal(t, 1, result.Queued)
}

func TestSyncService_AvailableNotifiedOnce(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()
	require.NoError(t, h.subs.Add(ctx, "private_9", []string{"水母"}))
	h.enqueuer.outcomes[302389] = orchestrator.AlreadyAvailable

	_, err := h.sync.Sync(ctx)
	require.NoError(t, err)
	_, err = h.sync.Sync(ctx)
	require.NoError(t, err)

	assert.Len(t, h.announcer.events, 1)
}
