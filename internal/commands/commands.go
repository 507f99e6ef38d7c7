// Package commands implements the chat command surface: subscribe,
// unsubscribe, list subscriptions, search and download. Each command
// takes the raw argument text and returns the reply to show the user.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/feed"
	"github.com/episodic/episodic/internal/orchestrator"
	"github.com/episodic/episodic/internal/subscription"
)

// Replies.
const (
	MsgSubscribed        = "Subscribed!"
	MsgAlreadySubscribed = "You are already subscribed to these tags!"
	MsgUnsubscribed      = "Unsubscribed!"
	MsgNotSubscribed     = "You are not subscribed to these tags!"
	MsgNoSubscriptions   = "You have not subscribed to any tags!"
	MsgNeedTags          = "Please provide tags!"
	MsgNeedKeywords      = "Please provide search keywords!"
	MsgNothingFound      = "No matching releases found!"
	MsgNeedID            = "Please provide a release ID!"
	MsgInvalidID         = "Please provide a valid release ID!"
	MsgUnknownRelease    = "Release not found, use search to get a release ID."
	MsgAlreadyQueued     = "This release is already in the download queue."
)

// Subscriptions manages subscriber tag sets.
type Subscriptions interface {
	Add(ctx context.Context, subscriber string, tags []string) error
	Remove(ctx context.Context, subscriber string, tags []string) error
	List(ctx context.Context, subscriber string) ([]subscription.Subscription, error)
}

// Searcher queries the release feed.
type Searcher interface {
	Search(ctx context.Context, terms []string) ([]feed.Release, error)
	BaseURL() string
}

// Releases remembers releases by ID.
type Releases interface {
	Remember(ctx context.Context, r feed.Release, torrentURL string) (bool, error)
	Get(ctx context.Context, id int64) (*feed.StoredRelease, error)
}

// Enqueuer submits a release for a subscriber.
type Enqueuer interface {
	Enqueue(ctx context.Context, req orchestrator.Request) (orchestrator.EnqueueResult, error)
}

// Mounted reports which releases are already watchable.
type Mounted interface {
	Has(id int64) bool
}

// Links builds playback page URLs.
type Links interface {
	PageURL(id int64) string
}

// Handler executes commands on behalf of a subscriber.
type Handler struct {
	subs     Subscriptions
	searcher Searcher
	releases Releases
	enqueuer Enqueuer
	mounted  Mounted
	links    Links
	logger   zerolog.Logger
}

// NewHandler creates a command handler.
func NewHandler(subs Subscriptions, searcher Searcher, releases Releases, enqueuer Enqueuer, mounted Mounted, links Links, logger zerolog.Logger) *Handler {
	return &Handler{
		subs:     subs,
		searcher: searcher,
		releases: releases,
		enqueuer: enqueuer,
		mounted:  mounted,
		links:    links,
		logger:   logger.With().Str("component", "commands").Logger(),
	}
}

// Sub subscribes to the space separated tags in args.
func (h *Handler) Sub(ctx context.Context, subscriber, args string) (string, error) {
	tags := subscription.ParseTags(args)
	if len(tags) == 0 {
		return MsgNeedTags, nil
	}

	err := h.subs.Add(ctx, subscriber, tags)
	switch {
	case err == nil:
		return MsgSubscribed, nil
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		return MsgAlreadySubscribed, nil
	default:
		return "", err
	}
}

// Unsub removes the subscription to exactly the tags in args.
func (h *Handler) Unsub(ctx context.Context, subscriber, args string) (string, error) {
	tags := subscription.ParseTags(args)
	if len(tags) == 0 {
		return MsgNeedTags, nil
	}

	existing, err := h.subs.List(ctx, subscriber)
	if err != nil {
		return "", err
	}
	if len(existing) == 0 {
		return MsgNoSubscriptions, nil
	}

	err = h.subs.Remove(ctx, subscriber, tags)
	switch {
	case err == nil:
		return MsgUnsubscribed, nil
	case errors.Is(err, subscription.ErrNotSubscribed):
		return MsgNotSubscribed, nil
	default:
		return "", err
	}
}

// ListSub lists the subscriber's tag sets, numbered from 1.
func (h *Handler) ListSub(ctx context.Context, subscriber string) (string, error) {
	subs, err := h.subs.List(ctx, subscriber)
	if err != nil {
		return "", err
	}
	if len(subs) == 0 {
		return MsgNoSubscriptions, nil
	}

	var b strings.Builder
	b.WriteString("Your subscribed tags:")
	for i, sub := range subs {
		fmt.Fprintf(&b, "\n%d. %s", i+1, strings.Join(sub.Tags, " "))
	}
	return b.String(), nil
}

// Search lists releases matching the keywords in args as "<id>. <title>"
// lines and remembers them so they can be downloaded by ID.
func (h *Handler) Search(ctx context.Context, args string) (string, error) {
	terms := subscription.ParseTags(args)
	if len(terms) == 0 {
		return MsgNeedKeywords, nil
	}

	releases, err := h.searcher.Search(ctx, terms)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if len(releases) == 0 {
		return MsgNothingFound, nil
	}

	lines := make([]string, 0, len(releases))
	for _, r := range releases {
		if _, err := h.releases.Remember(ctx, r, r.TorrentURL(h.searcher.BaseURL())); err != nil {
			h.logger.Warn().Err(err).Int64("releaseId", r.ID).Msg("Failed to remember search result")
		}
		lines = append(lines, fmt.Sprintf("%d. %s", r.ID, r.Title))
	}
	return strings.Join(lines, "\n"), nil
}

// Download queues the release whose ID is args for the subscriber.
func (h *Handler) Download(ctx context.Context, subscriber, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return MsgNeedID, nil
	}
	if len(fields) != 1 {
		return MsgInvalidID, nil
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return MsgInvalidID, nil
	}

	release, err := h.releases.Get(ctx, id)
	if errors.Is(err, feed.ErrReleaseNotFound) {
		return MsgUnknownRelease, nil
	}
	if err != nil {
		return "", err
	}

	if h.mounted.Has(id) {
		return availableText(release.Title, h.links.PageURL(id)), nil
	}

	res, err := h.enqueuer.Enqueue(ctx, orchestrator.Request{
		Subscriber: subscriber,
		TorrentID:  id,
		Title:      release.Title,
		TorrentURL: release.TorrentURL,
		Folder:     subscription.FolderName(subscription.ExtractTags(release.Title)),
	})
	if err != nil {
		h.logger.Warn().Err(err).Int64("releaseId", id).Str("subscriber", subscriber).Msg("Download failed")
		return "Download failed! Please try again later.\n" + err.Error(), nil
	}

	switch res.Outcome {
	case orchestrator.AlreadyAvailable:
		return availableText(release.Title, h.links.PageURL(id)), nil
	case orchestrator.AlreadySubmitted:
		return MsgAlreadyQueued, nil
	default:
		return "Started downloading " + release.Title + "...", nil
	}
}

func availableText(title, url string) string {
	return title + " already exists!\n" + url
}
