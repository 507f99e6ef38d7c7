// Package types contains shared type definitions for notification packages.
package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotifierType identifies a notification provider
type NotifierType string

const (
	NotifierTelegram NotifierType = "telegram"
	NotifierLog      NotifierType = "log"
	NotifierMock     NotifierType = "mock"
)

// ErrInvalidSubscriber is returned for subscriber identities that do not
// name a chat.
var ErrInvalidSubscriber = errors.New("invalid subscriber identity")

// Notifier is the interface all notification providers must implement
type Notifier interface {
	Type() NotifierType
	Name() string

	OnReady(ctx context.Context, event ReadyEvent) error
	SendMessage(ctx context.Context, event MessageEvent) error
}

// ReadyEvent announces that a release can be watched.
type ReadyEvent struct {
	Title      string `json:"title"`
	TorrentID  int64  `json:"torrentId"`
	Subscriber string `json:"subscriber"`
	URL        string `json:"url"`
}

// MessageEvent is a free-form message to one subscriber.
type MessageEvent struct {
	Subscriber string `json:"subscriber"`
	Text       string `json:"text"`
}

// ChatKind distinguishes group chats from private chats.
type ChatKind string

const (
	ChatGroup   ChatKind = "group"
	ChatPrivate ChatKind = "private"
)

// Target is a parsed subscriber identity.
type Target struct {
	Kind ChatKind
	ID   string
}

// String returns the identity in kind_id form.
func (t Target) String() string {
	return string(t.Kind) + "_" + t.ID
}

// ParseSubscriber splits a group_<id> or private_<id> identity.
func ParseSubscriber(subscriber string) (Target, error) {
	kind, id, ok := strings.Cut(subscriber, "_")
	if !ok || id == "" {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidSubscriber, subscriber)
	}
	switch ChatKind(kind) {
	case ChatGroup, ChatPrivate:
		return Target{Kind: ChatKind(kind), ID: id}, nil
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidSubscriber, subscriber)
	}
}

// ReadyText renders the plain-text body of a ready notification.
func ReadyText(event ReadyEvent) string {
	if event.URL == "" {
		return event.Title + " is ready to watch!"
	}
	return event.Title + " is ready to watch!\n" + event.URL
}
