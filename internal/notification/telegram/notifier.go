package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/episodic/episodic/internal/notification/types"
)

const defaultAPIBase = "https://api.telegram.org/bot"

// Settings contains Telegram-specific configuration
type Settings struct {
	BotToken string `json:"botToken" mapstructure:"bot_token"`
	// APIBase overrides the Bot API endpoint, e.g. for a local Bot API server.
	APIBase string `json:"apiBase,omitempty" mapstructure:"api_base"`
	TopicID int64  `json:"topicId,omitempty" mapstructure:"topic_id"`
	Silent  bool   `json:"silent,omitempty" mapstructure:"silent"`
	// MessagesPerSecond bounds outbound sends across all chats.
	MessagesPerSecond float64 `json:"messagesPerSecond,omitempty" mapstructure:"messages_per_second"`
}

// Notifier sends notifications via Telegram bot
type Notifier struct {
	name       string
	settings   Settings
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// New creates a new Telegram notifier
func New(name string, settings Settings, httpClient *http.Client, logger zerolog.Logger) *Notifier {
	if settings.APIBase == "" {
		settings.APIBase = defaultAPIBase
	}
	if settings.MessagesPerSecond <= 0 {
		settings.MessagesPerSecond = 20
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Notifier{
		name:       name,
		settings:   settings,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(settings.MessagesPerSecond), 1),
		logger:     logger.With().Str("notifier", "telegram").Str("name", name).Logger(),
	}
}

func (n *Notifier) Type() types.NotifierType {
	return types.NotifierTelegram
}

func (n *Notifier) Name() string {
	return n.name
}

func (n *Notifier) OnReady(ctx context.Context, event types.ReadyEvent) error {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> is ready to watch!", html.EscapeString(event.Title)))
	if event.URL != "" {
		sb.WriteString(fmt.Sprintf("\n\n<a href=\"%s\">%s</a>",
			html.EscapeString(event.URL), html.EscapeString(event.URL)))
	}
	return n.send(ctx, event.Subscriber, sb.String())
}

func (n *Notifier) SendMessage(ctx context.Context, event types.MessageEvent) error {
	return n.send(ctx, event.Subscriber, html.EscapeString(event.Text))
}

func (n *Notifier) send(ctx context.Context, subscriber, text string) error {
	target, err := types.ParseSubscriber(subscriber)
	if err != nil {
		return err
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	return n.sendMessage(ctx, target.ID, text)
}

func (n *Notifier) sendMessage(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("%s%s/sendMessage", n.settings.APIBase, n.settings.BotToken)

	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	if n.settings.Silent {
		payload["disable_notification"] = true
	}

	if n.settings.TopicID > 0 {
		payload["message_thread_id"] = n.settings.TopicID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result struct {
			OK          bool   `json:"ok"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Description != "" {
			return fmt.Errorf("telegram error: %s", result.Description)
		}
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	n.logger.Debug().Str("chatId", chatID).Msg("Message sent")
	return nil
}
