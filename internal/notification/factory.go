package notification

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/episodic/episodic/internal/notification/mock"
	"github.com/episodic/episodic/internal/notification/telegram"
	"github.com/episodic/episodic/internal/notification/types"
)

// Config selects and configures the notification provider.
type Config struct {
	Type     types.NotifierType `mapstructure:"type"`
	Telegram telegram.Settings  `mapstructure:"telegram"`
}

// Factory creates Notifier instances from Config
type Factory struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFactory creates a new notification factory
func NewFactory(logger zerolog.Logger) *Factory {
	return &Factory{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Create creates a Notifier instance from a Config. An empty type picks
// telegram when a bot token is set and the log notifier otherwise.
func (f *Factory) Create(cfg Config) (types.Notifier, error) {
	kind := cfg.Type
	if kind == "" {
		kind = types.NotifierLog
		if cfg.Telegram.BotToken != "" {
			kind = types.NotifierTelegram
		}
	}

	switch kind {
	case types.NotifierTelegram:
		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("%w: telegram bot token is required", ErrInvalidSettings)
		}
		return telegram.New("telegram", cfg.Telegram, f.httpClient, f.logger), nil
	case types.NotifierLog:
		return NewLogNotifier(f.logger), nil
	case types.NotifierMock:
		return mock.New("mock", f.logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown notifier type %q", ErrInvalidSettings, kind)
	}
}
