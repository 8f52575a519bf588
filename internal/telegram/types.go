package telegram

import (
	"context"
	"sync"

	"crypto-advisor/internal/commands"
	"crypto-advisor/internal/poller"
	"crypto-advisor/internal/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
	// ChatID receives push notifications; when zero the last chat that sent a command does
	ChatID int64
}

// Session is the part of the polling controller the bot drives
type Session interface {
	Search(ctx context.Context, query string) error
	Select(ctx context.Context, id, name, symbol string) error
	Suggestions(ctx context.Context, query string) ([]types.Suggestion, error)
	Type(query string)
	ManualAdvice(ctx context.Context, id string) error
	AddAlert(ctx context.Context, assetID string, target float64, condition types.AlertCondition) (types.Alert, error)
	RemoveAlert(ctx context.Context, id string) error
	DismissTriggered(id string)
	Alerts() []types.Alert
	Snapshot() poller.Snapshot
}

// Bot telegram interaction client
type Bot struct {
	Bot     *tgbotapi.BotAPI
	Config  BotConfig
	session Session
	charts  *commands.Charts

	mu     sync.Mutex
	chatID int64
	inline pendingInline
}

// pendingInline is the latest inline query waiting for debounced suggestions
type pendingInline struct {
	id    string
	query string
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
