// Package notify delivers best-effort notifications. Every sink logs and
// swallows its own failures; a broken notifier must never fail the payment
// or friend flow that triggered it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"

	"github.com/triptab/triptab/internal/models"
)

// Notifier delivers a notification to one sink.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

// Recorder is the subset of the store a StoreNotifier needs.
type Recorder interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// StoreNotifier persists notifications so users can list them later.
type StoreNotifier struct {
	store  Recorder
	logger *slog.Logger
}

func NewStoreNotifier(store Recorder, logger *slog.Logger) *StoreNotifier {
	return &StoreNotifier{store: store, logger: logger}
}

func (s *StoreNotifier) Notify(ctx context.Context, n *models.Notification) {
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Error("failed to record notification",
			"user_id", n.UserID, "kind", n.Kind, "error", err)
	}
}

// TelegramNotifier pushes every notification to a single ops chat. It is
// meant for operators watching settlement activity, not for end users.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *TelegramNotifier) Notify(_ context.Context, n *models.Notification) {
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("[%s] %s", n.Kind, n.Message))
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("failed to push telegram notification",
			"kind", n.Kind, "error", err)
	}
}

// Fanout sends each notification to every configured sink.
type Fanout struct {
	sinks []Notifier
}

func NewFanout(sinks ...Notifier) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Notify(ctx context.Context, n *models.Notification) {
	for _, s := range f.sinks {
		s.Notify(ctx, n)
	}
}

// New builds a notification with a fresh ID and timestamp.
func New(userID string, kind models.NotificationKind, message, refID string) *models.Notification {
	return &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		RefID:     refID,
		CreatedAt: time.Now().Unix(),
	}
}
