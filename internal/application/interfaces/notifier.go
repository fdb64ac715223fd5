package interfaces

import (
	"context"

	"github.com/NukeThemAII/p2p/internal/domain/entities"
)

type InlineButton struct {
	Text         string
	CallbackData string
}

// MessageSender delivers text with an optional inline keyboard to a
// messaging platform recipient. Fire and forget: send errors are
// loggable but must not fail the caller's state change.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID, text string,
		keyboard [][]InlineButton) error
}

// Notifier decides, per committed transition, whether the user and the
// administrator must be told and with what content.
type Notifier interface {
	OnTransition(ctx context.Context, before *entities.Order,
		newStatus entities.OrderStatus)
}
