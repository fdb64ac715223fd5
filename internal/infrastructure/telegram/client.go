package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/NukeThemAII/p2p/internal/application/interfaces"
	"github.com/NukeThemAII/p2p/internal/config"
	"github.com/NukeThemAII/p2p/pkg/logger"
)

// Client sends messages through the Telegram Bot API. Delivery is fire
// and forget: callers treat errors as loggable, never fatal.
type Client struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

func NewClient(cfg *config.Config, logger logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("nil dependency: config")
	}

	return &Client{
		baseURL: fmt.Sprintf("%s/bot%s", cfg.Telegram.APIURL, cfg.Telegram.BotToken),
		client:  &http.Client{Timeout: cfg.Telegram.Timeout},
		logger:  logger,
	}, nil
}

var _ interfaces.MessageSender = (*Client)(nil)

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

// SendMessage delivers text to a chat with an optional inline keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, keyboard [][]interfaces.InlineButton) error {
	req := sendMessageRequest{
		ChatID: chatID,
		Text:   text,
	}

	if len(keyboard) > 0 {
		markup := &replyMarkup{InlineKeyboard: make([][]inlineKeyboardButton, len(keyboard))}
		for i, row := range keyboard {
			buttons := make([]inlineKeyboardButton, len(row))
			for j, b := range row {
				buttons[j] = inlineKeyboardButton{Text: b.Text, CallbackData: b.CallbackData}
			}
			markup.InlineKeyboard[i] = buttons
		}
		req.ReplyMarkup = markup
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal sendMessage request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		resBody, _ := io.ReadAll(res.Body)
		return fmt.Errorf("telegram sendMessage failed [%d]: %s", res.StatusCode, resBody)
	}

	return nil
}
