package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"PeakHour/internal/logger"
)

const defaultAPIBase = "https://api.telegram.org"

// InlineButton is a single inline keyboard button.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboard is a grid of inline buttons.
type InlineKeyboard struct {
	Rows [][]InlineButton `json:"inline_keyboard"`
}

// KeyboardRows lays buttons out in rows of at most perRow.
func KeyboardRows(buttons []InlineButton, perRow int) *InlineKeyboard {
	kb := &InlineKeyboard{}
	for i := 0; i < len(buttons); i += perRow {
		end := i + perRow
		if end > len(buttons) {
			end = len(buttons)
		}
		kb.Rows = append(kb.Rows, buttons[i:end])
	}
	return kb
}

// TelegramClient talks to the Telegram Bot API.
type TelegramClient struct {
	BotToken string
	APIBase  string
	Client   *http.Client
	Log      *logger.Logger
}

// NewTelegramClient creates a client with optional proxy support.
func NewTelegramClient(botToken, proxyURL string, log *logger.Logger) *TelegramClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramClient{
		BotToken: botToken,
		APIBase:  defaultAPIBase,
		Client: &http.Client{
			Timeout:   35 * time.Second,
			Transport: transport,
		},
		Log: log,
	}
}

func (t *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// call posts payload to a Bot API method and decodes the result into out when non-nil.
func (t *TelegramClient) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: %s status %d, body: %s", method, resp.StatusCode, string(respBody))
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram API error: %s: %s", method, envelope.Description)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

type sendMessageRequest struct {
	ChatID      int64           `json:"chat_id"`
	MessageID   int             `json:"message_id,omitempty"`
	Text        string          `json:"text"`
	ReplyMarkup *InlineKeyboard `json:"reply_markup,omitempty"`
}

// Send sends a plain text message, optionally with an inline keyboard.
func (t *TelegramClient) Send(ctx context.Context, chatID int64, text string, kb *InlineKeyboard) error {
	return t.call(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Text: text, ReplyMarkup: kb}, nil)
}

// Edit replaces the text and keyboard of a previously sent message.
func (t *TelegramClient) Edit(ctx context.Context, chatID int64, messageID int, text string, kb *InlineKeyboard) error {
	return t.call(ctx, "editMessageText", sendMessageRequest{ChatID: chatID, MessageID: messageID, Text: text, ReplyMarkup: kb}, nil)
}

// AnswerCallback acknowledges a callback query so the client stops its spinner.
func (t *TelegramClient) AnswerCallback(ctx context.Context, callbackID string) error {
	return t.call(ctx, "answerCallbackQuery", map[string]string{"callback_query_id": callbackID}, nil)
}
