package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"solana-token-trader/internal/httpjson"
)

// DefaultTelegramURL is the Bot API root.
const DefaultTelegramURL = "https://api.telegram.org"

// ProviderTelegram labels Telegram calls in metrics and breaker state.
const ProviderTelegram = "telegram"

// MaxMessageLength is the Bot API limit for a single message.
const MaxMessageLength = 4096

const truncatedSuffix = "...\n\n[Message truncated due to length]"

// ErrNotConfigured is returned when the bot token or chat ID is missing.
var ErrNotConfigured = errors.New("telegram not configured")

// Sender delivers a formatted message.
type Sender interface {
	SendMessage(ctx context.Context, text string) error
}

// NewTelegramHTTP creates the Bot API transport. The token is part of the path.
func NewTelegramHTTP(baseURL, botToken string, opts ...httpjson.Option) *httpjson.Client {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	return httpjson.New(ProviderTelegram, strings.TrimRight(baseURL, "/")+"/bot"+botToken, opts...)
}

// TelegramClient sends Markdown messages to one chat.
type TelegramClient struct {
	http   *httpjson.Client
	chatID string
}

// NewTelegramClient creates a client. A nil transport or empty chat ID yields
// a client whose sends fail with ErrNotConfigured.
func NewTelegramClient(http *httpjson.Client, chatID string) *TelegramClient {
	return &TelegramClient{http: http, chatID: chatID}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage posts text to the configured chat with Markdown parsing.
func (c *TelegramClient) SendMessage(ctx context.Context, text string) error {
	if c == nil || c.http == nil || c.chatID == "" {
		return ErrNotConfigured
	}

	req := sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  Truncate(text),
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	}
	var resp sendMessageResponse
	if err := c.http.Post(ctx, "send_message", "/sendMessage", req, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram API error %d: %s", resp.ErrorCode, resp.Description)
	}
	return nil
}

// Truncate shortens text to fit the Bot API limit.
func Truncate(text string) string {
	if len(text) <= MaxMessageLength {
		return text
	}
	cut := MaxMessageLength - len(truncatedSuffix)
	// Do not split a multi-byte rune.
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + truncatedSuffix
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
