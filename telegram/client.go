package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"coin-tycoon/utils"
)

// Notifier delivers claim acknowledgements back to the chat platform.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// BotClient is a thin sendMessage client for the Bot API. Only the one
// method the webhook layer needs; command handling lives elsewhere.
type BotClient struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewBotClient(token string) *BotClient {
	return &BotClient{
		Token:      token,
		BaseURL:    "https://api.telegram.org",
		HTTPClient: utils.HTTPClient,
	}
}

func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.Token)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Bot API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Bot API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
