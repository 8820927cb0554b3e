package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vistav/site-api/internal/models"
	"github.com/vistav/site-api/internal/storage"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramConfig is the bot settings document, editable without a restart.
type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
	Enabled  bool   `json:"enabled"`
}

// TelegramNotifier sends each accepted lead as a bot message to the office
// chat. The settings document is re-read on every send so the bot can be
// rotated or switched off at runtime.
type TelegramNotifier struct {
	store   *storage.DocumentStore
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewTelegramNotifier creates a notifier reading its settings from store.
// baseURL overrides the Telegram API endpoint; empty means production.
func NewTelegramNotifier(store *storage.DocumentStore, baseURL string, logger *slog.Logger) *TelegramNotifier {
	if baseURL == "" {
		baseURL = defaultTelegramAPI
	}
	return &TelegramNotifier{
		store:   store,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		logger:  logger,
	}
}

// Channel names this notifier in logs and metrics.
func (n *TelegramNotifier) Channel() string { return "telegram" }

// NotifyLead sends the lead to the configured chat. A missing or disabled
// settings document is a quiet no-op.
func (n *TelegramNotifier) NotifyLead(ctx context.Context, lead models.Lead) error {
	var cfg TelegramConfig
	if err := n.store.Load(&cfg); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load telegram config: %w", err)
	}
	if !cfg.Enabled || cfg.BotToken == "" || cfg.ChatID == "" {
		return nil
	}

	payload := map[string]any{
		"chat_id":                  cfg.ChatID,
		"text":                     telegramMessage(lead),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, snippet)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram rejected the message: %s", result.Description)
	}

	n.logger.Info("lead pushed to telegram", slog.String("lead_id", lead.ID))
	return nil
}

func telegramMessage(lead models.Lead) string {
	var b bytes.Buffer
	b.WriteString("🔔 <b>Nová poptávka z webu</b>\n\n")
	for _, line := range leadSummaryLines(lead) {
		b.WriteString(html.EscapeString(line))
		b.WriteByte('\n')
	}
	return b.String()
}
