package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"sndiag/internal/config"
	"sndiag/internal/logger"

	nfy "github.com/nikoksr/notify"
	nfyhttp "github.com/nikoksr/notify/service/http"
	nfyslack "github.com/nikoksr/notify/service/slack"
	nfytg "github.com/nikoksr/notify/service/telegram"
)

// Manager wraps nikoksr/notify.Notify and manages channel lifecycle.
type Manager struct {
	mu           sync.RWMutex
	notifier     *nfy.Notify
	channelNames []string
}

// NewManager creates an empty notification manager.
func NewManager() *Manager {
	return &Manager{
		notifier: nfy.New(),
	}
}

// Reload rebuilds the notification channels from config.
func (m *Manager) Reload(cfg config.NotifyConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Fresh notifier instance drops previously registered services
	n := nfy.New()
	var names []string

	if cfg.WebhookURL != "" {
		whSvc := nfyhttp.New()
		whSvc.AddReceivers(&nfyhttp.Webhook{
			URL:         cfg.WebhookURL,
			Header:      http.Header{"Content-Type": []string{"application/json; charset=utf-8"}},
			ContentType: "application/json; charset=utf-8",
			Method:      "POST",
			BuildPayload: func(subject, message string) (payload any) {
				return fmt.Sprintf(`{"subject":%q,"message":%q}`, subject, message)
			},
		})
		n.UseServices(whSvc)
		names = append(names, "webhook")
	}

	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		slackSvc := nfyslack.New(cfg.SlackToken)
		slackSvc.AddReceivers(strings.TrimSpace(cfg.SlackChannel))
		n.UseServices(slackSvc)
		names = append(names, "slack")
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		tgSvc, err := nfytg.New(cfg.TelegramToken)
		if err == nil {
			if id, err := strconv.ParseInt(strings.TrimSpace(cfg.TelegramChatID), 10, 64); err == nil {
				tgSvc.AddReceivers(id)
				n.UseServices(tgSvc)
				names = append(names, "telegram")
			} else {
				logger.Notify.Warn().Str("chat_id", cfg.TelegramChatID).Msg("invalid Telegram chat ID")
			}
		} else {
			logger.Notify.Warn().Err(err).Msg("Telegram service init failed")
		}
	}

	m.notifier = n
	m.channelNames = names

	logger.Notify.Info().Int("channels", len(names)).Strs("names", names).Msg("notification channels reloaded")
}

// Send dispatches a message to all configured channels.
func (m *Manager) Send(text string) {
	m.mu.RLock()
	n := m.notifier
	m.mu.RUnlock()

	if n == nil {
		return
	}
	if err := n.Send(context.Background(), "SNDiag", text); err != nil {
		logger.Notify.Warn().Err(err).Msg("notification send failed")
	}
}

// SendReportFailure formats and sends an alert for a failed diagnostic report.
func (m *Manager) SendReportFailure(instance string, failed []string) {
	if !m.HasChannels() || len(failed) == 0 {
		return
	}
	text := fmt.Sprintf("⚠️ embeddables diagnostics failed on %s: %s",
		instance, strings.Join(failed, ", "))
	m.Send(text)
}

// HasChannels returns true if at least one channel is configured.
func (m *Manager) HasChannels() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channelNames) > 0
}

// ChannelNames returns the names of all configured channels.
func (m *Manager) ChannelNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]string, len(m.channelNames))
	copy(result, m.channelNames)
	return result
}
