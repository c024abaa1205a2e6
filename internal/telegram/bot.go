package telegram

import (
	"net/http"

	json "github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

// NewBot connects to Telegram, points the webhook at webhookURL and wires the
// command handlers.
func NewBot(token, webhookURL string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	// set webhook
	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := api.Request(webhook); err != nil {
		return nil, err
	}
	log.Info().Str("url", webhookURL).Str("bot", api.Self.UserName).Msg("telegram: webhook set")

	return &Bot{api: api, h: NewHandlers(api, deps)}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", 400)
		return
	}
	if update.Message == nil {
		log.Debug().Int("update_id", update.UpdateID).Msg("webhook: non-message update received")
		w.WriteHeader(http.StatusOK)
		return
	}
	ev := log.Debug().Int64("chat_id", update.Message.Chat.ID).Str("text", update.Message.Text)
	if update.Message.From != nil {
		ev = ev.Int64("from", update.Message.From.ID)
	}
	ev.Msg("webhook: message")
	go b.h.HandleMessage(update.Message)
	w.WriteHeader(http.StatusOK)
}
