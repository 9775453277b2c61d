// Package telegram is the ops notifier: a small bot that pings the admin
// chat when users are waiting and no therapist is online, so someone can
// rally a counselor. It never touches conversation content.
package telegram

import (
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// alertCooldown keeps the notifier from flooding the admin chat while a user
// sits in the queue.
const alertCooldown = 5 * time.Minute

// Notifier implements chathub.WaitAlerter over the Telegram Bot API.
type Notifier struct {
	BotAPI      *tgbotapi.BotAPI
	AdminChatID int64

	mu        sync.Mutex
	lastAlert time.Time
}

func NewNotifier(token string, adminChatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("Ops notifier authorized on account %s", bot.Self.UserName)

	return &Notifier{BotAPI: bot, AdminChatID: adminChatID}, nil
}

// NotifyWaiting reports that waitingCount users are queued with no therapist
// available. Rate limited; safe to call from any goroutine.
func (n *Notifier) NotifyWaiting(waitingCount int) {
	n.mu.Lock()
	if time.Since(n.lastAlert) < alertCooldown {
		n.mu.Unlock()
		return
	}
	n.lastAlert = time.Now()
	n.mu.Unlock()

	text := fmt.Sprintf("%d user(s) waiting for a therapist and nobody is online.", waitingCount)
	msg := tgbotapi.NewMessage(n.AdminChatID, text)
	if _, err := n.BotAPI.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send ops alert: %v", err)
	}
}
