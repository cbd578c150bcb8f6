package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"coin-tycoon/middleware"
	"coin-tycoon/services"

	"github.com/gofiber/fiber/v2"
)

// Update is the minimal slice of the Bot API update we act on.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *From  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type From struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type WebhookHandler struct {
	Users *services.UserService
	Bot   Notifier
}

func SetupWebhookRoutes(app *fiber.App, h *WebhookHandler) {
	app.Post("/telegram/webhook", middleware.WebhookAuthMiddleware(), h.HandleUpdate)
}

// HandleUpdate processes one webhook delivery. The platform redelivers
// updates it considers unacknowledged, so this endpoint always answers 200:
// duplicate deliveries are made harmless by the referral engine's
// idempotency, not by suppressing retries with error statuses.
func (h *WebhookHandler) HandleUpdate(c *fiber.Ctx) error {
	var update Update
	if err := c.BodyParser(&update); err != nil {
		log.Printf("⚠️  Webhook: unreadable update: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	token, isStart := ParseStartCommand(msg.Text)
	if !isStart {
		return c.SendStatus(fiber.StatusOK)
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	name := displayName(msg.From)

	reply := h.handleStart(userID, name, token)
	h.notify(msg.Chat.ID, reply)
	return c.SendStatus(fiber.StatusOK)
}

// handleStart runs the same protocol as the REST create-or-fetch path; only
// the transport differs.
func (h *WebhookHandler) handleStart(userID, name, token string) string {
	if token == "" {
		user, err := h.Users.CreateOrFetchUser(userID, name, nil)
		if err != nil {
			log.Printf("❌ Webhook: bootstrap failed for %s: %v", userID, err)
			return "Something went wrong, please try again."
		}
		return fmt.Sprintf("Welcome, %s! You start with %d coins. Your invite code: %s",
			user.Username, user.Balance, user.ReferralCode)
	}

	referrer, err := h.Users.GetUserByReferralCode(token)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			// Dead invite link; sign the player up without the referral.
			return h.handleStart(userID, name, "")
		}
		log.Printf("❌ Webhook: invite code lookup failed: %v", err)
		return "Something went wrong, please try again."
	}

	user, err := h.Users.CreateOrFetchUser(userID, name, &referrer.ID)
	switch {
	case err == nil:
		return fmt.Sprintf("Welcome, %s! You joined via %s's invite and start with %d coins. Your invite code: %s",
			user.Username, referrer.Username, user.Balance, user.ReferralCode)
	case errors.Is(err, services.ErrSelfReferral):
		return "You can't use your own invite link."
	case errors.Is(err, services.ErrAlreadyClaimed), errors.Is(err, services.ErrReferredExists):
		return "This invite was already used for your account."
	default:
		log.Printf("❌ Webhook: referral claim failed for %s via %s: %v", userID, token, err)
		return "Something went wrong, please try again."
	}
}

func (h *WebhookHandler) notify(chatID int64, text string) {
	if h.Bot == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Bot.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("⚠️  Webhook: failed to send acknowledgement to chat %d: %v", chatID, err)
	}
}

// ParseStartCommand reports whether text is a /start command and returns the
// referral token, if any. "/start@SomeBot abc" counts as "/start abc".
func ParseStartCommand(text string) (token string, ok bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return "", false
	}
	cmd := fields[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	if cmd != "/start" {
		return "", false
	}
	if len(fields) > 1 {
		return fields[1], true
	}
	return "", true
}

func displayName(from *From) string {
	if from.Username != "" {
		return from.Username
	}
	if from.FirstName != "" {
		return from.FirstName
	}
	return "player-" + strconv.FormatInt(from.ID, 10)
}
