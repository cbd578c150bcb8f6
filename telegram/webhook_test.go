package telegram

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"coin-tycoon/models"
	"coin-tycoon/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestParseStartCommand(t *testing.T) {
	tests := []struct {
		text      string
		wantToken string
		wantOK    bool
	}{
		{text: "/start", wantToken: "", wantOK: true},
		{text: "/start alice-3f2a91c4", wantToken: "alice-3f2a91c4", wantOK: true},
		{text: "  /start   alice-3f2a91c4  ", wantToken: "alice-3f2a91c4", wantOK: true},
		{text: "/start@CoinTycoonBot alice-3f2a91c4", wantToken: "alice-3f2a91c4", wantOK: true},
		{text: "/help", wantToken: "", wantOK: false},
		{text: "hello there", wantToken: "", wantOK: false},
		{text: "", wantToken: "", wantOK: false},
		{text: "/started nope", wantToken: "", wantOK: false},
	}
	for _, tc := range tests {
		token, ok := ParseStartCommand(tc.text)
		if token != tc.wantToken || ok != tc.wantOK {
			t.Fatalf("ParseStartCommand(%q) = (%q, %v), want (%q, %v)",
				tc.text, token, ok, tc.wantToken, tc.wantOK)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName(&From{ID: 7, Username: "bob", FirstName: "Robert"}); got != "bob" {
		t.Fatalf("got %q want username", got)
	}
	if got := displayName(&From{ID: 7, FirstName: "Robert"}); got != "Robert" {
		t.Fatalf("got %q want first name", got)
	}
	if got := displayName(&From{ID: 7}); got != "player-7" {
		t.Fatalf("got %q want id fallback", got)
	}
}

// recorderBot captures acknowledgements instead of calling the Bot API.
type recorderBot struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorderBot) SendMessage(_ context.Context, _ int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

func (r *recorderBot) last(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		t.Fatalf("no acknowledgement sent")
	}
	return r.messages[len(r.messages)-1]
}

func newWebhookApp(t *testing.T) (*fiber.App, *gorm.DB, *recorderBot) {
	t.Helper()
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "hunter2")

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{}, &models.Referral{}, &models.Transaction{},
		&models.UserBusiness{}, &models.BusinessStat{}, &models.LeaderboardSnapshot{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	referrals := &services.ReferralService{DB: db, Bonus: 100, StartingGrant: 100}
	users := &services.UserService{DB: db, Referrals: referrals, StartingGrant: 100, MineCooldown: time.Hour}

	bot := &recorderBot{}
	app := fiber.New()
	SetupWebhookRoutes(app, &WebhookHandler{Users: users, Bot: bot})
	return app, db, bot
}

func postUpdate(t *testing.T, app *fiber.App, secret string, fromID int64, username, text string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"update_id":1,"message":{"message_id":10,"from":{"id":%d,"username":%q},"chat":{"id":%d},"text":%q}}`,
		fromID, username, fromID, text)
	req, err := http.NewRequest("POST", "/telegram/webhook", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	return resp
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	app, _, _ := newWebhookApp(t)

	resp := postUpdate(t, app, "", 1001, "alice", "/start")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", resp.StatusCode)
	}
	resp = postUpdate(t, app, "wrong", 1001, "alice", "/start")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", resp.StatusCode)
	}
}

func TestWebhookStartBootstrapsUser(t *testing.T) {
	app, db, bot := newWebhookApp(t)

	resp := postUpdate(t, app, "hunter2", 1001, "alice", "/start")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d want 200", resp.StatusCode)
	}

	var user models.User
	if err := db.First(&user, "id = ?", "1001").Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.Balance != 100 {
		t.Fatalf("starting grant: got %d want 100", user.Balance)
	}
	if !strings.Contains(bot.last(t), user.ReferralCode) {
		t.Fatalf("acknowledgement missing invite code: %q", bot.last(t))
	}
}

func TestWebhookStartWithReferralTokenClaimsOnce(t *testing.T) {
	app, db, _ := newWebhookApp(t)

	// Referrer signs up first and shares the code from their account.
	postUpdate(t, app, "hunter2", 1001, "alice", "/start")
	var referrer models.User
	if err := db.First(&referrer, "id = ?", "1001").Error; err != nil {
		t.Fatalf("load referrer: %v", err)
	}

	// New user joins through the deep-link; the referrer gets the bonus.
	resp := postUpdate(t, app, "hunter2", 1002, "bob", "/start "+referrer.ReferralCode)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d want 200", resp.StatusCode)
	}

	if err := db.First(&referrer, "id = ?", "1001").Error; err != nil {
		t.Fatalf("reload referrer: %v", err)
	}
	if referrer.Balance != 200 || referrer.ReferralCount != 1 {
		t.Fatalf("referrer not credited: balance=%d count=%d", referrer.Balance, referrer.ReferralCount)
	}

	// The platform redelivers the update; state must not change again.
	postUpdate(t, app, "hunter2", 1002, "bob", "/start "+referrer.ReferralCode)
	if err := db.First(&referrer, "id = ?", "1001").Error; err != nil {
		t.Fatalf("reload referrer: %v", err)
	}
	if referrer.Balance != 200 || referrer.ReferralCount != 1 {
		t.Fatalf("redelivery credited twice: balance=%d count=%d", referrer.Balance, referrer.ReferralCount)
	}
}

func TestWebhookIgnoresNonStartMessages(t *testing.T) {
	app, db, _ := newWebhookApp(t)

	resp := postUpdate(t, app, "hunter2", 1001, "alice", "what is this bot")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d want 200", resp.StatusCode)
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Fatalf("non-start message created a user")
	}
}
