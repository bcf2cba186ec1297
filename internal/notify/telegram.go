package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/metrics"
	"github.com/Spok95/bqs/internal/models"
	"github.com/Spok95/bqs/internal/observability"
	"github.com/Spok95/bqs/internal/rubric"
)

// Sender: то, что нужно от *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram шлёт уведомления в личные чаты пользователей с привязанным telegram_id.
// Доставка best-effort: ошибки считаются в метрике и не возвращаются.
type Telegram struct {
	bot Sender
	log *zap.Logger
}

func NewTelegram(bot Sender, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{bot: bot, log: log}
}

// Dial поднимает клиента бота по токену.
func Dial(token string, log *zap.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewTelegram(bot, log), nil
}

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "504", "timeout"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func (t *Telegram) send(u models.User, text string) {
	if u.TelegramID == nil || *u.TelegramID == 0 {
		return
	}
	_, err := t.bot.Send(tgbotapi.NewMessage(*u.TelegramID, text))
	if err == nil {
		return
	}
	metrics.NotifyErrors.Inc()
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	t.log.Warn("telegram send failed", zap.String("user_id", u.ID), zap.Error(err))
}

func title(o models.Opportunity) string {
	if o.Number != "" {
		return fmt.Sprintf("%s %s (%s)", o.Number, o.Name, o.Customer)
	}
	return fmt.Sprintf("%s (%s)", o.Name, o.Customer)
}

// FastTrack: PH/SH узнают, что решение за GH.
func (t *Telegram) FastTrack(_ context.Context, o models.Opportunity, overall int, recipients []models.User) {
	text := fmt.Sprintf("Fast-track: %s scored %d (%.1f/5). Global Head approval alone will finalise it; no action is needed from you.",
		title(o), overall, rubric.FivePoint(overall))
	for _, u := range recipients {
		t.send(u, text)
	}
}

// Assigned: новому держателю слота.
func (t *Telegram) Assigned(_ context.Context, o models.Opportunity, role models.Role, assignee models.User) {
	t.send(assignee, fmt.Sprintf("You were assigned as %s on %s.", role, title(o)))
}
