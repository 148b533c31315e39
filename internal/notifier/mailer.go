// Package notifier sends the daily vacancy digest.
package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/bot"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/logger"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/utils"
)

const (
	digestHeader = "Ежедневная подборка вакансий для вас:"
	digestEmpty  = "Сегодня не найдено новых вакансий по вашим критериям. " +
		"Рекомендуем проверить настройки поиска с помощью команды /search_settings"

	// DefaultSendInterval keeps the mailer well below the Telegram broadcast limit of 30 messages per second.
	DefaultSendInterval = 50 * time.Millisecond
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type FilterLister interface {
	ListActiveFilters(ctx context.Context) ([]*storage.VacancyFilter, error)
}

type VacancyFinder interface {
	Find(ctx context.Context, filter *storage.VacancyFilter) ([]*storage.Vacancy, error)
}

// Report summarizes one mailing run.
type Report struct {
	RunID  string
	Users  int
	Sent   int
	Empty  int
	Failed int
}

type Mailer struct {
	api     Sender
	filters FilterLister
	finder  VacancyFinder
	limiter *rate.Limiter
	logger  *zap.Logger

	// NewRunID is replaced in tests.
	NewRunID func() string
}

// NewMailer throttles sends to one per interval. DefaultSendInterval is used when interval is not positive.
func NewMailer(api Sender, filters FilterLister, finder VacancyFinder, interval time.Duration, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultSendInterval
	}

	return &Mailer{
		api:      api,
		filters:  filters,
		finder:   finder,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		logger:   log.Named("mailer"),
		NewRunID: func() string { return uuid.NewString() },
	}
}

// SendDaily searches vacancies for every active filter and sends each user one digest.
// A failure for one user is logged and does not stop the run.
func (m *Mailer) SendDaily(ctx context.Context) (Report, error) {
	report := Report{RunID: m.NewRunID()}
	log := m.logger.With(zap.String(logger.FieldRunID, report.RunID))

	filters, err := m.filters.ListActiveFilters(ctx)
	if err != nil {
		return report, fmt.Errorf("listing filters: %w", err)
	}
	report.Users = len(filters)
	log.Info("daily mailing started", zap.Int("users", report.Users))

	for _, f := range filters {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		userLog := log.With(zap.Int64(logger.FieldChatID, f.TelegramID))
		vacancies, err := m.finder.Find(ctx, f)
		if err != nil {
			report.Failed++
			userLog.Error("find vacancies", zap.Error(err))
			continue
		}

		text := digestEmpty
		if len(vacancies) > 0 {
			text = Digest(vacancies)
		}

		if err := m.send(ctx, f.TelegramID, text); err != nil {
			report.Failed++
			userLog.Error("send digest", zap.Error(err))
			continue
		}

		if len(vacancies) == 0 {
			report.Empty++
		} else {
			report.Sent++
		}
		userLog.Debug("digest sent", zap.Int("vacancies", len(vacancies)))
	}

	log.Info("daily mailing finished",
		zap.Int("sent", report.Sent),
		zap.Int("empty", report.Empty),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (m *Mailer) send(ctx context.Context, chatID int64, text string) error {
	for _, part := range utils.SplitMessage(text, bot.MaxMessageLength) {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := m.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return err
		}
	}
	return nil
}

// Digest renders vacancies as one message under the digest header.
func Digest(vacancies []*storage.Vacancy) string {
	cards := make([]string, 0, len(vacancies)+1)
	cards = append(cards, digestHeader)
	for _, v := range vacancies {
		cards = append(cards, bot.FormatVacancy(v))
	}
	return strings.Join(cards, "\n\n")
}
