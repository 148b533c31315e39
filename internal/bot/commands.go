package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/dialog"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/logger"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
)

const (
	minFreshnessDays = 1
	maxFreshnessDays = 30
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	log := logger.WithChat(b.logger, chatID, senderName(msg))
	log.Debug("command", zap.String("command", command))

	if command == "cancel" {
		if b.dialogs.Cancel(chatID) {
			b.send(chatID, textCancelled)
		} else {
			b.send(chatID, textNothingCancel)
		}
		return
	}
	// Any other command abandons the dialog in progress.
	b.dialogs.Cancel(chatID)

	userID := senderID(msg)
	switch command {
	case "start":
		b.cmdStart(ctx, log, chatID, userID)
	case "profile", "my_profile":
		b.cmdProfile(ctx, log, chatID, userID)
	case "search":
		b.startFlow(log, chatID, searchFlow(), "")
	case "search_settings":
		b.cmdSearchSettings(ctx, log, chatID, userID)
	case "find", "vacancies":
		b.cmdFind(ctx, log, chatID, userID)
	case "help":
		b.send(chatID, textHelp)
	case "set_position":
		b.cmdSetFilterText(ctx, log, chatID, userID, args, textSetPositionUsage, textPositionSet,
			func(f *storage.VacancyFilter, v string) { f.DesiredPosition = v })
	case "set_city":
		b.cmdSetFilterText(ctx, log, chatID, userID, args, textSetCityUsage, textCitySet,
			func(f *storage.VacancyFilter, v string) { f.City = v })
	case "set_min_salary":
		b.cmdSetMinSalary(ctx, log, chatID, userID, args)
	case "set_freshness":
		b.cmdSetFreshness(ctx, log, chatID, userID, args)
	case "set_llm_base_url":
		b.cmdSetLLM(ctx, log, chatID, userID, args, textSetBaseURLUsage, fmt.Sprintf(textBaseURLSet, args),
			func(u *storage.User, v string) { u.LLMBaseURL = v })
	case "set_llm_api_key":
		b.cmdSetLLM(ctx, log, chatID, userID, args, textSetAPIKeyUsage, textAPIKeySet,
			func(u *storage.User, v string) { u.LLMAPIKey = v })
		if args != "" {
			// The key should not stay in the chat history.
			if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
				log.Warn("delete api key message", zap.Error(err))
			}
		}
	case "set_llm_model":
		b.cmdSetLLM(ctx, log, chatID, userID, args, textSetModelUsage, fmt.Sprintf(textModelSet, args),
			func(u *storage.User, v string) { u.LLMModel = v })
	default:
		b.send(chatID, fmt.Sprintf(textUnknownCmd, "/"+command))
	}
}

func (b *Bot) startFlow(log *zap.Logger, chatID int64, flow *dialog.Flow, intro string) {
	prompt, err := b.dialogs.Start(chatID, flow)
	if err != nil {
		log.Error("start dialog", zap.String("flow", flow.Name), zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	if intro != "" {
		prompt = intro + " " + prompt
	}
	b.send(chatID, prompt)
}

func (b *Bot) cmdStart(ctx context.Context, log *zap.Logger, chatID, userID int64) {
	u, err := b.user(ctx, userID)
	if err != nil {
		log.Error("load user", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	if u.Registered() {
		b.send(chatID, fmt.Sprintf(textWelcomeBack, u.FullName))
		return
	}
	b.startFlow(log, chatID, registrationFlow(), textWelcome)
}

func (b *Bot) cmdProfile(ctx context.Context, log *zap.Logger, chatID, userID int64) {
	u, err := b.user(ctx, userID)
	if err != nil {
		log.Error("load user", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	if !u.Registered() {
		b.send(chatID, textNoProfile)
		return
	}
	b.send(chatID, formatProfile(u))
}

func (b *Bot) cmdSearchSettings(ctx context.Context, log *zap.Logger, chatID, userID int64) {
	f, err := b.store.GetFilter(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		b.send(chatID, textNoFilter)
		return
	}
	if err != nil {
		log.Error("load filter", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	b.send(chatID, formatFilter(f))
}

func (b *Bot) cmdFind(ctx context.Context, log *zap.Logger, chatID, userID int64) {
	f, err := b.store.GetFilter(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Error("load filter", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	if !f.Active() {
		b.send(chatID, textNoFilter)
		return
	}
	b.search(ctx, log, chatID, f)
}

// search runs the filter against HH.ru and sends one card per vacancy.
func (b *Bot) search(ctx context.Context, log *zap.Logger, chatID int64, f *storage.VacancyFilter) {
	b.send(chatID, textSearching)

	vacancies, err := b.finder.Find(ctx, f)
	if err != nil {
		log.Error("find vacancies", zap.Error(err))
		b.send(chatID, textSearchFailed)
		return
	}
	if len(vacancies) == 0 {
		b.send(chatID, textNothingFound)
		return
	}

	b.send(chatID, fmt.Sprintf(textFound, len(vacancies)))
	for _, v := range vacancies {
		b.sendWithMarkup(chatID, FormatVacancy(v), vacancyKeyboard(v.ExternalID))
	}
	log.Info("vacancies sent", zap.Int("count", len(vacancies)))
}

func (b *Bot) updateFilter(ctx context.Context, log *zap.Logger, chatID, userID int64, done string, update func(*storage.VacancyFilter)) {
	f, err := b.filter(ctx, userID)
	if err != nil {
		log.Error("load filter", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	update(f)
	if err := b.store.SaveFilter(ctx, f); err != nil {
		log.Error("save filter", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	b.send(chatID, done)
}

func (b *Bot) cmdSetFilterText(ctx context.Context, log *zap.Logger, chatID, userID int64, args, usage, done string, set func(*storage.VacancyFilter, string)) {
	if args == "" {
		b.send(chatID, usage)
		return
	}
	b.updateFilter(ctx, log, chatID, userID, fmt.Sprintf(done, args), func(f *storage.VacancyFilter) {
		set(f, args)
	})
}

func (b *Bot) cmdSetMinSalary(ctx context.Context, log *zap.Logger, chatID, userID int64, args string) {
	value, err := parseSalary(args)
	if err != nil {
		b.send(chatID, textSetSalaryUsage)
		return
	}
	salary := salaryPtr(value)

	done := textSalaryReset
	if salary != nil {
		done = fmt.Sprintf(textSalarySet, *salary)
	}
	b.updateFilter(ctx, log, chatID, userID, done, func(f *storage.VacancyFilter) {
		f.MinSalary = salary
	})
}

func (b *Bot) cmdSetFreshness(ctx context.Context, log *zap.Logger, chatID, userID int64, args string) {
	days, err := strconv.Atoi(args)
	if err != nil || days < minFreshnessDays || days > maxFreshnessDays {
		b.send(chatID, textSetFreshnessUsage)
		return
	}
	b.updateFilter(ctx, log, chatID, userID, fmt.Sprintf(textFreshnessSet, days), func(f *storage.VacancyFilter) {
		f.FreshnessDays = days
	})
}

func (b *Bot) cmdSetLLM(ctx context.Context, log *zap.Logger, chatID, userID int64, args, usage, done string, set func(*storage.User, string)) {
	if args == "" {
		b.send(chatID, usage)
		return
	}

	u, err := b.user(ctx, userID)
	if err != nil {
		log.Error("load user", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	if u == nil {
		b.send(chatID, textNotRegistered)
		return
	}

	set(u, args)
	if err := b.store.SaveUser(ctx, u); err != nil {
		log.Error("save user", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	b.send(chatID, done)
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if _, ok := b.dialogs.Active(chatID); ok {
		b.advanceDialog(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	lower := strings.ToLower(text)
	switch {
	case text == "":
		return
	case lower == "привет" || lower == "hello" || lower == "hi":
		b.send(chatID, textGreeting)
	case strings.Contains(lower, "ваканси") || strings.Contains(lower, "работа") || strings.Contains(lower, "поиск"):
		b.send(chatID, textSearchHint)
	case strings.HasPrefix(text, "/"):
		b.send(chatID, fmt.Sprintf(textUnknownCmd, strings.Fields(text)[0]))
	default:
		b.send(chatID, textUnknownText)
	}
}

func (b *Bot) advanceDialog(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	log := logger.WithChat(b.logger, chatID, senderName(msg))

	res, err := b.dialogs.Advance(chatID, msg.Text)
	switch {
	case errors.Is(err, dialog.ErrInvalidInput):
		b.send(chatID, res.Prompt)
		return
	case err != nil:
		log.Warn("advance dialog", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	case !res.Done:
		b.send(chatID, res.Prompt)
		return
	}

	log.Debug("dialog done", zap.String("flow", res.Flow))
	switch res.Flow {
	case flowRegistration:
		b.finishRegistration(ctx, log, chatID, senderID(msg), res.Data)
	case flowSearch:
		b.finishSearch(ctx, log, chatID, senderID(msg), res.Data)
	}
}

func (b *Bot) finishRegistration(ctx context.Context, log *zap.Logger, chatID, userID int64, data map[string]string) {
	u, err := b.user(ctx, userID)
	if err != nil {
		log.Warn("load user before registration", zap.Error(err))
	}
	if u == nil {
		u = &storage.User{TelegramID: userID}
	}
	u.FullName = data[keyFullName]
	u.City = data[keyCity]
	u.DesiredPosition = data[keyPosition]
	u.Skills = data[keySkills]
	u.BaseResume = data[keyResume]

	if err := b.store.SaveUser(ctx, u); err != nil {
		log.Error("save user", zap.Error(err))
		b.send(chatID, textRegistrationFailed)
		return
	}

	// A first filter from the profile makes /find and the daily digest work right away.
	if _, err := b.store.GetFilter(ctx, userID); errors.Is(err, storage.ErrNotFound) {
		f := storage.NewVacancyFilter(userID)
		f.DesiredPosition = u.DesiredPosition
		f.City = u.City
		if err := b.store.SaveFilter(ctx, f); err != nil {
			log.Warn("save default filter", zap.Error(err))
		}
	}

	log.Info("user registered")
	b.send(chatID, fmt.Sprintf(textRegistrationDone, u.FullName, u.City, u.DesiredPosition, u.Skills))
}

func (b *Bot) finishSearch(ctx context.Context, log *zap.Logger, chatID, userID int64, data map[string]string) {
	f, err := b.filter(ctx, userID)
	if err != nil {
		log.Error("load filter", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}
	f.DesiredPosition = data[keyPosition]
	f.City = data[keyCity]
	f.MinSalary = salaryPtr(data[keyMinSalary])

	if err := b.store.SaveFilter(ctx, f); err != nil {
		log.Error("save filter", zap.Error(err))
		b.send(chatID, textGenericError)
		return
	}

	b.send(chatID, textSearchSaved)
	b.search(ctx, log, chatID, f)
}
