package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/ai"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/logger"
)

type document int

const (
	documentResume document = iota
	documentCoverLetter
)

func (d document) String() string {
	if d == documentCoverLetter {
		return "cover_letter"
	}
	return "resume"
}

// parseCallback splits callback data into an action prefix and a vacancy id.
func parseCallback(data string) (action, externalID string, ok bool) {
	for _, prefix := range []string{callbackNotInteresting, callbackResume, callbackCoverLetter} {
		if id, found := strings.CutPrefix(data, prefix); found && id != "" {
			return prefix, id, true
		}
	}
	return "", "", false
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil {
		b.answerCallback(q.ID, "")
		return
	}
	chatID := q.From.ID
	if q.Message != nil && q.Message.Chat != nil {
		chatID = q.Message.Chat.ID
	}
	userID := q.From.ID
	log := logger.WithChat(b.logger, chatID, q.From.UserName)

	action, externalID, ok := parseCallback(q.Data)
	if !ok {
		log.Warn("unknown callback", zap.String("data", q.Data))
		b.answerCallback(q.ID, "")
		return
	}
	log = log.With(zap.String("vacancy_id", externalID))

	switch action {
	case callbackNotInteresting:
		b.answerCallback(q.ID, textMarked)
		if err := b.store.MarkNotInteresting(ctx, userID, externalID); err != nil {
			log.Error("mark not interesting", zap.Error(err))
			b.send(chatID, textGenericError)
			return
		}
		b.send(chatID, textNotInterestingOK)
	case callbackResume, callbackCoverLetter:
		kind := documentResume
		if action == callbackCoverLetter {
			kind = documentCoverLetter
		}
		b.answerCallback(q.ID, textGenerating)

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.generate(ctx, log, kind, chatID, userID, externalID)
		}()
	}
}

func (b *Bot) generate(parent context.Context, log *zap.Logger, kind document, chatID, userID int64, externalID string) {
	ctx, cancel := context.WithTimeout(parent, b.generateTimeout)
	defer cancel()

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

	vacancy, err := b.finder.Lookup(ctx, externalID)
	if err != nil {
		log.Warn("lookup vacancy", zap.Error(err))
		b.send(chatID, textVacancyAbsent)
		return
	}

	if u.LLMAPIKey == "" && !b.writer.Configured() {
		b.send(chatID, textLLMRequired)
		return
	}

	settings := ai.Settings{BaseURL: u.LLMBaseURL, APIKey: u.LLMAPIKey, Model: u.LLMModel}
	candidate := ai.Candidate{FullName: u.FullName, Skills: u.Skills, BaseResume: u.BaseResume}
	posting := ai.Posting{
		Title:       vacancy.Title,
		Company:     vacancy.Company,
		City:        vacancy.City,
		Salary:      vacancy.Salary,
		Description: vacancy.Description,
	}

	var (
		text   string
		header string
		failed string
		mark   func(context.Context, int64, string) error
	)
	switch kind {
	case documentCoverLetter:
		text, err = b.writer.CoverLetter(ctx, settings, candidate, posting)
		header, failed, mark = textCoverReady, textCoverFailed, b.store.MarkCoverLetterGenerated
	default:
		text, err = b.writer.Resume(ctx, settings, candidate, posting)
		header, failed, mark = textResumeReady, textResumeFailed, b.store.MarkResumeGenerated
	}
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		b.send(chatID, textLLMRequired)
		return
	case err != nil:
		log.Error("generate document", zap.Stringer("document", kind), zap.Error(err))
		b.send(chatID, failed)
		return
	}

	b.send(chatID, header+text)
	if err := mark(ctx, userID, externalID); err != nil {
		log.Warn("mark generated", zap.Stringer("document", kind), zap.Error(err))
	}
	log.Info("document generated", zap.Stringer("document", kind))
}
