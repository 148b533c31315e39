// Package bot serves the Telegram side: commands, dialogs and vacancy buttons.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/ai"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/dialog"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/logger"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/utils"
)

const (
	// MaxMessageLength keeps messages below the Telegram limit of 4096 characters.
	MaxMessageLength = 4000

	defaultGenerateTimeout = 2 * time.Minute
)

// Sender is the part of tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// VacancyFinder searches HH.ru with a saved filter and resolves single vacancies.
type VacancyFinder interface {
	Find(ctx context.Context, filter *storage.VacancyFilter) ([]*storage.Vacancy, error)
	Lookup(ctx context.Context, externalID string) (*storage.Vacancy, error)
}

// DocumentWriter generates application documents.
type DocumentWriter interface {
	Resume(ctx context.Context, user ai.Settings, candidate ai.Candidate, posting ai.Posting) (string, error)
	CoverLetter(ctx context.Context, user ai.Settings, candidate ai.Candidate, posting ai.Posting) (string, error)
	Configured() bool
}

type Deps struct {
	Store   storage.Store
	Finder  VacancyFinder
	Writer  DocumentWriter
	Dialogs *dialog.Manager
	Logger  *zap.Logger
	// GenerateTimeout bounds a single resume or cover letter generation.
	GenerateTimeout time.Duration
}

type Bot struct {
	api     Sender
	store   storage.Store
	finder  VacancyFinder
	writer  DocumentWriter
	dialogs *dialog.Manager
	logger  *zap.Logger

	generateTimeout time.Duration
	wg              sync.WaitGroup

	mu     sync.Mutex
	// queues holds pending updates per chat while a worker drains them.
	queues map[int64][]tgbotapi.Update
}

func New(api Sender, deps Deps) *Bot {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	dialogs := deps.Dialogs
	if dialogs == nil {
		dialogs = dialog.NewManager()
	}
	timeout := deps.GenerateTimeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}

	return &Bot{
		api:             api,
		store:           deps.Store,
		finder:          deps.Finder,
		writer:          deps.Writer,
		dialogs:         dialogs,
		logger:          log.Named("bot"),
		generateTimeout: timeout,
		queues:          make(map[int64][]tgbotapi.Update),
	}
}

// RegisterCommands publishes the command menu.
func (b *Bot) RegisterCommands() error {
	_, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands()...))
	return err
}

// Run handles updates until ctx is done or the channel is closed. Chats are served
// concurrently, updates of one chat keep their order.
// It returns after queued updates and in-flight generations finish.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	b.logger.Info("listening for updates")
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("context cancelled, stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("updates channel closed")
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch queues the update to its chat worker, starting one when the chat is idle.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID, ok := updateChat(update)
	if !ok {
		b.HandleUpdate(ctx, update)
		return
	}

	b.mu.Lock()
	pending, running := b.queues[chatID]
	b.queues[chatID] = append(pending, update)
	b.mu.Unlock()
	if running {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.drain(ctx, chatID)
	}()
}

func (b *Bot) drain(ctx context.Context, chatID int64) {
	for {
		b.mu.Lock()
		pending := b.queues[chatID]
		if len(pending) == 0 {
			delete(b.queues, chatID)
			b.mu.Unlock()
			return
		}
		update := pending[0]
		b.queues[chatID] = pending[1:]
		b.mu.Unlock()

		if ctx.Err() != nil {
			b.logger.Debug("drop update after shutdown", zap.Int("update_id", update.UpdateID), zap.Int64(logger.FieldChatID, chatID))
			continue
		}
		b.HandleUpdate(ctx, update)
	}
}

func updateChat(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	}
	return 0, false
}

// Wait blocks until background generations finish.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil {
			b.logger.Debug("skip message without chat", zap.Int("update_id", update.UpdateID))
			return
		}
		if msg.From != nil && msg.From.IsBot {
			return
		}
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		b.handleText(ctx, msg)
	default:
		b.logger.Debug("skip update", zap.Int("update_id", update.UpdateID))
	}
}

func (b *Bot) send(chatID int64, text string) {
	b.sendWithMarkup(chatID, text, nil)
}

// sendWithMarkup splits long texts. Markup goes to the last part.
func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) {
	parts := utils.SplitMessage(text, MaxMessageLength)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if markup != nil && i == len(parts)-1 {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("send message", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
			return
		}
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Warn("answer callback", zap.String("callback_id", id), zap.Error(err))
	}
}

// user loads a profile. A missing profile is reported as (nil, nil).
func (b *Bot) user(ctx context.Context, telegramID int64) (*storage.User, error) {
	u, err := b.store.GetUser(ctx, telegramID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// filter loads the search filter, or a fresh one with defaults when there is none yet.
func (b *Bot) filter(ctx context.Context, telegramID int64) (*storage.VacancyFilter, error) {
	f, err := b.store.GetFilter(ctx, telegramID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.NewVacancyFilter(telegramID), nil
	}
	return f, err
}

func senderID(msg *tgbotapi.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From != nil {
		return msg.From.UserName
	}
	return ""
}
