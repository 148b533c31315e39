package storage

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
)

// Fallback writes to the primary store and keeps working on the in-memory store while the
// primary one is failing. Reads fall through to memory when the primary misses.
type Fallback struct {
	primary Store
	memory  *Memory
	logger  *zap.Logger
}

func NewFallback(primary Store, memory *Memory, logger *zap.Logger) *Fallback {
	if memory == nil {
		memory = NewMemory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fallback{
		primary: primary,
		memory:  memory,
		logger:  logger,
	}
}

func (f *Fallback) Migrate(ctx context.Context) error {
	return f.primary.Migrate(ctx)
}

func (f *Fallback) Close() error {
	return f.primary.Close()
}

// write runs op against the primary store and against memory when the primary fails.
func (f *Fallback) write(name string, op func(Store) error) error {
	err := op(f.primary)
	if err == nil {
		return nil
	}

	f.logger.Warn("primary storage failed, using in-memory storage",
		zap.String("operation", name),
		zap.Error(err),
	)

	return op(f.memory)
}

func (f *Fallback) primaryFailed(name string, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		f.logger.Warn("primary storage failed, reading in-memory storage",
			zap.String("operation", name),
			zap.Error(err),
		)
	}
}

func (f *Fallback) GetUser(ctx context.Context, telegramID int64) (*User, error) {
	user, err := f.primary.GetUser(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	f.primaryFailed("get_user", err)

	if user, memErr := f.memory.GetUser(ctx, telegramID); memErr == nil {
		return user, nil
	}
	return nil, err
}

func (f *Fallback) SaveUser(ctx context.Context, user *User) error {
	return f.write("save_user", func(s Store) error { return s.SaveUser(ctx, user) })
}

func (f *Fallback) GetFilter(ctx context.Context, telegramID int64) (*VacancyFilter, error) {
	filter, err := f.primary.GetFilter(ctx, telegramID)
	if err == nil {
		return filter, nil
	}
	f.primaryFailed("get_filter", err)

	if filter, memErr := f.memory.GetFilter(ctx, telegramID); memErr == nil {
		return filter, nil
	}
	return nil, err
}

func (f *Fallback) SaveFilter(ctx context.Context, filter *VacancyFilter) error {
	return f.write("save_filter", func(s Store) error { return s.SaveFilter(ctx, filter) })
}

// ListActiveFilters merges both stores. The primary store wins for the same user.
func (f *Fallback) ListActiveFilters(ctx context.Context) ([]*VacancyFilter, error) {
	primary, err := f.primary.ListActiveFilters(ctx)
	f.primaryFailed("list_active_filters", err)

	memory, memErr := f.memory.ListActiveFilters(ctx)
	if err != nil && memErr != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(primary))
	list := make([]*VacancyFilter, 0, len(primary)+len(memory))
	for _, filter := range primary {
		seen[filter.TelegramID] = struct{}{}
		list = append(list, filter)
	}
	for _, filter := range memory {
		if _, ok := seen[filter.TelegramID]; !ok {
			list = append(list, filter)
		}
	}

	sort.Slice(list, func(i, j int) bool { return list[i].TelegramID < list[j].TelegramID })
	return list, nil
}

func (f *Fallback) SaveVacancy(ctx context.Context, vacancy *Vacancy) error {
	return f.write("save_vacancy", func(s Store) error { return s.SaveVacancy(ctx, vacancy) })
}

func (f *Fallback) GetVacancy(ctx context.Context, externalID string) (*Vacancy, error) {
	vacancy, err := f.primary.GetVacancy(ctx, externalID)
	if err == nil {
		return vacancy, nil
	}
	f.primaryFailed("get_vacancy", err)

	if vacancy, memErr := f.memory.GetVacancy(ctx, externalID); memErr == nil {
		return vacancy, nil
	}
	return nil, err
}

func (f *Fallback) MarkNotInteresting(ctx context.Context, telegramID int64, externalID string) error {
	return f.write("mark_not_interesting", func(s Store) error {
		return s.MarkNotInteresting(ctx, telegramID, externalID)
	})
}

func (f *Fallback) MarkResumeGenerated(ctx context.Context, telegramID int64, externalID string) error {
	return f.write("mark_resume_generated", func(s Store) error {
		return s.MarkResumeGenerated(ctx, telegramID, externalID)
	})
}

func (f *Fallback) MarkCoverLetterGenerated(ctx context.Context, telegramID int64, externalID string) error {
	return f.write("mark_cover_letter_generated", func(s Store) error {
		return s.MarkCoverLetterGenerated(ctx, telegramID, externalID)
	})
}

// NotInterestingIDs returns the union of both stores.
func (f *Fallback) NotInterestingIDs(ctx context.Context, telegramID int64) ([]string, error) {
	primary, err := f.primary.NotInterestingIDs(ctx, telegramID)
	f.primaryFailed("not_interesting_ids", err)

	memory, memErr := f.memory.NotInterestingIDs(ctx, telegramID)
	if err != nil && memErr != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(primary)+len(memory))
	ids := make([]string, 0, len(primary)+len(memory))
	for _, id := range append(primary, memory...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
