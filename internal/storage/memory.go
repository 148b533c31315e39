package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type interactionKey struct {
	telegramID int64
	externalID string
}

// Memory keeps everything in process memory. Used when no database is configured and as the
// fallback of Fallback.
type Memory struct {
	mu           sync.RWMutex
	users        map[int64]User
	filters      map[int64]VacancyFilter
	vacancies    map[string]Vacancy
	interactions map[interactionKey]Interaction

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[int64]User),
		filters:      make(map[int64]VacancyFilter),
		vacancies:    make(map[string]Vacancy),
		interactions: make(map[interactionKey]Interaction),
		now:          time.Now,
	}
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) GetUser(_ context.Context, telegramID int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[telegramID]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) SaveUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec := *user
	if prev, ok := m.users[user.TelegramID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	m.users[user.TelegramID] = rec
	return nil
}

func (m *Memory) GetFilter(_ context.Context, telegramID int64) (*VacancyFilter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filter, ok := m.filters[telegramID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyFilter(filter), nil
}

func (m *Memory) SaveFilter(_ context.Context, filter *VacancyFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	rec := *copyFilter(*filter)
	if rec.FreshnessDays == 0 {
		rec.FreshnessDays = DefaultFreshnessDays
	}
	if prev, ok := m.filters[filter.TelegramID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	m.filters[filter.TelegramID] = rec
	return nil
}

func (m *Memory) ListActiveFilters(context.Context) ([]*VacancyFilter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := []*VacancyFilter{}
	for _, filter := range m.filters {
		if filter.Active() {
			list = append(list, copyFilter(filter))
		}
	}

	sort.Slice(list, func(i, j int) bool { return list[i].TelegramID < list[j].TelegramID })
	return list, nil
}

func (m *Memory) SaveVacancy(_ context.Context, vacancy *Vacancy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vacancies[vacancy.ExternalID]; ok {
		return nil
	}

	rec := *vacancy
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.vacancies[vacancy.ExternalID] = rec
	return nil
}

func (m *Memory) GetVacancy(_ context.Context, externalID string) (*Vacancy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vacancy, ok := m.vacancies[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	return &vacancy, nil
}

func (m *Memory) MarkNotInteresting(_ context.Context, telegramID int64, externalID string) error {
	m.mark(telegramID, externalID, columnIsInteresting)
	return nil
}

func (m *Memory) MarkResumeGenerated(_ context.Context, telegramID int64, externalID string) error {
	m.mark(telegramID, externalID, columnResumeGenerated)
	return nil
}

func (m *Memory) MarkCoverLetterGenerated(_ context.Context, telegramID int64, externalID string) error {
	m.mark(telegramID, externalID, columnCoverLetterGenerated)
	return nil
}

func (m *Memory) mark(telegramID int64, externalID string, column interactionColumn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := interactionKey{telegramID: telegramID, externalID: externalID}
	rec, ok := m.interactions[key]
	if !ok {
		rec = Interaction{TelegramID: telegramID, VacancyExternalID: externalID}
	}
	column.apply(&rec)
	rec.InteractedAt = m.now()

	m.interactions[key] = rec
}

// Interaction returns the stored interaction. Not a part of Store.
func (m *Memory) Interaction(telegramID int64, externalID string) (*Interaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.interactions[interactionKey{telegramID: telegramID, externalID: externalID}]
	if !ok {
		return nil, false
	}
	return &rec, true
}

func (m *Memory) NotInterestingIDs(_ context.Context, telegramID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for key, rec := range m.interactions {
		if key.telegramID == telegramID && rec.IsInteresting != nil && !*rec.IsInteresting {
			ids = append(ids, key.externalID)
		}
	}

	sort.Strings(ids)
	return ids, nil
}

func copyFilter(filter VacancyFilter) *VacancyFilter {
	if filter.MinSalary != nil {
		salary := *filter.MinSalary
		filter.MinSalary = &salary
	}
	if filter.MetroStations != nil {
		filter.MetroStations = append(filter.MetroStations[:0:0], filter.MetroStations...)
	}
	return &filter
}
