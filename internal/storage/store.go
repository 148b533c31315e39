package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// Store persists users, their search filters, seen vacancies and feedback.
// Save methods are upserts: the last write wins.
type Store interface {
	GetUser(ctx context.Context, telegramID int64) (*User, error)
	SaveUser(ctx context.Context, user *User) error

	GetFilter(ctx context.Context, telegramID int64) (*VacancyFilter, error)
	SaveFilter(ctx context.Context, filter *VacancyFilter) error
	// ListActiveFilters returns filters with a position or a city set.
	ListActiveFilters(ctx context.Context) ([]*VacancyFilter, error)

	// SaveVacancy inserts a vacancy. Already known vacancies are left untouched.
	SaveVacancy(ctx context.Context, vacancy *Vacancy) error
	GetVacancy(ctx context.Context, externalID string) (*Vacancy, error)

	MarkNotInteresting(ctx context.Context, telegramID int64, externalID string) error
	MarkResumeGenerated(ctx context.Context, telegramID int64, externalID string) error
	MarkCoverLetterGenerated(ctx context.Context, telegramID int64, externalID string) error
	NotInterestingIDs(ctx context.Context, telegramID int64) ([]string, error)

	Migrate(ctx context.Context) error
	Close() error
}

// interactionColumn names a single flag of user_vacancy_interactions.
type interactionColumn string

const (
	columnIsInteresting        interactionColumn = "is_interesting"
	columnResumeGenerated      interactionColumn = "resume_generated"
	columnCoverLetterGenerated interactionColumn = "cover_letter_generated"
)

// apply sets only the flag named by column.
func (c interactionColumn) apply(rec *Interaction) {
	switch c {
	case columnIsInteresting:
		interesting := false
		rec.IsInteresting = &interesting
	case columnResumeGenerated:
		rec.ResumeGenerated = true
	case columnCoverLetterGenerated:
		rec.CoverLetterGenerated = true
	}
}
