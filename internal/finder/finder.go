// Package finder runs a vacancy search for a stored user filter.
package finder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/filtering"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/headhunter"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
)

const (
	DefaultLimit = 5

	orderByPublication = "publication_time"
)

// Searcher is the part of the HH.ru client used by Finder.
type Searcher interface {
	Search(ctx context.Context, params *headhunter.SearchParams) (*headhunter.Vacancies, error)
	AreaID(ctx context.Context, city string) (string, error)
	GetVacancy(ctx context.Context, id string) (*headhunter.Vacancy, error)
}

// VacancyStore is the part of storage.Store used by Finder.
type VacancyStore interface {
	SaveVacancy(ctx context.Context, vacancy *storage.Vacancy) error
	GetVacancy(ctx context.Context, externalID string) (*storage.Vacancy, error)
	NotInterestingIDs(ctx context.Context, telegramID int64) ([]string, error)
}

type Finder struct {
	hh     Searcher
	store  VacancyStore
	logger *zap.Logger

	// Limit is the number of vacancies returned by Find.
	Limit int
	// Employers are excluded employer ids.
	Employers []string
	// DisabledFilters names filtering steps to skip.
	DisabledFilters []string
	Now             func() time.Time
}

func New(hh Searcher, store VacancyStore, logger *zap.Logger) *Finder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Finder{
		hh:     hh,
		store:  store,
		logger: logger,
		Limit:  DefaultLimit,
		Now:    time.Now,
	}
}

// Find searches HH.ru with the filter, drops unsuitable vacancies, stores the rest and returns
// at most Limit of them.
func (f *Finder) Find(ctx context.Context, filter *storage.VacancyFilter) ([]*storage.Vacancy, error) {
	if filter == nil {
		return nil, fmt.Errorf("vacancy filter is nil")
	}

	log := f.logger.With(zap.Int64("telegram_id", filter.TelegramID))

	params, err := f.searchParams(ctx, filter)
	if err != nil {
		return nil, err
	}

	vacancies, err := f.hh.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search vacancies: %w", err)
	}

	log.Debug("vacancies received",
		zap.Int("found", vacancies.Found),
		zap.Int("received", vacancies.Len()),
	)

	excluded, err := f.store.NotInterestingIDs(ctx, filter.TelegramID)
	if err != nil {
		log.Warn("cannot load not interesting vacancies", zap.Error(err))
	}

	cfg := &filtering.Config{
		MinSalary:        filter.Salary(),
		FreshnessDays:    filter.FreshnessDays,
		MetroStations:    filter.MetroStations,
		TopCompaniesOnly: filter.TopCompaniesOnly,
		ExcludedIDs:      excluded,
		Employers:        f.Employers,
	}

	steps := filtering.Default()
	if len(f.DisabledFilters) > 0 {
		for _, name := range f.DisabledFilters {
			filtering.DisableByName(steps, name, "disabled in config")
		}
		log.Debug("vacancy filters", zap.Any("filters", filtering.Describe(steps)))
	}

	vacancies, err = filtering.Run(ctx, cfg, filtering.Deps{Logger: log, Now: f.Now}, steps, vacancies)
	if err != nil {
		return nil, fmt.Errorf("filter vacancies: %w", err)
	}

	if ce := log.Check(zap.DebugLevel, "vacancies by employer"); ce != nil {
		ce.Write(zap.Any("report", vacancies.ReportByEmployer()))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	vacancies.First(limit)

	result := make([]*storage.Vacancy, 0, vacancies.Len())
	for _, vacancy := range vacancies.Items {
		rec := ToStorage(vacancy)
		if err := f.store.SaveVacancy(ctx, rec); err != nil {
			log.Warn("cannot save vacancy", zap.String("vacancy_id", rec.ExternalID), zap.Error(err))
		}
		result = append(result, rec)
	}

	log.Info("vacancy search finished", zap.Int("vacancies", len(result)))

	return result, nil
}

// Lookup returns a stored vacancy, asking HH.ru when it is not stored yet.
func (f *Finder) Lookup(ctx context.Context, externalID string) (*storage.Vacancy, error) {
	rec, err := f.store.GetVacancy(ctx, externalID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		f.logger.Warn("cannot read stored vacancy", zap.String("vacancy_id", externalID), zap.Error(err))
	}

	vacancy, err := f.hh.GetVacancy(ctx, externalID)
	if err != nil {
		return nil, err
	}

	rec = ToStorage(vacancy)
	if err := f.store.SaveVacancy(ctx, rec); err != nil {
		f.logger.Warn("cannot save vacancy", zap.String("vacancy_id", rec.ExternalID), zap.Error(err))
	}

	return rec, nil
}

func (f *Finder) searchParams(ctx context.Context, filter *storage.VacancyFilter) (*headhunter.SearchParams, error) {
	params := &headhunter.SearchParams{
		Text:       filter.DesiredPosition,
		Period:     filter.FreshnessDays,
		Experience: filter.Experience,
		OrderBy:    orderByPublication,
	}

	if filter.City != "" {
		area, err := f.hh.AreaID(ctx, filter.City)
		if err != nil {
			return nil, fmt.Errorf("resolve area %q: %w", filter.City, err)
		}
		if area == "" {
			f.logger.Info("unknown city, searching without area", zap.String("city", filter.City))
		}
		params.Area = area
	}

	if salary := filter.Salary(); salary > 0 {
		params.Salary = salary
		params.OnlyWithSalary = true
	}

	if filter.EmploymentType != "" {
		params.Employment = []string{filter.EmploymentType}
	}

	if filter.DirectEmployersOnly {
		params.Labels = append(params.Labels, headhunter.LabelNotFromAgency)
	}

	return params, nil
}

// ToStorage converts an HH.ru vacancy into its stored form.
func ToStorage(v *headhunter.Vacancy) *storage.Vacancy {
	rec := &storage.Vacancy{
		ExternalID: v.ID,
		Title:      v.Name,
		Company:    v.Employer.Name,
		City:       v.Area.Name,
		Salary:     v.SalaryText(),
		URL:        v.AlternateURL,
	}

	rec.Description = v.Requirement()
	if rec.Description == "" {
		rec.Description = v.Description
	}

	if published, err := v.PublishedTime(); err == nil {
		rec.PublishedAt = &published
	}

	return rec
}
