package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/headhunter"
)

type excludedVacanciesFilter struct {
	toggle
	ids []string
}

// NewExcludedVacancies creates a filter that removes vacancies the user marked as not interesting.
func NewExcludedVacancies() Filter {
	return &excludedVacanciesFilter{}
}

func (f *excludedVacanciesFilter) Name() string { return "not_interesting" }

func (f *excludedVacanciesFilter) Validate(cfg *Config) error {
	f.ids = nil
	if cfg != nil {
		f.ids = append(f.ids, cfg.ExcludedIDs...)
	}
	return nil
}

func (f *excludedVacanciesFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	excluded := v.Exclude(f.ids)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding vacancies marked as not interesting",
			zap.Strings("excluded_vacancies", excluded),
			zap.Int("vacancies_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

type employersFilter struct {
	toggle
	employers []string
}

// NewExcludedEmployers creates a filter that removes vacancies by employers configured in the config.
func NewExcludedEmployers() Filter {
	return &employersFilter{}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Validate(cfg *Config) error {
	f.employers = nil
	if cfg != nil {
		f.employers = append(f.employers, cfg.Employers...)
	}
	return nil
}

func (f *employersFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if len(f.employers) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	blocked := make(map[string]struct{}, len(f.employers))
	for _, id := range f.employers {
		blocked[id] = struct{}{}
	}

	excluded := v.Keep(func(vacancy *headhunter.Vacancy) bool {
		_, found := blocked[vacancy.Employer.ID]
		return !found
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding vacancies by employers",
			zap.Strings("excluded_employers", f.employers),
			zap.Strings("excluded_vacancies", excluded),
			zap.Int("vacancies_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *employersFilter) Status() Status {
	details := map[string]string{}
	if len(f.employers) > 0 {
		details["employers"] = strings.Join(f.employers, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type salaryFilter struct {
	toggle
	floor int
}

// NewSalary creates a filter that drops vacancies paying less than the salary floor.
// Vacancies without salary are dropped too when a floor is set. The floor is in roubles:
// forks in other currencies are kept since hh.ru already compared them after conversion.
func NewSalary() Filter {
	return &salaryFilter{}
}

func (f *salaryFilter) Name() string { return "salary" }

func (f *salaryFilter) Validate(cfg *Config) error {
	f.floor = 0
	if cfg == nil {
		return nil
	}
	if cfg.MinSalary < 0 {
		return fmt.Errorf("minimal salary must not be negative: %d", cfg.MinSalary)
	}
	f.floor = cfg.MinSalary
	return nil
}

func (f *salaryFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if f.floor == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Keep(func(vacancy *headhunter.Vacancy) bool {
		if vacancy.MaxSalary() > 0 && !vacancy.Salary.InRoubles() {
			return true
		}
		return vacancy.MaxSalary() >= f.floor
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding vacancies below salary floor",
			zap.Int("min_salary", f.floor),
			zap.Strings("excluded_vacancies", excluded),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *salaryFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: map[string]string{
		"min_salary": strconv.Itoa(f.floor),
	}}
}

type freshnessFilter struct {
	toggle
	days int
}

// NewFreshness creates a filter that keeps vacancies published within the freshness window.
// Vacancies with unknown publication date are kept.
func NewFreshness() Filter {
	return &freshnessFilter{}
}

func (f *freshnessFilter) Name() string { return "freshness" }

func (f *freshnessFilter) Validate(cfg *Config) error {
	f.days = 0
	if cfg == nil {
		return nil
	}
	if cfg.FreshnessDays < 0 {
		return fmt.Errorf("freshness days must not be negative: %d", cfg.FreshnessDays)
	}
	f.days = cfg.FreshnessDays
	return nil
}

func (f *freshnessFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if f.days == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	threshold := deps.now().Add(-time.Duration(f.days) * 24 * time.Hour)
	excluded := v.Keep(func(vacancy *headhunter.Vacancy) bool {
		published, err := vacancy.PublishedTime()
		if err != nil {
			if deps.Logger != nil {
				deps.Logger.Debug("unknown publication date", zap.String("vacancy_id", vacancy.ID), zap.Error(err))
			}
			return true
		}
		return !published.Before(threshold)
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding stale vacancies",
			zap.Int("freshness_days", f.days),
			zap.Strings("excluded_vacancies", excluded),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

type metroFilter struct {
	toggle
	stations map[string]struct{}
}

// NewMetro creates a filter that keeps vacancies near any of the configured metro stations.
func NewMetro() Filter {
	return &metroFilter{}
}

func (f *metroFilter) Name() string { return "metro" }

func (f *metroFilter) Validate(cfg *Config) error {
	f.stations = nil
	if cfg == nil {
		return nil
	}
	for _, station := range cfg.MetroStations {
		name := strings.ToLower(strings.TrimSpace(station))
		if name == "" {
			continue
		}
		if f.stations == nil {
			f.stations = make(map[string]struct{})
		}
		f.stations[name] = struct{}{}
	}
	return nil
}

func (f *metroFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if len(f.stations) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Keep(func(vacancy *headhunter.Vacancy) bool {
		for _, station := range vacancy.MetroStations() {
			if _, ok := f.stations[strings.ToLower(station)]; ok {
				return true
			}
		}
		return false
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding vacancies far from metro stations",
			zap.Strings("excluded_vacancies", excluded),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

type topCompaniesFilter struct {
	toggle
	only bool
}

// NewTopCompanies creates a filter that keeps vacancies of trusted employers only.
func NewTopCompanies() Filter {
	return &topCompaniesFilter{}
}

func (f *topCompaniesFilter) Name() string { return "top_companies" }

func (f *topCompaniesFilter) Validate(cfg *Config) error {
	f.only = cfg != nil && cfg.TopCompaniesOnly
	return nil
}

func (f *topCompaniesFilter) Apply(_ context.Context, deps Deps, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error) {
	initial := v.Len()
	if !f.only {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Keep(func(vacancy *headhunter.Vacancy) bool {
		return vacancy.Employer.Trusted
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding vacancies of untrusted employers",
			zap.Strings("excluded_vacancies", excluded),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}
