package headhunter

import (
	"fmt"
	"strings"
	"time"
)

var highlightReplacer = strings.NewReplacer("<highlighttext>", "", "</highlighttext>", "")

// HH.ru sends offsets without a colon (+0300). RFC3339 is accepted as well.
var publishedLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

type Vacancies struct {
	Items []*Vacancy
	// Found is the total number of matches reported by HH.ru, not len(Items).
	Found int
}

type IDName struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Area struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type Salary struct {
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Gross    bool   `json:"gross,omitempty"`
}

type Employer struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	URL          string `json:"url,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Trusted      bool   `json:"trusted,omitempty"`
}

type MetroStation struct {
	StationName string `json:"station_name,omitempty"`
	LineName    string `json:"line_name,omitempty"`
}

type Address struct {
	City          string         `json:"city,omitempty"`
	Street        string         `json:"street,omitempty"`
	MetroStations []MetroStation `json:"metro_stations,omitempty"`
}

type Snippet struct {
	Requirement    string `json:"requirement,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
}

type Vacancy struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Area         Area     `json:"area,omitempty"`
	Salary       Salary   `json:"salary,omitempty"`
	Address      Address  `json:"address,omitempty"`
	Experience   IDName   `json:"experience,omitempty"`
	Schedule     IDName   `json:"schedule,omitempty"`
	Employment   IDName   `json:"employment,omitempty"`
	Employer     Employer `json:"employer,omitempty"`
	Snippet      Snippet  `json:"snippet,omitempty"`
	Description  string   `json:"description,omitempty"`
	AlternateURL string   `json:"alternate_url,omitempty"`
	Archived     bool     `json:"archived,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty"`
	PublishedAt  string   `json:"published_at,omitempty"`
}

func (v *Vacancies) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Items)
}

// Keep leaves only vacancies accepted by fn and returns ids of the dropped ones. Order is preserved.
func (v *Vacancies) Keep(fn func(*Vacancy) bool) []string {
	var dropped []string
	kept := v.Items[:0]
	for _, vacancy := range v.Items {
		if fn(vacancy) {
			kept = append(kept, vacancy)
			continue
		}
		dropped = append(dropped, vacancy.ID)
	}
	v.Items = kept
	return dropped
}

// Exclude removes vacancies whose id is in ids.
func (v *Vacancies) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return v.Keep(func(vacancy *Vacancy) bool {
		_, found := set[vacancy.ID]
		return !found
	})
}

// First truncates the list to n items.
func (v *Vacancies) First(n int) {
	if n >= 0 && len(v.Items) > n {
		v.Items = v.Items[:n]
	}
}

// SalaryText renders the salary fork the way it is shown to users. Empty when unknown.
func (va *Vacancy) SalaryText() string {
	s := va.Salary
	currency := strings.TrimSpace(s.Currency)

	var text string
	switch {
	case s.From > 0 && s.To > 0:
		text = fmt.Sprintf("%d-%d %s", s.From, s.To, currency)
	case s.From > 0:
		text = fmt.Sprintf("от %d %s", s.From, currency)
	case s.To > 0:
		text = fmt.Sprintf("до %d %s", s.To, currency)
	default:
		return ""
	}

	return strings.TrimSpace(text)
}

// InRoubles reports whether the fork is priced in roubles. A fork without currency counts as roubles.
func (s Salary) InRoubles() bool {
	switch strings.ToUpper(strings.TrimSpace(s.Currency)) {
	case "", "RUR", "RUB":
		return true
	}
	return false
}

// MaxSalary returns the upper known bound of the salary fork.
func (va *Vacancy) MaxSalary() int {
	if va.Salary.To > va.Salary.From {
		return va.Salary.To
	}
	return va.Salary.From
}

// Requirement returns the snippet requirement without search highlight markup.
func (va *Vacancy) Requirement() string {
	return strings.TrimSpace(highlightReplacer.Replace(va.Snippet.Requirement))
}

// PublishedTime parses published_at (or created_at when absent).
func (va *Vacancy) PublishedTime() (time.Time, error) {
	raw := va.PublishedAt
	if raw == "" {
		raw = va.CreatedAt
	}
	if raw == "" {
		return time.Time{}, fmt.Errorf("vacancy %s has no publication date", va.ID)
	}

	var lastErr error
	for _, layout := range publishedLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("parse publication date %q: %w", raw, lastErr)
}

func (va *Vacancy) MetroStations() []string {
	names := make([]string, 0, len(va.Address.MetroStations))
	for _, station := range va.Address.MetroStations {
		if station.StationName != "" {
			names = append(names, station.StationName)
		}
	}
	return names
}

// ReportByEmployer groups vacancy names by employer.
func (v *Vacancies) ReportByEmployer() map[string][]string {
	report := make(map[string][]string)
	for _, vacancy := range v.Items {
		key := fmt.Sprintf("%s (%s)", vacancy.Employer.Name, vacancy.Employer.ID)
		report[key] = append(report[key], vacancy.Name)
	}
	return report
}
