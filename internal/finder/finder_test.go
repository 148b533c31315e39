package finder

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apoxa-tati/HH-Jobs-Bot/internal/headhunter"
	"github.com/apoxa-tati/HH-Jobs-Bot/internal/storage"
)

type fakeHH struct {
	params    *headhunter.SearchParams
	vacancies []*headhunter.Vacancy
	err       error
	lookups   int
}

func (f *fakeHH) Search(_ context.Context, params *headhunter.SearchParams) (*headhunter.Vacancies, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	items := append([]*headhunter.Vacancy(nil), f.vacancies...)
	return &headhunter.Vacancies{Items: items, Found: len(items)}, nil
}

func (f *fakeHH) AreaID(_ context.Context, city string) (string, error) {
	if city == "Москва" {
		return "1", nil
	}
	return "", nil
}

func (f *fakeHH) GetVacancy(_ context.Context, id string) (*headhunter.Vacancy, error) {
	f.lookups++
	for _, v := range f.vacancies {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, errors.New("bad status: 404 Not Found")
}

func vacancy(id string, salary int) *headhunter.Vacancy {
	return &headhunter.Vacancy{
		ID:           id,
		Name:         "Go developer " + id,
		Area:         headhunter.Area{Name: "Москва"},
		Salary:       headhunter.Salary{From: salary, Currency: "RUR"},
		Employer:     headhunter.Employer{ID: "e" + id, Name: "Acme"},
		Snippet:      headhunter.Snippet{Requirement: "<highlighttext>Go</highlighttext> 3+ years"},
		AlternateURL: "https://hh.ru/vacancy/" + id,
		PublishedAt:  "2024-05-10T09:00:00+0300",
	}
}

func newFinder(hh *fakeHH, store *storage.Memory) *Finder {
	f := New(hh, store, zap.NewNop())
	f.Now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestFindBuildsParams(t *testing.T) {
	hh := &fakeHH{}
	f := newFinder(hh, storage.NewMemory())

	salary := 150000
	_, err := f.Find(context.Background(), &storage.VacancyFilter{
		TelegramID:          1,
		DesiredPosition:     "Golang",
		City:                "Москва",
		MinSalary:           &salary,
		FreshnessDays:       3,
		EmploymentType:      "full",
		DirectEmployersOnly: true,
	})
	require.NoError(t, err)

	require.Equal(t, "Golang", hh.params.Text)
	require.Equal(t, "1", hh.params.Area)
	require.Equal(t, 150000, hh.params.Salary)
	require.True(t, hh.params.OnlyWithSalary)
	require.Equal(t, 3, hh.params.Period)
	require.Equal(t, []string{"full"}, hh.params.Employment)
	require.Equal(t, []string{headhunter.LabelNotFromAgency}, hh.params.Labels)
}

func TestFindWithoutSalaryOrKnownCity(t *testing.T) {
	hh := &fakeHH{}
	f := newFinder(hh, storage.NewMemory())

	_, err := f.Find(context.Background(), &storage.VacancyFilter{TelegramID: 1, DesiredPosition: "Go", City: "Атлантида"})
	require.NoError(t, err)
	require.Empty(t, hh.params.Area)
	require.Zero(t, hh.params.Salary)
	require.False(t, hh.params.OnlyWithSalary)
	require.Empty(t, hh.params.Labels)
}

func TestFindFiltersLimitsAndStores(t *testing.T) {
	ctx := context.Background()

	var items []*headhunter.Vacancy
	for i := 0; i < 8; i++ {
		items = append(items, vacancy(fmt.Sprint(i), 100000+i*10000))
	}
	hh := &fakeHH{vacancies: items}
	store := storage.NewMemory()
	require.NoError(t, store.MarkNotInteresting(ctx, 1, "3"))

	f := newFinder(hh, store)
	f.Limit = 3

	salary := 110000
	got, err := f.Find(ctx, &storage.VacancyFilter{TelegramID: 1, DesiredPosition: "Go", MinSalary: &salary})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// 0 is below the floor and 3 is marked as not interesting.
	require.Equal(t, "1", got[0].ExternalID)
	require.Equal(t, "2", got[1].ExternalID)
	require.Equal(t, "4", got[2].ExternalID)

	stored, err := store.GetVacancy(ctx, "4")
	require.NoError(t, err)
	require.Equal(t, "Go 3+ years", stored.Description)
	require.Equal(t, "от 140000 RUR", stored.Salary)
	require.Equal(t, "Acme", stored.Company)
	require.NotNil(t, stored.PublishedAt)

	_, err = store.GetVacancy(ctx, "5")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindSearchError(t *testing.T) {
	hh := &fakeHH{err: errors.New("bad status: 502 Bad Gateway")}
	f := newFinder(hh, storage.NewMemory())

	_, err := f.Find(context.Background(), &storage.VacancyFilter{TelegramID: 1, DesiredPosition: "Go"})
	require.Error(t, err)

	_, err = f.Find(context.Background(), nil)
	require.Error(t, err)
}

func TestLookupPrefersStore(t *testing.T) {
	ctx := context.Background()
	hh := &fakeHH{vacancies: []*headhunter.Vacancy{vacancy("9", 1)}}
	store := storage.NewMemory()
	require.NoError(t, store.SaveVacancy(ctx, &storage.Vacancy{ExternalID: "8", Title: "stored"}))

	f := newFinder(hh, store)

	got, err := f.Lookup(ctx, "8")
	require.NoError(t, err)
	require.Equal(t, "stored", got.Title)
	require.Zero(t, hh.lookups)

	got, err = f.Lookup(ctx, "9")
	require.NoError(t, err)
	require.Equal(t, "Go developer 9", got.Title)
	require.Equal(t, 1, hh.lookups)

	_, err = store.GetVacancy(ctx, "9")
	require.NoError(t, err)

	_, err = f.Lookup(ctx, "404")
	require.Error(t, err)
}

func TestFindExcludedEmployersAndDisabledFilters(t *testing.T) {
	hh := &fakeHH{vacancies: []*headhunter.Vacancy{vacancy("1", 50000), vacancy("2", 50000), vacancy("3", 50000)}}
	f := newFinder(hh, storage.NewMemory())
	f.Employers = []string{"e2"}
	f.DisabledFilters = []string{"salary"}

	salary := 300000
	got, err := f.Find(context.Background(), &storage.VacancyFilter{TelegramID: 1, DesiredPosition: "Go", MinSalary: &salary})
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.ExternalID)
	}
	require.Equal(t, []string{"1", "3"}, ids)
}
