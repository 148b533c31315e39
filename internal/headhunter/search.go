package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	SearchPath = "/vacancies"

	// LabelNotFromAgency limits search to direct employers.
	LabelNotFromAgency = "not_from_agency"
)

type SearchParams struct {
	Text string `yaml:"text"`
	// hhparam is custom tag for reflect. Please see below.
	Area           string   `hhparam:"area"`
	Salary         int      `yaml:"salary"`
	OnlyWithSalary bool     `hhparam:"only_with_salary"`
	Period         int      `yaml:"period"`
	Experience     string   `yaml:"experience"`
	Employment     []string `hhparam:"employment"`
	Labels         []string `hhparam:"label"`
	OrderBy        string   `yaml:"order_by" mapstructure:"order_by"`
	SearchField    string   `yaml:"search_field" mapstructure:"search_field"`
	PerPage        int      `yaml:"per_page" mapstructure:"per_page"`
	Page           int      `yaml:"page"`
}

// Search returns vacancies matching params. Only MaxPages pages are requested.
func (c *Client) Search(ctx context.Context, params *SearchParams) (*Vacancies, error) {
	if params == nil {
		params = &SearchParams{}
	}

	if params.PerPage <= 0 || params.PerPage > maxPerPage {
		params.PerPage = maxPerPage
	}

	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	q := buildParams(params)
	apiURLSearch := fmt.Sprintf("%s%s", c.APIURL, SearchPath)

	items, found, err := c.GetItems(ctx, apiURLSearch, q, maxPages)
	if err != nil {
		return nil, err
	}

	vacancies, err := decodeVacancies(items)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("search finished",
		zap.String("text", params.Text),
		zap.String("area", params.Area),
		zap.Int("found", found),
		zap.Int("received", len(vacancies)),
	)

	return &Vacancies{
		Items: vacancies,
		Found: found,
	}, nil
}

func decodeVacancies(items []Item) ([]*Vacancy, error) {
	var vacancies []*Vacancy

	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &vacancies,
		TagName:  "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode vacancies: %w", err)
	}

	return vacancies, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		// Our custom tag is using here.
		key := field.Tag.Get("hhparam")
		if key == "" {
			// Failover to default tag if our tag do not exist.
			key = field.Tag.Get("yaml")
		}

		value := reflect.ValueOf(params).Elem().Field(field.Index[0])
		switch field.Type.Kind() {
		case reflect.Slice:
			if s, ok := value.Interface().([]string); ok {
				for _, v := range s {
					if v != "" {
						q.Add(key, v)
					}
				}
			}
		case reflect.Bool:
			if value.Bool() {
				q.Set(key, "true")
			}
		case reflect.Int:
			if value.Int() != 0 {
				q.Set(key, strconv.FormatInt(value.Int(), 10))
			}
		default:
			if s := fmt.Sprintf("%v", value.Interface()); s != "" {
				q.Set(key, s)
			}
		}
	}

	return q
}
