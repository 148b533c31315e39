package headhunter

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const (
	AreasSuggestPath = "/suggests/areas"
	VacancyPath      = "/vacancies/%s"
)

// knownAreas is used when the suggest endpoint is unreachable or returns nothing.
var knownAreas = map[string]string{
	"москва":          "1",
	"санкт-петербург": "2",
	"екатеринбург":    "3",
	"новосибирск":     "4",
	"нижний новгород": "66",
	"казань":          "88",
	"минск":           "1002",
}

type areaSuggestions struct {
	Items []Area `json:"items"`
}

// AreaID resolves a city name into an HH.ru area id. Empty string means the city is unknown
// and search should run without an area.
func (c *Client) AreaID(ctx context.Context, city string) (string, error) {
	key := normalizeCity(city)
	if key == "" {
		return "", nil
	}

	c.areasMu.RLock()
	id, ok := c.areas[key]
	c.areasMu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := c.suggestArea(ctx, key)
	if err != nil {
		c.logger.Warn("area suggestion failed, using built-in areas",
			zap.String("city", key),
			zap.Error(err),
		)
	}
	if id == "" {
		id = knownAreas[key]
	}

	if id != "" {
		c.areasMu.Lock()
		c.areas[key] = id
		c.areasMu.Unlock()
	}

	return id, nil
}

func (c *Client) suggestArea(ctx context.Context, city string) (string, error) {
	// The endpoint requires at least two characters.
	if len([]rune(city)) < 2 {
		return "", nil
	}

	var suggestions areaSuggestions
	q := url.Values{}
	q.Set("text", city)

	if err := c.getJSON(ctx, c.APIURL+AreasSuggestPath, q, &suggestions); err != nil {
		return "", fmt.Errorf("suggest area for %q: %w", city, err)
	}

	if len(suggestions.Items) == 0 {
		return "", nil
	}

	return suggestions.Items[0].ID, nil
}

// GetVacancy returns full vacancy description by id.
func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	if id == "" {
		return nil, fmt.Errorf("vacancy id is empty")
	}

	var vacancy Vacancy
	path := fmt.Sprintf(VacancyPath, url.PathEscape(id))
	if err := c.getJSON(ctx, c.APIURL+path, nil, &vacancy); err != nil {
		return nil, fmt.Errorf("get vacancy %s: %w", id, err)
	}

	return &vacancy, nil
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.Join(strings.Fields(city), " "))
}
