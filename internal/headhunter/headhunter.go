package headhunter

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL    = "https://api.hh.ru"
	userAgent = "apoxa-tati/hh-jobs-bot (hh-jobs-bot@users.noreply.github.com)"
	// Max value for search per page.
	maxPerPage = 100
	// Search does not walk further than this unless MaxPages says otherwise.
	defaultMaxPages = 1
)

type Client struct {
	// token is optional. Vacancy search and areas are public endpoints.
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	MaxPages   int

	areasMu sync.RWMutex
	areas   map[string]string
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
		MaxPages:  defaultMaxPages,
		areas:     make(map[string]string),
	}
}
