package headhunter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
)

type ItemResponse struct {
	Items   []Item
	Found   int
	Pages   int
	Page    int
	PerPage int `json:"per_page"`
}

type Item interface{}

// GetItems makes GET request to HeadHunter API and returns items from at most maxPages pages.
func (c *Client) GetItems(ctx context.Context, url string, q url.Values, maxPages int) ([]Item, int, error) {
	var items []Item

	req, err := c.newGetRequest(ctx, url, q)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.request(req)
	if err != nil {
		return nil, 0, err
	}

	response, err := c.parseItemResponse(resp)
	if err != nil {
		return nil, 0, err
	}

	c.logger.Debug("got response from HH.ru",
		zap.Int("found", response.Found),
		zap.Int("pages", response.Pages),
		zap.Int("max items per page", response.PerPage),
	)

	items = append(items, response.Items...)
	fetched := 1

	for response.Page < (response.Pages-1) && fetched < maxPages {
		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", response.Page+1, response.Pages),
		))

		resp, err = c.request(addPage(req, response.Page+1))
		if err != nil {
			return nil, 0, err
		}

		response, err = c.parseItemResponse(resp)
		if err != nil {
			return nil, 0, err
		}

		items = append(items, response.Items...)
		fetched++
	}

	return items, response.Found, nil
}

func (c *Client) parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	var response *ItemResponse
	if err := decodeBody(resp, &response); err != nil {
		return nil, err
	}

	if response == nil {
		return &ItemResponse{}, nil
	}

	return response, nil
}

// getJSON makes GET request and decodes the body into target. A nil target discards the body.
func (c *Client) getJSON(ctx context.Context, url string, q url.Values, target interface{}) error {
	req, err := c.newGetRequest(ctx, url, q)
	if err != nil {
		return err
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}

	return decodeBody(resp, target)
}

func (c *Client) newGetRequest(ctx context.Context, url string, q url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req = c.setHeaders(req)
	// Additional headers. For GET requests only
	req.Header.Set("Content-Type", contentType)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	return req, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	// HH.ru rejects requests without a meaningful agent. HH-User-Agent wins over User-Agent there.
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("HH-User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func decodeBody(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	if target == nil {
		_, err := io.Copy(io.Discard, reader)
		return err
	}

	if err := json.NewDecoder(reader).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// addPage adds page parameter to request URL.
func addPage(req *http.Request, page int) *http.Request {
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	return req
}
