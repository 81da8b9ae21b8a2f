package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

var ErrAPI = errors.New("newsapi request failed")

type Config struct {
	APIKey   string        `split_words:"true" required:"true"`
	BaseURL  string        `split_words:"true" default:"https://newsapi.org/v2"`
	Language string        `split_words:"true" default:"en"`
	PageSize int           `split_words:"true" default:"10"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

type Article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type response struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []Article `json:"articles"`
}

type Client struct {
	baseURL    string
	apiKey     string
	language   string
	pageSize   int
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("newsapi api key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://newsapi.org/v2"
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid newsapi base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		language:   strings.TrimSpace(cfg.Language),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// TopHeadlines calls /top-headlines for one category. limit <= 0 uses the
// configured page size.
func (c *Client) TopHeadlines(ctx context.Context, category string, limit int) ([]Article, error) {
	if limit <= 0 {
		limit = c.pageSize
	}

	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(limit))
	if category = strings.TrimSpace(category); category != "" {
		q.Set("category", category)
	}
	if c.language != "" {
		q.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build newsapi request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read newsapi response: %w", err)
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response (status=%d): %v", ErrAPI, resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || out.Status != "ok" {
		return nil, fmt.Errorf("%w: status=%d code=%s message=%s", ErrAPI, resp.StatusCode, out.Code, out.Message)
	}

	articles := out.Articles[:0]
	for _, a := range out.Articles {
		if strings.TrimSpace(a.Title) == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}
