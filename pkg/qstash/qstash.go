package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

type Config struct {
	URL     string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token   string        `split_words:"true" required:"true"`
	Retries int           `split_words:"true" default:"3"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	token      string
	retries    int
	httpClient *http.Client
}

type publishResponse struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("qstash token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		retries: cfg.Retries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Publish enqueues payload as JSON for delivery to destination and returns
// the QStash message id. Delivery itself happens asynchronously.
func (c *Client) Publish(ctx context.Context, destination string, payload any) (string, error) {
	destination = strings.TrimSpace(destination)
	if _, err := url.ParseRequestURI(destination); err != nil {
		return "", fmt.Errorf("invalid qstash destination %q: %w", destination, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal qstash payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/publish/"+destination, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build qstash request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.retries >= 0 {
		req.Header.Set("Upstash-Retries", fmt.Sprint(c.retries))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qstash publish: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read qstash response: %w", err)
	}

	var out publishResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < http.StatusBadRequest {
			return "", fmt.Errorf("decode qstash response: %w", err)
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("qstash publish status=%d: %s", resp.StatusCode, msg)
	}
	return out.MessageID, nil
}
