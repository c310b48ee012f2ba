// Package meme fetches a random fun image to attach to reminder
// notifications. The API is free and needs no key; callers degrade to
// FallbackText when the fetch fails.
package meme

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultURL = "https://meme-api.com/gimme"

// FallbackText is used when no image could be fetched.
const FallbackText = "Time to take your pills! Stay healthy!"

type Meme struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type Client struct {
	http *http.Client
	url  string
}

// NewClient returns a client with a short timeout so a hung fetch cannot
// stall the delivery loop.
func NewClient() *Client {
	return &Client{
		http: &http.Client{Timeout: 10 * time.Second},
		url:  defaultURL,
	}
}

// Random fetches a random meme.
func (c *Client) Random(ctx context.Context) (*Meme, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meme: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meme API returned status %d", resp.StatusCode)
	}

	meme := &Meme{}
	if err := json.NewDecoder(resp.Body).Decode(meme); err != nil {
		return nil, fmt.Errorf("failed to decode meme response: %w", err)
	}
	return meme, nil
}
