// Package fun fetches the light-hearted content behind /meme, /quote and
// /joke from public APIs. Responses are cached per user and calls are paced
// with a token bucket so a burst of commands cannot hammer the upstreams.
package fun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-streak-bot/internal/cache"
)

// Default upstream endpoints.
const (
	DefaultMemeURL  = "https://meme-api.com/gimme/ProgrammerHumor"
	DefaultQuoteURL = "https://api.quotable.io/random?tags=technology,inspirational"
	DefaultJokeURL  = "https://v2.jokeapi.dev/joke/Programming?blacklistFlags=nsfw,religious,political,racist,sexist,explicit"
)

// ErrUnavailable is returned when upstream data could not be obtained.
var ErrUnavailable = errors.New("content unavailable")

// Meme is a /meme result.
type Meme struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Ups       int    `json:"ups"`
	Subreddit string `json:"subreddit"`
}

// Quote is a /quote result.
type Quote struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// Joke is a /joke result. Single-line jokes set Joke; two-part jokes set
// Setup and Delivery.
type Joke struct {
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
}

// Client fetches fun content.
type Client struct {
	HTTP    *http.Client
	Cache   cache.Cache
	TTL     time.Duration
	Limiter *rate.Limiter

	MemeURL, QuoteURL, JokeURL string
}

// New returns a Client with a pooled HTTP client, a 10s timeout and a
// limiter of 2 requests per second (burst 5).
func New(c cache.Cache, ttl time.Duration) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = 10 * time.Second
	return &Client{
		HTTP:     hc,
		Cache:    c,
		TTL:      ttl,
		Limiter:  rate.NewLimiter(rate.Limit(2), 5),
		MemeURL:  DefaultMemeURL,
		QuoteURL: DefaultQuoteURL,
		JokeURL:  DefaultJokeURL,
	}
}

// Meme returns a programming meme for userID.
func (c *Client) Meme(ctx context.Context, userID string) (*Meme, error) {
	var m Meme
	if err := c.fetch(ctx, c.MemeURL, "meme:"+userID, &m); err != nil {
		return nil, err
	}
	if m.URL == "" {
		return nil, ErrUnavailable
	}
	if m.Title == "" {
		m.Title = "Programming Meme"
	}
	if m.Subreddit == "" {
		m.Subreddit = "ProgrammerHumor"
	}
	return &m, nil
}

// Quote returns an inspirational quote for userID.
func (c *Client) Quote(ctx context.Context, userID string) (*Quote, error) {
	var q Quote
	if err := c.fetch(ctx, c.QuoteURL, "quote:"+userID, &q); err != nil {
		return nil, err
	}
	if q.Content == "" {
		return nil, ErrUnavailable
	}
	return &q, nil
}

// Joke returns a programming joke for userID.
func (c *Client) Joke(ctx context.Context, userID string) (*Joke, error) {
	var j Joke
	if err := c.fetch(ctx, c.JokeURL, "joke:"+userID, &j); err != nil {
		return nil, err
	}
	if j.Joke == "" && (j.Setup == "" || j.Delivery == "") {
		return nil, ErrUnavailable
	}
	return &j, nil
}

// fetch decodes JSON from url into out, consulting the cache first.
func (c *Client) fetch(ctx context.Context, url, key string, out any) error {
	if c.Cache != nil {
		if b, ok := c.Cache.Get(ctx, key); ok {
			if err := json.Unmarshal(b, out); err == nil {
				return nil
			}
		}
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	hc := c.HTTP
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	resp, err := hc.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("fun fetch failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("fun fetch non-200")
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if c.Cache != nil {
		c.Cache.Set(ctx, key, body, c.TTL)
	}
	return nil
}
