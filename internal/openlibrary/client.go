// Package openlibrary retrieves candidate bibliographic records from the
// Open Library search API for spine text matching.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/spinecat/spinecat/internal/models"
)

const defaultBaseURL = "https://openlibrary.org"

// Client is a rate-limited Open Library search client. Open Library asks
// clients to stay polite; the default limiter allows one request per
// second with a small burst.
type Client struct {
	BaseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.BaseURL = strings.TrimRight(baseURL, "/") }
}

// WithRateLimit replaces the default politeness limiter.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithPageSize sets how many documents each search request asks for.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// NewClient creates a new Open Library client
func NewClient(opts ...Option) *Client {
	c := &Client{
		BaseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:  rate.NewLimiter(rate.Limit(1), 3),
		pageSize: 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchDoc is the subset of an Open Library search document we read.
type searchDoc struct {
	Key            string   `json:"key"`
	Title          string   `json:"title"`
	AuthorName     []string `json:"author_name"`
	Publisher      []string `json:"publisher"`
	FirstPublished int      `json:"first_publish_year"`
	ISBN           []string `json:"isbn"`
}

// SearchCandidates queries Open Library with progressively looser
// strategies until one returns documents: the full text as a general
// query, then as a title query, then the leading words as a title query.
// Results are deduplicated by work key across strategies.
func (c *Client) SearchCandidates(ctx context.Context, text string) ([]models.CatalogRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	type strategy struct {
		name  string
		param string
		value string
	}

	strategies := []strategy{
		{"general", "q", text},
		{"title", "title", text},
	}
	if words := strings.Fields(text); len(words) > 4 {
		strategies = append(strategies, strategy{"title_prefix", "title", strings.Join(words[:4], " ")})
	}

	seen := make(map[string]struct{})
	var records []models.CatalogRecord
	var lastErr error

	for _, s := range strategies {
		docs, err := c.search(ctx, s.param, s.value)
		if err != nil {
			lastErr = err
			slog.Warn("Open Library search strategy failed", "strategy", s.name, "error", err)
			continue
		}

		for _, doc := range docs {
			if doc.Key == "" || doc.Title == "" {
				continue
			}
			if _, ok := seen[doc.Key]; ok {
				continue
			}
			seen[doc.Key] = struct{}{}
			records = append(records, docToRecord(doc))
		}

		if len(records) > 0 {
			slog.Debug("Open Library search succeeded", "strategy", s.name, "candidates", len(records))
			break
		}
	}

	if len(records) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all search strategies failed: %w", lastErr)
	}
	return records, nil
}

// search performs one rate-limited request against /search.json.
func (c *Client) search(ctx context.Context, param, value string) ([]searchDoc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	q := url.Values{}
	q.Set(param, value)
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	q.Set("fields", "key,title,author_name,publisher,first_publish_year,isbn")
	searchURL := c.BaseURL + "/search.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from Open Library: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Open Library API returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp struct {
		Docs []searchDoc `json:"docs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode Open Library response: %w", err)
	}

	return searchResp.Docs, nil
}

// docToRecord maps an Open Library document onto the matcher's candidate
// shape. Only the first publisher is kept; the rest travel in RawFields.
func docToRecord(doc searchDoc) models.CatalogRecord {
	rec := models.CatalogRecord{
		Title:      doc.Title,
		Authors:    doc.AuthorName,
		ExternalID: doc.Key,
		RawFields:  map[string]any{},
	}
	if len(doc.Publisher) > 0 {
		rec.Publisher = doc.Publisher[0]
		rec.RawFields["publishers"] = doc.Publisher
	}
	if doc.FirstPublished > 0 {
		rec.RawFields["first_publish_year"] = doc.FirstPublished
	}
	if len(doc.ISBN) > 0 {
		rec.RawFields["isbn"] = doc.ISBN
	}
	if len(rec.RawFields) == 0 {
		rec.RawFields = nil
	}
	return rec
}
