// Package finnhub fetches category news from the Finnhub REST API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codewith-lab/forexfeed/models"
)

const (
	// DefaultBaseURL is the production news endpoint.
	DefaultBaseURL = "https://finnhub.io/api/v1/news"

	requestTimeout = 30 * time.Second

	// maxArticles bounds per-cycle work; with a one-minute cadence more
	// than ten new articles between polls is rare.
	maxArticles = 10

	// 4MB cap on the response body, same idea as the feed reader's limit.
	maxBodyBytes = 4 << 20
)

// Client issues one bounded GET per cycle. It never returns an error to
// its caller: every failure degrades to an empty result, so "nothing new"
// and "fetch failed" look the same upstream (the log line tells them
// apart).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewClient(apiKey string, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log,
	}
}

// NewClientWithBaseURL exists for tests against a local fake server.
func NewClientWithBaseURL(baseURL, apiKey string, log *logrus.Logger) *Client {
	c := NewClient(apiKey, log)
	c.baseURL = baseURL
	return c
}

// FetchLatest returns at most maxArticles articles for the category with
// ids at or above minID, newest first by datetime. A missing datetime
// sorts as zero, i.e. oldest.
func (c *Client) FetchLatest(ctx context.Context, category string, minID int64) []models.Article {
	articles, err := c.fetch(ctx, category, minID)
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"category": category,
			"min_id":   minID,
		}).Error("fetching news failed, treating as empty")
		return nil
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Datetime > articles[j].Datetime
	})
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}
	return articles
}

func (c *Client) fetch(ctx context.Context, category string, minID int64) ([]models.Article, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("minId", fmt.Sprintf("%d", minID))
	q.Set("token", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var articles []models.Article
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&articles); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return articles, nil
}
