package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/aguntuk/jobora/internal/model"
)

// Fetcher retrieves documents with a fixed retry count and linear backoff.
// A shared rate limiter keeps the scraper polite across adapters.
type Fetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFetcher wires a fetcher. retries is the number of additional attempts
// after the first failure; backoff is the delay before the first retry,
// growing linearly (backoff, 2×backoff, ...).
func NewFetcher(client *http.Client, retries int, backoff time.Duration, limiter *rate.Limiter, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		retries: retries,
		backoff: backoff,
		limiter: limiter,
		logger:  logger,
	}
}

// FetchDocument retrieves url and parses it as HTML.
func (f *Fetcher) FetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", url, err)
	}
	return doc, nil
}

// FetchText retrieves url and returns the raw body as a string. Used for
// best-effort detail fetches during enrichment.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read body %s: %w", url, err)
	}
	return string(data), nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * f.backoff
			f.logger.Warn("retrying fetch",
				"url", url,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		body, err := f.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "jobora/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &model.HTTPError{StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}
