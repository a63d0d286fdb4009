// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// USAGE MONITORING
// =============================================================================

// UsageDay aggregates one day of backend usage.
type UsageDay struct {
	Date         string  `json:"date"`
	Requests     int     `json:"requests"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// UsageSummary is the backend's usage report for a day range.
type UsageSummary struct {
	Days         []UsageDay `json:"days"`
	TotalCostUSD float64    `json:"total_cost_usd"`
}

// UsageEvent is one request in the detailed usage log.
type UsageEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Mode         string    `json:"mode"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
}

// UsageEventsPage is one page of the detailed usage log.
type UsageEventsPage struct {
	Events  []UsageEvent `json:"events"`
	Total   int          `json:"total"`
	Offset  int          `json:"offset"`
	HasMore bool         `json:"has_more"`
}

// Usage returns aggregated usage for the inclusive day range [from, to],
// both formatted as YYYY-MM-DD.
func (c *Client) Usage(ctx context.Context, from, to string) (*UsageSummary, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	var summary UsageSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/usage?"+q.Encode(), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// UsageEvents returns one page of the detailed usage log.
func (c *Client) UsageEvents(ctx context.Context, offset, limit int) (*UsageEventsPage, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprintf("%d", offset))
	q.Set("limit", fmt.Sprintf("%d", limit))
	var page UsageEventsPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/usage/events?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// =============================================================================
// USAGE POLLER
// =============================================================================

// UsagePoller periodically refreshes the last-week usage summary. A rate
// limiter caps how often the backend is hit even when multiple refreshes are
// requested in a burst.
type UsagePoller struct {
	fetcher  UsageFetcher
	limiter  *rate.Limiter
	onUpdate func(*UsageSummary)
	onError  func(error)
}

// UsageFetcher is the subset of Client the poller needs.
type UsageFetcher interface {
	Usage(ctx context.Context, from, to string) (*UsageSummary, error)
}

// NewUsagePoller creates a poller. minInterval is the floor between backend
// hits; onUpdate receives each fresh summary. onError may be nil.
func NewUsagePoller(fetcher UsageFetcher, minInterval time.Duration, onUpdate func(*UsageSummary), onError func(error)) *UsagePoller {
	return &UsagePoller{
		fetcher:  fetcher,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		onUpdate: onUpdate,
		onError:  onError,
	}
}

// Run polls until the context is canceled. Each tick waits on the limiter, so
// ticks that arrive faster than minInterval collapse.
func (p *UsagePoller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Prime immediately so the UI has data at startup.
	p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Refresh fetches a fresh summary subject to the rate limit.
func (p *UsagePoller) Refresh(ctx context.Context) {
	p.refresh(ctx)
}

func (p *UsagePoller) refresh(ctx context.Context) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -6)
	summary, err := p.fetcher.Usage(ctx, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		if p.onError != nil {
			p.onError(err)
		}
		return
	}
	if p.onUpdate != nil {
		p.onUpdate(summary)
	}
}
