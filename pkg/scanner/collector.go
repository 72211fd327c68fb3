package scanner

import (
	"context"

	"followscope/pkg/logger"
	"followscope/pkg/ratelimit"
	"followscope/pkg/run"
	"followscope/pkg/twitter"
)

// IDFetcher fetches one page of ids
type IDFetcher interface {
	FetchIDs(ctx context.Context, endpoint, userID, cursor string) (*twitter.IDPage, error)
}

// Collector builds the complete id list of one relation
type Collector struct {
	client IDFetcher
	pacer
}

// NewCollector creates a collector. A nil gate uses real time.
func NewCollector(client IDFetcher, gate *ratelimit.Gate, pacing Pacing, log logger.Logger) *Collector {
	return &Collector{client: client, pacer: newPacer(gate, pacing, log)}
}

// Collect pages through endpoint for userID and returns ids in response
// order. A 429 is retried on the same cursor. If tok is cancelled the ids
// collected so far are returned without error.
func (c *Collector) Collect(tok *run.Token, endpoint, userID string, onProgress ProgressFunc) ([]string, error) {
	var ids []string
	cursor := twitter.InitialCursor

	for page := 1; ; page++ {
		if tok.Cancelled() {
			c.logger.InfoWithFields("id collection cancelled", map[string]interface{}{
				"endpoint":  endpoint,
				"collected": len(ids),
			})
			return ids, nil
		}

		resp, err := fetchPage(&c.pacer, tok, endpoint, func(ctx context.Context) (*twitter.IDPage, error) {
			return c.client.FetchIDs(ctx, endpoint, userID, cursor)
		})
		if err != nil {
			if tok.Cancelled() {
				return ids, nil
			}
			return nil, err
		}

		ids = append(ids, resp.IDs...)
		onProgress.emit(Progress{
			Phase:     PhaseCollectingIDs,
			Collected: len(ids),
			Page:      page,
			Message:   endpoint,
		})
		c.logger.DebugWithFields("id page collected", map[string]interface{}{
			"endpoint": endpoint,
			"page":     page,
			"ids":      len(resp.IDs),
			"total":    len(ids),
		})

		if resp.Exhausted() {
			return ids, nil
		}
		cursor = resp.NextCursor

		if err := c.betweenPages(tok); err != nil {
			return ids, nil
		}
	}
}
