package scanner

import (
	"context"
	"fmt"
	"time"

	"followscope/pkg/logger"
	"followscope/pkg/ratelimit"
	"followscope/pkg/run"
	"followscope/pkg/twitter"
)

// StopReason tells why hydration pagination ended
type StopReason string

const (
	StopCursorExhausted StopReason = "cursor_exhausted"
	// StopLoopDetected is a heuristic for the list endpoint returning the
	// same page forever on large accounts. Small accounts that legitimately
	// repeat a page can trip it too.
	StopLoopDetected StopReason = "loop_detected"
	StopPageCap      StopReason = "page_cap"
	StopCancelled    StopReason = "cancelled"
)

// ProfileFetcher fetches one page of user objects
type ProfileFetcher interface {
	FetchProfiles(ctx context.Context, endpoint, userID, cursor string) (*twitter.ProfilePage, error)
}

// HydrateOptions bounds a hydration run
type HydrateOptions struct {
	// MaxPages always ends pagination, default 50
	MaxPages int
	// DuplicatePageLimit is the number of consecutive pages with no unseen
	// profile after which pagination stops, default 3
	DuplicatePageLimit int
	Classifier         Classifier
}

// HydrateResult is the outcome of one hydration run
type HydrateResult struct {
	Profiles   []AccountProfile
	StopReason StopReason
	Pages      int
	// Placeholders counts synthesized records included in Profiles
	Placeholders int
}

// Hydrator fetches full profiles for a relation
type Hydrator struct {
	client ProfileFetcher
	opts   HydrateOptions
	pacer
}

// NewHydrator creates a hydrator. A nil gate uses real time.
func NewHydrator(client ProfileFetcher, gate *ratelimit.Gate, pacing Pacing, opts HydrateOptions, log logger.Logger) *Hydrator {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 50
	}
	if opts.DuplicatePageLimit <= 0 {
		opts.DuplicatePageLimit = 3
	}
	return &Hydrator{client: client, opts: opts, pacer: newPacer(gate, pacing, log)}
}

// Hydrate pages through endpoint, classifying every profile not seen before
// and flushing each page's new profiles through onBatch. Every id in
// knownIDs that never appeared gets a placeholder, flushed the same way.
// Placeholders are skipped when tok is cancelled.
func (h *Hydrator) Hydrate(tok *run.Token, endpoint, userID string, knownIDs []string, onBatch BatchFunc, onProgress ProgressFunc) (*HydrateResult, error) {
	result := &HydrateResult{}
	seen := make(map[string]struct{}, len(knownIDs))
	cursor := twitter.InitialCursor
	duplicatePages := 0

	flush := func(batch []AccountProfile) error {
		if len(batch) == 0 || onBatch == nil {
			return nil
		}
		if err := onBatch(tok.Context(), batch); err != nil {
			return fmt.Errorf("failed to flush %d profiles: %w", len(batch), err)
		}
		return nil
	}

	for {
		if tok.Cancelled() {
			result.StopReason = StopCancelled
			break
		}
		if result.Pages >= h.opts.MaxPages {
			result.StopReason = StopPageCap
			h.logger.WarnWithFields("hydration page cap reached", map[string]interface{}{
				"endpoint":  endpoint,
				"pages":     result.Pages,
				"max_pages": h.opts.MaxPages,
			})
			break
		}

		resp, err := fetchPage(&h.pacer, tok, endpoint, func(ctx context.Context) (*twitter.ProfilePage, error) {
			return h.client.FetchProfiles(ctx, endpoint, userID, cursor)
		})
		if err != nil {
			if tok.Cancelled() {
				result.StopReason = StopCancelled
				break
			}
			return nil, err
		}
		result.Pages++

		var fresh []AccountProfile
		for _, raw := range resp.Users {
			if raw.IDStr == "" {
				continue
			}
			if _, dup := seen[raw.IDStr]; dup {
				continue
			}
			seen[raw.IDStr] = struct{}{}
			fresh = append(fresh, h.opts.Classifier.Classify(raw))
		}

		if len(fresh) == 0 {
			duplicatePages++
		} else {
			duplicatePages = 0
		}

		result.Profiles = append(result.Profiles, fresh...)
		if err := flush(fresh); err != nil {
			return nil, err
		}

		onProgress.emit(Progress{
			Phase:   PhaseScanningUsers,
			Scanned: len(result.Profiles),
			Total:   len(knownIDs),
			Page:    result.Pages,
			Message: endpoint,
		})

		if resp.Exhausted() {
			result.StopReason = StopCursorExhausted
			break
		}
		if duplicatePages >= h.opts.DuplicatePageLimit {
			result.StopReason = StopLoopDetected
			h.logger.WarnWithFields("pagination loop detected, stopping early", map[string]interface{}{
				"endpoint":        endpoint,
				"pages":           result.Pages,
				"duplicate_pages": duplicatePages,
				"hydrated":        len(result.Profiles),
			})
			break
		}
		cursor = resp.NextCursor

		if err := h.betweenPages(tok); err != nil {
			result.StopReason = StopCancelled
			break
		}
	}

	if result.StopReason == StopCancelled {
		return result, nil
	}

	placeholders := h.missing(knownIDs, seen)
	if len(placeholders) > 0 {
		h.logger.InfoWithFields("synthesizing placeholders for ids not returned", map[string]interface{}{
			"endpoint": endpoint,
			"count":    len(placeholders),
		})
		result.Profiles = append(result.Profiles, placeholders...)
		result.Placeholders = len(placeholders)
		if err := flush(placeholders); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (h *Hydrator) missing(knownIDs []string, seen map[string]struct{}) []AccountProfile {
	now := time.Now()
	if h.opts.Classifier.Now != nil {
		now = h.opts.Classifier.Now()
	}

	var out []AccountProfile
	for _, id := range knownIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Placeholder(id, now))
	}
	return out
}
