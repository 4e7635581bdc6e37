// Package classify assigns spending categories to imported transactions.
// Known descriptions are served from a persistent cache; the rest go to
// an external text-classification capability in fixed-size batches, with
// retry on rate limits and a sentinel label when everything else fails.
package classify

import (
	"context"
	"errors"
	"strings"
)

// Cache is the persistent (owner, description) → category lookup.
// Lookups are exact and case-sensitive; writes are idempotent upserts.
type Cache interface {
	CachedCategory(ctx context.Context, owner, description string) (string, bool, error)
	CacheCategory(ctx context.Context, owner, description, category string) error
}

// Item is one transaction handed to the classifier.
type Item struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Classifier is the external classification capability. It must return
// one label per item, in item order; unmatched items come back as the
// sentinel label.
type Classifier interface {
	ClassifyBatch(ctx context.Context, items []Item, vocabulary []string) ([]string, error)
}

// ErrRateLimited marks transient provider failures that are worth
// retrying with backoff. Any other classifier error is terminal for the
// batch.
var ErrRateLimited = errors.New("classifier rate limited")

// IsRateLimit reports whether an error is rate-limit class. Providers
// are inconsistent about typed errors, so the raw message is sniffed for
// the usual markers as well.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
