package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"takziv/internal/core"
	applog "takziv/internal/log"
)

const (
	// BatchSize is how many uncached transactions go into one
	// classification request.
	BatchSize = 15

	// maxAttempts bounds the retry loop for rate-limited batches,
	// counting the first try.
	maxAttempts = 3

	// baseRetryDelay is the initial backoff, doubled on every retry.
	baseRetryDelay = 2 * time.Second

	// pacingDelay is applied between batches regardless of outcome.
	// Throttling only, not correctness-bearing.
	pacingDelay = 1 * time.Second
)

// Categorizer fills in transaction categories from the cache, falling
// back to the external classifier for misses.
type Categorizer struct {
	cache      Cache
	classifier Classifier // nil means degraded mode
	sleep      func(context.Context, time.Duration)
	log        *slog.Logger
}

// Option customizes a Categorizer; used by tests to stub time.
type Option func(*Categorizer)

// WithSleep replaces the delay function.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(c *Categorizer) { c.sleep = sleep }
}

// NewCategorizer builds a categorizer. A nil classifier is allowed and
// puts the categorizer in degraded mode: cache hits keep their label,
// everything else becomes Uncategorized.
func NewCategorizer(cache Cache, classifier Classifier, opts ...Option) *Categorizer {
	c := &Categorizer{
		cache:      cache,
		classifier: classifier,
		sleep:      sleepCtx,
		log:        applog.ForComponent(applog.ComponentClassify),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryState is the bounded backoff machine for one batch: success ends
// it, a transient failure waits and doubles the delay while attempts
// remain, anything else degrades the batch immediately.
type retryState struct {
	attempt int
	delay   time.Duration
}

// Categorize returns a copy of the transactions with categories filled
// in, plus human-readable warnings for batches that degraded. Row-level
// and classification-level failures never abort the run; transactions
// classified before a failing batch keep their labels and cache writes.
func (c *Categorizer) Categorize(ctx context.Context, owner core.Owner, txs []core.Transaction, vocabulary []string) ([]core.Transaction, []string) {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)

	// Cache pass first.
	var uncached []int
	for i := range out {
		label, ok, err := c.cache.CachedCategory(ctx, string(owner), out[i].Description)
		if err != nil {
			c.log.WarnContext(ctx, "Classification cache lookup failed",
				"description", out[i].Description, applog.FieldError, err)
			ok = false
		}
		if ok {
			out[i].Category = label
			continue
		}
		uncached = append(uncached, i)
	}

	if len(uncached) == 0 {
		return out, nil
	}

	// Degraded mode: no classifier, no cache writes for guesses.
	if c.classifier == nil {
		for _, i := range uncached {
			out[i].Category = core.Uncategorized
		}
		return out, nil
	}

	allowed := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		allowed[v] = true
	}

	var warnings []string
	for start := 0; start < len(uncached); start += BatchSize {
		end := start + BatchSize
		if end > len(uncached) {
			end = len(uncached)
		}
		batch := uncached[start:end]
		batchNo := start/BatchSize + 1

		labels, warn := c.classifyBatch(ctx, batchNo, out, batch, vocabulary)
		if warn != "" {
			warnings = append(warnings, warn)
		}

		for j, i := range batch {
			label := core.Uncategorized
			if labels != nil {
				if l := labels[j]; allowed[l] {
					label = l
				}
			}
			out[i].Category = label
			if label == core.Uncategorized {
				continue
			}
			// Write through per batch so a later run benefits even if a
			// subsequent batch fails.
			if err := c.cache.CacheCategory(ctx, string(owner), out[i].Description, label); err != nil {
				c.log.WarnContext(ctx, "Classification cache write failed",
					"description", out[i].Description, applog.FieldCategory, label,
					applog.FieldError, err)
			}
		}

		if end < len(uncached) {
			c.sleep(ctx, pacingDelay)
		}
	}

	return out, warnings
}

// classifyBatch runs one batch through the retry machine. It returns the
// labels on success, or nil plus a warning when the batch degraded.
func (c *Categorizer) classifyBatch(ctx context.Context, batchNo int, txs []core.Transaction, batch []int, vocabulary []string) ([]string, string) {
	items := make([]Item, len(batch))
	for j, i := range batch {
		items[j] = Item{
			Description: txs[i].Description,
			Amount:      txs[i].Amount.Amount(),
		}
	}

	state := retryState{attempt: 1, delay: baseRetryDelay}
	for {
		labels, err := c.classifier.ClassifyBatch(ctx, items, vocabulary)
		if err == nil {
			if len(labels) != len(items) {
				return nil, fmt.Sprintf("batch %d: classifier returned %d labels for %d items", batchNo, len(labels), len(items))
			}
			return labels, ""
		}

		if !IsRateLimit(err) {
			c.log.WarnContext(ctx, "Classification batch failed",
				applog.FieldBatch, batchNo, applog.FieldError, err)
			return nil, fmt.Sprintf("batch %d: classification failed: %v", batchNo, err)
		}

		if state.attempt >= maxAttempts {
			c.log.WarnContext(ctx, "Classification rate limit retries exhausted",
				applog.FieldBatch, batchNo, "attempts", state.attempt)
			return nil, fmt.Sprintf("batch %d: rate limited, %d attempts exhausted", batchNo, state.attempt)
		}

		c.log.InfoContext(ctx, "Classification rate limited, backing off",
			applog.FieldBatch, batchNo, "attempt", state.attempt, "delay", state.delay)
		c.sleep(ctx, state.delay)
		state.attempt++
		state.delay *= 2
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
