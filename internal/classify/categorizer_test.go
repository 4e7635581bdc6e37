package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"takziv/internal/core"
)

type fakeCache struct {
	entries map[string]string
	writes  []string
	lookErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) key(owner, description string) string {
	return owner + "|" + description
}

func (f *fakeCache) CachedCategory(_ context.Context, owner, description string) (string, bool, error) {
	if f.lookErr != nil {
		return "", false, f.lookErr
	}
	label, ok := f.entries[f.key(owner, description)]
	return label, ok, nil
}

func (f *fakeCache) CacheCategory(_ context.Context, owner, description, category string) error {
	f.entries[f.key(owner, description)] = category
	f.writes = append(f.writes, description)
	return nil
}

// fakeClassifier replays a scripted sequence of responses, one per call.
type fakeClassifier struct {
	calls     int
	responses []func(items []Item) ([]string, error)
}

func (f *fakeClassifier) ClassifyBatch(_ context.Context, items []Item, _ []string) ([]string, error) {
	if f.calls >= len(f.responses) {
		return nil, fmt.Errorf("unexpected call %d", f.calls)
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp(items)
}

func labelAll(label string) func(items []Item) ([]string, error) {
	return func(items []Item) ([]string, error) {
		labels := make([]string, len(items))
		for i := range labels {
			labels[i] = label
		}
		return labels, nil
	}
}

func failWith(err error) func(items []Item) ([]string, error) {
	return func([]Item) ([]string, error) { return nil, err }
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) {
	s.delays = append(s.delays, d)
}

func tx(description string, cents int64) core.Transaction {
	return core.Transaction{
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      core.Money{Cents: cents},
	}
}

func TestCategorizeDegradedWithoutClassifier(t *testing.T) {
	cache := newFakeCache()
	cache.entries[cache.key("dana", "שופרסל")] = "Groceries"

	c := NewCategorizer(cache, nil)
	out, warnings := c.Categorize(context.Background(), "dana", []core.Transaction{
		tx("שופרסל", 12050),
		tx("Netflix", 3990),
	}, []string{"Groceries", "Fun"})

	if out[0].Category != "Groceries" {
		t.Fatalf("cached transaction got %q, want Groceries", out[0].Category)
	}
	if out[1].Category != core.Uncategorized {
		t.Fatalf("uncached transaction got %q, want %q", out[1].Category, core.Uncategorized)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(cache.writes) != 0 {
		t.Fatalf("degraded mode must not write to cache, wrote %v", cache.writes)
	}
}

func TestCategorizeWritesCachePerBatch(t *testing.T) {
	cache := newFakeCache()
	classifier := &fakeClassifier{responses: []func([]Item) ([]string, error){
		labelAll("Groceries"),
	}}
	sr := &sleepRecorder{}

	c := NewCategorizer(cache, classifier, WithSleep(sr.sleep))
	out, warnings := c.Categorize(context.Background(), "dana", []core.Transaction{
		tx("שופרסל", 12050),
		tx("רמי לוי", 8000),
	}, []string{"Groceries", "Fun"})

	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	for i, want := range []string{"Groceries", "Groceries"} {
		if out[i].Category != want {
			t.Fatalf("transaction %d got %q, want %q", i, out[i].Category, want)
		}
	}
	if len(cache.writes) != 2 {
		t.Fatalf("expected 2 cache writes, got %v", cache.writes)
	}
	if len(sr.delays) != 0 {
		t.Fatalf("single batch must not pace, slept %v", sr.delays)
	}
}

func TestCategorizeRateLimitRetriesThenDegrades(t *testing.T) {
	cache := newFakeCache()
	rateErr := fmt.Errorf("quota: %w", ErrRateLimited)
	classifier := &fakeClassifier{responses: []func([]Item) ([]string, error){
		labelAll("Groceries"), // batch 1 succeeds
		failWith(rateErr),     // batch 2, attempt 1
		failWith(rateErr),     // attempt 2
		failWith(rateErr),     // attempt 3, exhausted
	}}
	sr := &sleepRecorder{}

	txs := make([]core.Transaction, 0, BatchSize+2)
	for i := 0; i < BatchSize+2; i++ {
		txs = append(txs, tx(fmt.Sprintf("merchant %d", i), 1000))
	}

	c := NewCategorizer(cache, classifier, WithSleep(sr.sleep))
	out, warnings := c.Categorize(context.Background(), "dana", txs, []string{"Groceries"})

	for i := 0; i < BatchSize; i++ {
		if out[i].Category != "Groceries" {
			t.Fatalf("batch 1 transaction %d got %q", i, out[i].Category)
		}
	}
	for i := BatchSize; i < len(out); i++ {
		if out[i].Category != core.Uncategorized {
			t.Fatalf("failed batch transaction %d got %q, want %q", i, out[i].Category, core.Uncategorized)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if len(cache.writes) != BatchSize {
		t.Fatalf("batch 1 cache writes must survive, got %d", len(cache.writes))
	}
	// Pacing after batch 1 plus two backoffs with doubling.
	want := []time.Duration{pacingDelay, baseRetryDelay, 2 * baseRetryDelay}
	if len(sr.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sr.delays, want)
	}
	for i := range want {
		if sr.delays[i] != want[i] {
			t.Fatalf("delay %d = %v, want %v", i, sr.delays[i], want[i])
		}
	}
	if classifier.calls != 4 {
		t.Fatalf("expected 4 classifier calls, got %d", classifier.calls)
	}
}

func TestCategorizeHardFailureDoesNotRetry(t *testing.T) {
	cache := newFakeCache()
	classifier := &fakeClassifier{responses: []func([]Item) ([]string, error){
		failWith(errors.New("model returned garbage")),
	}}
	sr := &sleepRecorder{}

	c := NewCategorizer(cache, classifier, WithSleep(sr.sleep))
	out, warnings := c.Categorize(context.Background(), "dana", []core.Transaction{
		tx("Netflix", 3990),
	}, []string{"Fun"})

	if out[0].Category != core.Uncategorized {
		t.Fatalf("got %q, want %q", out[0].Category, core.Uncategorized)
	}
	if classifier.calls != 1 {
		t.Fatalf("hard failure must not retry, got %d calls", classifier.calls)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if len(sr.delays) != 0 {
		t.Fatalf("unexpected sleeps %v", sr.delays)
	}
}

func TestCategorizeCountMismatchFailsBatch(t *testing.T) {
	cache := newFakeCache()
	classifier := &fakeClassifier{responses: []func([]Item) ([]string, error){
		func(items []Item) ([]string, error) {
			return []string{"Fun"}, nil // one label for two items
		},
	}}

	c := NewCategorizer(cache, classifier, WithSleep((&sleepRecorder{}).sleep))
	out, warnings := c.Categorize(context.Background(), "dana", []core.Transaction{
		tx("Netflix", 3990),
		tx("Spotify", 1990),
	}, []string{"Fun"})

	for i := range out {
		if out[i].Category != core.Uncategorized {
			t.Fatalf("transaction %d got %q, want %q", i, out[i].Category, core.Uncategorized)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
	if classifier.calls != 1 {
		t.Fatalf("mismatch must not retry, got %d calls", classifier.calls)
	}
	if len(cache.writes) != 0 {
		t.Fatalf("failed batch must not write to cache, wrote %v", cache.writes)
	}
}

func TestCategorizeCoercesUnknownLabels(t *testing.T) {
	cache := newFakeCache()
	classifier := &fakeClassifier{responses: []func([]Item) ([]string, error){
		func(items []Item) ([]string, error) {
			return []string{"Snacks"}, nil // not in the vocabulary
		},
	}}

	c := NewCategorizer(cache, classifier, WithSleep((&sleepRecorder{}).sleep))
	out, _ := c.Categorize(context.Background(), "dana", []core.Transaction{
		tx("קיוסק", 1200),
	}, []string{"Groceries", "Fun"})

	if out[0].Category != core.Uncategorized {
		t.Fatalf("got %q, want %q", out[0].Category, core.Uncategorized)
	}
	if len(cache.writes) != 0 {
		t.Fatalf("coerced label must not be cached, wrote %v", cache.writes)
	}
}

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sentinel", ErrRateLimited, true},
		{"wrapped sentinel", fmt.Errorf("call: %w", ErrRateLimited), true},
		{"status code in message", errors.New("googleapi: Error 429: quota exceeded"), true},
		{"resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"other error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimit(tt.err); got != tt.want {
				t.Fatalf("IsRateLimit(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
