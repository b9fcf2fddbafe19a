// Package feedback implements the session-scoped buffer that collects
// ingredient-matching decisions before they are flushed to the learning
// backend.
//
// A Buffer belongs to one interactive session. It is deliberately not a
// shared singleton: handlers receive the session's buffer explicitly,
// and concurrent documents never touch each other's entries.
package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// Entry is one buffered decision about a (dish, ingredient) pair.
type Entry struct {
	Dish       string
	Ingredient string
	Kind       domain.FeedbackKind

	// ProductID is the confirmed or corrected product. Empty for
	// rejections.
	ProductID string
	// PreviousProductID is the product the cascade had suggested before
	// a user correction replaced it.
	PreviousProductID string
	// RejectedProductID is the product the user marked as unavailable.
	RejectedProductID string

	SuggestedCategory string
	RecordedAt        time.Time
}

type key struct {
	dish       string
	ingredient string
}

// Sink receives flushed batches. The learning service implements it.
type Sink interface {
	SaveBatch(ctx context.Context, entries []Entry) error
}

// Buffer holds at most one pending entry per (dish, ingredient) key.
// Later decisions for the same key overwrite earlier ones, so the batch
// a flush sends reflects the user's final word on each ingredient.
type Buffer struct {
	mu      sync.Mutex
	entries map[key]Entry
}

func NewBuffer() *Buffer {
	return &Buffer{entries: make(map[key]Entry)}
}

// Confirm records that the user accepted the suggested product.
func (b *Buffer) Confirm(dish, ingredient, productID string) {
	b.put(Entry{
		Dish:       dish,
		Ingredient: ingredient,
		Kind:       domain.FeedbackUserConfirm,
		ProductID:  productID,
	})
}

// AutoConfirm pre-seeds the buffer with the cascade's own match so a
// user who reviews nothing still contributes a training signal. Tagged
// separately so the learning backend can weight it below explicit
// confirmations. It never overwrites a decision the user already made.
func (b *Buffer) AutoConfirm(dish, ingredient, productID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{dish, ingredient}
	if _, taken := b.entries[k]; taken {
		return
	}
	b.entries[k] = Entry{
		Dish:       dish,
		Ingredient: ingredient,
		Kind:       domain.FeedbackAutoConfirm,
		ProductID:  productID,
		RecordedAt: time.Now(),
	}
}

// Correct records that the user picked a different product than the
// cascade suggested.
func (b *Buffer) Correct(dish, ingredient, productID, previousProductID string) {
	b.put(Entry{
		Dish:              dish,
		Ingredient:        ingredient,
		Kind:              domain.FeedbackUserCorrection,
		ProductID:         productID,
		PreviousProductID: previousProductID,
	})
}

// SuggestCategory records that the user proposed a category for the
// matched product. Suggestions are advisory: they are persisted for
// catalog curation but carry no match signal.
func (b *Buffer) SuggestCategory(dish, ingredient, productID, category string) {
	b.put(Entry{
		Dish:              dish,
		Ingredient:        ingredient,
		Kind:              domain.FeedbackCategorySuggestion,
		ProductID:         productID,
		SuggestedCategory: category,
	})
}

// Reject records that the user marked the ingredient as unavailable.
func (b *Buffer) Reject(dish, ingredient, rejectedProductID string) {
	b.put(Entry{
		Dish:              dish,
		Ingredient:        ingredient,
		Kind:              domain.FeedbackUserRejection,
		RejectedProductID: rejectedProductID,
	})
}

func (b *Buffer) put(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.RecordedAt = time.Now()
	b.entries[key{e.Dish, e.Ingredient}] = e
}

// Len reports the number of pending entries for one dish.
func (b *Buffer) Len(dish string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k := range b.entries {
		if k.dish == dish {
			n++
		}
	}
	return n
}

// Pending returns a copy of the buffered entries for one dish.
func (b *Buffer) Pending(dish string) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Entry
	for k, e := range b.entries {
		if k.dish == dish {
			out = append(out, e)
		}
	}
	return out
}

// Flush sends the dish's entries to the sink as one batch, then clears
// only the flushed keys. Entries for other dishes stay buffered. On
// sink failure nothing is cleared, so the batch can be retried.
//
// The lock is released while the sink runs. A decision recorded during
// that window replaces the snapshotted entry, so clearing only removes
// keys whose entry is still the one the sink received.
func (b *Buffer) Flush(ctx context.Context, dish string, sink Sink) (int, error) {
	batch := b.Pending(dish)
	if len(batch) == 0 {
		return 0, nil
	}
	if err := sink.SaveBatch(ctx, batch); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range batch {
		k := key{e.Dish, e.Ingredient}
		if cur, ok := b.entries[k]; ok && cur != e {
			continue
		}
		delete(b.entries, k)
	}
	return len(batch), nil
}
