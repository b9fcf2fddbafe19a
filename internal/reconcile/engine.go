// Package reconcile implements the invoice / delivery-note
// reconciliation engine.
//
// Five independent detection strategies score candidate delivery notes
// for one invoice. Candidates are consolidated per delivery note (best
// evidence wins), categorized against confidence thresholds, and turned
// into a user-facing notification. The engine is purely computational:
// it reads an Input snapshot and returns a Result, and the service
// layer performs every write.
package reconcile

import (
	"sort"
	"sync"
	"time"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
)

// Config carries the tunable thresholds and search windows. The
// categorization thresholds mirror the matching cascade's: they were
// chosen empirically and should be adjusted through configuration, not
// edited here.
type Config struct {
	// AutoLinkThreshold is the minimum consolidated score for an
	// automatic link.
	AutoLinkThreshold float64
	// SuggestThreshold is the minimum consolidated score for a
	// suggestion surfaced to the user.
	SuggestThreshold float64
	// ContentMatchThreshold is the per-line similarity floor used by
	// the product-content strategy.
	ContentMatchThreshold float64
	// TemporalWindowDays bounds the temporal-proximity search.
	TemporalWindowDays int
	// ContentWindowDays bounds the product-content search.
	ContentWindowDays int
	// SweepWindowDays bounds the last-resort sweep.
	SweepWindowDays int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		AutoLinkThreshold:     0.90,
		SuggestThreshold:      0.70,
		ContentMatchThreshold: 0.75,
		TemporalWindowDays:    45,
		ContentWindowDays:     60,
		SweepWindowDays:       90,
	}
}

// Input is the read-only snapshot one reconciliation run operates on:
// the invoice with its lines, the restaurant's supplier-scoped delivery
// notes with their lines, and any learned per-supplier patterns.
type Input struct {
	Invoice  *domain.Invoice
	Notes    []domain.DeliveryNote
	Patterns []domain.LearnedPattern
}

// Candidate is one scored delivery-note candidate.
type Candidate struct {
	DeliveryNoteID string
	Score          float64
	Method         domain.DetectionMethod
	Reasons        []string
	Factors        map[string]any
}

// Category buckets a consolidated candidate by confidence.
type Category string

const (
	CategoryHigh   Category = "high"
	CategoryMedium Category = "medium"
	CategoryLow    Category = "low"
)

// Categorize maps a consolidated score onto a confidence bucket.
func (c Config) Categorize(score float64) Category {
	switch {
	case score >= c.AutoLinkThreshold:
		return CategoryHigh
	case score >= c.SuggestThreshold:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// Result is the outcome of one reconciliation run. AutoLinks and
// Suggestions partition the consolidated candidates that cleared their
// thresholds; Candidates holds every consolidated candidate for the
// detection log regardless of category.
type Result struct {
	Candidates     []Candidate
	AutoLinks      []Candidate
	Suggestions    []Candidate
	RequiresReview bool
	RegisterOrphan bool
	Notification   Notification
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's threshold configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

type strategy func(in Input, now time.Time) []Candidate

// Run executes the five detection strategies concurrently, consolidates
// their candidates, and categorizes the survivors. The strategies only
// read from the Input, so they are safe to fan out; consolidation waits
// for all of them.
func (e *Engine) Run(in Input, now time.Time) Result {
	strategies := []strategy{
		e.explicitReference,
		e.temporalProximity,
		e.productContent,
		e.learnedPatterns,
		e.orphanSweep,
	}

	results := make([][]Candidate, len(strategies))
	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s strategy) {
			defer wg.Done()
			results[i] = s(in, now)
		}(i, s)
	}
	wg.Wait()

	var all []Candidate
	for _, r := range results {
		all = append(all, r...)
	}

	consolidated := consolidate(all)

	res := Result{Candidates: consolidated}
	for _, c := range consolidated {
		switch e.cfg.Categorize(c.Score) {
		case CategoryHigh:
			res.AutoLinks = append(res.AutoLinks, c)
		case CategoryMedium:
			res.Suggestions = append(res.Suggestions, c)
		}
	}
	if len(res.AutoLinks) == 0 && len(res.Suggestions) == 0 {
		res.RequiresReview = len(consolidated) > 0
		res.RegisterOrphan = len(consolidated) == 0
	}
	res.Notification = e.notify(res)
	return res
}

// consolidate keys candidates by delivery note and keeps the
// highest-scoring occurrence per note. Method provenance follows the
// winning score; scores are never merged or averaged. Output is sorted
// by descending score for stable presentation.
func consolidate(cands []Candidate) []Candidate {
	best := make(map[string]Candidate, len(cands))
	for _, c := range cands {
		if cur, ok := best[c.DeliveryNoteID]; !ok || c.Score > cur.Score {
			best[c.DeliveryNoteID] = c
		}
	}
	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DeliveryNoteID < out[j].DeliveryNoteID
	})
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
