// Package services – CatalogService
//
// This file implements the CatalogService, which owns the product catalog of
// a restaurant: the matching cascade that resolves free-text invoice
// descriptors to catalog products, catalog browsing with pagination, and the
// per-product price history. The cascade consults learned relations before
// falling back to fuzzy similarity, and creates a new catalog product when
// nothing acceptable exists, so every purchased descriptor always ends up
// with a canonical product.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/match"
	"github.com/hosteleo/go-invoice-backend/internal/normalize"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
)

// MatchOrigin describes which step of the cascade resolved a product.
type MatchOrigin string

const (
	OriginLearned    MatchOrigin = "learned"
	OriginExact      MatchOrigin = "exact"
	OriginNormalized MatchOrigin = "normalized"
	OriginFuzzy      MatchOrigin = "fuzzy"
	OriginCreated    MatchOrigin = "created"
)

// Match is the outcome of one cascade resolution.
type Match struct {
	Product *domain.CatalogProduct
	Origin  MatchOrigin
	// Score is the similarity score for fuzzy matches, the learned
	// confidence for learned matches, and 1 for the exact tiers.
	Score float64
}

// CatalogService resolves invoice line descriptors to catalog products and
// exposes catalog browsing operations.
type CatalogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// FuzzyThreshold is the minimum similarity score the fuzzy step accepts.
	FuzzyThreshold float64
	// LearnedConfidenceFloor is the minimum learned-relation confidence the
	// cascade trusts without re-scoring.
	LearnedConfidenceFloor float64
}

// NewCatalogService constructs a CatalogService with the default thresholds.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		DB:                     db,
		FuzzyThreshold:         match.DefaultFuzzyThreshold,
		LearnedConfidenceFloor: 0.7,
	}
}

// Resolve runs the matching cascade for one descriptor:
//
//  1. learned relation for the normalized descriptor (skipped below the
//     confidence floor, or when the remembered product no longer exists),
//  2. exact match on the commercial name,
//  3. exact match on the normalized name,
//  4. fuzzy keyword search scored against both names, accepted at or above
//     FuzzyThreshold,
//  5. creation of a new catalog product.
//
// Each step only runs when every earlier step came up empty, so a learned or
// exact hit is never second-guessed by similarity scoring.
func (s *CatalogService) Resolve(ctx context.Context, restaurantID, description string) (*Match, error) {
	tr := otel.Tracer("services/CatalogService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("restaurante.id", restaurantID)),
	)
	defer span.End()

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	m, err := s.Lookup(ctx, restaurantID, description)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}

	// 5) Nothing acceptable: grow the catalog.
	p := &domain.CatalogProduct{
		ID:             uuid.NewString(),
		RestauranteID:  restaurantID,
		NormalizedName: normalize.NormalizeProductName(description),
		CommercialName: description,
		Unit:           normalize.ExtractUnit(description),
	}
	if err := repo.CreateProduct(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return &Match{Product: p, Origin: OriginCreated, Score: 0}, nil
}

// Lookup runs cascade steps 1 through 4 without the catalog-growing step.
// It returns (nil, nil) when no existing product clears the bar, so callers
// that must not create products (ingredient matching, dish review) can tell
// "no match" from an error.
func (s *CatalogService) Lookup(ctx context.Context, restaurantID, description string) (*Match, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	normalized := normalize.NormalizeProductName(description)

	// 1) Learned relation.
	if rel, err := repo.GetRelation(ctx, s.DB, restaurantID, normalized); err == nil {
		if rel.Confidence >= s.LearnedConfidenceFloor {
			p, perr := repo.GetProduct(ctx, s.DB, rel.ProductID, restaurantID)
			if perr == nil {
				return &Match{Product: p, Origin: OriginLearned, Score: rel.Confidence}, nil
			}
			if !errors.Is(perr, repo.ErrNotFound) {
				return nil, perr
			}
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	// 2) Exact commercial name.
	if p, err := repo.FindProductByCommercialName(ctx, s.DB, restaurantID, description); err == nil {
		return &Match{Product: p, Origin: OriginExact, Score: 1}, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	// 3) Exact normalized name.
	if p, err := repo.FindProductByNormalizedName(ctx, s.DB, restaurantID, normalized); err == nil {
		return &Match{Product: p, Origin: OriginNormalized, Score: 1}, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	// 4) Fuzzy keyword search.
	if keywords := match.Keywords(normalized); len(keywords) > 0 {
		candidates, err := repo.SearchProductsByKeywords(ctx, s.DB, restaurantID, keywords)
		if err != nil {
			return nil, err
		}
		var best *domain.CatalogProduct
		bestScore := 0.0
		for i := range candidates {
			score := match.ScoreNames(normalized, candidates[i].CommercialName, candidates[i].NormalizedName)
			if score > bestScore {
				best = &candidates[i]
				bestScore = score
			}
		}
		if best != nil && bestScore >= s.FuzzyThreshold {
			return &Match{Product: best, Origin: OriginFuzzy, Score: bestScore}, nil
		}
	}

	return nil, nil
}

// RecordPurchase appends one purchase observation for a product and
// recomputes its rolling price statistics.
func (s *CatalogService) RecordPurchase(ctx context.Context, h *domain.PriceHistory) error {
	return repo.RecordPurchase(ctx, s.DB, h)
}

// Get fetches one catalog product by ID within the restaurant scope.
func (s *CatalogService) Get(ctx context.Context, restaurantID, productID string) (*domain.CatalogProduct, error) {
	p, err := repo.GetProduct(ctx, s.DB, productID, restaurantID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// ListPage returns a page of catalog products with the total count.
// It applies defaults for invalid page/pageSize values.
func (s *CatalogService) ListPage(ctx context.Context, restaurantID string, page, pageSize int) ([]domain.CatalogProduct, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountProducts(ctx, s.DB, restaurantID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CatalogProduct{}, 0, nil
	}

	items, err := repo.ListProductsPage(ctx, s.DB, restaurantID, offset, pageSize)
	return items, total, err
}

// Search scores the whole keyword result set against the query and returns
// the candidates at or above the fuzzy threshold, best first.
func (s *CatalogService) Search(ctx context.Context, restaurantID, query string) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyDescription
	}
	normalized := normalize.NormalizeProductName(query)
	keywords := match.Keywords(normalized)
	if len(keywords) == 0 {
		return []Match{}, nil
	}
	candidates, err := repo.SearchProductsByKeywords(ctx, s.DB, restaurantID, keywords)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(candidates))
	for i := range candidates {
		score := match.ScoreNames(normalized, candidates[i].CommercialName, candidates[i].NormalizedName)
		if score >= s.FuzzyThreshold {
			out = append(out, Match{Product: &candidates[i], Origin: OriginFuzzy, Score: score})
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// PriceHistory returns the most recent purchase observations for a product,
// newest first.
func (s *CatalogService) PriceHistory(ctx context.Context, restaurantID, productID string, limit int) ([]domain.PriceHistory, error) {
	if _, err := s.Get(ctx, restaurantID, productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return repo.ListPriceHistory(ctx, s.DB, productID, restaurantID, limit)
}
