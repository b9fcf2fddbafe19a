// Package services – SupplierService
//
// This file implements the SupplierService, which resolves the supplier
// block extracted from an invoice to a canonical supplier record. The tax ID
// (CIF/NIF) is authoritative when present; name matching is only a fallback
// for tax-ID-less extractions and never merges records across different tax
// IDs. The service also carries the buyer/seller guard: an extraction whose
// supplier tax ID is the restaurant's own tax ID read the buyer block of the
// invoice, and is rejected with ErrBuyerAsSupplier so the caller can retry
// the extraction once.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/match"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
)

// SupplierService resolves extracted supplier data to canonical suppliers.
type SupplierService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// normalizeTaxID uppercases and strips separators so that "b-12.345.678"
// and "B12345678" compare equal.
func normalizeTaxID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", ".", "", " ", "").Replace(s)
	return s
}

// Resolve maps an extracted (name, taxID) pair to a canonical supplier for
// the restaurant, creating one when nothing matches.
//
// Resolution order:
//   - The restaurant's own tax ID, or a tax ID registered to any other
//     restaurant, is rejected with ErrBuyerAsSupplier.
//   - A tax ID match wins outright, whatever the extracted name looks like;
//     the stored name stands and name drift is only logged.
//   - Without a tax ID (or when no supplier carries it yet), the normalized
//     name is compared against existing suppliers; a name hit with a
//     conflicting stored tax ID is not merged.
//   - Otherwise a new supplier row is created.
func (s *SupplierService) Resolve(ctx context.Context, restaurantID, name, taxID string) (*domain.Supplier, error) {
	tr := otel.Tracer("services/SupplierService")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(attribute.String("restaurante.id", restaurantID)),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	taxID = normalizeTaxID(taxID)

	restaurant, err := repo.GetRestaurant(ctx, s.DB, restaurantID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}

	if taxID != "" {
		if normalizeTaxID(restaurant.TaxID) == taxID {
			return nil, ErrBuyerAsSupplier
		}
		// A tax ID registered to another restaurant is a buyer-block read
		// too: suppliers are not restaurants.
		other, err := repo.TaxIDUsedByOtherRestaurant(ctx, s.DB, restaurantID, taxID)
		if err != nil {
			return nil, err
		}
		if other {
			return nil, ErrBuyerAsSupplier
		}

		sup, err := repo.FindSupplierByTaxID(ctx, s.DB, restaurantID, taxID)
		if err == nil {
			if name != "" && !match.SupplierNamesMatch(sup.Name, name) {
				log.Warn().
					Str("supplier_id", sup.ID).
					Str("stored_name", sup.Name).
					Str("extracted_name", name).
					Msg("supplier name drift on tax ID match")
			}
			return sup, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}

	// Name fallback. Only suppliers whose stored tax ID does not conflict
	// with the extracted one are eligible.
	if name != "" {
		suppliers, err := repo.ListSuppliers(ctx, s.DB, restaurantID)
		if err != nil {
			return nil, err
		}
		for i := range suppliers {
			if !match.SupplierNamesMatch(suppliers[i].Name, name) {
				continue
			}
			stored := ""
			if suppliers[i].TaxID != nil {
				stored = normalizeTaxID(*suppliers[i].TaxID)
			}
			if taxID != "" && stored != "" && stored != taxID {
				continue
			}
			return &suppliers[i], nil
		}
	}

	sup := &domain.Supplier{
		ID:             uuid.NewString(),
		RestauranteID:  restaurantID,
		Name:           name,
		NormalizedName: match.NormalizeSupplierName(name),
	}
	if taxID != "" {
		sup.TaxID = &taxID
	}
	if err := repo.CreateSupplier(ctx, s.DB, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

// TouchInvoice bumps the supplier's invoice counter and last invoice date.
func (s *SupplierService) TouchInvoice(ctx context.Context, supplierID, restaurantID string, invoiceDate time.Time) error {
	return repo.TouchSupplierInvoice(ctx, s.DB, supplierID, restaurantID, invoiceDate)
}

// List returns every supplier of the restaurant ordered by name.
func (s *SupplierService) List(ctx context.Context, restaurantID string) ([]domain.Supplier, error) {
	return repo.ListSuppliers(ctx, s.DB, restaurantID)
}
