// Package services – DocumentService
//
// This file implements the DocumentService, the application-level component
// that owns the document ingestion pipeline: store the uploaded PDF, run OCR,
// ask the extraction model for structured fields, build the canonical invoice
// with completed prices, resolve every line to a catalog product, resolve the
// supplier, and persist the whole aggregate. External-dependency failures
// finalize the document in an error status instead of losing the upload.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// restaurant and document identifiers.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/extract"
	"github.com/hosteleo/go-invoice-backend/internal/llm"
	"github.com/hosteleo/go-invoice-backend/internal/normalize"
	"github.com/hosteleo/go-invoice-backend/internal/ocr"
	"github.com/hosteleo/go-invoice-backend/internal/pricing"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
	"github.com/hosteleo/go-invoice-backend/internal/storage"
)

// OCRProcessor turns an uploaded file into a text document.
type OCRProcessor interface {
	Process(ctx context.Context, fileBytes []byte, mimeType string) (*ocr.Document, error)
}

// FieldExtractor turns OCR text into the raw extraction JSON.
type FieldExtractor interface {
	ExtractInvoiceFields(ctx context.Context, documentText string) ([]byte, error)
}

// DocumentService coordinates upload, extraction, and persistence of
// invoices.
type DocumentService struct {
	DB        *gorm.DB
	Store     storage.Store
	OCR       OCRProcessor
	Extractor FieldExtractor
	Catalog   *CatalogService
	Suppliers *SupplierService

	// MaxUploadBytes caps accepted uploads; zero disables the cap.
	MaxUploadBytes int
	// IdempotencyTTL bounds how long an Idempotency-Key replays the same
	// document instead of processing a second copy.
	IdempotencyTTL time.Duration
}

// NewDocumentService wires a DocumentService with its collaborators.
func NewDocumentService(db *gorm.DB, store storage.Store, ocrClient OCRProcessor, extractor FieldExtractor) *DocumentService {
	return &DocumentService{
		DB:             db,
		Store:          store,
		OCR:            ocrClient,
		Extractor:      extractor,
		Catalog:        NewCatalogService(db),
		Suppliers:      &SupplierService{DB: db},
		MaxUploadBytes: 20 << 20,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// ProcessInvoice runs the full ingestion pipeline for one uploaded invoice
// PDF and returns the persisted invoice.
//
// When idemKey is non-empty and a live idempotency record exists for it, the
// previously produced invoice is returned and nothing is reprocessed.
//
// External failures (storage, OCR, extraction model) persist the document in
// an error status and return the underlying error: the upload is never lost,
// and a later retry can pick the document up from the error state.
func (s *DocumentService) ProcessInvoice(ctx context.Context, restaurantID, idemKey, filename string, fileBytes []byte) (*domain.Invoice, error) {
	tr := otel.Tracer("services/DocumentService")
	ctx, span := tr.Start(ctx, "ProcessInvoice",
		trace.WithAttributes(attribute.String("restaurante.id", restaurantID)),
	)
	defer span.End()

	if len(fileBytes) == 0 {
		return nil, ErrEmptyDocument
	}
	if s.MaxUploadBytes > 0 && len(fileBytes) > s.MaxUploadBytes {
		return nil, ErrDocumentTooLarge
	}

	if idemKey != "" {
		if rec, err := repo.GetIdempotency(ctx, s.DB, restaurantID, idemKey, time.Now().UTC()); err == nil {
			inv, gerr := repo.GetInvoice(ctx, s.DB, rec.DocumentID, restaurantID)
			if gerr == nil {
				return inv, nil
			}
			// Stale record pointing at a deleted invoice: fall through
			// and process the upload as new.
		}
	}

	id := uuid.NewString()
	span.SetAttributes(attribute.String("document.id", id))

	objectPath := storage.ObjectPath(restaurantID, id, filename)
	if _, err := s.Store.Upload(ctx, objectPath, fileBytes, "application/pdf"); err != nil {
		s.finalizeError(ctx, restaurantID, id, objectPath, "", err)
		return nil, err
	}

	status, _ := domain.DocStatusPending.Transition(domain.DocStatusExtracting)

	doc, err := s.OCR.Process(ctx, fileBytes, "application/pdf")
	if err != nil {
		s.finalizeError(ctx, restaurantID, id, objectPath, "", err)
		return nil, err
	}

	ex, err := s.extractOnce(ctx, doc.Text)
	if err != nil {
		s.finalizeError(ctx, restaurantID, id, objectPath, doc.Text, err)
		return nil, err
	}

	inv := s.buildInvoice(id, restaurantID, objectPath, doc.Text, ex)

	// Supplier resolution with the buyer/seller guard. A guard hit gets
	// exactly one re-extraction; if the model reads the buyer block again,
	// the tax ID is dropped and the invoice is flagged for review.
	supplierTaxID := ex.SupplierTaxID.Value
	sup, err := s.Suppliers.Resolve(ctx, restaurantID, ex.SupplierName.Value, supplierTaxID)
	if errors.Is(err, ErrBuyerAsSupplier) {
		log.Warn().Str("document_id", id).Msg("extraction read the buyer block, retrying once")
		if retried, rerr := s.extractOnce(ctx, doc.Text); rerr == nil {
			ex = retried
			inv = s.buildInvoice(id, restaurantID, objectPath, doc.Text, ex)
			supplierTaxID = ex.SupplierTaxID.Value
			sup, err = s.Suppliers.Resolve(ctx, restaurantID, ex.SupplierName.Value, supplierTaxID)
		}
		if errors.Is(err, ErrBuyerAsSupplier) {
			sup, err = s.Suppliers.Resolve(ctx, restaurantID, ex.SupplierName.Value, "")
			inv.RequiresReview = true
		}
	}
	if err != nil {
		s.finalizeError(ctx, restaurantID, id, objectPath, doc.Text, err)
		return nil, err
	}
	inv.SupplierID = &sup.ID

	status, _ = status.Transition(domain.DocStatusExtracted)
	inv.Status = status

	if err := repo.CreateInvoice(ctx, s.DB, inv); err != nil {
		return nil, err
	}

	purchaseDate := time.Now().UTC()
	if inv.IssueDate != nil {
		purchaseDate = *inv.IssueDate
	}
	if err := s.Suppliers.TouchInvoice(ctx, sup.ID, restaurantID, purchaseDate); err != nil {
		log.Error().Err(err).Str("supplier_id", sup.ID).Msg("supplier counters not updated")
	}

	s.matchLines(ctx, inv, sup.ID, purchaseDate)

	if idemKey != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, restaurantID, idemKey, inv.ID, 200, s.IdempotencyTTL); err != nil &&
			!errors.Is(err, repo.ErrDuplicate) {
			log.Error().Err(err).Str("document_id", inv.ID).Msg("idempotency record not written")
		}
	}
	return inv, nil
}

// extractOnce runs the extraction model over the OCR text and parses its
// response into the canonical record.
func (s *DocumentService) extractOnce(ctx context.Context, text string) (*extract.Extraction, error) {
	raw, err := s.Extractor.ExtractInvoiceFields(ctx, text)
	if err != nil {
		return nil, err
	}
	jsonBody, err := llm.ExtractJSON(string(raw))
	if err != nil {
		return nil, err
	}
	payload, err := extract.ParsePayload([]byte(jsonBody))
	if err != nil {
		return nil, err
	}
	return extract.FromPayload(payload), nil
}

// buildInvoice maps the canonical extraction onto the persistence model,
// completes line prices, and derives reference prices from the commercial
// format.
func (s *DocumentService) buildInvoice(id, restaurantID, objectPath, rawText string, ex *extract.Extraction) *domain.Invoice {
	inv := &domain.Invoice{
		ID:            id,
		RestauranteID: restaurantID,
		SupplierName:  ex.SupplierName.Value,
		SupplierTaxID: ex.SupplierTaxID.Value,
		InvoiceNumber: ex.InvoiceNumber.Value,
		IssueDate:     ex.IssueDate.Value,
		DueDate:       ex.DueDate.Value,
		NetBase:       ex.NetBase.Value,
		TaxAmount:     ex.TaxAmount.Value,
		TaxRate:       ex.TaxRate.Value,
		Total:         ex.Total.Value,

		ConfidenceSupplier: ex.Confidence.Supplier,
		ConfidenceNumber:   ex.InvoiceNumber.Confidence,
		ConfidenceDates:    avg(ex.IssueDate.Confidence, ex.DueDate.Confidence),
		ConfidenceAmounts:  ex.Confidence.Amounts,
		ConfidenceGlobal:   ex.Confidence.Global,

		Status:      domain.DocStatusPending,
		ReconState:  domain.ReconStateUnlinked,
		StoragePath: objectPath,
		RawText:     rawText,
	}
	if ex.Confidence.Global < 0.5 {
		inv.RequiresReview = true
	}

	for _, el := range ex.Lines {
		line := domain.InvoiceLine{
			ID:                    uuid.NewString(),
			InvoiceID:             id,
			RestauranteID:         restaurantID,
			Description:           el.Description,
			NormalizedDescription: normalize.NormalizeProductName(el.Description),
			Quantity:              el.Quantity,
			Unit:                  el.Unit,
			TaxRate:               el.TaxRate,
			Confidence:            el.Confidence,
		}
		if line.Unit == "" {
			line.Unit = normalize.ExtractUnit(el.Description)
		}
		line.ProductCode = el.ProductCode
		if line.ProductCode == "" {
			line.ProductCode = normalize.ExtractProductCode(el.Source)
		}
		if el.UnitNetSet {
			line.UnitPriceNet = el.UnitNet
		} else if p := normalize.ExtractUnitPrice(el.Source); p != nil {
			line.UnitPriceNet = *p
		}
		if el.TotalNetSet {
			line.TotalNet = el.TotalNet
		}
		if line.TaxRate.IsZero() && !ex.TaxRate.Value.IsZero() {
			line.TaxRate = ex.TaxRate.Value
		}

		pricing.CompleteLine(&line)

		if f := normalize.ExtractFormat(el.Description); f.Raw != "" {
			line.Format = f.Raw
			line.PricePerKg = normalize.PricePerKg(line.TotalNet, f)
			line.PricePerLiter = normalize.PricePerLiter(line.TotalNet, f)
		}

		inv.Lines = append(inv.Lines, line)
	}
	return inv
}

// matchLines resolves each persisted line to a catalog product and records
// the purchase in the price history. Per-line failures are logged and
// skipped; matching is an enrichment, not a condition of ingestion.
func (s *DocumentService) matchLines(ctx context.Context, inv *domain.Invoice, supplierID string, purchaseDate time.Time) {
	for i := range inv.Lines {
		line := &inv.Lines[i]
		m, err := s.Catalog.Resolve(ctx, inv.RestauranteID, line.Description)
		if err != nil {
			log.Error().Err(err).Str("line_id", line.ID).Msg("product match failed")
			continue
		}
		if err := repo.SetLineProduct(ctx, s.DB, line.ID, inv.RestauranteID, m.Product.ID); err != nil {
			log.Error().Err(err).Str("line_id", line.ID).Msg("product assignment failed")
			continue
		}
		line.ProductoMaestroID = &m.Product.ID

		if !line.UnitPriceNet.IsPositive() {
			continue
		}
		h := &domain.PriceHistory{
			RestauranteID: inv.RestauranteID,
			ProductID:     m.Product.ID,
			SupplierID:    &supplierID,
			InvoiceID:     &inv.ID,
			Price:         line.UnitPriceNet,
			Quantity:      line.Quantity,
			PurchaseDate:  purchaseDate,
		}
		if err := s.Catalog.RecordPurchase(ctx, h); err != nil {
			log.Error().Err(err).Str("product_id", m.Product.ID).Msg("purchase not recorded")
		}
	}
}

// finalizeError persists what is known about a failed document so the
// upload is not lost and the failure is visible in listings.
func (s *DocumentService) finalizeError(ctx context.Context, restaurantID, id, objectPath, rawText string, cause error) {
	log.Error().Err(cause).Str("document_id", id).Msg("document processing failed")
	stub := &domain.Invoice{
		ID:            id,
		RestauranteID: restaurantID,
		Status:        domain.DocStatusError,
		ReconState:    domain.ReconStateUnlinked,
		StoragePath:   objectPath,
		RawText:       rawText,
	}
	if err := repo.CreateInvoice(ctx, s.DB, stub); err != nil {
		log.Error().Err(err).Str("document_id", id).Msg("error stub not persisted")
	}
}

// ProcessDeliveryNote ingests one uploaded delivery note (albarán). The
// pipeline mirrors ProcessInvoice but maps onto the delivery-note model:
// notes carry no fiscal breakdown, only the supplier, number, date, total,
// and lines the reconciliation strategies compare against.
func (s *DocumentService) ProcessDeliveryNote(ctx context.Context, restaurantID, filename string, fileBytes []byte) (*domain.DeliveryNote, error) {
	tr := otel.Tracer("services/DocumentService")
	ctx, span := tr.Start(ctx, "ProcessDeliveryNote",
		trace.WithAttributes(attribute.String("restaurante.id", restaurantID)),
	)
	defer span.End()

	if len(fileBytes) == 0 {
		return nil, ErrEmptyDocument
	}
	if s.MaxUploadBytes > 0 && len(fileBytes) > s.MaxUploadBytes {
		return nil, ErrDocumentTooLarge
	}

	id := uuid.NewString()
	span.SetAttributes(attribute.String("document.id", id))

	objectPath := storage.ObjectPath(restaurantID, id, filename)
	if _, err := s.Store.Upload(ctx, objectPath, fileBytes, "application/pdf"); err != nil {
		return nil, err
	}
	doc, err := s.OCR.Process(ctx, fileBytes, "application/pdf")
	if err != nil {
		return nil, err
	}
	ex, err := s.extractOnce(ctx, doc.Text)
	if err != nil {
		return nil, err
	}

	note := &domain.DeliveryNote{
		ID:            id,
		RestauranteID: restaurantID,
		SupplierName:  ex.SupplierName.Value,
		Number:        ex.InvoiceNumber.Value,
		DeliveryDate:  ex.IssueDate.Value,
		Total:         ex.Total.Value,
		Status:        domain.DocStatusExtracted,
		StoragePath:   objectPath,
	}
	sup, err := s.Suppliers.Resolve(ctx, restaurantID, ex.SupplierName.Value, ex.SupplierTaxID.Value)
	if err == nil {
		note.SupplierID = &sup.ID
	} else if !errors.Is(err, ErrBuyerAsSupplier) {
		return nil, err
	}
	for _, el := range ex.Lines {
		note.Lines = append(note.Lines, domain.DeliveryNoteLine{
			ID:                    uuid.NewString(),
			DeliveryNoteID:        id,
			RestauranteID:         restaurantID,
			Description:           el.Description,
			NormalizedDescription: normalize.NormalizeProductName(el.Description),
			Quantity:              el.Quantity,
			Unit:                  el.Unit,
			Total:                 el.TotalNet,
		})
	}
	if err := repo.CreateDeliveryNote(ctx, s.DB, note); err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotesPage returns a page of delivery notes, newest first.
func (s *DocumentService) ListNotesPage(ctx context.Context, restaurantID string, page, pageSize int) ([]domain.DeliveryNote, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return repo.ListNotesPage(ctx, s.DB, restaurantID, (page-1)*pageSize, pageSize)
}

// Get fetches one invoice with its lines.
func (s *DocumentService) Get(ctx context.Context, restaurantID, invoiceID string) (*domain.Invoice, error) {
	inv, err := repo.GetInvoice(ctx, s.DB, invoiceID, restaurantID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvoiceNotFound
	}
	return inv, err
}

// ListPage returns a page of invoices with the total count.
func (s *DocumentService) ListPage(ctx context.Context, restaurantID string, page, pageSize int) ([]domain.Invoice, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountInvoices(ctx, s.DB, restaurantID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Invoice{}, 0, nil
	}

	items, err := repo.ListInvoicesPage(ctx, s.DB, restaurantID, offset, pageSize)
	return items, total, err
}

// Delete removes an invoice together with its lines and links.
func (s *DocumentService) Delete(ctx context.Context, restaurantID, invoiceID string) error {
	err := repo.DeleteInvoice(ctx, s.DB, invoiceID, restaurantID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvoiceNotFound
	}
	return err
}

func avg(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
