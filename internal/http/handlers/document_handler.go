// Document HTTP handlers.
//
// This file exposes REST endpoints for scanned invoice and delivery note
// (albarán) documents:
//   - POST   /documents            (upload + OCR + extraction)
//   - GET    /documents            (list invoices, paginated)
//   - GET    /documents/{id}       (fetch one invoice with lines)
//   - DELETE /invoices/{id}        (delete invoice, cascades to lines/links)
//   - POST   /delivery-notes       (upload + extract a delivery note)
//   - GET    /delivery-notes       (list delivery notes, paginated)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// upload exists for (restaurant, key), the handler returns the previously
// persisted invoice and sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/http/middleware"
	"github.com/hosteleo/go-invoice-backend/internal/services"
	"github.com/hosteleo/go-invoice-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// DocumentService defines the document ingestion operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DocumentService interface {
	// ProcessInvoice stores, OCRs and extracts an uploaded invoice.
	ProcessInvoice(ctx context.Context, restaurantID, idemKey, filename string, fileBytes []byte) (*domain.Invoice, error)
	// ProcessDeliveryNote runs the same pipeline for a delivery note.
	ProcessDeliveryNote(ctx context.Context, restaurantID, filename string, fileBytes []byte) (*domain.DeliveryNote, error)
	// Get returns one invoice with its lines.
	Get(ctx context.Context, restaurantID, invoiceID string) (*domain.Invoice, error)
	// ListPage returns a page of invoices and the total count.
	ListPage(ctx context.Context, restaurantID string, page, pageSize int) ([]domain.Invoice, int64, error)
	// ListNotesPage returns a page of delivery notes.
	ListNotesPage(ctx context.Context, restaurantID string, page, pageSize int) ([]domain.DeliveryNote, error)
	// Delete removes an invoice and everything hanging off it.
	Delete(ctx context.Context, restaurantID, invoiceID string) error
}

// ReconciliationService defines reconciliation operations consumed by HTTP
// handlers.
type ReconciliationService interface {
	// Reconcile runs the detection engine for one invoice.
	Reconcile(ctx context.Context, restaurantID, invoiceID string, force bool) (*services.Outcome, error)
	// ConfirmLink promotes a detected or suggested link to confirmed.
	ConfirmLink(ctx context.Context, restaurantID, invoiceID, linkID string) error
	// RejectLink marks a link rejected and releases the delivery note.
	RejectLink(ctx context.Context, restaurantID, invoiceID, linkID string) error
	// Links lists the reconciliation links of an invoice.
	Links(ctx context.Context, restaurantID, invoiceID string) ([]domain.ReconciliationLink, error)
}

// CatalogService defines product catalog operations consumed by HTTP handlers.
type CatalogService interface {
	// Get returns one catalog product.
	Get(ctx context.Context, restaurantID, productID string) (*domain.CatalogProduct, error)
	// ListPage returns a page of catalog products and the total count.
	ListPage(ctx context.Context, restaurantID string, page, pageSize int) ([]domain.CatalogProduct, int64, error)
	// Search scores catalog products against a free-text query.
	Search(ctx context.Context, restaurantID, query string) ([]services.Match, error)
	// Lookup runs the matching cascade without growing the catalog; a nil
	// match with a nil error means nothing cleared the bar.
	Lookup(ctx context.Context, restaurantID, description string) (*services.Match, error)
	// PriceHistory returns recent purchase prices for a product.
	PriceHistory(ctx context.Context, restaurantID, productID string, limit int) ([]domain.PriceHistory, error)
}

// SupplierService defines supplier directory operations consumed by HTTP
// handlers.
type SupplierService interface {
	// List returns all known suppliers for a restaurant.
	List(ctx context.Context, restaurantID string) ([]domain.Supplier, error)
}

// FeedbackService defines ingredient feedback operations consumed by HTTP
// handlers.
type FeedbackService interface {
	// Record buffers one feedback signal for a dish ingredient.
	Record(restaurantID, dish, ingredient string, kind domain.FeedbackKind, productID, previousProductID, suggestedCategory string) error
	// SeedAutoConfirm pre-seeds an automatic confirmation for a matched
	// ingredient without overwriting a user decision.
	SeedAutoConfirm(restaurantID, dish, ingredient, productID string) error
	// Flush persists the buffered feedback of one dish.
	Flush(ctx context.Context, restaurantID, dish string) (int, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for documents, reconciliation, catalog,
// suppliers, and feedback. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	docSvc   DocumentService
	reconSvc ReconciliationService
	catSvc   CatalogService
	supSvc   SupplierService
	fbSvc    FeedbackService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(docSvc DocumentService, reconSvc ReconciliationService, catSvc CatalogService, supSvc SupplierService, fbSvc FeedbackService) *Handlers {
	return &Handlers{docSvc: docSvc, reconSvc: reconSvc, catSvc: catSvc, supSvc: supSvc, fbSvc: fbSvc}
}

// restaurantID extracts the authenticated tenant id from Gin context (set by
// upstream middleware). If absent, it falls back to the "X-Restaurant-ID"
// header (tests use it), and finally to "demo-restaurant". It never touches
// c.Request if it's nil.
func restaurantID(c *gin.Context) string {
	if v, ok := c.Get("restaurantID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-Restaurant-ID")); h != "" {
			return h
		}
	}
	return "demo-restaurant"
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListInvoicesResponse wraps a page of invoices and pagination information.
type ListInvoicesResponse struct {
	Invoices   []domain.Invoice `json:"invoices"`
	Pagination Pagination       `json:"pagination"`
}

// ListDeliveryNotesResponse wraps a page of delivery notes.
type ListDeliveryNotesResponse struct {
	DeliveryNotes []domain.DeliveryNote `json:"delivery_notes"`
	Pagination    Pagination            `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// readUpload pulls the uploaded file out of the request. It accepts a
// multipart form with a "file" part, or a raw body when the client streams
// the document directly. Returns (filename, bytes, ok); on failure it has
// already written the error response.
func readUpload(c *gin.Context) (string, []byte, bool) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable file part")
			return "", nil, false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable file part")
			return "", nil, false
		}
		return fh.Filename, data, true
	}

	// Raw body fallback.
	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file required (multipart part \"file\" or raw body)")
		return "", nil, false
	}
	name := strings.TrimSpace(c.Query("filename"))
	if name == "" {
		name = "document.pdf"
	}
	return name, data, true
}

//
// Handlers
//

// UploadDocument godoc
// @ID          uploadDocument
// @Summary     Upload and extract an invoice
// @Description Stores the scanned invoice, runs OCR and field extraction, matches
// @Description line items against the product catalog, and resolves the supplier.
// @Description Supports idempotency via the Idempotency-Key header (same key → same invoice).
// @Tags        Documents
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       file             formData file   true  "Scanned invoice (PDF or image)"
//
// @Success     201  {object}  domain.Invoice
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     413  {object}  handlers.ErrorResponse  "Document too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /documents [post]
func (h *Handlers) UploadDocument(c *gin.Context) {
	ctx := c.Request.Context()

	filename, data, okUpload := readUpload(c)
	if !okUpload {
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)

	inv, err := h.docSvc.ProcessInvoice(ctx, restaurantID(c), idemKey, filename, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyDocument):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "empty document")
		case errors.Is(err, services.ErrDocumentTooLarge):
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "document too large")
		case errors.Is(err, services.ErrRestaurantNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "restaurant not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeExtractFailed, err.Error())
		}
		return
	}

	if middleware.IsReplay(c) {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, inv)
		return
	}
	ok(c, http.StatusCreated, inv)
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Fetch one invoice
// @Description Returns an invoice with its extracted line items.
// @Tags        Documents
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Invoice ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Invoice
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Invoice not found"
// @Router      /documents/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return
	}

	inv, err := h.docSvc.Get(c.Request.Context(), restaurantID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "invoice not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, inv)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List invoices (paginated)
// @Description Returns a page of the restaurant's invoices, newest first.
// @Tags        Documents
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       page             query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListInvoicesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.docSvc.ListPage(c.Request.Context(), restaurantID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListInvoicesResponse{
		Invoices: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// DeleteInvoice godoc
// @ID          deleteInvoice
// @Summary     Delete an invoice
// @Description Removes an invoice; line items and reconciliation links cascade.
// @Tags        Documents
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Invoice ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Invoice not found"
// @Router      /invoices/{id} [delete]
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invoice id must be a UUID")
		return
	}

	if err := h.docSvc.Delete(c.Request.Context(), restaurantID(c), id); err != nil {
		if errors.Is(err, services.ErrInvoiceNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "invoice not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// UploadDeliveryNote godoc
// @ID          uploadDeliveryNote
// @Summary     Upload and extract a delivery note
// @Description Stores the scanned albarán, runs OCR and field extraction, and
// @Description registers it for reconciliation against future invoices.
// @Tags        DeliveryNotes
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       file             formData file   true  "Scanned delivery note (PDF or image)"
//
// @Success     201  {object}  domain.DeliveryNote
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     413  {object}  handlers.ErrorResponse  "Document too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /delivery-notes [post]
func (h *Handlers) UploadDeliveryNote(c *gin.Context) {
	filename, data, okUpload := readUpload(c)
	if !okUpload {
		return
	}

	note, err := h.docSvc.ProcessDeliveryNote(c.Request.Context(), restaurantID(c), filename, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyDocument):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "empty document")
		case errors.Is(err, services.ErrDocumentTooLarge):
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "document too large")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeExtractFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, note)
}

// ListDeliveryNotes godoc
// @ID          listDeliveryNotes
// @Summary     List delivery notes (paginated)
// @Description Returns a page of the restaurant's delivery notes, newest first.
// @Tags        DeliveryNotes
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       page             query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListDeliveryNotesResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /delivery-notes [get]
func (h *Handlers) ListDeliveryNotes(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, err := h.docSvc.ListNotesPage(c.Request.Context(), restaurantID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListDeliveryNotesResponse{
		DeliveryNotes: items,
		Pagination: Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    int64(len(items)),
		},
	})
}
