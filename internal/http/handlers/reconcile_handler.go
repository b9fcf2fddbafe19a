// Reconciliation HTTP handlers.
//
// This file exposes REST endpoints for linking invoices to delivery notes:
//   - POST /invoices/{id}/reconcile              (run the detection engine)
//   - GET  /invoices/{id}/links                  (list links)
//   - POST /invoices/{id}/links/{linkID}/confirm (confirm a link)
//   - POST /invoices/{id}/links/{linkID}/reject  (reject a link)
//   - GET  /orphans                              (pending unlinked documents)
//   - GET  /stats/reconciliation                 (dashboard aggregates)
//
// Reconciliation is an assistant feature, not a transactional one: a run over
// a missing invoice answers 200 with success=false so dashboard polling never
// trips client-side error handling, and an engine failure answers a 500
// envelope carrying zeroed counters alongside the error.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/repo"
	"github.com/hosteleo/go-invoice-backend/internal/services"
)

// reconDB digs the GORM handle out of the concrete reconciliation service,
// used by the read-only orphan and stats endpoints. Best effort; returns nil
// when the handler was wired with a test double.
func (h *Handlers) reconDB() *gorm.DB {
	if svc, ok := h.reconSvc.(*services.ReconciliationService); ok {
		return svc.DB
	}
	return nil
}

// ReconcileInvoice godoc
// @ID          reconcileInvoice
// @Summary     Reconcile an invoice against delivery notes
// @Description Runs the detection strategies over the supplier's unlinked delivery
// @Description notes and persists automatic links and suggestions. A reconciled
// @Description invoice is only re-run when force=true.
// @Tags        Reconciliation
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Invoice ID (UUID)"  format(uuid)
// @Param       force            query   bool    false "Re-run even if already reconciled"  default(false)
//
// @Success     200  {object}  services.Outcome
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /invoices/{id}/reconcile [post]
func (h *Handlers) ReconcileInvoice(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invoice id must be a UUID")
		return
	}
	force := c.Query("force") == "true" || c.Query("force") == "1"

	out, err := h.reconSvc.Reconcile(c.Request.Context(), restaurantID(c), id, force)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceNotFound) {
			// Soft failure: polling dashboards treat this as "nothing to do".
			ok(c, http.StatusOK, gin.H{
				"success": false,
				"error":   "factura_no_encontrada",
				"message": "invoice not found",
			})
			return
		}
		ok(c, http.StatusInternalServerError, gin.H{
			"success":             false,
			"error":               ErrCodeReconcileFailed,
			"message":             err.Error(),
			"enlaces_automaticos": 0,
			"sugerencias":         0,
			"requiere_revision":   false,
		})
		return
	}
	ok(c, http.StatusOK, out)
}

// ListLinks godoc
// @ID          listLinks
// @Summary     List reconciliation links of an invoice
// @Tags        Reconciliation
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Invoice ID (UUID)"  format(uuid)
//
// @Success     200  {array}   domain.ReconciliationLink
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Invoice not found"
// @Router      /invoices/{id}/links [get]
func (h *Handlers) ListLinks(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invoice id must be a UUID")
		return
	}

	links, err := h.reconSvc.Links(c.Request.Context(), restaurantID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrInvoiceNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "invoice not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, links)
}

// ConfirmLink godoc
// @ID          confirmLink
// @Summary     Confirm a reconciliation link
// @Description Promotes a detected or suggested link to confirmed, marks the
// @Description delivery note linked, and feeds the temporal gap back into the
// @Description supplier's learned patterns.
// @Tags        Reconciliation
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Invoice ID (UUID)"   format(uuid)
// @Param       linkID           path    string  true  "Link ID (UUID)"      format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Link not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Link already decided"
// @Router      /invoices/{id}/links/{linkID}/confirm [post]
func (h *Handlers) ConfirmLink(c *gin.Context) {
	h.decideLink(c, h.reconSvc.ConfirmLink)
}

// RejectLink godoc
// @ID          rejectLink
// @Summary     Reject a reconciliation link
// @Description Marks a link rejected and releases the delivery note back into
// @Description the candidate pool unless another link still holds it.
// @Tags        Reconciliation
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Invoice ID (UUID)"   format(uuid)
// @Param       linkID           path    string  true  "Link ID (UUID)"      format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Link not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Link already decided"
// @Router      /invoices/{id}/links/{linkID}/reject [post]
func (h *Handlers) RejectLink(c *gin.Context) {
	h.decideLink(c, h.reconSvc.RejectLink)
}

// decideLink shares the transport shell of confirm and reject.
func (h *Handlers) decideLink(c *gin.Context, decide func(ctx context.Context, restaurantID, invoiceID, linkID string) error) {
	invoiceID := c.Param("id")
	linkID := c.Param("linkID")
	if _, err := uuid.Parse(invoiceID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invoice id must be a UUID")
		return
	}
	if _, err := uuid.Parse(linkID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "link id must be a UUID")
		return
	}

	if err := decide(c.Request.Context(), restaurantID(c), invoiceID, linkID); err != nil {
		switch {
		case errors.Is(err, services.ErrLinkNotFound), errors.Is(err, services.ErrInvoiceNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "link not found")
		case errors.Is(err, services.ErrLinkStateFinal):
			fail(c, http.StatusConflict, ErrCodeConflict, "link already decided")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// ListOrphans godoc
// @ID          listOrphans
// @Summary     List pending orphan documents
// @Description Returns documents still awaiting a reconciliation partner, oldest
// @Description deadline first.
// @Tags        Reconciliation
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
//
// @Success     200  {array}   domain.OrphanDocument
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orphans [get]
func (h *Handlers) ListOrphans(c *gin.Context) {
	db := h.reconDB()
	if db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "orphan registry unavailable")
		return
	}

	orphans, err := repo.ListPendingOrphans(c.Request.Context(), db, restaurantID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, orphans)
}

// ReconciliationStats godoc
// @ID          reconciliationStats
// @Summary     Reconciliation dashboard aggregates
// @Description Returns link counts by state, pending orphans, and the historical
// @Description precision of the detection strategies.
// @Tags        Stats
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
//
// @Success     200  {object}  repo.ReconciliationStats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats/reconciliation [get]
func (h *Handlers) ReconciliationStats(c *gin.Context) {
	db := h.reconDB()
	if db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "stats unavailable")
		return
	}

	stats, err := repo.GetReconciliationStats(c.Request.Context(), db, restaurantID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}
