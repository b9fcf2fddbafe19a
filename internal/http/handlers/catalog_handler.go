// Catalog and supplier HTTP handlers.
//
// This file exposes read endpoints over the product catalog built up by
// invoice ingestion:
//   - GET /catalog/products             (list, paginated; ?q= switches to search)
//   - GET /catalog/products/{id}        (fetch one product)
//   - GET /catalog/products/{id}/prices (recent purchase prices)
//   - GET /suppliers                    (supplier directory)
//   - GET /stats/catalog                (catalog aggregates)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
	"github.com/hosteleo/go-invoice-backend/internal/services"
	"github.com/hosteleo/go-invoice-backend/internal/utils"
)

// ListProductsResponse wraps a page of catalog products.
type ListProductsResponse struct {
	Products   []domain.CatalogProduct `json:"products"`
	Pagination Pagination              `json:"pagination"`
}

// SearchProductsResponse carries scored search results.
type SearchProductsResponse struct {
	Query   string           `json:"query"`
	Results []services.Match `json:"results"`
}

// catalogDB digs the GORM handle out of the concrete catalog service for the
// stats endpoint. Best effort; returns nil when wired with a test double.
func (h *Handlers) catalogDB() *gorm.DB {
	if svc, ok := h.catSvc.(*services.CatalogService); ok {
		return svc.DB
	}
	return nil
}

// ListProducts godoc
// @ID          listProducts
// @Summary     List or search catalog products
// @Description Without q, returns a page of the restaurant's catalog ordered by
// @Description purchase count. With q, returns similarity-scored matches.
// @Tags        Catalog
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       q                query   string  false "Free-text search query"       example(tomate pera)
// @Param       page             query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListProductsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /catalog/products [get]
func (h *Handlers) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	rid := restaurantID(c)

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		results, err := h.catSvc.Search(ctx, rid, q)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
			return
		}
		ok(c, http.StatusOK, SearchProductsResponse{Query: q, Results: results})
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.catSvc.ListPage(ctx, rid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListProductsResponse{
		Products: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetProduct godoc
// @ID          getProduct
// @Summary     Fetch one catalog product
// @Tags        Catalog
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Product ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.CatalogProduct
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /catalog/products/{id} [get]
func (h *Handlers) GetProduct(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}

	p, err := h.catSvc.Get(c.Request.Context(), restaurantID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// ProductPrices godoc
// @ID          productPrices
// @Summary     Recent purchase prices of a product
// @Description Returns the price history rows recorded by invoice ingestion,
// @Description newest first.
// @Tags        Catalog
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
// @Param       id               path    string  true  "Product ID (UUID)"  format(uuid)
// @Param       limit            query   int     false "Max rows"           minimum(1) maximum(500) default(50)
//
// @Success     200  {array}   domain.PriceHistory
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Product not found"
// @Router      /catalog/products/{id}/prices [get]
func (h *Handlers) ProductPrices(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "product id must be a UUID")
		return
	}

	limit := utils.AtoiDefault(c.Query("limit"), 50)
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := h.catSvc.PriceHistory(c.Request.Context(), restaurantID(c), id, limit)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "product not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rows)
}

// ListSuppliers godoc
// @ID          listSuppliers
// @Summary     List known suppliers
// @Description Returns the restaurant's supplier directory, most recently
// @Description invoiced first.
// @Tags        Suppliers
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
//
// @Success     200  {array}   domain.Supplier
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /suppliers [get]
func (h *Handlers) ListSuppliers(c *gin.Context) {
	suppliers, err := h.supSvc.List(c.Request.Context(), restaurantID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, suppliers)
}

// CatalogStats godoc
// @ID          catalogStats
// @Summary     Catalog dashboard aggregates
// @Tags        Stats
// @Produce     json
//
// @Param       X-Restaurant-ID  header  string  false "Restaurant ID (demo header)"  example(rest123)
//
// @Success     200  {object}  repo.CatalogStats
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats/catalog [get]
func (h *Handlers) CatalogStats(c *gin.Context) {
	db := h.catalogDB()
	if db == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "stats unavailable")
		return
	}

	stats, err := repo.GetCatalogStats(c.Request.Context(), db, restaurantID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}
