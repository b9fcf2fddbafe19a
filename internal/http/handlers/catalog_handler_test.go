package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/domain"
	"github.com/hosteleo/go-invoice-backend/internal/services"
)

// ---------- ListProducts ----------

func TestListProducts_PageAndSearchModes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Without q: paginated listing
	{
		svc := stubCatSvc{
			list: func(ctx context.Context, rid string, page, pageSize int) ([]domain.CatalogProduct, int64, error) {
				return []domain.CatalogProduct{{ID: "p1", RestauranteID: rid}}, 1, nil
			},
		}
		h := New(stubDocSvc{}, stubReconSvc{}, svc, stubSupSvc{}, stubFBSvc{})
		r := gin.New()
		r.GET("/catalog/products", h.ListProducts)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("list -> %d", w.Code)
		}
		var out ListProductsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if len(out.Products) != 1 || out.Pagination.Total != 1 {
			t.Fatalf("unexpected page: %#v", out)
		}
	}

	// With q: similarity search, query echoed back
	{
		var gotQuery string
		svc := stubCatSvc{
			search: func(ctx context.Context, rid, query string) ([]services.Match, error) {
				gotQuery = query
				return []services.Match{
					{Product: &domain.CatalogProduct{ID: "p1"}, Score: 0.91},
				}, nil
			},
		}
		h := New(stubDocSvc{}, stubReconSvc{}, svc, stubSupSvc{}, stubFBSvc{})
		r := gin.New()
		r.GET("/catalog/products", h.ListProducts)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products?q=tomate+pera", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("search -> %d", w.Code)
		}
		if gotQuery != "tomate pera" {
			t.Fatalf("query = %q", gotQuery)
		}
		var out SearchProductsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Query != "tomate pera" || len(out.Results) != 1 {
			t.Fatalf("unexpected search response: %#v", out)
		}
	}

	// Search failure -> 500
	{
		svc := stubCatSvc{
			search: func(ctx context.Context, rid, query string) ([]services.Match, error) {
				return nil, gorm.ErrInvalidDB
			},
		}
		h := New(stubDocSvc{}, stubReconSvc{}, svc, stubSupSvc{}, stubFBSvc{})
		r := gin.New()
		r.GET("/catalog/products", h.ListProducts)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products?q=x", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("search failure -> %d", w.Code)
		}
	}
}

// ---------- GetProduct ----------

func TestGetProduct_BadID_NotFound_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newStubHandlers()
	r := gin.New()
	r.GET("/catalog/products/:id", h.GetProduct)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}

	svc := stubCatSvc{
		get: func(ctx context.Context, rid, id string) (*domain.CatalogProduct, error) {
			return nil, services.ErrProductNotFound
		},
	}
	h = New(stubDocSvc{}, stubReconSvc{}, svc, stubSupSvc{}, stubFBSvc{})
	r = gin.New()
	r.GET("/catalog/products/:id", h.GetProduct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing -> %d", w.Code)
	}

	h = newStubHandlers()
	r = gin.New()
	r.GET("/catalog/products/:id", h.GetProduct)
	w = httptest.NewRecorder()
	id := uuid.NewString()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d", w.Code)
	}
	var out domain.CatalogProduct
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.ID != id {
		t.Fatalf("unexpected product: %#v", out)
	}
}

// ---------- ProductPrices ----------

func TestProductPrices_LimitClamped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotLimit int
	svc := stubCatSvc{
		history: func(ctx context.Context, rid, id string, limit int) ([]domain.PriceHistory, error) {
			gotLimit = limit
			return []domain.PriceHistory{{ID: "ph1"}}, nil
		},
	}
	h := New(stubDocSvc{}, stubReconSvc{}, svc, stubSupSvc{}, stubFBSvc{})
	r := gin.New()
	r.GET("/catalog/products/:id/prices", h.ProductPrices)

	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", 50},
		{"?limit=10", 10},
		{"?limit=0", 1},
		{"?limit=9999", 500},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/products/"+uuid.NewString()+"/prices"+tc.query, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("prices%s -> %d", tc.query, w.Code)
		}
		if gotLimit != tc.want {
			t.Fatalf("limit%s = %d, want %d", tc.query, gotLimit, tc.want)
		}
	}
}

// ---------- ListSuppliers ----------

func TestListSuppliers_OK_And_Failure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubSupSvc{
		list: func(ctx context.Context, rid string) ([]domain.Supplier, error) {
			return []domain.Supplier{{ID: "s1", RestauranteID: rid}}, nil
		},
	}
	h := New(stubDocSvc{}, stubReconSvc{}, stubCatSvc{}, svc, stubFBSvc{})
	r := gin.New()
	r.GET("/suppliers", h.ListSuppliers)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/suppliers", nil)
	req.Header.Set("X-Restaurant-ID", "r1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("suppliers -> %d", w.Code)
	}
	var out []domain.Supplier
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out) != 1 || out[0].RestauranteID != "r1" {
		t.Fatalf("unexpected suppliers: %#v", out)
	}

	failSvc := stubSupSvc{
		list: func(ctx context.Context, rid string) ([]domain.Supplier, error) {
			return nil, gorm.ErrInvalidDB
		},
	}
	h = New(stubDocSvc{}, stubReconSvc{}, stubCatSvc{}, failSvc, stubFBSvc{})
	r = gin.New()
	r.GET("/suppliers", h.ListSuppliers)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suppliers", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("supplier failure -> %d", w.Code)
	}
}
