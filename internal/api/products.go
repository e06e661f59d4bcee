package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
	"github.com/erazemk/irontrace/internal/store"
)

// ProductsHandler handles catalogue and stock endpoints.
type ProductsHandler struct {
	Store db.Storage
}

type createProductRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category"`
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

type setStockRequest struct {
	Stock int `json:"stock"`
}

type writeOffRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// queryLimit parses the optional limit query parameter. Zero means default.
func queryLimit(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// List handles GET /api/products. With ?q= it searches by id or name.
func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	var products []model.Product
	var err error
	if q := r.URL.Query().Get("q"); q != "" {
		products, err = store.SearchProducts(r.Context(), h.Store, q, limit)
	} else {
		products, err = store.ListProducts(r.Context(), h.Store)
	}
	if err != nil {
		storeError(w, "failed to list products", err)
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	jsonResponse(w, http.StatusOK, products)
}

// Create handles POST /api/products.
func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := store.CreateProduct(r.Context(), h.Store, model.Product{
		ID:        req.ID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
		Category:  req.Category,
	})
	if err != nil {
		storeError(w, "failed to create product", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("product created", "user", claims.Username, "product", p.ID, "category", p.Category, "stock", p.Stock)
	jsonResponse(w, http.StatusCreated, p)
}

// Get handles GET /api/products/{id}.
func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := store.GetProduct(r.Context(), h.Store, r.PathValue("id"))
	if err != nil {
		storeError(w, "failed to get product", err)
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// Adjust handles POST /api/products/{id}/adjust.
func (h *ProductsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := store.NormalizeProductID(r.PathValue("id"))
	if err := store.AdjustStock(r.Context(), h.Store, id, req.Delta); err != nil {
		storeError(w, "failed to adjust stock", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock adjusted", "user", claims.Username, "product", id, "delta", req.Delta)
	h.Get(w, r)
}

// SetStock handles PUT /api/products/{id}/stock.
func (h *ProductsHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := store.NormalizeProductID(r.PathValue("id"))
	if err := store.SetStock(r.Context(), h.Store, id, req.Stock); err != nil {
		storeError(w, "failed to set stock", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock set", "user", claims.Username, "product", id, "stock", req.Stock)
	h.Get(w, r)
}

// WriteOff handles POST /api/products/{id}/writeoff.
func (h *ProductsHandler) WriteOff(w http.ResponseWriter, r *http.Request) {
	var req writeOffRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wo, err := store.WriteOff(r.Context(), h.Store, r.PathValue("id"), req.Quantity, req.Reason)
	if err != nil {
		storeError(w, "failed to write off stock", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock written off", "user", claims.Username, "product", wo.ProductID, "quantity", wo.Quantity)
	jsonResponse(w, http.StatusCreated, wo)
}
