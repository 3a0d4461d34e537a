package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/catalog"
	"github.com/Nirajanoli4567/era-sub000/internal/domain"
)

// ProductStore is the slice of the catalog repo the handler uses.
type ProductStore interface {
	Insert(ctx context.Context, p *catalog.Product) error
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
	List(ctx context.Context) ([]catalog.Product, error)
	Update(ctx context.Context, p *catalog.Product) error
	Delete(ctx context.Context, id string) error
}

type ProductsHandler struct {
	Repo  ProductStore
	Guard *auth.Guard
	Log   *zap.Logger
}

type ProductReq struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	PriceCents int64    `json:"price_cents"`
	Stock      int      `json:"stock"`
	Images     []string `json:"images"`
	VendorID   string   `json:"vendor_id,omitempty"` // admin only; vendors own what they create
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Route("/api/products", func(rt chi.Router) {
		rt.Get("/", h.list)
		rt.Get("/{productID}", h.get)
		rt.Group(func(g chi.Router) {
			g.Use(h.Guard.Authenticate, auth.RequireRole(auth.RoleAdmin, auth.RoleVendor))
			g.Post("/", h.create)
			g.Put("/{productID}", h.update)
			g.Delete("/{productID}", h.delete)
		})
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.List(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.GetByID(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req ProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.PriceCents <= 0 {
		writeError(w, h.Log, fmt.Errorf("name and a positive price are required: %w", domain.ErrValidation))
		return
	}

	actor, _ := auth.FromContext(r.Context())
	vendorID := req.VendorID
	if actor.IsVendor() || vendorID == "" {
		vendorID = actor.ID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p := &catalog.Product{
		VendorID:   vendorID,
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
		Images:     req.Images,
	}
	if err := h.Repo.Insert(ctx, p); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req ProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Name == "" || req.PriceCents <= 0 {
		writeError(w, h.Log, fmt.Errorf("name and a positive price are required: %w", domain.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.authorized(ctx, r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	p.Name = req.Name
	p.Category = req.Category
	p.PriceCents = req.PriceCents
	p.Stock = req.Stock
	p.Images = req.Images
	if err := h.Repo.Update(ctx, p); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.authorized(ctx, r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Repo.Delete(ctx, p.ID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorized loads the product and checks the actor may mutate it:
// admins always, vendors only for their own products.
func (h *ProductsHandler) authorized(ctx context.Context, r *http.Request) (*catalog.Product, error) {
	p, err := h.Repo.GetByID(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		return nil, err
	}
	actor, _ := auth.FromContext(r.Context())
	if !actor.IsAdmin() && p.VendorID != actor.ID {
		return nil, fmt.Errorf("product %s belongs to another vendor: %w", p.ID, domain.ErrUnauthorized)
	}
	return p, nil
}
