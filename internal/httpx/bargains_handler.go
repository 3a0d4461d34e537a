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
	"github.com/Nirajanoli4567/era-sub000/internal/bargains"
	"github.com/Nirajanoli4567/era-sub000/internal/domain"
)

type BargainsHandler struct {
	Svc   *bargains.Service
	Guard *auth.Guard
	Log   *zap.Logger
}

type CreateBargainReq struct {
	ProductID     string `json:"product_id"`
	ProposedCents int64  `json:"proposed_price_cents"`
}

type AdminResolveReq struct {
	Status        string `json:"status"` // accepted | rejected
	AdminResponse string `json:"admin_response"`
}

type VendorRespondReq struct {
	VendorResponse string `json:"vendor_response"`
	CounterCents   int64  `json:"counter_offer_cents"`
}

func (h *BargainsHandler) Register(r *chi.Mux) {
	r.Route("/api/bargains", func(rt chi.Router) {
		rt.Use(h.Guard.Authenticate)
		rt.Post("/", h.create)
		rt.With(auth.RequireRole(auth.RoleAdmin)).Get("/all", h.listAll)
		rt.Get("/user", h.listOwn)
		rt.With(auth.RequireRole(auth.RoleAdmin)).Patch("/{bargainID}/status", h.adminResolve)
		rt.Delete("/{bargainID}", h.cancel)
	})

	r.Route("/api/vendor/bargains", func(rt chi.Router) {
		rt.Use(h.Guard.Authenticate, auth.RequireRole(auth.RoleVendor))
		rt.Get("/", h.listVendor)
		rt.Post("/{bargainID}/accept", h.vendorDecision(bargains.DecisionAccept))
		rt.Post("/{bargainID}/reject", h.vendorDecision(bargains.DecisionReject))
		rt.Post("/{bargainID}/counter", h.vendorDecision(bargains.DecisionCounter))
	})
}

func (h *BargainsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateBargainReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	b, err := h.Svc.Create(ctx, actor.ID, req.ProductID, req.ProposedCents)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BargainsHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	bs, err := h.Svc.ListAll(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (h *BargainsHandler) listOwn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	bs, err := h.Svc.ListByUser(ctx, actor.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (h *BargainsHandler) listVendor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	bs, err := h.Svc.ListByVendor(ctx, actor.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

// adminResolve is the PATCH /status path: accept or reject with a note.
func (h *BargainsHandler) adminResolve(w http.ResponseWriter, r *http.Request) {
	var req AdminResolveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var decision bargains.Decision
	switch req.Status {
	case "accepted":
		decision = bargains.DecisionAccept
	case "rejected":
		decision = bargains.DecisionReject
	default:
		writeError(w, h.Log, fmt.Errorf("status must be accepted or rejected: %w", domain.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	b, _, err := h.Svc.Resolve(ctx, actor, chi.URLParam(r, "bargainID"), decision, req.AdminResponse, 0)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BargainsHandler) vendorDecision(decision bargains.Decision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VendorRespondReq
		// accept/reject may come with an empty body
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && decision == bargains.DecisionCounter {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		actor, _ := auth.FromContext(r.Context())
		b, _, err := h.Svc.Resolve(ctx, actor, chi.URLParam(r, "bargainID"), decision, req.VendorResponse, req.CounterCents)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func (h *BargainsHandler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	if err := h.Svc.Cancel(ctx, actor, chi.URLParam(r, "bargainID")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
