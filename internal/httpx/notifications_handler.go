package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Nirajanoli4567/era-sub000/internal/auth"
	"github.com/Nirajanoli4567/era-sub000/internal/notifications"
)

type NotificationsHandler struct {
	Repo  *notifications.Repo
	Guard *auth.Guard
	Log   *zap.Logger
}

func (h *NotificationsHandler) Register(r *chi.Mux) {
	r.Route("/api/notifications", func(rt chi.Router) {
		rt.Use(h.Guard.Authenticate)
		rt.Get("/", h.list)
		rt.Patch("/{notificationID}/read", h.markRead)
		rt.Patch("/read-all", h.markAllRead)
	})
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	ns, err := h.Repo.ListByUser(ctx, actor.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	if err := h.Repo.MarkRead(ctx, chi.URLParam(r, "notificationID"), actor.ID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	actor, _ := auth.FromContext(r.Context())
	if err := h.Repo.MarkAllRead(ctx, actor.ID); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
