package shifts

import "github.com/go-chi/chi/v5"

// MountRoutes registers shift endpoints on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.open)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.remove)
	r.Get("/{id}/movements", h.listMovements)
	r.Post("/{id}/movements", h.recordMovement)
	r.Post("/{id}/close", h.close)
	r.Post("/{id}/reconcile", h.reconcile)
	r.Get("/{id}/closeout", h.closeout)
}
