package journals

import "github.com/go-chi/chi/v5"

// MountRoutes registers journal endpoints on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/post", h.post)
	r.Post("/{id}/void", h.void)
	r.Delete("/{id}", h.remove)
}
