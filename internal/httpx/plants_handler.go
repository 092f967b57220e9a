package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/flora-checkout/internal/catalog"
)

type PlantsHandler struct {
	Catalog catalog.Store
}

func (h *PlantsHandler) Register(r chi.Router) {
	r.Get("/api/flora/plants/{id}", h.plant)
}

func (h *PlantsHandler) plant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	it, err := h.Catalog.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}
