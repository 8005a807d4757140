package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

type JSONHandler struct {
	repo Repository
}

func NewJSONHandler(repo Repository) *JSONHandler {
	return &JSONHandler{repo: repo}
}

func (h *JSONHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/products", h.List).Methods(http.MethodGet)
}

func (h *JSONHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		slog.Error("failed to fetch products", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch products"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(products)
}
