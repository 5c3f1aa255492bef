package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dpolyakov/minimart/internal/logging"
	"github.com/dpolyakov/minimart/internal/server/models"
	"github.com/dpolyakov/minimart/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	service *services.CatalogService
	log     logging.Logger
}

func NewCatalogHandler(service *services.CatalogService, log logging.Logger) *CatalogHandler {
	return &CatalogHandler{service: service, log: log.With("module", "catalog_handler")}
}

type createProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	WithImage   bool   `json:"with_image"`
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(p *models.Product, imageURL string) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		ImageURL:    imageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		Error(w, err)
		return
	}

	out := make([]productResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toProductResponse(p, ""))
	}

	JSON(w, http.StatusOK, struct {
		Products []productResponse `json:"products"`
	}{Products: out})
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, imageURL, err := h.service.Get(r.Context(), id)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, struct {
		Product productResponse `json:"product"`
	}{Product: toProductResponse(product, imageURL)})
}

func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" || req.PriceCents < 0 {
		BadRequest(w, "name is required and price must not be negative")
		return
	}

	product, uploadURL, err := h.service.Create(r.Context(), &models.Product{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	}, req.WithImage)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, struct {
		Product   productResponse `json:"product"`
		UploadURL string          `json:"upload_url,omitempty"`
	}{Product: toProductResponse(product, ""), UploadURL: uploadURL})
}
