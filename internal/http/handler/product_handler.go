package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/http/response"
	"github.com/tesloshop/backend/internal/repository"
	"github.com/tesloshop/backend/internal/service"
)

type ProductHandler struct {
	svc service.ProductService
}

func NewProductHandler(svc service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// productView is the wire shape of a product: images flatten to their
// URLs, the owner reduces to an id.
type productView struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Stock       int        `json:"stock"`
	Sizes       []string   `json:"sizes"`
	Gender      string     `json:"gender"`
	Tags        []string   `json:"tags"`
	Images      []string   `json:"images"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newProductView(p *domain.Product) productView {
	return productView{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Sizes:       p.Sizes,
		Gender:      p.Gender,
		Tags:        p.Tags,
		Images:      p.ImageURLs(),
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type productBody struct {
	Title       *string   `json:"title"`
	Slug        *string   `json:"slug"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price"`
	Stock       *int      `json:"stock"`
	Sizes       *[]string `json:"sizes"`
	Gender      *string   `json:"gender"`
	Tags        *[]string `json:"tags"`
	Images      *[]string `json:"images"`
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	input := service.CreateProductInput{}
	if body.Title != nil {
		input.Title = *body.Title
	}
	if body.Slug != nil {
		input.Slug = *body.Slug
	}
	if body.Description != nil {
		input.Description = *body.Description
	}
	if body.Price != nil {
		input.Price = *body.Price
	}
	if body.Stock != nil {
		input.Stock = *body.Stock
	}
	if body.Sizes != nil {
		input.Sizes = *body.Sizes
	}
	if body.Gender != nil {
		input.Gender = *body.Gender
	}
	if body.Tags != nil {
		input.Tags = *body.Tags
	}
	if body.Images != nil {
		input.Images = *body.Images
	}

	created, err := h.svc.Create(r.Context(), input, actorID(r))
	if err != nil {
		writeProductError(w, r, err, "failed to create product")
		return
	}

	view := newProductView(created.Product)
	view.Images = created.RawImages
	response.JSON(w, r, http.StatusCreated, view)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	res, err := h.svc.FindAll(r.Context(), pageReq)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}

	products := make([]productView, 0, len(res.Products))
	for i := range res.Products {
		products = append(products, newProductView(&res.Products[i]))
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"products": products,
		"count":    res.Count,
		"pages":    res.Pages,
	})
}

// Get resolves {term} as an id, a slug, or a partial title.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "term")
	product, err := h.svc.FindOne(r.Context(), service.ParseLookup(term))
	if err != nil {
		writeProductError(w, r, err, "failed to load product")
		return
	}
	response.JSON(w, r, http.StatusOK, newProductView(product))
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid product id, a uuid is expected", nil)
		return
	}
	var body productBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	updated, err := h.svc.Update(r.Context(), productID, service.UpdateProductInput{
		Title:       body.Title,
		Slug:        body.Slug,
		Description: body.Description,
		Price:       body.Price,
		Stock:       body.Stock,
		Sizes:       body.Sizes,
		Gender:      body.Gender,
		Tags:        body.Tags,
		Images:      body.Images,
	}, actorID(r))
	if err != nil {
		writeProductError(w, r, err, "failed to update product")
		return
	}
	response.JSON(w, r, http.StatusOK, newProductView(updated))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid product id, a uuid is expected", nil)
		return
	}

	if err := h.svc.DeleteByID(r.Context(), productID); err != nil {
		writeProductError(w, r, err, "failed to delete product")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

func writeProductError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var conflict *repository.ConflictError
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.As(err, &conflict):
		// Constraint violations are client input problems; the detail
		// names the offending column and value.
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", conflict.Detail, nil)
	case errors.Is(err, service.ErrProductInvalidTitle),
		errors.Is(err, service.ErrProductInvalidSlug),
		errors.Is(err, service.ErrProductInvalidPrice),
		errors.Is(err, service.ErrProductInvalidStock),
		errors.Is(err, service.ErrProductInvalidGender):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}

func parsePageRequest(r *http.Request) (repository.PageRequest, error) {
	req := repository.PageRequest{Limit: repository.DefaultLimit}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("limit must be a positive integer")
		}
		if v > repository.MaxLimit {
			return repository.PageRequest{}, errors.New("limit must not exceed 100")
		}
		req.Limit = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return repository.PageRequest{}, errors.New("offset must be zero or a positive integer")
		}
		req.Offset = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("gender")); raw != "" {
		if !domain.IsValidGender(raw) {
			return repository.PageRequest{}, errors.New("gender must be one of men, women, kid, unisex")
		}
		req.Gender = raw
	}
	return req, nil
}
