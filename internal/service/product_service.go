package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/observability"
	"github.com/tesloshop/backend/internal/repository"
)

var (
	ErrProductInvalidTitle  = errors.New("title is required")
	ErrProductInvalidSlug   = errors.New("slug could not be derived from title")
	ErrProductInvalidPrice  = errors.New("price must be zero or greater")
	ErrProductInvalidStock  = errors.New("stock must be zero or greater")
	ErrProductInvalidGender = errors.New("gender must be one of men, women, kid, unisex")
)

// ProductNotFoundError names the identifier the caller asked for, so
// handlers can echo it back without re-threading the request.
type ProductNotFoundError struct {
	Term string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with id or slug %q not found", e.Term)
}

func (e *ProductNotFoundError) Unwrap() error {
	return repository.ErrProductNotFound
}

// Lookup is a resolved product reference: either a primary key or a
// free-form term to match against slug and title.
type Lookup struct {
	id   uuid.UUID
	term string
	byID bool
}

// ParseLookup classifies a caller-supplied string: anything that parses
// as a UUID is a primary-key lookup, everything else is a term lookup.
func ParseLookup(raw string) Lookup {
	raw = strings.TrimSpace(raw)
	if id, err := uuid.Parse(raw); err == nil {
		return Lookup{id: id, term: raw, byID: true}
	}
	return Lookup{term: raw}
}

func LookupByID(id uuid.UUID) Lookup {
	return Lookup{id: id, term: id.String(), byID: true}
}

func (l Lookup) String() string {
	return l.term
}

// IsByID reports whether the lookup resolves through the primary key.
func (l Lookup) IsByID() bool {
	return l.byID
}

type CreateProductInput struct {
	Title       string
	Slug        string
	Description string
	Price       float64
	Stock       int
	Sizes       []string
	Gender      string
	Tags        []string
	Images      []string
}

// UpdateProductInput carries a partial update: nil means "leave the
// field alone". A non-nil Images slice, empty included, replaces the
// product's whole image set.
type UpdateProductInput struct {
	Title       *string
	Slug        *string
	Description *string
	Price       *float64
	Stock       *int
	Sizes       *[]string
	Gender      *string
	Tags        *[]string
	Images      *[]string
}

// CreateResult echoes the image URLs exactly as submitted alongside the
// persisted product, whose images now carry generated ids.
type CreateResult struct {
	Product   *domain.Product
	RawImages []string
}

type ListResult struct {
	Products []domain.Product `json:"products"`
	Count    int64            `json:"count"`
	Pages    int              `json:"pages"`
}

const catalogListNamespace = "catalog_products"

type ProductServiceImpl struct {
	repo     repository.ProductRepository
	cache    CatalogListCacheStore
	cacheTTL time.Duration
	sf       singleflight.Group
	logger   *slog.Logger
}

func NewProductService(repo repository.ProductRepository, cache CatalogListCacheStore, cacheTTL time.Duration, logger *slog.Logger) *ProductServiceImpl {
	if cache == nil {
		cache = NewNoopCatalogListCacheStore()
	}
	return &ProductServiceImpl{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func (s *ProductServiceImpl) Create(ctx context.Context, input CreateProductInput, ownerID uuid.UUID) (*CreateResult, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordCatalogOperation(ctx, "create", outcome, time.Since(start)) }()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		outcome = "bad_request"
		return nil, ErrProductInvalidTitle
	}
	if input.Price < 0 {
		outcome = "bad_request"
		return nil, ErrProductInvalidPrice
	}
	if input.Stock < 0 {
		outcome = "bad_request"
		return nil, ErrProductInvalidStock
	}
	if input.Gender != "" && !domain.IsValidGender(input.Gender) {
		outcome = "bad_request"
		return nil, ErrProductInvalidGender
	}

	slugSource := input.Slug
	if strings.TrimSpace(slugSource) == "" {
		slugSource = title
	}
	slug := NormalizeSlug(slugSource)
	if slug == "" {
		outcome = "bad_request"
		return nil, ErrProductInvalidSlug
	}

	images := make([]domain.ProductImage, 0, len(input.Images))
	for _, url := range input.Images {
		images = append(images, domain.ProductImage{URL: url})
	}

	product := &domain.Product{
		Title:       title,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Stock:       input.Stock,
		Sizes:       input.Sizes,
		Gender:      input.Gender,
		Tags:        input.Tags,
		Images:      images,
	}
	if ownerID != uuid.Nil {
		product.UserID = &ownerID
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			outcome = "conflict"
			return nil, err
		}
		outcome = "error"
		s.logger.ErrorContext(ctx, "create product failed",
			"error", err,
			"title", title,
			"slug", slug,
		)
		return nil, err
	}

	s.invalidateListCache(ctx)
	return &CreateResult{Product: product, RawImages: input.Images}, nil
}

func (s *ProductServiceImpl) FindOne(ctx context.Context, lookup Lookup) (*domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordCatalogOperation(ctx, "get", outcome, time.Since(start)) }()

	var (
		product *domain.Product
		err     error
	)
	if lookup.byID {
		product, err = s.repo.FindByID(ctx, lookup.id)
	} else {
		product, err = s.repo.FindByTerm(ctx, lookup.term)
	}
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			outcome = "not_found"
			return nil, &ProductNotFoundError{Term: lookup.term}
		}
		outcome = "error"
		return nil, err
	}
	return product, nil
}

func (s *ProductServiceImpl) FindAll(ctx context.Context, req repository.PageRequest) (*ListResult, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordCatalogOperation(ctx, "list", outcome, time.Since(start)) }()

	norm := req.Normalized()
	observability.RecordCatalogListPageSize(ctx, norm.Limit)

	key := listCacheKey(norm)
	if payload, ok, err := s.cache.Get(ctx, catalogListNamespace, key); err != nil {
		observability.RecordCatalogCacheEvent(ctx, "error")
		s.logger.WarnContext(ctx, "catalog list cache read failed", "error", err)
	} else if ok {
		var cached ListResult
		if err := json.Unmarshal(payload, &cached); err == nil {
			observability.RecordCatalogCacheEvent(ctx, "hit")
			return &cached, nil
		}
		observability.RecordCatalogCacheEvent(ctx, "decode_error")
	}

	v, err, shared := s.sf.Do(key, func() (any, error) {
		res, err := s.repo.ListPaged(ctx, norm)
		if err != nil {
			return nil, err
		}
		result := &ListResult{Products: res.Items, Count: res.Total, Pages: res.Pages}
		if payload, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, catalogListNamespace, key, payload, s.cacheTTL); err != nil {
				s.logger.WarnContext(ctx, "catalog list cache write failed", "error", err)
			}
		}
		return result, nil
	})
	if err != nil {
		outcome = "error"
		return nil, err
	}
	if shared {
		observability.RecordCatalogCacheEvent(ctx, "singleflight_shared")
	} else {
		observability.RecordCatalogCacheEvent(ctx, "miss")
	}
	return v.(*ListResult), nil
}

func (s *ProductServiceImpl) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput, actorID uuid.UUID) (*domain.Product, error) {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordCatalogOperation(ctx, "update", outcome, time.Since(start)) }()

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			outcome = "not_found"
			return nil, &ProductNotFoundError{Term: id.String()}
		}
		outcome = "error"
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			outcome = "bad_request"
			return nil, ErrProductInvalidTitle
		}
		product.Title = title
		// A changed title drags the slug along unless the caller pins
		// one explicitly in the same request.
		if input.Slug == nil {
			product.Slug = NormalizeSlug(title)
		}
	}
	if input.Slug != nil {
		product.Slug = NormalizeSlug(*input.Slug)
	}
	if product.Slug == "" {
		outcome = "bad_request"
		return nil, ErrProductInvalidSlug
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if *input.Price < 0 {
			outcome = "bad_request"
			return nil, ErrProductInvalidPrice
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			outcome = "bad_request"
			return nil, ErrProductInvalidStock
		}
		product.Stock = *input.Stock
	}
	if input.Sizes != nil {
		product.Sizes = *input.Sizes
	}
	if input.Gender != nil {
		if !domain.IsValidGender(*input.Gender) {
			outcome = "bad_request"
			return nil, ErrProductInvalidGender
		}
		product.Gender = *input.Gender
	}
	if input.Tags != nil {
		product.Tags = *input.Tags
	}
	if actorID != uuid.Nil {
		product.UserID = &actorID
	}

	replaceImages := input.Images != nil
	var imageURLs []string
	if replaceImages {
		imageURLs = *input.Images
	}
	if err := s.repo.Save(ctx, product, replaceImages, imageURLs); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			outcome = "conflict"
			return nil, err
		}
		outcome = "error"
		s.logger.ErrorContext(ctx, "update product failed",
			"error", err,
			"product_id", id,
			"slug", product.Slug,
		)
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	s.invalidateListCache(ctx)
	return updated, nil
}

func (s *ProductServiceImpl) DeleteByID(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	outcome := "success"
	defer func() { observability.RecordCatalogOperation(ctx, "delete", outcome, time.Since(start)) }()

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			outcome = "not_found"
			return &ProductNotFoundError{Term: id.String()}
		}
		outcome = "error"
		return err
	}
	s.invalidateListCache(ctx)
	return nil
}

func (s *ProductServiceImpl) invalidateListCache(ctx context.Context) {
	if err := s.cache.InvalidateNamespace(ctx, catalogListNamespace); err != nil {
		s.logger.WarnContext(ctx, "catalog list cache invalidation failed", "error", err)
		return
	}
	observability.RecordCatalogCacheEvent(ctx, "invalidate")
}

func listCacheKey(req repository.PageRequest) string {
	return fmt.Sprintf("limit=%d&offset=%d&gender=%s", req.Limit, req.Offset, req.Gender)
}
