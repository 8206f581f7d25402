package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/repository"
)

type stubProductRepo struct {
	items       map[uuid.UUID]domain.Product
	nextImageID uint
	listCalls   int
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{items: map[uuid.UUID]domain.Product{}}
}

func (s *stubProductRepo) assignImageIDs(images []domain.ProductImage, productID uuid.UUID) []domain.ProductImage {
	out := make([]domain.ProductImage, 0, len(images))
	for _, img := range images {
		s.nextImageID++
		out = append(out, domain.ProductImage{ID: s.nextImageID, URL: img.URL, ProductID: productID})
	}
	return out
}

func (s *stubProductRepo) slugTaken(slug string, exclude uuid.UUID) bool {
	for id, p := range s.items {
		if p.Slug == slug && id != exclude {
			return true
		}
	}
	return false
}

func (s *stubProductRepo) Create(_ context.Context, product *domain.Product) error {
	if s.slugTaken(product.Slug, uuid.Nil) {
		return &repository.ConflictError{Detail: "Key (slug)=(" + product.Slug + ") already exists"}
	}
	product.ID = uuid.New()
	product.Images = s.assignImageIDs(product.Images, product.ID)
	s.items[product.ID] = *product
	return nil
}

func (s *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := s.items[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := product
	return &cp, nil
}

func (s *stubProductRepo) FindByTerm(_ context.Context, term string) (*domain.Product, error) {
	lower := strings.ToLower(term)
	for _, p := range s.items {
		if p.Slug == lower || strings.Contains(strings.ToLower(p.Title), lower) {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (s *stubProductRepo) ListPaged(_ context.Context, req repository.PageRequest) (repository.PageResult[domain.Product], error) {
	s.listCalls++
	items := make([]domain.Product, 0, len(s.items))
	for _, p := range s.items {
		if req.Gender != "" && p.Gender != req.Gender {
			continue
		}
		items = append(items, p)
	}
	return repository.PageResult[domain.Product]{
		Items:  items,
		Limit:  req.Limit,
		Offset: req.Offset,
		Total:  int64(len(items)),
		Pages:  1,
	}, nil
}

func (s *stubProductRepo) Save(_ context.Context, product *domain.Product, replaceImages bool, images []string) error {
	stored, ok := s.items[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if s.slugTaken(product.Slug, product.ID) {
		return &repository.ConflictError{Detail: "Key (slug)=(" + product.Slug + ") already exists"}
	}
	if replaceImages {
		next := make([]domain.ProductImage, 0, len(images))
		for _, url := range images {
			next = append(next, domain.ProductImage{URL: url})
		}
		product.Images = s.assignImageIDs(next, product.ID)
	} else {
		product.Images = stored.Images
	}
	s.items[product.ID] = *product
	return nil
}

func (s *stubProductRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	if _, ok := s.items[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(s.items, id)
	return nil
}

func newProductServiceForTest(repo repository.ProductRepository, cache CatalogListCacheStore) *ProductServiceImpl {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProductService(repo, cache, time.Minute, logger)
}

func TestCreateDerivesSlugAndEchoesRawImages(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, nil)
	owner := uuid.New()

	res, err := svc.Create(context.Background(), CreateProductInput{
		Title:  "Test Product",
		Price:  100,
		Images: []string{"img1.jpg"},
	}, owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Product.Slug != "test-product" {
		t.Fatalf("expected slug test-product, got %q", res.Product.Slug)
	}
	if res.Product.ID == uuid.Nil {
		t.Fatal("expected generated product id")
	}
	if len(res.RawImages) != 1 || res.RawImages[0] != "img1.jpg" {
		t.Fatalf("expected raw images echoed back, got %v", res.RawImages)
	}
	if len(res.Product.Images) != 1 || res.Product.Images[0].ID == 0 {
		t.Fatalf("expected persisted image with generated id, got %+v", res.Product.Images)
	}
	if res.Product.UserID == nil || *res.Product.UserID != owner {
		t.Fatal("expected owner recorded on product")
	}
}

func TestCreateNormalizesExplicitSlug(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, nil)

	res, err := svc.Create(context.Background(), CreateProductInput{
		Title: "Cybertruck Tee",
		Slug:  "Custom  SLUG Here",
	}, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Product.Slug != "custom-slug-here" {
		t.Fatalf("expected normalized explicit slug, got %q", res.Product.Slug)
	}
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name  string
		input CreateProductInput
		want  error
	}{
		{"empty title", CreateProductInput{Title: "   "}, ErrProductInvalidTitle},
		{"negative price", CreateProductInput{Title: "Tee", Price: -1}, ErrProductInvalidPrice},
		{"negative stock", CreateProductInput{Title: "Tee", Stock: -5}, ErrProductInvalidStock},
		{"unknown gender", CreateProductInput{Title: "Tee", Gender: "other"}, ErrProductInvalidGender},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newProductServiceForTest(newStubProductRepo(), nil)
			if _, err := svc.Create(context.Background(), tc.input, uuid.Nil); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateDuplicateSlugLeavesFirstUntouched(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateProductInput{Title: "Test Product", Price: 10}, uuid.Nil)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err = svc.Create(ctx, CreateProductInput{Title: "test PRODUCT", Price: 20}, uuid.Nil)
	if !errors.Is(err, repository.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
	var conflict *repository.ConflictError
	if !errors.As(err, &conflict) || !strings.Contains(conflict.Detail, "slug") {
		t.Fatalf("expected conflict detail naming the slug, got %v", err)
	}

	got, err := svc.FindOne(ctx, LookupByID(first.Product.ID))
	if err != nil {
		t.Fatalf("expected first product to survive: %v", err)
	}
	if got.Price != 10 {
		t.Fatalf("first product mutated: %+v", got)
	}
}

func TestFindOneNotFoundNamesIdentifier(t *testing.T) {
	svc := newProductServiceForTest(newStubProductRepo(), nil)
	id := uuid.New()

	_, err := svc.FindOne(context.Background(), LookupByID(id))
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected not-found sentinel, got %v", err)
	}
	var nf *ProductNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ProductNotFoundError, got %T", err)
	}
	if !strings.Contains(err.Error(), id.String()) {
		t.Fatalf("expected message to name %s, got %q", id, err)
	}
}

func TestFindOneByTerm(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateProductInput{Title: "Product One Special Edition"}, uuid.Nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	bySlug, err := svc.FindOne(ctx, ParseLookup("product-one-special-edition"))
	if err != nil {
		t.Fatalf("lookup by slug: %v", err)
	}
	byTitle, err := svc.FindOne(ctx, ParseLookup("product one"))
	if err != nil {
		t.Fatalf("lookup by partial title: %v", err)
	}
	if bySlug.ID != byTitle.ID {
		t.Fatal("expected slug and title lookups to resolve the same product")
	}
}

func TestParseLookupClassifiesUUIDs(t *testing.T) {
	id := uuid.New()
	if l := ParseLookup(id.String()); !l.byID || l.id != id {
		t.Fatalf("expected uuid string to parse as id lookup, got %+v", l)
	}
	if l := ParseLookup("plain-slug"); l.byID {
		t.Fatalf("expected non-uuid to parse as term lookup, got %+v", l)
	}
}

func TestFindAllUsesCacheUntilInvalidated(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, NewInMemoryCatalogListCacheStore())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateProductInput{Title: "Alpha"}, uuid.Nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := repository.PageRequest{Limit: 10}
	first, err := svc.FindAll(ctx, req)
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	if first.Count != 1 || first.Pages != 1 {
		t.Fatalf("unexpected list result: %+v", first)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected one repo call, got %d", repo.listCalls)
	}

	if _, err := svc.FindAll(ctx, req); err != nil {
		t.Fatalf("cached list: %v", err)
	}
	if repo.listCalls != 1 {
		t.Fatalf("expected cached read to skip the repo, got %d calls", repo.listCalls)
	}

	if _, err := svc.Create(ctx, CreateProductInput{Title: "Beta"}, uuid.Nil); err != nil {
		t.Fatalf("second create: %v", err)
	}
	second, err := svc.FindAll(ctx, req)
	if err != nil {
		t.Fatalf("post-mutation list: %v", err)
	}
	if repo.listCalls != 2 {
		t.Fatalf("expected invalidation to force a repo read, got %d calls", repo.listCalls)
	}
	if second.Count != 2 {
		t.Fatalf("expected both products after invalidation, got %+v", second)
	}
}

func TestUpdateRederivesSlugFromTitle(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductInput{Title: "Old Name"}, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "New Name"
	updated, err := svc.Update(ctx, created.Product.ID, UpdateProductInput{Title: &title}, uuid.Nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Slug != "new-name" {
		t.Fatalf("expected slug re-derived from title, got %q", updated.Slug)
	}

	slug := "Pinned Slug"
	title2 := "Another Name"
	updated, err = svc.Update(ctx, created.Product.ID, UpdateProductInput{Title: &title2, Slug: &slug}, uuid.Nil)
	if err != nil {
		t.Fatalf("update with explicit slug: %v", err)
	}
	if updated.Slug != "pinned-slug" {
		t.Fatalf("expected explicit slug to win, got %q", updated.Slug)
	}
}

func TestUpdateReplacesImageSetOnlyWhenProvided(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductInput{
		Title:  "Shirt",
		Images: []string{"a.jpg", "b.jpg"},
	}, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Product.ID

	price := 55.0
	updated, err := svc.Update(ctx, id, UpdateProductInput{Price: &price}, uuid.Nil)
	if err != nil {
		t.Fatalf("update without images: %v", err)
	}
	if len(updated.Images) != 2 {
		t.Fatalf("expected image set untouched, got %d images", len(updated.Images))
	}

	images := []string{"c.jpg"}
	updated, err = svc.Update(ctx, id, UpdateProductInput{Images: &images}, uuid.Nil)
	if err != nil {
		t.Fatalf("update with images: %v", err)
	}
	if len(updated.Images) != 1 || updated.Images[0].URL != "c.jpg" {
		t.Fatalf("expected full image replacement, got %+v", updated.Images)
	}

	empty := []string{}
	updated, err = svc.Update(ctx, id, UpdateProductInput{Images: &empty}, uuid.Nil)
	if err != nil {
		t.Fatalf("update with empty images: %v", err)
	}
	if len(updated.Images) != 0 {
		t.Fatalf("expected empty image set, got %+v", updated.Images)
	}
}

func TestUpdateRecordsActor(t *testing.T) {
	repo := newStubProductRepo()
	svc := newProductServiceForTest(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductInput{Title: "Shirt"}, uuid.Nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	actor := uuid.New()
	price := 12.5
	updated, err := svc.Update(ctx, created.Product.ID, UpdateProductInput{Price: &price}, actor)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UserID == nil || *updated.UserID != actor {
		t.Fatal("expected last editor recorded on product")
	}
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	svc := newProductServiceForTest(newStubProductRepo(), nil)
	id := uuid.New()

	price := 10.0
	_, err := svc.Update(context.Background(), id, UpdateProductInput{Price: &price}, uuid.Nil)
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if !strings.Contains(err.Error(), id.String()) {
		t.Fatalf("expected message to name %s, got %q", id, err)
	}
}

func TestDeleteByIDUnknownReturnsNotFound(t *testing.T) {
	svc := newProductServiceForTest(newStubProductRepo(), nil)
	if err := svc.DeleteByID(context.Background(), uuid.New()); !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
