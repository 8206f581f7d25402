package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/http/middleware"
	"github.com/tesloshop/backend/internal/repository"
	"github.com/tesloshop/backend/internal/security"
	"github.com/tesloshop/backend/internal/service"
)

type stubProductService struct {
	createInput service.CreateProductInput
	createOwner uuid.UUID
	createErr   error
	created     *service.CreateResult

	findAllReq repository.PageRequest
	listResult *service.ListResult

	findOneLookup service.Lookup
	findOneErr    error
	product       *domain.Product

	updateID    uuid.UUID
	updateInput service.UpdateProductInput
	updateActor uuid.UUID
	updateErr   error

	deletedID uuid.UUID
	deleteErr error
}

func (s *stubProductService) Create(_ context.Context, input service.CreateProductInput, ownerID uuid.UUID) (*service.CreateResult, error) {
	s.createInput = input
	s.createOwner = ownerID
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubProductService) FindAll(_ context.Context, req repository.PageRequest) (*service.ListResult, error) {
	s.findAllReq = req
	return s.listResult, nil
}

func (s *stubProductService) FindOne(_ context.Context, lookup service.Lookup) (*domain.Product, error) {
	s.findOneLookup = lookup
	if s.findOneErr != nil {
		return nil, s.findOneErr
	}
	return s.product, nil
}

func (s *stubProductService) Update(_ context.Context, id uuid.UUID, input service.UpdateProductInput, actorID uuid.UUID) (*domain.Product, error) {
	s.updateID = id
	s.updateInput = input
	s.updateActor = actorID
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.product, nil
}

func (s *stubProductService) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.deletedID = id
	return s.deleteErr
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func newProductRouter(svc service.ProductService) http.Handler {
	h := NewProductHandler(svc)
	r := chi.NewRouter()
	r.Get("/products", h.List)
	r.Post("/products", h.Create)
	r.Get("/products/{term}", h.Get)
	r.Patch("/products/{id}", h.Update)
	r.Delete("/products/{id}", h.Delete)
	return r
}

func sampleProduct(id uuid.UUID) *domain.Product {
	return &domain.Product{
		ID:    id,
		Title: "Men's Chill Crew Neck Sweatshirt",
		Slug:  "mens-chill-crew-neck-sweatshirt",
		Price: 75,
		Stock: 7,
		Sizes: []string{"XS", "S"},
		Tags:  []string{"sweatshirt"},
		Images: []domain.ProductImage{
			{ID: 1, URL: "shirt-one.jpg"},
			{ID: 2, URL: "shirt-two.jpg"},
		},
	}
}

func withClaims(r *http.Request, userID uuid.UUID) *http.Request {
	claims := &security.Claims{}
	claims.Subject = userID.String()
	return r.WithContext(context.WithValue(r.Context(), middleware.ClaimsContextKey, claims))
}

func TestCreateProductEchoesRawImagesAndOwner(t *testing.T) {
	productID := uuid.New()
	ownerID := uuid.New()
	svc := &stubProductService{
		created: &service.CreateResult{
			Product:   sampleProduct(productID),
			RawImages: []string{"shirt-one.jpg", "shirt-two.jpg"},
		},
	}
	router := newProductRouter(svc)

	body := `{"title":"Men's Chill Crew Neck Sweatshirt","price":75,"sizes":["XS","S"],"images":["shirt-one.jpg","shirt-two.jpg"]}`
	req := withClaims(httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body)), ownerID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatal("expected success envelope")
	}
	var view struct {
		Slug   string   `json:"slug"`
		Images []string `json:"images"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if view.Slug != "mens-chill-crew-neck-sweatshirt" {
		t.Fatalf("slug = %q", view.Slug)
	}
	if len(view.Images) != 2 || view.Images[0] != "shirt-one.jpg" {
		t.Fatalf("images = %v", view.Images)
	}
	if svc.createOwner != ownerID {
		t.Fatalf("owner passed to service = %s, want %s", svc.createOwner, ownerID)
	}
	if svc.createInput.Title != "Men's Chill Crew Neck Sweatshirt" {
		t.Fatalf("title passed to service = %q", svc.createInput.Title)
	}
}

func TestCreateProductMapsConflictToBadRequest(t *testing.T) {
	svc := &stubProductService{
		createErr: &repository.ConflictError{Detail: "Key (slug)=(mens-chill-crew-neck-sweatshirt) already exists."},
	}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"title":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Fatalf("error = %+v", env.Error)
	}
	if !strings.Contains(env.Error.Message, "Key (slug)=") {
		t.Fatalf("message %q should carry the constraint detail", env.Error.Message)
	}
}

func TestCreateProductMapsValidationErrors(t *testing.T) {
	svc := &stubProductService{createErr: service.ErrProductInvalidTitle}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"price":10}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListProductsParsesPagination(t *testing.T) {
	svc := &stubProductService{
		listResult: &service.ListResult{
			Products: []domain.Product{*sampleProduct(uuid.New())},
			Count:    1,
			Pages:    1,
		},
	}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products?limit=5&offset=10&gender=men", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if svc.findAllReq.Limit != 5 || svc.findAllReq.Offset != 10 || svc.findAllReq.Gender != "men" {
		t.Fatalf("page request = %+v", svc.findAllReq)
	}
	env := decodeEnvelope(t, rec)
	var data struct {
		Products []struct {
			Images []string `json:"images"`
		} `json:"products"`
		Count int64 `json:"count"`
		Pages int   `json:"pages"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Count != 1 || data.Pages != 1 || len(data.Products) != 1 {
		t.Fatalf("data = %+v", data)
	}
	if len(data.Products[0].Images) != 2 {
		t.Fatalf("images should flatten to URLs, got %v", data.Products[0].Images)
	}
}

func TestListProductsRejectsBadQueryParams(t *testing.T) {
	router := newProductRouter(&stubProductService{})

	for _, query := range []string{
		"limit=0",
		"limit=abc",
		"limit=101",
		"offset=-1",
		"gender=robots",
	} {
		req := httptest.NewRequest(http.MethodGet, "/products?"+query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", query, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestGetProductByTermAndNotFound(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{product: sampleProduct(productID)}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/mens-chill-crew-neck-sweatshirt", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.findOneLookup.IsByID() {
		t.Fatal("slug term should not resolve as an id lookup")
	}

	svc.findOneErr = &service.ProductNotFoundError{Term: "no-such-product"}
	req = httptest.NewRequest(http.MethodGet, "/products/no-such-product", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || !strings.Contains(env.Error.Message, "no-such-product") {
		t.Fatalf("not found message should name the term, got %+v", env.Error)
	}
}

func TestGetProductByIDUsesIDLookup(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{product: sampleProduct(productID)}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/products/"+productID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !svc.findOneLookup.IsByID() {
		t.Fatal("uuid term should resolve as an id lookup")
	}
}

func TestUpdateProductRequiresUUID(t *testing.T) {
	router := newProductRouter(&stubProductService{})

	req := httptest.NewRequest(http.MethodPatch, "/products/not-a-uuid", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUpdateProductForwardsOptionalFields(t *testing.T) {
	productID := uuid.New()
	actor := uuid.New()
	svc := &stubProductService{product: sampleProduct(productID)}
	router := newProductRouter(svc)

	body := `{"title":"New Title","images":[]}`
	req := withClaims(httptest.NewRequest(http.MethodPatch, "/products/"+productID.String(), bytes.NewReader([]byte(body))), actor)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if svc.updateID != productID {
		t.Fatalf("update id = %s", svc.updateID)
	}
	if svc.updateActor != actor {
		t.Fatalf("update actor = %s", svc.updateActor)
	}
	if svc.updateInput.Title == nil || *svc.updateInput.Title != "New Title" {
		t.Fatalf("title = %v", svc.updateInput.Title)
	}
	if svc.updateInput.Price != nil {
		t.Fatal("price should stay nil when absent from the payload")
	}
	if svc.updateInput.Images == nil || len(*svc.updateInput.Images) != 0 {
		t.Fatalf("an explicit empty images array must survive decoding, got %v", svc.updateInput.Images)
	}
}

func TestDeleteProduct(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{}
	router := newProductRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/products/"+productID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.deletedID != productID {
		t.Fatalf("deleted id = %s, want %s", svc.deletedID, productID)
	}

	svc.deleteErr = &service.ProductNotFoundError{Term: productID.String()}
	req = httptest.NewRequest(http.MethodDelete, "/products/"+productID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
