package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/observability"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateKey    = errors.New("duplicate key")
)

const pgUniqueViolation = "23505"

// ConflictError wraps a unique-constraint violation with the detail the
// store reported, so callers can surface the offending field/value.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate key: %s", e.Detail)
}

func (e *ConflictError) Unwrap() error { return ErrDuplicateKey }

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByTerm(ctx context.Context, term string) (*domain.Product, error)
	ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.Product], error)
	Save(ctx context.Context, product *domain.Product, replaceImages bool, images []string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type GormProductRepository struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "create", "error")
		return translateError(err)
	}
	observability.RecordRepositoryOperation(ctx, "product", "create", "success")
	return nil
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).
		Preload("Images", orderedImages).
		Preload("User").
		First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "not_found")
			return nil, ErrProductNotFound
		}
		observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "product", "find_by_id", "success")
	return &product, nil
}

// FindByTerm resolves a human-readable search term: an exact slug match or
// a case-insensitive partial title match, first hit wins.
func (r *GormProductRepository) FindByTerm(ctx context.Context, term string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.WithContext(ctx).
		Preload("Images", orderedImages).
		Preload("User").
		Where("slug = ?", strings.ToLower(term)).
		Or("UPPER(title) LIKE ?", "%"+strings.ToUpper(term)+"%").
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "product", "find_by_term", "not_found")
			return nil, ErrProductNotFound
		}
		observability.RecordRepositoryOperation(ctx, "product", "find_by_term", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "product", "find_by_term", "success")
	return &product, nil
}

func (r *GormProductRepository) ListPaged(ctx context.Context, req PageRequest) (PageResult[domain.Product], error) {
	normalized := normalizePageRequest(req)
	result := PageResult[domain.Product]{
		Limit:  normalized.Limit,
		Offset: normalized.Offset,
	}

	base := r.db.WithContext(ctx).Model(&domain.Product{})
	if normalized.Gender != "" {
		base = base.Where("gender = ?", normalized.Gender)
	}
	if err := base.Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "list_paged", "error")
		return PageResult[domain.Product]{}, err
	}
	err := base.
		Preload("Images", orderedImages).
		Order("created_at desc").
		Offset(normalized.Offset).
		Limit(normalized.Limit).
		Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "list_paged", "error")
		return PageResult[domain.Product]{}, err
	}
	result.Pages = calcPages(result.Total, normalized.Limit)
	observability.RecordRepositoryOperation(ctx, "product", "list_paged", "success")
	return result, nil
}

// Save persists the merged product inside one transaction. When
// replaceImages is set, every image row currently owned by the product is
// deleted before the supplied URLs are inserted; deletion strictly precedes
// insertion and a failure anywhere rolls the whole set back. The
// transaction handle is released on every exit path.
func (r *GormProductRepository) Save(ctx context.Context, product *domain.Product, replaceImages bool, images []string) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		observability.RecordRepositoryOperation(ctx, "product", "save", "error")
		return tx.Error
	}
	committed := false
	defer func() {
		if !committed {
			// Rollback also releases the underlying connection. Its own
			// failure must not mask the error already in flight.
			tx.Rollback()
		}
	}()

	if replaceImages {
		if err := tx.Where("product_id = ?", product.ID).Delete(&domain.ProductImage{}).Error; err != nil {
			observability.RecordRepositoryOperation(ctx, "product", "save", "error")
			return err
		}
		product.Images = make([]domain.ProductImage, 0, len(images))
		for _, url := range images {
			product.Images = append(product.Images, domain.ProductImage{URL: url, ProductID: product.ID})
		}
	}

	var err error
	if replaceImages {
		err = tx.Omit("User").Session(&gorm.Session{FullSaveAssociations: true}).Save(product).Error
	} else {
		err = tx.Omit(clause.Associations).Save(product).Error
	}
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "save", "error")
		return translateError(err)
	}

	if err := tx.Commit().Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "product", "save", "error")
		return err
	}
	committed = true
	observability.RecordRepositoryOperation(ctx, "product", "save", "success")
	return nil
}

func (r *GormProductRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Select("Images").Delete(&domain.Product{ID: id})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "not_found")
		return ErrProductNotFound
	}
	observability.RecordRepositoryOperation(ctx, "product", "delete_by_id", "success")
	return nil
}

// translateError maps the store's structured unique-violation code (and the
// sqlite equivalent the test tier produces) onto ConflictError; anything
// else passes through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		detail := pgErr.Detail
		if detail == "" {
			detail = pgErr.Message
		}
		return &ConflictError{Detail: detail}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Detail: err.Error()}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
		return &ConflictError{Detail: err.Error()}
	}
	return err
}

// orderedImages keeps preloaded image sets in insertion order.
func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("product_images.id ASC")
}
