package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/authz"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the catalog page size when none is requested
	DefaultPageSize = 12

	// MaxPageSize caps a single catalog page
	MaxPageSize = 100
)

// ProductPage is one page of a catalog listing
type ProductPage struct {
	Products []*domain.Product
	Page     int
	Limit    int
	Total    int
	Pages    int
}

// ProductChanges carries a partial product update. Nil fields are left untouched.
type ProductChanges struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *domain.Category
	Image       *string
	Stock       *int
	Featured    *bool
}

// ProductService defines the interface for catalog business logic
type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, requester authz.Principal, product *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, requester authz.Principal, id int64, changes ProductChanges) (*domain.Product, error)
	Delete(ctx context.Context, requester authz.Principal, id int64) error
}

type productService struct {
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{products: products, logger: logger}
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	// "All" is what the storefront sends for no category
	if strings.EqualFold(string(filter.Category), "all") {
		filter.Category = ""
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, filter.Category)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%w: minPrice must not exceed maxPrice", domain.ErrValidation)
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Products: products,
		Page:     filter.Page,
		Limit:    filter.Limit,
		Total:    total,
		Pages:    (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *productService) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create adds a product to the catalog. Admin only.
func (s *productService) Create(ctx context.Context, requester authz.Principal, product *domain.Product) (*domain.Product, error) {
	if err := authz.Authorize(requester, authz.Resource{}, authz.ActionManageProducts); err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(product.Name)
	product.Description = strings.TrimSpace(product.Description)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
		zap.Int64("admin_id", requester.UserID),
	)
	return product, nil
}

// Update applies a partial change to a product. Admin only.
func (s *productService) Update(ctx context.Context, requester authz.Principal, id int64, changes ProductChanges) (*domain.Product, error) {
	if err := authz.Authorize(requester, authz.Resource{}, authz.ActionManageProducts); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if changes.Name != nil {
		product.Name = strings.TrimSpace(*changes.Name)
	}
	if changes.Description != nil {
		product.Description = strings.TrimSpace(*changes.Description)
	}
	if changes.Price != nil {
		product.Price = *changes.Price
	}
	if changes.Category != nil {
		product.Category = *changes.Category
	}
	if changes.Image != nil {
		product.Image = *changes.Image
	}
	if changes.Stock != nil {
		product.Stock = *changes.Stock
	}
	if changes.Featured != nil {
		product.Featured = *changes.Featured
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product updated",
		zap.Int64("product_id", product.ID),
		zap.Int64("admin_id", requester.UserID),
	)
	return product, nil
}

// Delete removes a product that no order references. Admin only.
func (s *productService) Delete(ctx context.Context, requester authz.Principal, id int64) error {
	if err := authz.Authorize(requester, authz.Resource{}, authz.ActionManageProducts); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Product deleted",
		zap.Int64("product_id", id),
		zap.Int64("admin_id", requester.UserID),
	)
	return nil
}

func validateProduct(product *domain.Product) error {
	switch {
	case product.Name == "":
		return fmt.Errorf("%w: product name is required", domain.ErrValidation)
	case product.Description == "":
		return fmt.Errorf("%w: product description is required", domain.ErrValidation)
	case product.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	case !product.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", domain.ErrValidation, product.Category)
	case product.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", domain.ErrValidation)
	}
	return nil
}
