package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/thecolognehub/colognehub-backend/pkg/db"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
	"github.com/thecolognehub/colognehub-backend/pkg/pagination"
)

// CreateInput carries the admin-supplied fields for a new listing.
type CreateInput struct {
	SKU                 string
	Name                string
	Brand               *string
	Description         *string
	Category            string
	Tags                []string
	SizeML              *int
	PriceCents          int
	CompareAtPriceCents *int
	StockQty            int
	ImageURL            *string
	IsFeatured          bool
}

// UpdateInput carries optional admin edits. Nil fields are left untouched.
type UpdateInput struct {
	Name                *string
	Brand               *string
	Description         *string
	Category            *string
	Tags                []string
	SizeML              *int
	PriceCents          *int
	CompareAtPriceCents *int
	StockQty            *int
	ImageURL            *string
	IsActive            *bool
	IsFeatured          *bool
}

// Service exposes catalog operations to controllers.
type Service struct {
	repo *Repository
}

// NewService builds the catalog service.
func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &Service{repo: repo}, nil
}

// List returns a page of listings plus the total row count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Product, int64, error) {
	filter.Pagination.Limit = pagination.NormalizeLimit(filter.Pagination.Limit)
	filter.Pagination.Page = pagination.NormalizePage(filter.Pagination.Page)
	return s.repo.List(ctx, filter)
}

// Get loads a single product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// Create inserts a new listing after basic shape checks.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if strings.TrimSpace(input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	product := &models.Product{
		ID:                  uuid.New(),
		SKU:                 strings.TrimSpace(input.SKU),
		Name:                strings.TrimSpace(input.Name),
		Brand:               input.Brand,
		Description:         input.Description,
		Category:            strings.TrimSpace(input.Category),
		Tags:                input.Tags,
		SizeML:              input.SizeML,
		PriceCents:          input.PriceCents,
		CompareAtPriceCents: input.CompareAtPriceCents,
		StockQty:            input.StockQty,
		ImageURL:            input.ImageURL,
		IsActive:            true,
		IsFeatured:          input.IsFeatured,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if isUniqueErr(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

// Update applies the provided edits to an existing listing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		if strings.TrimSpace(*input.Category) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}
	if input.SizeML != nil {
		product.SizeML = input.SizeML
	}
	if input.PriceCents != nil {
		if *input.PriceCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.CompareAtPriceCents != nil {
		product.CompareAtPriceCents = input.CompareAtPriceCents
	}
	if input.StockQty != nil {
		if *input.StockQty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		product.StockQty = *input.StockQty
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, nil
}

// Delete removes a listing permanently.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// Covers both Postgres and the sqlite driver used in tests.
func isUniqueErr(err error) bool {
	if err == nil {
		return false
	}
	return dbpkg.IsUniqueViolation(err, "") || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
