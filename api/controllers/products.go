package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/thecolognehub/colognehub-backend/api/responses"
	"github.com/thecolognehub/colognehub-backend/api/validators"
	productsvc "github.com/thecolognehub/colognehub-backend/internal/products"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
	"github.com/thecolognehub/colognehub-backend/pkg/logger"
	"github.com/thecolognehub/colognehub-backend/pkg/pagination"
)

type productView struct {
	ID                  uuid.UUID `json:"id"`
	SKU                 string    `json:"sku"`
	Name                string    `json:"name"`
	Brand               *string   `json:"brand,omitempty"`
	Description         *string   `json:"description,omitempty"`
	Category            string    `json:"category"`
	Tags                []string  `json:"tags"`
	SizeML              *int      `json:"size_ml,omitempty"`
	PriceCents          int       `json:"price_cents"`
	CompareAtPriceCents *int      `json:"compare_at_price_cents,omitempty"`
	StockQty            int       `json:"stock_qty"`
	InStock             bool      `json:"in_stock"`
	ImageURL            *string   `json:"image_url,omitempty"`
	IsActive            bool      `json:"is_active"`
	IsFeatured          bool      `json:"is_featured"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type productListResponse struct {
	Products   []productView `json:"products"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
}

func newProductView(p *models.Product) productView {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return productView{
		ID:                  p.ID,
		SKU:                 p.SKU,
		Name:                p.Name,
		Brand:               p.Brand,
		Description:         p.Description,
		Category:            p.Category,
		Tags:                tags,
		SizeML:              p.SizeML,
		PriceCents:          p.PriceCents,
		CompareAtPriceCents: p.CompareAtPriceCents,
		StockQty:            p.StockQty,
		InStock:             p.StockQty > 0,
		ImageURL:            p.ImageURL,
		IsActive:            p.IsActive,
		IsFeatured:          p.IsFeatured,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// ProductList serves the public storefront catalog page.
func ProductList(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := productsvc.ListFilter{
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
			Featured:   featured,
			ActiveOnly: true,
			Pagination: pagination.Params{Page: page, Limit: limit},
		}

		rows, total, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]productView, 0, len(rows))
		for i := range rows {
			views = append(views, newProductView(&rows[i]))
		}

		responses.WriteSuccess(w, productListResponse{
			Products:   views,
			Total:      total,
			Page:       pagination.NormalizePage(page),
			TotalPages: pagination.TotalPages(total, limit),
		})
	}
}

// ProductDetail serves a single public listing.
func ProductDetail(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductView(product))
	}
}

type createProductRequest struct {
	SKU                 string   `json:"sku" validate:"required"`
	Name                string   `json:"name" validate:"required"`
	Brand               *string  `json:"brand,omitempty"`
	Description         *string  `json:"description,omitempty"`
	Category            string   `json:"category" validate:"required"`
	Tags                []string `json:"tags,omitempty"`
	SizeML              *int     `json:"size_ml,omitempty" validate:"omitempty,min=1"`
	PriceCents          int      `json:"price_cents" validate:"required,min=0"`
	CompareAtPriceCents *int     `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	StockQty            int      `json:"stock_qty" validate:"min=0"`
	ImageURL            *string  `json:"image_url,omitempty"`
	IsFeatured          bool     `json:"is_featured,omitempty"`
}

type updateProductRequest struct {
	Name                *string  `json:"name,omitempty"`
	Brand               *string  `json:"brand,omitempty"`
	Description         *string  `json:"description,omitempty"`
	Category            *string  `json:"category,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	SizeML              *int     `json:"size_ml,omitempty" validate:"omitempty,min=1"`
	PriceCents          *int     `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	CompareAtPriceCents *int     `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	StockQty            *int     `json:"stock_qty,omitempty" validate:"omitempty,min=0"`
	ImageURL            *string  `json:"image_url,omitempty"`
	IsActive            *bool    `json:"is_active,omitempty"`
	IsFeatured          *bool    `json:"is_featured,omitempty"`
}

// AdminProductCreate handles catalog listing creation.
func AdminProductCreate(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), productsvc.CreateInput{
			SKU:                 payload.SKU,
			Name:                payload.Name,
			Brand:               payload.Brand,
			Description:         payload.Description,
			Category:            payload.Category,
			Tags:                payload.Tags,
			SizeML:              payload.SizeML,
			PriceCents:          payload.PriceCents,
			CompareAtPriceCents: payload.CompareAtPriceCents,
			StockQty:            payload.StockQty,
			ImageURL:            payload.ImageURL,
			IsFeatured:          payload.IsFeatured,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductView(product))
	}
}

// AdminProductUpdate patches a listing. Nil fields are left untouched.
func AdminProductUpdate(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productID, productsvc.UpdateInput{
			Name:                payload.Name,
			Brand:               payload.Brand,
			Description:         payload.Description,
			Category:            payload.Category,
			Tags:                payload.Tags,
			SizeML:              payload.SizeML,
			PriceCents:          payload.PriceCents,
			CompareAtPriceCents: payload.CompareAtPriceCents,
			StockQty:            payload.StockQty,
			ImageURL:            payload.ImageURL,
			IsActive:            payload.IsActive,
			IsFeatured:          payload.IsFeatured,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductView(product))
	}
}

// AdminProductDelete removes a listing from the catalog.
func AdminProductDelete(svc *productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := parsePathUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parsePathUUID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
