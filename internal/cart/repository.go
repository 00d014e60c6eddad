package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
)

// Repository persists the single cart record each user owns.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUser loads the user's cart with items, or nil when none exists yet.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&record, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// GetOrCreate returns the user's cart, creating an empty one on first touch.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	record, err := r.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	record = &models.CartRecord{ID: uuid.New(), UserID: userID}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// UpsertItem sets the quantity for a product row, inserting when absent.
func (r *Repository) UpsertItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	item := models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).Create(&item).Error
}

// RemoveItem deletes one product row from the cart.
func (r *Repository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
}

// Clear drops all items and stamps the record. The record itself survives so
// the user keeps a stable cart id across checkouts.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	record, err := r.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", record.ID).
		Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ?", record.ID).
		Update("cleared_at", now).Error
}
