package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thecolognehub/colognehub-backend/internal/products"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
)

var cartDDL = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  brand TEXT,
  description TEXT,
  category TEXT NOT NULL,
  tags TEXT,
  size_ml INTEGER,
  price_cents INTEGER NOT NULL,
  compare_at_price_cents INTEGER,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  cleared_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

type cartEnv struct {
	conn *gorm.DB
	svc  *Service
}

func newCartEnv(t *testing.T) *cartEnv {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	for _, stmt := range cartDDL {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	svc, err := NewService(NewRepository(conn), products.NewRepository(conn))
	require.NoError(t, err)
	return &cartEnv{conn: conn, svc: svc}
}

func (e *cartEnv) seedProduct(t *testing.T, priceCents, stockQty int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:         uuid.New(),
		SKU:        "SKU-" + uuid.NewString()[:8],
		Name:       "Santal Noir 50ml",
		Category:   "woody",
		PriceCents: priceCents,
		StockQty:   stockQty,
		IsActive:   active,
	}
	require.NoError(t, e.conn.Create(product).Error)
	// gorm replaces zero-valued fields that declare a column default (here
	// IsActive=false vs default:true), so persist the requested flag directly.
	require.NoError(t, e.conn.Model(product).UpdateColumn("is_active", active).Error)
	return product
}

func TestSetItemAddsAndUpdatesQuantity(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	product := env.seedProduct(t, 8500, 10, true)

	view, err := env.svc.SetItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, 17000, view.Lines[0].LineTotalCents)
	assert.Equal(t, 17000, view.SubtotalCents)

	// Setting again replaces the quantity rather than adding to it.
	view, err = env.svc.SetItem(ctx, userID, product.ID, 5)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 5, view.Lines[0].Quantity)
	assert.Equal(t, 42500, view.SubtotalCents)
}

func TestSetItemZeroRemovesLine(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	product := env.seedProduct(t, 8500, 10, true)

	_, err := env.svc.SetItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)

	view, err := env.svc.SetItem(ctx, userID, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.SubtotalCents)
}

func TestSetItemEnforcesStock(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 8500, 3, true)

	_, err := env.svc.SetItem(ctx, uuid.New(), product.ID, 4)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestSetItemRejectsInactiveProduct(t *testing.T) {
	env := newCartEnv(t)
	product := env.seedProduct(t, 8500, 10, false)

	_, err := env.svc.SetItem(context.Background(), uuid.New(), product.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestSetItemUnknownProduct(t *testing.T) {
	env := newCartEnv(t)

	_, err := env.svc.SetItem(context.Background(), uuid.New(), uuid.New(), 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSetItemValidatesInput(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()

	_, err := env.svc.SetItem(ctx, uuid.Nil, uuid.New(), 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	_, err = env.svc.SetItem(ctx, uuid.New(), uuid.Nil, 1)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = env.svc.SetItem(ctx, uuid.New(), uuid.New(), -1)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestClearEmptiesCart(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	first := env.seedProduct(t, 8500, 10, true)
	second := env.seedProduct(t, 12000, 10, true)

	_, err := env.svc.SetItem(ctx, userID, first.ID, 1)
	require.NoError(t, err)
	_, err = env.svc.SetItem(ctx, userID, second.ID, 2)
	require.NoError(t, err)

	require.NoError(t, env.svc.Clear(ctx, userID))

	view, err := env.svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestGetHidesDeletedProducts(t *testing.T) {
	env := newCartEnv(t)
	ctx := context.Background()
	userID := uuid.New()
	product := env.seedProduct(t, 8500, 10, true)

	_, err := env.svc.SetItem(ctx, userID, product.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.conn.Delete(&models.Product{}, "id = ?", product.ID).Error)

	view, err := env.svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.SubtotalCents)
}

func TestGetReturnsEmptyCartForNewUser(t *testing.T) {
	env := newCartEnv(t)

	view, err := env.svc.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, view.CartID)
	assert.Empty(t, view.Lines)
}
