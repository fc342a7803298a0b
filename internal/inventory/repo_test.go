package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:inventory_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	variants := `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  size TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  offer_percent INTEGER NOT NULL DEFAULT 0,
  offer_active INTEGER NOT NULL DEFAULT 0,
  offer_price_cents INTEGER NOT NULL DEFAULT 0,
  listed INTEGER NOT NULL DEFAULT 1,
  image_urls TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  listed INTEGER NOT NULL DEFAULT 1,
  offer_percent INTEGER NOT NULL DEFAULT 0,
  offer_active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(variants).Error)
	require.NoError(t, db.Exec(products).Error)
	require.NoError(t, db.Exec(categories).Error)
	return db
}

func seedVariant(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()

	variant := models.ProductVariant{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Size:      "M",
		Stock:     stock,
	}
	require.NoError(t, db.Create(&variant).Error)
	return variant.ID
}

func TestDecrement_SubtractsWhenEnoughStock(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	variantID := seedVariant(t, db, 10)

	ok, err := repo.Decrement(ctx, variantID, 4)
	require.NoError(t, err)
	require.True(t, ok)

	variant, err := repo.FindVariant(ctx, variantID)
	require.NoError(t, err)
	require.Equal(t, 6, variant.Stock)
}

func TestDecrement_RefusesInsufficientStock(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	variantID := seedVariant(t, db, 3)

	ok, err := repo.Decrement(ctx, variantID, 5)
	require.NoError(t, err)
	require.False(t, ok)

	variant, err := repo.FindVariant(ctx, variantID)
	require.NoError(t, err)
	require.Equal(t, 3, variant.Stock, "stock must be untouched after a refused decrement")
}

func TestDecrement_ExactStockDrainsToZero(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	variantID := seedVariant(t, db, 5)

	ok, err := repo.Decrement(ctx, variantID, 5)
	require.NoError(t, err)
	require.True(t, ok)

	variant, err := repo.FindVariant(ctx, variantID)
	require.NoError(t, err)
	require.Equal(t, 0, variant.Stock)

	ok, err = repo.Decrement(ctx, variantID, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRestock_AddsBack(t *testing.T) {
	t.Parallel()

	db := setupInventoryTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	variantID := seedVariant(t, db, 2)

	require.NoError(t, repo.Restock(ctx, variantID, 7))

	variant, err := repo.FindVariant(ctx, variantID)
	require.NoError(t, err)
	require.Equal(t, 9, variant.Stock)
}
