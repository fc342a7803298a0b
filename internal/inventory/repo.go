package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
)

// Repository performs stock ledger operations. Every mutation is a single
// conditional UPDATE so concurrent checkouts can never drive stock negative.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error)
	FindVariants(ctx context.Context, variantIDs []uuid.UUID) ([]models.ProductVariant, error)
	Decrement(ctx context.Context, variantID uuid.UUID, qty int) (bool, error)
	Restock(ctx context.Context, variantID uuid.UUID, qty int) error
	SetStock(ctx context.Context, variantID uuid.UUID, stock int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Where("id = ?", variantID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) FindVariants(ctx context.Context, variantIDs []uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Where("id IN ?", variantIDs).
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

// Decrement subtracts qty from the variant's stock only when enough stock
// remains. It reports false when the guard matched no row.
func (r *repository) Decrement(ctx context.Context, variantID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Restock adds qty back to the variant's stock.
func (r *repository) Restock(ctx context.Context, variantID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// SetStock overwrites the stock level, used by admin catalog edits.
func (r *repository) SetStock(ctx context.Context, variantID uuid.UUID, stock int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		UpdateColumn("stock", stock).Error
}
