package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/internal/inventory"
	"github.com/safanavk/smileshop-backend/internal/pricing"
	"github.com/safanavk/smileshop-backend/pkg/db/models"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
)

// MaxQuantityPerLine caps how many units of one variant a cart may hold.
const MaxQuantityPerLine = 10

// Service manages cart contents and produces priced quotes. The cart stores
// no prices; every quote re-prices lines from the live catalog.
type Service interface {
	GetQuote(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error)
	AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) error
	UpdateItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, variantID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
	ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
	LoadLines(ctx context.Context, userID uuid.UUID) ([]Line, error)
}

// Line is a cart row joined with its priced catalog snapshot.
type Line struct {
	VariantID      uuid.UUID
	ProductName    string
	Size           string
	Quantity       int
	Stock          int
	UnitPriceCents int64
}

type service struct {
	repo      Repository
	inventory inventory.Repository
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, inv inventory.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, inventory: inv}, nil
}

func (s *service) GetQuote(ctx context.Context, userID uuid.UUID) (*pricing.Quote, error) {
	lines, err := s.LoadLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	quoteLines := make([]pricing.Line, 0, len(lines))
	for _, line := range lines {
		quoteLines = append(quoteLines, pricing.Line{
			VariantID:      line.VariantID.String(),
			ProductName:    line.ProductName,
			Size:           line.Size,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.UnitPriceCents * int64(line.Quantity),
		})
	}

	subtotal := pricing.Subtotal(quoteLines)
	return &pricing.Quote{
		Lines:         quoteLines,
		SubtotalCents: subtotal,
		TotalCents:    subtotal,
	}, nil
}

// LoadLines returns the cart's rows with live prices and stock levels.
func (s *service) LoadLines(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Line{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	lines := make([]Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		variant := item.Variant
		if variant == nil || variant.Product == nil || !variant.Product.Listed {
			continue
		}
		unitPrice := pricing.EffectiveUnitPrice(pricing.OfferInputFor(variant.Product, variant.Product.Category))
		lines = append(lines, Line{
			VariantID:      variant.ID,
			ProductName:    variant.Product.Name,
			Size:           variant.Size,
			Quantity:       item.Quantity,
			Stock:          variant.Stock,
			UnitPriceCents: unitPrice,
		})
	}
	return lines, nil
}

func (s *service) AddItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) error {
	if err := validateLineInput(userID, variantID, quantity); err != nil {
		return err
	}

	variant, err := s.inventory.FindVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product variant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if variant.Product != nil && !variant.Product.Listed {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	cart, err := s.repo.EnsureCart(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure cart")
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, variantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if existing != nil {
		newQty := existing.Quantity + quantity
		if newQty > MaxQuantityPerLine {
			newQty = MaxQuantityPerLine
		}
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, newQty); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	}

	item := models.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		VariantID: variantID,
		Quantity:  quantity,
	}
	if err := s.repo.CreateItem(ctx, &item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return nil
}

func (s *service) UpdateItem(ctx context.Context, userID, variantID uuid.UUID, quantity int) error {
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, variantID)
	}
	if err := validateLineInput(userID, variantID, quantity); err != nil {
		return err
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, variantID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	removed, err := s.repo.DeleteItem(ctx, cart.ID, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.ClearTx(ctx, nil, userID)
}

// ClearTx empties the cart, optionally inside the caller's transaction.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func validateLineInput(userID, variantID uuid.UUID, quantity int) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if variantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if quantity > MaxQuantityPerLine {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds per-item limit").WithDetails(map[string]any{
			"max_quantity": MaxQuantityPerLine,
		})
	}
	return nil
}
