package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	"github.com/safanavk/smileshop-backend/pkg/pagination"
)

// Repository persists post-delivery return requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) error
	FindByID(ctx context.Context, requestID uuid.UUID) (*models.ReturnRequest, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error)
	List(ctx context.Context, params pagination.Params) ([]models.ReturnRequest, *pagination.Cursor, error)
	Resolve(ctx context.Context, requestID uuid.UUID, status enums.ReturnStatus, note *string, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, requestID uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.ReturnRequest, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var requests []models.ReturnRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&requests).Error; err != nil {
		return nil, nil, err
	}

	if len(requests) > normalized {
		next := requests[normalized]
		requests = requests[:normalized]
		return requests, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return requests, nil, nil
}

// Resolve moves a request out of the requested state exactly once.
func (r *repository) Resolve(ctx context.Context, requestID uuid.UUID, status enums.ReturnStatus, note *string, now time.Time) (bool, error) {
	updates := map[string]any{
		"status":      status,
		"resolved_at": now,
	}
	if note != nil {
		updates["admin_note"] = *note
	}
	result := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND status = ?", requestID, enums.ReturnStatusRequested).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
