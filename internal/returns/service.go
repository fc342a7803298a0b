package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/internal/inventory"
	"github.com/safanavk/smileshop-backend/internal/orders"
	"github.com/safanavk/smileshop-backend/internal/wallet"
	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/logger"
	"github.com/safanavk/smileshop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service handles post-delivery returns. Approval restocks the goods and
// credits the wallet in one transaction, and can only happen once per order.
type Service interface {
	Request(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.ReturnRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID, note *string) (*models.ReturnRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, note *string) (*models.ReturnRequest, error)
	List(ctx context.Context, params pagination.Params) ([]models.ReturnRequest, *pagination.Cursor, error)
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	tx         txRunner
	inventory  inventory.Repository
	wallet     wallet.Service
	logg       *logger.Logger
}

// NewService builds a returns service with the required dependencies.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	tx txRunner,
	inv inventory.Repository,
	walletSvc wallet.Service,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		ordersRepo: ordersRepo,
		tx:         tx,
		inventory:  inv,
		wallet:     walletSvc,
		logg:       logg,
	}, nil
}

func (s *service) Request(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.ReturnRequest, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}

	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.OrderStatus != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
	}

	if _, err := s.repo.FindByOrder(ctx, orderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "return already requested for order")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing return")
	}

	request := models.ReturnRequest{
		ID:      uuid.New(),
		OrderID: orderID,
		UserID:  userID,
		Reason:  strings.TrimSpace(reason),
		Status:  enums.ReturnStatusRequested,
	}
	if err := s.repo.Create(ctx, &request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return request")
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(ctx, "return requested")
	return &request, nil
}

// Approve restocks the returned goods and refunds the order total to the
// buyer's wallet. The conditional resolve guarantees this runs at most once.
func (s *service) Approve(ctx context.Context, requestID uuid.UUID, note *string) (*models.ReturnRequest, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	order, err := s.ordersRepo.FindByID(ctx, request.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load returned order")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Resolve(ctx, requestID, enums.ReturnStatusApproved, note, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve return")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return request already resolved")
		}

		inv := s.inventory.WithTx(tx)
		for _, item := range order.Items {
			if err := inv.Restock(ctx, item.VariantID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock returned items")
			}
		}

		if order.PaymentStatus == enums.PaymentStatusPaid {
			if err := s.wallet.CreditTx(ctx, tx, wallet.EntryInput{
				UserID:      order.UserID,
				AmountCents: order.TotalCents,
				Description: "refund for returned order",
				OrderID:     &order.ID,
			}); err != nil {
				return err
			}
			if err := s.ordersRepo.WithTx(tx).SetRefundStatus(ctx, order.ID, enums.RefundStatusRefunded); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "return approved")
	return s.repo.FindByID(ctx, requestID)
}

func (s *service) Reject(ctx context.Context, requestID uuid.UUID, note *string) (*models.ReturnRequest, error) {
	if _, err := s.load(ctx, requestID); err != nil {
		return nil, err
	}

	ok, err := s.repo.Resolve(ctx, requestID, enums.ReturnStatusRejected, note, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject return")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "return request already resolved")
	}
	return s.repo.FindByID(ctx, requestID)
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.ReturnRequest, *pagination.Cursor, error) {
	return s.repo.List(ctx, params)
}

func (s *service) load(ctx context.Context, requestID uuid.UUID) (*models.ReturnRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return request")
	}
	return request, nil
}
