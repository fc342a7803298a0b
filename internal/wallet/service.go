package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes wallet balance and ledger operations. Credit and Debit
// always write the balance change and its ledger row in the same transaction.
type Service interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, *pagination.Cursor, error)
	Credit(ctx context.Context, input EntryInput) error
	Debit(ctx context.Context, input EntryInput) error
	CreditTx(ctx context.Context, tx *gorm.DB, input EntryInput) error
	DebitTx(ctx context.Context, tx *gorm.DB, input EntryInput) error
}

// EntryInput describes one wallet movement.
type EntryInput struct {
	UserID      uuid.UUID
	AmountCents int64
	Description string
	OrderID     *uuid.UUID
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet.BalanceCents, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, *pagination.Cursor, error) {
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.WalletTransaction{}, nil, nil
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return s.repo.ListTransactions(ctx, wallet.ID, params)
}

func (s *service) Credit(ctx context.Context, input EntryInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.CreditTx(ctx, tx, input)
	})
}

func (s *service) Debit(ctx context.Context, input EntryInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.DebitTx(ctx, tx, input)
	})
}

// CreditTx adds funds inside the caller's transaction.
func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input EntryInput) error {
	if err := validateEntry(input); err != nil {
		return err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.EnsureWallet(ctx, input.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
	}
	if err := repo.AddBalance(ctx, wallet.ID, input.AmountCents); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet balance")
	}
	return s.writeLedger(ctx, repo, wallet.ID, enums.TransactionTypeCredit, input)
}

// DebitTx removes funds inside the caller's transaction, failing with a
// conflict when the balance cannot cover the amount.
func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, input EntryInput) error {
	if err := validateEntry(input); err != nil {
		return err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.EnsureWallet(ctx, input.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
	}

	ok, err := repo.SubtractBalance(ctx, wallet.ID, input.AmountCents)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet balance")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient wallet balance").WithDetails(map[string]any{
			"balance_cents":  wallet.BalanceCents,
			"required_cents": input.AmountCents,
		})
	}
	return s.writeLedger(ctx, repo, wallet.ID, enums.TransactionTypeDebit, input)
}

func (s *service) writeLedger(ctx context.Context, repo Repository, walletID uuid.UUID, txnType enums.TransactionType, input EntryInput) error {
	txn := models.WalletTransaction{
		ID:          uuid.New(),
		WalletID:    walletID,
		Type:        txnType,
		AmountCents: input.AmountCents,
		Description: input.Description,
		OrderID:     input.OrderID,
	}
	if err := repo.CreateTransaction(ctx, &txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write wallet transaction")
	}
	return nil
}

func validateEntry(input EntryInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Description == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	return nil
}
