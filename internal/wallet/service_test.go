package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/pagination"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:wallet_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	wallets := `
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  balance_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	txns := `
CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  description TEXT NOT NULL,
  order_id TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(wallets).Error)
	require.NoError(t, db.Exec(txns).Error)
	return db
}

func newWalletService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), sqliteTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func TestCredit_WritesBalanceAndLedgerTogether(t *testing.T) {
	t.Parallel()

	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Credit(ctx, EntryInput{
		UserID:      userID,
		AmountCents: 5000,
		Description: "refund for order",
	}))

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(5000), balance)

	txns, _, err := svc.ListTransactions(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, enums.TransactionTypeCredit, txns[0].Type)
	require.Equal(t, int64(5000), txns[0].AmountCents)
}

func TestDebit_RefusesInsufficientBalance(t *testing.T) {
	t.Parallel()

	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.Credit(ctx, EntryInput{
		UserID:      userID,
		AmountCents: 1000,
		Description: "promo credit",
	}))

	err := svc.Debit(ctx, EntryInput{
		UserID:      userID,
		AmountCents: 2500,
		Description: "order payment",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance, "failed debit must not change the balance")

	txns, _, err := svc.ListTransactions(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, txns, 1, "failed debit must not write a ledger row")
}

func TestBalanceEqualsSignedLedgerSum(t *testing.T) {
	t.Parallel()

	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	entries := []struct {
		credit bool
		amount int64
	}{
		{true, 10000},
		{false, 2500},
		{true, 300},
		{false, 1200},
	}
	for _, e := range entries {
		input := EntryInput{UserID: userID, AmountCents: e.amount, Description: "ledger entry"}
		if e.credit {
			require.NoError(t, svc.Credit(ctx, input))
		} else {
			require.NoError(t, svc.Debit(ctx, input))
		}
	}

	balance, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)

	txns, _, err := svc.ListTransactions(ctx, userID, pagination.Params{})
	require.NoError(t, err)

	var sum int64
	for _, txn := range txns {
		sum += txn.Type.Sign() * txn.AmountCents
	}
	require.Equal(t, balance, sum)
}

func TestGetBalance_ZeroWithoutWallet(t *testing.T) {
	t.Parallel()

	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)

	balance, err := svc.GetBalance(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestDebit_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)

	err := svc.Debit(context.Background(), EntryInput{
		UserID:      uuid.New(),
		AmountCents: 0,
		Description: "noop",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
