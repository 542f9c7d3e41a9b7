package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emekaobi/payvault/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedAccount(t *testing.T, s *MemoryStore, number, userID, balance string) *domain.Account {
	t.Helper()
	acct := &domain.Account{
		AccountNumber: number,
		UserID:        userID,
		Balance:       dec(balance),
		Status:        domain.AccountActive,
		KYCVerified:   true,
	}
	require.NoError(t, s.CreateAccount(context.Background(), acct))
	return acct
}

func seedTransfer(t *testing.T, s *MemoryStore, from, to *domain.Account, amount string) *domain.Transaction {
	t.Helper()
	txn := &domain.Transaction{
		TransactionID:     domain.NewTransactionID(),
		UserID:            from.UserID,
		Amount:            dec(amount),
		SenderID:          from.UserID,
		ReceiverID:        to.UserID,
		SenderAccountID:   from.ID,
		ReceiverAccountID: to.ID,
		Status:            domain.StatusProcessing,
		Type:              domain.TypeTransfer,
	}
	require.NoError(t, s.CreateTransaction(context.Background(), txn))
	return txn
}

func TestMemoryStore_AccountLookups(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "2170000001", "user-a", "100.00")

	byNumber, err := s.GetAccountByNumber(ctx, "2170000001")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byNumber.ID)

	byUser, err := s.GetAccountByUser(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byUser.ID)

	_, err = s.GetAccountByNumber(ctx, "0000000000")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMemoryStore_SearchAccounts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "2170000001", "user-a", "0")
	seedAccount(t, s, "2170000002", "user-b", "0")

	all, err := s.SearchAccounts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byNumber, err := s.SearchAccounts(ctx, "2170000002")
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, "user-b", byNumber[0].UserID)

	byID, err := s.SearchAccounts(ctx, "1")
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, a.AccountNumber, byID[0].AccountNumber)

	none, err := s.SearchAccounts(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_MoveFunds(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "2170000001", "user-a", "100.00")
	b := seedAccount(t, s, "2170000002", "user-b", "10.00")
	txn := seedTransfer(t, s, a, b, "40.00")

	err := s.MoveFunds(ctx, txn.TransactionID, a.ID, b.ID, txn.Amount, domain.StatusCompleted)
	require.NoError(t, err)

	gotA, _ := s.GetAccountByUser(ctx, "user-a")
	gotB, _ := s.GetAccountByUser(ctx, "user-b")
	assert.True(t, gotA.Balance.Equal(dec("60.00")), "got %s", gotA.Balance)
	assert.True(t, gotB.Balance.Equal(dec("50.00")), "got %s", gotB.Balance)

	gotTxn, _ := s.GetTransaction(ctx, txn.TransactionID)
	assert.Equal(t, domain.StatusCompleted, gotTxn.Status)
	assert.NotNil(t, gotTxn.Updated)

	// Replaying the same move must fail on the status transition and
	// leave balances alone.
	err = s.MoveFunds(ctx, txn.TransactionID, a.ID, b.ID, txn.Amount, domain.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
	gotA, _ = s.GetAccountByUser(ctx, "user-a")
	assert.True(t, gotA.Balance.Equal(dec("60.00")))
}

func TestMemoryStore_MoveFunds_InsufficientFunds(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "2170000001", "user-a", "30.00")
	b := seedAccount(t, s, "2170000002", "user-b", "0")
	txn := seedTransfer(t, s, a, b, "40.00")

	err := s.MoveFunds(ctx, txn.TransactionID, a.ID, b.ID, txn.Amount, domain.StatusCompleted)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	gotA, _ := s.GetAccountByUser(ctx, "user-a")
	gotB, _ := s.GetAccountByUser(ctx, "user-b")
	assert.True(t, gotA.Balance.Equal(dec("30.00")))
	assert.True(t, gotB.Balance.Equal(dec("0")))

	gotTxn, _ := s.GetTransaction(ctx, txn.TransactionID)
	assert.Equal(t, domain.StatusProcessing, gotTxn.Status)
}

func TestMemoryStore_UpdateTransactionStatus_Illegal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "2170000001", "user-a", "100.00")
	b := seedAccount(t, s, "2170000002", "user-b", "0")
	txn := seedTransfer(t, s, a, b, "5.00")

	assert.ErrorIs(t,
		s.UpdateTransactionStatus(ctx, txn.TransactionID, domain.StatusRequestSent),
		domain.ErrIllegalTransition)
	assert.NoError(t,
		s.UpdateTransactionStatus(ctx, txn.TransactionID, domain.StatusFailed))
	assert.ErrorIs(t,
		s.UpdateTransactionStatus(ctx, "TRNMISSING", domain.StatusFailed),
		ErrTransactionNotFound)
}

func TestMemoryStore_ListTransactions_RecencyOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "2170000001", "user-a", "100.00")
	b := seedAccount(t, s, "2170000002", "user-b", "0")

	first := seedTransfer(t, s, a, b, "1.00")
	second := seedTransfer(t, s, a, b, "2.00")
	third := seedTransfer(t, s, a, b, "3.00")

	sent, err := s.ListTransactions(ctx, "user-a", domain.TypeTransfer, RoleSender)
	require.NoError(t, err)
	require.Len(t, sent, 3)
	assert.Equal(t, third.TransactionID, sent[0].TransactionID)
	assert.Equal(t, second.TransactionID, sent[1].TransactionID)
	assert.Equal(t, first.TransactionID, sent[2].TransactionID)

	received, err := s.ListTransactions(ctx, "user-b", domain.TypeTransfer, RoleReceiver)
	require.NoError(t, err)
	assert.Len(t, received, 3)

	asReceiver, err := s.ListTransactions(ctx, "user-a", domain.TypeTransfer, RoleReceiver)
	require.NoError(t, err)
	assert.Empty(t, asReceiver)
}

func TestMemoryStore_DeleteTransaction(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := seedAccount(t, s, "2170000001", "user-a", "100.00")
	b := seedAccount(t, s, "2170000002", "user-b", "0")
	txn := seedTransfer(t, s, a, b, "1.00")

	require.NoError(t, s.DeleteTransaction(ctx, txn.TransactionID))
	_, err := s.GetTransaction(ctx, txn.TransactionID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, txn.TransactionID), ErrTransactionNotFound)
}
