package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emekaobi/payvault/internal/domain"
	"github.com/emekaobi/payvault/internal/events"
	"github.com/emekaobi/payvault/internal/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	store     *store.MemoryStore
	ledger    *LedgerService
	transfers *TransferService
	requests  *RequestService
}

func newFixture() *fixture {
	s := store.NewMemoryStore()
	pub := events.NoopPublisher{}
	return &fixture{
		store:     s,
		ledger:    NewLedgerService(s),
		transfers: NewTransferService(s, pub),
		requests:  NewRequestService(s, pub),
	}
}

func (f *fixture) seedAccount(t *testing.T, number, userID, balance, pin string) *domain.Account {
	t.Helper()
	hash, err := domain.HashPin(pin)
	require.NoError(t, err)
	acct := &domain.Account{
		AccountNumber: number,
		UserID:        userID,
		Balance:       dec(balance),
		PinHash:       hash,
		Status:        domain.AccountActive,
		KYCVerified:   true,
	}
	require.NoError(t, f.store.CreateAccount(context.Background(), acct))
	return acct
}

func (f *fixture) balance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	acct, err := f.store.GetAccountByUser(context.Background(), userID)
	require.NoError(t, err)
	return acct.Balance
}

func TestCreateTransfer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedAccount(t, "2170000001", "alice", "100.00", "1111")
	f.seedAccount(t, "2170000002", "bob", "10.00", "2222")

	txn, err := f.ledger.CreateTransfer(ctx, "alice", "2170000002", "40.00", "rent")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusProcessing, txn.Status)
	assert.Equal(t, domain.TypeTransfer, txn.Type)
	assert.Equal(t, "alice", txn.SenderID)
	assert.Equal(t, "bob", txn.ReceiverID)
	assert.True(t, txn.Amount.Equal(dec("40.00")))
	assert.Regexp(t, `^TRN`, txn.TransactionID)

	// No money moves at creation.
	assert.True(t, f.balance(t, "alice").Equal(dec("100.00")))
	assert.True(t, f.balance(t, "bob").Equal(dec("10.00")))
}

func TestCreateTransfer_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedAccount(t, "2170000001", "alice", "30.00", "1111")
	f.seedAccount(t, "2170000002", "bob", "0", "2222")

	cases := []struct {
		name     string
		receiver string
		amount   string
		wantErr  error
	}{
		{"self transfer", "2170000001", "10.00", ErrSelfTransfer},
		{"empty amount", "2170000002", "", ErrInvalidAmount},
		{"malformed amount", "2170000002", "ten dollars", ErrInvalidAmount},
		{"zero amount", "2170000002", "0", ErrInvalidAmount},
		{"negative amount", "2170000002", "-5.00", ErrInvalidAmount},
		{"insufficient funds", "2170000002", "40.00", store.ErrInsufficientFunds},
		{"unknown account", "9999999999", "10.00", store.ErrAccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.CreateTransfer(ctx, "alice", tc.receiver, tc.amount, "")
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// None of the rejected attempts may have left a row behind.
	ov, err := f.ledger.Overview(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ov.TransfersSent)
}

func TestCreateRequest_RolesAndValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	requesterAcct := f.seedAccount(t, "2170000001", "rita", "0", "1111")
	payerAcct := f.seedAccount(t, "2170000002", "paul", "50.00", "2222")

	txn, err := f.ledger.CreateRequest(ctx, "rita", "2170000002", "25.00", "lunch")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRequestProcessing, txn.Status)
	assert.Equal(t, domain.TypeRequest, txn.Type)
	assert.Equal(t, "rita", txn.Requester())
	assert.Equal(t, "paul", txn.Payer())
	assert.Equal(t, requesterAcct.ID, txn.RequesterAccountID())
	assert.Equal(t, payerAcct.ID, txn.PayerAccountID())

	_, err = f.ledger.CreateRequest(ctx, "rita", "2170000001", "25.00", "")
	assert.ErrorIs(t, err, ErrSelfRequest)

	_, err = f.ledger.CreateRequest(ctx, "rita", "2170000002", "-1", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestGetDetail_ParticipantsOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedAccount(t, "2170000001", "alice", "100.00", "1111")
	f.seedAccount(t, "2170000002", "bob", "0", "2222")
	f.seedAccount(t, "2170000003", "mallory", "0", "3333")

	txn, err := f.ledger.CreateTransfer(ctx, "alice", "2170000002", "10.00", "")
	require.NoError(t, err)

	_, err = f.ledger.GetDetail(ctx, "alice", txn.TransactionID)
	assert.NoError(t, err)
	_, err = f.ledger.GetDetail(ctx, "bob", txn.TransactionID)
	assert.NoError(t, err)
	_, err = f.ledger.GetDetail(ctx, "mallory", txn.TransactionID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestDelete_Guards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedAccount(t, "2170000001", "alice", "100.00", "1111")
	f.seedAccount(t, "2170000002", "bob", "0", "2222")

	processing, err := f.ledger.CreateTransfer(ctx, "alice", "2170000002", "10.00", "")
	require.NoError(t, err)

	// Only the initiator may delete.
	assert.ErrorIs(t, f.ledger.Delete(ctx, "bob", processing.TransactionID), ErrNotOwner)
	// Pre-movement statuses are deletable.
	assert.NoError(t, f.ledger.Delete(ctx, "alice", processing.TransactionID))

	completed, err := f.ledger.CreateTransfer(ctx, "alice", "2170000002", "10.00", "")
	require.NoError(t, err)
	_, err = f.transfers.VerifyPin(ctx, "alice", "2170000002", completed.TransactionID, "1111")
	require.NoError(t, err)

	// Once money moved the row is authoritative.
	assert.ErrorIs(t, f.ledger.Delete(ctx, "alice", completed.TransactionID), ErrNotDeletable)
}

func TestAmountImmutableAfterCreation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedAccount(t, "2170000001", "alice", "100.00", "1111")
	f.seedAccount(t, "2170000002", "bob", "0", "2222")

	txn, err := f.ledger.CreateTransfer(ctx, "alice", "2170000002", "10.00", "")
	require.NoError(t, err)

	// Mutating the returned value must not reach the stored row.
	txn.Amount = dec("9999.00")

	stored, err := f.ledger.GetOwned(ctx, "alice", txn.TransactionID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(dec("10.00")))

	_, err = f.transfers.VerifyPin(ctx, "alice", "2170000002", txn.TransactionID, "1111")
	require.NoError(t, err)
	after, _ := f.ledger.GetOwned(ctx, "alice", txn.TransactionID)
	assert.True(t, after.Amount.Equal(dec("10.00")))
}

func TestOverview_Groupings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedAccount(t, "2170000001", "alice", "100.00", "1111")
	f.seedAccount(t, "2170000002", "bob", "100.00", "2222")

	_, err := f.ledger.CreateTransfer(ctx, "alice", "2170000002", "10.00", "")
	require.NoError(t, err)
	_, err = f.ledger.CreateRequest(ctx, "alice", "2170000002", "5.00", "")
	require.NoError(t, err)
	_, err = f.ledger.CreateTransfer(ctx, "bob", "2170000001", "1.00", "")
	require.NoError(t, err)

	ov, err := f.ledger.Overview(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, ov.TransfersSent, 1)
	assert.Len(t, ov.TransfersReceived, 1)
	assert.Len(t, ov.RequestsSent, 1)
	assert.Empty(t, ov.RequestsReceived)

	ov, err = f.ledger.Overview(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, ov.TransfersSent, 1)
	assert.Len(t, ov.TransfersReceived, 1)
	assert.Empty(t, ov.RequestsSent)
	assert.Len(t, ov.RequestsReceived, 1)
}
