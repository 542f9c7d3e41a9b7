package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emekaobi/payvault/internal/domain"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It enforces the same atomicity contract as the postgres store: MoveFunds
// holds both account locks, in id order, for the funds check, both balance
// writes and the status transition.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[int64]*domain.Account
	transactions map[string]*domain.Transaction
	txnSeq       map[string]int64
	nextAcctID   int64
	nextSeq      int64

	lockMu    sync.Mutex
	acctLocks map[int64]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[int64]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		txnSeq:       make(map[string]int64),
		acctLocks:    make(map[int64]*sync.Mutex),
	}
}

func (s *MemoryStore) accountLock(id int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if _, ok := s.acctLocks[id]; !ok {
		s.acctLocks[id] = &sync.Mutex{}
	}
	return s.acctLocks[id]
}

func (s *MemoryStore) CreateAccount(_ context.Context, acct *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAcctID++
	acct.ID = s.nextAcctID
	acct.CreatedAt = time.Now()
	cp := *acct
	s.accounts[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAccountByNumber(_ context.Context, number string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.accounts {
		if acct.AccountNumber == number {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) GetAccountByUser(_ context.Context, userID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.accounts {
		if acct.UserID == userID {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryStore) SearchAccounts(_ context.Context, query string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []domain.Account
	for _, id := range ids {
		acct := s.accounts[id]
		if query != "" && acct.AccountNumber != query && strconv.FormatInt(acct.ID, 10) != query {
			continue
		}
		out = append(out, *acct)
		if query == "" && len(out) == SearchLimit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn.Date = time.Now()
	cp := *txn
	s.transactions[cp.TransactionID] = &cp
	s.nextSeq++
	s.txnSeq[cp.TransactionID] = s.nextSeq
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string, typ domain.TransactionType, role Role) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Transaction
	for _, txn := range s.transactions {
		if txn.Type != typ {
			continue
		}
		if role == RoleSender && txn.SenderID != userID {
			continue
		}
		if role == RoleReceiver && txn.ReceiverID != userID {
			continue
		}
		out = append(out, *txn)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.txnSeq[out[i].TransactionID] > s.txnSeq[out[j].TransactionID]
	})
	return out, nil
}

func (s *MemoryStore) UpdateTransactionStatus(_ context.Context, transactionID string, to domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.transactions[transactionID]
	if !ok {
		return ErrTransactionNotFound
	}
	if err := domain.Transition(txn.Status, to); err != nil {
		return err
	}
	now := time.Now()
	txn.Status = to
	txn.Updated = &now
	return nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[transactionID]; !ok {
		return ErrTransactionNotFound
	}
	delete(s.transactions, transactionID)
	delete(s.txnSeq, transactionID)
	return nil
}

func (s *MemoryStore) MoveFunds(_ context.Context, transactionID string, fromAccountID, toAccountID int64, amount decimal.Decimal, toStatus domain.Status) error {
	fromLock := s.accountLock(fromAccountID)
	toLock := s.accountLock(toAccountID)

	// Lock in id order to avoid deadlocks, same discipline as postgres.
	if fromAccountID < toAccountID {
		fromLock.Lock()
		toLock.Lock()
	} else {
		toLock.Lock()
		fromLock.Lock()
	}
	defer fromLock.Unlock()
	defer toLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[fromAccountID]
	if !ok {
		return ErrAccountNotFound
	}
	to, ok := s.accounts[toAccountID]
	if !ok {
		return ErrAccountNotFound
	}
	txn, ok := s.transactions[transactionID]
	if !ok {
		return ErrTransactionNotFound
	}

	if from.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	if err := domain.Transition(txn.Status, toStatus); err != nil {
		return err
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)
	now := time.Now()
	txn.Status = toStatus
	txn.Updated = &now
	return nil
}
