package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// AccountStatus mirrors the lifecycle managed by the onboarding system.
// The ledger core only ever reads it.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountPending  AccountStatus = "pending"
	AccountInactive AccountStatus = "inactive"
)

// Account is a funds-holding record owned 1:1 by a user identity.
// Balance is only ever mutated through Store.MoveFunds.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	UserID        string          `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	PinHash       string          `json:"-"`
	Status        AccountStatus   `json:"status"`
	KYCVerified   bool            `json:"kyc_verified"`
	CreatedAt     time.Time       `json:"created_at"`
}

// VerifyPin checks a submitted PIN against the stored hash.
// bcrypt's comparison is constant-time.
func (a *Account) VerifyPin(pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PinHash), []byte(pin)) == nil
}

// HashPin derives the storable hash for a PIN.
func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
