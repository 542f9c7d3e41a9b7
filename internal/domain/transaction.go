package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType discriminates which workflow a transaction belongs to.
type TransactionType string

const (
	TypeTransfer TransactionType = "transfer"
	TypeRequest  TransactionType = "request"
	TypeWithdraw TransactionType = "withdraw"
	TypeRefund   TransactionType = "refund"
	TypeNone     TransactionType = "none"
)

// Status is the single state field shared by both workflow tracks.
//
// Transfer track:  processing -> completed | failed
// Request track:   request_processing -> request_sent -> request_settled
type Status string

const (
	StatusNone              Status = "none"
	StatusPending           Status = "pending"
	StatusProcessing        Status = "processing"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
	StatusRequestProcessing Status = "request_processing"
	StatusRequestSent       Status = "request_sent"
	StatusRequestSettled    Status = "request_settled"
)

var ErrIllegalTransition = errors.New("illegal status transition")

// transitions is the single source of truth for legal status changes.
var transitions = map[Status][]Status{
	StatusProcessing:        {StatusCompleted, StatusFailed},
	StatusRequestProcessing: {StatusRequestSent},
	StatusRequestSent:       {StatusRequestSettled},
}

// Transition validates that moving from one status to another is legal.
// Every status mutation in the system goes through this check.
func Transition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Deletable reports whether a transaction in this status may still be
// deleted by its initiator. Once money has moved the ledger row is
// authoritative and must survive.
func (s Status) Deletable() bool {
	switch s {
	case StatusProcessing, StatusRequestProcessing, StatusRequestSent:
		return true
	}
	return false
}

// Transaction is one money-movement intent. Identity and amount are fixed
// at creation; only Status (and Updated) change afterwards.
//
// For a transfer the initiator is the sender. For a payment request the
// initiator is the party asking to be paid: the row stores them in SenderID,
// and the payer in ReceiverID. Use Requester/Payer instead of reading those
// fields directly in request-flow code.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`

	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`

	SenderAccountID   int64 `json:"sender_account_id"`
	ReceiverAccountID int64 `json:"receiver_account_id"`

	Status Status          `json:"status"`
	Type   TransactionType `json:"transaction_type"`

	Date    time.Time  `json:"date"`
	Updated *time.Time `json:"updated,omitempty"`
}

// Requester is the user who created a payment request and will be credited
// at settlement.
func (t *Transaction) Requester() string { return t.SenderID }

// RequesterAccountID is the account credited at settlement.
func (t *Transaction) RequesterAccountID() int64 { return t.SenderAccountID }

// Payer is the user a payment request is addressed to; they authorize the
// settlement and are debited.
func (t *Transaction) Payer() string { return t.ReceiverID }

// PayerAccountID is the account debited at settlement.
func (t *Transaction) PayerAccountID() int64 { return t.ReceiverAccountID }

// Participant reports whether the given user is on either side of the
// transaction.
func (t *Transaction) Participant(userID string) bool {
	return t.SenderID == userID || t.ReceiverID == userID
}
