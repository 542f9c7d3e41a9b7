package service

import "errors"

// Validation errors: recovered locally, no transaction created or mutated.
var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrEmptyPin      = errors.New("pin is required")
	ErrSelfTransfer  = errors.New("cannot transfer to your own account")
	ErrSelfRequest   = errors.New("cannot request money from your own account")
)

// Authorization errors: wrong user or mismatched identifiers.
var (
	ErrNotOwner        = errors.New("transaction does not belong to user")
	ErrNotParticipant  = errors.New("user is not a participant of this transaction")
	ErrNotPayer        = errors.New("only the payer can settle this request")
	ErrLinkageMismatch = errors.New("transaction does not match this account")
)

// Business-rule failures.
var (
	ErrIncorrectPin = errors.New("incorrect pin")
	ErrWrongStatus  = errors.New("transaction is not in the expected status")
	ErrNotDeletable = errors.New("transaction can no longer be deleted")
	ErrKYCRequired  = errors.New("kyc verification required")
)
