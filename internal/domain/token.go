package domain

import "github.com/google/uuid"

// tokenAlphabet avoids visually ambiguous characters (0/O, 1/I/L) so the
// token survives being read over the phone to support.
const tokenAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const tokenLength = 15

// NewTransactionID returns a human-traceable token like "TRNQK7M2XPW9C4RAB".
func NewTransactionID() string {
	raw := uuid.New()
	buf := make([]byte, 0, 3+tokenLength)
	buf = append(buf, "TRN"...)
	for i := 0; i < tokenLength; i++ {
		buf = append(buf, tokenAlphabet[int(raw[i])%len(tokenAlphabet)])
	}
	return string(buf)
}
