package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

type Purpose string

// PurposeSuperToken codes re-authenticate accounts that have no local
// password before a super token is issued.
const PurposeSuperToken Purpose = "SUPER_TOKEN"

type OTP struct {
	ID          string     `json:"id"`
	Contact     string     `json:"contact"`
	Code        string     `json:"code"`
	Purpose     Purpose    `json:"purpose"`
	ExpiresAt   time.Time  `json:"expires_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// IsUsable reports whether the code may still be tried.
func (o *OTP) IsUsable(now time.Time) bool {
	return !o.IsExpired(now) && o.VerifiedAt == nil && o.Attempts < o.MaxAttempts
}

// Check consumes one attempt and marks the code verified on a match.
func (o *OTP) Check(code string, now time.Time) error {
	if o.VerifiedAt != nil {
		return ErrOTPAlreadyUsed()
	}
	if o.IsExpired(now) {
		return ErrOTPExpired()
	}
	if o.Attempts >= o.MaxAttempts {
		return ErrTooManyAttempts()
	}

	o.Attempts++
	if subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) != 1 {
		return ErrOTPMismatch().WithDetail("attempts_remaining", o.MaxAttempts-o.Attempts)
	}
	o.VerifiedAt = &now
	return nil
}

// GenerateCode returns a zero-padded random decimal code of length digits.
func GenerateCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
