package otp

import "context"

// Repository keeps the latest code per contact and purpose.
type Repository interface {
	Save(ctx context.Context, otp *OTP) error
	// GetLatest returns the current code, or nil.
	GetLatest(ctx context.Context, contact string, purpose Purpose) (*OTP, error)
	Delete(ctx context.Context, contact string, purpose Purpose) error
	// Consume runs check against the current code as one atomic step. The
	// code is deleted when check returns nil and stored with its updated
	// attempt count otherwise. check's error is returned as is; a missing
	// code yields ErrOTPNotFound.
	Consume(ctx context.Context, contact string, purpose Purpose, check func(*OTP) error) error
}

// NotificationService delivers a code to its contact.
type NotificationService interface {
	SendOTP(ctx context.Context, contact string, code string) error
}
