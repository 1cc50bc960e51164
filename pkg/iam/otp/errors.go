package otp

import (
	"net/http"

	"github.com/Abraxas-365/lingua/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("OTP")

var (
	CodeOTPNotFound     = ErrRegistry.Register("NOT_FOUND", errx.TypeAuthentication, http.StatusUnauthorized, "No OTP code was issued")
	CodeOTPMismatch     = ErrRegistry.Register("MISMATCH", errx.TypeAuthentication, http.StatusUnauthorized, "OTP code does not match")
	CodeOTPExpired      = ErrRegistry.Register("EXPIRED", errx.TypeAuthentication, http.StatusUnauthorized, "OTP code has expired")
	CodeOTPAlreadyUsed  = ErrRegistry.Register("ALREADY_USED", errx.TypeAuthentication, http.StatusUnauthorized, "OTP code has already been used")
	CodeTooManyAttempts = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeBusiness, http.StatusTooManyRequests, "Too many verification attempts")
	CodeTooManyRequests = ErrRegistry.Register("TOO_MANY_REQUESTS", errx.TypeBusiness, http.StatusTooManyRequests, "Too many OTP requests")
)

func ErrOTPNotFound() *errx.Error     { return ErrRegistry.New(CodeOTPNotFound) }
func ErrOTPMismatch() *errx.Error     { return ErrRegistry.New(CodeOTPMismatch) }
func ErrOTPExpired() *errx.Error      { return ErrRegistry.New(CodeOTPExpired) }
func ErrOTPAlreadyUsed() *errx.Error  { return ErrRegistry.New(CodeOTPAlreadyUsed) }
func ErrTooManyAttempts() *errx.Error { return ErrRegistry.New(CodeTooManyAttempts) }
func ErrTooManyRequests() *errx.Error { return ErrRegistry.New(CodeTooManyRequests) }
