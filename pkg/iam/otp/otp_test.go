package otp

import (
	"testing"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestCheck(t *testing.T) {
	now := time.Now()
	o := &OTP{Code: "123456", ExpiresAt: now.Add(time.Minute), MaxAttempts: 2}

	err := o.Check("000000", now)
	assert.True(t, errx.HasCode(err, CodeOTPMismatch))
	assert.Equal(t, 1, o.Attempts)

	require.NoError(t, o.Check("123456", now))
	assert.NotNil(t, o.VerifiedAt)

	assert.True(t, errx.HasCode(o.Check("123456", now), CodeOTPAlreadyUsed))
}

func TestCheckLimitsAttempts(t *testing.T) {
	now := time.Now()
	o := &OTP{Code: "123456", ExpiresAt: now.Add(time.Minute), MaxAttempts: 1}

	_ = o.Check("1", now)
	assert.True(t, errx.HasCode(o.Check("123456", now), CodeTooManyAttempts))
	assert.False(t, o.IsUsable(now))
}

func TestCheckExpired(t *testing.T) {
	now := time.Now()
	o := &OTP{Code: "123456", ExpiresAt: now, MaxAttempts: 3}
	assert.True(t, errx.HasCode(o.Check("123456", now), CodeOTPExpired))
}
