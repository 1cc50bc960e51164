package otpsrv

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/lingua/pkg/config"
	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/iamtest"
	"github.com/Abraxas-365/lingua/pkg/iam/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contact = "ana@example.com"

func newService() (*OTPService, *iamtest.OTPs, *iamtest.OTPOutbox) {
	repo := iamtest.NewOTPs()
	outbox := iamtest.NewOTPOutbox()
	svc := NewOTPService(repo, outbox, config.OTPConfig{TTL: 10 * time.Minute, Length: 6, MaxAttempts: 3})
	return svc, repo, outbox
}

func TestGenerateAndVerify(t *testing.T) {
	ctx := context.Background()
	svc, repo, outbox := newService()

	issued, err := svc.GenerateOTP(ctx, contact, otp.PurposeSuperToken)
	require.NoError(t, err)
	assert.Equal(t, issued.Code, outbox.Last(contact))

	require.NoError(t, svc.VerifyOTP(ctx, contact, otp.PurposeSuperToken, issued.Code))

	stored, err := repo.GetLatest(ctx, contact, otp.PurposeSuperToken)
	require.NoError(t, err)
	assert.Nil(t, stored, "verified codes are consumed")
}

func TestVerifyWrongCode(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSuperToken)
	require.NoError(t, err)

	err = svc.VerifyOTP(ctx, contact, otp.PurposeSuperToken, "not-it")
	assert.True(t, errx.HasCode(err, iam.CodeInvalidOTP))

	stored, _ := repo.GetLatest(ctx, contact, otp.PurposeSuperToken)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.Attempts)
}

func TestVerifyWithoutCode(t *testing.T) {
	svc, _, _ := newService()
	err := svc.VerifyOTP(context.Background(), contact, otp.PurposeSuperToken, "123456")
	assert.True(t, errx.HasCode(err, iam.CodeInvalidOTP))
}

func TestGenerateIsRateLimited(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()

	_, err := svc.GenerateOTP(ctx, contact, otp.PurposeSuperToken)
	require.NoError(t, err)

	_, err = svc.GenerateOTP(ctx, contact, otp.PurposeSuperToken)
	assert.True(t, errx.HasCode(err, otp.CodeTooManyRequests))

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.GenerateOTP(ctx, contact, otp.PurposeSuperToken)
	assert.NoError(t, err)
}

func TestVerifyAttemptLimitHoldsUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newService()

	issued, err := svc.GenerateOTP(ctx, contact, otp.PurposeSuperToken)
	require.NoError(t, err)

	const guesses = 20
	var compared, limited atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := svc.VerifyOTP(ctx, contact, otp.PurposeSuperToken, "wrong!")
			switch {
			case errx.HasCode(err, iam.CodeInvalidOTP):
				compared.Add(1)
			case errx.HasCode(err, otp.CodeTooManyAttempts):
				limited.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(3), compared.Load())
	assert.Equal(t, int32(guesses-3), limited.Load())

	err = svc.VerifyOTP(ctx, contact, otp.PurposeSuperToken, issued.Code)
	assert.True(t, errx.HasCode(err, otp.CodeTooManyAttempts), "the right code is refused once attempts are spent")

	stored, _ := repo.GetLatest(ctx, contact, otp.PurposeSuperToken)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.Attempts)
}

func TestVerifyConsumesCodeOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()

	issued, err := svc.GenerateOTP(ctx, contact, otp.PurposeSuperToken)
	require.NoError(t, err)

	var ok atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			code := issued.Code
			if i%2 == 0 {
				code = "wrong!"
			}
			if svc.VerifyOTP(ctx, contact, otp.PurposeSuperToken, code) == nil {
				ok.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.LessOrEqual(t, ok.Load(), int32(1))

	err = svc.VerifyOTP(ctx, contact, otp.PurposeSuperToken, issued.Code)
	assert.Error(t, err, "a verified or exhausted code cannot be used again")
}
