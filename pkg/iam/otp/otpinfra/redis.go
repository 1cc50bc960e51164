package otpinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam/otp"
	"github.com/redis/go-redis/v9"
)

// RedisOTPRepository stores one code per contact and purpose, expiring
// with the code itself.
type RedisOTPRepository struct {
	client *redis.Client
}

func NewRedisOTPRepository(client *redis.Client) *RedisOTPRepository {
	return &RedisOTPRepository{client: client}
}

func key(contact string, purpose otp.Purpose) string {
	return fmt.Sprintf("otp:%s:%s", purpose, contact)
}

func (r *RedisOTPRepository) Save(ctx context.Context, o *otp.OTP) error {
	data, err := json.Marshal(o)
	if err != nil {
		return errx.Wrap(err, "failed to marshal otp", errx.TypeInternal)
	}
	ttl := time.Until(o.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, o.Contact, o.Purpose)
	}
	if err := r.client.Set(ctx, key(o.Contact, o.Purpose), data, ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to store otp", errx.TypeInternal)
	}
	return nil
}

func (r *RedisOTPRepository) GetLatest(ctx context.Context, contact string, purpose otp.Purpose) (*otp.OTP, error) {
	data, err := r.client.Get(ctx, key(contact, purpose)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to read otp", errx.TypeInternal)
	}

	var o otp.OTP
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, errx.Wrap(err, "failed to unmarshal otp", errx.TypeInternal)
	}
	return &o, nil
}

func (r *RedisOTPRepository) Delete(ctx context.Context, contact string, purpose otp.Purpose) error {
	if err := r.client.Del(ctx, key(contact, purpose)).Err(); err != nil {
		return errx.Wrap(err, "failed to delete otp", errx.TypeInternal)
	}
	return nil
}

// maxConsumeRetries bounds optimistic retries when concurrent
// verifications touch the same key.
const maxConsumeRetries = 20

func (r *RedisOTPRepository) Consume(ctx context.Context, contact string, purpose otp.Purpose, check func(*otp.OTP) error) error {
	k := key(contact, purpose)

	var checkErr error
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			checkErr = otp.ErrOTPNotFound()
			return nil
		}
		if err != nil {
			return errx.Wrap(err, "failed to read otp", errx.TypeInternal)
		}

		var o otp.OTP
		if err := json.Unmarshal(data, &o); err != nil {
			return errx.Wrap(err, "failed to unmarshal otp", errx.TypeInternal)
		}
		checkErr = check(&o)

		updated, err := json.Marshal(&o)
		if err != nil {
			return errx.Wrap(err, "failed to marshal otp", errx.TypeInternal)
		}
		// EXEC fails with TxFailedErr if k changed since GET.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if checkErr == nil {
				pipe.Del(ctx, k)
			} else {
				pipe.Set(ctx, k, updated, redis.KeepTTL)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxConsumeRetries; i++ {
		err := r.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return errx.Wrap(err, "failed to consume otp", errx.TypeInternal)
		}
		return checkErr
	}
	return errx.New("otp verification contended", errx.TypeInternal)
}
