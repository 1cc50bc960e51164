package kernel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Abraxas-365/lingua/pkg/kernel"
)

func TestAuthContext_HasScope(t *testing.T) {
	ac := &kernel.AuthContext{UserID: "u1", Scopes: []string{"projects:*", "keys:read"}}

	assert.True(t, ac.HasScope("projects:edit"))
	assert.True(t, ac.HasScope("keys:read"))
	assert.False(t, ac.HasScope("keys:write"))
	assert.False(t, ac.HasScope("projectsx:edit"))
	assert.False(t, ac.IsAdmin())

	admin := &kernel.AuthContext{UserID: "u2", Scopes: []string{"admin:*"}}
	assert.True(t, admin.IsAdmin())
}

func TestAuthContext_IsSuper(t *testing.T) {
	now := time.Now()
	until := now.Add(time.Minute)
	ac := &kernel.AuthContext{UserID: "u1", SuperUntil: &until}

	assert.True(t, ac.IsSuper(now))
	assert.False(t, ac.IsSuper(now.Add(2*time.Minute)))
	assert.False(t, (&kernel.AuthContext{UserID: "u1"}).IsSuper(now))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := kernel.WithRequestID(context.Background(), "req-1")
	ctx = kernel.WithAuth(ctx, &kernel.AuthContext{UserID: "u1"})

	ac, ok := kernel.AuthFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, kernel.UserID("u1"), ac.UserID)
	assert.Equal(t, "req-1", kernel.RequestIDFrom(ctx))

	_, ok = kernel.AuthFrom(context.Background())
	assert.False(t, ok)
}
