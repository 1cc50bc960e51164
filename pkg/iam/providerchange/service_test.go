package providerchange_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"github.com/Abraxas-365/lingua/pkg/iam/iamtest"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptSwitchesProvider(t *testing.T) {
	ctx := context.Background()
	acc := account.NewLocal("ana@corp.io", "Ana", "hash")
	accounts := iamtest.NewAccounts(acc)
	svc := providerchange.NewService(iamtest.NewProviderChanges(), accounts, time.Hour)

	tenantID := kernel.NewTenantID("t-1")
	require.NoError(t, svc.Initiate(ctx, providerchange.Request{
		UserID:      acc.ID,
		AccountType: account.TypeManaged,
		AuthType:    iam.AuthTypeSSO,
		AuthID:      "sso-7",
		SSODomain:   "corp.io",
		TenantID:    &tenantID,
	}))

	req, err := svc.Get(ctx, acc.ID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "SSO", req.View().Provider)

	updated, err := svc.Accept(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsManaged())
	assert.False(t, updated.HasPassword())

	stored := accounts.Get(acc.ID)
	assert.True(t, stored.UsesProvider(iam.AuthTypeSSO, "sso-7"))

	active, err := svc.IsActive(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestAcceptWithoutRequest(t *testing.T) {
	acc := account.NewLocal("ana@corp.io", "Ana", "hash")
	svc := providerchange.NewService(iamtest.NewProviderChanges(), iamtest.NewAccounts(acc), time.Hour)

	_, err := svc.Accept(context.Background(), acc.ID)
	assert.True(t, errx.HasCode(err, iam.CodeAuthProviderChangeNotFound))
}

func TestExpiredRequestIsInactive(t *testing.T) {
	ctx := context.Background()
	repo := iamtest.NewProviderChanges()
	svc := providerchange.NewService(repo, iamtest.NewAccounts(), time.Hour)

	userID := kernel.GenerateUserID()
	require.NoError(t, repo.Save(ctx, providerchange.Request{
		UserID:    userID,
		AuthType:  iam.AuthTypeGitHub,
		ExpiresAt: time.Now().Add(-time.Minute),
	}, time.Hour))

	active, err := svc.IsActive(ctx, userID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRejectDropsRequest(t *testing.T) {
	ctx := context.Background()
	svc := providerchange.NewService(iamtest.NewProviderChanges(), iamtest.NewAccounts(), time.Hour)
	userID := kernel.GenerateUserID()

	require.NoError(t, svc.Initiate(ctx, providerchange.Request{UserID: userID, AuthType: iam.AuthTypeGoogle}))
	require.NoError(t, svc.Reject(ctx, userID))

	active, err := svc.IsActive(ctx, userID)
	require.NoError(t, err)
	assert.False(t, active)
}
