package account

import (
	"testing"

	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/stretchr/testify/assert"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{"alice@Example.COM", "example.com"},
		{"alice", ""},
		{"alice@", ""},
		{"a@b@corp.io", "corp.io"},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainOf(tt.username))
		})
	}
}

func TestNewLocalNormalizesUsername(t *testing.T) {
	acc := NewLocal("  Bob@Example.com ", "Bob", "hash")
	assert.Equal(t, "bob@example.com", acc.Username)
	assert.Equal(t, TypeLocal, acc.AccountType)
	assert.True(t, acc.IsActive())
	assert.True(t, acc.HasPassword())
	assert.False(t, acc.ID.IsEmpty())
}

func TestSwitchProviderToManagedDropsPassword(t *testing.T) {
	acc := NewLocal("bob@corp.io", "Bob", "hash")
	tenantID := kernel.NewTenantID("t-1")

	acc.SwitchProvider(TypeManaged, iam.AuthTypeSSO, "sso-42", &tenantID)

	assert.True(t, acc.IsManaged())
	assert.False(t, acc.HasPassword())
	assert.True(t, acc.UsesProvider(iam.AuthTypeSSO, "sso-42"))
	assert.Equal(t, tenantID, *acc.TenantID)
}

func TestSwitchProviderToThirdPartyKeepsPassword(t *testing.T) {
	acc := NewLocal("bob@corp.io", "Bob", "hash")
	acc.SwitchProvider(TypeThirdParty, iam.AuthTypeGitHub, "gh-1", nil)
	assert.True(t, acc.HasPassword())
}

func TestScopes(t *testing.T) {
	acc := NewLocal("a@b.c", "A", "")
	assert.Equal(t, []string{"user:*"}, acc.Scopes())
	acc.IsAdmin = true
	assert.Equal(t, []string{"*"}, acc.Scopes())
}
