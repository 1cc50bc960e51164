// Package credentials verifies username and password pairs.
package credentials

import (
	"context"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam"
	"github.com/Abraxas-365/lingua/pkg/iam/account"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("lingua/credentials")

// dummyPassword is hashed once so lookups of unknown usernames spend the
// same hashing time as a wrong password.
const dummyPassword = "lingua-dummy-password"

// PasswordEncoder hashes and compares passwords.
type PasswordEncoder interface {
	Encode(raw string) (string, error)
	Matches(raw, hash string) bool
}

// AccountFinder resolves sign-in candidates.
type AccountFinder interface {
	FindActive(ctx context.Context, username string) (*account.Account, error)
}

// SsoPolicy decides whether password sign-in is permitted for a username.
type SsoPolicy interface {
	CheckSsoNotRequired(ctx context.Context, username string) error
	CheckSsoNotRequiredOrAuthProviderChangeActive(ctx context.Context, acc *account.Account) error
}

// Checker verifies credentials. It holds no per-call state and is safe for
// concurrent use.
type Checker struct {
	accounts  AccountFinder
	policy    SsoPolicy
	encoder   PasswordEncoder
	dummyHash string
}

func NewChecker(accounts AccountFinder, policy SsoPolicy, encoder PasswordEncoder) (*Checker, error) {
	dummyHash, err := encoder.Encode(dummyPassword)
	if err != nil {
		return nil, errx.Wrap(err, "failed to prepare dummy password hash", errx.TypeInternal)
	}
	return &Checker{
		accounts:  accounts,
		policy:    policy,
		encoder:   encoder,
		dummyHash: dummyHash,
	}, nil
}

// CheckUserCredentials returns the account owning username when password
// matches. Unknown usernames and wrong passwords fail with the same
// bad_credentials error. Managed accounts fail with
// operation_unavailable_for_account_type and usernames of a domain that
// forces SSO fail with sso_login_forced_for_this_account.
func (c *Checker) CheckUserCredentials(ctx context.Context, username, password string) (*account.Account, error) {
	ctx, span := tracer.Start(ctx, "credentials.CheckUserCredentials",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	acc, outcome, err := c.check(ctx, username, password)
	span.SetAttributes(attribute.String("credentials.outcome", outcome))
	CredentialChecks.WithLabelValues(outcome).Inc()
	if err != nil {
		span.SetStatus(codes.Error, errx.CodeOf(err))
		return nil, err
	}
	return acc, nil
}

func (c *Checker) check(ctx context.Context, username, password string) (*account.Account, string, error) {
	acc, err := c.accounts.FindActive(ctx, username)
	if err != nil {
		return nil, OutcomeLookupFailed, err
	}

	if acc == nil {
		if err := c.policy.CheckSsoNotRequired(ctx, username); err != nil {
			return nil, outcomeOf(err), err
		}
		c.encoder.Matches(password, c.dummyHash)
		return nil, OutcomeUnknownUser, iam.ErrBadCredentials()
	}

	if err := c.policy.CheckSsoNotRequiredOrAuthProviderChangeActive(ctx, acc); err != nil {
		return nil, outcomeOf(err), err
	}

	if acc.IsManaged() {
		return nil, OutcomeManaged, iam.ErrOperationUnavailableForAccountType()
	}

	if err := c.CheckAccountPassword(ctx, acc, password); err != nil {
		return nil, OutcomeBadPassword, err
	}
	return acc, OutcomeSuccess, nil
}

// CheckAccountPassword compares password with the hash of an account the
// caller already holds. An account without a password never matches.
func (c *Checker) CheckAccountPassword(_ context.Context, acc *account.Account, password string) error {
	if !acc.HasPassword() {
		c.encoder.Matches(password, c.dummyHash)
		return iam.ErrBadCredentials()
	}
	if !c.encoder.Matches(password, acc.PasswordHash) {
		return iam.ErrBadCredentials()
	}
	return nil
}

func outcomeOf(err error) string {
	if errx.HasCode(err, iam.CodeSsoLoginForced) {
		return OutcomeSsoForced
	}
	return OutcomeLookupFailed
}
