// Package iam (Identity and Access Management) holds the sign-in side of
// lingua: credential checks, OAuth and SSO login, sign-up by invitation,
// step-up "super" tokens, administrator impersonation and the flow that moves
// an account from one sign-in provider to another.
//
// # Overview
//
// The iam package is organized into sub-packages that work together:
//
//   - iam/account        — Account entity (LOCAL, MANAGED, THIRD_PARTY) and repository port
//   - iam/credentials    — Username/password checks, including the SSO policy
//   - iam/tenant         — SSO tenants (domain → identity provider) and the SSO policy
//   - iam/providerchange — Pending switches of an account to a new sign-in provider
//   - iam/auth           — JWT tokens, middleware, OAuth providers, the auth service
//   - iam/invitation     — Invitations, their emails and expiry
//   - iam/otp            — One-time codes for super tokens of password-less accounts
//   - iam/migrations     — Embedded Postgres schema
//
// # Architecture
//
// The package follows the same layered layout in every sub-domain:
//
//	HTTP Handler  →  Service Layer  →  Repository Interface  →  Infrastructure (Postgres/Redis)
//
// The wire codes clients react to (for example "bad_credentials" or
// "sso_login_forced_for_this_account") live in the unprefixed Messages
// registry of this package. Sub-domains keep their own prefixed registries for
// internal failures.
//
// # Sign-in rules
//
// A username/password login is refused with a single "bad_credentials" code
// whether the account is unknown, deleted, managed or third-party, or the
// password is wrong. Two codes carry more information:
//
//	sso_login_forced_for_this_account       the email domain belongs to a forced SSO tenant;
//	                                        params[0] is the domain
//	third_party_switch_initiated            an enabled SSO tenant exists for a local account;
//	                                        a provider change was recorded
//
// # ──────────────────────────────────────────────────────
// # ENDPOINT REFERENCE
// # ──────────────────────────────────────────────────────
//
// ## Public  (registered by AuthHandlers)
//
// ### GET /api/public/configuration
//
//	{ "authentication": true, "allowRegistrations": false,
//	  "nativeEnabled": true, "oauthProviders": ["github", "google"] }
//
// ### POST /api/public/generatetoken
//
// Request body:
//
//	{ "username": "ana@example.com", "password": "..." }
//
// Response 200:
//
//	{ "accessToken": "<jwt>", "tokenType": "Bearer" }
//
// Error responses: 401 bad_credentials, 401 sso_login_forced_for_this_account,
// 401 third_party_switch_initiated
//
// ### GET /api/public/authorize_oauth/:serviceType
//
// Exchanges an OAuth code. serviceType is github, google, oauth2 or sso.
//
// Query params:
//
//	code            — authorization code from the provider
//	redirect_uri    — defaults to <frontend>/login/auth_callback/<serviceType>
//	invitationCode  — creates the account when registrations are closed
//	domain          — SSO tenant domain (sso only)
//
// ### POST /api/public/authorize_oauth/sso/authentication-url
//
//	{ "domain": "acme.com", "state": "<random>" }  →  { "redirectUrl": "https://idp..." }
//
// ### POST /api/public/sign_up
//
//	{ "name": "...", "email": "...", "password": "...", "invitationCode": "..." }
//
// ## Authenticated  (Authorization: Bearer <jwt>)
//
//	GET    /v2/user                                      current account
//	POST   /v2/user/generate-super-token                 { "password" } or { "otp" }
//	POST   /v2/user/super-token/otp                      email a one-time code
//	PUT    /v2/user/password                             super token required
//	GET    /v2/auth-provider/changed                     pending provider change
//	POST   /v2/auth-provider/changed/accept              rebind and return a new token
//	DELETE /v2/auth-provider/changed                     discard the change
//	GET    /v2/administration/users/:userId/generate-token   impersonate (admins)
//
// ## Invitations  (registered by InvitationHandlers)
//
//	POST   /v2/invitations               { "email" }  →  201 invitation
//	GET    /v2/invitations/:code/accept  bind the caller to the invitation's tenant
//	DELETE /v2/invitations/:id           revoke
package iam
