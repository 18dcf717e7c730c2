package chat

import (
	"context"
	"strings"

	usermodel "linker/module/user/model"
	"linker/tools/errs"
)

// Authenticator turns an authenticate payload into the identity to bind.
type Authenticator interface {
	Authenticate(ctx context.Context, c *Client, p *AuthPayload) (usermodel.Identity, error)
}

// TrustingAuthenticator binds whatever identity the client claims. The
// session layer in front of the relay is expected to have vetted the user.
type TrustingAuthenticator struct{}

func (TrustingAuthenticator) Authenticate(_ context.Context, _ *Client, p *AuthPayload) (usermodel.Identity, error) {
	id := usermodel.Identity{
		ID:       strings.TrimSpace(p.ID),
		Username: p.Username,
		Role:     p.Role,
	}
	if !id.Valid() {
		return usermodel.Identity{}, errs.ErrArgs.WrapMsg("authenticate without id")
	}
	return id, nil
}

// VerifyingAuthenticator ignores the claimed identity and resolves the
// session token instead, from the payload or the upgrade request. Only
// approved accounts are bound.
type VerifyingAuthenticator struct {
	Lookup IdentityLookup
}

func NewVerifyingAuthenticator(lookup IdentityLookup) *VerifyingAuthenticator {
	return &VerifyingAuthenticator{Lookup: lookup}
}

func (a *VerifyingAuthenticator) Authenticate(ctx context.Context, c *Client, p *AuthPayload) (usermodel.Identity, error) {
	token := strings.TrimSpace(p.Token)
	if token == "" && c != nil {
		token = c.SessionToken()
	}
	if token == "" {
		return usermodel.Identity{}, errs.ErrTokenMissing.WrapMsg("no session token")
	}
	u, err := a.Lookup.Lookup(ctx, token)
	if err != nil {
		return usermodel.Identity{}, err
	}
	if !u.Approved() {
		return usermodel.Identity{}, errs.ErrUserNotApproved.WrapMsg("user not approved", "user", u.ID, "status", u.Status)
	}
	return u.Identity(), nil
}
