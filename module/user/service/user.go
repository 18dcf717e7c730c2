package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	usermodel "linker/module/user/model"
	"linker/tools/errs"
	jwtlib "linker/tools/security"
)

// Repository loads accounts by id.
type Repository interface {
	FindByID(ctx context.Context, id string) (*usermodel.User, error)
}

// Accounts finds login candidates by username.
type Accounts interface {
	FindByUsername(ctx context.Context, username string) (*usermodel.User, error)
}

// AccountStore serves both token lookup and login.
type AccountStore interface {
	Repository
	Accounts
}

// Session is an issued token plus the user it belongs to.
type Session struct {
	Token    string
	ExpireAt time.Time
	User     *usermodel.User
	IssuedAt time.Time
}

// LoginService checks username and password and issues session tokens.
type LoginService struct {
	opts     jwtlib.Options
	accounts Accounts
}

func NewLoginService(opts jwtlib.Options, accounts Accounts) *LoginService {
	return &LoginService{opts: opts, accounts: accounts}
}

// Login returns ErrArgs for missing fields, ErrUnauthenticated for an unknown
// user or wrong password, and ErrUserNotApproved for a known but not approved
// account.
func (s *LoginService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, errs.ErrArgs.WrapMsg("Username and password are required")
	}
	u, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			return Session{}, errs.ErrUnauthenticated.WrapMsg("unknown user", "username", username)
		}
		return Session{}, err
	}
	if u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, errs.ErrUnauthenticated.WrapMsg("wrong password", "user", u.ID)
	}
	u.PasswordHash = ""
	return issueSession(s.opts, u)
}

func issueSession(opts jwtlib.Options, u *usermodel.User) (Session, error) {
	if u == nil || u.ID == "" {
		return Session{}, errs.ErrArgs.WrapMsg("login needs a user id")
	}
	if !u.Approved() {
		return Session{}, errs.ErrUserNotApproved.WrapMsg("login refused", "user", u.ID, "status", u.Status)
	}
	token, exp, err := jwtlib.Generate(opts, u.ID, u.Username, string(u.Role))
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpireAt: exp, User: u, IssuedAt: time.Now()}, nil
}

// TokenLookup resolves a session token to the current account record.
type TokenLookup struct {
	opts jwtlib.Options
	repo Repository
}

func NewTokenLookup(opts jwtlib.Options, repo Repository) *TokenLookup {
	return &TokenLookup{opts: opts, repo: repo}
}

// Lookup verifies token and reloads its subject. It does not check status;
// callers decide what a non-approved account may do.
func (l *TokenLookup) Lookup(ctx context.Context, token string) (*usermodel.User, error) {
	claims, err := jwtlib.Verify(l.opts, strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if err != nil {
		return nil, err
	}
	u, err := l.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			return nil, errs.ErrTokenInvalid.WrapMsg("token subject not found", "user", claims.Subject)
		}
		return nil, err
	}
	return u, nil
}

// ClaimsLookup trusts a verified token's claims without a database. Every
// holder of a valid token counts as approved.
type ClaimsLookup struct {
	opts jwtlib.Options
}

func NewClaimsLookup(opts jwtlib.Options) *ClaimsLookup {
	return &ClaimsLookup{opts: opts}
}

func (l *ClaimsLookup) Lookup(_ context.Context, token string) (*usermodel.User, error) {
	claims, err := jwtlib.Verify(l.opts, strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if err != nil {
		return nil, err
	}
	role := usermodel.Role(claims.Role)
	if role == "" {
		role = usermodel.RoleUser
	}
	u := &usermodel.User{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     role,
		Status:   usermodel.StatusApproved,
	}
	if claims.IssuedAt != nil {
		u.CreatedAt = claims.IssuedAt.Time
	}
	return u, nil
}
