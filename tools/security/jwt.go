package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"linker/tools/errs"
)

// Options controls signing and token lifetime.
type Options struct {
	Secret []byte        // HMAC key, from env in production
	Alg    string        // HS256/HS384/HS512, default HS256
	TTL    time.Duration // default 7 days, matching the session cookie
	Issuer string
}

const defaultTTL = 7 * 24 * time.Hour

// SessionClaims is what a session token carries. Username and role are a
// hint only; the identity lookup reloads the user by subject.
type SessionClaims struct {
	UserID   string `json:"userId,omitempty"` // legacy tokens carry only this
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwtlib.RegisteredClaims
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: defaultTTL, Issuer: "linker"}
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Generate signs a session token for userID.
func Generate(opts Options, userID, username, role string) (token string, expireAt time.Time, err error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if len(opts.Secret) == 0 {
		return "", time.Time{}, errs.ErrArgs.WrapMsg("jwt secret is empty")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := SessionClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			Issuer:    opts.Issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}

	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, errs.WrapMsg(err, "sign session token")
	}
	return signed, exp, nil
}

// Verify parses token and maps failures onto the session error codes.
func Verify(opts Options, token string) (*SessionClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.ErrTokenMissing.Wrap()
	}
	if _, err := signingMethod(opts.Alg); err != nil {
		return nil, err
	}

	claims := &SessionClaims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	})
	switch {
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return nil, errs.ErrTokenExpired.WrapMsg(err.Error())
	case err != nil:
		return nil, errs.ErrTokenInvalid.WrapMsg(err.Error())
	case !parsed.Valid:
		return nil, errs.ErrTokenInvalid.WrapMsg("invalid token")
	}
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	if claims.Subject == "" {
		return nil, errs.ErrTokenInvalid.WrapMsg("token has no subject")
	}
	return claims, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, errs.ErrArgs.WrapMsg("unsupported alg, use HS256/HS384/HS512", "alg", alg)
	}
}
