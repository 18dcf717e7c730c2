package security

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	usermodel "linker/module/user/model"
	"linker/tools/errs"
	jwtlib "linker/tools/security"
)

const (
	CtxUserKey  = "linker.user"  // *usermodel.User
	CtxTokenKey = "linker.token" // string
)

// Lookup resolves a session token to an account.
type Lookup interface {
	Lookup(ctx context.Context, token string) (*usermodel.User, error)
}

type Options struct {
	// RequireApproved rejects accounts whose status is not APPROVED.
	RequireApproved bool
}

func DefaultOptions() *Options {
	return &Options{RequireApproved: true}
}

// Middleware authenticates the request from the auth cookie or a Bearer
// header. Missing or bad tokens get 401, unapproved accounts 403.
func Middleware(lookup Lookup, opts *Options, log *zap.Logger) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := jwtlib.TokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		u, err := lookup.Lookup(c.Request.Context(), token)
		if err != nil {
			if errs.ErrUnauthenticated.Is(err) {
				log.Debug("reject token", zap.String("token", jwtlib.HashToken(token)), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
				return
			}
			log.Error("identity lookup", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if opts.RequireApproved && !u.Approved() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
			return
		}
		c.Set(CtxUserKey, u)
		c.Set(CtxTokenKey, token)
		c.Next()
	}
}

// CurrentUser returns the account set by Middleware.
func CurrentUser(c *gin.Context) (*usermodel.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*usermodel.User)
	return u, ok && u != nil
}
