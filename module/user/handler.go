package user

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	midsec "linker/middleware/security"
	"linker/module/user/service"
	"linker/tools/errs"
	jwtlib "linker/tools/security"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandlerLogin checks credentials and sets the session cookie.
func HandlerLogin(svc *service.LoginService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		sess, err := svc.Login(c.Request.Context(), req.Username, req.Password)
		switch {
		case err == nil:
		case errs.ErrArgs.Is(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
			return
		case errs.ErrUserNotApproved.Is(err):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account not approved"})
			return
		case errs.ErrUnauthenticated.Is(err):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		maxAge := int(time.Until(sess.ExpireAt).Seconds())
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(jwtlib.CookieName, sess.Token, maxAge, "/", "", c.Request.TLS != nil, true)
		c.Header("X-Content-Type-Options", "nosniff")
		c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": sess.User})
	}
}

// HandlerMe returns the account behind the session.
func HandlerMe(c *gin.Context) {
	u, ok := midsec.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// HandlerLogout clears the session cookie.
func HandlerLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(jwtlib.CookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
