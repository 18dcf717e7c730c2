package middleware

import (
	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth bool
}

// Routes registers handlers on a group, putting auth in front of the ones
// that ask for it.
type Routes struct {
	r    gin.IRoutes
	auth gin.HandlerFunc
}

func NewRoutes(r gin.IRoutes, auth gin.HandlerFunc) *Routes {
	return &Routes{r: r, auth: auth}
}

func (rs *Routes) chain(handler gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if opt.IsAuth && rs.auth != nil {
		return []gin.HandlerFunc{rs.auth, handler}
	}
	return []gin.HandlerFunc{handler}
}

func (rs *Routes) POST(path string, handler gin.HandlerFunc, opt RouteOpt) {
	rs.r.POST(path, rs.chain(handler, opt)...)
}

func (rs *Routes) GET(path string, handler gin.HandlerFunc, opt RouteOpt) {
	rs.r.GET(path, rs.chain(handler, opt)...)
}
