package router

import "github.com/gin-gonic/gin"

// Module is a feature unit that registers its own routes.
type Module interface {
	Register(rg *gin.RouterGroup)
}
