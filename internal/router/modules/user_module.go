package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annadaan/annadaan-backend/internal/container"
	handlers "github.com/annadaan/annadaan-backend/internal/interface/http"
	"github.com/annadaan/annadaan-backend/internal/interface/middleware"
)

// UserModule serves the authenticated profile endpoints.
// GET /api/profile, PUT /api/profile/location
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetJWT(), rdb))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID()))
	{
		auth.GET("/profile", m.Handler.GetProfile)
		auth.PUT("/profile/location", m.Handler.UpdateLocation)
	}
}
