package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annadaan/annadaan-backend/internal/container"
	handlers "github.com/annadaan/annadaan-backend/internal/interface/http"
	"github.com/annadaan/annadaan-backend/internal/interface/middleware"
)

// DonationModule serves the donation lifecycle. All routes require
// authentication.
//
//	POST /api/donations              create (donor)
//	GET  /api/donations/mydonations  donor's own listings
//	GET  /api/donations/mypickups    volunteer's accepted pickups
//	GET  /api/donations/nearby       proximity search
//	GET  /api/donations/search       keyword search
//	GET  /api/donations/:id          fetch one
//	PUT  /api/donations/:id          edit (donor, Available only)
//	POST /api/donations/:id/accept   volunteer claims pickup
//	POST /api/donations/:id/reject   assigned volunteer backs out
//	POST /api/donations/:id/complete assigned volunteer confirms delivery
//	POST /api/donations/:id/photo    donor attaches a photo
type DonationModule struct {
	Handler *handlers.DonationHandler
}

func NewDonationModule(h *handlers.DonationHandler) *DonationModule {
	return &DonationModule{Handler: h}
}

func (m *DonationModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/donations")
	auth.Use(middleware.Auth(container.GetJWT(), rdb))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID()))
	{
		auth.POST("", m.Handler.Create)
		auth.GET("/mydonations", m.Handler.MyDonations)
		auth.GET("/mypickups", m.Handler.MyPickups)
		auth.GET("/nearby", m.Handler.Nearby)
		auth.GET("/search", m.Handler.Search)
		auth.GET("/:id", m.Handler.Get)
		auth.PUT("/:id", m.Handler.Update)
		auth.POST("/:id/accept", m.Handler.Accept)
		auth.POST("/:id/reject", m.Handler.Reject)
		auth.POST("/:id/complete", m.Handler.Complete)
		auth.POST("/:id/photo", m.Handler.UploadPhoto)
	}
}
