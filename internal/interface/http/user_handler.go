package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/annadaan/annadaan-backend/internal/application"
	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/pkg/response"
	"github.com/annadaan/annadaan-backend/pkg/validation"
)

type UserHandler struct {
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(users *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

// Pointers so a present zero coordinate is distinguishable from a
// missing field.
type updateLocationRequest struct {
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	u, err := h.Users.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u.Summary(), "profile")
}

func (h *UserHandler) UpdateLocation(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Users.UpdateLocation(c.Request.Context(), c.GetString("userID"), entity.GeoPoint{
		Longitude: *req.Longitude,
		Latitude:  *req.Latitude,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u.Summary(), "location updated")
}
