package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/annadaan/annadaan-backend/internal/application"
	"github.com/annadaan/annadaan-backend/internal/domain/entity"
	"github.com/annadaan/annadaan-backend/pkg/response"
	"github.com/annadaan/annadaan-backend/pkg/validation"
)

type DonationHandler struct {
	Donations *application.DonationService
	Logger    *logrus.Logger
}

func NewDonationHandler(donations *application.DonationService, logger *logrus.Logger) *DonationHandler {
	return &DonationHandler{Donations: donations, Logger: logger}
}

type foodItemPayload struct {
	Name     string `json:"name" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

type geoPointPayload struct {
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
}

type donationRequest struct {
	FoodItems []foodItemPayload `json:"food_items" binding:"required,min=1,dive"`
	Serves    int               `json:"serves" binding:"required,gt=0"`
	PickupBy  time.Time         `json:"pickup_by" binding:"required"`
	Location  geoPointPayload   `json:"location" binding:"required"`
}

func (r *donationRequest) toInput() application.CreateDonationInput {
	items := make([]entity.FoodItem, 0, len(r.FoodItems))
	for _, it := range r.FoodItems {
		items = append(items, entity.FoodItem{Name: it.Name, Quantity: it.Quantity})
	}
	return application.CreateDonationInput{
		FoodItems: items,
		Serves:    r.Serves,
		PickupBy:  r.PickupBy,
		Location:  entity.GeoPoint{Longitude: *r.Location.Longitude, Latitude: *r.Location.Latitude},
	}
}

func (h *DonationHandler) Create(c *gin.Context) {
	var req donationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	d, err := h.Donations.CreateDonation(c.Request.Context(), c.GetString("userID"), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, d, "donation created")
}

func (h *DonationHandler) Get(c *gin.Context) {
	d, err := h.Donations.GetDonation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d, "donation")
}

func (h *DonationHandler) Update(c *gin.Context) {
	var req donationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	d, err := h.Donations.EditDonation(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d, "donation updated")
}

func (h *DonationHandler) Accept(c *gin.Context) {
	d, err := h.Donations.AcceptDonation(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d, "pickup accepted")
}

func (h *DonationHandler) Reject(c *gin.Context) {
	d, err := h.Donations.RejectDonation(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d, "pickup rejected")
}

func (h *DonationHandler) Complete(c *gin.Context) {
	d, err := h.Donations.CompleteDonation(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d, "donation completed")
}

func (h *DonationHandler) Nearby(c *gin.Context) {
	lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
	lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
	if errLng != nil || errLat != nil {
		response.Fail(c, http.StatusBadRequest, "longitude and latitude query params are required", nil)
		return
	}

	minServes, _ := strconv.Atoi(c.DefaultQuery("min_serves", "0"))
	maxMeters, _ := strconv.ParseFloat(c.DefaultQuery("max_distance", "0"), 64)

	res, err := h.Donations.FindNearby(c.Request.Context(), entity.GeoPoint{Longitude: lng, Latitude: lat}, minServes, maxMeters)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "nearby donations")
}

func (h *DonationHandler) MyDonations(c *gin.Context) {
	res, err := h.Donations.ListByDonor(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "my donations")
}

func (h *DonationHandler) MyPickups(c *gin.Context) {
	res, err := h.Donations.ListByVolunteer(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, "my pickups")
}

func (h *DonationHandler) UploadPhoto(c *gin.Context) {
	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "photo file is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	d, err := h.Donations.UploadPhoto(
		c.Request.Context(),
		c.Param("id"),
		c.GetString("userID"),
		file,
		header.Filename,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d, "photo uploaded")
}

func (h *DonationHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Fail(c, http.StatusBadRequest, "q query param is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	hits, err := h.Donations.SearchDonations(c.Request.Context(), q, size)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results")
}
