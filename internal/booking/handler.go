package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"vibes/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo      Repository
	currency  string
	adminRole string
}

func NewHandler(repo Repository, currency, adminRole string) *Handler {
	return &Handler{repo: repo, currency: currency, adminRole: adminRole}
}

type createBookingRequest struct {
	VendorID    int    `json:"vendor_id" binding:"required,gt=0"`
	Kind        Kind   `json:"kind" binding:"required,oneof=vendor_booking ticket_order event_payment"`
	AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
	ScheduledAt string `json:"scheduled_at" binding:"required"`
}

// CreateBooking godoc
// @Summary      Create booking
// @Description  Creates a pending booking or ticket order; payment is a separate step.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      createBookingRequest  true  "Booking data"
// @Success      201      {object}  Booking
// @Failure      400      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_at must be RFC3339"})
		return
	}
	if scheduledAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot book in the past"})
		return
	}

	created, err := h.repo.Create(c.Request.Context(), &Booking{
		UserID:      userID,
		VendorID:    req.VendorID,
		Kind:        req.Kind,
		AmountCents: req.AmountCents,
		Currency:    h.currency,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetBooking godoc
// @Summary      Get booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  Booking
// @Failure      404        {object}  gin.H
// @Router       /bookings/{bookingID} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	b, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	role, _ := auth.GetUserRole(c)
	if b.UserID != userID && b.VendorID != userID && role != h.adminRole {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
		return
	}

	c.JSON(http.StatusOK, b)
}

// ListMyBookings godoc
// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Booking
// @Failure      500  {object}  gin.H
// @Router       /bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookings, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}
