package settlement

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"vibes/internal/auth"
	"vibes/internal/booking"
	"vibes/internal/gateway"
	"vibes/internal/ledger"
	"vibes/internal/money"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type payRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type confirmRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type cancelRequest struct {
	Reason        string `json:"reason" binding:"required,max=500"`
	ProcessRefund *bool  `json:"process_refund"`
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Reason      string    `json:"reason" binding:"max=500"`
}

func actorFrom(c *gin.Context) (Actor, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return Actor{}, false
	}
	role, _ := auth.GetUserRole(c)
	return Actor{UserID: userID, Role: role}, true
}

// Pay godoc
// @Summary      Initiate booking payment
// @Description  Computes the fee split, creates a payment intent and records a pending charge.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int         true  "Booking ID"
// @Param        request    body      payRequest  true  "Payment method reference"
// @Success      200        {object}  PayResult
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Failure      502        {object}  gin.H
// @Router       /bookings/{bookingID}/pay [post]
func (h *Handler) Pay(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Pay(c.Request.Context(), actor, bookingID, req.PaymentMethod)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ConfirmPay godoc
// @Summary      Confirm payment intent
// @Description  Confirms the intent at the gateway and settles host and platform ledger entries.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        intentID  path      string          true  "Payment intent ID"
// @Param        request   body      confirmRequest  true  "Payment method reference"
// @Success      200       {object}  ConfirmOutcome
// @Failure      400       {object}  gin.H
// @Failure      404       {object}  gin.H
// @Failure      502       {object}  gin.H
// @Router       /payments/{intentID}/confirm [post]
func (h *Handler) ConfirmPay(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	intentID := c.Param("intentID")
	if intentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Intent ID is required"})
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.ConfirmPay(c.Request.Context(), intentID, req.PaymentMethod)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// CheckStatus godoc
// @Summary      Check payment status
// @Description  Polls the gateway for intent status alongside the recorded transaction. Read-only.
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        intentID  path      string  true  "Payment intent ID"
// @Success      200       {object}  StatusResult
// @Failure      404       {object}  gin.H
// @Failure      502       {object}  gin.H
// @Router       /payments/{intentID} [get]
func (h *Handler) CheckStatus(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	result, err := h.service.CheckStatus(c.Request.Context(), c.Param("intentID"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Cancel godoc
// @Summary      Cancel booking
// @Description  Cancels a booking, computes the refund per vendor terms and credits the wallet.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int            true  "Booking ID"
// @Param        request    body      cancelRequest  true  "Cancellation details"
// @Success      200        {object}  CancelResult
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	processRefund := true
	if req.ProcessRefund != nil {
		processRefund = *req.ProcessRefund
	}

	result, err := h.service.Cancel(c.Request.Context(), actor, bookingID, req.Reason, processRefund)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reschedule godoc
// @Summary      Reschedule booking
// @Description  Moves a booking to a new time, charging the vendor's cancellation fee to the wallet.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                true  "Booking ID"
// @Param        request    body      rescheduleRequest  true  "New schedule"
// @Success      200        {object}  RescheduleResult
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /bookings/{bookingID}/reschedule [post]
func (h *Handler) Reschedule(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Reschedule(c.Request.Context(), actor, bookingID, req.ScheduledAt, req.Reason)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRefundQuote godoc
// @Summary      Preview cancellation refund
// @Description  Returns the refund breakdown for a paid booking without mutating anything.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {object}  money.RefundCalculation
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /bookings/{bookingID}/refund-quote [get]
func (h *Handler) GetRefundQuote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	quote, err := h.service.GetRefundQuote(c.Request.Context(), actor, bookingID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (h *Handler) renderError(c *gin.Context, err error) {
	var intentErr *gateway.IntentCreationError
	var gwErr *gateway.Error

	switch {
	case errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, booking.ErrStatusConflict),
		errors.Is(err, ledger.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotPaid),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrInvalidPercent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &intentErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": intentErr.Error()})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway error"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
