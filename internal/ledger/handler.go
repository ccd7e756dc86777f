package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"vibes/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo      Repository
	adminRole string
}

func NewHandler(repo Repository, adminRole string) *Handler {
	return &Handler{repo: repo, adminRole: adminRole}
}

// ListMyTransactions godoc
// @Summary      List my transactions
// @Description  Returns the authenticated user's ledger transactions, newest first.
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size (default 50)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   Transaction
// @Failure      401     {object}  gin.H
// @Failure      500     {object}  gin.H
// @Router       /transactions [get]
func (h *Handler) ListMyTransactions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, offset := pagination(c)
	transactions, err := h.repo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// GetTransaction godoc
// @Summary      Get transaction
// @Description  Returns a single transaction. Owner and admin only.
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        transactionID  path      string  true  "Transaction ID"
// @Success      200            {object}  Transaction
// @Failure      403            {object}  gin.H
// @Failure      404            {object}  gin.H
// @Router       /transactions/{transactionID} [get]
func (h *Handler) GetTransaction(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	tx, err := h.repo.FindByID(c.Request.Context(), c.Param("transactionID"))
	if errors.Is(err, ErrTransactionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
		return
	}

	role, _ := auth.GetUserRole(c)
	if tx.UserID != userID && role != h.adminRole {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed"})
		return
	}

	c.JSON(http.StatusOK, tx)
}

// ListBookingTransactions godoc
// @Summary      List booking transactions
// @Description  Returns all ledger entries settled against a booking. Admin only.
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int  true  "Booking ID"
// @Success      200        {array}   Transaction
// @Failure      400        {object}  gin.H
// @Failure      500        {object}  gin.H
// @Router       /bookings/{bookingID}/transactions [get]
func (h *Handler) ListBookingTransactions(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	transactions, err := h.repo.ListByBooking(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
