package wallet

import (
	"net/http"
	"strconv"

	"vibes/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handler exposes read-only wallet views. Balances are only ever moved
// by the settlement service.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetWallet godoc
// @Summary      Get my wallet
// @Description  Returns the authenticated user's wallet, creating it on first use.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Wallet
// @Failure      500  {object}  gin.H
// @Router       /wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	w, err := h.repo.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// GetEntries godoc
// @Summary      List wallet entries
// @Description  Returns the authenticated user's wallet audit trail, newest first.
// @Tags         wallet
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   Entry
// @Failure      500     {object}  gin.H
// @Router       /wallet/entries [get]
func (h *Handler) GetEntries(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.repo.GetEntries(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet entries"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
