package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gangu/backend/internal/domain"
	"github.com/gangu/backend/internal/usecase"
)

// Version is reported by the health check
const Version = "1.0.0"

const maxHistoryLimit = 100

// Handler holds dependencies for HTTP handlers
type Handler struct {
	comparison *usecase.ComparisonService
	grocery    *usecase.GroceryService
	purchases  *usecase.PurchaseService
}

// NewHandler creates a new HTTP handler. Any service may be nil; its
// endpoints then answer 503.
func NewHandler(
	comparison *usecase.ComparisonService,
	grocery *usecase.GroceryService,
	purchases *usecase.PurchaseService,
) *Handler {
	return &Handler{
		comparison: comparison,
		grocery:    grocery,
		purchases:  purchases,
	}
}

// CompareRequest is the body of POST /api/v1/comparisons
type CompareRequest struct {
	Request  domain.ComparisonRequest `json:"request"`
	Listings []domain.RawListing      `json:"listings"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	platforms := []string{}
	if h.grocery != nil {
		platforms = h.grocery.Platforms()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "gangu-backend",
		"version":   Version,
		"platforms": platforms,
	})
}

// Compare runs the comparison pipeline over caller-supplied listings
func (h *Handler) Compare(c *gin.Context) {
	if h.comparison == nil {
		respondUnavailable(c, "comparison")
		return
	}

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	eval, err := h.comparison.Evaluate(c.Request.Context(), req.Request, req.Listings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, eval)
}

// Order searches the platforms, decides and buys when the decision is auto_buy
func (h *Handler) Order(c *gin.Context) {
	if h.grocery == nil {
		respondUnavailable(c, "order")
		return
	}

	var req domain.ShoppingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	outcome, err := h.grocery.Order(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// ConfirmOrder buys a listing the user approved
func (h *Handler) ConfirmOrder(c *gin.Context) {
	if h.purchases == nil {
		respondUnavailable(c, "purchase")
		return
	}

	var req domain.ConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.purchases.Confirm(c.Request.Context(), req)
	if errors.Is(err, domain.ErrPurchaseFailed) && result != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    err.Error(),
			"purchase": result,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// OrderHistory lists a user's recent orders
func (h *Handler) OrderHistory(c *gin.Context) {
	if h.purchases == nil {
		respondUnavailable(c, "purchase")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be between 1 and 100",
			})
			return
		}
		limit = n
	}

	userID := c.Query("user_id")
	orders, err := h.purchases.History(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"orders":  orders,
	})
}

// OrderAudit returns the audit trail of one order
func (h *Handler) OrderAudit(c *gin.Context) {
	if h.purchases == nil {
		respondUnavailable(c, "purchase")
		return
	}

	orderID := c.Param("id")
	entries, err := h.purchases.Audit(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"entries":  entries,
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidUrgency):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotPurchasable), errors.Is(err, domain.ErrDuplicateOrder):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoPlatforms):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrPurchaseFailed), errors.Is(err, domain.ErrPlatformFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s failed (request %s): %v", c.Request.Method, c.FullPath(), c.GetString(requestIDKey), err)
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request body",
		"details": err.Error(),
	})
}

func respondUnavailable(c *gin.Context, feature string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": feature + " service not configured",
	})
}
