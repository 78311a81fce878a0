package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/usecase"
)

type CartHandler struct {
	cart usecase.CartUseCase
	log  *logrus.Logger
}

func NewCartHandler(cart usecase.CartUseCase, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		cart: cart,
		log:  logger,
	}
}

// RegisterRoutes mounts the cart under /cart/:userId. selfOrAdmin restricts
// every route to the cart's owner or an admin.
func (h *CartHandler) RegisterRoutes(router gin.IRouter, auth, selfOrAdmin gin.HandlerFunc) {
	cart := router.Group("/cart/:userId", auth, selfOrAdmin)
	{
		cart.GET("", h.GetCart)
		cart.POST("", h.AddLine)
		cart.PUT("", h.SetLineQuantity)
		cart.DELETE("/:productId", h.RemoveLine)
		cart.DELETE("", h.ClearCart)
	}
}

func (h *CartHandler) userID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("userId"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return 0, false
	}
	return id, true
}

func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	items, adjusted, err := h.cart.GetCart(userID)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve cart: "+err.Error())
		return
	}

	message := "Cart retrieved successfully"
	if adjusted {
		message = "Cart retrieved; some quantities were adjusted to current stock"
	}
	SuccessResponse(c, http.StatusOK, message, gin.H{"items": items, "adjusted": adjusted})
}

type cartLineRequest struct {
	ProductID int `json:"productId" binding:"required,gt=0"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
}

func (h *CartHandler) AddLine(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	items, err := h.cart.AddLine(userID, req.ProductID, req.Quantity)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to add to cart: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Item added to cart", items)
}

func (h *CartHandler) SetLineQuantity(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	items, err := h.cart.SetLineQuantity(userID, req.ProductID, req.Quantity)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update cart item: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart item updated", items)
}

func (h *CartHandler) RemoveLine(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	items, err := h.cart.RemoveLine(userID, productID)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to remove cart item: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart item removed", items)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.cart.Clear(userID); err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to clear cart: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart cleared", gin.H{"cleared": true})
}
