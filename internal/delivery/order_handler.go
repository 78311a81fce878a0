package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
	"github.com/MarkRaffy28/MicroBits/internal/middleware"
	"github.com/MarkRaffy28/MicroBits/internal/usecase"
)

type OrderHandler struct {
	orders usecase.OrderUseCase
	cart   usecase.CartUseCase
	log    *logrus.Logger
}

func NewOrderHandler(orders usecase.OrderUseCase, cart usecase.CartUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		cart:   cart,
		log:    logger,
	}
}

func (h *OrderHandler) RegisterRoutes(router gin.IRouter, auth, admin gin.HandlerFunc) {
	orders := router.Group("/orders", auth)
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", admin, h.ListOrders)
		orders.GET("/user/:userId", h.ListOrdersByUser)
		orders.GET("/:id", h.GetOrderByID)
		orders.PUT("/:id", admin, h.UpdateOrder)
		orders.PUT("/:id/status", admin, h.UpdateStatus)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.DELETE("/:id", admin, h.DeleteOrder)
	}
}

type orderLineRequest struct {
	ProductID int `json:"productId" binding:"required,gt=0"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
}

type createOrderRequest struct {
	Items         []orderLineRequest `json:"items" binding:"omitempty,dive"`
	PaymentMethod string             `json:"paymentMethod"`
}

func toCartItems(lines []orderLineRequest) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.CartItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return items
}

// CreateOrder checks out either the explicit items from the request ("buy
// now") or, when none are given, the caller's current cart. A successful
// cart checkout clears the cart afterwards; the ledger itself never touches
// it.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID := c.GetInt(middleware.ContextUserID)

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for create order (user %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	fromCart := len(req.Items) == 0
	lines := toCartItems(req.Items)
	if fromCart {
		cartLines, _, err := h.cart.GetCart(userID)
		if err != nil {
			ErrorResponse(c, mapErrorToStatus(err), "Failed to load cart: "+err.Error())
			return
		}
		lines = cartLines
	}

	order, err := h.orders.CreateOrder(userID, lines, req.PaymentMethod)
	if err != nil {
		h.log.Warnf("Failed to create order for user %d: %v", userID, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to create order: "+err.Error())
		return
	}

	if fromCart {
		if err := h.cart.Clear(userID); err != nil {
			h.log.Errorf("Order %d created but clearing the cart for user %d failed: %v", order.ID, userID, err)
		}
	}

	h.log.Infof("Order %d created for user %d", order.ID, userID)
	SuccessResponse(c, http.StatusCreated, "Order created successfully", order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders()
	if err != nil {
		h.log.Errorf("Failed to list orders: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) ListOrdersByUser(c *gin.Context) {
	targetID, err := strconv.Atoi(c.Param("userId"))
	if err != nil || targetID <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	if c.GetString(middleware.ContextRole) != domain.RoleAdmin && c.GetInt(middleware.ContextUserID) != targetID {
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to view these orders")
		return
	}

	orders, err := h.orders.ListOrdersByUserID(targetID)
	if err != nil {
		h.log.Errorf("Failed to list orders for user %d: %v", targetID, err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.orders.GetOrderByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve order: "+err.Error())
		return
	}
	if c.GetString(middleware.ContextRole) != domain.RoleAdmin && order.UserID != c.GetInt(middleware.ContextUserID) {
		h.log.Warnf("User %d attempted to access order %d owned by user %d",
			c.GetInt(middleware.ContextUserID), id, order.UserID)
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to view this order")
		return
	}
	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

type updateOrderRequest struct {
	Items         *[]orderLineRequest `json:"items" binding:"omitempty,dive"`
	PaymentMethod *string             `json:"paymentMethod"`
	Status        *domain.OrderStatus `json:"status"`
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for update order %d: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Status != nil && !domain.IsValidStatus(*req.Status) {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: invalid status value '"+string(*req.Status)+"'")
		return
	}

	update := usecase.OrderUpdate{
		PaymentMethod: req.PaymentMethod,
		Status:        req.Status,
	}
	if req.Items != nil {
		update.Items = toCartItems(*req.Items)
	}

	order, err := h.orders.UpdateOrder(id, update)
	if err != nil {
		h.log.Warnf("Failed to update order %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update order: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Order updated successfully", order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !domain.IsValidStatus(req.Status) {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: invalid status value '"+string(req.Status)+"'")
		return
	}

	order, err := h.orders.UpdateStatus(id, req.Status)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update order status: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Order status updated successfully", order)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.orders.GetOrderByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve order: "+err.Error())
		return
	}
	if c.GetString(middleware.ContextRole) != domain.RoleAdmin && order.UserID != c.GetInt(middleware.ContextUserID) {
		ErrorResponse(c, http.StatusForbidden, "You are not authorized to cancel this order")
		return
	}

	cancelled, err := h.orders.Cancel(id)
	if err != nil {
		h.log.Warnf("Failed to cancel order %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to cancel order: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Order cancelled successfully", cancelled)
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.orders.Delete(id)
	if err != nil {
		h.log.Warnf("Failed to delete order %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to delete order: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "Order deleted", gin.H{"deleted": true, "order": order})
}
