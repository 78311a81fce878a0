package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/usecase"
)

type AuthHandler struct {
	users usecase.UserUseCase
	log   *logrus.Logger
}

func NewAuthHandler(users usecase.UserUseCase, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		log:   logger,
	}
}

func (h *AuthHandler) RegisterRoutes(router gin.IRouter) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	token, user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		h.log.Warnf("Login failed for '%s': %v", req.Username, err)
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	SuccessResponse(c, http.StatusOK, "Login successful", gin.H{"token": token, "user": user})
}
