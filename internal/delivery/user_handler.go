package delivery

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
	"github.com/MarkRaffy28/MicroBits/internal/middleware"
	"github.com/MarkRaffy28/MicroBits/internal/usecase"
)

type UserHandler struct {
	users  usecase.UserUseCase
	images ImageStore
	log    *logrus.Logger
}

func NewUserHandler(users usecase.UserUseCase, images ImageStore, logger *logrus.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		images: images,
		log:    logger,
	}
}

func (h *UserHandler) RegisterRoutes(router gin.IRouter, auth, admin, selfOrAdmin gin.HandlerFunc) {
	users := router.Group("/users")
	{
		users.POST("", h.CreateUser)
		users.GET("/check/username/:username", h.CheckUsername)
		users.GET("", auth, admin, h.ListUsers)
		users.GET("/:id", auth, selfOrAdmin, h.GetUserByID)
		users.PUT("/:id", auth, selfOrAdmin, h.UpdateUser)
		users.PUT("/:id/picture", auth, selfOrAdmin, h.UploadPicture)
		users.DELETE("/:id", auth, admin, h.DeleteUser)
	}
}

type userRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	Role        string `json:"role"`
}

func (req *userRequest) toUser() *domain.User {
	return &domain.User{
		Username:    req.Username,
		Email:       req.Email,
		FirstName:   req.FirstName,
		MiddleName:  req.MiddleName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		Role:        req.Role,
	}
}

type userResponse struct {
	*domain.User
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (h *UserHandler) withPicture(user *domain.User) userResponse {
	resp := userResponse{User: user}
	if h.images != nil {
		resp.ProfilePicture = h.images.URL("users", user.ID)
	}
	return resp
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Password == "" {
		ErrorResponse(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	// Self-registration cannot grant itself admin.
	if req.Role == domain.RoleAdmin && c.GetString(middleware.ContextRole) != domain.RoleAdmin {
		req.Role = domain.RoleUser
	}

	created, err := h.users.Register(req.toUser(), req.Password)
	if err != nil {
		h.log.Warnf("Failed to register user '%s': %v", req.Username, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to create user: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusCreated, "User created successfully", h.withPicture(created))
}

func (h *UserHandler) CheckUsername(c *gin.Context) {
	exists, err := h.users.UsernameExists(c.Param("username"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to check username")
		return
	}
	SuccessResponse(c, http.StatusOK, "Username checked", gin.H{"exists": exists})
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers()
	if err != nil {
		h.log.Errorf("Failed to list users: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, h.withPicture(&users[i]))
	}
	SuccessResponse(c, http.StatusOK, "Users retrieved successfully", out)
}

func (h *UserHandler) GetUserByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.users.GetUserByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve user: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "User retrieved successfully", h.withPicture(user))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Only admins can change roles.
	if req.Role != "" && c.GetString(middleware.ContextRole) != domain.RoleAdmin {
		req.Role = ""
	}

	updated, err := h.users.UpdateUser(id, req.toUser(), req.Password)
	if err != nil {
		h.log.Warnf("Failed to update user %d: %v", id, err)
		ErrorResponse(c, mapErrorToStatus(err), "Failed to update user: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "User updated successfully", h.withPicture(updated))
}

func (h *UserHandler) UploadPicture(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	if h.images == nil {
		ErrorResponse(c, http.StatusNotImplemented, "Image storage is not configured")
		return
	}

	user, err := h.users.GetUserByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve user: "+err.Error())
		return
	}

	file, err := c.FormFile("profilePicture")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Profile picture file is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	if _, err := h.images.Save("users", id, filepath.Ext(file.Filename), data); err != nil {
		h.log.Errorf("Failed to store profile picture for user %d: %v", id, err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to store profile picture")
		return
	}
	SuccessResponse(c, http.StatusOK, "Profile picture updated", h.withPicture(user))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.users.GetUserByID(id)
	if err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to retrieve user: "+err.Error())
		return
	}
	if err := h.users.DeleteUser(id); err != nil {
		ErrorResponse(c, mapErrorToStatus(err), "Failed to delete user: "+err.Error())
		return
	}
	SuccessResponse(c, http.StatusOK, "User deleted", gin.H{"deleted": true, "user": user})
}
