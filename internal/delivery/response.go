package delivery

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MarkRaffy28/MicroBits/internal/domain"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
	})
}

// mapErrorToStatus translates the domain error taxonomy into HTTP codes:
// absent entities are 404, business-rule rejections are 400, and
// conflicting state transitions are 409.
func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrLineNotFound):
		return http.StatusNotFound
	case domain.IsInsufficientStock(err),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	}

	// Ad-hoc validation messages from the usecases.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid") || strings.Contains(msg, "cannot be") || strings.Contains(msg, "must be") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
