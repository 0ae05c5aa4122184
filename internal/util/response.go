package util

import (
	"academician_hub_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData 带附加数据的错误响应（如门禁拒绝时的 requiredOrdinal）
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// RenderEngineError 把进度引擎的错误分类映射为 HTTP 响应
func RenderEngineError(c *gin.Context, err error) {
	var gateLocked *GateLockedError
	var outOfRange *OutOfRangeError
	var gateNotSatisfied *GateNotSatisfiedError

	switch {
	case errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrUnitNotFound),
		errors.Is(err, ErrLessonNotFound),
		errors.Is(err, ErrProgressNotFound),
		errors.Is(err, ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.As(err, &gateLocked):
		ErrorWithData(c, http.StatusForbidden, err.Error(), gin.H{
			"requiredOrdinal": gateLocked.RequiredOrdinal,
		})
	case errors.As(err, &outOfRange):
		// 目录与客户端不同步，按数据一致性告警记录
		logger.Log.Warn("catalog/client index mismatch",
			zap.String("kind", outOfRange.Kind),
			zap.Int("index", outOfRange.Index),
			zap.Int("total", outOfRange.Total))
		Error(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &gateNotSatisfied):
		ErrorWithData(c, http.StatusBadRequest, err.Error(), gin.H{
			"quizRequired":  true,
			"requiredScore": gateNotSatisfied.RequiredScore,
		})
	case errors.Is(err, ErrConcurrencyConflict):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	default:
		LogInternalError(c, err)
	}
}
