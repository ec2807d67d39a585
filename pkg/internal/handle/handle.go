// Package handle 实现 HTTP 处理器，只负责请求解析与响应编码，业务逻辑在 service 层.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/picvault/pkg/internal/service"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
	nlog "github.com/yeisme/picvault/pkg/log"
)

// abortWithError 把 service 层错误映射为 HTTP 状态码.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case service.IsValidationError(err), engine.IsConfigError(err):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrEngineNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrEngineIsDefault),
		errors.Is(err, service.ErrEngineInUse),
		errors.Is(err, service.ErrEngineInactive):
		status = http.StatusConflict
	case errors.Is(err, service.ErrEngineUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrCapacityExceeded):
		status = http.StatusInsufficientStorage
	}

	if status == http.StatusInternalServerError {
		nlog.Logger().Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest 统一的请求参数错误响应.
func badRequest(c *gin.Context, err error) {
	nlog.Logger().Warn().Err(err).Str("path", c.FullPath()).Msg("invalid request")
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
