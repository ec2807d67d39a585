// Package api 将路由组注册到 gin 引擎，作为 HTTP 服务的接口入口.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/picvault/pkg/internal/router"
)

// RegisterGroup 注册全部业务路由到传入的 gin 引擎.
func RegisterGroup(e *gin.Engine) *gin.Engine {
	router.RegisterAll(e)

	return e
}
