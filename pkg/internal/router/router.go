// Package router 管理路由配置，将路径和处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/picvault/pkg/configs"
)

// RegisterAll 注册全部 API 路由组和本地上传目录的静态访问.
func RegisterAll(e *gin.Engine) {
	api := e.Group("/api/v1")
	{
		RegisterImagesRoutes(api)
		RegisterStoragesRoutes(api)
		RegisterHealthCheckRoute(api)
	}

	// 本地引擎写入 upload.dir，对应 base_url 的静态访问入口
	e.Static("/uploads", configs.GetConfig().Upload.Dir)
}
