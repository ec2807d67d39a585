package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/picvault/pkg/internal/handle"
)

// RegisterStoragesRoutes 注册存储引擎管理相关路由.
func RegisterStoragesRoutes(g *gin.RouterGroup) {
	storagesRoutes := g.Group("/storages")
	{
		storagesRoutes.POST("", handle.CreateStorageEngine)
		storagesRoutes.GET("", handle.ListStorageEngines)

		// 缓存诊断
		cacheGroup := storagesRoutes.Group("/cache")
		{
			cacheGroup.GET("", handle.GetStorageCacheInfo)
			cacheGroup.POST("/refresh", handle.RefreshStorageCache)
		}

		// 单个引擎操作
		singleGroup := storagesRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetStorageEngine)
			singleGroup.PUT("", handle.UpdateStorageEngine)
			singleGroup.DELETE("", handle.DeleteStorageEngine)
			// 切换默认引擎
			singleGroup.POST("/default", handle.SetDefaultStorageEngine)
			// 连通性测试
			singleGroup.POST("/test", handle.TestStorageEngine)
			// 用量查询
			singleGroup.GET("/usage", handle.GetStorageEngineUsage)
		}
	}
}
