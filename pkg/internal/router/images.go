package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/picvault/pkg/internal/handle"
)

// RegisterImagesRoutes 注册图片操作相关路由.
func RegisterImagesRoutes(g *gin.RouterGroup) {
	imagesRoutes := g.Group("/images")
	{
		// 上传图片
		imagesRoutes.POST("", handle.UploadImage)
		// 列表查询
		imagesRoutes.GET("", handle.ListImages)

		// 单张图片操作
		singleGroup := imagesRoutes.Group("/:id")
		{
			singleGroup.GET("", handle.GetImage)
			singleGroup.DELETE("", handle.DeleteImage)
		}

		// 批量删除
		imagesRoutes.DELETE("/batch", handle.BatchDeleteImages)
	}
}
