package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/picvault/pkg/internal/service"
	"github.com/yeisme/picvault/pkg/internal/types"
	"github.com/yeisme/picvault/pkg/rule"
)

// CreateStorageEngine 创建存储引擎.
func CreateStorageEngine(c *gin.Context) {
	var req types.CreateStorageEngineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	info, err := service.NewStorageService(ctx).Create(ctx, &req)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusCreated, info)
}

// ListStorageEngines 列出全部存储引擎.
func ListStorageEngines(c *gin.Context) {
	ctx := c.Request.Context()

	engines, err := service.NewStorageService(ctx).List(ctx)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"items": engines})
}

// GetStorageEngine 查询单个存储引擎.
func GetStorageEngine(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	info, err := service.NewStorageService(ctx).Get(ctx, id)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// UpdateStorageEngine 更新存储引擎配置.
func UpdateStorageEngine(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	var req types.UpdateStorageEngineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	info, err := service.NewStorageService(ctx).Update(ctx, id, &req)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// DeleteStorageEngine 删除存储引擎.
func DeleteStorageEngine(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	if err := service.NewStorageService(ctx).Delete(ctx, id); err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// SetDefaultStorageEngine 切换默认存储引擎.
func SetDefaultStorageEngine(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	if err := service.NewStorageService(ctx).SetDefault(ctx, id); err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"default": id})
}

// TestStorageEngine 探测引擎连通性.
func TestStorageEngine(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewStorageService(ctx).TestConnection(ctx, id)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStorageEngineUsage 查询引擎用量.
func GetStorageEngineUsage(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewStorageService(ctx).GetUsage(ctx, id)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStorageCacheInfo 查询引擎缓存状态.
func GetStorageCacheInfo(c *gin.Context) {
	c.JSON(http.StatusOK, service.NewStorageService(c.Request.Context()).CacheInfo())
}

// RefreshStorageCache 全量重建引擎缓存.
func RefreshStorageCache(c *gin.Context) {
	ctx := c.Request.Context()

	if err := service.NewStorageService(ctx).RefreshCache(ctx); err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, service.NewStorageService(ctx).CacheInfo())
}
