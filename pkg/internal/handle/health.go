package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/picvault/pkg/context"
)

const timeout = 2 * time.Second

// HealthDB 数据库健康检查.
func HealthDB(c *gin.Context) {
	dbc := ctxPkg.GetDBClient(c.Request.Context())
	if dbc == nil || dbc.DB == nil { // dbc.DB 来自于嵌入的 *gorm.DB
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "db", "status": "unhealthy", "error": "db client not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	sqlDB, err := dbc.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "db", "status": "unhealthy", "error": err.Error()})
		return
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "db", "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "db", "status": "ok"})
}

// HealthStorage 存储引擎缓存健康检查：至少要有一个可路由的默认引擎.
func HealthStorage(c *gin.Context) {
	reg := ctxPkg.GetRegistry(c.Request.Context())
	if reg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "storage", "status": "unhealthy", "error": "engine cache not initialized"})
		return
	}

	if _, ok := reg.GetDefault(); !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": "storage", "status": "unhealthy", "error": "no default storage engine"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": "storage", "status": "ok", "cached": reg.Stats().Count})
}
