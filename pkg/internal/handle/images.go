package handle

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/picvault/pkg/internal/service"
	"github.com/yeisme/picvault/pkg/internal/types"
)

// UploadImage 处理图片上传：multipart 表单字段 file 为内容，
// storage_engine_id 可选指定目标引擎（缺省走默认引擎）.
func UploadImage(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)

		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		badRequest(c, err)

		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		abortWithError(c, err)

		return
	}

	var engineID uint
	if raw := c.PostForm("storage_engine_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(c, err)

			return
		}

		engineID = uint(id)
	}

	ctx := c.Request.Context()
	svc := service.NewImageService(ctx)

	resp, err := svc.Upload(ctx, data, service.UploadOptions{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		EngineID:    engineID,
		UploadIP:    c.ClientIP(),
	})
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetImage 查询单张图片元数据.
func GetImage(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	info, err := service.NewImageService(ctx).GetByID(ctx, id)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// ListImages 分页查询图片列表.
func ListImages(c *gin.Context) {
	var req types.ListImagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()

	resp, err := service.NewImageService(ctx).List(ctx, &req)
	if err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteImage 删除图片，query 参数 hard=true 时连同存储对象一起删除.
func DeleteImage(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		badRequest(c, err)

		return
	}

	hard := c.Query("hard") == "true"
	ctx := c.Request.Context()

	if err := service.NewImageService(ctx).Delete(ctx, id, hard); err != nil {
		abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// BatchDeleteImages 批量软删除图片.
func BatchDeleteImages(c *gin.Context) {
	var req types.BatchDeleteImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)

		return
	}

	ctx := c.Request.Context()
	resp := service.NewImageService(ctx).BatchDelete(ctx, req.IDs)

	c.JSON(http.StatusOK, resp)
}

// parseID 解析路径参数 id.
func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)

	return uint(id), err
}
