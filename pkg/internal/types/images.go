package types

import "time"

// UploadImageResponse 图片上传结果.
type UploadImageResponse struct {
	ID           uint   `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	MD5          string `json:"md5"`
	SHA256       string `json:"sha256"`
	FileSize     int64  `json:"file_size"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	// Deduplicated 为 true 表示命中内容去重，未产生新的存储写入
	Deduplicated bool `json:"deduplicated"`
}

// ImageInfo 图片元数据.
type ImageInfo struct {
	ID           uint      `json:"id"`
	FileName     string    `json:"file_name"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	MD5          string    `json:"md5"`
	SHA256       string    `json:"sha256"`
	FileSize     int64     `json:"file_size"`
	FileType     string    `json:"file_type"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	StorageKey   string    `json:"storage_key"`
	EngineID     uint      `json:"storage_engine_id"`
	UploadIP     string    `json:"upload_ip,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListImagesRequest 图片列表查询参数.
type ListImagesRequest struct {
	Page     int    `form:"page,default=1"      rule:"min=1"`
	PageSize int    `form:"page_size,default=20" rule:"min=1,max=100"`
	Keyword  string `form:"keyword"`
	EngineID uint   `form:"storage_engine_id"`
}

// ListImagesResponse 图片列表结果.
type ListImagesResponse struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    []ImageInfo `json:"items"`
}

// BatchDeleteImagesRequest 批量删除请求.
type BatchDeleteImagesRequest struct {
	IDs []uint `binding:"required" json:"ids"`
}

// BatchDeleteImagesResponse 批量删除结果.
type BatchDeleteImagesResponse struct {
	Deleted int    `json:"deleted"`
	Failed  []uint `json:"failed,omitempty"`
}
