package model

import (
	"time"
)

// Image 图片记录模型.
//
// (md5, sha256) 上的唯一索引用于兜底并发上传竞态：两个相同内容的请求同时通过
// 去重查询时，第二个插入会触发唯一约束冲突，调用方据此回查并复用已有记录.
type Image struct {
	ID               uint   `gorm:"primaryKey"                                       json:"id"`
	MD5              string `gorm:"size:32;uniqueIndex:idx_images_md5_sha256;index"  json:"md5"`
	SHA256           string `gorm:"size:64;uniqueIndex:idx_images_md5_sha256;index"  json:"sha256"`
	OriginalFilename string `gorm:"size:255"                                         json:"original_filename"`
	// StorageKey 对象在存储引擎中的键（由路径规则渲染）
	StorageKey      string `gorm:"size:500"      json:"storage_key"`
	StorageEngineID uint   `gorm:"index"         json:"storage_engine_id"`
	FileSize        int64  `json:"file_size"`
	FileType        string `gorm:"size:50;index" json:"file_type"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	UploadIP        string `gorm:"size:45"       json:"upload_ip"`
	OriginalURL     string `gorm:"type:text"     json:"original_url"`
	ThumbnailURL    string `gorm:"type:text"     json:"thumbnail_url"`
	// 软删除标记；哈希保留以兜底删除后立即重传的竞态，但去重查询会排除已删除行
	IsDeleted bool      `gorm:"default:false;index" json:"is_deleted"`
	CreatedAt time.Time `gorm:"index"               json:"created_at"`
}

// TableName 指定表名.
func (Image) TableName() string {
	return "images"
}
