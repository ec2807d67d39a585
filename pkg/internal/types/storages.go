package types

import (
	"time"

	"github.com/yeisme/picvault/pkg/internal/model"
	"github.com/yeisme/picvault/pkg/internal/storage/engine"
	"github.com/yeisme/picvault/pkg/internal/storage/registry"
)

// CreateStorageEngineRequest 创建存储引擎请求.
type CreateStorageEngineRequest struct {
	Name string `binding:"required" json:"name"     rule:"min=1,max=100"`
	Type string `binding:"required" json:"type"     rule:"oneof=local s3 oss"`
	// Config 引擎类型相关配置包，字段见 model.EngineConfig
	Config      model.EngineConfig `json:"config"`
	IsActive    *bool              `json:"is_active"`
	IsDefault   bool               `json:"is_default"`
	PathRule    string             `json:"path_rule"`
	MaxCapacity *int64             `json:"max_capacity"`
}

// UpdateStorageEngineRequest 更新存储引擎请求，nil 字段表示不修改.
type UpdateStorageEngineRequest struct {
	Name        *string             `json:"name"`
	Config      *model.EngineConfig `json:"config"`
	IsActive    *bool               `json:"is_active"`
	PathRule    *string             `json:"path_rule"`
	MaxCapacity *int64              `json:"max_capacity"`
}

// StorageEngineInfo 存储引擎信息，凭据字段不回传.
type StorageEngineInfo struct {
	ID           uint             `json:"id"`
	Name         string           `json:"name"`
	Type         model.EngineType `json:"type"`
	Endpoint     string           `json:"endpoint_url,omitempty"`
	Bucket       string           `json:"bucket_name,omitempty"`
	Region       string           `json:"region,omitempty"`
	BasePath     string           `json:"base_path,omitempty"`
	CustomDomain string           `json:"custom_domain,omitempty"`
	BaseURL      string           `json:"base_url,omitempty"`
	IsActive     bool             `json:"is_active"`
	IsDefault    bool             `json:"is_default"`
	PathRule     string           `json:"path_rule"`
	MaxCapacity  *int64           `json:"max_capacity"`
	UsedCapacity int64            `json:"used_capacity"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewStorageEngineInfo 由模型构造信息视图，剥离凭据.
func NewStorageEngineInfo(m *model.StorageEngine) StorageEngineInfo {
	return StorageEngineInfo{
		ID:           m.ID,
		Name:         m.Name,
		Type:         m.Type,
		Endpoint:     m.Config.Endpoint,
		Bucket:       m.Config.Bucket,
		Region:       m.Config.Region,
		BasePath:     m.Config.BasePath,
		CustomDomain: m.Config.CustomDomain,
		BaseURL:      m.Config.BaseURL,
		IsActive:     m.IsActive,
		IsDefault:    m.IsDefault,
		PathRule:     m.PathRule,
		MaxCapacity:  m.MaxCapacity,
		UsedCapacity: m.UsedCapacity,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// StorageUsageResponse 存储引擎用量.
type StorageUsageResponse struct {
	EngineID    uint         `json:"engine_id"`
	Usage       engine.Usage `json:"usage"`
	MaxCapacity *int64       `json:"max_capacity"`
	// UsedPercent 有容量上限时的使用百分比
	UsedPercent *float64 `json:"used_percent,omitempty"`
}

// TestStorageEngineResponse 连接测试结果.
type TestStorageEngineResponse struct {
	EngineID uint              `json:"engine_id"`
	Result   engine.TestResult `json:"result"`
}

// StorageCacheInfoResponse 引擎缓存状态.
type StorageCacheInfoResponse struct {
	Cache registry.Info `json:"cache"`
}
