// Package model 定义数据库模型.
package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// EngineType 存储引擎类型.
type EngineType string

const (
	// EngineTypeLocal 本地文件系统.
	EngineTypeLocal EngineType = "local"
	// EngineTypeS3 AWS S3 及兼容服务（MinIO、R2 等）.
	EngineTypeS3 EngineType = "s3"
	// EngineTypeOSS 阿里云 OSS 原生.
	EngineTypeOSS EngineType = "oss"
)

// EngineConfig 存储引擎的类型相关配置包. 以 JSON 形式存入 storage_engines.config 列.
//
// 不同引擎类型关心的字段不同：
//   - local: base_path, base_url
//   - s3:    endpoint_url, access_key_id, secret_access_key, bucket_name, region, base_path, custom_domain, use_ssl
//   - oss:   endpoint_url(可选), access_key_id, secret_access_key, bucket_name, region, base_path, custom_domain
type EngineConfig struct {
	Endpoint        string `json:"endpoint_url,omitempty"      rule:"omitempty,url"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
	Region          string `json:"region,omitempty"`
	Bucket          string `json:"bucket_name,omitempty"`
	BasePath        string `json:"base_path,omitempty"`
	// CustomDomain 自定义访问域名，必须带协议前缀；历史配置中的 cdn_domain 在反序列化时归一到此字段
	CustomDomain string `json:"custom_domain,omitempty"`
	// BaseURL 本地存储的访问URL前缀
	BaseURL string `json:"base_url,omitempty"`
	// UseSSL 为空时视为 true
	UseSSL *bool `json:"use_ssl,omitempty"`
}

// UnmarshalJSON 解析配置包，同时兼容历史别名 cdn_domain.
func (c *EngineConfig) UnmarshalJSON(data []byte) error {
	type plain EngineConfig

	aux := struct {
		*plain
		CDNDomain string `json:"cdn_domain,omitempty"`
	}{plain: (*plain)(c)}

	if err := sonic.Unmarshal(data, &aux); err != nil {
		return err
	}

	if c.CustomDomain == "" && aux.CDNDomain != "" {
		c.CustomDomain = aux.CDNDomain
	}

	return nil
}

// Secure 返回是否使用SSL，未配置时默认为 true.
func (c *EngineConfig) Secure() bool {
	if c.UseSSL == nil {
		return true
	}

	return *c.UseSSL
}

// Value 实现 driver.Valuer，序列化为JSON文本存储.
func (c EngineConfig) Value() (driver.Value, error) {
	b, err := sonic.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal engine config: %w", err)
	}

	return string(b), nil
}

// Scan 实现 sql.Scanner，从JSON文本反序列化.
func (c *EngineConfig) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*c = EngineConfig{}

		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported engine config column type %T", value)
	}
}

// StorageEngine 存储引擎配置模型. 缓存（registry）只镜像该表，不会自行产生配置.
type StorageEngine struct {
	ID   uint       `gorm:"primaryKey"    json:"id"`
	Name string     `gorm:"size:100;index" json:"name"`
	Type EngineType `gorm:"size:50;index"  json:"type"`
	// Config 类型相关配置包，JSON 列
	Config EngineConfig `gorm:"type:text" json:"config"`
	// 激活引擎中最多一个 is_default=true；非激活引擎不可为默认.
	// is_active 不设列默认值：false 是 Go 零值，插入时会被列默认值覆盖
	IsActive  bool `gorm:"index:idx_storage_active_default"               json:"is_active"`
	IsDefault bool `gorm:"default:false;index:idx_storage_active_default" json:"is_default"`
	// PathRule 存储路径规则模板，与引擎类型无关
	PathRule string `gorm:"size:500" json:"path_rule"`
	// MaxCapacity 容量上限（字节），nil 表示无限制
	MaxCapacity  *int64    `json:"max_capacity"`
	UsedCapacity int64     `gorm:"default:0" json:"used_capacity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名.
func (StorageEngine) TableName() string {
	return "storage_engines"
}
