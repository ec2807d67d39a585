package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultUploadMaxSizeMB = 10                              // 默认最大上传尺寸（MB）
	DefaultUploadDir       = "uploads"                       // 本地存储引擎的根目录
	DefaultPathRule        = "uploads/{date}/{md5}.{ext}"    // 默认存储路径规则
	DefaultLocalBaseURL    = "http://localhost:8080/uploads" // 本地存储的默认访问URL前缀
)

// defaultAllowedTypes 默认允许的图片MIME类型.
var defaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
}

// UploadConfig 图片上传配置.
type UploadConfig struct {
	// MaxSizeMB 单个文件最大尺寸，单位MB
	MaxSizeMB int `mapstructure:"max_size_mb" rule:"min=1"`
	// AllowedTypes 允许的MIME类型列表
	AllowedTypes []string `mapstructure:"allowed_types"`
	// Dir 本地存储引擎的根目录，引擎配置中的 base_path 会拼接在其后
	Dir string `mapstructure:"dir"`
	// PathRule 新建存储引擎时的默认路径规则
	PathRule string `mapstructure:"path_rule"`
	// LocalBaseURL 本地存储引擎生成访问URL时的默认前缀
	LocalBaseURL string `mapstructure:"local_base_url"`
}

// MaxSizeBytes 返回最大上传尺寸（字节）.
func (c *UploadConfig) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMB) << 20
}

// TypeAllowed 判断MIME类型是否在允许列表中. 空列表表示不限制类型.
func (c *UploadConfig) TypeAllowed(contentType string) bool {
	if len(c.AllowedTypes) == 0 {
		return true
	}

	for _, t := range c.AllowedTypes {
		if t == contentType {
			return true
		}
	}

	return false
}

// setDefaults 设置上传配置的默认值.
func (c *UploadConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("upload.max_size_mb", DefaultUploadMaxSizeMB)
	v.SetDefault("upload.allowed_types", defaultAllowedTypes)
	v.SetDefault("upload.dir", DefaultUploadDir)
	v.SetDefault("upload.path_rule", DefaultPathRule)
	v.SetDefault("upload.local_base_url", DefaultLocalBaseURL)
}
