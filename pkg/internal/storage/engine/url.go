package engine

import (
	"fmt"
	"strings"

	"github.com/yeisme/picvault/pkg/internal/model"
)

// ResolveURL 根据引擎配置推导对象的外部访问URL. 优先级是硬性契约：
//
//  1. 配置了 custom_domain（历史别名 cdn_domain 已在解析时归一）时恒用自定义域名，
//     域名必须自带协议前缀，这里不做补全；
//  2. 否则按 endpoint/bucket/key 的 path-style 形式拼接（R2 端点若带 bucket 后缀则先剥离）；
//  3. 否则回退到各引擎的默认公开URL形式.
func ResolveURL(engineType model.EngineType, cfg *model.EngineConfig, key string) string {
	// 本地引擎的 base_path 是文件系统目录，不进入URL；对象存储引擎的 base_path 是键前缀
	fullKey := strings.TrimLeft(key, "/")
	if engineType != model.EngineTypeLocal {
		fullKey = JoinBasePath(cfg.BasePath, key)
	}

	if domain := strings.TrimSpace(cfg.CustomDomain); domain != "" {
		return joinURL(domain, fullKey)
	}

	if cfg.Endpoint != "" {
		endpoint := strings.TrimRight(cfg.Endpoint, "/")
		// R2 的 endpoint 可能已包含 bucket 路径，避免重复拼接
		if strings.Contains(endpoint, "cloudflarestorage.com") {
			if idx := strings.Index(endpoint, "/"+cfg.Bucket); idx > 0 {
				endpoint = endpoint[:idx]
			}
		}

		return joinURL(endpoint, cfg.Bucket+"/"+fullKey)
	}

	return defaultURL(engineType, cfg, fullKey)
}

// defaultURL 各引擎在未配置 endpoint 时的默认公开URL形式.
func defaultURL(engineType model.EngineType, cfg *model.EngineConfig, fullKey string) string {
	switch engineType {
	case model.EngineTypeS3:
		// AWS S3 virtual-hosted style
		region := cfg.Region
		if region == "" {
			region = "us-east-1"
		}

		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, region, fullKey)
	case model.EngineTypeOSS:
		region := cfg.Region
		if region == "" {
			region = "cn-hangzhou"
		}

		return fmt.Sprintf("https://%s.oss-%s.aliyuncs.com/%s", cfg.Bucket, region, fullKey)
	case model.EngineTypeLocal:
		return joinURL(cfg.BaseURL, fullKey)
	default:
		return fullKey
	}
}

// JoinBasePath 将 base_path 前缀拼接到键上，规整多余斜杠.
func JoinBasePath(basePath, key string) string {
	basePath = strings.Trim(basePath, "/")
	key = strings.TrimLeft(key, "/")

	if basePath == "" {
		return key
	}

	return basePath + "/" + key
}

// joinURL 以单个斜杠连接URL前缀与路径.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
