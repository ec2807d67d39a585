// Package engine 实现存储引擎抽象：本地文件系统、S3兼容服务（MinIO、R2等）和阿里云OSS.
//
// 引擎实例在构造时完成配置校验，配置缺失或非法返回 *ConfigError；
// registry 捕获该错误并跳过对应引擎，不会中断其余引擎的加载.
// 运行期的网络/权限失败通过普通 error 上抛给请求方.
// 所有实现都要求可被多个 goroutine 并发调用.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/picvault/pkg/internal/model"
)

// Engine 存储引擎的公共能力集.
type Engine interface {
	// Upload 将数据写入给定键，重复上传同一键为幂等覆盖，返回外部访问URL
	Upload(ctx context.Context, key string, data []byte) (string, error)
	// Download 读取给定键的完整内容
	Download(ctx context.Context, key string) ([]byte, error)
	// Delete 删除给定键，键不存在不视为错误
	Delete(ctx context.Context, key string) error
	// Exists 检查给定键是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// URL 返回给定键的外部访问URL，不发起网络请求
	URL(key string) string
	// Test 执行一次廉价的可达性/权限探测，结果以结构化形式返回而非错误
	Test(ctx context.Context) TestResult
	// Usage 统计引擎当前的存储用量
	Usage(ctx context.Context) (Usage, error)
	// Type 返回引擎类型
	Type() model.EngineType
	// Name 返回引擎配置的人类可读名称
	Name() string
}

// TestResult 连接测试结果.
type TestResult struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	LatencyMS float64 `json:"latency_ms"`
}

// Usage 存储用量.
type Usage struct {
	UsedBytes int64 `json:"used_bytes"`
	FileCount int64 `json:"file_count"`
	// Available 为 false 表示该引擎无法统计用量
	Available bool `json:"available"`
}

// measure 执行探测函数并计时，将结果转换为 TestResult.
func measure(probe func() error) TestResult {
	start := time.Now()
	err := probe()
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		return TestResult{Success: false, Message: err.Error(), LatencyMS: latency}
	}

	return TestResult{Success: true, Message: "ok", LatencyMS: latency}
}

// ConfigError 表示引擎配置缺失或非法，仅在构造阶段返回.
type ConfigError struct {
	Type   model.EngineType
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s engine config: %s", e.Type, e.Reason)
}

// newConfigError 构造 ConfigError.
func newConfigError(t model.EngineType, format string, args ...any) error {
	return &ConfigError{Type: t, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError 判断错误是否为配置错误.
func IsConfigError(err error) bool {
	var ce *ConfigError

	return errors.As(err, &ce)
}
